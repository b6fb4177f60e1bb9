package terminal

import "fmt"

const welcomeBanner = `Welcome to termfolio.

Type 'help' to see available commands, 'whoami' to learn about me,
or 'draw' to doodle on the shared canvas with everyone online.`

// View is a snapshot of everything the renderer draws. It shares no memory
// with the controller.
type View struct {
	Welcome string
	Entries []Entry
	Prompt  string
	Input   string
	Busy    bool
	Notice  string

	// UsernamePrompt is set while a username is being collected;
	// PromptError holds the last rejection reason.
	UsernamePrompt bool
	PromptError    string

	// Canvas holds the rendered overlay rows while it is open.
	Canvas []string
}

func (c *Controller) View() View {
	username := c.identity.Username()

	c.mu.Lock()
	v := View{
		Entries: append([]Entry(nil), c.entries...),
		Prompt:  promptFor(username, c.host),
		Input:   string(c.input),
		Busy:    c.busy,
		Notice:  c.notice,
	}
	if c.welcome {
		v.Welcome = welcomeBanner
	}
	if c.prompt != nil {
		v.UsernamePrompt = true
		v.PromptError = c.prompt.err
		v.Prompt = "Choose a username (Enter for a random one, Esc to cancel): "
	}
	c.mu.Unlock()

	if c.overlay.IsOpen() {
		v.Canvas = c.overlay.Render(username)
	}
	return v
}

func promptFor(username, host string) string {
	if username == "" {
		username = "guest"
	}
	return fmt.Sprintf("%s@%s:~$ ", username, host)
}
