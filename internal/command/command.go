// Package command maps terminal input lines to results. It never performs
// side effects: handlers return an Action describing what the caller should
// do.
package command

import (
	"context"
	"sort"
	"strings"
	"time"

	"termfolio/internal/model"
	"termfolio/internal/resume"
)

// Action is the closed set of side effects a Result can request. Each
// variant carries only its own payload.
type Action interface {
	isAction()
}

type Clear struct{}

type OpenURL struct {
	URL string
}

type ToggleCanvas struct{}

type SetUsername struct {
	Username string
}

// PromptUsername asks the caller to collect a username and then re-run
// Retry, the line that needed one.
type PromptUsername struct {
	Retry string
}

// ClearPixels asks the caller to blank every canvas pixel owned by Username.
type ClearPixels struct {
	Username string
}

func (Clear) isAction()          {}
func (OpenURL) isAction()        {}
func (ToggleCanvas) isAction()   {}
func (SetUsername) isAction()    {}
func (PromptUsername) isAction() {}
func (ClearPixels) isAction()    {}

type Result struct {
	Output  string
	IsError bool
	Action  Action
}

// Services is the data access an async command may use.
type Services interface {
	OnlineUsers(ctx context.Context) ([]model.Presence, error)
	GuestbookEntries(ctx context.Context) ([]model.GuestbookEntry, error)
	AddGuestbookEntry(ctx context.Context, message string) error
	CanvasASCII() string
}

// Env is the explicit context handed to async commands.
type Env struct {
	Data     *resume.CV
	Username string
	Services Services
	Now      time.Time
	// Line is the raw input, used to retry after a username prompt.
	Line string
}

type SyncHandler func(args []string, data *resume.CV) Result

type AsyncHandler func(ctx context.Context, args []string, env Env) Result

// Parse trims and splits line on whitespace. Only the command name is
// lowercased; arguments keep their case.
func Parse(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

type Options struct {
	// CVURL is the target of the cv command.
	CVURL string
}

type Interpreter struct {
	data  *resume.CV
	cvURL string
	sync  map[string]SyncHandler
	async map[string]AsyncHandler
}

func New(data *resume.CV, opts Options) *Interpreter {
	if data == nil {
		data = &resume.CV{}
	}
	i := &Interpreter{data: data, cvURL: opts.CVURL}
	if i.cvURL == "" {
		i.cvURL = "/cv.pdf"
	}
	i.sync = map[string]SyncHandler{
		"help":       helpCommand,
		"whoami":     whoamiCommand,
		"about":      whoamiCommand,
		"work":       workCommand,
		"education":  educationCommand,
		"skills":     skillsCommand,
		"projects":   projectsCommand,
		"activities": activitiesCommand,
		"awards":     awardsCommand,
		"contact":    contactCommand,
		"cv":         i.cvCommand,
		"clear":      clearCommand,
		"blog":       blogCommand,
	}
	i.async = map[string]AsyncHandler{
		"who":       whoCommand,
		"guestbook": guestbookCommand,
		"name":      nameCommand,
		"draw":      drawCommand,
	}
	return i
}

func (i *Interpreter) IsAsync(name string) bool {
	_, ok := i.async[name]
	return ok
}

// Commands lists every registered name, sorted. The terminal completes
// against it on Tab.
func (i *Interpreter) Commands() []string {
	names := make([]string, 0, len(i.sync)+len(i.async))
	for name := range i.sync {
		names = append(names, name)
	}
	for name := range i.async {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the synchronous path. It is a pure function of line and the
// résumé. Async names yield a loading placeholder.
func (i *Interpreter) Execute(line string) Result {
	name, args := Parse(line)
	if name == "" {
		return Result{}
	}
	if h, ok := i.sync[name]; ok {
		return h(args, i.data)
	}
	if i.IsAsync(name) {
		return Result{Output: "Loading..."}
	}
	return notFound(name)
}

// ExecuteAsync runs an async command. ok is false when line does not name
// one.
func (i *Interpreter) ExecuteAsync(ctx context.Context, line string, env Env) (Result, bool) {
	name, args := Parse(line)
	h, found := i.async[name]
	if !found {
		return Result{}, false
	}
	if env.Data == nil {
		env.Data = i.data
	}
	if env.Now.IsZero() {
		env.Now = time.Now()
	}
	if env.Line == "" {
		env.Line = line
	}
	return h(ctx, args, env), true
}

func notFound(name string) Result {
	return Result{
		Output:  "Command not found: " + name + "\nType 'help' for available commands.",
		IsError: true,
	}
}

func (i *Interpreter) cvCommand(_ []string, _ *resume.CV) Result {
	return Result{Output: "Opening CV in new tab...", Action: OpenURL{URL: i.cvURL}}
}

func clearCommand(_ []string, _ *resume.CV) Result {
	return Result{Action: Clear{}}
}
