// Package terminal owns an interactive session: the transcript, the input
// line and its history, dispatch into the command interpreter and the
// application of the actions commands return.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"termfolio/internal/canvas"
	"termfolio/internal/command"
	"termfolio/internal/logging"
	"termfolio/internal/model"
	"termfolio/internal/session"
)

const (
	defaultHost    = "termfolio"
	visitorTimeout = 10 * time.Second
)

var errUnavailable = errors.New("service unavailable")

var panicResult = command.Result{Output: "An unexpected error occurred. Please try again.", IsError: true}

// Identity is the persisted session identity.
type Identity interface {
	SessionID() string
	Username() string
	SetUsername(name string) error
}

// Presence publishes this session's liveness and reads who else is online.
type Presence interface {
	Start(username string)
	Stop()
	Track(command string)
	Resume()
	Online(ctx context.Context) ([]model.Presence, error)
}

// Entry is one submitted line and what it produced.
type Entry struct {
	Command string
	Result  command.Result
}

type Options struct {
	Interpreter *command.Interpreter
	Identity    Identity
	Presence    Presence
	Canvas      *canvas.Canvas
	Guestbook   Guestbook
	Visitors    Visitors
	Opener      Opener
	// SiteURL resolves relative OpenURL targets such as the CV path.
	SiteURL  string
	Hostname string
	Logger   *log.Logger
	Now      func() time.Time
	Rand     *rand.Rand
}

type usernamePrompt struct {
	retry string
	err   string
}

// Controller is safe for concurrent use: the key loop keeps calling
// HandleKey while Submit runs in another goroutine.
type Controller struct {
	interp    *command.Interpreter
	identity  Identity
	presence  Presence
	canvas    *canvas.Canvas
	overlay   *canvas.Overlay
	guestbook Guestbook
	visitors  Visitors
	opener    Opener
	siteURL   string
	host      string
	logger    *log.Logger
	now       func() time.Time
	rng       *rand.Rand

	mu      sync.Mutex
	entries []Entry
	welcome bool
	input   []rune
	history []string
	histIdx int
	busy    bool
	// pending is the line taken at Enter, waiting for Submit.
	pending *string
	notice  string
	prompt  *usernamePrompt

	bg sync.WaitGroup
}

func New(opts Options) *Controller {
	c := &Controller{
		interp:    opts.Interpreter,
		identity:  opts.Identity,
		presence:  opts.Presence,
		canvas:    opts.Canvas,
		guestbook: opts.Guestbook,
		visitors:  opts.Visitors,
		opener:    opts.Opener,
		siteURL:   opts.SiteURL,
		host:      opts.Hostname,
		logger:    logging.OrDiscard(opts.Logger),
		now:       opts.Now,
		rng:       opts.Rand,
		welcome:   true,
		histIdx:   -1,
	}
	if c.interp == nil {
		c.interp = command.New(nil, command.Options{})
	}
	if c.host == "" {
		c.host = defaultHost
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.overlay = canvas.NewOverlay(c.canvas)
	return c
}

// Start begins the heartbeat (when a username is known), canvas polling and
// the visitor bootstrap.
func (c *Controller) Start(ctx context.Context) {
	if name := c.identity.Username(); name != "" {
		c.presence.Start(name)
		c.registerVisitorAsync(ctx)
	}
	c.canvas.Start()
}

// Close stops all background traffic for the session.
func (c *Controller) Close() {
	c.presence.Stop()
	c.canvas.Stop()
	c.bg.Wait()
}

// HandleKey applies k to the session. Enter is not acted on here: the caller
// follows KeySubmit with Submit.
func (c *Controller) HandleKey(k Key) Outcome {
	switch k.Kind {
	case KeyCtrlC, KeyCtrlD:
		return KeyQuit
	case KeyFocusIn:
		c.presence.Resume()
		return KeyNone
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.prompt == nil && c.overlay.IsOpen() {
		c.overlayKey(k)
		return KeyNone
	}

	switch k.Kind {
	case KeyEsc:
		if c.prompt != nil {
			c.prompt = nil
			c.input = nil
			c.notice = "Username prompt cancelled."
		}
	case KeyCtrlL:
		if c.prompt == nil && !c.busy {
			c.entries = nil
			c.welcome = false
		}
	case KeyEnter:
		return c.takeLineLocked()
	case KeyTab:
		if c.prompt == nil && !c.busy {
			c.completeLocked()
		}
	case KeyBackspace, KeyDelete:
		if !c.busy && len(c.input) > 0 {
			c.input = c.input[:len(c.input)-1]
		}
	case KeyUp:
		if c.prompt == nil && !c.busy && c.histIdx+1 < len(c.history) {
			c.histIdx++
			c.input = []rune(c.history[c.histIdx])
		}
	case KeyDown:
		if c.prompt != nil || c.busy {
			break
		}
		switch {
		case c.histIdx > 0:
			c.histIdx--
			c.input = []rune(c.history[c.histIdx])
		case c.histIdx == 0:
			c.histIdx = -1
			c.input = nil
		}
	case KeyRune:
		if !c.busy && unicode.IsPrint(k.Rune) {
			c.input = append(c.input, k.Rune)
		}
	}
	return KeyNone
}

func (c *Controller) overlayKey(k Key) {
	username := c.identity.Username()
	switch k.Kind {
	case KeyEsc:
		c.overlay.Close()
	case KeyUp:
		c.overlay.Move(0, -1)
	case KeyDown:
		c.overlay.Move(0, 1)
	case KeyLeft:
		c.overlay.Move(-1, 0)
	case KeyRight:
		c.overlay.Move(1, 0)
	case KeyBackspace, KeyDelete:
		if !c.overlay.Erase(username) && username == "" {
			c.notice = "Set a username to draw: type 'name <username>' in the terminal."
		}
	case KeyRune:
		if !c.overlay.Type(k.Rune, username) && username == "" {
			c.notice = "Set a username to draw: type 'name <username>' in the terminal."
		}
	}
}

// takeLineLocked moves the input line into pending and marks the session
// busy, so keys arriving before Submit cannot change what was entered.
func (c *Controller) takeLineLocked() Outcome {
	if c.busy {
		return KeyNone
	}
	line := string(c.input)
	c.input = nil
	c.histIdx = -1
	c.notice = ""

	if c.prompt == nil {
		if strings.TrimSpace(line) == "" {
			return KeyNone
		}
		c.history = append([]string{line}, c.history...)
	}
	c.pending = &line
	c.busy = true
	return KeySubmit
}

// completeLocked extends a partial command name when exactly one command
// matches it.
func (c *Controller) completeLocked() {
	prefix := strings.ToLower(string(c.input))
	if prefix == "" || strings.ContainsAny(prefix, " \t") {
		return
	}
	match := ""
	for _, name := range c.interp.Commands() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if match != "" {
			return
		}
		match = name
	}
	if match != "" {
		c.input = []rune(match + " ")
	}
}

// Submit runs the line taken by the last Enter. It returns once the command,
// including any network round-trip, has finished.
func (c *Controller) Submit(ctx context.Context) {
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return
	}
	line := *c.pending
	c.pending = nil
	prompting := c.prompt != nil
	c.mu.Unlock()

	defer c.setBusy(false)
	defer c.recoverPanic("submit")

	if prompting {
		c.submitUsername(ctx, line)
		return
	}
	c.run(ctx, line)
}

func (c *Controller) setBusy(busy bool) {
	c.mu.Lock()
	c.busy = busy
	c.mu.Unlock()
}

// run executes line and applies its action. A panic anywhere along the way
// becomes an error entry for line.
func (c *Controller) run(ctx context.Context, line string) {
	name, _ := command.Parse(line)
	recorded := false
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("command panicked", "command", name, "panic", r)
			entry := Entry{Result: panicResult}
			if !recorded {
				entry.Command = line
			}
			c.mu.Lock()
			c.entries = append(c.entries, entry)
			c.mu.Unlock()
		}
	}()

	c.presence.Track(name)
	res := c.execute(ctx, name, line)

	if _, ok := res.Action.(command.Clear); !ok {
		c.mu.Lock()
		c.entries = append(c.entries, Entry{Command: line, Result: res})
		c.mu.Unlock()
		recorded = true
	}
	if res.Action != nil {
		c.apply(ctx, res.Action)
	}
}

// recoverPanic keeps a panic outside run from killing the session.
func (c *Controller) recoverPanic(where string) {
	if r := recover(); r != nil {
		c.logger.Error("session panicked", "in", where, "panic", r)
		c.mu.Lock()
		c.entries = append(c.entries, Entry{Result: panicResult})
		c.mu.Unlock()
	}
}

func (c *Controller) execute(ctx context.Context, name, line string) command.Result {
	if c.interp.IsAsync(name) {
		env := command.Env{
			Username: c.identity.Username(),
			Services: services{c: c},
			Now:      c.now(),
			Line:     line,
		}
		res, _ := c.interp.ExecuteAsync(ctx, line, env)
		return res
	}
	return c.interp.Execute(line)
}

func (c *Controller) apply(ctx context.Context, action command.Action) {
	switch a := action.(type) {
	case command.Clear:
		c.mu.Lock()
		c.entries = nil
		c.welcome = false
		c.mu.Unlock()

	case command.OpenURL:
		target := resolveURL(c.siteURL, a.URL)
		if c.opener == nil {
			c.setNotice("Open " + target + " in your browser.")
			return
		}
		if err := c.opener.Open(target); err != nil {
			c.logger.Warn("open url failed", "url", target, "err", err)
			c.setNotice("Could not open a browser. Visit " + target)
		}

	case command.ToggleCanvas:
		if c.overlay.Toggle() {
			if err := c.canvas.Refresh(ctx); err != nil {
				c.setNotice("Canvas may be out of date: could not reach the server.")
			}
		}

	case command.SetUsername:
		if err := c.identity.SetUsername(a.Username); err != nil {
			c.logger.Error("persist username failed", "err", err)
			c.appendError("Could not save username. Please try again.")
			return
		}
		c.presence.Start(c.identity.Username())
		c.registerVisitorAsync(ctx)

	case command.PromptUsername:
		c.mu.Lock()
		c.prompt = &usernamePrompt{retry: a.Retry}
		c.mu.Unlock()

	case command.ClearPixels:
		n, err := c.canvas.ClearOwner(ctx, a.Username)
		if err != nil {
			c.appendError("Failed to clear pixels. Please try again.")
			return
		}
		c.setNotice(fmt.Sprintf("Cleared %d of your pixels.", n))
	}
}

// submitUsername handles a line typed into the username prompt. An empty
// line picks a random name; an invalid one keeps the prompt open.
func (c *Controller) submitUsername(ctx context.Context, line string) {
	name := session.NormalizeUsername(line)
	if name == "" {
		name = session.GenerateUsername(c.rng)
	}
	if err := session.ValidateUsername(name); err != nil {
		c.setPromptError(err.Error() + ".")
		return
	}
	if err := c.identity.SetUsername(name); err != nil {
		c.logger.Error("persist username failed", "err", err)
		c.setPromptError("Could not save username. Please try again.")
		return
	}

	c.mu.Lock()
	retry := ""
	if c.prompt != nil {
		retry = c.prompt.retry
	}
	c.prompt = nil
	c.notice = "Username set to: " + name
	c.mu.Unlock()

	c.presence.Start(name)
	c.registerVisitorAsync(ctx)
	if strings.TrimSpace(retry) != "" {
		c.run(ctx, retry)
	}
}

func (c *Controller) setPromptError(msg string) {
	c.mu.Lock()
	if c.prompt != nil {
		c.prompt.err = msg
	}
	c.mu.Unlock()
}

func (c *Controller) setNotice(msg string) {
	c.mu.Lock()
	c.notice = msg
	c.mu.Unlock()
}

func (c *Controller) appendError(msg string) {
	c.mu.Lock()
	c.entries = append(c.entries, Entry{Result: command.Result{Output: msg, IsError: true}})
	c.mu.Unlock()
}

func (c *Controller) registerVisitorAsync(ctx context.Context) {
	if c.visitors == nil {
		return
	}
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), visitorTimeout)
		defer cancel()
		c.RegisterVisitor(ctx)
	}()
}

// RegisterVisitor records this session in the visitor registry, or refreshes
// the username on an existing record. Failures are logged only.
func (c *Controller) RegisterVisitor(ctx context.Context) {
	name := c.identity.Username()
	if c.visitors == nil || name == "" {
		return
	}
	sessionID := c.identity.SessionID()
	existing, ok, err := c.visitors.GetVisitor(ctx, sessionID)
	if err != nil {
		c.logger.Warn("visitor lookup failed", "session", sessionID, "err", err)
		return
	}
	if ok && existing.Username == name {
		return
	}
	v := model.Visitor{ID: uuid.NewString(), SessionID: sessionID, Username: name}
	if ok {
		v.ID = existing.ID
	}
	if _, err := c.visitors.UpsertVisitor(ctx, v); err != nil {
		c.logger.Warn("visitor register failed", "session", sessionID, "err", err)
	}
}
