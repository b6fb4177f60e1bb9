package presence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"termfolio/internal/logging"
	"termfolio/internal/model"
)

const (
	HeartbeatInterval = 30 * time.Second
	Timeout           = 60 * time.Second

	publishTimeout = 10 * time.Second
)

type Store interface {
	UpsertPresence(ctx context.Context, p model.Presence) error
	RemovePresence(ctx context.Context, sessionID string) error
	ListOnline(ctx context.Context, window time.Duration) ([]model.Presence, error)
}

type Options struct {
	Interval time.Duration
	Timeout  time.Duration
	Now      func() time.Time
	Logger   *log.Logger
}

// Tracker publishes this session's presence record on a fixed cadence. All
// state is per instance so several trackers can coexist.
type Tracker struct {
	store     Store
	sessionID string
	interval  time.Duration
	timeout   time.Duration
	now       func() time.Time
	logger    *log.Logger

	mu          sync.Mutex
	username    string
	lastCommand *string
	cancel      context.CancelFunc
	loopDone    chan struct{}

	inflight sync.WaitGroup
}

func NewTracker(store Store, sessionID string, opts Options) *Tracker {
	t := &Tracker{
		store:     store,
		sessionID: sessionID,
		interval:  opts.Interval,
		timeout:   opts.Timeout,
		now:       opts.Now,
		logger:    logging.OrDiscard(opts.Logger),
	}
	if t.interval <= 0 {
		t.interval = HeartbeatInterval
	}
	if t.timeout <= 0 {
		t.timeout = Timeout
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t
}

// Start begins heartbeating as username, replacing any running loop. An
// empty username stops the tracker.
func (t *Tracker) Start(username string) {
	if username == "" || t.sessionID == "" {
		t.Stop()
		return
	}

	t.haltLoop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	t.mu.Lock()
	t.username = username
	t.cancel = cancel
	t.loopDone = done
	t.mu.Unlock()

	t.publishAsync()
	go t.loop(ctx, done)
}

func (t *Tracker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Heartbeat(ctx)
		}
	}
}

func (t *Tracker) haltLoop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.loopDone
	t.cancel, t.loopDone = nil, nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Stop halts the heartbeat, waits for in-flight publishes and removes the
// record. Removal is best effort; staleness is what marks a session offline.
func (t *Tracker) Stop() {
	t.haltLoop()
	t.inflight.Wait()

	t.mu.Lock()
	wasActive := t.username != ""
	t.username = ""
	t.mu.Unlock()

	if !wasActive {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := t.store.RemovePresence(ctx, t.sessionID); err != nil {
		t.logger.Warn("presence removal failed", "session", t.sessionID, "err", err)
	}
}

// Heartbeat publishes the current record once. Failures are logged only.
func (t *Tracker) Heartbeat(ctx context.Context) {
	t.mu.Lock()
	username := t.username
	var last *string
	if t.lastCommand != nil {
		last = model.StringPtr(*t.lastCommand)
	}
	t.mu.Unlock()

	if username == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	rec := model.Presence{
		SessionID:   t.sessionID,
		Username:    username,
		LastCommand: last,
		LastSeen:    t.now(),
	}
	if err := t.store.UpsertPresence(ctx, rec); err != nil {
		t.logger.Warn("presence heartbeat failed", "session", t.sessionID, "err", err)
		return
	}
	t.logger.Debug("presence heartbeat", "session", t.sessionID, "user", username)
}

// Track records the last command and republishes in the background.
func (t *Tracker) Track(command string) {
	t.mu.Lock()
	t.lastCommand = model.StringPtr(command)
	active := t.username != ""
	t.mu.Unlock()

	if active {
		t.publishAsync()
	}
}

// Resume publishes immediately, used when the terminal regains focus so
// liveness does not lag a full interval.
func (t *Tracker) Resume() {
	t.mu.Lock()
	active := t.username != ""
	t.mu.Unlock()

	if active {
		t.publishAsync()
	}
}

func (t *Tracker) publishAsync() {
	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()
		t.Heartbeat(context.Background())
	}()
}

func (t *Tracker) Username() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.username
}

func (t *Tracker) LastCommand() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastCommand == nil {
		return ""
	}
	return *t.lastCommand
}

// Online returns sessions the server saw within the timeout window. The
// window is applied server side so the local clock does not matter.
func (t *Tracker) Online(ctx context.Context) ([]model.Presence, error) {
	records, err := t.store.ListOnline(ctx, t.timeout)
	if err != nil {
		t.logger.Warn("presence fetch failed", "err", err)
		return nil, fmt.Errorf("fetch presence: %w", err)
	}
	return records, nil
}

// FilterOnline keeps records with now-lastSeen strictly below timeout.
func FilterOnline(records []model.Presence, now time.Time, timeout time.Duration) []model.Presence {
	out := make([]model.Presence, 0, len(records))
	for _, p := range records {
		if now.Sub(p.LastSeen) < timeout {
			out = append(out, p)
		}
	}
	return out
}

// IdleTime formats how long ago lastSeen was: "active" under ten seconds,
// then seconds, minutes or hours.
func IdleTime(lastSeen, now time.Time) string {
	secs := int(now.Sub(lastSeen) / time.Second)
	switch {
	case secs < 10:
		return "active"
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm", secs/60)
	default:
		return fmt.Sprintf("%dh", secs/3600)
	}
}
