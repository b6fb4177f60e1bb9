package canvas

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
	RefreshInterval = 5 * time.Second

	writeTimeout = 10 * time.Second
)

type Store interface {
	PutPixel(ctx context.Context, px model.Pixel) error
	ListPixels(ctx context.Context) ([]model.Pixel, error)
	ClearPixels(ctx context.Context, owner string) error
}

type Options struct {
	RefreshInterval time.Duration
	Now             func() time.Time
	Logger          *log.Logger
}

// Canvas keeps the local grid in step with the shared store: edits land in
// the grid immediately and are written in the background, and a periodic
// full refresh replaces the grid with the store's state.
type Canvas struct {
	grid     *Grid
	store    Store
	interval time.Duration
	now      func() time.Time
	logger   *log.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	loopDone chan struct{}

	writes sync.WaitGroup
}

func New(store Store, opts Options) *Canvas {
	c := &Canvas{
		grid:     NewGrid(),
		store:    store,
		interval: opts.RefreshInterval,
		now:      opts.Now,
		logger:   logging.OrDiscard(opts.Logger),
	}
	if c.interval <= 0 {
		c.interval = RefreshInterval
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

func (c *Canvas) Grid() *Grid { return c.grid }

func (c *Canvas) Export() string { return c.grid.Export() }

// ValidChar reports whether ch is a single printable one-column character.
func ValidChar(ch string) bool {
	return model.ValidPixelChar(ch)
}

// Put writes ch at (x, y) as username. The grid is updated before the remote
// write; a failed write is logged and left for the next refresh to heal.
func (c *Canvas) Put(x, y int, ch, username string) error {
	if !model.InCanvas(x, y) {
		return fmt.Errorf("pixel (%d,%d) outside canvas", x, y)
	}
	if !ValidChar(ch) {
		return fmt.Errorf("invalid pixel char %q", ch)
	}
	if username == "" {
		return fmt.Errorf("username required to draw")
	}

	px := model.NewPixel(x, y, ch, username, c.now())
	c.grid.Set(px)

	c.writes.Add(1)
	go func() {
		defer c.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := c.store.PutPixel(ctx, px); err != nil {
			c.logger.Warn("canvas write failed", "pixel", px.ID, "err", err)
		}
	}()
	return nil
}

// ClearOwner blanks username's pixels locally and asks the store to do the
// same.
func (c *Canvas) ClearOwner(ctx context.Context, username string) (int, error) {
	n := c.grid.ClearOwner(username)
	if err := c.store.ClearPixels(ctx, username); err != nil {
		c.logger.Warn("canvas clear failed", "user", username, "err", err)
		return n, fmt.Errorf("clear pixels: %w", err)
	}
	return n, nil
}

// Refresh replaces the grid with the store's current pixels.
func (c *Canvas) Refresh(ctx context.Context) error {
	pixels, err := c.store.ListPixels(ctx)
	if err != nil {
		c.logger.Warn("canvas refresh failed", "err", err)
		return fmt.Errorf("refresh canvas: %w", err)
	}
	c.grid.Replace(pixels)
	return nil
}

// Start refreshes once, then polls until Stop. Calling Start twice is a
// no-op.
func (c *Canvas) Start() {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel, c.loopDone = cancel, done
	c.mu.Unlock()

	go c.poll(ctx, done)
}

func (c *Canvas) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	_ = c.Refresh(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Refresh(ctx)
		}
	}
}

// Stop halts polling and waits for pending writes.
func (c *Canvas) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.loopDone
	c.cancel, c.loopDone = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	c.writes.Wait()
}
