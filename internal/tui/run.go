// Package tui drives a terminal.Controller from a raw-mode TTY.
package tui

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/term"
	"termfolio/internal/logging"
	"termfolio/internal/terminal"
)

// tickInterval redraws periodically so canvas refreshes and resizes show up
// without a keypress.
const tickInterval = 250 * time.Millisecond

var ErrNotTerminal = errors.New("stdin is not a terminal")

// Session is the controller surface the driver needs.
type Session interface {
	HandleKey(k terminal.Key) terminal.Outcome
	Submit(ctx context.Context)
	View() terminal.View
}

// Run puts in into raw mode and renders sess to out until the user quits or
// ctx ends. Pending submissions are waited for before returning.
func Run(ctx context.Context, sess Session, in *os.File, out io.Writer, logger *log.Logger) error {
	logger = logging.OrDiscard(logger)
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return ErrNotTerminal
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer func() {
		if err := term.Restore(fd, state); err != nil {
			logger.Warn("restore terminal failed", "err", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scr := newScreen(out)
	scr.EnterAltScreen()
	defer scr.ExitAltScreen()

	width, height := termSize(fd)
	logger.Info("tui session start", "width", width, "height", height)

	keys := make(chan terminal.Key, 16)
	go readKeys(in, keys)

	redraw := make(chan struct{}, 1)
	var submits sync.WaitGroup
	defer submits.Wait()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	render := func() {
		lines, row, col := layout(sess.View(), width, height)
		if err := scr.Render(lines, row, col); err != nil {
			logger.Warn("render failed", "err", err)
		}
	}
	render()

	for {
		select {
		case <-ctx.Done():
			return nil
		case k, ok := <-keys:
			if !ok {
				return nil
			}
			switch sess.HandleKey(k) {
			case terminal.KeyQuit:
				logger.Info("tui session end")
				return nil
			case terminal.KeySubmit:
				submits.Add(1)
				go func() {
					defer submits.Done()
					sess.Submit(ctx)
					select {
					case redraw <- struct{}{}:
					default:
					}
				}()
			}
		case <-redraw:
		case <-ticker.C:
			w, h := termSize(fd)
			if w != width || h != height {
				width, height = w, h
				logger.Debug("tui resize", "width", width, "height", height)
			}
		}
		render()
	}
}

func termSize(fd int) (int, int) {
	w, h, err := term.GetSize(fd)
	if err != nil || w <= 0 || h <= 0 {
		return 80, 24
	}
	return w, h
}
