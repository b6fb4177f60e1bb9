package terminal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"termfolio/internal/model"
)

const guestbookFetchLimit = 50

// Guestbook is the guestbook half of the data gateway.
type Guestbook interface {
	AddGuestbookEntry(ctx context.Context, e model.GuestbookEntry) (model.GuestbookEntry, error)
	ListGuestbook(ctx context.Context, limit int) ([]model.GuestbookEntry, error)
}

// Visitors is the visitor registry half of the data gateway.
type Visitors interface {
	UpsertVisitor(ctx context.Context, v model.Visitor) (model.Visitor, error)
	GetVisitor(ctx context.Context, sessionID string) (model.Visitor, bool, error)
}

// services binds the controller's collaborators to command.Services.
type services struct {
	c *Controller
}

func (s services) OnlineUsers(ctx context.Context) ([]model.Presence, error) {
	return s.c.presence.Online(ctx)
}

func (s services) GuestbookEntries(ctx context.Context) ([]model.GuestbookEntry, error) {
	if s.c.guestbook == nil {
		return nil, fmt.Errorf("guestbook: %w", errUnavailable)
	}
	entries, err := s.c.guestbook.ListGuestbook(ctx, guestbookFetchLimit)
	if err != nil {
		s.c.logger.Warn("guestbook fetch failed", "err", err)
		return nil, err
	}
	return entries, nil
}

func (s services) AddGuestbookEntry(ctx context.Context, message string) error {
	if s.c.guestbook == nil {
		return fmt.Errorf("guestbook: %w", errUnavailable)
	}
	entry := model.GuestbookEntry{
		ID:       uuid.NewString(),
		Username: s.c.identity.Username(),
		Message:  message,
	}
	if _, err := s.c.guestbook.AddGuestbookEntry(ctx, entry); err != nil {
		s.c.logger.Warn("guestbook add failed", "user", entry.Username, "err", err)
		return err
	}
	return nil
}

func (s services) CanvasASCII() string {
	return s.c.canvas.Export()
}
