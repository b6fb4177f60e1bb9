// Package store is the authoritative backing store for presence, the
// guestbook, canvas pixels and visitors. Every mutation is an independent
// upsert keyed by an id the client controls, so the last write wins.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"termfolio/internal/model"
	"termfolio/internal/session"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
	ErrInvalid  = errors.New("invalid record")
)

const maxLastCommand = 64

type Store interface {
	UpsertPresence(ctx context.Context, p model.Presence) (model.Presence, error)
	// ListPresence returns records seen at or after since, newest first.
	ListPresence(ctx context.Context, since time.Time) ([]model.Presence, error)
	RemovePresence(ctx context.Context, sessionID string) error

	// AddGuestbookEntry is insert-only: a reused id is ErrConflict.
	AddGuestbookEntry(ctx context.Context, e model.GuestbookEntry) (model.GuestbookEntry, error)
	ListGuestbook(ctx context.Context, limit int) ([]model.GuestbookEntry, error)
	DeleteGuestbookEntry(ctx context.Context, id string) error

	PutPixel(ctx context.Context, px model.Pixel) (model.Pixel, error)
	ListPixels(ctx context.Context) ([]model.Pixel, error)
	// ClearPixels blanks every pixel owned by owner and reports how many.
	ClearPixels(ctx context.Context, owner string, at time.Time) (int, error)

	UpsertVisitor(ctx context.Context, v model.Visitor) (model.Visitor, error)
	GetVisitor(ctx context.Context, sessionID string) (model.Visitor, error)

	Close() error
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func validUsername(name string) error {
	if err := session.ValidateUsername(name); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, err.Error())
	}
	return nil
}

func checkPresence(p model.Presence) (model.Presence, error) {
	if strings.TrimSpace(p.SessionID) == "" {
		return p, invalid("sessionId is required")
	}
	if err := validUsername(p.Username); err != nil {
		return p, err
	}
	if p.LastCommand != nil && utf8.RuneCountInString(*p.LastCommand) > maxLastCommand {
		return p, invalid("lastCommand is too long")
	}
	return p, nil
}

func checkGuestbookEntry(e model.GuestbookEntry) (model.GuestbookEntry, error) {
	if strings.TrimSpace(e.ID) == "" {
		return e, invalid("id is required")
	}
	if err := validUsername(e.Username); err != nil {
		return e, err
	}
	e.Message = strings.TrimSpace(e.Message)
	if e.Message == "" {
		return e, invalid("message is required")
	}
	if utf8.RuneCountInString(e.Message) > model.MaxGuestbookMessage {
		return e, invalid("message must be %d characters or less", model.MaxGuestbookMessage)
	}
	return e, nil
}

// checkPixel normalises px so that a blank cell never carries an owner.
func checkPixel(px model.Pixel) (model.Pixel, error) {
	if !model.InCanvas(px.X, px.Y) {
		return px, invalid("pixel (%d,%d) is outside the canvas", px.X, px.Y)
	}
	char := px.Char
	if char == "" {
		char = " "
	}
	if !model.ValidPixelChar(char) {
		return px, invalid("char must be a single printable one-column character")
	}
	owner := px.OwnerName()
	if char != " " {
		if err := validUsername(owner); err != nil {
			return px, err
		}
	}
	return model.NewPixel(px.X, px.Y, char, owner, px.UpdatedAt), nil
}

func checkVisitor(v model.Visitor) (model.Visitor, error) {
	if strings.TrimSpace(v.SessionID) == "" {
		return v, invalid("sessionId is required")
	}
	if strings.TrimSpace(v.ID) == "" {
		return v, invalid("id is required")
	}
	if err := validUsername(v.Username); err != nil {
		return v, err
	}
	return v, nil
}
