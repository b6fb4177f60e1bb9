package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"termfolio/internal/model"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS presence (
	session_id   TEXT PRIMARY KEY,
	username     TEXT NOT NULL,
	last_command TEXT,
	last_seen    INTEGER NOT NULL,
	location     TEXT
);
CREATE INDEX IF NOT EXISTS presence_last_seen ON presence (last_seen);

CREATE TABLE IF NOT EXISTS guestbook (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	username   TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS canvas_pixels (
	id         TEXT PRIMARY KEY,
	x          INTEGER NOT NULL,
	y          INTEGER NOT NULL,
	char       TEXT NOT NULL,
	owner      TEXT,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS canvas_pixels_owner ON canvas_pixels (owner);

CREATE TABLE IF NOT EXISTS visitors (
	session_id TEXT PRIMARY KEY,
	id         TEXT NOT NULL,
	username   TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

// SQLite stores everything in a single database file. Timestamps are unix
// milliseconds.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		schema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return model.StringPtr(ns.String)
}

func (s *SQLite) UpsertPresence(ctx context.Context, p model.Presence) (model.Presence, error) {
	p, err := checkPresence(p)
	if err != nil {
		return model.Presence{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO presence (session_id, username, last_command, last_seen, location)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			username = excluded.username,
			last_command = excluded.last_command,
			last_seen = excluded.last_seen,
			location = excluded.location`,
		p.SessionID, p.Username, nullString(p.LastCommand), millis(p.LastSeen), nullString(p.Location))
	if err != nil {
		return model.Presence{}, fmt.Errorf("upsert presence: %w", err)
	}
	return p, nil
}

func (s *SQLite) ListPresence(ctx context.Context, since time.Time) ([]model.Presence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, username, last_command, last_seen, location
		FROM presence WHERE last_seen >= ? ORDER BY last_seen DESC`, millis(since))
	if err != nil {
		return nil, fmt.Errorf("list presence: %w", err)
	}
	defer rows.Close()

	result := []model.Presence{}
	for rows.Next() {
		var (
			p        model.Presence
			lastCmd  sql.NullString
			location sql.NullString
			lastSeen int64
		)
		if err := rows.Scan(&p.SessionID, &p.Username, &lastCmd, &lastSeen, &location); err != nil {
			return nil, fmt.Errorf("scan presence: %w", err)
		}
		p.LastCommand = stringPtr(lastCmd)
		p.Location = stringPtr(location)
		p.LastSeen = fromMillis(lastSeen)
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *SQLite) RemovePresence(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM presence WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("remove presence: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLite) AddGuestbookEntry(ctx context.Context, e model.GuestbookEntry) (model.GuestbookEntry, error) {
	e, err := checkGuestbookEntry(e)
	if err != nil {
		return model.GuestbookEntry{}, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO guestbook (id, username, message, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.Username, e.Message, millis(e.CreatedAt))
	if err != nil {
		return model.GuestbookEntry{}, fmt.Errorf("add guestbook entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.GuestbookEntry{}, ErrConflict
	}
	return e, nil
}

func (s *SQLite) ListGuestbook(ctx context.Context, limit int) ([]model.GuestbookEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, message, created_at
		FROM guestbook ORDER BY created_at DESC, seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list guestbook: %w", err)
	}
	defer rows.Close()

	result := []model.GuestbookEntry{}
	for rows.Next() {
		var (
			e       model.GuestbookEntry
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Username, &e.Message, &created); err != nil {
			return nil, fmt.Errorf("scan guestbook: %w", err)
		}
		e.CreatedAt = fromMillis(created)
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *SQLite) DeleteGuestbookEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM guestbook WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete guestbook entry: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLite) PutPixel(ctx context.Context, px model.Pixel) (model.Pixel, error) {
	px, err := checkPixel(px)
	if err != nil {
		return model.Pixel{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO canvas_pixels (id, x, y, char, owner, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			char = excluded.char,
			owner = excluded.owner,
			updated_at = excluded.updated_at`,
		px.ID, px.X, px.Y, px.Char, nullString(px.Owner), millis(px.UpdatedAt))
	if err != nil {
		return model.Pixel{}, fmt.Errorf("put pixel: %w", err)
	}
	return px, nil
}

func (s *SQLite) ListPixels(ctx context.Context) ([]model.Pixel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, x, y, char, owner, updated_at
		FROM canvas_pixels ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list pixels: %w", err)
	}
	defer rows.Close()

	result := []model.Pixel{}
	for rows.Next() {
		var (
			px      model.Pixel
			owner   sql.NullString
			updated int64
		)
		if err := rows.Scan(&px.ID, &px.X, &px.Y, &px.Char, &owner, &updated); err != nil {
			return nil, fmt.Errorf("scan pixel: %w", err)
		}
		px.Owner = stringPtr(owner)
		px.UpdatedAt = fromMillis(updated)
		result = append(result, px)
	}
	return result, rows.Err()
}

func (s *SQLite) ClearPixels(ctx context.Context, owner string, at time.Time) (int, error) {
	if owner == "" {
		return 0, invalid("owner is required")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE canvas_pixels SET char = ' ', owner = NULL, updated_at = ?
		WHERE owner = ?`, millis(at), owner)
	if err != nil {
		return 0, fmt.Errorf("clear pixels: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear pixels: %w", err)
	}
	return int(n), nil
}

func (s *SQLite) UpsertVisitor(ctx context.Context, v model.Visitor) (model.Visitor, error) {
	v, err := checkVisitor(v)
	if err != nil {
		return model.Visitor{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO visitors (session_id, id, username, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET username = excluded.username`,
		v.SessionID, v.ID, v.Username, millis(v.CreatedAt))
	if err != nil {
		return model.Visitor{}, fmt.Errorf("upsert visitor: %w", err)
	}
	return s.GetVisitor(ctx, v.SessionID)
}

func (s *SQLite) GetVisitor(ctx context.Context, sessionID string) (model.Visitor, error) {
	var (
		v       model.Visitor
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, id, username, created_at FROM visitors WHERE session_id = ?`, sessionID).
		Scan(&v.SessionID, &v.ID, &v.Username, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Visitor{}, ErrNotFound
	}
	if err != nil {
		return model.Visitor{}, fmt.Errorf("get visitor: %w", err)
	}
	v.CreatedAt = fromMillis(created)
	return v, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
