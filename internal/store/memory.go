package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"termfolio/internal/logging"
	"termfolio/internal/model"
)

// Memory keeps everything in maps. With a StateFile, the guestbook, pixels
// and visitors survive restarts; presence is never persisted because it is
// only meaningful for a minute.
type Memory struct {
	mu sync.RWMutex

	stateFile string
	persistMu sync.Mutex
	logger    *log.Logger

	presenceBySession map[string]model.Presence
	pixelsByID        map[string]model.Pixel
	visitorsBySession map[string]model.Visitor

	guestbook *guestbookLog
}

type MemoryOptions struct {
	StateFile string
	Logger    *log.Logger
}

func NewMemory() *Memory {
	return NewMemoryWithOptions(MemoryOptions{})
}

func NewMemoryWithOptions(opts MemoryOptions) *Memory {
	s := &Memory{
		stateFile:         opts.StateFile,
		logger:            logging.OrDiscard(opts.Logger),
		presenceBySession: make(map[string]model.Presence),
		pixelsByID:        make(map[string]model.Pixel),
		visitorsBySession: make(map[string]model.Visitor),
		guestbook:         newGuestbookLog(),
	}

	if s.stateFile != "" {
		if err := s.loadFromFile(s.stateFile); err != nil {
			s.logger.Error("store persistence: load failed", "file", s.stateFile, "err", err)
		}
	}
	return s
}

type persistedStateFile struct {
	Version   int             `json:"version"`
	Guestbook []loggedEntry   `json:"guestbook"`
	Pixels    []model.Pixel   `json:"pixels"`
	Visitors  []model.Visitor `json:"visitors"`
	SavedAt   int64           `json:"savedAt"`
}

func (s *Memory) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var file persistedStateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}
	if file.Version != 1 {
		return errors.New("unsupported store state version")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, px := range file.Pixels {
		if !model.InCanvas(px.X, px.Y) {
			continue
		}
		s.pixelsByID[px.ID] = px
	}
	for _, v := range file.Visitors {
		if v.SessionID == "" {
			continue
		}
		s.visitorsBySession[v.SessionID] = v
	}
	s.guestbook.restore(file.Guestbook)
	return nil
}

func (s *Memory) snapshotLocked() persistedStateFile {
	file := persistedStateFile{Version: 1}
	for _, px := range s.pixelsByID {
		file.Pixels = append(file.Pixels, px)
	}
	sort.Slice(file.Pixels, func(i, j int) bool { return file.Pixels[i].ID < file.Pixels[j].ID })
	for _, v := range s.visitorsBySession {
		file.Visitors = append(file.Visitors, v)
	}
	sort.Slice(file.Visitors, func(i, j int) bool { return file.Visitors[i].SessionID < file.Visitors[j].SessionID })
	file.Guestbook = s.guestbook.snapshot()
	return file
}

// persist writes the current state atomically (temp file, fsync, rename).
// Failures are logged; the in-memory state stays authoritative.
func (s *Memory) persist() {
	path := s.stateFile
	if path == "" {
		return
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	file := s.snapshotLocked()
	s.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		s.logger.Error("store persistence: mkdir failed", "dir", dir, "err", err)
		return
	}

	file.SavedAt = time.Now().UnixMilli()
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		s.logger.Error("store persistence: marshal failed", "err", err)
		return
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		s.logger.Error("store persistence: create temp failed", "err", err)
		return
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		s.logger.Error("store persistence: chmod temp failed", "err", err)
		return
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		s.logger.Error("store persistence: write temp failed", "err", err)
		return
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		s.logger.Error("store persistence: sync temp failed", "err", err)
		return
	}
	if err := tmp.Close(); err != nil {
		s.logger.Error("store persistence: close temp failed", "err", err)
		return
	}
	if err := os.Rename(tmpName, path); err != nil {
		s.logger.Error("store persistence: rename failed", "err", err)
	}
}

func (s *Memory) UpsertPresence(_ context.Context, p model.Presence) (model.Presence, error) {
	p, err := checkPresence(p)
	if err != nil {
		return model.Presence{}, err
	}
	s.mu.Lock()
	s.presenceBySession[p.SessionID] = p
	s.mu.Unlock()
	return p, nil
}

func (s *Memory) ListPresence(_ context.Context, since time.Time) ([]model.Presence, error) {
	s.mu.RLock()
	result := make([]model.Presence, 0, len(s.presenceBySession))
	for _, p := range s.presenceBySession {
		if !p.LastSeen.Before(since) {
			result = append(result, p)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].LastSeen.After(result[j].LastSeen) })
	return result, nil
}

func (s *Memory) RemovePresence(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.presenceBySession[sessionID]; !ok {
		return ErrNotFound
	}
	delete(s.presenceBySession, sessionID)
	return nil
}

func (s *Memory) AddGuestbookEntry(_ context.Context, e model.GuestbookEntry) (model.GuestbookEntry, error) {
	e, err := checkGuestbookEntry(e)
	if err != nil {
		return model.GuestbookEntry{}, err
	}
	if !s.guestbook.append(e) {
		return model.GuestbookEntry{}, ErrConflict
	}
	s.persist()
	return e, nil
}

func (s *Memory) ListGuestbook(_ context.Context, limit int) ([]model.GuestbookEntry, error) {
	return s.guestbook.newest(limit), nil
}

func (s *Memory) DeleteGuestbookEntry(_ context.Context, id string) error {
	if !s.guestbook.remove(id) {
		return ErrNotFound
	}
	s.persist()
	return nil
}

func (s *Memory) PutPixel(_ context.Context, px model.Pixel) (model.Pixel, error) {
	px, err := checkPixel(px)
	if err != nil {
		return model.Pixel{}, err
	}
	s.mu.Lock()
	s.pixelsByID[px.ID] = px
	s.mu.Unlock()
	s.persist()
	return px, nil
}

func (s *Memory) ListPixels(_ context.Context) ([]model.Pixel, error) {
	s.mu.RLock()
	result := make([]model.Pixel, 0, len(s.pixelsByID))
	for _, px := range s.pixelsByID {
		result = append(result, px)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *Memory) ClearPixels(_ context.Context, owner string, at time.Time) (int, error) {
	if owner == "" {
		return 0, invalid("owner is required")
	}
	s.mu.Lock()
	n := 0
	for id, px := range s.pixelsByID {
		if px.OwnerName() != owner {
			continue
		}
		s.pixelsByID[id] = model.NewPixel(px.X, px.Y, " ", "", at)
		n++
	}
	s.mu.Unlock()
	if n > 0 {
		s.persist()
	}
	return n, nil
}

func (s *Memory) UpsertVisitor(_ context.Context, v model.Visitor) (model.Visitor, error) {
	v, err := checkVisitor(v)
	if err != nil {
		return model.Visitor{}, err
	}
	s.mu.Lock()
	if existing, ok := s.visitorsBySession[v.SessionID]; ok {
		v.ID = existing.ID
		v.CreatedAt = existing.CreatedAt
	}
	s.visitorsBySession[v.SessionID] = v
	s.mu.Unlock()
	s.persist()
	return v, nil
}

func (s *Memory) GetVisitor(_ context.Context, sessionID string) (model.Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.visitorsBySession[sessionID]
	if !ok {
		return model.Visitor{}, ErrNotFound
	}
	return v, nil
}

func (s *Memory) Close() error {
	s.persist()
	return nil
}
