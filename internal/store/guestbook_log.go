package store

import (
	"sort"
	"sync"

	"termfolio/internal/model"
)

// guestbookLog is an append-only list of entries. seq breaks createdAt ties
// so listing order is stable.
type guestbookLog struct {
	mu      sync.RWMutex
	entries []loggedEntry
	byID    map[string]int
	seq     int64
}

type loggedEntry struct {
	Seq   int64                `json:"seq"`
	Entry model.GuestbookEntry `json:"entry"`
}

func newGuestbookLog() *guestbookLog {
	return &guestbookLog{byID: make(map[string]int)}
}

func (g *guestbookLog) append(e model.GuestbookEntry) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.byID[e.ID]; exists {
		return false
	}
	g.seq++
	g.byID[e.ID] = len(g.entries)
	g.entries = append(g.entries, loggedEntry{Seq: g.seq, Entry: e})
	return true
}

func (g *guestbookLog) remove(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx, ok := g.byID[id]
	if !ok {
		return false
	}
	g.entries = append(g.entries[:idx], g.entries[idx+1:]...)
	g.reindexLocked()
	return true
}

func (g *guestbookLog) reindexLocked() {
	g.byID = make(map[string]int, len(g.entries))
	for i, le := range g.entries {
		g.byID[le.Entry.ID] = i
		if le.Seq > g.seq {
			g.seq = le.Seq
		}
	}
}

// newest returns up to limit entries, newest first.
func (g *guestbookLog) newest(limit int) []model.GuestbookEntry {
	g.mu.RLock()
	sorted := append([]loggedEntry(nil), g.entries...)
	g.mu.RUnlock()

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Entry.CreatedAt.Equal(b.Entry.CreatedAt) {
			return a.Entry.CreatedAt.After(b.Entry.CreatedAt)
		}
		return a.Seq > b.Seq
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	result := make([]model.GuestbookEntry, 0, len(sorted))
	for _, le := range sorted {
		result = append(result, le.Entry)
	}
	return result
}

func (g *guestbookLog) snapshot() []loggedEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]loggedEntry(nil), g.entries...)
}

func (g *guestbookLog) restore(entries []loggedEntry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries = append([]loggedEntry(nil), entries...)
	g.reindexLocked()
}
