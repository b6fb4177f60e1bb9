package canvas

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"termfolio/internal/model"
)

type fakeStore struct {
	mu      sync.Mutex
	puts    []model.Pixel
	cleared []string
	remote  []model.Pixel
	fail    bool
}

func (f *fakeStore) PutPixel(_ context.Context, px model.Pixel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("offline")
	}
	f.puts = append(f.puts, px)
	return nil
}

func (f *fakeStore) ListPixels(_ context.Context) ([]model.Pixel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("offline")
	}
	return append([]model.Pixel(nil), f.remote...), nil
}

func (f *fakeStore) ClearPixels(_ context.Context, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("offline")
	}
	f.cleared = append(f.cleared, owner)
	return nil
}

func (f *fakeStore) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

func TestOverlay_CursorClampsToGrid(t *testing.T) {
	o := NewOverlay(New(&fakeStore{}, Options{}))
	for i := 0; i < 200; i++ {
		o.Move(-1, 0)
	}
	if x, _ := o.Cursor(); x != 0 {
		t.Fatalf("expected x=0, got %d", x)
	}
	for i := 0; i < 200; i++ {
		o.Move(1, 0)
	}
	if x, _ := o.Cursor(); x != Width-1 {
		t.Fatalf("expected x=%d, got %d", Width-1, x)
	}
	for i := 0; i < 200; i++ {
		o.Move(0, -1)
	}
	if _, y := o.Cursor(); y != 0 {
		t.Fatalf("expected y=0, got %d", y)
	}
	for i := 0; i < 200; i++ {
		o.Move(0, 1)
	}
	if _, y := o.Cursor(); y != Height-1 {
		t.Fatalf("expected y=%d, got %d", Height-1, y)
	}
}

func TestOverlay_TypeThenExport(t *testing.T) {
	store := &fakeStore{}
	c := New(store, Options{})
	o := NewOverlay(c)

	o.Move(-Width, -Height)
	o.Move(5, 3)
	if !o.Type('#', "alice") {
		t.Fatalf("expected type to succeed")
	}
	if x, y := o.Cursor(); x != 6 || y != 3 {
		t.Fatalf("expected cursor to advance to (6,3), got (%d,%d)", x, y)
	}
	c.Stop()

	lines := strings.Split(c.Export(), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 exported rows, got %d", len(lines))
	}
	if got := string([]rune(lines[3])[5]); got != "#" {
		t.Fatalf("expected # at row 3 col 5, got %q", got)
	}
	if len(lines[0]) != Width {
		t.Fatalf("expected interior blank rows kept at full width, got %d", len(lines[0]))
	}
	if store.putCount() != 1 {
		t.Fatalf("expected one remote write, got %d", store.putCount())
	}
	if owner := c.Grid().Owner(5, 3); owner != "alice" {
		t.Fatalf("expected owner alice, got %q", owner)
	}
}

func TestOverlay_TypeAtRightEdgeStaysClamped(t *testing.T) {
	c := New(&fakeStore{}, Options{})
	o := NewOverlay(c)
	o.Move(Width, 0)
	o.Type('a', "alice")
	o.Type('b', "alice")
	c.Stop()
	if x, _ := o.Cursor(); x != Width-1 {
		t.Fatalf("expected cursor clamped at %d, got %d", Width-1, x)
	}
	_, y := o.Cursor()
	if got := c.Grid().Char(Width-1, y); got != "b" {
		t.Fatalf("expected last write to win, got %q", got)
	}
}

func TestOverlay_ReadOnlyWithoutUsername(t *testing.T) {
	store := &fakeStore{}
	c := New(store, Options{})
	o := NewOverlay(c)
	if o.Type('x', "") || o.Erase("") {
		t.Fatalf("expected edits refused without username")
	}
	c.Stop()
	if store.putCount() != 0 || c.Grid().Len() != 0 {
		t.Fatalf("expected no writes")
	}
	joined := strings.Join(o.Render(""), "\n")
	if !strings.Contains(joined, "Set a username to draw") {
		t.Fatalf("expected read-only notice in render")
	}
}

func TestExport_EraseTrimsTrailingRows(t *testing.T) {
	c := New(&fakeStore{}, Options{})
	if err := c.Put(0, 2, "a", "alice"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Put(10, 9, "z", "alice"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if got := len(strings.Split(c.Export(), "\n")); got != 10 {
		t.Fatalf("expected 10 rows, got %d", got)
	}

	if err := c.Put(10, 9, " ", "bob"); err != nil {
		t.Fatalf("Put erase: %v", err)
	}
	c.Stop()

	lines := strings.Split(c.Export(), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected rows up to the last non-blank row, got %d", len(lines))
	}
	if lines[0] != strings.Repeat(" ", Width) || lines[1] != strings.Repeat(" ", Width) {
		t.Fatalf("expected blank rows above content preserved")
	}
	if owner := c.Grid().Owner(10, 9); owner != "" {
		t.Fatalf("erase must clear owner, got %q", owner)
	}
}

func TestExport_EmptyCanvas(t *testing.T) {
	c := New(&fakeStore{}, Options{})
	if got := c.Export(); got != "" {
		t.Fatalf("expected empty export, got %q", got)
	}
}

func TestCanvas_FailedWriteKeepsOptimisticState(t *testing.T) {
	store := &fakeStore{fail: true}
	c := New(store, Options{})
	if err := c.Put(1, 1, "x", "alice"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	c.Stop()
	if got := c.Grid().Char(1, 1); got != "x" {
		t.Fatalf("expected optimistic write kept, got %q", got)
	}
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatalf("expected refresh error")
	}
	if got := c.Grid().Char(1, 1); got != "x" {
		t.Fatalf("failed refresh must not wipe the grid")
	}
}

func TestCanvas_RefreshReplacesWholesale(t *testing.T) {
	store := &fakeStore{remote: []model.Pixel{
		model.NewPixel(2, 2, "o", "bob", time.Now()),
		{ID: "99,99", Char: "x"},
		{ID: "junk", X: 3, Y: 4, Char: "k"},
	}}
	c := New(store, Options{})
	if err := c.Put(1, 1, "x", "alice"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	c.Stop()

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := c.Grid().Char(1, 1); got != " " {
		t.Fatalf("expected local-only pixel reverted by refresh, got %q", got)
	}
	if got := c.Grid().Char(2, 2); got != "o" {
		t.Fatalf("expected remote pixel, got %q", got)
	}
	if got := c.Grid().Char(3, 4); got != "k" {
		t.Fatalf("expected pixel placed by coordinates, got %q", got)
	}
	if c.Grid().Len() != 2 {
		t.Fatalf("expected out-of-range pixel dropped, got %d", c.Grid().Len())
	}
}

func TestCanvas_PollingStartsAndStops(t *testing.T) {
	store := &fakeStore{remote: []model.Pixel{model.NewPixel(0, 0, "@", "bob", time.Now())}}
	c := New(store, Options{RefreshInterval: 5 * time.Millisecond})
	c.Start()
	c.Start()

	deadline := time.Now().Add(2 * time.Second)
	for c.Grid().Char(0, 0) != "@" {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for refresh")
		}
		time.Sleep(time.Millisecond)
	}
	c.Stop()
	c.Stop()
}

func TestCanvas_ClearOwner(t *testing.T) {
	store := &fakeStore{}
	c := New(store, Options{})
	_ = c.Put(0, 0, "a", "alice")
	_ = c.Put(1, 0, "b", "bob")
	c.Stop()

	n, err := c.ClearOwner(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ClearOwner: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 cleared, got %d", n)
	}
	if c.Grid().Char(0, 0) != " " || c.Grid().Char(1, 0) != "b" {
		t.Fatalf("unexpected grid after clear: %q %q", c.Grid().Char(0, 0), c.Grid().Char(1, 0))
	}
	if len(store.cleared) != 1 || store.cleared[0] != "alice" {
		t.Fatalf("expected remote clear for alice, got %v", store.cleared)
	}
}

func TestCanvas_PutValidation(t *testing.T) {
	c := New(&fakeStore{}, Options{})
	if err := c.Put(Width, 0, "a", "alice"); err == nil {
		t.Fatalf("expected out of range error")
	}
	if err := c.Put(0, 0, "ab", "alice"); err == nil {
		t.Fatalf("expected multi-char error")
	}
	if err := c.Put(0, 0, "a", ""); err == nil {
		t.Fatalf("expected username error")
	}
}

func TestValidChar_OneColumnOnly(t *testing.T) {
	for _, ch := range []string{"a", "#", " ", "é", "█"} {
		if !ValidChar(ch) {
			t.Fatalf("expected %q accepted", ch)
		}
	}
	for _, ch := range []string{"", "ab", "漢", "😀", "Ａ", "\t", "\u0301"} {
		if ValidChar(ch) {
			t.Fatalf("expected %q rejected", ch)
		}
	}
}

func TestOverlay_TypeRejectsWideRune(t *testing.T) {
	store := &fakeStore{}
	o := NewOverlay(New(store, Options{}))
	if o.Type('漢', "alice") {
		t.Fatalf("expected wide rune refused")
	}
	if x, _ := o.Cursor(); x != 0 {
		t.Fatalf("expected cursor not to advance, got x=%d", x)
	}
	if len(store.puts) != 0 {
		t.Fatalf("expected no remote write, got %+v", store.puts)
	}
}
