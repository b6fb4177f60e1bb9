package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"termfolio/internal/auth"
	"termfolio/internal/model"
	"termfolio/internal/server"
	"termfolio/internal/store"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	keyCfg := auth.KeyConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}
	st := store.NewMemory()
	srv := httptest.NewServer(server.NewRouter(server.Deps{Store: st, KeyConfig: keyCfg}))
	t.Cleanup(func() {
		srv.Close()
		_ = st.Close()
	})

	key, err := auth.CreateAPIKey(auth.RoleAnon, keyCfg)
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	return New(Options{BaseURL: srv.URL + "/", APIKey: key})
}

func TestClient_NotConfigured(t *testing.T) {
	c := New(Options{})
	if _, err := c.ListPixels(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestClient_RejectedKey(t *testing.T) {
	c := newTestClient(t)
	c.apiKey = "nope"
	_, err := c.ListGuestbook(context.Background(), 10)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized || se.Message != "Invalid API key" {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}
}

func TestClient_Presence(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	start := time.Now().Add(-time.Second)
	if err := c.UpsertPresence(ctx, model.Presence{SessionID: "s1", Username: "ada", LastCommand: model.StringPtr("help")}); err != nil {
		t.Fatalf("UpsertPresence: %v", err)
	}
	records, err := c.ListOnline(ctx, time.Minute)
	if err != nil {
		t.Fatalf("ListOnline: %v", err)
	}
	if len(records) != 1 || records[0].Username != "ada" || records[0].LastSeen.Before(start) {
		t.Fatalf("unexpected records %+v", records)
	}

	if err := c.RemovePresence(ctx, "s1"); err != nil {
		t.Fatalf("RemovePresence: %v", err)
	}
	// already gone is not an error
	if err := c.RemovePresence(ctx, "s1"); err != nil {
		t.Fatalf("RemovePresence twice: %v", err)
	}
}

func TestClient_Guestbook(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	entry, err := c.AddGuestbookEntry(ctx, model.GuestbookEntry{ID: "e1", Username: "ada", Message: "hello"})
	if err != nil {
		t.Fatalf("AddGuestbookEntry: %v", err)
	}
	if entry.ID != "e1" || entry.CreatedAt.IsZero() {
		t.Fatalf("unexpected entry %+v", entry)
	}
	_, err = c.AddGuestbookEntry(ctx, model.GuestbookEntry{ID: "e1", Username: "ada", Message: "again"})
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}

	entries, err := c.ListGuestbook(ctx, 5)
	if err != nil {
		t.Fatalf("ListGuestbook: %v", err)
	}
	if len(entries) != 1 || entries[0].Message != "hello" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestClient_Pixels(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	if err := c.PutPixel(ctx, model.NewPixel(1, 2, "#", "ada", time.Time{})); err != nil {
		t.Fatalf("PutPixel: %v", err)
	}
	if err := c.PutPixel(ctx, model.NewPixel(2, 2, "%", "grace", time.Time{})); err != nil {
		t.Fatalf("PutPixel: %v", err)
	}
	if err := c.ClearPixels(ctx, "ada"); err != nil {
		t.Fatalf("ClearPixels: %v", err)
	}

	pixels, err := c.ListPixels(ctx)
	if err != nil {
		t.Fatalf("ListPixels: %v", err)
	}
	got := map[string]model.Pixel{}
	for _, px := range pixels {
		got[px.ID] = px
	}
	if got["1,2"].Char != " " || got["1,2"].Owner != nil {
		t.Fatalf("expected 1,2 cleared, got %+v", got["1,2"])
	}
	if got["2,2"].Char != "%" || got["2,2"].OwnerName() != "grace" {
		t.Fatalf("expected 2,2 untouched, got %+v", got["2,2"])
	}
}

func TestClient_Visitors(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	if _, ok, err := c.GetVisitor(ctx, "s1"); err != nil || ok {
		t.Fatalf("expected no visitor, got ok=%v err=%v", ok, err)
	}
	v, err := c.UpsertVisitor(ctx, model.Visitor{ID: "v1", SessionID: "s1", Username: "ada"})
	if err != nil {
		t.Fatalf("UpsertVisitor: %v", err)
	}
	if v.ID != "v1" {
		t.Fatalf("unexpected visitor %+v", v)
	}
	got, ok, err := c.GetVisitor(ctx, "s1")
	if err != nil || !ok || got.Username != "ada" {
		t.Fatalf("GetVisitor: %+v %v %v", got, ok, err)
	}
}
