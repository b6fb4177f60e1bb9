package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"termfolio/internal/auth"
	"termfolio/internal/store"
)

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type testRouter struct {
	t       *testing.T
	r       *gin.Engine
	anon    string
	service string
}

func newTestRouter(t *testing.T, rateLimit int) *testRouter {
	t.Helper()
	gin.SetMode(gin.TestMode)
	keyCfg := auth.KeyConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}
	st := store.NewMemory()
	t.Cleanup(func() { _ = st.Close() })

	anon, err := auth.CreateAPIKey(auth.RoleAnon, keyCfg)
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	service, err := auth.CreateAPIKey(auth.RoleService, keyCfg)
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	return &testRouter{
		t:       t,
		r:       NewRouter(Deps{Store: st, KeyConfig: keyCfg, GuestbookRateLimit: rateLimit, Now: func() time.Time { return testNow }}),
		anon:    anon,
		service: service,
	}
}

func (tr *testRouter) do(method, path, key string, body any) *httptest.ResponseRecorder {
	tr.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("apikey", key)
	}
	tr.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestHealthAndVersionArePublic(t *testing.T) {
	tr := newTestRouter(t, 0)
	if w := tr.do(http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	w := tr.do(http.MethodGet, "/v1/version", "", nil)
	if w.Code != http.StatusOK || decode(t, w)["version"] != "dev" {
		t.Fatalf("unexpected version response %d %s", w.Code, w.Body.String())
	}
}

func TestRESTRequiresAPIKey(t *testing.T) {
	tr := newTestRouter(t, 0)
	if w := tr.do(http.MethodGet, "/rest/v1/presence", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := tr.do(http.MethodGet, "/rest/v1/presence", "garbage", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rest/v1/presence", nil)
	req.Header.Set("Authorization", "Bearer "+tr.anon)
	tr.r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected bearer key accepted, got %d", w.Code)
	}
}

func TestPresenceWindowUsesServerClock(t *testing.T) {
	tr := newTestRouter(t, 0)
	clock := testNow
	tr.r = NewRouter(Deps{Store: store.NewMemory(), KeyConfig: auth.KeyConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}, Now: func() time.Time { return clock }})

	if w := tr.do(http.MethodPost, "/rest/v1/presence", tr.anon, map[string]any{"sessionId": "s1", "username": "ada"}); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	online := func() int {
		t.Helper()
		w := tr.do(http.MethodGet, "/rest/v1/presence?window=60s", tr.anon, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		list, _ := decode(t, w)["presence"].([]any)
		return len(list)
	}

	clock = testNow.Add(59 * time.Second)
	if n := online(); n != 1 {
		t.Fatalf("expected online at 59s, got %d", n)
	}
	clock = testNow.Add(60 * time.Second)
	if n := online(); n != 0 {
		t.Fatalf("expected offline at exactly 60s, got %d", n)
	}
}

func TestPresenceEndpoints(t *testing.T) {
	tr := newTestRouter(t, 0)

	w := tr.do(http.MethodPost, "/rest/v1/presence", tr.anon, map[string]any{
		"sessionId":   "s1",
		"username":    "ada",
		"lastCommand": "who",
		// ignored: the server owns the clock
		"lastSeen": "2001-01-01T00:00:00Z",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = tr.do(http.MethodGet, "/rest/v1/presence?since="+itoa(testNow.Add(-time.Minute).UnixMilli()), tr.anon, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	list, _ := decode(t, w)["presence"].([]any)
	if len(list) != 1 {
		t.Fatalf("expected 1 presence record, got %v", list)
	}
	rec := list[0].(map[string]any)
	if rec["lastSeen"] != "2026-05-04T10:00:00Z" || rec["lastCommand"] != "who" {
		t.Fatalf("unexpected presence record %v", rec)
	}

	w = tr.do(http.MethodGet, "/rest/v1/presence?since="+itoa(testNow.Add(time.Second).UnixMilli()), tr.anon, nil)
	if list, _ := decode(t, w)["presence"].([]any); len(list) != 0 {
		t.Fatalf("expected empty list, got %v", list)
	}

	if w := tr.do(http.MethodGet, "/rest/v1/presence?since=abc", tr.anon, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	for _, bad := range []string{"abc", "-5s", "0"} {
		if w := tr.do(http.MethodGet, "/rest/v1/presence?window="+bad, tr.anon, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for window=%s, got %d", bad, w.Code)
		}
	}
	if w := tr.do(http.MethodPost, "/rest/v1/presence", tr.anon, map[string]any{"sessionId": "s2", "username": "x"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short username, got %d", w.Code)
	}

	if w := tr.do(http.MethodDelete, "/rest/v1/presence/s1", tr.anon, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := tr.do(http.MethodDelete, "/rest/v1/presence/s1", tr.anon, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGuestbookEndpoints(t *testing.T) {
	tr := newTestRouter(t, 0)

	w := tr.do(http.MethodPost, "/rest/v1/guestbook", tr.anon, map[string]any{"id": "e1", "username": "ada", "message": "  hello  "})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	entry := decode(t, w)["entry"].(map[string]any)
	if entry["message"] != "hello" || entry["createdAt"] != "2026-05-04T10:00:00Z" {
		t.Fatalf("unexpected entry %v", entry)
	}

	if w := tr.do(http.MethodPost, "/rest/v1/guestbook", tr.anon, map[string]any{"id": "e1", "username": "ada", "message": "again"}); w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	w = tr.do(http.MethodPost, "/rest/v1/guestbook", tr.anon, map[string]any{"username": "ada", "message": strings.Repeat("x", 201)})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if msg := decode(t, w)["error"]; msg != "message must be 200 characters or less" {
		t.Fatalf("unexpected error %v", msg)
	}

	w = tr.do(http.MethodPost, "/rest/v1/guestbook", tr.anon, map[string]any{"username": "grace", "message": "no id"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if id, _ := decode(t, w)["entry"].(map[string]any)["id"].(string); id == "" {
		t.Fatalf("expected generated id")
	}

	w = tr.do(http.MethodGet, "/rest/v1/guestbook?limit=1", tr.anon, nil)
	if entries, _ := decode(t, w)["entries"].([]any); len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %v", entries)
	}
	if w := tr.do(http.MethodGet, "/rest/v1/guestbook?limit=0", tr.anon, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	if w := tr.do(http.MethodDelete, "/rest/v1/guestbook/e1", tr.anon, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for anon key, got %d", w.Code)
	}
	if w := tr.do(http.MethodDelete, "/rest/v1/guestbook/e1", tr.service, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for service key, got %d", w.Code)
	}
	if w := tr.do(http.MethodDelete, "/rest/v1/guestbook/e1", tr.service, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGuestbookRateLimit(t *testing.T) {
	tr := newTestRouter(t, 2)
	for i := 0; i < 2; i++ {
		w := tr.do(http.MethodPost, "/rest/v1/guestbook", tr.anon, map[string]any{"username": "ada", "message": "hi"})
		if w.Code != http.StatusCreated {
			t.Fatalf("post %d: expected 201, got %d", i, w.Code)
		}
	}
	w := tr.do(http.MethodPost, "/rest/v1/guestbook", tr.anon, map[string]any{"username": "ada", "message": "hi"})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	// reads are not limited
	if w := tr.do(http.MethodGet, "/rest/v1/guestbook", tr.anon, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCanvasEndpoints(t *testing.T) {
	tr := newTestRouter(t, 0)

	w := tr.do(http.MethodPost, "/rest/v1/canvas_pixels", tr.anon, map[string]any{"x": 3, "y": 4, "char": "#", "owner": "ada"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if px := decode(t, w)["pixel"].(map[string]any); px["id"] != "3,4" {
		t.Fatalf("unexpected pixel %v", px)
	}
	tr.do(http.MethodPost, "/rest/v1/canvas_pixels", tr.anon, map[string]any{"x": 5, "y": 4, "char": "@", "owner": "ada"})
	tr.do(http.MethodPost, "/rest/v1/canvas_pixels", tr.anon, map[string]any{"x": 6, "y": 4, "char": "*", "owner": "grace"})

	for _, body := range []map[string]any{
		{"x": 64, "y": 0, "char": "#", "owner": "ada"},
		{"y": 0, "char": "#", "owner": "ada"},
		{"x": 0, "y": 0, "char": "##", "owner": "ada"},
		{"x": 0, "y": 0, "char": "漢", "owner": "ada"},
	} {
		if w := tr.do(http.MethodPost, "/rest/v1/canvas_pixels", tr.anon, body); w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %v, got %d", body, w.Code)
		}
	}

	w = tr.do(http.MethodPatch, "/rest/v1/canvas_pixels?owner=ada", tr.anon, map[string]any{"char": " "})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if n := decode(t, w)["cleared"]; n != float64(2) {
		t.Fatalf("expected 2 cleared, got %v", n)
	}
	if w := tr.do(http.MethodPatch, "/rest/v1/canvas_pixels", tr.anon, map[string]any{"char": " "}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without owner, got %d", w.Code)
	}
	if w := tr.do(http.MethodPatch, "/rest/v1/canvas_pixels?owner=ada", tr.anon, map[string]any{"char": "x"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-blank char, got %d", w.Code)
	}

	w = tr.do(http.MethodGet, "/rest/v1/canvas_pixels", tr.anon, nil)
	pixels, _ := decode(t, w)["pixels"].([]any)
	owned := 0
	for _, raw := range pixels {
		if raw.(map[string]any)["owner"] != nil {
			owned++
		}
	}
	if len(pixels) != 3 || owned != 1 {
		t.Fatalf("expected 3 pixels with 1 owned, got %v", pixels)
	}
}

func TestVisitorEndpoints(t *testing.T) {
	tr := newTestRouter(t, 0)

	if w := tr.do(http.MethodGet, "/rest/v1/visitors/s1", tr.anon, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	w := tr.do(http.MethodPost, "/rest/v1/visitors", tr.anon, map[string]any{"sessionId": "s1", "username": "ada"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	first := decode(t, w)["visitor"].(map[string]any)
	if first["id"] == "" {
		t.Fatalf("expected generated id")
	}

	w = tr.do(http.MethodPost, "/rest/v1/visitors", tr.anon, map[string]any{"sessionId": "s1", "username": "grace"})
	second := decode(t, w)["visitor"].(map[string]any)
	if second["id"] != first["id"] || second["username"] != "grace" {
		t.Fatalf("expected same visitor renamed, got %v", second)
	}

	w = tr.do(http.MethodGet, "/rest/v1/visitors/s1", tr.anon, nil)
	if got := decode(t, w)["visitor"].(map[string]any); got["username"] != "grace" {
		t.Fatalf("unexpected visitor %v", got)
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
