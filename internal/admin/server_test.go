package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/frontline-chat/frontline/internal/engine"
	"github.com/frontline-chat/frontline/internal/protocol/wire"
	"github.com/frontline-chat/frontline/internal/testutil/testlog"
)

func newTestServer(t *testing.T) (*Server, *engine.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	eng, err := engine.New(engine.Config{
		Role:          engine.RoleChat,
		ListenAddr:    "127.0.0.1:0",
		Mode:          wire.ProtoTCP,
		AdvertiseAddr: "127.0.0.1",
		AdvertisePort: 9000,
		BackendAddr:   "127.0.0.1:11000",
		MaxSessions:   4,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return New(eng, "127.0.0.1:0", nil), eng
}

func get(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.Router().ServeHTTP(w, req)
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal %s: %v", path, err)
	}
	return w, body
}

func TestHealthEndpoint(t *testing.T) {
	testlog.Start(t)

	srv, eng := newTestServer(t)
	w, body := get(t, srv, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if body["status"] != "ok" || body["instance"] != eng.Instance() {
		t.Fatalf("body=%v", body)
	}
}

func TestReadyReflectsBackendState(t *testing.T) {
	testlog.Start(t)

	srv, _ := newTestServer(t)
	w, body := get(t, srv, "/ready")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d without a backend, want 503", w.Code)
	}
	if body["ready"] != false {
		t.Fatalf("body=%v", body)
	}
}

func TestSessionsEndpointReportsCounts(t *testing.T) {
	testlog.Start(t)

	srv, eng := newTestServer(t)
	w, body := get(t, srv, "/sessions")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if int(body["count"].(float64)) != 0 {
		t.Fatalf("count=%v, want 0", body["count"])
	}
	if int(body["capacity"].(float64)) != eng.Registry().Cap() {
		t.Fatalf("capacity=%v", body["capacity"])
	}
}

func TestRoomsEndpointReportsRooms(t *testing.T) {
	testlog.Start(t)

	srv, eng := newTestServer(t)
	eng.Rooms().Create(3)
	w, body := get(t, srv, "/rooms")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if int(body["count"].(float64)) != 1 {
		t.Fatalf("count=%v, want 1", body["count"])
	}
}

func TestCookiesEndpointHidesValues(t *testing.T) {
	testlog.Start(t)

	srv, eng := newTestServer(t)
	if err := eng.Jar().Issue("alice", 99); err != nil {
		t.Fatalf("issue: %v", err)
	}
	w, body := get(t, srv, "/cookies")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if int(body["count"].(float64)) != 1 {
		t.Fatalf("count=%v, want 1", body["count"])
	}
	entries, ok := body["cookies"].([]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("cookies=%v", body["cookies"])
	}
	entry := entries[0].(map[string]any)
	if entry["id"] != "alice" {
		t.Fatalf("entry=%v", entry)
	}
	if _, leaked := entry["cookie"]; leaked {
		t.Fatalf("cookie value leaked: %v", entry)
	}
}
