package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/worldstatus/internal/domain/role"
	"github.com/MRamiBalles/worldstatus/internal/engine"
	"github.com/MRamiBalles/worldstatus/internal/events"
	"github.com/MRamiBalles/worldstatus/internal/platform/metrics"
	"github.com/MRamiBalles/worldstatus/internal/protocol"
)

type testServer struct {
	engine *engine.Engine
	hub    *Hub
	ai     *AILink
	events *events.EventLog
	server *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	m := metrics.New()
	hub := NewHub(nil, 64, nil, m)
	ts := &testServer{hub: hub, events: events.NewEventLog(nil, nil)}

	ai := NewAILink("", nil, nil, m)
	ts.engine = engine.NewEngine(engine.Options{Sink: hub, AI: ai, Events: ts.events, Metrics: m})
	ai.SetRequester(ts.engine)
	ts.ai = ai

	hub.SetRoom(NearbyPlayers(ts.engine, DefaultViewRange))
	hub.OnConnect(func(roleID uint32) {
		if set, ok := ts.engine.Statuses(roleID); ok {
			set.BroadcastAll()
		}
	})
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/ai", ai.ServeAI)
	NewAdminBridge(ts.engine, nil, hub, ai, nil).RegisterRoutes(mux)
	NewHistoryHandler(ts.events, nil, nil).RegisterRoutes(mux)
	ts.server = httptest.NewServer(mux)

	t.Cleanup(func() {
		ts.server.Close()
		cancel()
	})
	return ts
}

func (ts *testServer) register(t *testing.T, id uint32, kind role.Kind) *role.Role {
	t.Helper()
	r := role.NewRole(id, "role", kind, 1000)
	if _, err := ts.engine.RegisterRole(context.Background(), r); err != nil {
		t.Fatalf("register: %v", err)
	}
	return r
}

func (ts *testServer) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// waitFor reads envelopes until one of the given type satisfies match.
func waitFor[T any](t *testing.T, conn *websocket.Conn, msgType string, match func(T) bool) T {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", msgType, err)
		}
		var env protocol.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("bad envelope %s: %v", raw, err)
		}
		if env.Type != msgType {
			continue
		}
		var v T
		if err := json.Unmarshal(env.Data, &v); err != nil {
			t.Fatalf("bad %s payload: %v", msgType, err)
		}
		if match == nil || match(v) {
			return v
		}
	}
}

func writeRequest(t *testing.T, conn *websocket.Conn, req protocol.StatusRequest) {
	t.Helper()
	payload, err := protocol.Encode(req)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newHTTPServer(t *testing.T, h http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}
