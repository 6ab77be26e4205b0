package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/roomcast/server/internal/auth"
	"github.com/roomcast/server/internal/config"
	"github.com/roomcast/server/internal/core"
	"github.com/roomcast/server/internal/presence"
	"github.com/roomcast/server/internal/proto"
	"github.com/roomcast/server/internal/store/sqlite"
)

type testEnv struct {
	ts   *httptest.Server
	st   *sqlite.SQLiteStore
	auth *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "test.db")

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      time.Hour,
	})

	logger := zerolog.Nop()
	status := presence.NewStoreStatus(st)
	publisher := core.NewPresencePublisher(status, logger)
	hub := core.NewHub(st, publisher, core.Options{DefaultRoom: cfg.DefaultRoom}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := NewServer(hub, authService, st, status, &cfg, &logger)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, st: st, auth: authService}
}

// register creates a user over the API and returns their token and id.
func (e *testEnv) register(t *testing.T, username string) (string, int64) {
	t.Helper()

	resp := e.postJSON(t, "/api/register", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	defer resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("register %s: unexpected status %d", username, resp.StatusCode)
	}

	var body AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	claims, err := e.auth.ValidateToken(body.Token)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	return body.Token, claims.UserID
}

func (e *testEnv) postJSON(t *testing.T, path, token string, body any) *stdhttp.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req, err := stdhttp.NewRequest(stdhttp.MethodPost, e.ts.URL+path, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (e *testEnv) get(t *testing.T, path, token string) *stdhttp.Response {
	t.Helper()

	req, err := stdhttp.NewRequest(stdhttp.MethodGet, e.ts.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// dialWS opens a websocket connection authenticated with the token.
func (e *testEnv) dialWS(t *testing.T, ctx context.Context, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

type wsEnvelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func sendWS(t *testing.T, ctx context.Context, conn *websocket.Conn, eventType string, data any) {
	t.Helper()

	if err := wsjson.Write(ctx, conn, map[string]any{"type": eventType, "data": data}); err != nil {
		t.Fatalf("write %s: %v", eventType, err)
	}
}

// awaitWS reads envelopes until one of the given type arrives.
func awaitWS(t *testing.T, ctx context.Context, conn *websocket.Conn, eventType string) wsEnvelope {
	t.Helper()

	readCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for {
		var env wsEnvelope
		if err := wsjson.Read(readCtx, conn, &env); err != nil {
			t.Fatalf("waiting for %s: %v", eventType, err)
		}
		if env.Type == eventType {
			return env
		}
	}
}

func decodeWS(t *testing.T, env wsEnvelope, out any) {
	t.Helper()

	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode %s payload: %v", env.Type, err)
	}
}
