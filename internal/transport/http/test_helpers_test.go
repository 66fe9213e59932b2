package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/roomchat-server/internal/auth"
	"github.com/vovakirdan/roomchat-server/internal/broker"
	"github.com/vovakirdan/roomchat-server/internal/chat"
	"github.com/vovakirdan/roomchat-server/internal/config"
	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/store/migrations"
	"github.com/vovakirdan/roomchat-server/internal/store/sqlite"
)

const testSecret = "test-secret"

type testEnv struct {
	server *httptest.Server
	auth   *auth.Service
	chat   *chat.Service
	store  *sqlite.SQLiteStore
}

// newTestEnv wires the full stack over in-memory SQLite and the memory broker.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", func(db *sql.DB) error {
		return migrations.Up(db, migrations.DialectSQLite, nil)
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := zerolog.Nop()

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(testSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	})

	events := broker.NewMemory()
	t.Cleanup(func() { events.Close() })
	chatService := chat.NewService(st, events, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := core.NewHub(&logger)
	go hub.Run(ctx)

	sub, err := events.Subscribe(ctx)
	require.NoError(t, err)
	go hub.Relay(ctx, sub)

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.MaxMessageBytes = 1 << 20

	server, err := NewServer(hub, chatService, authService, &cfg, &logger)
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, auth: authService, chat: chatService, store: st}
}

func (e *testEnv) register(t *testing.T, username string) string {
	t.Helper()
	token, err := e.auth.Register(context.Background(), username, "password123")
	require.NoError(t, err)
	return token
}

// do sends a request and decodes the JSON response into out when out is non-nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			payload, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(payload)
		}
	}

	req, err := stdhttp.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// rpcResult decodes the result envelope into T.
type rpcResult[T any] struct {
	Result T        `json:"result"`
	Error  RPCError `json:"error"`
}
