package bridge

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbanim/bannerd/internal/config"
)

func wsURL(server *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + path
}

func dial(t *testing.T, server *httptest.Server, origin string) *websocket.Conn {
	t.Helper()
	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/"), headers)
	require.NoError(t, err)
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg string) string {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
	_, reply, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(reply)
}

func TestHandler_ForwardsMessages(t *testing.T) {
	pipe := filepath.Join(t.TempDir(), "control")
	require.NoError(t, os.WriteFile(pipe, nil, 0o600))

	server := httptest.NewServer(New(pipe, nil))
	defer server.Close()

	conn := dial(t, server, "http://localhost:8090")
	defer conn.Close()

	assert.Equal(t, "ok", roundTrip(t, conn, "run 10%"))
	assert.Equal(t, "ok", roundTrip(t, conn, "skip 2;"))
	assert.Equal(t, "ok", roundTrip(t, conn, "exit\n"))
	assert.Equal(t, "ok", roundTrip(t, conn, ""))

	data, err := os.ReadFile(pipe)
	require.NoError(t, err)
	assert.Equal(t, "run 10%\nskip 2;exit\n", string(data))
}

type countingWriter struct {
	strings.Builder
	closes *atomic.Int32
}

func (w *countingWriter) Close() error {
	w.closes.Add(1)
	return nil
}

func TestHandler_OpensPipePerMessage(t *testing.T) {
	var opens, closes atomic.Int32
	h := New("/run/bannerd.fifo", nil)
	h.open = func(path string) (io.WriteCloser, error) {
		assert.Equal(t, "/run/bannerd.fifo", path)
		opens.Add(1)
		return &countingWriter{closes: &closes}, nil
	}

	server := httptest.NewServer(h)
	defer server.Close()
	conn := dial(t, server, "")
	defer conn.Close()

	roundTrip(t, conn, "run;")
	roundTrip(t, conn, "run;")
	assert.Equal(t, int32(2), opens.Load())
	assert.Equal(t, int32(2), closes.Load())
}

func TestHandler_PipeError(t *testing.T) {
	h := New("/nonexistent/fifo", nil)
	h.open = func(path string) (io.WriteCloser, error) {
		return nil, errors.New("no reader")
	}

	server := httptest.NewServer(h)
	defer server.Close()
	conn := dial(t, server, "")
	defer conn.Close()

	reply := roundTrip(t, conn, "run 1;")
	assert.True(t, strings.HasPrefix(reply, "error: "), reply)
	assert.Contains(t, reply, "no reader")
}

func TestHandler_ForbiddenOrigin(t *testing.T) {
	server := httptest.NewServer(New(filepath.Join(t.TempDir(), "control"), []string{"https://panel.example"}))
	defer server.Close()

	headers := http.Header{}
	headers.Set("Origin", "http://malicious.com")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "/"), headers)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	headers.Set("Origin", "https://panel.example")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/"), headers)
	require.NoError(t, err)
	conn.Close()
}

func TestHandler_PlainHTTP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/control", nil)
	w := httptest.NewRecorder()

	New("/tmp/control", nil).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		name           string
		origin         string
		allowed        []string
		expectedResult bool
	}{
		{"no origin", "", nil, true},
		{"localhost default", "http://localhost:8080", nil, true},
		{"127.0.0.1 default", "http://127.0.0.1:8090", nil, true},
		{"external origin without list", "http://example.com:8080", nil, false},
		{"allowed origin from list", "http://example.com:8080", []string{"http://example.com:8080", "http://trusted.com"}, true},
		{"not allowed origin from list", "http://malicious.com:8080", []string{"http://example.com:8080", "http://trusted.com"}, false},
		{"entry without scheme", "https://trusted.com", []string{"trusted.com"}, true},
		{"trailing slash", "https://trusted.com/", []string{" https://trusted.com "}, true},
		{"localhost with list", "http://localhost:3000", []string{"https://trusted.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedResult, isAllowedOrigin(tt.origin, tt.allowed))
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := NewServer(config.BridgeConfig{Listen: "127.0.0.1:0", Pipe: "/tmp/control"})
	assert.Equal(t, "127.0.0.1:0", srv.Addr)

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok\n", w.Body.String())

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/control", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
