// Package bridge accepts control commands over WebSocket and forwards them
// to the daemon's command pipe.
package bridge

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fbanim/bannerd/internal/config"
	"github.com/fbanim/bannerd/internal/logging"
)

const (
	webSocketReadBufferSize  = 1024
	webSocketWriteBufferSize = 1024

	// maxMessageSize bounds one command message.
	maxMessageSize = 4096
)

// Opener opens the command pipe for one write.
type Opener func(path string) (io.WriteCloser, error)

func openPipe(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
}

// Handler upgrades requests to WebSocket and writes every received message
// to the command pipe, opening and closing the pipe for each message the
// way a shell writer would.
type Handler struct {
	pipe    string
	allowed []string
	open    Opener
}

// New returns a handler writing to pipe and accepting the given origins in
// addition to localhost.
func New(pipe string, allowedOrigins []string) *Handler {
	return &Handler{pipe: pipe, allowed: allowedOrigins, open: openPipe}
}

// NewServer returns an HTTP server exposing the control endpoint at /control.
func NewServer(cfg config.BridgeConfig) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/control", New(cfg.Pipe, cfg.AllowedOrigins))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	return &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  webSocketReadBufferSize,
		WriteBufferSize: webSocketWriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return isAllowedOrigin(r.Header.Get("Origin"), h.allowed)
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("%v", fmt.Errorf("upgrade websocket: %w", err))

		return
	}

	session := uuid.New()
	logging.Info("Control session %s opened from %s", session, r.RemoteAddr)

	defer func() {
		if err = wsConn.Close(); err != nil {
			logging.Debug("%v", fmt.Errorf("error closing websocket: %w", err))
		}
		logging.Info("Control session %s closed", session)
	}()

	wsConn.SetReadLimit(maxMessageSize)
	h.forward(session, wsConn)
}

// forward copies messages from the socket to the pipe until the client goes
// away. Each message is acknowledged with "ok" or an "error: " reply.
func (h *Handler) forward(session uuid.UUID, wsConn *websocket.Conn) {
	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				errors.Is(err, websocket.ErrCloseSent) {
				return
			}
			logging.Warn("Control session %s: %v", session, fmt.Errorf("error reading message from ws: %w", err))

			return
		}

		reply := "ok"
		if err = h.write(data); err != nil {
			logging.Error("Control session %s: %v", session, err)
			reply = "error: " + err.Error()
		} else {
			logging.Debug("Control session %s forwarded %q", session, data)
		}

		if err = wsConn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
			logging.Warn("Control session %s: %v", session, fmt.Errorf("failed sending reply to ws: %w", err))

			return
		}
	}
}

// write sends one message to the pipe, terminated so that it cannot run into
// the next writer's bytes.
func (h *Handler) write(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	msg := make([]byte, 0, len(data)+1)
	msg = append(msg, data...)
	if c := msg[len(msg)-1]; c != ';' && c != '\n' && c != '\r' {
		msg = append(msg, '\n')
	}

	f, err := h.open(h.pipe)
	if err != nil {
		return fmt.Errorf("open command pipe: %w", err)
	}

	_, err = f.Write(msg)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write command pipe: %w", err)
	}
	return nil
}

func isAllowedOrigin(origin string, allowed []string) bool {
	// Non-browser clients send no Origin.
	if origin == "" {
		return true
	}

	normalized := strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://")
	normalized = strings.TrimSuffix(normalized, "/")

	// Always allow localhost-style origins, the bridge usually runs on the device itself
	if strings.HasPrefix(normalized, "localhost") || strings.HasPrefix(normalized, "127.0.0.1") {
		return true
	}

	for _, entry := range allowed {
		candidate := strings.TrimSpace(entry)
		if candidate == "" {
			continue
		}

		// Support allow-list entries with or without scheme
		if candidate == origin || candidate == normalized {
			return true
		}

		if strings.TrimPrefix(candidate, "http://") == normalized || strings.TrimPrefix(candidate, "https://") == normalized {
			return true
		}
	}

	return false
}
