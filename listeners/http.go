package listeners

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/interfaces-to/interfaces-to/errors"
	"github.com/interfaces-to/interfaces-to/session"
)

const maxBody = 1 << 20

// Webhook accepts messages as the body of HTTP POST requests.
type Webhook struct {
	readiness
	addr   string
	path   string
	logger *slog.Logger
}

func NewWebhook(addr, path string, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Webhook{readiness: newReadiness(), addr: addr, path: path, logger: logger}
}

func (w *Webhook) Name() string { return "Webhook" }

// Handler returns the HTTP handler that feeds inbox.
func (w *Webhook) Handler(inbox *session.Inbox) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(w.path, func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.Header().Set("Allow", http.MethodPost)
			http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err != nil {
			w.logger.ErrorContext(r.Context(), "failed to read message", "error", err)
			writeJSON(rw, http.StatusInternalServerError, map[string]string{"detail": "Failed to process message"})
			return
		}
		inbox.Push(session.UserMessage(received(string(body))))
		writeJSON(rw, http.StatusOK, map[string]string{"message": "Message received and processed"})
	})
	return mux
}

func (w *Webhook) Listen(ctx context.Context, inbox *session.Inbox) error {
	ln, err := net.Listen("tcp", w.addr)
	if err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "listening for messages", "url", "http://"+ln.Addr().String()+w.path)
	return serve(ctx, ln, w.Handler(inbox))
}

// WebSocket turns each text frame from a connected client into a user
// message and acknowledges it on the same connection.
type WebSocket struct {
	readiness
	addr     string
	path     string
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewWebSocket(addr, path string, logger *slog.Logger) *WebSocket {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocket{
		readiness: newReadiness(),
		addr:      addr,
		path:      path,
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:    logger,
	}
}

func (s *WebSocket) Name() string { return "WebSocket" }

type frame struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

func (s *WebSocket) Handler(inbox *session.Inbox) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		for {
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.DebugContext(r.Context(), "websocket read ended", "error", err)
				}
				return
			}
			if kind != websocket.TextMessage {
				continue
			}
			inbox.Push(session.UserMessage(received(string(msg))))
			if err := conn.WriteJSON(frame{Type: "ack", Data: "Message received and processed"}); err != nil {
				s.logger.WarnContext(r.Context(), "websocket write failed", "error", err)
				return
			}
		}
	})
	return mux
}

func (s *WebSocket) Listen(ctx context.Context, inbox *session.Inbox) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "listening for websocket clients", "url", "ws://"+ln.Addr().String()+s.path)
	return serve(ctx, ln, s.Handler(inbox))
}

// serve runs handler on ln until ctx is cancelled.
func serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		case <-done:
		}
	}()
	err := srv.Serve(ln)
	close(done)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
