package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"babel-relay/domain"
	errs "babel-relay/errors"
	"babel-relay/services"
	"babel-relay/sink"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is a deployment concern, enforced at the edge.
		return true
	},
}

// clientFrame is the single inbound envelope. Which fields are required
// depends on the frame type.
type clientFrame struct {
	Type   string `json:"type" validate:"required,oneof=join setLanguage sendMessage"`
	ChatID string `json:"chatId" validate:"required_if=Type join"`
	UserID string `json:"userId" validate:"required_if=Type join"`
	Lang   string `json:"lang" validate:"required_unless=Type sendMessage"`
	Text   string `json:"text" validate:"required_if=Type sendMessage"`
}

// WebSocketHandler runs one connection's session protocol. All frames of a
// connection are handled sequentially by its read loop, so a join's replay
// finishes before a later sendMessage on the same connection is processed.
type WebSocketHandler struct {
	log             *slog.Logger
	service         services.IChatService
	bufferSize      int
	deliveryTimeout time.Duration
	validate        *validator.Validate
}

func NewWebSocketHandler(log *slog.Logger, service services.IChatService,
	bufferSize int, deliveryTimeout time.Duration) *WebSocketHandler {
	return &WebSocketHandler{
		log:             log,
		service:         service,
		bufferSize:      bufferSize,
		deliveryTimeout: deliveryTimeout,
		validate:        validator.New(),
	}
}

func (h *WebSocketHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ctx := c.Request.Context()
	sessionSink := sink.NewSessionSink(h.log, h.bufferSize, h.deliveryTimeout)
	defer sessionSink.Close()

	done := make(chan struct{})
	defer close(done)
	go h.writeLoop(conn, sessionSink, done)

	var session *domain.Session
	defer func() {
		if session != nil {
			h.service.Disconnect(session.ID)
		}
	}()

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("Connection dropped", "error", err)
			}
			return
		}
		if err := h.validate.Struct(frame); err != nil {
			_ = sessionSink.Fail(ctx, "invalid frame: "+err.Error())
			continue
		}

		switch frame.Type {
		case "join":
			if session != nil {
				h.service.Disconnect(session.ID)
				session = nil
			}
			next := domain.Session{
				ID:         uuid.New(),
				ChatID:     domain.ChatID(frame.ChatID),
				UserID:     frame.UserID,
				TargetLang: frame.Lang,
			}
			if err := h.service.Join(ctx, next, sessionSink); err != nil {
				h.service.Disconnect(next.ID)
				h.fail(ctx, sessionSink, err)
				continue
			}
			session = &next

		case "setLanguage":
			if session == nil {
				_ = sessionSink.Fail(ctx, "join a chat first")
				continue
			}
			if err := h.service.SetLanguage(ctx, session.ID, frame.Lang, sessionSink); err != nil {
				h.fail(ctx, sessionSink, err)
				continue
			}
			session.TargetLang = frame.Lang

		case "sendMessage":
			if session == nil {
				_ = sessionSink.Fail(ctx, "join a chat first")
				continue
			}
			if _, err := h.service.Send(ctx, *session, frame.Text, frame.Lang); err != nil {
				h.fail(ctx, sessionSink, err)
			}
		}
	}
}

// writeLoop is the connection's sole writer. A failed write closes the
// underlying connection, which in turn unblocks the read loop.
func (h *WebSocketHandler) writeLoop(conn *websocket.Conn, s *sink.SessionSink, done <-chan struct{}) {
	for {
		select {
		case frame := <-s.Frames():
			if err := conn.WriteJSON(frame); err != nil {
				h.log.Debug("Write failed, closing connection", "error", err)
				_ = conn.Close()
				return
			}
		case <-done:
			return
		}
	}
}

// fail reports an operation failure on the session's own error frame,
// keeping internal detail out of the client-visible message.
func (h *WebSocketHandler) fail(ctx context.Context, s *sink.SessionSink, err error) {
	switch {
	case errors.Is(err, errs.ErrChatNotFound):
		_ = s.Fail(ctx, "chat not found")
	case errors.Is(err, errs.ErrValidation):
		_ = s.Fail(ctx, err.Error())
	case errors.Is(err, errs.ErrUpstreamUnavailable):
		_ = s.Fail(ctx, "service temporarily unavailable")
	default:
		h.log.Error("Session operation failed", "error", err)
		_ = s.Fail(ctx, "internal error")
	}
}
