// Package realtime is the websocket transport: it authenticates nothing
// itself, validates inbound frames and hands them to the chat core.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/bdu-chat/campus-chat/internal/apperr"
	"github.com/bdu-chat/campus-chat/internal/events"
	"github.com/bdu-chat/campus-chat/internal/router"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// submitTimeout bounds one submission. Submissions are not tied to the
// connection, so a disconnect does not abort a message mid-persist.
const submitTimeout = 10 * time.Second

// Core is the part of the chat service the websocket transport drives
type Core interface {
	SubmitRoomMessage(ctx context.Context, userID uint, faculty, text string) (*events.RoomMessage, error)
	SubmitDirectMessage(ctx context.Context, senderID, receiverID uint, text string) (*events.DirectMessage, error)
	JoinRoom(sub router.Subscriber, userID uint, faculty string) error
	JoinInbox(sub router.Subscriber, userID uint)
	Disconnect(connID string)
}

// Handler upgrades authenticated requests to websocket connections
type Handler struct {
	core      Core
	validator *Validator
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// NewHandler creates a Handler. An empty allowedOrigins accepts any origin.
func NewHandler(core Core, validator *Validator, allowedOrigins []string, logger *slog.Logger) *Handler {
	return &Handler{
		core:      core,
		validator: validator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		logger: logger,
	}
}

// Serve handles GET /ws. It expects the auth middleware to have set user_id.
func (h *Handler) Serve(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		h.logger.Info("Websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	conn := newConn(ws, userID, h.logger)
	done := make(chan struct{})
	go conn.writeLoop(done)

	conn.logger.Debug("Websocket connected")
	h.readLoop(conn)

	// Leave the routers before the queue closes so no push races the close
	h.core.Disconnect(conn.ID())
	conn.close()
	<-done
	conn.logger.Debug("Websocket disconnected")
}

func (h *Handler) readLoop(conn *Conn) {
	ws := conn.ws
	ws.SetReadLimit(maxFrameSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				conn.logger.Debug("Peer closed")
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				conn.logger.Info("Read timeout")
			} else {
				conn.logger.Debug("Read failed", "error", err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, err := h.validator.Parse(data)
		if err == nil {
			err = h.dispatch(conn, frame)
		}
		if err != nil {
			h.replyError(conn, err)
		}
	}
}

func (h *Handler) dispatch(conn *Conn, frame Frame) error {
	switch frame.Type {
	case FrameJoinFaculty:
		var d joinFacultyData
		if err := json.Unmarshal(frame.Data, &d); err != nil {
			return apperr.Validation("invalid %s data", frame.Type)
		}
		return h.core.JoinRoom(conn, conn.userID, d.Faculty)

	case FrameJoinPrivate:
		h.core.JoinInbox(conn, conn.userID)
		return nil

	case FrameSendMessage:
		var d sendMessageData
		if err := json.Unmarshal(frame.Data, &d); err != nil {
			return apperr.Validation("invalid %s data", frame.Type)
		}
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		_, err := h.core.SubmitRoomMessage(ctx, conn.userID, d.Faculty, d.Message)
		return err

	case FrameSendPrivateMessage:
		var d sendPrivateMessageData
		if err := json.Unmarshal(frame.Data, &d); err != nil {
			return apperr.Validation("invalid %s data", frame.Type)
		}
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		_, err := h.core.SubmitDirectMessage(ctx, conn.userID, d.ReceiverID, d.Message)
		return err

	default:
		return apperr.Validation("unknown frame type: %s", frame.Type)
	}
}

func (h *Handler) replyError(conn *Conn, err error) {
	code, message := apperr.Public(err)
	if code == apperr.CodeStoreUnavailable {
		conn.logger.Error("Frame handling failed", "error", err)
	}
	conn.Send(events.Envelope{
		Type: events.TypeError,
		Data: events.Error{Code: string(code), Message: message},
	})
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
