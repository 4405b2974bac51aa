package router

import (
	"context"
	"log/slog"

	"github.com/bdu-chat/campus-chat/internal/events"
)

// Local delivers messages to the connections held by this process.
type Local struct {
	Rooms   *Rooms
	Inboxes *Inboxes
	logger  *slog.Logger
}

// NewLocal combines a room and an inbox router.
func NewLocal(rooms *Rooms, inboxes *Inboxes, logger *slog.Logger) *Local {
	return &Local{Rooms: rooms, Inboxes: inboxes, logger: logger}
}

// PublishRoom delivers a room message to this process's room members.
func (l *Local) PublishRoom(_ context.Context, d events.RoomDelivery) error {
	sent := l.Rooms.Publish(d)
	l.logger.Debug("Room message delivered",
		"message_id", d.Message.ID,
		"faculty", d.Message.Faculty,
		"recipients", sent,
	)
	return nil
}

// PublishDirect delivers a direct message to this process's inbox connections.
func (l *Local) PublishDirect(ctx context.Context, msg events.DirectMessage) error {
	sent, err := l.Inboxes.Publish(ctx, msg)
	if err != nil {
		return err
	}
	l.logger.Debug("Direct message delivered",
		"message_id", msg.ID,
		"sender_id", msg.SenderID,
		"receiver_id", msg.ReceiverID,
		"recipients", sent,
	)
	return nil
}

// Disconnect removes a connection from both routers.
func (l *Local) Disconnect(connID string) {
	l.Rooms.Disconnect(connID)
	l.Inboxes.Disconnect(connID)
}
