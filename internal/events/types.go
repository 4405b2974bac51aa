// Package events defines the records pushed to live connections.
package events

import "time"

// Envelope types pushed to clients
const (
	TypeRoomMessage   = "new-message"
	TypeDirectMessage = "new-private-message"
	TypeError         = "error"
)

// Envelope is a single push frame
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// RoomMessage is a persisted room message enriched with author display fields
type RoomMessage struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Faculty   string    `json:"faculty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	FullName  string    `json:"full_name"`
	Degree    string    `json:"degree"`
	Course    string    `json:"course"`
	Avatar    int       `json:"avatar"`
}

// DirectMessage is a persisted direct message enriched with sender display fields
type DirectMessage struct {
	ID         uint      `json:"id"`
	SenderID   uint      `json:"sender_id"`
	ReceiverID uint      `json:"receiver_id"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
	FullName   string    `json:"full_name"`
	Avatar     int       `json:"avatar"`
}

// Error is the payload of an error envelope
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RoomDelivery is a room message on its way to the room's live connections.
// HiddenFrom lists users who blocked the author and must not receive it.
type RoomDelivery struct {
	Message    RoomMessage `json:"message"`
	HiddenFrom []uint      `json:"hidden_from,omitempty"`
}
