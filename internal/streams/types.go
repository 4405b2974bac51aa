package streams

import "github.com/bdu-chat/campus-chat/internal/events"

// Stream name constants
const (
	StreamChatEvents = "chat:events"
)

// GroupPrefix is prepended to the instance id to name its consumer group.
// Each instance reads through its own group so every instance sees every event.
const GroupPrefix = "chat-fanout-"

// Schema version constant
const (
	SchemaVersionV1 = "v1"
)

// Event kinds
const (
	KindRoom   = "room"
	KindDirect = "direct"
)

// Event is one persisted message relayed to every instance for live delivery
type Event struct {
	Kind   string                `json:"kind"`
	Room   *events.RoomDelivery  `json:"room,omitempty"`
	Direct *events.DirectMessage `json:"direct,omitempty"`
}
