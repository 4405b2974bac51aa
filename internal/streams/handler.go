package streams

import (
	"context"
	"fmt"

	"github.com/bdu-chat/campus-chat/internal/events"
)

// LocalTarget delivers to the connections held by this instance
type LocalTarget interface {
	PublishRoom(ctx context.Context, d events.RoomDelivery) error
	PublishDirect(ctx context.Context, msg events.DirectMessage) error
}

// DeliverLocal returns a handler that routes relayed events to target
func DeliverLocal(target LocalTarget) func(context.Context, Event) error {
	return func(ctx context.Context, ev Event) error {
		switch ev.Kind {
		case KindRoom:
			if ev.Room == nil {
				return fmt.Errorf("room event without payload")
			}
			return target.PublishRoom(ctx, *ev.Room)
		case KindDirect:
			if ev.Direct == nil {
				return fmt.Errorf("direct event without payload")
			}
			return target.PublishDirect(ctx, *ev.Direct)
		default:
			return fmt.Errorf("unknown event kind: %s", ev.Kind)
		}
	}
}
