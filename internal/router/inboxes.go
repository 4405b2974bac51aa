package router

import (
	"context"
	"sync"

	"github.com/bdu-chat/campus-chat/internal/events"
)

// BlockChecker reports whether two users have a block edge in either direction
type BlockChecker interface {
	IsBlocked(ctx context.Context, a, b uint) (bool, error)
}

// Inboxes maps users to their live connections for direct messages. A user
// may have many connections; a connection belongs to one user.
type Inboxes struct {
	mu     sync.RWMutex
	byUser map[uint]map[string]Subscriber
	byConn map[string]uint
	blocks BlockChecker
}

// NewInboxes creates an empty inbox router that consults blocks on publish.
func NewInboxes(blocks BlockChecker) *Inboxes {
	return &Inboxes{
		byUser: make(map[uint]map[string]Subscriber),
		byConn: make(map[string]uint),
		blocks: blocks,
	}
}

// Join attaches the connection to userID's inbox, detaching it from any
// other inbox.
func (in *Inboxes) Join(sub Subscriber, userID uint) {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.leaveLocked(sub.ID())

	if in.byUser[userID] == nil {
		in.byUser[userID] = make(map[string]Subscriber)
	}
	in.byUser[userID][sub.ID()] = sub
	in.byConn[sub.ID()] = userID
}

// Publish pushes msg to every connection of the sender and of the receiver.
// Nothing is delivered if the pair is blocked at publish time, or if the
// block state cannot be read.
func (in *Inboxes) Publish(ctx context.Context, msg events.DirectMessage) (int, error) {
	blocked, err := in.blocks.IsBlocked(ctx, msg.SenderID, msg.ReceiverID)
	if err != nil {
		return 0, err
	}
	if blocked {
		return 0, nil
	}

	env := events.Envelope{Type: events.TypeDirectMessage, Data: msg}

	in.mu.RLock()
	defer in.mu.RUnlock()

	sent := 0
	for _, sub := range in.byUser[msg.SenderID] {
		if sub.Send(env) {
			sent++
		}
	}
	if msg.ReceiverID != msg.SenderID {
		for _, sub := range in.byUser[msg.ReceiverID] {
			if sub.Send(env) {
				sent++
			}
		}
	}
	return sent, nil
}

// Disconnect removes the connection from its inbox. Unknown ids are ignored.
func (in *Inboxes) Disconnect(connID string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.leaveLocked(connID)
}

// Connections returns the number of live connections of userID.
func (in *Inboxes) Connections(userID uint) int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.byUser[userID])
}

func (in *Inboxes) leaveLocked(connID string) {
	userID, ok := in.byConn[connID]
	if !ok {
		return
	}
	delete(in.byConn, connID)

	if conns := in.byUser[userID]; conns != nil {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(in.byUser, userID)
		}
	}
}
