// Package router tracks live connections and delivers persisted messages to
// them. It owns membership only and never touches transport resources.
package router

import (
	"sync"

	"github.com/bdu-chat/campus-chat/internal/events"
)

// Subscriber is one live connection. Send must not block: it enqueues the
// envelope on the connection's outbound queue and returns false if the
// queue is full or closed. Envelopes are written in Send order.
type Subscriber interface {
	ID() string
	Send(events.Envelope) bool
}

type roomMember struct {
	userID  uint
	faculty string
	sub     Subscriber
}

// Rooms maps faculty rooms to their connections. A connection is in at most
// one room at a time.
type Rooms struct {
	mu     sync.RWMutex
	byConn map[string]*roomMember
	byRoom map[string]map[string]*roomMember
}

// NewRooms creates an empty room router.
func NewRooms() *Rooms {
	return &Rooms{
		byConn: make(map[string]*roomMember),
		byRoom: make(map[string]map[string]*roomMember),
	}
}

// Join subscribes the connection to faculty, leaving any room it was in.
func (r *Rooms) Join(sub Subscriber, userID uint, faculty string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(sub.ID())

	m := &roomMember{userID: userID, faculty: faculty, sub: sub}
	r.byConn[sub.ID()] = m
	if r.byRoom[faculty] == nil {
		r.byRoom[faculty] = make(map[string]*roomMember)
	}
	r.byRoom[faculty][sub.ID()] = m
}

// Publish pushes msg to every connection in its room except those whose
// user is in hiddenFrom. It returns the number of accepted pushes.
func (r *Rooms) Publish(d events.RoomDelivery) int {
	var hidden map[uint]struct{}
	if len(d.HiddenFrom) > 0 {
		hidden = make(map[uint]struct{}, len(d.HiddenFrom))
		for _, id := range d.HiddenFrom {
			hidden[id] = struct{}{}
		}
	}

	env := events.Envelope{Type: events.TypeRoomMessage, Data: d.Message}

	r.mu.RLock()
	defer r.mu.RUnlock()

	sent := 0
	for _, m := range r.byRoom[d.Message.Faculty] {
		if _, skip := hidden[m.userID]; skip {
			continue
		}
		if m.sub.Send(env) {
			sent++
		}
	}
	return sent
}

// Disconnect removes the connection from its room. Unknown ids are ignored.
func (r *Rooms) Disconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(connID)
}

// RoomOf returns the faculty the connection is subscribed to.
func (r *Rooms) RoomOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	return m.faculty, true
}

// Members returns the number of connections in faculty's room.
func (r *Rooms) Members(faculty string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byRoom[faculty])
}

func (r *Rooms) leaveLocked(connID string) {
	m, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)

	if room := r.byRoom[m.faculty]; room != nil {
		delete(room, connID)
		if len(room) == 0 {
			delete(r.byRoom, m.faculty)
		}
	}
}
