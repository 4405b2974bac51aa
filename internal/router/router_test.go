package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/bdu-chat/campus-chat/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	id string

	mu   sync.Mutex
	got  []events.Envelope
	full bool
}

func newRecorder(id string) *recorder { return &recorder{id: id} }

func (r *recorder) ID() string { return r.id }

func (r *recorder) Send(env events.Envelope) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return false
	}
	r.got = append(r.got, env)
	return true
}

func (r *recorder) roomTexts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, env := range r.got {
		if m, ok := env.Data.(events.RoomMessage); ok {
			out = append(out, m.Message)
		}
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

type staticBlocks struct {
	pairs map[[2]uint]bool
	err   error
}

func (s staticBlocks) IsBlocked(_ context.Context, a, b uint) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.pairs[[2]uint{a, b}] || s.pairs[[2]uint{b, a}], nil
}

func roomMsg(id uint, faculty, text string) events.RoomDelivery {
	return events.RoomDelivery{Message: events.RoomMessage{ID: id, Faculty: faculty, Message: text}}
}

func TestRoomsPublishReachesOnlyThatRoom(t *testing.T) {
	rooms := NewRooms()
	a, b, c := newRecorder("a"), newRecorder("b"), newRecorder("c")
	rooms.Join(a, 1, "F1")
	rooms.Join(b, 2, "F1")
	rooms.Join(c, 3, "F2")

	sent := rooms.Publish(roomMsg(1, "F1", "hello"))

	assert.Equal(t, 2, sent)
	assert.Equal(t, []string{"hello"}, a.roomTexts())
	assert.Equal(t, []string{"hello"}, b.roomTexts())
	assert.Empty(t, c.roomTexts())
}

func TestRoomsPublishKeepsOrderPerSubscriber(t *testing.T) {
	rooms := NewRooms()
	a := newRecorder("a")
	rooms.Join(a, 1, "F1")

	for i, text := range []string{"m1", "m2", "m3"} {
		rooms.Publish(roomMsg(uint(i+1), "F1", text))
	}

	assert.Equal(t, []string{"m1", "m2", "m3"}, a.roomTexts())
	assert.Equal(t, events.TypeRoomMessage, a.got[0].Type)
}

func TestRoomsJoinReplacesPreviousRoom(t *testing.T) {
	rooms := NewRooms()
	a := newRecorder("a")
	rooms.Join(a, 1, "F1")
	rooms.Join(a, 1, "F2")

	assert.Equal(t, 0, rooms.Members("F1"))
	assert.Equal(t, 1, rooms.Members("F2"))
	faculty, ok := rooms.RoomOf("a")
	require.True(t, ok)
	assert.Equal(t, "F2", faculty)

	rooms.Publish(roomMsg(1, "F1", "old room"))
	rooms.Publish(roomMsg(2, "F2", "new room"))
	assert.Equal(t, []string{"new room"}, a.roomTexts())
}

func TestRoomsPublishToEmptyRoom(t *testing.T) {
	rooms := NewRooms()
	assert.Equal(t, 0, rooms.Publish(roomMsg(1, "nobody", "hello")))
}

func TestRoomsPublishSkipsHiddenUsers(t *testing.T) {
	rooms := NewRooms()
	a, b := newRecorder("a"), newRecorder("b")
	rooms.Join(a, 1, "F1")
	rooms.Join(b, 2, "F1")

	d := roomMsg(1, "F1", "hello")
	d.HiddenFrom = []uint{2}
	assert.Equal(t, 1, rooms.Publish(d))
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 0, b.count())
}

func TestRoomsPublishCountsDroppedPushes(t *testing.T) {
	rooms := NewRooms()
	a, b := newRecorder("a"), newRecorder("b")
	b.full = true
	rooms.Join(a, 1, "F1")
	rooms.Join(b, 2, "F1")

	assert.Equal(t, 1, rooms.Publish(roomMsg(1, "F1", "hello")))
}

func TestRoomsDisconnectIsIdempotent(t *testing.T) {
	rooms := NewRooms()
	a := newRecorder("a")
	rooms.Join(a, 1, "F1")

	rooms.Disconnect("a")
	rooms.Disconnect("a")
	rooms.Disconnect("never-joined")

	assert.Equal(t, 0, rooms.Members("F1"))
	_, ok := rooms.RoomOf("a")
	assert.False(t, ok)
	assert.Equal(t, 0, rooms.Publish(roomMsg(1, "F1", "hello")))
}

func TestRoomsConcurrentUse(t *testing.T) {
	rooms := NewRooms()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub := newRecorder(fmt.Sprintf("c%d", i))
			rooms.Join(sub, uint(i), "F1")
			rooms.Publish(roomMsg(uint(i), "F1", "x"))
			if i%2 == 0 {
				rooms.Disconnect(sub.ID())
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, rooms.Members("F1"))
}

func TestInboxesPublishEchoesToSenderAndReceiver(t *testing.T) {
	inboxes := NewInboxes(staticBlocks{})
	phone, laptop, receiver, bystander := newRecorder("phone"), newRecorder("laptop"), newRecorder("r"), newRecorder("x")
	inboxes.Join(phone, 1)
	inboxes.Join(laptop, 1)
	inboxes.Join(receiver, 2)
	inboxes.Join(bystander, 3)

	sent, err := inboxes.Publish(context.Background(), events.DirectMessage{ID: 1, SenderID: 1, ReceiverID: 2, Message: "hi"})
	require.NoError(t, err)

	assert.Equal(t, 3, sent)
	assert.Equal(t, 1, phone.count())
	assert.Equal(t, 1, laptop.count())
	assert.Equal(t, 1, receiver.count())
	assert.Equal(t, 0, bystander.count())
	assert.Equal(t, events.TypeDirectMessage, receiver.got[0].Type)
	assert.Equal(t, 2, inboxes.Connections(1))
}

func TestInboxesPublishToSelfDeliversOnce(t *testing.T) {
	inboxes := NewInboxes(staticBlocks{})
	a := newRecorder("a")
	inboxes.Join(a, 1)

	sent, err := inboxes.Publish(context.Background(), events.DirectMessage{SenderID: 1, ReceiverID: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestInboxesPublishSuppressedWhenBlocked(t *testing.T) {
	inboxes := NewInboxes(staticBlocks{pairs: map[[2]uint]bool{{1, 2}: true}})
	a, b := newRecorder("a"), newRecorder("b")
	inboxes.Join(a, 1)
	inboxes.Join(b, 2)

	// Either direction suppresses the whole delivery, including the echo
	sent, err := inboxes.Publish(context.Background(), events.DirectMessage{SenderID: 2, ReceiverID: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 0, a.count())
	assert.Equal(t, 0, b.count())
}

func TestInboxesPublishBlockCheckFailure(t *testing.T) {
	inboxes := NewInboxes(staticBlocks{err: errors.New("db down")})
	a := newRecorder("a")
	inboxes.Join(a, 1)

	_, err := inboxes.Publish(context.Background(), events.DirectMessage{SenderID: 1, ReceiverID: 2})
	assert.Error(t, err)
	assert.Equal(t, 0, a.count())
}

func TestInboxesJoinMovesConnection(t *testing.T) {
	inboxes := NewInboxes(staticBlocks{})
	a := newRecorder("a")
	inboxes.Join(a, 1)
	inboxes.Join(a, 2)

	assert.Equal(t, 0, inboxes.Connections(1))
	assert.Equal(t, 1, inboxes.Connections(2))

	inboxes.Disconnect("a")
	inboxes.Disconnect("a")
	assert.Equal(t, 0, inboxes.Connections(2))
}

func TestLocalDisconnectLeavesBothRouters(t *testing.T) {
	local := NewLocal(NewRooms(), NewInboxes(staticBlocks{}), slog.New(slog.NewTextHandler(io.Discard, nil)))
	a := newRecorder("a")
	local.Rooms.Join(a, 1, "F1")
	local.Inboxes.Join(a, 1)

	require.NoError(t, local.PublishRoom(context.Background(), roomMsg(1, "F1", "before")))
	local.Disconnect("a")
	require.NoError(t, local.PublishRoom(context.Background(), roomMsg(2, "F1", "after")))
	require.NoError(t, local.PublishDirect(context.Background(), events.DirectMessage{SenderID: 2, ReceiverID: 1}))

	assert.Equal(t, []string{"before"}, a.roomTexts())
	assert.Equal(t, 1, a.count())
}
