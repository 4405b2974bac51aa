package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bdu-chat/campus-chat/internal/apperr"
	"github.com/bdu-chat/campus-chat/internal/chat"
	"github.com/bdu-chat/campus-chat/internal/database/dbtest"
	"github.com/bdu-chat/campus-chat/internal/directory"
	"github.com/bdu-chat/campus-chat/internal/events"
	"github.com/bdu-chat/campus-chat/internal/faculty"
	"github.com/bdu-chat/campus-chat/internal/messages"
	"github.com/bdu-chat/campus-chat/internal/moderation"
	"github.com/bdu-chat/campus-chat/internal/router"
	"github.com/bdu-chat/campus-chat/internal/settings"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	require.NoError(t, err)
	return v
}

func TestValidatorAcceptsKnownFrames(t *testing.T) {
	v := newValidator(t)

	tests := []string{
		`{"type":"join-faculty","data":{"faculty":"F1"}}`,
		`{"type":"join-private"}`,
		`{"type":"join-private","data":{"userId":5}}`,
		`{"type":"send-message","data":{"faculty":"F1","message":"hi"}}`,
		`{"type":"send-private-message","data":{"receiver_id":2,"message":"hi"}}`,
	}
	for _, raw := range tests {
		_, err := v.Parse([]byte(raw))
		assert.NoError(t, err, raw)
	}
}

func TestValidatorRejectsInvalidFrames(t *testing.T) {
	v := newValidator(t)

	tests := map[string]string{
		"not json":          `{"type":`,
		"missing type":      `{"data":{}}`,
		"unknown type":      `{"type":"shout","data":{}}`,
		"missing faculty":   `{"type":"join-faculty","data":{}}`,
		"empty message":     `{"type":"send-message","data":{"faculty":"F1","message":""}}`,
		"string receiver":   `{"type":"send-private-message","data":{"receiver_id":"2","message":"hi"}}`,
		"zero receiver":     `{"type":"send-private-message","data":{"receiver_id":0,"message":"hi"}}`,
		"data not object":   `{"type":"send-message","data":"hello"}`,
		"message too long":  `{"type":"send-message","data":{"faculty":"F1","message":"` + strings.Repeat("a", 4001) + `"}}`,
		"missing recipient": `{"type":"send-private-message","data":{"message":"hi"}}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Parse([]byte(raw))
			assert.True(t, apperr.Is(err, apperr.CodeValidation), "got %v", err)
		})
	}
}

type harness struct {
	db     *gorm.DB
	server *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := dbtest.Open(t)
	catalog, err := faculty.Parse([]byte("faculties:\n  - name: F1\n  - name: F2\n"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := messages.NewStore(db)
	blocks := moderation.NewBlocks(db)
	svc := chat.New(chat.Deps{
		Store:     store,
		Blocks:    blocks,
		Reports:   moderation.NewReports(db, store),
		Directory: directory.New(db),
		Words:     settings.NewReader(db),
		Faculties: catalog,
		Local:     router.NewLocal(router.NewRooms(), router.NewInboxes(blocks), logger),
		Logger:    logger,
	})

	h := NewHandler(svc, newValidator(t), nil, logger)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		if id, err := strconv.ParseUint(c.Query("user"), 10, 64); err == nil {
			c.Set("user_id", uint(id))
		}
		c.Next()
	}, h.Serve)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &harness{db: db, server: srv}
}

func (h *harness) dial(t *testing.T, userID uint) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws?user=" + strconv.FormatUint(uint64(userID), 10)
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func receive(t *testing.T, ws *websocket.Conn) inbound {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var in inbound
	require.NoError(t, ws.ReadJSON(&in))
	return in
}

// sync returns once every frame sent earlier on ws has been processed.
func (h *harness) sync(t *testing.T, ws *websocket.Conn) {
	t.Helper()
	// An invalid frame is answered in order, after every earlier frame
	send(t, ws, `{"type":"sync"}`)
	in := receive(t, ws)
	require.Equal(t, events.TypeError, in.Type)
}

func TestRoomMessageReachesRoomMembers(t *testing.T) {
	h := newHarness(t)
	dbtest.SetSetting(t, h.db, settings.KeyFilterWords, "bad")
	alice := dbtest.CreateUser(t, h.db, "Alice", "F1")
	bob := dbtest.CreateUser(t, h.db, "Bob", "F1")

	aliceWS, bobWS := h.dial(t, alice.ID), h.dial(t, bob.ID)
	send(t, aliceWS, `{"type":"join-faculty","data":{"faculty":"F1"}}`)
	send(t, bobWS, `{"type":"join-faculty","data":{"faculty":"F1"}}`)
	h.sync(t, aliceWS)
	h.sync(t, bobWS)

	send(t, aliceWS, `{"type":"send-message","data":{"faculty":"F1","message":"hello bad"}}`)

	for _, ws := range []*websocket.Conn{aliceWS, bobWS} {
		in := receive(t, ws)
		require.Equal(t, events.TypeRoomMessage, in.Type)

		var msg events.RoomMessage
		require.NoError(t, json.Unmarshal(in.Data, &msg))
		assert.Equal(t, "hello ***", msg.Message)
		assert.Equal(t, alice.ID, msg.UserID)
		assert.Equal(t, "Alice", msg.FullName)
	}
}

func TestPrivateMessageUsesSessionIdentity(t *testing.T) {
	h := newHarness(t)
	alice := dbtest.CreateUser(t, h.db, "Alice", "F1")
	bob := dbtest.CreateUser(t, h.db, "Bob", "F2")

	aliceWS, bobWS := h.dial(t, alice.ID), h.dial(t, bob.ID)
	send(t, aliceWS, `{"type":"join-private","data":{}}`)
	send(t, bobWS, `{"type":"join-private"}`)
	h.sync(t, aliceWS)
	h.sync(t, bobWS)

	send(t, aliceWS, `{"type":"send-private-message","data":{"receiver_id":`+strconv.FormatUint(uint64(bob.ID), 10)+`,"message":"hi bob","sender_id":999}}`)

	for _, ws := range []*websocket.Conn{aliceWS, bobWS} {
		in := receive(t, ws)
		require.Equal(t, events.TypeDirectMessage, in.Type)

		var msg events.DirectMessage
		require.NoError(t, json.Unmarshal(in.Data, &msg))
		assert.Equal(t, alice.ID, msg.SenderID)
		assert.Equal(t, bob.ID, msg.ReceiverID)
		assert.Equal(t, "hi bob", msg.Message)
	}
}

func TestValidationErrorGoesToSenderOnly(t *testing.T) {
	h := newHarness(t)
	alice := dbtest.CreateUser(t, h.db, "Alice", "F1")
	bob := dbtest.CreateUser(t, h.db, "Bob", "F1")

	aliceWS, bobWS := h.dial(t, alice.ID), h.dial(t, bob.ID)
	send(t, bobWS, `{"type":"join-faculty","data":{"faculty":"F1"}}`)
	h.sync(t, bobWS)

	// Alice is not a member of F2
	send(t, aliceWS, `{"type":"send-message","data":{"faculty":"F2","message":"hi"}}`)
	in := receive(t, aliceWS)
	require.Equal(t, events.TypeError, in.Type)

	var e events.Error
	require.NoError(t, json.Unmarshal(in.Data, &e))
	assert.Equal(t, string(apperr.CodeValidation), e.Code)
	assert.NotEmpty(t, e.Message)

	// Bob sees nothing before his own sync reply
	h.sync(t, bobWS)
}

func TestUnauthenticatedUpgradeIsRejected(t *testing.T) {
	h := newHarness(t)

	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConnSendAfterCloseFails(t *testing.T) {
	c := &Conn{id: "x", send: make(chan events.Envelope, 1), logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	assert.True(t, c.Send(events.Envelope{Type: "a"}))
	assert.False(t, c.Send(events.Envelope{Type: "b"}), "queue is full")

	c.close()
	c.close()
	assert.False(t, c.Send(events.Envelope{Type: "c"}))
}

func TestCheckOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://evil.example")

	assert.True(t, checkOrigin(nil)(req))
	assert.False(t, checkOrigin([]string{"https://chat.bsu.edu.az"})(req))

	req.Header.Set("Origin", "https://chat.bsu.edu.az")
	assert.True(t, checkOrigin([]string{"https://chat.bsu.edu.az"})(req))
}

func TestDisconnectLeavesRooms(t *testing.T) {
	h := newHarness(t)
	alice := dbtest.CreateUser(t, h.db, "Alice", "F1")
	bob := dbtest.CreateUser(t, h.db, "Bob", "F1")

	bobWS := h.dial(t, bob.ID)
	send(t, bobWS, `{"type":"join-faculty","data":{"faculty":"F1"}}`)
	h.sync(t, bobWS)
	require.NoError(t, bobWS.Close())

	aliceWS := h.dial(t, alice.ID)
	send(t, aliceWS, `{"type":"join-faculty","data":{"faculty":"F1"}}`)
	h.sync(t, aliceWS)

	// Submitting after Bob left must not fail
	send(t, aliceWS, `{"type":"send-message","data":{"faculty":"F1","message":"anyone?"}}`)
	in := receive(t, aliceWS)
	assert.Equal(t, events.TypeRoomMessage, in.Type)

	var count int64
	require.NoError(t, h.db.WithContext(context.Background()).Table("messages").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
