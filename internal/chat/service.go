// Package chat is the message routing and moderation pipeline: it filters,
// persists and fans out room and direct messages and enforces blocks.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bdu-chat/campus-chat/internal/apperr"
	"github.com/bdu-chat/campus-chat/internal/directory"
	"github.com/bdu-chat/campus-chat/internal/events"
	"github.com/bdu-chat/campus-chat/internal/filter"
	"github.com/bdu-chat/campus-chat/internal/messages"
	"github.com/bdu-chat/campus-chat/internal/models"
	"github.com/bdu-chat/campus-chat/internal/moderation"
	"github.com/bdu-chat/campus-chat/internal/router"
)

// MaxMessageLength is the longest accepted message, in runes
const MaxMessageLength = 4000

// Store is the durable message log
type Store interface {
	AppendRoom(ctx context.Context, authorID uint, faculty, text string) (*models.RoomMessage, error)
	AppendDirect(ctx context.Context, senderID, receiverID uint, text string) (*models.DirectMessage, error)
	ListRoom(ctx context.Context, viewerID uint, faculty string) ([]messages.RoomRow, error)
	ListDirect(ctx context.Context, a, b uint) ([]messages.DirectRow, error)
}

// Blocks is the block registry
type Blocks interface {
	Block(ctx context.Context, blockerID, blockedID uint) error
	IsBlocked(ctx context.Context, a, b uint) (bool, error)
	BlockersOf(ctx context.Context, authorID uint) ([]uint, error)
}

// Reporter stores user reports
type Reporter interface {
	Report(ctx context.Context, reporterID, reportedID uint, reason string) (*models.Report, error)
	Suspicious(ctx context.Context, threshold int) ([]moderation.SuspiciousUser, error)
}

// Directory resolves users for enrichment
type Directory interface {
	Lookup(ctx context.Context, id uint) (directory.Profile, error)
}

// WordSource returns the current banned word list
type WordSource interface {
	BannedWords(ctx context.Context) ([]string, error)
}

// Faculties tells known faculties apart from unknown ones
type Faculties interface {
	Known(name string) bool
}

// Fanout delivers persisted messages to live connections, either directly
// or through a relay that reaches every instance. Delivery is best effort.
type Fanout interface {
	PublishRoom(ctx context.Context, d events.RoomDelivery) error
	PublishDirect(ctx context.Context, msg events.DirectMessage) error
}

// Deps are the collaborators of a Service. Fanout defaults to Local.
type Deps struct {
	Store     Store
	Blocks    Blocks
	Reports   Reporter
	Directory Directory
	Words     WordSource
	Faculties Faculties
	Local     *router.Local
	Fanout    Fanout
	Logger    *slog.Logger
}

// Service is the entry point the transport layer calls into
type Service struct {
	store     Store
	blocks    Blocks
	reports   Reporter
	directory Directory
	words     WordSource
	faculties Faculties
	local     *router.Local
	fanout    Fanout
	logger    *slog.Logger

	// Per-faculty locks held across persist and publish so every subscriber
	// sees a room's messages in id order
	roomLocks sync.Map
}

// New creates a Service.
func New(d Deps) *Service {
	s := &Service{
		store:     d.Store,
		blocks:    d.Blocks,
		reports:   d.Reports,
		directory: d.Directory,
		words:     d.Words,
		faculties: d.Faculties,
		local:     d.Local,
		fanout:    d.Fanout,
		logger:    d.Logger,
	}
	if s.fanout == nil {
		s.fanout = d.Local
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// SubmitRoomMessage filters, stores and broadcasts a message from userID to
// faculty's room. It returns (nil, nil) when the author does not exist.
func (s *Service) SubmitRoomMessage(ctx context.Context, userID uint, faculty, text string) (*events.RoomMessage, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}
	if !s.faculties.Known(faculty) {
		return nil, apperr.Validation("unknown faculty: %s", faculty)
	}

	author, err := s.directory.Lookup(ctx, userID)
	if apperr.Is(err, apperr.CodeNotFound) {
		s.logger.Warn("Dropping room message from unknown user", "user_id", userID, "faculty", faculty)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if author.Faculty != faculty {
		return nil, apperr.Validation("user %d is not a member of %s", userID, faculty)
	}

	words, err := s.words.BannedWords(ctx)
	if err != nil {
		return nil, err
	}
	filtered := filter.Apply(text, words)

	hiddenFrom, err := s.blocks.BlockersOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	lock := s.roomLock(faculty)
	lock.Lock()
	defer lock.Unlock()

	stored, err := s.store.AppendRoom(ctx, userID, faculty, filtered)
	if err != nil {
		s.logger.Error("Failed to store room message", "user_id", userID, "faculty", faculty, "error", err)
		return nil, err
	}

	msg := events.RoomMessage{
		ID:        stored.ID,
		UserID:    stored.UserID,
		Faculty:   stored.Faculty,
		Message:   stored.Message,
		CreatedAt: stored.CreatedAt,
		FullName:  author.FullName,
		Degree:    author.Degree,
		Course:    author.Course,
		Avatar:    author.Avatar,
	}

	if err := s.fanout.PublishRoom(ctx, events.RoomDelivery{Message: msg, HiddenFrom: hiddenFrom}); err != nil {
		s.logger.Warn("Room fan-out failed, message stays fetchable",
			"message_id", msg.ID,
			"faculty", faculty,
			"error", err,
		)
	}

	return &msg, nil
}

// SubmitDirectMessage filters, stores and delivers a message between two
// users. It returns (nil, nil) without storing anything when either user is
// unknown. A blocked pair is checked before the insert, so a message between
// blocked users is neither persisted nor delivered.
func (s *Service) SubmitDirectMessage(ctx context.Context, senderID, receiverID uint, text string) (*events.DirectMessage, error) {
	if senderID == 0 || receiverID == 0 {
		return nil, apperr.Validation("sender and receiver are required")
	}
	if err := validateText(text); err != nil {
		return nil, err
	}

	sender, err := s.directory.Lookup(ctx, senderID)
	if apperr.Is(err, apperr.CodeNotFound) {
		s.logger.Warn("Dropping direct message from unknown user", "sender_id", senderID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.directory.Lookup(ctx, receiverID); err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			s.logger.Warn("Dropping direct message to unknown user", "sender_id", senderID, "receiver_id", receiverID)
			return nil, nil
		}
		return nil, err
	}

	blocked, err := s.blocks.IsBlocked(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if blocked {
		s.logger.Debug("Dropping direct message between blocked users", "sender_id", senderID, "receiver_id", receiverID)
		return nil, nil
	}

	words, err := s.words.BannedWords(ctx)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.AppendDirect(ctx, senderID, receiverID, filter.Apply(text, words))
	if err != nil {
		s.logger.Error("Failed to store direct message", "sender_id", senderID, "receiver_id", receiverID, "error", err)
		return nil, err
	}

	msg := events.DirectMessage{
		ID:         stored.ID,
		SenderID:   stored.SenderID,
		ReceiverID: stored.ReceiverID,
		Message:    stored.Message,
		CreatedAt:  stored.CreatedAt,
		FullName:   sender.FullName,
		Avatar:     sender.Avatar,
	}

	if err := s.fanout.PublishDirect(ctx, msg); err != nil {
		s.logger.Warn("Direct fan-out failed, message stays fetchable", "message_id", msg.ID, "error", err)
	}

	return &msg, nil
}

// ListRoom returns faculty's room history as seen by viewerID.
func (s *Service) ListRoom(ctx context.Context, viewerID uint, faculty string) ([]events.RoomMessage, error) {
	if !s.faculties.Known(faculty) {
		return nil, apperr.Validation("unknown faculty: %s", faculty)
	}

	rows, err := s.store.ListRoom(ctx, viewerID, faculty)
	if err != nil {
		return nil, err
	}

	out := make([]events.RoomMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, events.RoomMessage(r))
	}
	return out, nil
}

// ListDirect returns the conversation between viewerID and otherID. It is
// empty if either blocked the other.
func (s *Service) ListDirect(ctx context.Context, viewerID, otherID uint) ([]events.DirectMessage, error) {
	if otherID == 0 {
		return nil, apperr.Validation("user id is required")
	}

	rows, err := s.store.ListDirect(ctx, viewerID, otherID)
	if err != nil {
		return nil, err
	}

	out := make([]events.DirectMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, events.DirectMessage(r))
	}
	return out, nil
}

// Block records that blockerID blocked blockedID.
func (s *Service) Block(ctx context.Context, blockerID, blockedID uint) error {
	if _, err := s.directory.Lookup(ctx, blockedID); err != nil {
		return err
	}
	if err := s.blocks.Block(ctx, blockerID, blockedID); err != nil {
		return err
	}
	s.logger.Info("User blocked", "blocker_id", blockerID, "blocked_id", blockedID)
	return nil
}

// Report records a complaint by reporterID against reportedID.
func (s *Service) Report(ctx context.Context, reporterID, reportedID uint, reason string) (*models.Report, error) {
	if _, err := s.directory.Lookup(ctx, reportedID); err != nil {
		return nil, err
	}
	report, err := s.reports.Report(ctx, reporterID, reportedID, reason)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User reported", "reporter_id", reporterID, "reported_id", reportedID, "report_id", report.ID)
	s.flagIfSuspicious(ctx, reportedID)
	return report, nil
}

// JoinRoom subscribes a live connection to faculty's room, replacing the
// room it was in.
func (s *Service) JoinRoom(sub router.Subscriber, userID uint, faculty string) error {
	if !s.faculties.Known(faculty) {
		return apperr.Validation("unknown faculty: %s", faculty)
	}
	s.local.Rooms.Join(sub, userID, faculty)
	s.logger.Debug("Connection joined room", "conn_id", sub.ID(), "user_id", userID, "faculty", faculty)
	return nil
}

// JoinInbox attaches a live connection to userID's direct message inbox.
func (s *Service) JoinInbox(sub router.Subscriber, userID uint) {
	s.local.Inboxes.Join(sub, userID)
	s.logger.Debug("Connection joined inbox", "conn_id", sub.ID(), "user_id", userID)
}

// Disconnect forgets a closed connection.
func (s *Service) Disconnect(connID string) {
	s.local.Disconnect(connID)
}

func (s *Service) roomLock(faculty string) *sync.Mutex {
	l, _ := s.roomLocks.LoadOrStore(faculty, &sync.Mutex{})
	return l.(*sync.Mutex)
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperr.Validation("message text is empty")
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return apperr.Validation("message is longer than %d characters", MaxMessageLength)
	}
	return nil
}

// flagIfSuspicious warns once a user has collected enough reports for review.
func (s *Service) flagIfSuspicious(ctx context.Context, userID uint) {
	flagged, err := s.reports.Suspicious(ctx, moderation.SuspiciousThreshold)
	if err != nil {
		s.logger.Warn("Failed to check report threshold", "user_id", userID, "error", err)
		return
	}
	for _, u := range flagged {
		if u.UserID == userID {
			s.logger.Warn("User reached report threshold", "user_id", userID, "reports", u.ReportCount)
			return
		}
	}
}
