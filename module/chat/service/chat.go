package service

import (
	"context"
	"strings"
	"time"

	"chatgate/logger"
	"chatgate/module/chat/message"
	"chatgate/module/chat/model"
	usersvc "chatgate/module/user/service"
	"chatgate/service/storage"
	"chatgate/tools/errs"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// ChatService owns message persistence and the online-user registry.
// Presence failures degrade to no-ops with a warning: routing keeps
// working without presence tracking. Message log failures are
// returned, and the caller drops the action.
type ChatService struct {
	dir      usersvc.Directory
	log      message.Log
	presence storage.PresenceStore
	window   time.Duration
}

func NewChatService(dir usersvc.Directory, log message.Log, presence storage.PresenceStore, window time.Duration) *ChatService {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &ChatService{dir: dir, log: log, presence: presence, window: window}
}

func (s *ChatService) Window() time.Duration { return s.window }

// SendPublic validates, persists, and returns a public text message.
func (s *ChatService) SendPublic(ctx context.Context, senderID int, content string) (*model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &errs.ErrEmptyContent
	}
	sender, err := s.dir.FindByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, &errs.ErrUserNotFound
	}

	msg := model.NewPublicMessage(content, sender.ID, sender.DisplayName())
	if err := s.log.Append(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// SendPrivate validates both parties, persists, and returns a private
// text message. An unknown receiver persists nothing.
func (s *ChatService) SendPrivate(ctx context.Context, senderID, receiverID int, content string) (*model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &errs.ErrEmptyContent
	}
	sender, err := s.dir.FindByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.dir.FindByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if sender == nil || receiver == nil {
		return nil, &errs.ErrUserNotFound
	}

	msg := model.NewPrivateMessage(content, sender.ID, sender.DisplayName(), receiver.ID)
	if err := s.log.Append(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// AppendSystem persists a join/leave notice.
func (s *ChatService) AppendSystem(ctx context.Context, content string, kind model.MessageKind) (*model.Message, error) {
	msg := model.NewSystemMessage(content, kind)
	if err := s.log.Append(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// UserOnline resolves the principal and creates its presence record.
// The record's session id names the connection that owns it.
func (s *ChatService) UserOnline(ctx context.Context, username, sessionID string) (*storage.PresenceRecord, error) {
	u, err := s.dir.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, &errs.ErrUserNotFound
	}

	now := time.Now().Unix()
	rec := &storage.PresenceRecord{
		UserID:     u.ID,
		Username:   u.Username,
		Nickname:   u.DisplayName(),
		SessionID:  sessionID,
		Status:     storage.StatusOnline,
		LastActive: now,
		LoginAt:    now,
		RoomID:     storage.DefaultRoom,
	}
	if err := s.presence.Put(ctx, rec, s.window); err != nil {
		logger.Warnf("[chat] presence put failed for user %d: %v", u.ID, err)
	}
	return rec, nil
}

// UserOffline removes the presence record only when sessionID still
// owns it. A false return means a newer connection superseded this
// one; that is the expected race outcome, not a failure.
func (s *ChatService) UserOffline(ctx context.Context, userID int, sessionID string) (bool, error) {
	removed, err := s.presence.CompareAndDelete(ctx, userID, sessionID)
	if err != nil {
		logger.Warnf("[chat] presence compare-and-delete failed for user %d: %v", userID, err)
		return false, nil
	}
	return removed, nil
}

// Touch refreshes the sender's presence, resetting the expiry clock.
// The refresh is conditional on the record still existing, so a
// teardown racing this cannot have its delete undone.
func (s *ChatService) Touch(ctx context.Context, userID int) {
	if _, err := s.presence.Refresh(ctx, userID, time.Now().Unix(), s.window); err != nil {
		logger.Warnf("[chat] presence refresh failed for user %d: %v", userID, err)
	}
}

// OnlineUsers returns the roster snapshot.
func (s *ChatService) OnlineUsers(ctx context.Context) []*storage.PresenceRecord {
	recs, err := s.presence.ListAll(ctx)
	if err != nil {
		logger.Warnf("[chat] presence list failed: %v", err)
		return nil
	}
	return recs
}

func (s *ChatService) IsOnline(ctx context.Context, userID int) bool {
	rec, err := s.presence.Get(ctx, userID)
	if err != nil {
		logger.Warnf("[chat] presence get failed for user %d: %v", userID, err)
		return false
	}
	return rec != nil
}

// SweepExpired removes records whose lastActive fell outside the
// inactivity window. Backstop for TTL expiry; safe to run next to
// live Put/CompareAndDelete traffic because the delete re-checks the
// timestamp inside the store.
func (s *ChatService) SweepExpired(ctx context.Context) int {
	recs, err := s.presence.ListAll(ctx)
	if err != nil {
		logger.Warnf("[chat] sweep list failed: %v", err)
		return 0
	}
	cutoff := time.Now().Add(-s.window).Unix()
	cleaned := 0
	for _, rec := range recs {
		if rec.LastActive > cutoff {
			continue
		}
		removed, err := s.presence.DeleteIfStale(ctx, rec.UserID, cutoff)
		if err != nil {
			logger.Warnf("[chat] sweep delete failed for user %d: %v", rec.UserID, err)
			continue
		}
		if removed {
			cleaned++
		}
	}
	if cleaned > 0 {
		logger.Infof("[chat] swept %d expired presence records", cleaned)
	}
	return cleaned
}

// RecentPublic reads the newest public messages, oldest first.
func (s *ChatService) RecentPublic(ctx context.Context, roomID string, limit int) ([]*model.Message, error) {
	if roomID == "" {
		roomID = model.DefaultRoom
	}
	return s.log.RecentPublic(ctx, roomID, clampLimit(limit))
}

// PrivateBetween reads the private history between two users.
func (s *ChatService) PrivateBetween(ctx context.Context, userA, userB, limit int) ([]*model.Message, error) {
	return s.log.PrivateBetween(ctx, userA, userB, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
