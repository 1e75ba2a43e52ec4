package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatgate/module/chat/message"
	"chatgate/module/chat/model"
	usermodel "chatgate/module/user/model"
	"chatgate/service/storage"
)

type fakeDirectory struct {
	users []*usermodel.User
}

func (d *fakeDirectory) FindByID(_ context.Context, id int) (*usermodel.User, error) {
	for _, u := range d.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (d *fakeDirectory) FindByUsername(_ context.Context, username string) (*usermodel.User, error) {
	for _, u := range d.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func newTestService() (*ChatService, *message.MemoryLog, *storage.MemoryPresence) {
	dir := &fakeDirectory{users: []*usermodel.User{
		{ID: 1, Username: "alice", Nickname: "Alice"},
		{ID: 2, Username: "bob", Nickname: "Bob"},
	}}
	log := message.NewMemoryLog()
	presence := storage.NewMemoryPresence()
	svc := NewChatService(dir, log, presence, 5*time.Minute)
	return svc, log, presence
}

func TestUserOnlineSingleRecord(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	rec, err := svc.UserOnline(ctx, "alice", "sess-a")
	require.NoError(t, err)
	require.Equal(t, 1, rec.UserID)
	require.Equal(t, "sess-a", rec.SessionID)
	require.Equal(t, storage.StatusOnline, rec.Status)

	// a second join from the same account replaces, never duplicates
	_, err = svc.UserOnline(ctx, "alice", "sess-b")
	require.NoError(t, err)

	roster := svc.OnlineUsers(ctx)
	require.Len(t, roster, 1)
	require.Equal(t, "sess-b", roster[0].SessionID)
}

func TestUserOnlineUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	_, err := svc.UserOnline(ctx, "mallory", "sess-x")
	require.Error(t, err)
	require.Empty(t, svc.OnlineUsers(ctx))
}

func TestUserOfflineSupersededSession(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	_, err := svc.UserOnline(ctx, "alice", "sess-a")
	require.NoError(t, err)
	_, err = svc.UserOnline(ctx, "alice", "sess-b")
	require.NoError(t, err)

	// the old tab's teardown arrives after the new tab joined
	removed, err := svc.UserOffline(ctx, 1, "sess-a")
	require.NoError(t, err)
	require.False(t, removed)

	roster := svc.OnlineUsers(ctx)
	require.Len(t, roster, 1)
	require.Equal(t, "sess-b", roster[0].SessionID)

	removed, err = svc.UserOffline(ctx, 1, "sess-b")
	require.NoError(t, err)
	require.True(t, removed)
	require.Empty(t, svc.OnlineUsers(ctx))
}

func TestSendPublicPersistsExactlyOne(t *testing.T) {
	ctx := context.Background()
	svc, log, _ := newTestService()

	msg, err := svc.SendPublic(ctx, 2, "hi")
	require.NoError(t, err)
	require.Equal(t, model.KindText, msg.Kind)
	require.Equal(t, model.ScopePublic, msg.Scope)
	require.Equal(t, "Bob", msg.SenderName)

	msgs, err := svc.RecentPublic(ctx, "public", 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "hi", msgs[0].Content)
	require.Len(t, log.All(), 1)
}

func TestSendPublicEmptyContent(t *testing.T) {
	ctx := context.Background()
	svc, log, _ := newTestService()

	_, err := svc.SendPublic(ctx, 1, "   ")
	require.Error(t, err)
	require.Empty(t, log.All())
}

func TestSendPrivateUnknownReceiver(t *testing.T) {
	ctx := context.Background()
	svc, log, _ := newTestService()

	_, err := svc.SendPrivate(ctx, 1, 99, "psst")
	require.Error(t, err)
	require.Empty(t, log.All())
}

func TestSendPrivateRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	msg, err := svc.SendPrivate(ctx, 1, 2, "psst")
	require.NoError(t, err)
	require.Equal(t, model.ScopePrivate, msg.Scope)
	require.Equal(t, 2, msg.ReceiverID)

	// visible from both ends
	msgs, err := svc.PrivateBetween(ctx, 1, 2, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	msgs, err = svc.PrivateBetween(ctx, 2, 1, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestTouchRefreshesLastActive(t *testing.T) {
	ctx := context.Background()
	svc, _, presence := newTestService()

	_, err := svc.UserOnline(ctx, "alice", "sess-a")
	require.NoError(t, err)

	rec, err := presence.Get(ctx, 1)
	require.NoError(t, err)
	rec.LastActive -= 600
	require.NoError(t, presence.Put(ctx, rec, svc.Window()))

	svc.Touch(ctx, 1)

	fresh, err := presence.Get(ctx, 1)
	require.NoError(t, err)
	require.Greater(t, fresh.LastActive, rec.LastActive)
}

func TestTouchAfterOfflineDoesNotResurrect(t *testing.T) {
	ctx := context.Background()
	svc, _, presence := newTestService()

	_, err := svc.UserOnline(ctx, "alice", "sess-a")
	require.NoError(t, err)

	removed, err := svc.UserOffline(ctx, 1, "sess-a")
	require.NoError(t, err)
	require.True(t, removed)

	// a send racing the teardown must not bring the record back
	svc.Touch(ctx, 1)

	rec, err := presence.Get(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestSweepExpiredRemovesOnlyStale(t *testing.T) {
	ctx := context.Background()
	svc, _, presence := newTestService()

	now := time.Now().Unix()
	stale := &storage.PresenceRecord{UserID: 1, Username: "alice", SessionID: "sess-a",
		Status: storage.StatusOnline, LastActive: now - 600, LoginAt: now - 600, RoomID: "public"}
	fresh := &storage.PresenceRecord{UserID: 2, Username: "bob", SessionID: "sess-b",
		Status: storage.StatusOnline, LastActive: now, LoginAt: now, RoomID: "public"}
	require.NoError(t, presence.Put(ctx, stale, time.Hour))
	require.NoError(t, presence.Put(ctx, fresh, time.Hour))

	cleaned := svc.SweepExpired(ctx)
	require.Equal(t, 1, cleaned)

	roster := svc.OnlineUsers(ctx)
	require.Len(t, roster, 1)
	require.Equal(t, 2, roster[0].UserID)
}

func TestHistoryLimitClamp(t *testing.T) {
	require.Equal(t, DefaultHistoryLimit, clampLimit(0))
	require.Equal(t, DefaultHistoryLimit, clampLimit(-3))
	require.Equal(t, 20, clampLimit(20))
	require.Equal(t, MaxHistoryLimit, clampLimit(1000))
}
