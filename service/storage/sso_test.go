package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSsoLastLoginWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySso()

	require.NoError(t, s.Bind(ctx, "alice", "jti-1", time.Hour))
	require.NoError(t, s.Bind(ctx, "alice", "jti-2", time.Hour))

	ok, err := s.IsCurrent(ctx, "alice", "jti-1")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.IsCurrent(ctx, "alice", "jti-2")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSsoNoBinding(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySso()

	ok, err := s.IsCurrent(ctx, "nobody", "jti-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSsoBindingExpires(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySso()
	now := time.Now()
	s.Clock = func() time.Time { return now }

	require.NoError(t, s.Bind(ctx, "alice", "jti-1", time.Hour))

	now = now.Add(time.Hour + time.Second)

	ok, err := s.IsCurrent(ctx, "alice", "jti-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSsoInvalidate(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySso()

	require.NoError(t, s.Bind(ctx, "alice", "jti-1", time.Hour))
	require.NoError(t, s.Invalidate(ctx, "alice"))

	ok, err := s.IsCurrent(ctx, "alice", "jti-1")
	require.NoError(t, err)
	require.False(t, ok)
}
