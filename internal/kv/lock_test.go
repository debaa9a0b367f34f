package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerExclusive(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	token, ok, err := l.TryLock(ctx, "import:safety", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "import:safety", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "import:safety", token))
	_, ok, err = l.TryLock(ctx, "import:safety", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalLockerExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLocker()
	l.now = func() time.Time { return now }

	_, ok, err := l.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, err = l.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseWithStaleTokenKeepsLock(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	_, ok, _ := l.TryLock(ctx, "k", time.Minute)
	require.True(t, ok)
	require.NoError(t, l.Release(ctx, "k", "not-the-token"))

	_, ok, _ = l.TryLock(ctx, "k", time.Minute)
	assert.False(t, ok)
}

func TestLockValidation(t *testing.T) {
	l := NewLocalLocker()
	_, _, err := l.TryLock(context.Background(), "", time.Minute)
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, _, err = l.TryLock(context.Background(), "k", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestNewLockerWithoutRedis(t *testing.T) {
	_, ok := NewLocker(nil).(*LocalLocker)
	assert.True(t, ok)
}
