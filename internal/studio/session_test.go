package studio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions(t *testing.T) {
	t.Run("作成したセッションを取得できる", func(t *testing.T) {
		s := NewSessions(time.Hour)
		id, ws := s.Create()
		require.NotEmpty(t, id)

		got, ok := s.Get(id)
		require.True(t, ok)
		assert.Same(t, ws, got)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("未知のIDは新規作成される", func(t *testing.T) {
		s := NewSessions(time.Hour)
		id, ws, created := s.Resolve("unknown")
		assert.True(t, created)
		assert.NotEqual(t, "unknown", id)

		again, ws2, created := s.Resolve(id)
		assert.False(t, created)
		assert.Equal(t, id, again)
		assert.Same(t, ws, ws2)
	})

	t.Run("セッションごとに状態は独立している", func(t *testing.T) {
		s := NewSessions(time.Hour)
		_, a := s.Create()
		_, b := s.Create()
		a.Slot(OperationGenerate).Fail(a.Slot(OperationGenerate).Begin(), "boom")
		assert.Empty(t, b.Slot(OperationGenerate).Snapshot().Error)
	})

	t.Run("Sweep は期限切れのみ削除する", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		s := NewSessions(time.Hour)
		s.now = func() time.Time { return now }

		oldID, _ := s.Create()
		now = now.Add(50 * time.Minute)
		freshID, _ := s.Create()
		now = now.Add(20 * time.Minute)

		assert.Equal(t, 1, s.Sweep())
		_, ok := s.Get(oldID)
		assert.False(t, ok)
		_, ok = s.Get(freshID)
		assert.True(t, ok)
	})

	t.Run("Get は最終アクセス時刻を更新する", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		s := NewSessions(time.Hour)
		s.now = func() time.Time { return now }

		id, _ := s.Create()
		now = now.Add(59 * time.Minute)
		_, ok := s.Get(id)
		require.True(t, ok)
		now = now.Add(59 * time.Minute)

		assert.Zero(t, s.Sweep())
	})
}

func TestSessions_MaxSessions(t *testing.T) {
	t.Run("上限に達すると最も古いセッションを破棄する", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		s := NewSessions(time.Hour, WithMaxSessions(2))
		s.now = func() time.Time { return now }

		oldest, _ := s.Create()
		now = now.Add(time.Minute)
		recent, _ := s.Create()
		now = now.Add(time.Minute)
		// oldest に触れると recent が最古になる
		_, ok := s.Get(oldest)
		require.True(t, ok)
		now = now.Add(time.Minute)

		newest, _ := s.Create()
		assert.Equal(t, 2, s.Len())
		_, ok = s.Get(recent)
		assert.False(t, ok)
		_, ok = s.Get(oldest)
		assert.True(t, ok)
		_, ok = s.Get(newest)
		assert.True(t, ok)
	})

	t.Run("大量に作成しても上限を超えない", func(t *testing.T) {
		s := NewSessions(time.Hour, WithMaxSessions(10))
		for range 100 {
			s.Create()
		}
		assert.Equal(t, 10, s.Len())
	})

	t.Run("0以下は既定値のまま", func(t *testing.T) {
		s := NewSessions(time.Hour, WithMaxSessions(0))
		assert.Equal(t, DefaultMaxSessions, s.max)
	})
}

func TestSessions_Run(t *testing.T) {
	s := NewSessions(time.Nanosecond)
	s.Create()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, time.Millisecond) }()

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation("generate")
	require.NoError(t, err)
	assert.Equal(t, OperationGenerate, op)

	op, err = ParseOperation("edit")
	require.NoError(t, err)
	assert.Equal(t, OperationEdit, op)

	_, err = ParseOperation("upscale")
	assert.Error(t, err)
}
