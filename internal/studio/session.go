package studio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxSessions は同時に保持するセッション数の既定の上限です。
const DefaultMaxSessions = 1000

// Sessions はセッション ID からワークスペースを引くインメモリのストアです。
// ディスクには何も書き込みません。
type Sessions struct {
	mu  sync.Mutex
	ttl time.Duration
	max int
	now func() time.Time
	m   map[string]*Workspace
}

// SessionsOption は Sessions の設定を変更します。
type SessionsOption func(*Sessions)

// WithMaxSessions は保持するセッション数の上限を設定します。
// 上限に達した状態で Create すると、最も長くアクセスの無いセッションを破棄します。
func WithMaxSessions(n int) SessionsOption {
	return func(s *Sessions) {
		if n > 0 {
			s.max = n
		}
	}
}

// NewSessions は ttl だけアクセスの無いセッションを破棄するストアを返します。
func NewSessions(ttl time.Duration, opts ...SessionsOption) *Sessions {
	s := &Sessions{
		ttl: ttl,
		max: DefaultMaxSessions,
		now: time.Now,
		m:   make(map[string]*Workspace),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get は既存のワークスペースを返し、最終アクセス時刻を更新します。
func (s *Sessions) Get(id string) (*Workspace, bool) {
	s.mu.Lock()
	ws, ok := s.m[id]
	s.mu.Unlock()
	if ok {
		ws.touch(s.now())
	}
	return ws, ok
}

// Create は新しいセッションを作成します。
func (s *Sessions) Create() (string, *Workspace) {
	id := uuid.NewString()
	ws := newWorkspace(s.now())

	s.mu.Lock()
	for len(s.m) >= s.max {
		s.evictOldestLocked()
	}
	s.m[id] = ws
	s.mu.Unlock()
	return id, ws
}

// evictOldestLocked は最終アクセスが最も古いセッションを削除します。s.mu を保持して呼びます。
func (s *Sessions) evictOldestLocked() {
	var (
		oldestID string
		oldestAt time.Time
	)
	for id, ws := range s.m {
		if at := ws.idleSince(); oldestID == "" || at.Before(oldestAt) {
			oldestID, oldestAt = id, at
		}
	}
	delete(s.m, oldestID)
	slog.Warn("セッション数が上限に達したため最も古いセッションを破棄しました", "max", s.max)
}

// Resolve は id が有効ならそのワークスペースを、無効なら新しいセッションを返します。
// created は新規作成したかどうかです。
func (s *Sessions) Resolve(id string) (resolved string, ws *Workspace, created bool) {
	if id != "" {
		if ws, ok := s.Get(id); ok {
			return id, ws, false
		}
	}
	resolved, ws = s.Create()
	return resolved, ws, true
}

// Len は保持しているセッション数です。
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// Sweep は ttl を超えてアクセスの無いセッションを削除し、削除数を返します。
func (s *Sessions) Sweep() int {
	deadline := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, ws := range s.m {
		if ws.idleSince().Before(deadline) {
			delete(s.m, id)
			removed++
		}
	}
	return removed
}

// Run は ctx が終了するまで interval ごとに Sweep を実行します。
func (s *Sessions) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.InfoContext(ctx, "期限切れのセッションを削除しました", "removed", n, "remaining", s.Len())
			}
		}
	}
}
