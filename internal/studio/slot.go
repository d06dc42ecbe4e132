package studio

import (
	"sync"
	"time"

	"github.com/shouni/nano-banana-studio/pkg/domain"
)

// Ticket は Slot.Begin が発行する要求ごとの通し番号です。
type Ticket uint64

// SlotState は Slot のある時点のコピーです。
type SlotState struct {
	Result    *domain.ImageResult
	Error     string
	Pending   bool
	UpdatedAt time.Time
}

// Slot は1つの操作につき結果またはエラーを高々1つ保持します。
// 書き込めるのは最後に発行されたチケットの完了だけです。
type Slot struct {
	mu        sync.Mutex
	latest    Ticket
	pending   bool
	result    *domain.ImageResult
	errMsg    string
	updatedAt time.Time
}

// Begin は新しいチケットを発行し、以前の結果とエラーを消去します。
func (s *Slot) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest++
	s.pending = true
	s.result = nil
	s.errMsg = ""
	s.touch()
	return s.latest
}

// Finish は t が最新のチケットであれば結果を保存し true を返します。
func (s *Slot) Finish(t Ticket, res *domain.ImageResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t != s.latest || !s.pending {
		return false
	}
	s.pending = false
	s.result = res
	s.touch()
	return true
}

// Fail は t が最新のチケットであればエラーメッセージを保存し true を返します。
func (s *Slot) Fail(t Ticket, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t != s.latest || !s.pending {
		return false
	}
	s.pending = false
	s.errMsg = msg
	s.touch()
	return true
}

// Clear は結果とエラーを消去します。処理中のチケットも無効になります。
func (s *Slot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest++
	s.pending = false
	s.result = nil
	s.errMsg = ""
	s.touch()
}

// Snapshot は現在の状態を返します。
func (s *Slot) Snapshot() SlotState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SlotState{
		Result:    s.result,
		Error:     s.errMsg,
		Pending:   s.pending,
		UpdatedAt: s.updatedAt,
	}
}

func (s *Slot) touch() {
	s.updatedAt = time.Now()
}
