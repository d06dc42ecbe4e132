package studio

import (
	"fmt"
	"sync"
	"time"

	"github.com/shouni/nano-banana-studio/pkg/domain"
)

// Operation は論理的な操作の種類です。操作ごとにスロットが1つあります。
type Operation string

const (
	OperationGenerate Operation = "generate"
	OperationEdit     Operation = "edit"
)

// ParseOperation は URL パス等から受け取った文字列を Operation に変換します。
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OperationGenerate, OperationEdit:
		return Operation(s), nil
	default:
		return "", fmt.Errorf("unknown operation %q", s)
	}
}

// SourceImage は編集タブで選択中の元画像です。
type SourceImage struct {
	domain.ImageResult
	Name   string
	Width  int
	Height int
}

// Workspace はブラウザセッション1つ分の状態です。
type Workspace struct {
	generate Slot
	edit     Slot

	mu       sync.Mutex
	source   *SourceImage
	lastSeen time.Time
}

func newWorkspace(now time.Time) *Workspace {
	return &Workspace{lastSeen: now}
}

// Slot は操作に対応するスロットを返します。
func (w *Workspace) Slot(op Operation) *Slot {
	if op == OperationEdit {
		return &w.edit
	}
	return &w.generate
}

// SetSource は元画像を差し替え、以前の編集結果とエラーを消去します。
func (w *Workspace) SetSource(src *SourceImage) {
	w.mu.Lock()
	w.source = src
	w.mu.Unlock()
	w.edit.Clear()
}

// Source は選択中の元画像を返します。
func (w *Workspace) Source() (*SourceImage, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.source, w.source != nil
}

// ClearSource は元画像と編集結果を破棄します。
func (w *Workspace) ClearSource() {
	w.SetSource(nil)
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}
