// Package studio はブラウザの画面状態 (生成結果・編集結果・元画像) をサーバー側で保持し、
// 画像アダプターの呼び出しと結果の反映を行います。
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/nano-banana-studio/internal/metrics"
	"github.com/shouni/nano-banana-studio/pkg/domain"
	"github.com/shouni/nano-banana-studio/pkg/imgutil"
)

// 結果の取得に失敗し、エラー文言も無い場合に表示するメッセージ
const (
	fallbackGenerateMessage = "Failed to generate image"
	fallbackEditMessage     = "Failed to edit image"
)

// ErrSuperseded は完了した要求より新しい要求が既に発行されていたため、
// 結果がスロットに保存されなかったことを示します。
var ErrSuperseded = errors.New("superseded by a newer request")

// ErrNoSource は編集対象の元画像が選択されていないことを示します。
var ErrNoSource = &domain.ValidationError{Field: "image", Message: "Please upload a source image."}

// Generator はテキストから画像を生成します。
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.ImageResult, error)
}

// Editor は元画像を指示に従って編集します。
type Editor interface {
	Edit(ctx context.Context, req domain.EditRequest) (*domain.ImageResult, error)
}

// Recorder は操作ごとの結果と所要時間を記録します。
type Recorder interface {
	RecordRequest(ctx context.Context, operation, outcome string, elapsed time.Duration)
}

// Service はアダプターを呼び出し、結果をワークスペースのスロットへ反映します。
type Service struct {
	generator Generator
	editor    Editor
	recorder  Recorder
	timeout   time.Duration
}

// Option は Service の任意設定です。
type Option func(*Service)

// WithRecorder はメトリクスの記録先を設定します。
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithTimeout はリモート呼び出し1回あたりのタイムアウトを設定します。0 以下なら無制限です。
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// NewService は依存関係を注入して Service を初期化します。
func NewService(generator Generator, editor Editor, opts ...Option) (*Service, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if editor == nil {
		return nil, fmt.Errorf("editor is required")
	}
	s := &Service{generator: generator, editor: editor}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Generate は入力を検証した上で画像を生成し、生成スロットに反映します。
// 検証エラーの場合はスロットに触れません。
func (s *Service) Generate(ctx context.Context, ws *Workspace, req domain.GenerationRequest) (*domain.ImageResult, error) {
	if err := req.Validate(); err != nil {
		s.record(ctx, OperationGenerate, metrics.OutcomeValidation, 0)
		return nil, err
	}
	return s.run(ctx, ws.Slot(OperationGenerate), OperationGenerate, fallbackGenerateMessage,
		func(ctx context.Context) (*domain.ImageResult, error) {
			return s.generator.Generate(ctx, req)
		})
}

// Edit は選択中の元画像を instruction に従って編集し、編集スロットに反映します。
func (s *Service) Edit(ctx context.Context, ws *Workspace, instruction string) (*domain.ImageResult, error) {
	src, ok := ws.Source()
	if !ok {
		s.record(ctx, OperationEdit, metrics.OutcomeValidation, 0)
		return nil, ErrNoSource
	}
	req := domain.EditRequest{
		Image:       src.Data,
		MimeType:    src.MimeType,
		Instruction: instruction,
	}
	if err := req.Validate(); err != nil {
		s.record(ctx, OperationEdit, metrics.OutcomeValidation, 0)
		return nil, err
	}
	return s.run(ctx, ws.Slot(OperationEdit), OperationEdit, fallbackEditMessage,
		func(ctx context.Context) (*domain.ImageResult, error) {
			return s.editor.Edit(ctx, req)
		})
}

func (s *Service) run(ctx context.Context, slot *Slot, op Operation, fallback string,
	call func(context.Context) (*domain.ImageResult, error)) (*domain.ImageResult, error) {

	ticket := slot.Begin()
	logger := slog.With("operation", string(op), "ticket", uint64(ticket))

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := call(callCtx)
	elapsed := time.Since(start)

	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = fallback
		}
		if !slot.Fail(ticket, msg) {
			s.record(ctx, op, metrics.OutcomeStale, elapsed)
			logger.WarnContext(ctx, "新しい要求が発行済みのためエラーを破棄しました", "error", err)
			return nil, fmt.Errorf("%w: %w", ErrSuperseded, err)
		}
		s.record(ctx, op, outcomeOf(err), elapsed)
		logger.WarnContext(ctx, "画像の取得に失敗しました", "error", err, "elapsed", elapsed)
		return nil, err
	}

	if !slot.Finish(ticket, res) {
		s.record(ctx, op, metrics.OutcomeStale, elapsed)
		logger.InfoContext(ctx, "新しい要求が発行済みのため結果を破棄しました", "elapsed", elapsed)
		return nil, ErrSuperseded
	}
	s.record(ctx, op, metrics.OutcomeSuccess, elapsed)
	logger.InfoContext(ctx, "画像を取得しました", "mime_type", res.MimeType, "bytes", len(res.Data), "elapsed", elapsed)
	return res, nil
}

func (s *Service) record(ctx context.Context, op Operation, outcome string, elapsed time.Duration) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordRequest(ctx, string(op), outcome, elapsed)
}

func outcomeOf(err error) string {
	var remoteErr *domain.RemoteServiceError
	var validationErr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNoImageProduced):
		return metrics.OutcomeNoImage
	case errors.As(err, &remoteErr):
		return metrics.OutcomeRemote
	case errors.As(err, &validationErr):
		return metrics.OutcomeValidation
	default:
		return metrics.OutcomeError
	}
}

// SelectSource はアップロードされた画像を検証し、編集用の元画像として選択します。
// 以前の編集結果とエラーは消去されます。
func (s *Service) SelectSource(ws *Workspace, name string, data []byte, declaredMIME string) (*SourceImage, error) {
	if len(data) > domain.MaxSourceImageBytes {
		return nil, &domain.ValidationError{Field: "image", Message: domain.FileTooLargeMessage}
	}
	if len(data) == 0 {
		return nil, ErrNoSource
	}

	src := &SourceImage{Name: name}
	src.Data = data
	if info, err := imgutil.Inspect(data); err == nil {
		src.MimeType = info.MimeType
		src.Width, src.Height = info.Width, info.Height
	} else {
		src.MimeType = imgutil.DetectMIME(data)
	}
	// 中身が画像でなければ宣言に関わらず拒否する
	if !strings.HasPrefix(src.MimeType, "image/") {
		return nil, &domain.ValidationError{Field: "image", Message: "Please upload an image file (JPG, PNG)."}
	}
	if strings.HasPrefix(declaredMIME, "image/") {
		src.MimeType = declaredMIME
	}

	ws.SetSource(src)
	slog.Info("元画像を選択しました", "name", name, "mime_type", src.MimeType, "bytes", len(data), "width", src.Width, "height", src.Height)
	return src, nil
}
