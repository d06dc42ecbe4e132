package adapters

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/nano-banana-studio/pkg/domain"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// DefaultEditModel は画像編集に使う Gemini のモデルです。
const DefaultEditModel = "gemini-2.5-flash-image"

// ImageEditAdapter は元画像と編集指示を Gemini へのマルチパートリクエストに変換するアダプターです。
type ImageEditAdapter struct {
	aiClient gemini.GenerativeModel
	model    string
}

// NewImageEditAdapter は依存関係を注入して ImageEditAdapter を初期化します。
func NewImageEditAdapter(aiClient gemini.GenerativeModel, model string) (*ImageEditAdapter, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient (gemini.GenerativeModel) is required")
	}
	if model == "" {
		model = DefaultEditModel
	}
	return &ImageEditAdapter{aiClient: aiClient, model: model}, nil
}

// Edit は元画像 (インラインバイナリ) と指示 (テキスト) をこの順で1回だけ送信し、
// 応答パーツのうち最初のインライン画像を PNG として返します。
func (a *ImageEditAdapter) Edit(ctx context.Context, req domain.EditRequest) (*domain.ImageResult, error) {
	parts := []*genai.Part{
		toInlinePart(req.Image, req.MimeType),
		genai.NewPartFromText(req.Instruction),
	}

	slog.DebugContext(ctx, "Gemini 編集リクエスト", "model", a.model, "source_mime_type", parts[0].InlineData.MIMEType, "source_bytes", len(req.Image))

	resp, err := a.aiClient.GenerateWithParts(ctx, a.model, parts, gemini.GenerateOptions{})
	if err != nil {
		return nil, &domain.RemoteServiceError{Op: "edit", Err: err}
	}

	var raw *genai.GenerateContentResponse
	if resp != nil {
		raw = resp.RawResponse
	}

	data, ok := firstInlineImage(ResponseParts(raw))
	if !ok {
		return nil, &domain.NoImageError{
			Message: "No image returned from edit operation.",
			Reason:  abnormalFinishReason(raw),
		}
	}

	return &domain.ImageResult{
		Data:     data,
		MimeType: domain.EditedImageMimeType,
	}, nil
}
