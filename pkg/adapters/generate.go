package adapters

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/nano-banana-studio/pkg/domain"

	"google.golang.org/genai"
)

// DefaultGenerateModel はテキストから画像を生成する Imagen モデルです。
const DefaultGenerateModel = "imagen-4.0-generate-001"

// ImagenModel はテキストから画像を生成するリモートサービスです。
// (*genai.Client).Models がそのまま満たします。
type ImagenModel interface {
	GenerateImages(ctx context.Context, model string, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// ImageGenerateAdapter はプロンプトとアスペクト比を Imagen へのリクエストに変換するアダプターです。
type ImageGenerateAdapter struct {
	client ImagenModel
	model  string
}

// NewImageGenerateAdapter は依存関係を注入して ImageGenerateAdapter を初期化します。
func NewImageGenerateAdapter(client ImagenModel, model string) (*ImageGenerateAdapter, error) {
	if client == nil {
		return nil, fmt.Errorf("client (ImagenModel) is required")
	}
	if model == "" {
		model = DefaultGenerateModel
	}
	return &ImageGenerateAdapter{client: client, model: model}, nil
}

// Generate は1回だけリクエストを送り、最初の生成画像を JPEG として返します。
// アスペクト比は検証せずにそのまま渡します。リトライは行いません。
func (a *ImageGenerateAdapter) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.ImageResult, error) {
	slog.DebugContext(ctx, "Imagen 生成リクエスト", "model", a.model, "aspect_ratio", req.AspectRatio)

	resp, err := a.client.GenerateImages(ctx, a.model, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: domain.GeneratedImageMimeType,
		AspectRatio:    req.AspectRatio,
	})
	if err != nil {
		return nil, &domain.RemoteServiceError{Op: "generate", Err: err}
	}

	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0] == nil {
		return nil, &domain.NoImageError{Message: "No image generated."}
	}
	first := resp.GeneratedImages[0]
	if first.Image == nil || len(first.Image.ImageBytes) == 0 {
		return nil, &domain.NoImageError{Message: "No image generated.", Reason: first.RAIFilteredReason}
	}

	return &domain.ImageResult{
		Data:     first.Image.ImageBytes,
		MimeType: domain.GeneratedImageMimeType,
	}, nil
}
