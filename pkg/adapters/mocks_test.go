package adapters

import (
	"context"

	"github.com/shouni/nano-banana-studio/pkg/domain"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// mockAIClient は gemini.GenerativeModel のテスト用モックです。
// 使わないメソッドは埋め込んだインターフェースで解決します。
type mockAIClient struct {
	gemini.GenerativeModel
	generateFunc func(model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
	calls        int
}

func (m *mockAIClient) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	m.calls++
	if m.generateFunc != nil {
		return m.generateFunc(model, parts, opts)
	}
	return nil, nil
}

// mockImagen は ImagenModel のテスト用モックです。
type mockImagen struct {
	generateFunc func(model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
	calls        int
}

func (m *mockImagen) GenerateImages(ctx context.Context, model string, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	m.calls++
	if m.generateFunc != nil {
		return m.generateFunc(model, prompt, cfg)
	}
	return nil, nil
}

// contentResponse は最初の候補に parts を持つ応答を組み立てます。
func contentResponse(parts ...*genai.Part) *gemini.Response {
	return &gemini.Response{
		RawResponse: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: parts}},
			},
		},
	}
}

func imagePart(mime string, data []byte) *genai.Part {
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mime, Data: data}}
}

func editRequestFixture() domain.EditRequest {
	return domain.EditRequest{
		Image:       []byte("\x89PNG\r\n\x1a\nsource"),
		MimeType:    "image/png",
		Instruction: "Add a retro filter",
	}
}
