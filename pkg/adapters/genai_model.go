package adapters

import (
	"bytes"
	"context"
	"fmt"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// GenAIModel は *genai.Client を gemini.GenerativeModel として扱うためのブリッジです。
type GenAIModel struct {
	client *genai.Client
}

var _ gemini.GenerativeModel = (*GenAIModel)(nil)

// NewGenAIModel は genai クライアントを包んだ GenAIModel を返します。
func NewGenAIModel(client *genai.Client) (*GenAIModel, error) {
	if client == nil {
		return nil, fmt.Errorf("genai client is required")
	}
	return &GenAIModel{client: client}, nil
}

// GenerateContent はテキストのみのプロンプトでコンテンツを生成します。
func (m *GenAIModel) GenerateContent(ctx context.Context, modelName string, prompt string) (*gemini.Response, error) {
	resp, err := m.client.Models.GenerateContent(ctx, modelName, genai.Text(prompt), nil)
	if err != nil {
		return nil, err
	}
	return &gemini.Response{RawResponse: resp}, nil
}

// GenerateWithParts はパーツ群を1つのユーザーコンテンツにまとめて送信します。
// 画像を受け取るため、応答モダリティにはテキストと画像の両方を指定します。
// opts のうち反映するのは AspectRatio, SystemPrompt, Seed のみです。
func (m *GenAIModel) GenerateWithParts(ctx context.Context, modelName string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
	}
	if opts.AspectRatio != "" {
		config.ImageConfig = &genai.ImageConfig{AspectRatio: opts.AspectRatio}
	}
	if opts.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(opts.SystemPrompt, genai.RoleUser)
	}
	config.Seed = seedToPtrInt32(opts.Seed)

	resp, err := m.client.Models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		return nil, err
	}
	return &gemini.Response{RawResponse: resp}, nil
}

// UploadFile は File API にアップロードし、参照用の URI と削除用の Name を返します。
func (m *GenAIModel) UploadFile(ctx context.Context, data []byte, mimeType, displayName string) (string, string, error) {
	file, err := m.client.Files.Upload(ctx, bytes.NewReader(data), &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: displayName,
	})
	if err != nil {
		return "", "", err
	}
	return file.URI, file.Name, nil
}

// DeleteFile は File API 上のファイルを削除します。
func (m *GenAIModel) DeleteFile(ctx context.Context, fileName string) error {
	_, err := m.client.Files.Delete(ctx, fileName, nil)
	return err
}

// seedToPtrInt32 はシード値を SDK 用の *int32 に変換します。
// int32 の範囲を超える値は上位ビットが切り捨てられます。
func seedToPtrInt32[T ~int32 | ~int64](seed *T) *int32 {
	if seed == nil {
		return nil
	}
	v := int32(*seed)
	return &v
}
