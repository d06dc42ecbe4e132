package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// GeneratedImageMimeType は Imagen から受け取る生成画像の固定フォーマットです。
	GeneratedImageMimeType = "image/jpeg"
	// EditedImageMimeType は Gemini の画像編集モデルが返すコンテナ形式です。
	EditedImageMimeType = "image/png"
	// MaxSourceImageBytes は編集元画像として受け付ける上限サイズ (4MB) です。
	MaxSourceImageBytes = 4 * 1024 * 1024
	// FileTooLargeMessage は元画像が上限を超えた場合に表示する文言です。
	FileTooLargeMessage = "File size too large. Please use an image under 4MB."
)

// GenerationRequest はテキストから画像を生成する単一の要求です。
type GenerationRequest struct {
	Prompt      string
	AspectRatio string
}

// Validate は呼び出し側で行う入力チェックです。アダプター自身は検証しません。
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return &ValidationError{Field: "prompt", Message: "Please describe the image to generate."}
	}
	if !IsSupportedAspectRatio(r.AspectRatio) {
		return &ValidationError{
			Field:   "aspectRatio",
			Message: fmt.Sprintf("Unsupported aspect ratio %q.", r.AspectRatio),
		}
	}
	return nil
}

// EditRequest は既存画像を自然言語の指示で編集する単一の要求です。
type EditRequest struct {
	Image       []byte
	MimeType    string
	Instruction string
}

// Validate はサイズ上限・MIMEタイプ・指示文の有無を確認します。
func (r EditRequest) Validate() error {
	if len(r.Image) == 0 {
		return &ValidationError{Field: "image", Message: "Please upload a source image."}
	}
	if len(r.Image) > MaxSourceImageBytes {
		return &ValidationError{Field: "image", Message: FileTooLargeMessage}
	}
	if r.MimeType != "" && !strings.HasPrefix(r.MimeType, "image/") {
		return &ValidationError{Field: "image", Message: fmt.Sprintf("Unsupported file type %q.", r.MimeType)}
	}
	return ValidateInstruction(r.Instruction)
}

// ValidateInstruction は編集の指示文が空白だけでないことを確認します。
func ValidateInstruction(instruction string) error {
	if strings.TrimSpace(instruction) == "" {
		return &ValidationError{Field: "instruction", Message: "Please describe the edit to apply."}
	}
	return nil
}

// ImageResult はアダプターが返す表示・ダウンロード用の画像です。
type ImageResult struct {
	Data     []byte
	MimeType string
}

// DataURL はブラウザがそのまま表示できる data URL に変換します。
func (r ImageResult) DataURL() string {
	return "data:" + r.MimeType + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// FileExtension はダウンロード時のファイル拡張子を返します。
func (r ImageResult) FileExtension() string {
	switch r.MimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}

// ParseDataURL は DataURL の逆変換です。base64 形式の data URL のみ扱います。
func ParseDataURL(s string) (ImageResult, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return ImageResult{}, fmt.Errorf("data URL must start with \"data:\"")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return ImageResult{}, fmt.Errorf("data URL has no payload separator")
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return ImageResult{}, fmt.Errorf("only base64 data URLs are supported")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return ImageResult{}, fmt.Errorf("data URL payload decode: %w", err)
	}
	return ImageResult{Data: data, MimeType: mimeType}, nil
}
