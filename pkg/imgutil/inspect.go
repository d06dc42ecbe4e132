package imgutil

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
)

// Info はヘッダーから読み取れる画像の基本情報です。
type Info struct {
	Format   string
	MimeType string
	Width    int
	Height   int
}

// DetectMIME は内容から MIME タイプを推定します。
func DetectMIME(data []byte) string {
	return http.DetectContentType(data)
}

// Inspect は画像全体をデコードせず、ヘッダーだけを読んで形式とサイズを返します。
// image.DecodeConfig がサポートする形式 (PNG, JPEG, GIF) に対応しています。
func Inspect(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("画像として読み取れませんでした: %w", err)
	}
	return Info{
		Format:   format,
		MimeType: "image/" + format,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}
