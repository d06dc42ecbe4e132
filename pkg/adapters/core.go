package adapters

import (
	"github.com/shouni/nano-banana-studio/pkg/imgutil"

	"google.golang.org/genai"
)

// PartKind は Gemini 応答パーツの種別です。
type PartKind int

const (
	PartKindOther PartKind = iota
	PartKindText
	PartKindInlineImage
)

func (k PartKind) String() string {
	switch k {
	case PartKindText:
		return "text"
	case PartKindInlineImage:
		return "inline_image"
	default:
		return "other"
	}
}

// ResponsePart は genai.Part を種別付きで扱うためのラッパーです。
// フィールドを直接覗かず、種別に対応するアクセサ経由で中身を取り出します。
type ResponsePart struct {
	Kind PartKind
	part *genai.Part
}

// InlineImage はインライン画像パーツであればそのバイト列と MIME タイプを返します。
func (p ResponsePart) InlineImage() ([]byte, string, bool) {
	if p.Kind != PartKindInlineImage {
		return nil, "", false
	}
	return p.part.InlineData.Data, p.part.InlineData.MIMEType, true
}

// Text はテキストパーツであればその文字列を返します。
func (p ResponsePart) Text() (string, bool) {
	if p.Kind != PartKindText {
		return "", false
	}
	return p.part.Text, true
}

func classifyPart(part *genai.Part) ResponsePart {
	switch {
	case part == nil:
		return ResponsePart{Kind: PartKindOther}
	case part.InlineData != nil && len(part.InlineData.Data) > 0:
		return ResponsePart{Kind: PartKindInlineImage, part: part}
	case part.Text != "":
		return ResponsePart{Kind: PartKindText, part: part}
	default:
		return ResponsePart{Kind: PartKindOther, part: part}
	}
}

// ResponseParts は最初の候補 (Candidate) のパーツを順番どおりに分類して返します。
// 現状、Gemini の画像編集では最初の候補のみを利用します。
func ResponseParts(resp *genai.GenerateContentResponse) []ResponsePart {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return nil
	}
	out := make([]ResponsePart, 0, len(candidate.Content.Parts))
	for _, part := range candidate.Content.Parts {
		out = append(out, classifyPart(part))
	}
	return out
}

// firstInlineImage は先頭から走査して最初に見つかったインライン画像を返します。
func firstInlineImage(parts []ResponsePart) ([]byte, bool) {
	for _, p := range parts {
		if data, _, ok := p.InlineImage(); ok {
			return data, true
		}
	}
	return nil, false
}

// abnormalFinishReason は安全フィルター等で生成が止まった場合にその理由を返します。
func abnormalFinishReason(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return ""
	}
	reason := resp.Candidates[0].FinishReason
	if reason == genai.FinishReasonUnspecified || reason == genai.FinishReasonStop {
		return ""
	}
	return string(reason)
}

// toInlinePart はバイト列を genai.Part (InlineData) に変換します。
// MIME タイプが指定されていない場合は内容から推定します。
func toInlinePart(data []byte, mimeType string) *genai.Part {
	if mimeType == "" {
		mimeType = imgutil.DetectMIME(data)
	}
	return &genai.Part{
		InlineData: &genai.Blob{
			MIMEType: mimeType,
			Data:     data,
		},
	}
}
