package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/shouni/nano-banana-studio/pkg/domain"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestNewImageEditAdapter(t *testing.T) {
	t.Run("nilチェック: クライアントが無い場合はエラー", func(t *testing.T) {
		_, err := NewImageEditAdapter(nil, "model")
		assert.Error(t, err)
	})

	t.Run("モデル名が空ならデフォルトを使う", func(t *testing.T) {
		a, err := NewImageEditAdapter(&mockAIClient{}, "")
		require.NoError(t, err)
		assert.Equal(t, DefaultEditModel, a.model)
	})
}

func TestImageEditAdapter_Edit(t *testing.T) {
	ctx := context.Background()
	source := []byte("\x89PNG\r\n\x1a\nsource")
	req := domain.EditRequest{Image: source, MimeType: "image/png", Instruction: "Make the sky purple"}

	t.Run("Success/SendsImageThenInstruction", func(t *testing.T) {
		ai := &mockAIClient{
			generateFunc: func(model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
				assert.Equal(t, "gemini-test", model)
				require.Len(t, parts, 2)
				require.NotNil(t, parts[0].InlineData)
				assert.Equal(t, source, parts[0].InlineData.Data)
				assert.Equal(t, "image/png", parts[0].InlineData.MIMEType)
				assert.Equal(t, req.Instruction, parts[1].Text)
				return contentResponse(imagePart("image/png", []byte("edited"))), nil
			},
		}
		adapter, err := NewImageEditAdapter(ai, "gemini-test")
		require.NoError(t, err)

		res, err := adapter.Edit(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, domain.EditedImageMimeType, res.MimeType)
		assert.Equal(t, "edited", string(res.Data))
		assert.Equal(t, 1, ai.calls)
	})

	t.Run("Success/TextFirstThenImage", func(t *testing.T) {
		ai := &mockAIClient{
			generateFunc: func(model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
				return contentResponse(
					&genai.Part{Text: "Here is the edited image"},
					imagePart("image/png", []byte("binary-part")),
				), nil
			},
		}
		adapter, _ := NewImageEditAdapter(ai, "")
		res, err := adapter.Edit(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "binary-part", string(res.Data))
	})

	t.Run("Success/FirstImageWins", func(t *testing.T) {
		ai := &mockAIClient{
			generateFunc: func(model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
				return contentResponse(
					imagePart("image/jpeg", []byte("first")),
					&genai.Part{Text: "and another"},
					imagePart("image/png", []byte("second")),
				), nil
			},
		}
		adapter, _ := NewImageEditAdapter(ai, "")
		res, err := adapter.Edit(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "first", string(res.Data))
		assert.Equal(t, "image/png", res.MimeType, "MIMEタイプは応答に関わらず固定")
	})

	t.Run("Success/SniffsMissingMimeType", func(t *testing.T) {
		var sent string
		ai := &mockAIClient{
			generateFunc: func(model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
				sent = parts[0].InlineData.MIMEType
				return contentResponse(imagePart("image/png", []byte("ok"))), nil
			},
		}
		adapter, _ := NewImageEditAdapter(ai, "")
		_, err := adapter.Edit(ctx, domain.EditRequest{Image: source, Instruction: "x"})
		require.NoError(t, err)
		assert.Equal(t, "image/png", sent)
	})

	t.Run("Failure/TextOnlyResponse", func(t *testing.T) {
		ai := &mockAIClient{
			generateFunc: func(model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
				return contentResponse(&genai.Part{Text: "I cannot edit this image."}, &genai.Part{Text: "Sorry."}), nil
			},
		}
		adapter, _ := NewImageEditAdapter(ai, "")
		res, err := adapter.Edit(ctx, req)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, domain.ErrNoImageProduced)
		assert.EqualError(t, err, "No image returned from edit operation.")
	})

	t.Run("Failure/EmptyResponses", func(t *testing.T) {
		responses := map[string]*gemini.Response{
			"nil応答":      nil,
			"RawResponse無し": {},
			"候補ゼロ件":      {RawResponse: &genai.GenerateContentResponse{}},
		}
		for name, resp := range responses {
			t.Run(name, func(t *testing.T) {
				ai := &mockAIClient{
					generateFunc: func(model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
						return resp, nil
					},
				}
				adapter, _ := NewImageEditAdapter(ai, "")
				_, err := adapter.Edit(ctx, req)
				assert.ErrorIs(t, err, domain.ErrNoImageProduced)
			})
		}
	})

	t.Run("Failure/SafetyFinishReason", func(t *testing.T) {
		ai := &mockAIClient{
			generateFunc: func(model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
				return &gemini.Response{RawResponse: &genai.GenerateContentResponse{
					Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
				}}, nil
			},
		}
		adapter, _ := NewImageEditAdapter(ai, "")
		_, err := adapter.Edit(ctx, req)
		assert.ErrorIs(t, err, domain.ErrNoImageProduced)
		assert.Contains(t, err.Error(), string(genai.FinishReasonSafety))
	})

	t.Run("Failure/RemoteServiceError", func(t *testing.T) {
		cause := errors.New("network unreachable")
		ai := &mockAIClient{
			generateFunc: func(model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
				return nil, cause
			},
		}
		adapter, _ := NewImageEditAdapter(ai, "")
		_, err := adapter.Edit(ctx, req)

		var remoteErr *domain.RemoteServiceError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, "edit", remoteErr.Op)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "network unreachable", err.Error())
		assert.Equal(t, 1, ai.calls, "リトライしない")
	})
}
