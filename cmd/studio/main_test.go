package main

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	for _, k := range []string{"API_KEY", "GEMINI_API_KEY", "STUDIO_ADDR"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	t.Run("APIキーが無い場合は起動しない", func(t *testing.T) {
		err := run(context.Background(), nil, &bytes.Buffer{}, &bytes.Buffer{})
		assert.ErrorContains(t, err, "API key is not set")
	})

	t.Run("コンテキスト終了で正常停止する", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var stderr bytes.Buffer
		err := run(ctx, []string{"--api-key", "test", "--addr", "127.0.0.1:0", "--log-format", "text"}, &bytes.Buffer{}, &stderr)
		assert.NoError(t, err)
		assert.Contains(t, stderr.String(), "サーバーを停止します")
	})
}
