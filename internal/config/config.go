// Package config はコマンドラインフラグ・環境変数・.env ファイルから起動設定を組み立てます。
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// AppName はバイナリ名およびメトリクスのサービス名です。
const AppName = "nano-banana-studio"

// Config はアプリケーションの起動設定です。
// API キーは起動時に一度だけ読み込まれ、以降は変更されません。
type Config struct {
	APIKey         string        `name:"api-key" env:"API_KEY,GEMINI_API_KEY" help:"Gemini API key."`
	Addr           string        `name:"addr" env:"STUDIO_ADDR" default:":8080" help:"HTTP listen address."`
	GenerateModel  string        `name:"generate-model" env:"STUDIO_GENERATE_MODEL" default:"imagen-4.0-generate-001" help:"Model used for text-to-image generation."`
	EditModel      string        `name:"edit-model" env:"STUDIO_EDIT_MODEL" default:"gemini-2.5-flash-image" help:"Model used for image editing."`
	RequestTimeout time.Duration `name:"request-timeout" env:"STUDIO_REQUEST_TIMEOUT" default:"2m" help:"Timeout for a single remote call."`
	SessionTTL     time.Duration `name:"session-ttl" env:"STUDIO_SESSION_TTL" default:"1h" help:"Idle time after which a browser session is discarded."`
	MaxSessions    int           `name:"max-sessions" env:"STUDIO_MAX_SESSIONS" default:"1000" help:"Maximum number of browser sessions kept in memory."`
	LogLevel       string        `name:"log-level" env:"LOG_LEVEL" default:"info" enum:"debug,info,warn,error" help:"Log level (debug|info|warn|error)."`
	LogFormat      string        `name:"log-format" env:"LOG_FORMAT" default:"json" enum:"json,text" help:"Log format (json|text)."`
}

// Parse は .env を読み込んだ後に args を解析し、必須項目を検証します。
// envFiles を省略した場合はカレントディレクトリの .env を使います。
func Parse(args []string, stdout, stderr io.Writer, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		// ファイルが無くても環境変数で設定できるため続行する
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf(".env の読み込みに失敗しました: %w", err)
		}
		slog.Debug(".env file not found, using process environment")
	}

	var c Config
	parser, err := kong.New(&c,
		kong.Name(AppName),
		kong.Description("Generate and edit images with Gemini from your browser."),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return nil, fmt.Errorf("parser の作成に失敗しました: %w", err)
	}
	if _, err := parser.Parse(args); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate は必須項目と値の範囲を確認します。
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("API key is not set: use --api-key, API_KEY or GEMINI_API_KEY")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.SessionTTL)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("max sessions must be positive, got %d", c.MaxSessions)
	}
	return nil
}

// Level は LogLevel を slog.Level に変換します。
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger は設定に従った slog.Logger を返します。
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
