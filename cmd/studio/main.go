package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shouni/nano-banana-studio/internal/config"
	"github.com/shouni/nano-banana-studio/internal/metrics"
	"github.com/shouni/nano-banana-studio/internal/server"
	"github.com/shouni/nano-banana-studio/internal/studio"
	"github.com/shouni/nano-banana-studio/pkg/adapters"

	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		slog.Error("起動に失敗しました", "error", err)
		os.Exit(1)
	}
}

// run は設定を読み込んで各コンポーネントを組み立て、ctx が終了するまでサーバーを動かします。
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Parse(args, stdout, stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(cfg.NewLogger(stderr))

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("genai クライアントの初期化に失敗しました: %w", err)
	}

	generator, err := adapters.NewImageGenerateAdapter(client.Models, cfg.GenerateModel)
	if err != nil {
		return err
	}
	aiModel, err := adapters.NewGenAIModel(client)
	if err != nil {
		return err
	}
	editor, err := adapters.NewImageEditAdapter(aiModel, cfg.EditModel)
	if err != nil {
		return err
	}

	recorder, err := metrics.New(config.AppName)
	if err != nil {
		return err
	}
	defer func() {
		if err := recorder.Shutdown(context.Background()); err != nil {
			slog.Warn("メトリクスの停止に失敗しました", "error", err)
		}
	}()

	svc, err := studio.NewService(generator, editor,
		studio.WithRecorder(recorder),
		studio.WithTimeout(cfg.RequestTimeout),
	)
	if err != nil {
		return err
	}
	sessions := studio.NewSessions(cfg.SessionTTL, studio.WithMaxSessions(cfg.MaxSessions))

	handler := server.New(svc, sessions, server.WithMetricsHandler(recorder.Handler())).Routes()
	httpSrv := server.NewHTTPServer(cfg.Addr, handler, cfg.RequestTimeout+30*time.Second)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("サーバーを起動します", "addr", cfg.Addr, "generate_model", cfg.GenerateModel, "edit_model", cfg.EditModel)
		return httpSrv.Start()
	})
	g.Go(func() error {
		return sessions.Run(gctx, sweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("サーバーを停止します")
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
