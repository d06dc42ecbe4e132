// Package server はブラウザ向けの画面と JSON / multipart の API を提供します。
package server

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/shouni/nano-banana-studio/internal/studio"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed web/index.html
var webFS embed.FS

var pageTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

// Server は studio.Service を HTTP に公開するハンドラー群です。
type Server struct {
	svc      *studio.Service
	sessions *studio.Sessions
	metrics  http.Handler
	now      func() time.Time
}

// Option は Server の任意設定です。
type Option func(*Server)

// WithMetricsHandler は /metrics に割り当てるハンドラーを設定します。
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// New は Server を初期化します。
func New(svc *studio.Service, sessions *studio.Sessions, opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		sessions: sessions,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes はルーティング済みの http.Handler を返します。
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger,
	)

	r.Get("/healthz", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Get("/", s.index)
	r.Route("/api", func(r chi.Router) {
		r.Get("/aspect-ratios", s.aspectRatios)

		r.Group(func(r chi.Router) {
			r.Use(s.withSession)
			r.Post("/generate", s.generate)
			r.Post("/edit", s.edit)
			r.Put("/edit/source", s.putSource)
		})

		// 参照と削除ではセッションを作らない
		r.Group(func(r chi.Router) {
			r.Use(s.lookupSession)
			r.Delete("/edit/source", s.deleteSource)
			r.Route("/results/{operation}", func(r chi.Router) {
				r.Get("/", s.getResult)
				r.Get("/download", s.download)
				r.Delete("/", s.clearResult)
			})
		})
	})

	return r
}

// HTTPServer は http.Server の起動と停止をまとめたものです。
type HTTPServer struct {
	server *http.Server
}

// NewHTTPServer は addr で待ち受ける HTTPServer を返します。
// 書き込みタイムアウトはリモート呼び出しのタイムアウトより長くしておく必要があります。
func NewHTTPServer(addr string, handler http.Handler, writeTimeout time.Duration) *HTTPServer {
	return &HTTPServer{server: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       2 * time.Minute,
	}}
}

// Start は現在の goroutine でサーバーを起動します。Shutdown による停止はエラーにしません。
func (s *HTTPServer) Start() error {
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown はサーバーを正常に停止します。
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
