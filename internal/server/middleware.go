package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shouni/nano-banana-studio/internal/studio"

	"github.com/go-chi/chi/v5/middleware"
)

// SessionCookieName はセッション ID を保持する Cookie の名前です。
const SessionCookieName = "nano_banana_session"

type contextKey string

const workspaceKey contextKey = "workspace"

func sessionID(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// withSession は Cookie からワークスペースを解決し、無ければ新しいセッションを発行します。
// 状態を変更するルートにのみ使います。
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ws, created := s.sessions.Resolve(sessionID(r))
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), workspaceKey, ws)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// lookupSession は既存のセッションがあればワークスペースを渡します。
// セッションは作成しないため、ワークスペースが nil のこともあります。
func (s *Server) lookupSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := sessionID(r); id != "" {
			if ws, ok := s.sessions.Get(id); ok {
				r = r.WithContext(context.WithValue(r.Context(), workspaceKey, ws))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func workspaceFrom(ctx context.Context) *studio.Workspace {
	ws, _ := ctx.Value(workspaceKey).(*studio.Workspace)
	return ws
}

// requestLogger はリクエストごとにステータスと所要時間を slog に出力します。
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
