package logger

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap：供 http.ResponseController 取得底层 writer
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// probePaths：探活与指标抓取，成功时只在 debug 级别记录
var probePaths = []string{"/healthz", "/metrics"}

// AccessMiddleware：访问日志，级别随状态码升高（503 加载中按 warn 记录）
// 约束：不读取请求体；sessionCookie 非空时附带会话 ID，便于按会话追踪筛选操作；ip 取 RemoteAddr。
func AccessMiddleware(l *slog.Logger, sessionCookie string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.Int("bytes", sw.bytes),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("ip", r.RemoteAddr),
			}
			if r.URL.RawQuery != "" {
				attrs = append(attrs, slog.String("query", r.URL.RawQuery))
			}
			if sessionCookie != "" {
				if c, err := r.Cookie(sessionCookie); err == nil {
					attrs = append(attrs, slog.String("sid", c.Value))
				}
			}
			l.LogAttrs(context.Background(), accessLevel(r.URL.Path, sw.status), "http_access", attrs...)
		})
	}
}

func accessLevel(path string, status int) slog.Level {
	switch {
	case status >= 500 && status != http.StatusServiceUnavailable:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	}
	for _, p := range probePaths {
		if strings.HasSuffix(path, p) {
			return slog.LevelDebug
		}
	}
	return slog.LevelInfo
}
