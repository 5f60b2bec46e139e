package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestSetupWithWriter_JSON(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "info")
	var buf bytes.Buffer
	l := SetupWithWriter(&buf)

	l.Debug("hidden")
	l.Info("dataset_load_ok", "rows", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "dataset_load_ok", rec["msg"])
	assert.EqualValues(t, 3, rec["rows"])
	assert.Same(t, l, L())
}

func TestAccessMiddleware(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")
	var buf bytes.Buffer
	l := SetupWithWriter(&buf)

	h := AccessMiddleware(l, "sid")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hello"))
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/filters?settle=true", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "abc"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "http_access", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "/api/filters", entry["path"])
	assert.Equal(t, "settle=true", entry["query"])
	assert.Equal(t, "abc", entry["sid"])
	assert.EqualValues(t, http.StatusTeapot, entry["status"])
	assert.EqualValues(t, 5, entry["bytes"])
}

func TestAccessMiddleware_ProbesStayQuiet(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "info")
	var buf bytes.Buffer
	l := SetupWithWriter(&buf)

	h := AccessMiddleware(l, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	assert.Empty(t, buf.String())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/view", nil))
	assert.Contains(t, buf.String(), `"path":"/api/view"`)
}

func TestAccessLevel(t *testing.T) {
	assert.Equal(t, slog.LevelError, accessLevel("/api/view", http.StatusInternalServerError))
	assert.Equal(t, slog.LevelWarn, accessLevel("/api/healthz", http.StatusServiceUnavailable))
	assert.Equal(t, slog.LevelWarn, accessLevel("/api/view", http.StatusNotFound))
	assert.Equal(t, slog.LevelDebug, accessLevel("/api/metrics", http.StatusOK))
	assert.Equal(t, slog.LevelInfo, accessLevel("/api/filters", http.StatusOK))
}
