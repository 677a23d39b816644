package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	id := rec.Header().Get(headerRequestID)
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	require.NoError(t, err, "generated request id must be a uuid")
}

func TestRequestIDEchoedWhenProvided(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(headerRequestID, "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, "req-42", rec.Header().Get(headerRequestID))
}

func TestCORSAllowsLocalDevOrigin(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	t.Parallel()

	router := NewRouter(Config{Origins: []string{"http://tolka.example"}}, Deps{
		ModelDir: t.TempDir(),
		Logger:   zap.NewNop(),
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/transcribe", nil)
	req.Header.Set("Origin", "http://tolka.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://tolka.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequestLoggerRecordsStatusClass(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	router := NewRouter(Config{Version: "test"}, Deps{
		ModelDir: t.TempDir(),
		Logger:   zap.New(core),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	require.Equal(t, int64(http.StatusOK), fields["status"])
	require.Equal(t, http.MethodGet, fields["method"])
	require.Equal(t, "/api/health", fields["path"])
	require.NotEmpty(t, fields["request_id"])
}

func TestRequestLoggerWarnsOnClientErrors(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	router := NewRouter(Config{Version: "test"}, Deps{
		ModelDir: t.TempDir(),
		Logger:   zap.New(core),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/export", nil)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
}
