package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxpilot/internal/apierror"
	"github.com/teemow/inboxpilot/internal/auth"
	"github.com/teemow/inboxpilot/internal/user"
)

type pingStore struct {
	*user.MemoryStore
	err error
}

func (s pingStore) Ping(context.Context) error { return s.err }

func TestServerContext_UserID(t *testing.T) {
	sc := NewServerContext(context.Background(), Deps{})
	_, err := sc.UserID(context.Background())
	assert.True(t, apierror.IsUnauthorized(err))

	sc = NewServerContext(context.Background(), Deps{DefaultUserID: "stdio-user"})
	id, err := sc.UserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stdio-user", id)

	id, err = sc.UserID(auth.WithUserID(context.Background(), "session-user"))
	require.NoError(t, err)
	assert.Equal(t, "session-user", id)
}

func TestServerContext_Shutdown(t *testing.T) {
	sc := NewServerContext(context.Background(), Deps{})
	assert.False(t, sc.IsShutdown())
	require.NoError(t, sc.Shutdown())
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.Error(t, sc.Context().Err())
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name      string
		store     user.Store
		shutdown  bool
		notReady  bool
		wantCode  int
		wantCheck map[string]string
	}{
		{
			name:      "memory store",
			store:     user.NewMemoryStore(),
			wantCode:  http.StatusOK,
			wantCheck: map[string]string{"ready": "ok", "shutdown": "ok", "store": "ok"},
		},
		{
			name:      "store unreachable",
			store:     pingStore{MemoryStore: user.NewMemoryStore(), err: errors.New("down")},
			wantCode:  http.StatusServiceUnavailable,
			wantCheck: map[string]string{"ready": "ok", "shutdown": "ok", "store": "unreachable"},
		},
		{
			name:      "shutting down",
			store:     user.NewMemoryStore(),
			shutdown:  true,
			wantCode:  http.StatusServiceUnavailable,
			wantCheck: map[string]string{"ready": "ok", "shutdown": "shutting down", "store": "ok"},
		},
		{
			name:      "not ready",
			store:     user.NewMemoryStore(),
			notReady:  true,
			wantCode:  http.StatusServiceUnavailable,
			wantCheck: map[string]string{"ready": "not ready", "shutdown": "ok", "store": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := NewServerContext(context.Background(), Deps{Store: tt.store})
			if tt.shutdown {
				require.NoError(t, sc.Shutdown())
			}
			h := NewHealthChecker(sc)
			h.SetReady(!tt.notReady)

			rec := httptest.NewRecorder()
			h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCheck, resp.Checks)
		})
	}
}

func TestHTTPServer_Routes(t *testing.T) {
	store := user.NewMemoryStore()
	sc := NewServerContext(context.Background(), Deps{Store: store})
	mcpSrv := mcpserver.NewMCPServer("test", "0.0.0")

	_, err := NewHTTPServer(mcpSrv, sc, HTTPConfig{})
	require.Error(t, err)

	srv, err := NewHTTPServer(mcpSrv, sc, HTTPConfig{Tokens: auth.NewTokens("s3cret", time.Hour)})
	require.NoError(t, err)
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.False(t, srv.HealthChecker().IsReady())
}

func TestHealthChecker_Detailed(t *testing.T) {
	sc := NewServerContext(context.Background(), Deps{Store: user.NewMemoryStore()})
	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Uptime)
	assert.Equal(t, "ok", resp.Checks["store"])

	require.NoError(t, sc.Shutdown())
	rec = httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "shutting down", resp.Status)
}
