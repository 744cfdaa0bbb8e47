package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"party-games/internal/api/ws"
	"party-games/internal/config"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	hub := ws.NewHub(cfg.WS, zaptest.NewLogger(t))
	games := []Game{
		{Name: "bomberman", Lobby: func() any { return []string{"ABC123"} }, Rooms: func() int { return 2 }},
		{Name: "undercover", Lobby: func() any { return []string{} }, Rooms: func() int { return 0 }},
	}
	return NewRouter(hub, games, cfg, zaptest.NewLogger(t))
}

func get(t *testing.T, r *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHealth(t *testing.T) {
	w, body := get(t, newRouter(t), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestRooms(t *testing.T) {
	r := newRouter(t)
	w, body := get(t, r, "/api/bomberman/rooms")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"ABC123"}, body["rooms"])

	w, body = get(t, r, "/api/chess/rooms")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, body["error"], "chess")
}

func TestStats(t *testing.T) {
	w, body := get(t, newRouter(t), "/api/stats")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"bomberman": 2.0, "undercover": 0.0}, body["rooms"])
	assert.Equal(t, 0.0, body["clients"])
}

func TestConfig(t *testing.T) {
	w, body := get(t, newRouter(t), "/api/config")
	assert.Equal(t, http.StatusOK, w.Code)
	b := body["bomberman"].(map[string]any)
	assert.Equal(t, 6000.0, b["dyingTimeout"])
	assert.Len(t, b["maps"], 6)
}
