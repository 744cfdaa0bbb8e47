package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"party-games/internal/api/ws"
	"party-games/internal/config"
	"party-games/internal/logger"
)

// Game is what the REST surface needs from a mounted game module.
type Game struct {
	Name  string
	Lobby func() any
	Rooms func() int
}

func NewRouter(hub *ws.Hub, games []Game, cfg config.Config, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLog(log))

	// WebSocket for every game
	r.GET("/ws", hub.HandleWS)

	r.GET("/healthz", HealthHandler)

	api := r.Group("/api")
	api.GET("/:game/rooms", RoomsHandler(games))
	api.GET("/stats", StatsHandler(hub, games))
	api.GET("/config", NewConfigHandler(cfg).GetConfigHandler)

	return r
}

func requestLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/ws" {
			return
		}
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			logger.Since(start),
		)
	}
}
