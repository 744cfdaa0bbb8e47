package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"party-games/internal/config"
	"party-games/internal/game/bomberman"
)

type ConfigHandler struct {
	cfg config.Config
}

func NewConfigHandler(cfg config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// GetConfigHandler returns the client-facing timings
// @Summary Get game timings
// @Description Server-side timers the client mirrors, plus the bomberman map presets
// @Tags Config
// @Produce json
// @Success 200 {object} ConfigResponse
// @Router /api/config [get]
func (h *ConfigHandler) GetConfigHandler(c *gin.Context) {
	b := h.cfg.Bomberman
	c.JSON(http.StatusOK, ConfigResponse{
		Undercover: UndercoverTimings{DisconnectGrace: h.cfg.Undercover.DisconnectGrace.Milliseconds()},
		Bomberman: BombermanTimings{
			ExplosionTTL: b.ExplosionTTL.Milliseconds(),
			ChainDelay:   b.ChainDelay.Milliseconds(),
			PushDelay:    b.PushDelay.Milliseconds(),
			DyingTimeout: b.DyingTimeout.Milliseconds(),
			Maps:         bomberman.Maps(),
		},
	})
}
