package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"party-games/internal/api/ws"
)

// @Summary Liveness probe
// @Tags Ops
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// @Summary List open rooms of one game
// @Description Rooms still waiting for players. Summaries carry no hidden state.
// @Tags Room
// @Produce json
// @Param game path string true "doudizhu, qigui523, undercover or bomberman"
// @Success 200 {object} RoomsResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/{game}/rooms [get]
func RoomsHandler(games []Game) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("game")
		g, ok := lo.Find(games, func(g Game) bool { return g.Name == name })
		if !ok {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown game " + name})
			return
		}
		c.JSON(http.StatusOK, RoomsResponse{Game: g.Name, Rooms: g.Lobby()})
	}
}

// @Summary Server statistics
// @Tags Ops
// @Produce json
// @Success 200 {object} StatsResponse
// @Router /api/stats [get]
func StatsHandler(hub *ws.Hub, games []Game) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := hub.Stats()
		c.JSON(http.StatusOK, StatsResponse{
			Clients: st.Clients,
			Users:   st.Users,
			Rooms:   lo.SliceToMap(games, func(g Game) (string, int) { return g.Name, g.Rooms() }),
		})
	}
}
