package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bji/txingest-classifier/internal/classifier"
)

// APIHandler exposes the owner goroutine's State as a read-only HTTP
// surface (§4.K). It never mutates State; every handler reads a point-in-
// time Snapshot, so the debug API can never block or race with the ingest
// owner goroutine.
type APIHandler struct {
	state *classifier.State
	wsHub *GroupStreamHub
}

// SetupRouter builds the gin.Engine for the optional debug API, gated by
// the caller on DEBUG_API_ADDR being set (§4.K).
func SetupRouter(state *classifier.State, wsHub *GroupStreamHub) *gin.Engine {
	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{state: state, wsHub: wsHub}

	// Public: liveness and the live group-change feed.
	r.GET("/healthz", handler.handleHealthz)
	r.GET("/stream", wsHub.Subscribe)

	// Protected: point-in-time reads, rate-limited per IP.
	protected := r.Group("/")
	protected.Use(AuthMiddleware())
	protected.Use(NewRateLimiter(60, 10).Middleware())
	{
		protected.GET("/groups", handler.handleGroups)
		protected.GET("/peers", handler.handlePeers)
	}

	return r
}

func (h *APIHandler) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleGroups returns the membership, as of the last snapshot, of every
// group that has had a member added; a configured group that has never
// matched is not listed.
func (h *APIHandler) handleGroups(c *gin.Context) {
	snap := h.state.Snapshot()
	out := make(map[string]map[string]uint64, len(snap.Groups))
	for name, members := range snap.Groups {
		m := make(map[string]uint64, len(members))
		for ip, expiry := range members {
			m[ip.String()] = expiry
		}
		out[name] = m
	}
	c.JSON(http.StatusOK, gin.H{"groups": out})
}

// handlePeers returns the current peer table.
func (h *APIHandler) handlePeers(c *gin.Context) {
	snap := h.state.Snapshot()
	c.JSON(http.StatusOK, gin.H{"peers": snap.Peers, "leaderStatus": snap.LeaderStatus})
}
