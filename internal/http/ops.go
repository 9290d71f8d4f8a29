package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dict-relay-bot/internal/common/logger"
	dictdomain "dict-relay-bot/internal/domain/dictionary"
	udomain "dict-relay-bot/internal/domain/user"
	rplatform "dict-relay-bot/internal/platform/redis"
)

// OpsServer exposes the deployment-facing endpoints: liveness, readiness
// and a small stats snapshot. It is not part of the relay itself.
type OpsServer struct {
	engine *gin.Engine
	addr   string
}

// NewOpsServer wires /healthz, /readyz and /stats. redisClient may be nil
// when the cache is disabled.
func NewOpsServer(addr string, db *sql.DB, redisClient *rplatform.Client, users udomain.Repository, dict dictdomain.Repository, debug bool) *OpsServer {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "dict-relay-bot",
		})
	})

	router.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "postgres unavailable",
				"details": err.Error(),
			})
			return
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unready",
					"error":   "redis unavailable",
					"details": err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "timestamp": time.Now().UTC()})
	})

	router.GET("/stats", func(c *gin.Context) {
		total, banned, err := users.Count(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count users"})
			return
		}
		entries, err := dict.Count(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count dictionary"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"users":              total,
			"banned_users":       banned,
			"dictionary_entries": entries,
		})
	})

	return &OpsServer{engine: router, addr: addr}
}

// Start runs the server until the listener fails; call it in a goroutine.
func (s *OpsServer) Start() {
	logger.Info().Str("addr", s.addr).Msg("Ops HTTP server listening")
	if err := s.engine.Run(s.addr); err != nil {
		logger.Error().Err(err).Msg("Ops HTTP server stopped")
	}
}
