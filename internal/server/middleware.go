package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/ppiankov/truthlens/internal/worker"
)

const allowHeaders = "authorization, x-client-info, apikey, content-type"

// cors sets the browser headers on every response and answers preflight
// requests directly.
func cors(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// rateLimit rejects clients that exceed their token bucket
func rateLimit(limiter *worker.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Please try again later."})
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := log.DebugLevel
		if status >= http.StatusInternalServerError {
			level = log.WarnLevel
		}
		s.logger.Log(level, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"client", c.ClientIP(),
			"took", time.Since(start).Round(time.Millisecond),
		)
	}
}
