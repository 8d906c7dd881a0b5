package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmizin/computer-inventory/internal/metrics"
)

const ctxAPIKeyID = "apiKeyID"

func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		metrics.APIRequestDurationSummary.With(
			map[string]string{
				"method": c.Request.Method,
				"route":  route,
				"status": strconv.Itoa(c.Writer.Status()),
			},
		).Observe(time.Since(start).Seconds())
	}
}

// apiKeyAuth guards mutating routes. The presented key is compared against
// bcrypt hashes from the api_keys table and any extra hashes in configuration.
func (s *Server) apiKeyAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := presentedKey(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			return
		}

		keys, err := s.repository.ActiveAPIKeys(c.Request.Context())
		if err != nil {
			s.logger.WithError(err).Error("listing API keys")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})

			return
		}

		for _, stored := range keys {
			if bcrypt.CompareHashAndPassword([]byte(stored.KeyHash), []byte(key)) == nil {
				c.Set(ctxAPIKeyID, stored.ID)
				c.Next()

				return
			}
		}

		for _, hash := range s.cfg.APIKeyHashes {
			if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
	}
}

func presentedKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}

	authorization := c.GetHeader("Authorization")
	if strings.HasPrefix(authorization, "Bearer ") {
		return strings.TrimPrefix(authorization, "Bearer ")
	}

	return ""
}

// actorKeyID returns the authenticated API key id for audit attribution,
// nil for keys configured outside the database.
func actorKeyID(c *gin.Context) *uuid.UUID {
	v, ok := c.Get(ctxAPIKeyID)
	if !ok {
		return nil
	}

	id, ok := v.(uuid.UUID)
	if !ok {
		return nil
	}

	return &id
}
