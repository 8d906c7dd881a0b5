package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// healthVault reports vault connectivity explicitly. This is the one endpoint
// where vault failures surface to a caller instead of being logged and
// swallowed.
func (s *Server) healthVault(c *gin.Context) {
	if !s.syncer.Enabled() {
		c.JSON(http.StatusOK, gin.H{"enabled": false, "status": "disabled"})
		return
	}

	if err := s.syncer.TestConnectivity(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"enabled": true,
			"status":  "unreachable",
			"error":   err.Error(),
		})

		return
	}

	c.JSON(http.StatusOK, gin.H{"enabled": true, "status": "ok"})
}
