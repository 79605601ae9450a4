package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupStatus reports the last bootstrap outcome without mutating anything.
func (s *Server) SetupStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.bootstrapper.Last())
}

// SetupRun re-executes the bootstrap sequence. It is idempotent, so
// exposing it unauthenticated is safe: a finished setup reports complete
// and writes nothing.
func (s *Server) SetupRun(c *gin.Context) {
	result, err := s.bootstrapper.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusConflict, result)
		return
	}
	c.JSON(http.StatusOK, result)
}
