package server

import (
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// ListUsers returns every profile, bounded by the admin list timeout so
// a slow table can never hang the admin screen open-endedly.
func (s *Server) ListUsers(c *gin.Context) {
	profiles, err := s.store.List(c.Request.Context(), s.cfg.AdminListTimeout)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": profiles,
		"total": len(profiles),
	})
}

func (s *Server) DeleteUser(c *gin.Context) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "id must be numeric"))
		return
	}

	snap := s.ctrl.Snapshot()
	if snap.Identity != nil && snap.Identity.ID == snowflake.ID(id) {
		AbortWithError(c, newValidationError("id", "self_delete", "administrators cannot delete their own account"))
		return
	}

	if err := s.store.Delete(c.Request.Context(), snowflake.ID(id)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
