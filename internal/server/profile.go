package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	FullName  *string `json:"full_name"`
	Bio       *string `json:"bio"`
}

// UpdateProfile patches the caller's own profile. Only whitelisted
// columns are writable; role and status stay out of reach.
func (s *Server) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	fields := map[string]any{}
	if req.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.FullName != nil {
		fields["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Bio != nil {
		fields["bio"] = strings.TrimSpace(*req.Bio)
	}
	if len(fields) == 0 {
		AbortWithError(c, newValidationError("request", "empty_update", "no updatable fields provided"))
		return
	}

	updated, err := s.ctrl.UpdateProfile(c.Request.Context(), fields)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}
