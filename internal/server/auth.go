package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/atrium/internal/authstate"
	"go.uber.org/zap"
)

type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetPasswordRequest struct {
	Email string `json:"email"`
}

type UpdatePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

func (s *Server) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		AbortWithError(c, newValidationError("username", "required", "username is required"))
		return
	}

	err := s.ctrl.SignUp(c.Request.Context(), strings.TrimSpace(req.Email), req.Password, authstate.ProfileSeed{
		Username:  username,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Bio:       strings.TrimSpace(req.Bio),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "registered"})
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	email := strings.TrimSpace(req.Email)

	allowed, retryAfter, err := s.loginLimiter.Allow(c.Request.Context(), email, c.ClientIP())
	if err != nil {
		s.log.Warn("login rate limiter unavailable", zap.Error(err))
	}
	if !allowed {
		if retryAfter > 0 {
			c.Header("Retry-After", formatSeconds(retryAfter))
		}
		AbortWithError(c, errTooManyAttempts)
		return
	}

	if err := s.ctrl.SignIn(c.Request.Context(), email, req.Password); err != nil {
		AbortWithError(c, err)
		return
	}

	target := s.authorizer.ConsumeIntendedPath()
	c.JSON(http.StatusOK, gin.H{
		"status":   "authenticated",
		"location": target,
	})
}

func (s *Server) Logout(c *gin.Context) {
	if err := s.ctrl.SignOut(c.Request.Context()); err != nil {
		// Local state is already cleared; the client is logged out either
		// way, so report success with the revocation caveat.
		s.log.Warn("session revocation failed during logout", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"status": "signed_out"})
}

func (s *Server) State(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		AbortWithError(c, newValidationError("email", "required", "email is required"))
		return
	}

	if err := s.ctrl.ResetPassword(c.Request.Context(), strings.TrimSpace(req.Email)); err != nil {
		AbortWithError(c, err)
		return
	}

	// Same answer whether or not the account exists.
	c.JSON(http.StatusAccepted, gin.H{"status": "reset_requested"})
}

func (s *Server) UpdatePassword(c *gin.Context) {
	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	if err := s.ctrl.UpdatePassword(c.Request.Context(), req.NewPassword); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "password_updated"})
}

func formatSeconds(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
