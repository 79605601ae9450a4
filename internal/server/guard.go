package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/atrium/internal/routeauth"
)

// Guard translates route policy decisions into HTTP outcomes. It never
// guesses while the session is still resolving: guarded routes answer
// 503 with a short retry hint instead of leaking a premature verdict.
func (s *Server) Guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := s.ctrl.Snapshot()
		decision := s.authorizer.Authorize(c.Request.URL.Path, routeauth.Subject{
			Loading:       snap.Loading,
			Authenticated: snap.Authenticated,
			Admin:         snap.Admin,
		})

		switch decision.Action {
		case routeauth.ActionAllow:
			c.Next()

		case routeauth.ActionShowLoading:
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"status": "loading",
			})

		case routeauth.ActionRedirectToLogin:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    gin.H{"type": "unauthorized", "message": "authentication required"},
				"location": decision.Target,
			})

		case routeauth.ActionRedirectToHome:
			c.Redirect(http.StatusSeeOther, decision.Target)
			c.Abort()

		case routeauth.ActionShowForbidden:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"type": "forbidden", "message": "administrator access required"},
			})

		default:
			c.AbortWithStatus(http.StatusInternalServerError)
		}
	}
}
