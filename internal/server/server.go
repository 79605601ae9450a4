// Package server exposes the dashboard session state machine over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/atrium/internal/authstate"
	"github.com/smallbiznis/atrium/internal/bootstrap"
	"github.com/smallbiznis/atrium/internal/config"
	"github.com/smallbiznis/atrium/internal/observability"
	obsmiddleware "github.com/smallbiznis/atrium/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/atrium/internal/observability/metrics"
	obstracing "github.com/smallbiznis/atrium/internal/observability/tracing"
	profiledomain "github.com/smallbiznis/atrium/internal/profile/domain"
	"github.com/smallbiznis/atrium/internal/ratelimit"
	"github.com/smallbiznis/atrium/internal/routeauth"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{Debug: obsCfg.Debug()}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", obsmetrics.Handler(registry))

	return r
}

func run(lc fx.Lifecycle, log *zap.Logger, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	ctrl         *authstate.Controller
	store        profiledomain.Store
	authorizer   *routeauth.Authorizer
	bootstrapper *bootstrap.Bootstrapper
	loginLimiter *ratelimit.LoginLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Ctrl         *authstate.Controller
	Store        profiledomain.Store
	Authorizer   *routeauth.Authorizer
	Bootstrapper *bootstrap.Bootstrapper
	LoginLimiter *ratelimit.LoginLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("server"),
		ctrl:         p.Ctrl,
		store:        p.Store,
		authorizer:   p.Authorizer,
		bootstrapper: p.Bootstrapper,
		loginLimiter: p.LoginLimiter,
	}

	s.registerAuthRoutes()
	s.registerProfileRoutes()
	s.registerAdminRoutes()
	s.registerSetupRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/v1/auth")

	auth.POST("/signup", s.Signup)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/state", s.State)
	auth.POST("/password/reset", s.ResetPassword)
	auth.PUT("/password", s.Guard(), s.UpdatePassword)
}

func (s *Server) registerProfileRoutes() {
	s.engine.PATCH("/v1/profile", s.Guard(), s.UpdateProfile)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/v1/admin", s.Guard())

	admin.GET("/users", s.ListUsers)
	admin.DELETE("/users/:id", s.DeleteUser)
}

func (s *Server) registerSetupRoutes() {
	setup := s.engine.Group("/v1/setup")

	setup.GET("/status", s.SetupStatus)
	setup.POST("/run", s.SetupRun)
}
