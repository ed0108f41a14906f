package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/frontdesk/internal/authorization"
	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"github.com/smallbiznis/frontdesk/internal/autocheckout/export"
	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/smallbiznis/frontdesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/frontdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/frontdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/frontdesk/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(obsmetrics.GinMiddleware(httpMetrics))
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http.server.start", zap.String("addr", addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	autoCheckoutSvc domain.Service
	exporter        *export.Exporter
	authzSvc        authorization.Service
	settings        *config.AutoCheckoutHolder
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	AutoCheckoutSvc domain.Service
	Exporter        *export.Exporter
	AuthzSvc        authorization.Service
	Settings        *config.AutoCheckoutHolder
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		autoCheckoutSvc: p.AutoCheckoutSvc,
		exporter:        p.Exporter,
		authzSvc:        p.AuthzSvc,
		settings:        p.Settings,
	}

	svc.registerAdminRoutes()
	svc.registerInternalRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin/auto-checkout")
	admin.Use(OperatorContext())

	admin.GET("/prompt", s.authorizeAction(authorization.ObjectAutoCheckout, authorization.ActionView), s.CheckPrompt)
	admin.POST("/prompt/ack", s.authorizeAction(authorization.ObjectAutoCheckout, authorization.ActionView), s.AckPrompt)
	admin.POST("/confirm", s.authorizeAction(authorization.ObjectAutoCheckout, authorization.ActionConfirm), s.ConfirmAutoCheckout)
	admin.GET("/status", s.authorizeAction(authorization.ObjectAutoCheckout, authorization.ActionView), s.GetAutoCheckoutStatus)
	admin.GET("/settings", s.authorizeAction(authorization.ObjectAutoCheckout, authorization.ActionView), s.GetAutoCheckoutSettings)
	admin.GET("/executions", s.authorizeAction(authorization.ObjectAutoCheckout, authorization.ActionView), s.ListExecutions)
	admin.GET("/logs", s.authorizeAction(authorization.ObjectAutoCheckout, authorization.ActionView), s.ListCheckoutLogs)
	admin.GET("/logs/export", s.authorizeAction(authorization.ObjectAutoCheckout, authorization.ActionExport), s.ExportCheckoutLogs)
	admin.POST("/reset", s.authorizeAction(authorization.ObjectAutoCheckout, authorization.ActionReset), s.ResetAutoCheckout)
}

func (s *Server) registerInternalRoutes() {
	internal := s.engine.Group("/internal/auto-checkout")
	internal.Use(s.FallbackTokenRequired())

	internal.POST("/fallback", s.authorizeAction(authorization.ObjectFallback, authorization.ActionFallback), s.RunFallback)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
