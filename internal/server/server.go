package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"asset-uploader/docs"
	"asset-uploader/internal/config"
	"asset-uploader/internal/handlers"
	"asset-uploader/internal/middleware"
)

// Server wraps the gin engine with graceful shutdown.
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	log    zerolog.Logger
}

func New(cfg *config.Config, log zerolog.Logger, assets *handlers.AssetsHandler, checks ...handlers.DependencyCheck) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	configureSwagger(cfg.BaseURL)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logging(log.With().Str("component", "http").Logger()),
		middleware.Metrics(),
	)

	engine.GET("/health", handlers.HealthHandler)
	engine.GET("/ready", handlers.ReadinessHandler(checks...))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	engine.POST("/asset", assets.CreateAsset)
	engine.PUT("/asset/:id", assets.CompleteAsset)
	engine.GET("/asset/:id", assets.GetAsset)
	engine.DELETE("/asset/:id", assets.DeleteAsset)

	return &Server{
		cfg:    cfg,
		engine: engine,
		log:    log,
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests for up to ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// configureSwagger points the Swagger UI at the externally visible host.
func configureSwagger(baseURL string) {
	if baseURL == "" {
		return
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return
	}
	docs.SwaggerInfo.Host = parsed.Host
	if parsed.Scheme == "https" {
		docs.SwaggerInfo.Schemes = []string{"https", "http"}
	} else {
		docs.SwaggerInfo.Schemes = []string{"http", "https"}
	}
}
