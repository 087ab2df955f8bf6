package server

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"teef/internal/config"
	"teef/internal/handler"
	"teef/internal/repository"
	"teef/internal/service"
)

type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	log        *zap.Logger
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	var store repository.ArchiveStore
	if cfg.S3.Enabled {
		s3Repo, err := repository.NewS3Repository(ctx, &cfg.S3, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 repository: %w", err)
		}
		store = s3Repo
	}

	annotationService := service.NewAnnotationService(store, cfg, log)

	h := handler.NewHandler(annotationService, cfg, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	router.LoadHTMLGlob(filepath.Join(cfg.App.TemplateDir, "*"))
	registerRoutes(router, h)
	router.Static("/static", cfg.App.StaticDir)

	server := &Server{
		httpServer: &http.Server{
			Addr:           cfg.Server.Host + ":" + cfg.Server.Port,
			Handler:        router,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: 1 << 20, // 1 MB
		},
		cfg: cfg,
		log: log,
	}

	log.Info("Server created successfully",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.String("image_dir", cfg.App.ImageDir),
		zap.String("mask_dir", cfg.App.MaskDir),
		zap.Bool("s3_backup", cfg.S3.Enabled))

	return server, nil
}

func registerRoutes(router gin.IRouter, h *handler.Handler) {
	router.GET("/", h.GetUI)
	router.GET("/health", h.HealthCheck)
	router.GET("/get_image_pair", h.GetImagePair)
	router.GET("/image/:collection/:filename", h.ServeImage)
	router.POST("/save_mask", h.SaveMask)
	router.POST("/download_all", h.DownloadAll)

	api := router.Group("/api")
	{
		api.GET("/images", h.ListImages)
		api.GET("/exports", h.ListExports)
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Debug("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Run() error {
	s.log.Info("Server is running",
		zap.String("host", s.cfg.Server.Host),
		zap.String("port", s.cfg.Server.Port),
		zap.String("address", s.httpServer.Addr))

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down server")
	return s.httpServer.Shutdown(ctx)
}
