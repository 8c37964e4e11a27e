package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"klinefetch/internal/tools"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Server serves the tool layer over HTTP under /api.
type Server struct {
	addr         string
	router       *gin.Engine
	readTimeout  time.Duration
	writeTimeout time.Duration
	logger       *zap.Logger
}

// ServerConfig describes the HTTP server's dependencies.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Tools        *tools.Service
	Logger       *zap.Logger
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Tools == nil {
		return nil, errors.New("http server requires a tool service")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":3001"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	NewRouter(cfg.Tools).Register(router.Group("/api"))

	return &Server{
		addr:         cfg.Addr,
		router:       router,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		logger:       cfg.Logger,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("http server listening", zap.String("addr", s.addr))

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			s.logger.Warn("http server shutdown", zap.Error(err))
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("dur", time.Since(start)),
		)
	}
}
