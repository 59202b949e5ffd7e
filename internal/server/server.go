package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"

	"nvrgate/internal/config"
	"nvrgate/internal/middleware"
)

// Routes registers the API under the given group.
type Routes interface {
	Register(router *gin.RouterGroup)
}

type HTTPServer struct {
	engine *gin.Engine
	server *http.Server
	log    zerolog.Logger
	cfg    *config.AppConfig
}

func NewHTTPServer(cfg *config.AppConfig, log zerolog.Logger, routes Routes) *HTTPServer {
	engine := NewEngine(cfg, log, routes)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ConnContext:  ConnContext,
	}

	return &HTTPServer{
		engine: engine,
		server: srv,
		log:    log,
		cfg:    cfg,
	}
}

// NewEngine builds the gin engine with the standard middleware chain.
func NewEngine(cfg *config.AppConfig, log zerolog.Logger, routes Routes) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	// Request objects reject members they do not define.
	binding.EnableDecoderDisallowUnknownFields = true

	engine := gin.New()
	engine.RedirectTrailingSlash = true
	engine.RedirectFixedPath = true

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recovery(log),
		middleware.CORS(cfg.AllowCORSOrigins),
	)

	routes.Register(engine.Group("/api"))
	return engine
}

func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Listen opens the configured TCP address or Unix socket. A stale socket file is
// replaced.
func (s *HTTPServer) Listen() (net.Listener, error) {
	if s.cfg.HTTP.Network == "unix" {
		path := s.cfg.HTTP.Socket
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}
		ln, err := net.Listen("unix", path)
		if err != nil {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}
		return ln, nil
	}
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen tcp %s: %w", s.server.Addr, err)
	}
	return ln, nil
}

func (s *HTTPServer) Start() error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *HTTPServer) Serve(ln net.Listener) error {
	s.log.Info().
		Str("network", ln.Addr().Network()).
		Str("addr", ln.Addr().String()).
		Msg("http server starting")

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.server.Shutdown(ctx)
}
