// Package server exposes the transcription app over HTTP: the embedded
// single-page UI plus the JSON and multipart API it talks to.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Config struct {
	// Addr is the listen address, host:port.
	Addr string
	// Origins are extra browser origins allowed to call the API.
	Origins []string
	// Version is reported by the health endpoint.
	Version string
}

// Deps carries the collaborators the handlers need.
type Deps struct {
	Service  Transcriber
	ModelDir string
	// DefaultModel is preselected in the UI; empty or unknown names fall
	// back to the registry default.
	DefaultModel string
	Logger       *zap.Logger
}

type Server struct {
	httpServer *http.Server
	listener   net.Listener
	logger     *zap.Logger
}

// New wires the router into an http.Server. Read and write timeouts stay
// unset because uploads and inference runs can take minutes; only header
// reads are bounded.
func New(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(cfg, deps),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: deps.Logger,
	}
}

// StartAsync binds the listen address and serves in the background, so the
// caller learns about bind failures immediately.
func (s *Server) StartAsync() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address once StartAsync has succeeded, which
// resolves a configured ":0" to the actual port.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping http server")
	return s.httpServer.Shutdown(ctx)
}
