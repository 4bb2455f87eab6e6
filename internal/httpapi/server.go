// Package httpapi serves cached diagrams over HTTP next to the MCP
// streamable transport.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rendis/drawio-mcp/internal/logging"
	"github.com/rendis/drawio-mcp/internal/mxgraph"
	"github.com/rendis/drawio-mcp/internal/store"
)

// Deps holds the dependencies for the HTTP server.
type Deps struct {
	Store   store.DiagramStore
	SaveLog store.SaveLog // optional; /saved answers 501 without it
	Filter  store.Matcher
	Wrapper *mxgraph.Wrapper
	MCP     http.Handler // mounted on /mcp when set
	Logger  *slog.Logger
}

// Server is the echo instance with every route registered.
type Server struct {
	deps Deps
	echo *echo.Echo
}

// New creates a Server.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if deps.Wrapper == nil {
		deps.Wrapper = mxgraph.NewWrapper(nil)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{deps: deps, echo: e}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(s.requestLogger)

	e.GET("/healthz", s.handleHealth)
	e.GET("/diagrams", s.handleListDiagrams)
	e.GET("/diagrams/:id", s.handleDownload)
	e.DELETE("/diagrams/:id", s.handleDelete)
	e.GET("/diagrams/:id/metadata", s.handleMetadata)
	e.GET("/diagrams/:id/source", s.handleSource)
	e.GET("/saved/:id", s.handleGetSaved)
	if deps.MCP != nil {
		e.Any("/mcp", echo.WrapHandler(deps.MCP))
	}

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown. http.ErrServerClosed is not an error.
func (s *Server) Start(addr string) error {
	s.deps.Logger.Info("http api listening", slog.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// requestLogger carries the request id into the request context and logs
// one line per request.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		id := c.Response().Header().Get(echo.HeaderXRequestID)
		ctx := logging.WithRequestID(req.Context(), id)
		c.SetRequest(req.WithContext(ctx))

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		s.deps.Logger.DebugContext(ctx, "http request",
			slog.String("method", req.Method),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().Status),
			slog.Duration("duration", time.Since(start)),
		)
		return nil
	}
}
