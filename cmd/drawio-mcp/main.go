package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rendis/drawio-mcp/internal/export"
	"github.com/rendis/drawio-mcp/internal/expressions"
	"github.com/rendis/drawio-mcp/internal/httpapi"
	"github.com/rendis/drawio-mcp/internal/janitor"
	"github.com/rendis/drawio-mcp/internal/logging"
	"github.com/rendis/drawio-mcp/internal/mxgraph"
	"github.com/rendis/drawio-mcp/internal/store"
	"github.com/rendis/drawio-mcp/pkg/mcp"
)

const usage = `usage: drawio-mcp [command] [flags]

commands:
  serve     run the MCP server (default)
  install   write ~/.drawio-mcp/settings.json
  version   print the version
`

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		runServe(args)
	case "install":
		runInstall(args)
	case "version":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	transport := fs.String("transport", "", "override the configured transport: stdio or http")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *transport != "" {
		cfg.Transport = *transport
		if err := validateConfig(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	// stdout carries the stdio transport, so logs always go to stderr.
	inner := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logging.ParseLevel(level)})
	return slog.New(logging.NewCorrelationHandler(inner))
}

func run(ctx context.Context, cfg Config) error {
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	diagrams := store.NewMemoryStore(store.MemoryOptions{
		TTL:    cfg.TTL(),
		Scheme: cfg.ResourceScheme,
		Logger: logger,
	})
	defer diagrams.Close()

	var saveLog store.SaveLog
	if cfg.DBPath != "" {
		l, err := openSaveLog(ctx, cfg.DBPath)
		if err != nil {
			return err
		}
		defer l.Close()
		saveLog = l
	} else {
		logger.Info("save log disabled")
	}

	var viewer export.Viewer = export.NopViewer{}
	if cfg.OpenViewer {
		viewer = export.NewDesktopViewer(logger)
	}

	wrapper := mxgraph.NewWrapper(mxgraph.DeflateCodec{})
	filter := expressions.NewExprEngine()

	srv, err := mcp.NewDrawioServer(mcp.DrawioServerDeps{
		Store:             diagrams,
		SaveLog:           saveLog,
		Scheme:            cfg.ResourceScheme,
		Wrapper:           wrapper,
		Filter:            filter,
		TempWriter:        export.NewWriter(cfg.TempDir),
		SaveWriter:        export.NewWriter(cfg.SaveDir),
		Viewer:            viewer,
		StrictConnections: cfg.StrictConnections,
		Version:           version,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	jan, err := janitor.New(diagrams, janitor.Options{
		Schedule: cfg.ReapSchedule,
		TempDir:  cfg.TempDir,
		MaxAge:   cfg.TTL(),
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	if err := jan.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = jan.Stop() }()

	logger.Info("drawio-mcp starting",
		slog.String("version", version),
		slog.String("transport", cfg.Transport),
		slog.Bool("strict_connections", cfg.StrictConnections),
	)

	if cfg.Transport == "http" {
		api := httpapi.New(httpapi.Deps{
			Store:   diagrams,
			SaveLog: saveLog,
			Filter:  filter,
			Wrapper: wrapper,
			MCP:     srv.HTTPHandler(),
			Logger:  logger,
		})
		return serveHTTP(ctx, api, cfg.ListenAddr)
	}
	return srv.Serve(ctx)
}

func openSaveLog(ctx context.Context, path string) (*store.LibSQLSaveLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create save log dir: %w", err)
	}
	l, err := store.NewLibSQLSaveLog("file:" + path)
	if err != nil {
		return nil, err
	}
	if err := l.Migrate(ctx); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("migrate save log: %w", err)
	}
	return l, nil
}

func serveHTTP(ctx context.Context, api *httpapi.Server, addr string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- api.Start(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return api.Shutdown(shutdownCtx)
	}
}
