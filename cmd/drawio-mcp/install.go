package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

// runInstall writes settings.json from flags. Fields left unset keep their
// defaults.
func runInstall(args []string) {
	def := defaultConfig()

	fs := flag.NewFlagSet("install", flag.ExitOnError)
	transport := fs.String("transport", def.Transport, "transport: stdio or http")
	listenAddr := fs.String("listen-addr", def.ListenAddr, "TCP listen address for the http transport")
	dbPath := fs.String("db-path", def.DBPath, "save log database path (empty disables the save log)")
	logLevel := fs.String("log-level", def.LogLevel, "log level: debug, info, warn, error")
	saveDir := fs.String("save-dir", def.SaveDir, "directory for save_diagram")
	openViewer := fs.Bool("open-viewer", def.OpenViewer, "open generated diagrams in the desktop app")
	strict := fs.Bool("strict-connections", def.StrictConnections, "reject connections to unknown element ids")
	ttl := fs.String("diagram-ttl", def.DiagramTTL, "idle time before a cached diagram expires")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg := def
	cfg.Transport = *transport
	cfg.ListenAddr = *listenAddr
	cfg.DBPath = *dbPath
	cfg.LogLevel = *logLevel
	cfg.SaveDir = *saveDir
	cfg.OpenViewer = *openViewer
	cfg.StrictConnections = *strict
	cfg.DiagramTTL = *ttl

	if err := validateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	path, err := writeSettings(drawioDir(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Config written to %s\n", path)
}

func writeSettings(dir string, cfg Config) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("cannot create %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("cannot write %s: %w", path, err)
	}
	return path, nil
}
