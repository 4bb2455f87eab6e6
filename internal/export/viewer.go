package export

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Viewer opens a written diagram file. Open reports whether a viewer was
// started; failures are never errors.
type Viewer interface {
	Open(ctx context.Context, path string) bool
}

// NopViewer never opens anything.
type NopViewer struct{}

// Open implements Viewer.
func (NopViewer) Open(context.Context, string) bool { return false }

// DesktopViewer launches the draw.io desktop application.
type DesktopViewer struct {
	Logger *slog.Logger

	// lookPath, start and wait are replaced in tests.
	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
	start    func(cmd *exec.Cmd) error
	wait     func(cmd *exec.Cmd) error
	goos     string
}

// NewDesktopViewer returns a viewer using the local draw.io install.
func NewDesktopViewer(logger *slog.Logger) *DesktopViewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &DesktopViewer{
		Logger:   logger,
		lookPath: exec.LookPath,
		stat:     os.Stat,
		start:    func(cmd *exec.Cmd) error { return cmd.Start() },
		wait:     func(cmd *exec.Cmd) error { return cmd.Wait() },
		goos:     runtime.GOOS,
	}
}

// Locate returns the draw.io executable, or "" when none is installed.
func (v *DesktopViewer) Locate() string {
	for _, name := range []string{"drawio", "draw.io"} {
		if p, err := v.lookPath(name); err == nil {
			return p
		}
	}
	for _, p := range installPaths(v.goos) {
		if _, err := v.stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Open starts draw.io on path without waiting for it.
func (v *DesktopViewer) Open(ctx context.Context, path string) bool {
	app := v.Locate()
	if app == "" {
		v.Logger.DebugContext(ctx, "draw.io not found", slog.String("os", v.goos))
		return false
	}

	var cmd *exec.Cmd
	if v.goos == "darwin" && filepath.Ext(app) == ".app" {
		cmd = exec.Command("open", "-a", app, path)
	} else {
		cmd = exec.Command(app, path)
	}

	if err := v.start(cmd); err != nil {
		v.Logger.WarnContext(ctx, "failed to launch draw.io",
			slog.String("app", app),
			slog.String("error", err.Error()),
		)
		return false
	}
	// Reap the child once it exits so it does not linger as a zombie.
	go func() { _ = v.wait(cmd) }()
	return true
}

func installPaths(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"/Applications/draw.io.app"}
	case "windows":
		var out []string
		for _, env := range []string{"ProgramFiles", "ProgramFiles(x86)", "LOCALAPPDATA"} {
			if base := os.Getenv(env); base != "" {
				out = append(out, filepath.Join(base, "draw.io", "draw.io.exe"))
			}
		}
		return out
	default:
		return []string{
			"/usr/bin/drawio",
			"/usr/local/bin/drawio",
			"/opt/drawio/drawio",
			"/snap/bin/drawio",
		}
	}
}
