// Package export writes diagrams to disk and hands them to viewers.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rendis/drawio-mcp/internal/store"
	"github.com/rendis/drawio-mcp/pkg/schema"
)

// Extension of written diagram files.
const Extension = ".drawio"

// FileName returns "{sanitized title}_{unix ms}.drawio".
func FileName(title string, now time.Time) string {
	return store.SanitizeTitle(title) + "_" + strconv.FormatInt(now.UnixMilli(), 10) + Extension
}

// Writer writes diagram files into one directory.
type Writer struct {
	Dir string
	Now func() time.Time
}

// NewWriter returns a Writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Now: time.Now}
}

// Write creates Dir if needed and writes xml under a name derived from
// title. It returns the absolute path.
func (w *Writer) Write(xml, title string) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", schema.NewErrorf(schema.ErrCodeExport, "create directory %s", w.Dir).WithCause(err)
	}

	path := filepath.Join(w.Dir, FileName(title, w.now()))
	if err := os.WriteFile(path, []byte(xml), 0o644); err != nil {
		return "", schema.NewErrorf(schema.ErrCodeExport, "write %s", path).WithCause(err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

// PruneOlderThan removes diagram files in dir last modified before
// now - age, except those for which keep reports true. A nil keep prunes
// every stale file. A missing dir is not an error.
func PruneOlderThan(dir string, age time.Duration, now time.Time, keep func(path string) bool) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", dir, err)
	}

	cutoff := now.Add(-age)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if keep != nil && keep(path) {
			continue
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (w *Writer) now() time.Time {
	if w.Now == nil {
		return time.Now()
	}
	return w.Now()
}
