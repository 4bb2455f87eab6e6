// Package janitor periodically evicts idle diagrams from the cache and prunes
// stale temp exports.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/drawio-mcp/internal/export"
	"github.com/rendis/drawio-mcp/internal/store"
	"github.com/rendis/drawio-mcp/pkg/schema"
)

// DefaultSchedule runs the janitor every ten minutes.
const DefaultSchedule = "@every 10m"

// ErrRunning is returned by RunOnce when another run is still in flight.
var ErrRunning = errors.New("janitor: run already in progress")

// Sweeper evicts expired entries and reports how many were removed. List
// reports the surviving entries; temp exports they point at are never pruned.
// Satisfied by store.DiagramStore.
type Sweeper interface {
	Sweep() int
	List() []store.Metadata
}

// Options configures a Janitor.
type Options struct {
	Schedule string        // cron spec or descriptor; DefaultSchedule when empty
	TempDir  string        // temp export directory; pruning is skipped when empty
	MaxAge   time.Duration // temp exports older than this are removed
	Logger   *slog.Logger
	Now      func() time.Time
}

// Report summarizes a single run.
type Report struct {
	Swept  int
	Pruned int
}

// Janitor runs cleanup on a cron schedule.
type Janitor struct {
	sweeper  Sweeper
	schedule cron.Schedule
	tempDir  string
	maxAge   time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	running atomic.Bool
}

// ParseSchedule parses a standard five-field cron expression or a descriptor
// such as "@every 10m" or "@hourly".
func ParseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "parse cron expression %q", spec).
			WithField("reap_schedule").WithCause(err)
	}
	return schedule, nil
}

// New creates a Janitor. The schedule is parsed eagerly.
func New(sweeper Sweeper, opts Options) (*Janitor, error) {
	spec := opts.Schedule
	if spec == "" {
		spec = DefaultSchedule
	}
	schedule, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Janitor{
		sweeper:  sweeper,
		schedule: schedule,
		tempDir:  opts.TempDir,
		maxAge:   opts.MaxAge,
		logger:   logger.With(slog.String("component", "janitor")),
		now:      now,
	}, nil
}

// Start launches the background loop.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.done != nil {
		j.mu.Unlock()
		return fmt.Errorf("janitor already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.done = make(chan struct{})
	done := j.done
	j.mu.Unlock()

	go j.loop(loopCtx, done)
	j.logger.Info("janitor started")
	return nil
}

func (j *Janitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		now := j.now()
		wait := j.schedule.Next(now).Sub(now)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := j.RunOnce(ctx); err != nil && !errors.Is(err, ErrRunning) {
				j.logger.Error("janitor run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Stop shuts the loop down and waits for it to exit.
func (j *Janitor) Stop() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cancel == nil {
		return nil
	}

	j.cancel()
	<-j.done
	j.cancel = nil
	j.done = nil

	j.logger.Info("janitor stopped")
	return nil
}

// RunOnce sweeps the store and prunes temp exports synchronously. It returns
// ErrRunning without doing anything if a run is already in flight.
func (j *Janitor) RunOnce(ctx context.Context) (Report, error) {
	if !j.running.CompareAndSwap(false, true) {
		return Report{}, ErrRunning
	}
	defer j.running.Store(false)

	var report Report
	report.Swept = j.sweeper.Sweep()

	if j.tempDir != "" && j.maxAge > 0 {
		pruned, err := export.PruneOlderThan(j.tempDir, j.maxAge, j.now(), j.referenced())
		report.Pruned = pruned
		if err != nil {
			return report, err
		}
	}

	if report.Swept > 0 || report.Pruned > 0 {
		j.logger.InfoContext(ctx, "janitor run",
			slog.Int("swept", report.Swept),
			slog.Int("pruned", report.Pruned),
		)
	}
	return report, nil
}

// referenced returns a matcher for the temp files cached diagrams still point at.
func (j *Janitor) referenced() func(string) bool {
	paths := make(map[string]struct{})
	for _, m := range j.sweeper.List() {
		if m.FilePath != "" {
			paths[filepath.Clean(m.FilePath)] = struct{}{}
		}
	}
	return func(path string) bool {
		_, ok := paths[filepath.Clean(path)]
		return ok
	}
}
