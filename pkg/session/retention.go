package session

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionPolicy configures the session-file sweeper.
type RetentionPolicy struct {
	// MaxAge is how long session files are kept. Zero disables sweeping.
	MaxAge time.Duration

	// Interval between sweeps. Defaults to an hour.
	Interval time.Duration
}

// Retention periodically removes session files older than the policy's
// MaxAge from the dump directory. Sweeps are idempotent; the newest
// files — including the live session being written — are never eligible.
type Retention struct {
	dumpDir string
	policy  RetentionPolicy

	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger
}

// NewRetention creates a sweeper over the given dump directory.
func NewRetention(dumpDir string, policy RetentionPolicy) *Retention {
	if policy.Interval <= 0 {
		policy.Interval = time.Hour
	}
	return &Retention{
		dumpDir: dumpDir,
		policy:  policy,
		logger:  slog.Default(),
	}
}

// Start launches the background sweep loop. No-op when MaxAge is zero
// or the sweeper is already running.
func (r *Retention) Start(ctx context.Context) {
	if r.cancel != nil || r.policy.MaxAge <= 0 {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go r.run(ctx)

	r.logger.Info("Session retention sweeper started",
		"dump_dir", r.dumpDir,
		"max_age", r.policy.MaxAge,
		"interval", r.policy.Interval)
}

// Stop signals the loop to exit and waits for it to finish.
func (r *Retention) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
}

func (r *Retention) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.policy.Interval)
	defer ticker.Stop()

	// One sweep at startup, then on every tick.
	r.Sweep(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(time.Now())
		}
	}
}

// Sweep removes session files (and orphaned temp files) whose
// modification time is older than now - MaxAge. Returns the number of
// files removed.
func (r *Retention) Sweep(now time.Time) int {
	entries, err := os.ReadDir(r.dumpDir)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("Retention sweep failed to read dump dir",
				"dump_dir", r.dumpDir, "error", err)
		}
		return 0
	}

	cutoff := now.Add(-r.policy.MaxAge)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "session_") {
			continue
		}
		if !strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".tmp") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(r.dumpDir, name)
		if err := os.Remove(path); err != nil {
			r.logger.Warn("Retention sweep failed to remove file",
				"path", path, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		r.logger.Info("Retention sweep removed expired session files",
			"dump_dir", r.dumpDir, "removed", removed)
	}
	return removed
}
