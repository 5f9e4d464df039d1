// Package daemon ties the stores and the workflow manager together behind a
// single-instance file lock.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"

	"tracklist/internal/config"
	"tracklist/internal/logging"
	"tracklist/internal/queue"
	"tracklist/internal/workflow"
)

// ErrAlreadyRunning reports that another daemon instance holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Daemon runs the background pipeline and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	store    *queue.Store
	manager  *workflow.Manager
	logger   *slog.Logger
	lockPath string
	lock     *flock.Flock
}

// New builds a daemon around an already-wired workflow manager.
func New(cfg *config.Config, store *queue.Store, manager *workflow.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || manager == nil {
		return nil, errors.New("config, store, and manager are required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "tracklistd.lock")
	return &Daemon{
		cfg:      cfg,
		store:    store,
		manager:  manager,
		logger:   logger,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Run acquires the instance lock, recovers entries stranded in processing by
// a previous crash, and drives the workflow manager until the context ends.
func (d *Daemon) Run(ctx context.Context) error {
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	reset, err := d.store.ResetStuckProcessing(ctx)
	if err != nil {
		return fmt.Errorf("reset stuck entries: %w", err)
	}
	if reset > 0 {
		d.logger.Info("recovered stranded entries", logging.Int64("entries", reset))
	}

	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return d.manager.Run(ctx)
}
