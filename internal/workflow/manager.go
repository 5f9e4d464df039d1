// Package workflow drives the queue state machine: validating submissions,
// claiming pending entries for ingestion, and sweeping elapsed premieres back
// into circulation.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tracklist/internal/config"
	"tracklist/internal/logging"
	"tracklist/internal/queue"
	"tracklist/internal/services"
)

// maxAttempts bounds transient retries before an entry parks as failed and
// waits for an operator 'queue retry'.
const maxAttempts = 5

// Processor runs the ingestion pipeline for one claimed entry.
type Processor interface {
	Process(ctx context.Context, entry *queue.Entry) error
}

// Manager owns the daemon's worker loops.
type Manager struct {
	cfg       *config.Config
	store     *queue.Store
	processor Processor
	validator MetadataSource
	logger    *slog.Logger

	pollInterval  time.Duration
	errorInterval time.Duration
	sweepInterval time.Duration
}

// New wires a manager.
func New(cfg *config.Config, store *queue.Store, processor Processor, validator MetadataSource, logger *slog.Logger) (*Manager, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("config and store are required")
	}
	if processor == nil {
		return nil, errors.New("processor is required")
	}
	if validator == nil {
		return nil, errors.New("metadata source is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:           cfg,
		store:         store,
		processor:     processor,
		validator:     validator,
		logger:        logger,
		pollInterval:  intervalSeconds(cfg.Workflow.QueuePollInterval, 10*time.Second),
		errorInterval: intervalSeconds(cfg.Workflow.ErrorRetryInterval, 30*time.Second),
		sweepInterval: intervalSeconds(cfg.Workflow.PremiereSweepInterval, time.Minute),
	}, nil
}

func intervalSeconds(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Run blocks until the context is cancelled, driving all worker loops.
func (m *Manager) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	workers := m.cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			m.claimLoop(ctx, id)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		m.validateLoop(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		m.sweepLoop(ctx)
	}()

	wg.Wait()
	return ctx.Err()
}

func (m *Manager) claimLoop(ctx context.Context, worker int) {
	logger := m.logger.With(logging.Int("worker", worker))
	for {
		processed, err := m.ProcessNext(ctx)
		if ctx.Err() != nil {
			return
		}
		switch {
		case err != nil:
			logger.Error("claim worker iteration failed", logging.Error(err))
			if !sleepCtx(ctx, m.errorInterval) {
				return
			}
		case !processed:
			if !sleepCtx(ctx, m.pollInterval) {
				return
			}
		}
	}
}

func (m *Manager) validateLoop(ctx context.Context) {
	for {
		validated, err := m.ValidateNext(ctx)
		if ctx.Err() != nil {
			return
		}
		switch {
		case err != nil:
			m.logger.Error("validation iteration failed", logging.Error(err))
			if !sleepCtx(ctx, m.errorInterval) {
				return
			}
		case !validated:
			if !sleepCtx(ctx, m.pollInterval) {
				return
			}
		}
	}
}

func (m *Manager) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			moved, err := m.store.SweepPremieres(ctx, time.Now())
			if err != nil {
				m.logger.Error("premiere sweep failed", logging.Error(err))
				continue
			}
			if moved > 0 {
				m.logger.Info("premieres released", logging.Int64("entries", moved))
			}
		}
	}
}

// ProcessNext claims the oldest pending entry and runs the pipeline on it.
// The boolean reports whether an entry was handled.
func (m *Manager) ProcessNext(ctx context.Context) (bool, error) {
	entry, err := m.store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}

	token := uuid.NewString()
	claimed, err := m.store.Claim(ctx, entry.ID, token)
	if err != nil {
		return false, err
	}
	if !claimed {
		// Another worker won; treat as handled so the loop re-polls at once.
		return true, nil
	}

	entry, err = m.store.GetByID(ctx, entry.ID)
	if err != nil {
		return true, err
	}
	if entry == nil {
		return true, nil
	}

	runCtx := services.WithRunID(services.WithVideoID(ctx, entry.VideoID), token)
	logger := m.logger.With(
		logging.String(logging.FieldVideoID, entry.VideoID),
		logging.String(logging.FieldRunID, token))
	logger.Info("processing entry", logging.Int64("id", entry.ID), logging.Int("attempts", entry.NAttempts))

	processErr := m.processor.Process(runCtx, entry)
	if finalizeErr := m.finalize(ctx, logger, entry, processErr); finalizeErr != nil {
		return true, finalizeErr
	}
	return true, nil
}

// finalize maps a pipeline result onto a queue transition.
func (m *Manager) finalize(ctx context.Context, logger *slog.Logger, entry *queue.Entry, processErr error) error {
	if processErr == nil {
		logger.Info("entry done")
		return m.store.MarkDone(ctx, entry.ID)
	}

	reason := services.CleanReason(services.Reason(processErr), entry.VideoID)
	outcome := services.Classify(processErr, time.Now())
	switch outcome.Kind {
	case services.OutcomeDeferred:
		logger.Info("entry deferred", logging.String("reason", reason))
		return m.store.DeferPremiere(ctx, entry.ID, outcome.Until, reason)
	case services.OutcomeTransient:
		if entry.NAttempts+1 >= maxAttempts {
			logger.Warn("entry failed after repeated attempts", logging.String("reason", reason))
			return m.store.MarkFailed(ctx, entry.ID, reason)
		}
		logger.Warn("entry requeued", logging.String("reason", reason))
		return m.store.Requeue(ctx, entry.ID, reason)
	default:
		logger.Warn("entry discarded", logging.String("reason", reason))
		return m.store.MarkDiscarded(ctx, entry.ID, reason)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
