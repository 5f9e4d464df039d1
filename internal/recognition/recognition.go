// Package recognition fans segment audio out to the fingerprint provider and
// collects per-segment match records. Provider payloads are cached on disk so
// a retried ingestion run never pays for the same segment twice.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tracklist/internal/logging"
	"tracklist/internal/segmenter"
	"tracklist/internal/services/shazam"
	"tracklist/internal/tracklist"
)

const (
	defaultConcurrency    = 30
	defaultRequestTimeout = 20 * time.Second
	defaultMaxRetries     = 3
	baseBackoff           = 500 * time.Millisecond
)

// Orchestrator drives concurrent fingerprint lookups over a segment plan.
type Orchestrator struct {
	recognizer  shazam.Recognizer
	logger      *slog.Logger
	concurrency int
	timeout     time.Duration
	maxRetries  int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency caps the number of in-flight provider requests.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithRequestTimeout bounds a single provider call, not the whole run.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMaxRetries sets attempts per segment before it is recorded unmatched.
func WithMaxRetries(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an orchestrator around a fingerprint recognizer.
func New(recognizer shazam.Recognizer, opts ...Option) (*Orchestrator, error) {
	if recognizer == nil {
		return nil, errors.New("recognizer is required")
	}
	o := &Orchestrator{
		recognizer:  recognizer,
		logger:      logging.NewNop(),
		concurrency: defaultConcurrency,
		timeout:     defaultRequestTimeout,
		maxRetries:  defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run fingerprints every segment in the plan. Segment audio is read from
// segmentPaths (index-aligned with the plan) and raw provider payloads are
// written under cacheDir. A segment whose retries are exhausted becomes an
// unmatched record rather than failing the run.
func (o *Orchestrator) Run(ctx context.Context, plan []segmenter.Segment, segmentPaths []string, cacheDir string) ([]tracklist.RawMatch, error) {
	if len(plan) != len(segmentPaths) {
		return nil, fmt.Errorf("plan has %d segments but %d audio files were provided", len(plan), len(segmentPaths))
	}
	if len(plan) == 0 {
		return nil, errors.New("nothing to recognize")
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create recognition cache dir: %w", err)
	}

	matches := make([]tracklist.RawMatch, len(plan))
	jobs := make(chan int, len(plan))
	for i := range plan {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	workers := o.concurrency
	if workers > len(plan) {
		workers = len(plan)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				match, err := o.recognizeSegment(ctx, plan[i], segmentPaths[i], cacheDir)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				mu.Lock()
				matches[i] = match
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

// recognizeSegment resolves one segment, preferring a cached payload. Only
// infrastructure problems (unreadable audio, unwritable cache) are errors;
// provider failures degrade to an unmatched record.
func (o *Orchestrator) recognizeSegment(ctx context.Context, seg segmenter.Segment, audioPath, cacheDir string) (tracklist.RawMatch, error) {
	cachePath := filepath.Join(cacheDir, cacheFileName(seg.Index))

	if result, ok := o.cachedResult(cachePath); ok {
		return tracklist.NewRawMatch(seg.Index, seg.StartSec, seg.EndSec, result.Match), nil
	}

	sample, err := os.ReadFile(audioPath)
	if err != nil {
		return tracklist.RawMatch{}, fmt.Errorf("read segment audio: %w", err)
	}

	result, err := o.recognizeWithRetry(ctx, seg.Index, sample)
	if err != nil {
		if ctx.Err() != nil {
			return tracklist.RawMatch{}, ctx.Err()
		}
		o.logger.Warn("segment unmatched after retries",
			logging.Int("segment", seg.Index),
			logging.Error(err))
		return tracklist.NewRawMatch(seg.Index, seg.StartSec, seg.EndSec, nil), nil
	}

	if len(result.Raw) > 0 {
		if err := os.WriteFile(cachePath, result.Raw, 0o644); err != nil {
			return tracklist.RawMatch{}, fmt.Errorf("cache recognition payload: %w", err)
		}
	}
	return tracklist.NewRawMatch(seg.Index, seg.StartSec, seg.EndSec, result.Match), nil
}

func (o *Orchestrator) recognizeWithRetry(ctx context.Context, index int, sample []byte) (*shazam.Result, error) {
	var lastErr error
	for attempt := 1; attempt <= o.maxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		result, err := o.recognizer.Recognize(callCtx, sample)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < o.maxRetries {
			o.logger.Debug("recognition attempt failed",
				logging.Int("segment", index),
				logging.Int("attempt", attempt),
				logging.Error(err))
			select {
			case <-time.After(backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func (o *Orchestrator) cachedResult(path string) (*shazam.Result, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			o.logger.Warn("discarding unreadable recognition cache", logging.String("path", path), logging.Error(err))
		}
		return nil, false
	}
	result, err := shazam.ParseResult(raw)
	if err != nil {
		o.logger.Warn("discarding corrupt recognition cache", logging.String("path", path), logging.Error(err))
		return nil, false
	}
	return result, true
}

func cacheFileName(index int) string {
	return fmt.Sprintf("segment_%04d.json", index)
}

// backoff grows exponentially with a jitter so concurrent retries spread out.
func backoff(attempt int) time.Duration {
	d := baseBackoff << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(baseBackoff)))
	return d + jitter
}
