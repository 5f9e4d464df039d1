// Package segmenter slices a downloaded audio file into recognition-sized
// segments with ffmpeg, bounded by a worker pool.
package segmenter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"tracklist/internal/logging"
	"tracklist/internal/services"
)

// Segmenter exports planned segments from a source audio file.
type Segmenter struct {
	ffmpegBinary  string
	ffprobeBinary string
	workers       int
	logger        *slog.Logger
}

// New constructs a Segmenter. workers bounds concurrent ffmpeg processes.
func New(ffmpegBinary, ffprobeBinary string, workers int, logger *slog.Logger) *Segmenter {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Segmenter{
		ffmpegBinary:  ffmpegBinary,
		ffprobeBinary: ffprobeBinary,
		workers:       workers,
		logger:        logger,
	}
}

// ProbeDuration reads the source duration in seconds via ffprobe.
func (s *Segmenter) ProbeDuration(ctx context.Context, source string) (int, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		source,
	}
	cmd := exec.CommandContext(ctx, s.ffprobeBinary, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "segmenting", "ffprobe", "probe duration", err)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", strings.TrimSpace(string(output)), err)
	}
	return int(value), nil
}

// Export writes all planned segments beneath destDir, returning their paths in
// index order. Export already present on disk is reused.
func (s *Segmenter) Export(ctx context.Context, source, destDir string, plan []Segment) ([]string, error) {
	if len(plan) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create segments dir: %w", err)
	}

	paths := make([]string, len(plan))
	jobs := make(chan Segment, len(plan))
	for _, segment := range plan {
		jobs <- segment
	}
	close(jobs)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	workers := s.workers
	if workers > len(plan) {
		workers = len(plan)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for segment := range jobs {
				if ctx.Err() != nil {
					setErr(ctx.Err())
					return
				}
				dest := filepath.Join(destDir, FileName(segment.Index))
				paths[segment.Index] = dest
				if _, err := os.Stat(dest); err == nil {
					continue
				}
				if err := s.exportOne(ctx, source, dest, segment); err != nil {
					setErr(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	s.logger.Debug("exported segments", logging.Int("count", len(plan)), logging.String("dir", destDir))
	return paths, nil
}

// exportOne slices a single segment as mono 16 kHz opus, the shape the
// fingerprint API expects.
func (s *Segmenter) exportOne(ctx context.Context, source, dest string, segment Segment) error {
	duration := segment.EndSec - segment.StartSec
	if duration <= 0 {
		return fmt.Errorf("segment %d has non-positive duration", segment.Index)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(segment.StartSec),
		"-t", formatSeconds(duration),
		"-i", source,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "libopus",
		dest,
	}
	cmd := exec.CommandContext(ctx, s.ffmpegBinary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		detail := fmt.Sprintf("ffmpeg exited: %s", strings.TrimSpace(string(output)))
		return services.Wrap(services.ErrExternalTool, "segmenting", "ffmpeg", detail, err)
	}
	return nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}
