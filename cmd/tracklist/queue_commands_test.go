package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tracklist/internal/queue"
)

func TestQueueStatusAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if _, _, err := env.store.Submit(ctx, "dQw4w9WgXcQ", queue.SubmitOptions{}); err != nil {
		t.Fatalf("submit alpha: %v", err)
	}

	beta, _, err := env.store.Submit(ctx, "aaaaaaaaaaa", queue.SubmitOptions{})
	if err != nil {
		t.Fatalf("submit beta: %v", err)
	}
	beta.Status = queue.StatusFailed
	if err := env.store.Update(ctx, beta); err != nil {
		t.Fatalf("fail beta: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "prequeued")
	requireContains(t, out, "failed")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "dQw4w9WgXcQ")
	requireContains(t, out, "aaaaaaaaaaa")

	out, _, err = runCLI(t, []string{"queue", "list", "--status", "failed"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list filtered: %v", err)
	}
	requireContains(t, out, "aaaaaaaaaaa")
	if strings.Contains(out, "dQw4w9WgXcQ") {
		t.Fatalf("expected filtered list to omit prequeued entry, got:\n%s", out)
	}
}

func TestQueueRetryAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	alpha, _, err := env.store.Submit(ctx, "bbbbbbbbbbb", queue.SubmitOptions{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	alpha.VideoInfoJSON = `{"id":"bbbbbbbbbbb","duration":3600}`
	alpha.Status = queue.StatusFailed
	if err := env.store.Update(ctx, alpha); err != nil {
		t.Fatalf("fail alpha: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "retry"}, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Retried 1 failed entries")

	updated, err := env.store.GetByID(ctx, alpha.ID)
	if err != nil {
		t.Fatalf("lookup alpha: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending after retry, got %s", updated.Status)
	}

	if err := env.store.MarkDone(ctx, alpha.ID); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	beta, _, err := env.store.Submit(ctx, "ccccccccccc", queue.SubmitOptions{})
	if err != nil {
		t.Fatalf("submit beta: %v", err)
	}
	beta.Status = queue.StatusFailed
	if err := env.store.Update(ctx, beta); err != nil {
		t.Fatalf("fail beta: %v", err)
	}

	out, _, err = runCLI(t, []string{"queue", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 entries")

	stats, err := env.store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats[queue.StatusDone] != 0 {
		t.Fatalf("expected done entries removed, got %v", stats)
	}
	if stats[queue.StatusFailed] != 1 {
		t.Fatalf("expected failed entry retained after clear, got %v", stats)
	}
}

func TestQueueDiscardRemovesWorkdir(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	entry, _, err := env.store.Submit(ctx, "ccccccccccc", queue.SubmitOptions{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	workdir := entry.Workdir(env.cfg.Paths.StagingDir)
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		t.Fatalf("mkdir workdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workdir, "full.opus"), []byte("audio"), 0o644); err != nil {
		t.Fatalf("seed artifact: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "discard", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("queue discard: %v", err)
	}
	requireContains(t, out, "Discarded entry #1")

	updated, err := env.store.GetByID(ctx, entry.ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if updated.Status != queue.StatusDiscarded {
		t.Fatalf("expected discarded, got %s", updated.Status)
	}
	if _, err := os.Stat(workdir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected workdir removed, stat err %v", err)
	}
}

func TestQueueListRejectsUnknownStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"queue", "list", "--status", "bogus"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for unknown status")
	}
}
