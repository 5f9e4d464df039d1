package main

import (
	"context"
	"testing"

	"tracklist/internal/queue"
)

func TestSubmitQueuesNewVideo(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"submit", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}, env.configPath)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requireContains(t, out, "Queued dQw4w9WgXcQ as entry #1")

	entry, err := env.store.GetByVideoID(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if entry == nil || entry.Status != queue.StatusPrequeued {
		t.Fatalf("expected prequeued entry, got %+v", entry)
	}
}

func TestSubmitReportsDuplicate(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"submit", "dQw4w9WgXcQ"}, env.configPath); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	out, _, err := runCLI(t, []string{"submit", "dQw4w9WgXcQ"}, env.configPath)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	requireContains(t, out, "already queued")
}

func TestSubmitReportsDiscardReason(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	entry, _, err := env.store.Submit(ctx, "dQw4w9WgXcQ", queue.SubmitOptions{})
	if err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	if err := env.store.MarkDiscarded(ctx, entry.ID, "video is too short"); err != nil {
		t.Fatalf("discard: %v", err)
	}

	out, _, err := runCLI(t, []string{"submit", "dQw4w9WgXcQ"}, env.configPath)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	requireContains(t, out, "video is too short")
}

func TestSubmitRejectsMalformedInput(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"submit", "not a video"}, env.configPath); err == nil {
		t.Fatal("expected error for malformed submission")
	}
}
