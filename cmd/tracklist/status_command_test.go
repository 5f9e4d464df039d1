package main

import (
	"context"
	"testing"

	"tracklist/internal/library"
	"tracklist/internal/queue"
	"tracklist/internal/testsupport"
)

func TestStatusShowsQueueState(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := env.store.Submit(context.Background(), "dQw4w9WgXcQ", queue.SubmitOptions{}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	out, _, err := runCLI(t, []string{"status", "dQw4w9WgXcQ"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Prequeued: entry #1")
}

func TestStatusShowsPublishedSet(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	lib := testsupport.MustOpenLibrary(t, env.cfg)
	setID, err := lib.UpsertSet(ctx, &library.Set{
		VideoID:     "dQw4w9WgXcQ",
		Title:       "Warehouse Mix 042",
		DurationSec: 3600,
	})
	if err != nil {
		t.Fatalf("upsert set: %v", err)
	}
	if err := lib.FinalizeSet(ctx, setID, 12, library.Aggregates{}); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	out, _, err := runCLI(t, []string{"status", "dQw4w9WgXcQ"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Published: Warehouse Mix 042 (12 tracks)")
}

func TestStatusUnknownVideo(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status", "dQw4w9WgXcQ"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "dQw4w9WgXcQ is not known")
}
