package testsupport

import (
	"context"
	"testing"

	"tracklist/internal/config"
	"tracklist/internal/library"
	"tracklist/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenLibrary opens a library.Store for tests and registers cleanup.
func MustOpenLibrary(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Submit enqueues a video for tests using the provided store.
func Submit(t testing.TB, store *queue.Store, videoID string) *queue.Entry {
	t.Helper()

	entry, _, err := store.Submit(context.Background(), videoID, queue.SubmitOptions{})
	if err != nil {
		t.Fatalf("store.Submit: %v", err)
	}
	return entry
}
