package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tracklist/internal/logging"
	"tracklist/internal/queue"
	"tracklist/internal/services"
	"tracklist/internal/services/youtube"
	"tracklist/internal/testsupport"
)

type fakeProcessor struct {
	err   error
	calls int
}

func (f *fakeProcessor) Process(context.Context, *queue.Entry) error {
	f.calls++
	return f.err
}

type fakeMetadata struct {
	info  *youtube.VideoInfo
	err   error
	calls int
}

func (f *fakeMetadata) Info(context.Context, string) (*youtube.VideoInfo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

func validInfo(videoID string) *youtube.VideoInfo {
	return &youtube.VideoInfo{
		ID:          videoID,
		Title:       "Mix",
		DurationSec: 3600,
		ChannelID:   "UC1",
		Embeddable:  true,
	}
}

func newManager(t *testing.T, store *queue.Store, processor Processor, metadata MetadataSource) *Manager {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	manager, err := New(cfg, store, processor, metadata, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return manager
}

func pendingEntry(t *testing.T, store *queue.Store, videoID string) *queue.Entry {
	t.Helper()
	entry := testsupport.Submit(t, store, videoID)
	entry.Status = queue.StatusPending
	if err := store.Update(context.Background(), entry); err != nil {
		t.Fatal(err)
	}
	return entry
}

func mustGet(t *testing.T, store *queue.Store, id int64) *queue.Entry {
	t.Helper()
	entry, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if entry == nil {
		t.Fatalf("entry %d missing", id)
	}
	return entry
}

func TestProcessNextMarksDone(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	entry := pendingEntry(t, store, "vidDone000a")
	processor := &fakeProcessor{}
	manager := newManager(t, store, processor, &fakeMetadata{})

	handled, err := manager.ProcessNext(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !handled || processor.calls != 1 {
		t.Fatalf("expected one processed entry, handled=%v calls=%d", handled, processor.calls)
	}
	if got := mustGet(t, store, entry.ID); got.Status != queue.StatusDone {
		t.Fatalf("expected done, got %s", got.Status)
	}
}

func TestProcessNextIdleWhenQueueEmpty(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	manager := newManager(t, store, &fakeProcessor{}, &fakeMetadata{})

	handled, err := manager.ProcessNext(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if handled {
		t.Fatal("expected idle poll")
	}
}

func TestProcessNextDiscardsRejection(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	entry := pendingEntry(t, store, "vidRejected")
	processor := &fakeProcessor{err: services.Wrap(services.ErrRejection, "deduplicating", "", "too few unique tracks found", nil)}
	manager := newManager(t, store, processor, &fakeMetadata{})

	if _, err := manager.ProcessNext(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := mustGet(t, store, entry.ID)
	if got.Status != queue.StatusDiscarded {
		t.Fatalf("expected discarded, got %s", got.Status)
	}
	if got.DiscardedReason == "" {
		t.Fatal("expected a recorded reason")
	}
}

func TestProcessNextRequeuesTransient(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	entry := pendingEntry(t, store, "vidTransien")
	processor := &fakeProcessor{err: services.Wrap(services.ErrTransient, "downloading", "yt-dlp", "unable to download video data", nil)}
	manager := newManager(t, store, processor, &fakeMetadata{})

	if _, err := manager.ProcessNext(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := mustGet(t, store, entry.ID)
	if got.Status != queue.StatusPending {
		t.Fatalf("expected pending retry, got %s", got.Status)
	}
	if got.NAttempts != entry.NAttempts+1 {
		t.Fatalf("expected attempt counted, got %d", got.NAttempts)
	}
}

func TestProcessNextParksAfterMaxAttempts(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	entry := pendingEntry(t, store, "vidExhauste")
	entry.NAttempts = maxAttempts - 1
	if err := store.Update(context.Background(), entry); err != nil {
		t.Fatal(err)
	}
	processor := &fakeProcessor{err: services.Wrap(services.ErrTransient, "downloading", "yt-dlp", "unable to download video data", nil)}
	manager := newManager(t, store, processor, &fakeMetadata{})

	if _, err := manager.ProcessNext(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := mustGet(t, store, entry.ID); got.Status != queue.StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
}

func TestValidateNextAcceptsAndCachesMetadata(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	entry := testsupport.Submit(t, store, "vidValidOk0")

	info := validInfo("vidValidOk0")
	info.Chapters = []youtube.Chapter{{Title: "Intro", EndTime: 60}, {Title: "Drop", StartTime: 60, EndTime: 120}}
	manager := newManager(t, store, &fakeProcessor{}, &fakeMetadata{info: info})

	handled, err := manager.ValidateNext(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !handled {
		t.Fatal("expected an entry validated")
	}
	got := mustGet(t, store, entry.ID)
	if got.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", got.Status)
	}
	if got.VideoInfoJSON == "" || got.DurationSec != 3600 {
		t.Fatalf("expected cached metadata, got %+v", got)
	}
	// Two chapters are an intro card, not a tracklist.
	if got.NbChapters != 0 {
		t.Fatalf("expected sparse chapters dropped, got %d", got.NbChapters)
	}
}

func TestValidateNextRejectsShortVideo(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	entry := testsupport.Submit(t, store, "vidShort000")

	info := validInfo("vidShort000")
	info.DurationSec = 120
	manager := newManager(t, store, &fakeProcessor{}, &fakeMetadata{info: info})

	if _, err := manager.ValidateNext(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := mustGet(t, store, entry.ID)
	if got.Status != queue.StatusDiscarded || got.DiscardedReason != "video is too short" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestValidateNextDiscardsRemovedVideo(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	entry := testsupport.Submit(t, store, "vidGone0000")

	infoErr := services.Wrap(services.ErrExternalTool, "validating", "yt-dlp",
		"ERROR: [youtube] vidGone0000: Video unavailable. This video is no longer available", nil)
	manager := newManager(t, store, &fakeProcessor{}, &fakeMetadata{err: infoErr})

	if _, err := manager.ValidateNext(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := mustGet(t, store, entry.ID)
	if got.Status != queue.StatusDiscarded {
		t.Fatalf("expected removed video discarded, got %s", got.Status)
	}
	if got.NAttempts != 0 {
		t.Fatalf("expected no retry attempts, got %d", got.NAttempts)
	}
	if !strings.Contains(got.DiscardedReason, "Video unavailable") {
		t.Fatalf("unexpected reason %q", got.DiscardedReason)
	}
}

func TestValidateNextRejectsNotEmbeddable(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	entry := testsupport.Submit(t, store, "vidNoEmbed0")

	info := validInfo("vidNoEmbed0")
	info.Embeddable = false
	manager := newManager(t, store, &fakeProcessor{}, &fakeMetadata{info: info})

	if _, err := manager.ValidateNext(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := mustGet(t, store, entry.ID); got.DiscardedReason != "video is not embeddable" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestValidateNextDefersPremiereAndSweepReleases(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	entry := testsupport.Submit(t, store, "vidPremiere")

	metadata := &fakeMetadata{err: services.Wrap(services.ErrExternalTool, "validating", "yt-dlp", "Premieres in 2 hours", nil)}
	manager := newManager(t, store, &fakeProcessor{}, metadata)

	if _, err := manager.ValidateNext(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := mustGet(t, store, entry.ID)
	if got.Status != queue.StatusPremiered {
		t.Fatalf("expected premiered, got %s", got.Status)
	}
	if got.PremiereEnds == nil {
		t.Fatal("expected a premiere deadline")
	}
	want := time.Now().Add(2 * time.Hour)
	if diff := got.PremiereEnds.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("expected release around %v, got %v", want, got.PremiereEnds)
	}

	moved, err := store.SweepPremieres(context.Background(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if moved != 0 {
		t.Fatalf("sweep before the deadline must release nothing, moved %d", moved)
	}
	moved, err = store.SweepPremieres(context.Background(), time.Now().Add(3*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if moved != 1 {
		t.Fatalf("sweep after the deadline must release the entry, moved %d", moved)
	}
	if got := mustGet(t, store, entry.ID); got.Status != queue.StatusPrequeued {
		t.Fatalf("expected prequeued after sweep, got %s", got.Status)
	}
}

func TestValidateNextRetriesBotCheckInPlace(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	entry := testsupport.Submit(t, store, "vidBotCheck")

	metadata := &fakeMetadata{err: errors.New("Sign in to confirm you're not a bot")}
	manager := newManager(t, store, &fakeProcessor{}, metadata)

	if _, err := manager.ValidateNext(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := mustGet(t, store, entry.ID)
	if got.Status != queue.StatusPrequeued {
		t.Fatalf("expected entry to stay prequeued, got %s", got.Status)
	}
	if got.NAttempts != 1 {
		t.Fatalf("expected attempt counted, got %d", got.NAttempts)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	manager := newManager(t, store, &fakeProcessor{}, &fakeMetadata{info: validInfo("x")})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- manager.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop")
	}
}
