package library_test

import (
	"context"
	"testing"

	"tracklist/internal/library"
	"tracklist/internal/testsupport"
	"tracklist/internal/tracklist"
)

func enriched(shazamKey *int64, appleKey, spotifyKey, title, artist string) tracklist.EnrichedTrack {
	return tracklist.EnrichedTrack{
		MergedTrack: tracklist.MergedTrack{
			ShazamKey: shazamKey,
			AppleKey:  appleKey,
			Title:     title,
			Artist:    artist,
		},
		SpotifyKey: spotifyKey,
	}
}

func key(v int64) *int64 { return &v }

func TestUnknownTrackSeeded(t *testing.T) {
	store := testsupport.MustOpenLibrary(t, testsupport.NewConfig(t))

	track, err := store.TrackByID(context.Background(), library.UnknownTrackID)
	if err != nil {
		t.Fatal(err)
	}
	if track == nil || track.Title != "Track not found" {
		t.Fatalf("expected sentinel row, got %+v", track)
	}
	if track.ShazamKey != nil || track.SpotifyArtistKey != "" || track.AppleArtistKey != "" {
		t.Fatalf("expected empty provider keys on sentinel row, got %+v", track)
	}
}

func TestResolveTrackCreatesThenReuses(t *testing.T) {
	store := testsupport.MustOpenLibrary(t, testsupport.NewConfig(t))
	ctx := context.Background()

	id, created, err := store.ResolveTrack(ctx, enriched(key(100), "", "", "Alpha", "A"))
	if err != nil {
		t.Fatal(err)
	}
	if !created || id == library.UnknownTrackID {
		t.Fatalf("expected new track, got id=%d created=%v", id, created)
	}

	again, created, err := store.ResolveTrack(ctx, enriched(key(100), "", "", "Alpha Remaster", "A"))
	if err != nil {
		t.Fatal(err)
	}
	if created || again != id {
		t.Fatalf("expected existing track reused, got id=%d created=%v", again, created)
	}

	track, err := store.TrackByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if track.Title != "Alpha" {
		t.Fatalf("existing row must stay unmodified, got %q", track.Title)
	}
}

func TestResolveTrackIdentityPriority(t *testing.T) {
	store := testsupport.MustOpenLibrary(t, testsupport.NewConfig(t))
	ctx := context.Background()

	shazamID, _, err := store.ResolveTrack(ctx, enriched(key(200), "", "", "ByShazam", "A"))
	if err != nil {
		t.Fatal(err)
	}
	appleID, _, err := store.ResolveTrack(ctx, enriched(nil, "ap-1", "", "ByApple", "B"))
	if err != nil {
		t.Fatal(err)
	}
	if appleID == shazamID {
		t.Fatal("distinct identities must not collide")
	}

	// A track carrying both keys resolves by the fingerprint key even though
	// its apple key matches another row.
	resolved, created, err := store.ResolveTrack(ctx, enriched(key(200), "ap-1", "", "Both", "C"))
	if err != nil {
		t.Fatal(err)
	}
	if created || resolved != shazamID {
		t.Fatalf("expected fingerprint identity to win, got %d (shazam row %d)", resolved, shazamID)
	}
}

func TestResolveTrackWithoutKeysIsUnknown(t *testing.T) {
	store := testsupport.MustOpenLibrary(t, testsupport.NewConfig(t))

	id, created, err := store.ResolveTrack(context.Background(), enriched(nil, "", "", "Mystery", "Nobody"))
	if err != nil {
		t.Fatal(err)
	}
	if created || id != library.UnknownTrackID {
		t.Fatalf("expected sentinel, got id=%d created=%v", id, created)
	}
}

func TestCreateTrackNormalizesGenres(t *testing.T) {
	store := testsupport.MustOpenLibrary(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := enriched(key(300), "", "", "Alpha", "A")
	first.Genre = "Hip-Hop/Rap"
	first.Subgenres = []string{"Hip-Hop", "Rap"}
	if _, _, err := store.ResolveTrack(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := enriched(key(301), "", "", "Beta", "B")
	second.Genres = []string{"hip hop"}
	if _, _, err := store.ResolveTrack(ctx, second); err != nil {
		t.Fatal(err)
	}

	genre, err := store.GenreByName(ctx, "HIP-HOP")
	if err != nil {
		t.Fatal(err)
	}
	if genre == nil {
		t.Fatal("expected normalized genre row")
	}
	if genre.NbTracks != 2 {
		t.Fatalf("expected 2 tracks in genre, got %d", genre.NbTracks)
	}
	if rap, err := store.GenreByName(ctx, "rap"); err != nil || rap == nil || rap.NbTracks != 1 {
		t.Fatalf("expected rap genre with 1 track, got %+v err=%v", rap, err)
	}
}

func TestUpsertSetAndChannel(t *testing.T) {
	store := testsupport.MustOpenLibrary(t, testsupport.NewConfig(t))
	ctx := context.Background()

	channelID, err := store.UpsertChannel(ctx, &library.Channel{
		ChannelKey:    "UC123",
		Author:        "Some DJ",
		URL:           "https://example.com/sdj",
		FollowerCount: 1000,
	})
	if err != nil {
		t.Fatal(err)
	}

	setID, err := store.UpsertSet(ctx, &library.Set{
		VideoID:     "dQw4w9WgXcQ",
		ChannelID:   channelID,
		Title:       "Warehouse Mix",
		DurationSec: 3600,
		Embeddable:  true,
		ViewCount:   500,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Re-ingestion refreshes metadata without duplicating rows.
	if _, err := store.UpsertChannel(ctx, &library.Channel{ChannelKey: "UC123", Author: "Some DJ", FollowerCount: 2000}); err != nil {
		t.Fatal(err)
	}
	sameSet, err := store.UpsertSet(ctx, &library.Set{VideoID: "dQw4w9WgXcQ", ChannelID: channelID, Title: "Warehouse Mix (2024)"})
	if err != nil {
		t.Fatal(err)
	}
	if sameSet != setID {
		t.Fatalf("expected same set id, got %d and %d", setID, sameSet)
	}

	channel, err := store.ChannelByKey(ctx, "UC123")
	if err != nil {
		t.Fatal(err)
	}
	if channel.FollowerCount != 2000 {
		t.Fatalf("expected refreshed follower count, got %d", channel.FollowerCount)
	}
	set, err := store.SetByVideoID(ctx, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatal(err)
	}
	if set.Title != "Warehouse Mix (2024)" || set.Published {
		t.Fatalf("unexpected set state %+v", set)
	}
}

func TestAttachTrackSkipsDuplicates(t *testing.T) {
	store := testsupport.MustOpenLibrary(t, testsupport.NewConfig(t))
	ctx := context.Background()

	setID, err := store.UpsertSet(ctx, &library.Set{VideoID: "vid00000001"})
	if err != nil {
		t.Fatal(err)
	}
	trackID, _, err := store.ResolveTrack(ctx, enriched(key(400), "", "", "Alpha", "A"))
	if err != nil {
		t.Fatal(err)
	}

	placement := library.Placement{TrackID: trackID, SetID: setID, Pos: 0, StartSec: 0, EndSec: 240}
	inserted, err := store.AttachTrack(ctx, placement)
	if err != nil {
		t.Fatal(err)
	}
	if !inserted {
		t.Fatal("expected first placement inserted")
	}
	inserted, err = store.AttachTrack(ctx, placement)
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Fatal("duplicate triple must be skipped")
	}

	track, err := store.TrackByID(ctx, trackID)
	if err != nil {
		t.Fatal(err)
	}
	if track.NbSets != 1 {
		t.Fatalf("expected nb_sets 1, got %d", track.NbSets)
	}

	placements, err := store.Placements(ctx, setID)
	if err != nil {
		t.Fatal(err)
	}
	if len(placements) != 1 || placements[0].EndSec != 240 {
		t.Fatalf("unexpected placements %+v", placements)
	}
}

func TestFinalizeSetPublishes(t *testing.T) {
	store := testsupport.MustOpenLibrary(t, testsupport.NewConfig(t))
	ctx := context.Background()

	setID, err := store.UpsertSet(ctx, &library.Set{VideoID: "vid00000002"})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.RecordSetError(ctx, setID, "spotify lookup failed"); err != nil {
		t.Fatal(err)
	}
	if err := store.FinalizeSet(ctx, setID, 7, library.Aggregates{Energy: 80, Loudness: 73}); err != nil {
		t.Fatal(err)
	}

	set, err := store.SetByVideoID(ctx, "vid00000002")
	if err != nil {
		t.Fatal(err)
	}
	if !set.Published || set.NbTracks != 7 {
		t.Fatalf("expected published set with 7 tracks, got %+v", set)
	}
	if set.Aggregates.Energy != 80 || set.Aggregates.Loudness != 73 {
		t.Fatalf("aggregates lost: %+v", set.Aggregates)
	}
	if set.Error != "" {
		t.Fatalf("finalize must clear the error, got %q", set.Error)
	}
}
