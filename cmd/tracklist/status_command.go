package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tracklist/internal/library"
	"tracklist/internal/queue"
	"tracklist/internal/services/youtube"
)

var statusTitler = cases.Title(language.English)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var showTracks bool

	cmd := &cobra.Command{
		Use:   "status <url-or-id>",
		Short: "Show where a set is in the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoID, err := youtube.ExtractVideoID(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			var published bool
			err = ctx.withLibrary(func(lib *library.Store) error {
				set, err := lib.SetByVideoID(cmd.Context(), videoID)
				if err != nil {
					return err
				}
				if set == nil || !set.Published {
					return nil
				}
				published = true
				fmt.Fprintf(out, "Published: %s (%d tracks)\n", set.Title, set.NbTracks)
				if !showTracks {
					return nil
				}
				placements, err := lib.Placements(cmd.Context(), set.ID)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(placements))
				for _, placement := range placements {
					track, err := lib.TrackByID(cmd.Context(), placement.TrackID)
					if err != nil {
						return err
					}
					title, artist := "Unknown", ""
					if track != nil {
						title, artist = track.Title, track.Artist
					}
					rows = append(rows, []string{
						strconv.Itoa(placement.Pos + 1),
						formatTimestamp(placement.StartSec),
						title,
						artist,
					})
				}
				table := renderTable(
					[]string{"#", "Start", "Title", "Artist"},
					rows, 0, 1)
				fmt.Fprintln(out, table)
				return nil
			})
			if err != nil || published {
				return err
			}

			return ctx.withStore(func(store *queue.Store) error {
				entry, err := store.GetByVideoID(cmd.Context(), videoID)
				if err != nil {
					return err
				}
				if entry == nil {
					fmt.Fprintf(out, "%s is not known\n", videoID)
					return nil
				}
				fmt.Fprintf(out, "%s: entry #%d\n", statusTitler.String(string(entry.Status)), entry.ID)
				if entry.Status == queue.StatusPremiered && entry.PremiereEnds != nil {
					fmt.Fprintf(out, "Premiere ends %s\n", entry.PremiereEnds.Local().Format("2006-01-02 15:04"))
				}
				if entry.DiscardedReason != "" {
					fmt.Fprintf(out, "Reason: %s\n", entry.DiscardedReason)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showTracks, "tracks", false, "List the published tracklist")
	return cmd
}

func formatTimestamp(seconds float64) string {
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
