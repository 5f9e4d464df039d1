package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tracklist/internal/queue"
	"tracklist/internal/services/youtube"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var submittedBy string
	var notifyEmail bool
	var playSound bool

	cmd := &cobra.Command{
		Use:   "submit <url-or-id>",
		Short: "Submit a set for ingestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoID, err := youtube.ExtractVideoID(args[0])
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *queue.Store) error {
				entry, created, err := store.Submit(cmd.Context(), videoID, queue.SubmitOptions{
					SubmittedBy: submittedBy,
					NotifyEmail: notifyEmail,
					PlaySound:   playSound,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if created {
					fmt.Fprintf(out, "Queued %s as entry #%d\n", videoID, entry.ID)
					return nil
				}

				switch entry.Status {
				case queue.StatusDiscarded, queue.StatusFailed:
					if entry.DiscardedReason != "" {
						fmt.Fprintf(out, "%s was %s: %s\n", videoID, entry.Status, entry.DiscardedReason)
					} else {
						fmt.Fprintf(out, "%s was %s\n", videoID, entry.Status)
					}
				case queue.StatusDone:
					fmt.Fprintf(out, "%s is already in the library\n", videoID)
				default:
					fmt.Fprintf(out, "%s is already queued (entry #%d, %s)\n", videoID, entry.ID, entry.Status)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&submittedBy, "submitted-by", "", "Record who requested the set")
	cmd.Flags().BoolVar(&notifyEmail, "notify-email", false, "Send an email once the set is published")
	cmd.Flags().BoolVar(&playSound, "play-sound", false, "Play a sound once the set is published")
	return cmd
}
