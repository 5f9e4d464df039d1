package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"tracklist/internal/queue"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				for _, line := range renderSectionHeader("Queue", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Total", statusInfo, fmt.Sprintf("%d", summary.Total), colorize))
				fmt.Fprintln(out, renderStatusLine("Waiting", statusInfo, fmt.Sprintf("%d", summary.Waiting), colorize))
				fmt.Fprintln(out, renderStatusLine("Processing", statusInfo, fmt.Sprintf("%d", summary.Processing), colorize))
				fmt.Fprintln(out, renderStatusLine("Premiered", statusInfo, fmt.Sprintf("%d", summary.Premiered), colorize))
				fmt.Fprintln(out, renderStatusLine("Done", statusOK, fmt.Sprintf("%d", summary.Done), colorize))
				discardedKind := statusInfo
				if summary.Discarded > 0 {
					discardedKind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Discarded", discardedKind, fmt.Sprintf("%d", summary.Discarded), colorize))
				failedKind := statusOK
				if summary.Failed > 0 {
					failedKind = statusError
				}
				fmt.Fprintln(out, renderStatusLine("Failed", failedKind, fmt.Sprintf("%d", summary.Failed), colorize))

				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Database", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Path", statusInfo, health.DBPath, colorize))
				fmt.Fprintln(out, renderStatusLine("Exists", boolKind(health.DatabaseExists), "", colorize))
				fmt.Fprintln(out, renderStatusLine("Readable", boolKind(health.DatabaseReadable), "", colorize))
				fmt.Fprintln(out, renderStatusLine("Table present", boolKind(health.TableExists), "", colorize))
				if len(health.MissingColumns) > 0 {
					missing := append([]string(nil), health.MissingColumns...)
					sort.Strings(missing)
					fmt.Fprintln(out, renderStatusLine("Missing columns", statusError, strings.Join(missing, ", "), colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Missing columns", statusOK, "none", colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Integrity", boolKind(health.IntegrityCheck), "", colorize))
				fmt.Fprintln(out, renderStatusLine("Entries", statusInfo, fmt.Sprintf("%d", health.TotalEntries), colorize))
				if health.Error != "" {
					fmt.Fprintln(out, renderStatusLine("Error", statusError, health.Error, colorize))
				}
				return nil
			})
		},
	}
}

func boolKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusError
}
