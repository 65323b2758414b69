package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"timing-notion-sync/internal/app"
	"timing-notion-sync/internal/config"
)

func newProjectsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List the Timing projects visible to the API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(opts.verbose)
			// Only Timing is contacted; no record store is needed.
			cfg, err := loadConfig(logger, opts, func(c *config.Config) { c.Sync.Store = config.StoreMemory })
			if err != nil {
				return err
			}
			application, err := app.New(cmd.Context(), logger, cfg, nil)
			if err != nil {
				return err
			}
			defer application.Close()

			projects, err := application.Projects(cmd.Context())
			if err != nil {
				logger.Error("failed to list projects", slog.String("error", err.Error()))
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE")
			for _, p := range projects {
				fmt.Fprintf(tw, "%s\t%s\n", p.ID, p.Title)
			}
			return tw.Flush()
		},
	}
}
