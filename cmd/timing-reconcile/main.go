package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"timing-notion-sync/internal/reconcile"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		synced      float64
		bucketsPath string
	)
	cmd := &cobra.Command{
		Use:          "timing-reconcile <export.json>",
		Short:        "Compare a Timing export against the minutes that were synced",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			buckets := reconcile.DefaultBuckets()
			if bucketsPath != "" {
				var err error
				if buckets, err = reconcile.LoadBuckets(bucketsPath); err != nil {
					return err
				}
			}

			f, err := os.Open(args[0])
			if err != nil {
				return errors.WithStack(err)
			}
			defer f.Close()

			entries, err := reconcile.ReadExport(f)
			if err != nil {
				return err
			}
			rep, err := reconcile.Build(entries, buckets, synced)
			if err != nil {
				return err
			}
			return reconcile.Render(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().Float64Var(&synced, "synced-minutes", 0, "Minutes known to have been synced for the exported period")
	cmd.Flags().StringVar(&bucketsPath, "buckets", "", "YAML file with bucket definitions")
	_ = cmd.MarkFlagRequired("synced-minutes")
	return cmd
}
