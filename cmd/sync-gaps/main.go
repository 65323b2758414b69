package main

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"timing-notion-sync/internal/gaps"
)

const defaultLogFile = "logs/sync.log"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		last      int
		expected  = gaps.DefaultExpected
		tolerance = gaps.DefaultTolerance
		pattern   string
		verbose   bool
	)
	cmd := &cobra.Command{
		Use:          "sync-gaps [log-file]",
		Short:        "Report irregular intervals between recent sync runs",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			path := defaultLogFile
			if len(args) == 1 {
				path = args[0]
			}
			re := gaps.DefaultPattern
			if pattern != "" {
				var err error
				if re, err = regexp.Compile(pattern); err != nil {
					return errors.Wrap(err, "invalid --pattern")
				}
			}

			f, err := os.Open(path)
			if err != nil {
				return errors.WithStack(err)
			}
			defer f.Close()

			ts, err := gaps.ExtractTimestamps(f, re, last)
			if err != nil {
				return err
			}
			logger.Debug("sync runs found", slog.String("file", path), slog.Int("count", len(ts)))
			if len(ts) < 2 {
				fmt.Fprintf(cmd.ErrOrStderr(), "fewer than two sync runs found in %s\n", path)
				return nil
			}
			return gaps.Render(cmd.OutOrStdout(), gaps.Detect(ts, expected, tolerance))
		},
	}
	cmd.Flags().IntVar(&last, "last", gaps.DefaultLast, "Number of most recent runs to analyze (0 for all)")
	cmd.Flags().DurationVar(&expected, "expected", expected, "Expected interval between runs")
	cmd.Flags().DurationVar(&tolerance, "tolerance", tolerance, "Allowed deviation from the expected interval")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Regular expression whose first group captures a run's start timestamp")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	return cmd
}
