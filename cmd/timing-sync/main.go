package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"timing-notion-sync/internal/adapter/memory"
	"timing-notion-sync/internal/app"
	"timing-notion-sync/internal/config"
)

type options struct {
	configPath string
	dryRun     bool
	store      string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "timing-sync",
		Short:        "Sync today's Timing totals per project into Notion",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (default $TIMING_SYNC_CONFIG)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Sync into an in-memory store and print the records")
	cmd.Flags().StringVar(&opts.store, "store", "", "Record store: notion or mysql (default $SYNC_STORE or notion)")
	cmd.AddCommand(newProjectsCmd(opts))
	return cmd
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig loads and validates the configuration. Failures are reported to
// the error log and the desktop before being returned.
func loadConfig(logger *slog.Logger, opts *options, override func(*config.Config)) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err == nil {
		if override != nil {
			override(&cfg)
		}
		err = cfg.Validate()
	}
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		app.NewReporter(logger, cfg).Report("Configuration error: "+err.Error(), configDetails(err), errors.WithStack(err))
		return cfg, err
	}
	return cfg, nil
}

func configDetails(err error) string {
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		return ""
	}
	s := ""
	for _, name := range verr.Missing {
		s += fmt.Sprintf("Missing: %s\n", name)
	}
	for _, name := range verr.Invalid {
		s += fmt.Sprintf("Invalid: %s\n", name)
	}
	return s
}

func runSync(ctx context.Context, stdout io.Writer, opts *options) error {
	logger := newLogger(opts.verbose)
	cfg, err := loadConfig(logger, opts, func(c *config.Config) {
		if opts.store != "" {
			c.Sync.Store = opts.store
		}
		if opts.dryRun {
			c.Sync.Store = config.StoreMemory
		}
	})
	if err != nil {
		return err
	}

	reporter := app.NewReporter(logger, cfg)
	application, err := app.New(ctx, logger, cfg, reporter)
	if err != nil {
		logger.Error("failed to initialize app", slog.String("error", err.Error()))
		reporter.Report("Failed to initialize: "+err.Error(), "", err)
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close store", slog.String("error", err.Error()))
		}
	}()

	out, err := application.RunOnce(ctx)
	if err != nil {
		return err
	}
	if out.Skipped {
		return nil
	}
	if opts.dryRun {
		printDryRun(stdout, application)
	}
	return nil
}

func printDryRun(w io.Writer, application *app.App) {
	store, ok := application.Store().(*memory.Store)
	if !ok {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tPROJECT\tDURATION\tHOURS\tLAST SYNC")
	for _, r := range store.Records() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%s\n", r.Date, r.Project, r.Duration, r.Hours, r.LastSync.Format("2006-01-02T15:04:05-07:00"))
	}
	_ = tw.Flush()
}

