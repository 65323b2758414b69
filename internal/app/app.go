package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"timing-notion-sync/internal/adapter/memory"
	msql "timing-notion-sync/internal/adapter/mysql"
	"timing-notion-sync/internal/adapter/notion"
	tm "timing-notion-sync/internal/adapter/timing"
	"timing-notion-sync/internal/apierror"
	"timing-notion-sync/internal/config"
	"timing-notion-sync/internal/domain"
	"timing-notion-sync/internal/idle"
	"timing-notion-sync/internal/ports"
	"timing-notion-sync/internal/usecase"
)

// StartedAtLayout is the started_at format of the run banner.
const StartedAtLayout = "2006-01-02 15:04:05.000000"

// IdleChecker reports whether the machine has been idle longer than threshold.
type IdleChecker interface {
	Exceeds(ctx context.Context, threshold time.Duration) (bool, time.Duration, error)
}

// Option customizes an App.
type Option func(*App)

// WithIdleChecker replaces the ioreg based idle detector.
func WithIdleChecker(c IdleChecker) Option { return func(a *App) { a.idle = c } }

// WithClock replaces time.Now for the banner and the sync date.
func WithClock(now func() time.Time) Option { return func(a *App) { a.now = now } }

// WithStore replaces the store selected by configuration.
func WithStore(s ports.RecordStore) Option { return func(a *App) { a.store = s } }

// App wires adapters and the sync use case.
type App struct {
	log      *slog.Logger
	cfg      config.Config
	timing   *tm.Client
	store    ports.RecordStore
	reporter ports.ErrorReporter
	idle     IdleChecker
	now      func() time.Time
	zone     *time.Location
	closers  []func() error
}

// Outcome describes one RunOnce call.
type Outcome struct {
	RunID   string
	Skipped bool
	Idle    time.Duration
	Result  usecase.SyncResult
}

// New builds the Timing client and the record store selected by
// cfg.Sync.Store. cfg must already be validated.
func New(ctx context.Context, log *slog.Logger, cfg config.Config, reporter ports.ErrorReporter, opts ...Option) (*App, error) {
	zone, err := cfg.Location()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	a := &App{
		log:      log,
		cfg:      cfg,
		timing:   tm.NewClient(cfg.Timing.BaseURL, cfg.Timing.APIToken, log),
		reporter: reporter,
		idle:     idle.NewDetector(),
		now:      time.Now,
		zone:     zone,
	}
	for _, o := range opts {
		o(a)
	}
	if a.store != nil {
		return a, nil
	}

	switch cfg.Sync.Store {
	case config.StoreNotion:
		a.store = notion.NewClient(cfg.Notion.APIToken, cfg.Notion.DatabaseID, notion.Options{
			BaseURL: cfg.Notion.BaseURL,
			Version: cfg.Notion.Version,
		}, log)
	case config.StoreMySQL:
		s, err := msql.Open(ctx, cfg.MySQL.DSN, log)
		if err != nil {
			return nil, errors.Wrap(err, "open mysql store")
		}
		a.store = s
		a.closers = append(a.closers, s.Close)
	case config.StoreMemory:
		a.store = memory.NewStore()
	default:
		return nil, errors.Errorf("unknown store %q", cfg.Sync.Store)
	}
	log.Debug("record store selected", slog.String("store", cfg.Sync.Store))
	return a, nil
}

// Store returns the record store in use.
func (a *App) Store() ports.RecordStore { return a.store }

// RunOnce logs the start banner, skips the run when the machine is idle and
// otherwise syncs today's totals. A failed run is reported before its error
// is returned.
func (a *App) RunOnce(ctx context.Context) (Outcome, error) {
	out := Outcome{RunID: uuid.NewString()}
	log := a.log.With(slog.String("run_id", out.RunID))
	log.Info("starting timing to notion sync", slog.String("started_at", a.now().Format(StartedAtLayout)))

	if threshold := a.cfg.Sync.IdleThreshold; threshold > 0 && a.idle != nil {
		exceeded, d, err := a.idle.Exceeds(ctx, threshold)
		switch {
		case err != nil:
			log.Debug("idle time unavailable, syncing anyway", slog.String("error", err.Error()))
		case exceeded:
			log.Info("system idle, skipping sync", slog.Duration("idle", d), slog.Duration("threshold", threshold))
			out.Skipped, out.Idle = true, d
			return out, nil
		}
	}

	uc := &usecase.SyncUseCase{
		Log:      log,
		Timing:   a.timing,
		Store:    a.store,
		Reporter: a.reporter,
		Zone:     a.zone,
		Now:      a.now,
	}
	res, err := uc.Run(ctx)
	out.Result = res
	if err != nil {
		log.Error("sync failed", slog.String("error", err.Error()))
		if a.reporter != nil {
			a.reporter.Report("Sync failed: "+err.Error(), apierror.Describe(err), err)
		}
		return out, err
	}
	return out, nil
}

// Projects lists the Timing projects visible to the token.
func (a *App) Projects(ctx context.Context) ([]domain.Project, error) {
	return a.timing.ListProjects(ctx)
}

// Close releases the store's resources.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
