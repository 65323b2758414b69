package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"timing-notion-sync/internal/apierror"
	"timing-notion-sync/internal/domain"
	"timing-notion-sync/internal/ports"
)

// SyncUseCase aggregates today's Timing report by project and upserts one
// record per project into a RecordStore.
type SyncUseCase struct {
	Log      *slog.Logger
	Timing   ports.TimingClient
	Store    ports.RecordStore
	Reporter ports.ErrorReporter // optional
	// Zone is the fixed UTC offset used for the report range and Last Sync.
	Zone *time.Location
	Now  func() time.Time
}

// ProjectFailure is a project whose upsert failed.
type ProjectFailure struct {
	Project string
	Err     error
}

// SyncResult summarizes one run.
type SyncResult struct {
	Date     string
	Projects []domain.ProjectAggregate
	Created  int
	Updated  int
	Failures []ProjectFailure
	TotalSec float64
}

// Run syncs today's data. Fetch failures abort the run and are returned;
// failures of individual projects are reported and collected in the result
// while the remaining projects are still processed.
func (uc *SyncUseCase) Run(ctx context.Context) (SyncResult, error) {
	if uc.Timing == nil || uc.Store == nil {
		return SyncResult{}, errors.New("usecase not initialized: missing dependencies")
	}
	zone := uc.Zone
	if zone == nil {
		zone = time.Local
	}
	now := time.Now()
	if uc.Now != nil {
		now = uc.Now()
	}

	// Today is the local calendar day; the range carries the configured offset.
	local := now.Local()
	y, m, d := local.Date()
	today := local.Format(domain.DateLayout)
	from := time.Date(y, m, d, 0, 0, 0, 0, zone)
	to := time.Date(y, m, d, 23, 59, 59, 0, zone)
	res := SyncResult{Date: today}

	uc.Log.Info("fetching timing report", slog.String("date", today), slog.String("offset", from.Format("-07:00")))
	entries, err := uc.Timing.Report(ctx, from, to)
	if errors.Is(err, ports.ErrNoData) {
		uc.report(err.Error(), fmt.Sprintf("Date Range: %s to %s", from.Format(time.RFC3339), to.Format(time.RFC3339)), err)
		return res, nil
	}
	if err != nil {
		return res, errors.Wrap(err, "fetch timing report")
	}
	uc.Log.Info("fetched timing report", slog.String("date", today), slog.Int("count", len(entries)))

	for _, e := range entries {
		if e.DurationSec < 0 {
			uc.Log.Debug("skipping entry with negative duration", slog.String("project", e.Project.Name()), slog.Float64("duration", e.DurationSec))
			continue
		}
		title := e.Title
		if title == "" {
			title = "No title"
		}
		uc.Log.Info("entry",
			slog.String("project", e.Project.Name()),
			slog.String("title", title),
			slog.String("duration", domain.FormatClock(e.DurationSec)),
		)
	}

	agg := domain.Aggregate(entries)
	res.Projects = agg.Items()
	res.TotalSec = agg.Total()
	syncedAt := now.In(zone)

	for _, p := range res.Projects {
		log := uc.Log.With(slog.String("project", p.Name), slog.String("duration", domain.FormatClock(p.Total)))
		created, err := uc.upsert(ctx, today, p, syncedAt)
		if err != nil {
			log.Error("failed to sync project", slog.String("error", err.Error()))
			uc.report(
				fmt.Sprintf("Failed to sync project %s: %v", p.Name, err),
				fmt.Sprintf("Project: %s\nDate: %s\nDuration: %s\n%s", p.Name, today, domain.FormatClock(p.Total), apierror.Describe(err)),
				err,
			)
			res.Failures = append(res.Failures, ProjectFailure{Project: p.Name, Err: err})
			continue
		}
		if created {
			res.Created++
			log.Info("created")
		} else {
			res.Updated++
			log.Info("updated")
		}
	}

	uc.Log.Info("sync complete",
		slog.Int("updated", res.Updated),
		slog.Int("created", res.Created),
		slog.Int("failed", len(res.Failures)),
		slog.String("total", domain.FormatClock(res.TotalSec)),
		slog.String("hours", fmt.Sprintf("%.2f", res.TotalSec/3600)),
	)
	return res, nil
}

// upsert writes one project's record, updating the existing record for
// (date, project) if there is one.
func (uc *SyncUseCase) upsert(ctx context.Context, date string, p domain.ProjectAggregate, syncedAt time.Time) (bool, error) {
	rec := domain.NewRecord(date, p, syncedAt)
	id, found, err := uc.Store.FindRecord(ctx, date, p.Name)
	if err != nil {
		return false, errors.Wrap(err, "find record")
	}
	if found {
		return false, errors.Wrap(uc.Store.UpdateRecord(ctx, id, rec), "update record")
	}
	return true, errors.Wrap(uc.Store.CreateRecord(ctx, rec), "create record")
}

func (uc *SyncUseCase) report(message, details string, cause error) {
	if uc.Reporter != nil {
		uc.Reporter.Report(message, details, cause)
	}
}
