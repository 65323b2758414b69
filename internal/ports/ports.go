package ports

import (
	"context"
	"errors"
	"time"

	"timing-notion-sync/internal/domain"
)

// ErrNoData means Timing answered without a report payload.
var ErrNoData = errors.New("no data received from Timing API")

// TimingClient fetches projects and report rows from Timing.
type TimingClient interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	Report(ctx context.Context, from, to time.Time) ([]domain.TimeEntry, error)
}

// RecordStore holds one summary record per (date, project).
// Notion is the primary target; the MySQL and in-memory stores implement the
// same find-then-write protocol.
type RecordStore interface {
	// FindRecord looks up the record for date and project by exact match.
	// found is false when no record exists yet.
	FindRecord(ctx context.Context, date, project string) (id string, found bool, err error)
	CreateRecord(ctx context.Context, rec domain.Record) error
	UpdateRecord(ctx context.Context, id string, rec domain.Record) error
}

// ErrorReporter persists failures for later inspection by the operator.
type ErrorReporter interface {
	Report(message string, details string, cause error)
}
