package mysql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"timing-notion-sync/internal/domain"
	"timing-notion-sync/internal/migrate"
)

// Store implements ports.RecordStore on the timing_daily_totals table.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open connects using dsn and applies pending migrations.
// Example DSN: user:pass@tcp(host:3306)/dbname?parseTime=true&multiStatements=true
func Open(ctx context.Context, dsn string, log *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("mysql: DSN is required")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate.Run(ctx, db, log); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, log: log}, nil
}

// FindRecord matches date and project exactly; the project column uses a
// binary collation so the comparison is case-sensitive.
func (s *Store) FindRecord(ctx context.Context, date, project string) (string, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM timing_daily_totals WHERE sync_date = ? AND project = ? LIMIT 1",
		date, project,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return strconv.FormatInt(id, 10), true, nil
}

func (s *Store) CreateRecord(ctx context.Context, rec domain.Record) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO timing_daily_totals
  (sync_date, project, duration, hours, last_sync)
VALUES
  (?, ?, ?, ?, ?)`,
		rec.Date, rec.Project, rec.Duration, rec.Hours, rec.LastSync.UTC(),
	)
	if err != nil {
		return err
	}
	s.log.Debug("mysql record created", slog.String("date", rec.Date), slog.String("project", rec.Project))
	return nil
}

func (s *Store) UpdateRecord(ctx context.Context, id string, rec domain.Record) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return errors.New("mysql: invalid record id " + strconv.Quote(id))
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE timing_daily_totals
SET duration = ?, hours = ?, last_sync = ?
WHERE id = ?`,
		rec.Duration, rec.Hours, rec.LastSync.UTC(), n,
	)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		// MySQL reports 0 for unchanged rows too; only a missing id is an error.
		if _, found, ferr := s.FindRecord(ctx, rec.Date, rec.Project); ferr == nil && !found {
			return errors.New("mysql: record " + id + " not found")
		}
	}
	s.log.Debug("mysql record updated", slog.String("id", id), slog.String("project", rec.Project))
	return nil
}

// Close closes the underlying DB.
func (s *Store) Close() error { return s.db.Close() }
