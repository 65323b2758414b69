package app

import (
	"log/slog"
	"path/filepath"

	"timing-notion-sync/internal/config"
	"timing-notion-sync/internal/errlog"
	"timing-notion-sync/internal/notify"
)

// Reporter fans a failure out to the bounded error log and a desktop file.
// Write failures are only logged.
type Reporter struct {
	log     *slog.Logger
	errs    *errlog.Log
	desktop *notify.Desktop
}

// NewReporter builds a Reporter from cfg. It works on an unvalidated
// configuration so configuration errors can be reported too.
func NewReporter(log *slog.Logger, cfg config.Config) *Reporter {
	logDir := cfg.Sync.LogDir
	if logDir == "" {
		logDir = "logs"
	}
	return &Reporter{
		log:     log,
		errs:    errlog.New(filepath.Join(logDir, "error.log"), cfg.Sync.MaxErrorEntries),
		desktop: notify.NewDesktop(cfg.Sync.DesktopDir, cfg.Presence()),
	}
}

func (r *Reporter) Report(message, details string, cause error) {
	if err := r.errs.Append(message); err != nil {
		r.log.Warn("failed to write error log", slog.String("path", r.errs.Path()), slog.String("error", err.Error()))
	}
	path, err := r.desktop.Write(message, details, cause)
	if err != nil {
		r.log.Warn("failed to write desktop error file", slog.String("error", err.Error()))
		return
	}
	r.log.Info("error file written", slog.String("path", path))
}
