// Package notify drops a text file on the desktop when a sync fails so the
// operator notices without reading logs.
package notify

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"timing-notion-sync/internal/config"
)

// Desktop writes one TIMING_SYNC_ERROR_<timestamp>.txt file per failure.
type Desktop struct {
	dir      string
	settings []config.Setting
	now      func() time.Time
}

func NewDesktop(dir string, settings []config.Setting) *Desktop {
	return &Desktop{dir: dir, settings: settings, now: time.Now}
}

// Write creates the error file and returns its path. details may be empty;
// cause, when non-nil, is printed with %+v so wrapped errors carry their
// stack trace.
func (d *Desktop) Write(message, details string, cause error) (string, error) {
	if d.dir == "" {
		return "", errors.New("notify: no desktop directory configured")
	}
	now := d.now()
	path := filepath.Join(d.dir, "TIMING_SYNC_ERROR_"+now.Format("2006_01_02_150405")+".txt")

	var b strings.Builder
	fmt.Fprintf(&b, "Timing Sync Failed at %s\n\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Error Details:\n%s\n\n", message)
	if details == "" {
		details = "No additional details"
	}
	fmt.Fprintf(&b, "%s\n\n", details)
	if cause != nil {
		fmt.Fprintf(&b, "Trace:\n%+v\n\n", cause)
	}
	b.WriteString("Environment Variables Set:\n")
	for _, s := range d.settings {
		state := "Not Set"
		if s.Set {
			state = "Set"
		}
		fmt.Fprintf(&b, "%s: %s\n", s.Name, state)
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "notify: create desktop dir")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", errors.Wrap(err, "notify: write error file")
	}
	return path, nil
}
