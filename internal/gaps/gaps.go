// Package gaps finds irregular intervals between scheduled sync runs by
// reading their start timestamps back out of the sync log.
package gaps

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultLast      = 30
	DefaultExpected  = 15 * time.Minute
	DefaultTolerance = 2 * time.Minute

	timestampLayout = "2006-01-02 15:04:05"
)

// DefaultPattern matches both the legacy banner line and the agent's
// structured start line, where other attributes such as run_id may precede
// started_at. The first group captures the timestamp.
var DefaultPattern = regexp.MustCompile(
	`(?:Starting Timing to Notion sync at |msg="starting timing to notion sync"[^\n]*?\bstarted_at=")` +
		`(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})(?:\.\d+)?`,
)

// Gap is a transition between two runs whose spacing deviated from the
// expected interval. Durations are in minutes.
type Gap struct {
	From     time.Time
	To       time.Time
	Actual   float64
	Expected float64
	Delta    float64
}

// ExtractTimestamps returns the timestamps captured by pattern's first group,
// in file order, keeping only the last n (all when n <= 0). Fractional
// seconds are ignored.
func ExtractTimestamps(r io.Reader, pattern *regexp.Regexp, n int) ([]time.Time, error) {
	if pattern == nil {
		pattern = DefaultPattern
	}
	if pattern.NumSubexp() < 1 {
		return nil, fmt.Errorf("pattern %q has no capture group for the timestamp", pattern)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	matches := pattern.FindAllStringSubmatch(string(content), -1)
	if n > 0 && len(matches) > n {
		matches = matches[len(matches)-n:]
	}
	out := make([]time.Time, 0, len(matches))
	for _, m := range matches {
		raw, _, _ := strings.Cut(m[1], ".")
		ts, err := time.ParseInLocation(timestampLayout, raw, time.Local)
		if err != nil {
			return nil, fmt.Errorf("parse sync timestamp %q: %w", m[1], err)
		}
		out = append(out, ts)
	}
	return out, nil
}

// Detect compares each consecutive pair of timestamps against expected and
// flags the pairs that deviate by more than tolerance.
func Detect(ts []time.Time, expected, tolerance time.Duration) []Gap {
	var out []Gap
	exp := expected.Minutes()
	tol := tolerance.Minutes()
	for i := 1; i < len(ts); i++ {
		gap := ts[i].Sub(ts[i-1]).Seconds() / 60
		if math.Abs(gap-exp) > tol {
			out = append(out, Gap{From: ts[i-1], To: ts[i], Actual: gap, Expected: exp, Delta: gap - exp})
		}
	}
	return out
}

// Render prints the timing analysis.
func Render(w io.Writer, gaps []Gap) error {
	var b strings.Builder
	b.WriteString("Recent sync timing analysis:\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	for _, g := range gaps {
		fmt.Fprintf(&b, "%s -> %s\n", g.From.Format("2006-01-02 15:04"), g.To.Format("15:04"))
		fmt.Fprintf(&b, "  Gap: %.1f minutes (expected %g minutes)\n", g.Actual, g.Expected)
		fmt.Fprintf(&b, "  Delay: %.1f minutes\n\n", g.Delta)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
