// Package errlog keeps the most recent sync errors in a plain text file,
// one "<timestamp> - ERROR: <message>" line per error.
package errlog

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultCapacity is how many lines the file keeps.
	DefaultCapacity = 50

	timestampLayout = "2006-01-02 15:04:05"
)

// Log is a bounded error log persisted between runs.
type Log struct {
	path     string
	capacity int
	now      func() time.Time
}

func New(path string, capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{path: path, capacity: capacity, now: time.Now}
}

func (l *Log) Path() string { return l.path }

// Append adds message to the log and drops the oldest lines beyond capacity.
func (l *Log) Append(message string) error {
	ring, err := l.read()
	if err != nil {
		return err
	}
	line := l.now().Format(timestampLayout) + " - ERROR: " + strings.ReplaceAll(message, "\n", " ")
	ring.Push(line)

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return errors.Wrap(err, "create error log dir")
	}
	var b strings.Builder
	for _, e := range ring.Items() {
		b.WriteString(e)
		b.WriteByte('\n')
	}
	return errors.Wrap(os.WriteFile(l.path, []byte(b.String()), 0o644), "write error log")
}

// Entries returns the current lines, oldest first.
func (l *Log) Entries() ([]string, error) {
	ring, err := l.read()
	if err != nil {
		return nil, err
	}
	return ring.Items(), nil
}

func (l *Log) read() (*Ring[string], error) {
	ring := NewRing[string](l.capacity)
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return ring, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "open error log")
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			ring.Push(line)
		}
	}
	return ring, errors.Wrap(sc.Err(), "read error log")
}
