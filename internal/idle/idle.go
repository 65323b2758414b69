// Package idle reads how long the machine has been without user input.
package idle

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultThreshold is the idle time above which a sync is skipped.
const DefaultThreshold = 300 * time.Second

// ErrUnavailable is returned when the idle counter is missing from the output.
var ErrUnavailable = errors.New("idle time unavailable")

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Detector reads HIDIdleTime from the IOHIDSystem registry entry (macOS).
type Detector struct {
	run Runner
}

func NewDetector() *Detector {
	return &Detector{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, name, args...).Output()
	}}
}

// NewDetectorWithRunner is used by tests to stub the shell-out.
func NewDetectorWithRunner(run Runner) *Detector { return &Detector{run: run} }

// IdleTime runs `ioreg -c IOHIDSystem` and parses the first HIDIdleTime
// value, which is reported in nanoseconds.
func (d *Detector) IdleTime(ctx context.Context) (time.Duration, error) {
	out, err := d.run(ctx, "ioreg", "-c", "IOHIDSystem")
	if err != nil {
		return 0, fmt.Errorf("run ioreg: %w", err)
	}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, "HIDIdleTime") {
			continue
		}
		_, value, ok := strings.Cut(line, "=")
		if !ok {
			return 0, fmt.Errorf("%w: unexpected line %q", ErrUnavailable, line)
		}
		ns, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return time.Duration(ns), nil
	}
	return 0, ErrUnavailable
}

// Exceeds reports whether the machine has been idle longer than threshold.
// Any failure to read the idle time counts as not idle; the error is
// returned for logging only.
func (d *Detector) Exceeds(ctx context.Context, threshold time.Duration) (bool, time.Duration, error) {
	t, err := d.IdleTime(ctx)
	if err != nil {
		return false, 0, err
	}
	return t > threshold, t, nil
}
