package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sync.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSyncGaps_ReportsDelayedRun(t *testing.T) {
	path := writeLog(t, `Starting Timing to Notion sync at 2025-07-17 10:00:00.000001
Starting Timing to Notion sync at 2025-07-17 10:15:00.000001
Starting Timing to Notion sync at 2025-07-17 10:33:00.000001
Starting Timing to Notion sync at 2025-07-17 10:48:00.000001
`)
	out, _, err := run(t, path)
	require.NoError(t, err)
	assert.Contains(t, out, "2025-07-17 10:15 -> 10:33\n  Gap: 18.0 minutes (expected 15 minutes)\n  Delay: 3.0 minutes\n")
	assert.NotContains(t, out, "10:00 ->")
}

func TestSyncGaps_CustomInterval(t *testing.T) {
	path := writeLog(t, `Starting Timing to Notion sync at 2025-07-17 10:00:00
Starting Timing to Notion sync at 2025-07-17 10:30:00
`)
	out, _, err := run(t, "--expected", "30m", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "Gap:")
}

func TestSyncGaps_FewerThanTwoRuns(t *testing.T) {
	out, errOut, err := run(t, writeLog(t, "Starting Timing to Notion sync at 2025-07-17 10:00:00\n"))
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "fewer than two sync runs")
}

func TestSyncGaps_Errors(t *testing.T) {
	_, _, err := run(t, filepath.Join(t.TempDir(), "missing.log"))
	assert.Error(t, err)

	_, _, err = run(t, "--pattern", "(", writeLog(t, ""))
	assert.Error(t, err)
}
