package gaps

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hh, mm int) time.Time {
	return time.Date(2025, 7, 17, hh, mm, 0, 0, time.Local)
}

func TestDetect_FlagsOnlyDeviatingTransition(t *testing.T) {
	ts := []time.Time{at(10, 0), at(10, 15), at(10, 33), at(10, 48)}
	gaps := Detect(ts, DefaultExpected, DefaultTolerance)
	require.Len(t, gaps, 1)
	assert.Equal(t, at(10, 15), gaps[0].From)
	assert.Equal(t, at(10, 33), gaps[0].To)
	assert.InDelta(t, 18.0, gaps[0].Actual, 1e-9)
	assert.InDelta(t, 15.0, gaps[0].Expected, 1e-9)
	assert.InDelta(t, 3.0, gaps[0].Delta, 1e-9)
}

func TestDetect_ToleranceIsExclusive(t *testing.T) {
	ts := []time.Time{at(9, 0), at(9, 17), at(9, 30)}
	assert.Empty(t, Detect(ts, DefaultExpected, DefaultTolerance), "17 and 13 minutes are exactly 2 off")
}

func TestDetect_EarlyRunHasNegativeDelta(t *testing.T) {
	gaps := Detect([]time.Time{at(9, 0), at(9, 5)}, DefaultExpected, DefaultTolerance)
	require.Len(t, gaps, 1)
	assert.InDelta(t, -10.0, gaps[0].Delta, 1e-9)
}

func TestDetect_FewerThanTwo(t *testing.T) {
	assert.Empty(t, Detect(nil, DefaultExpected, DefaultTolerance))
	assert.Empty(t, Detect([]time.Time{at(9, 0)}, DefaultExpected, DefaultTolerance))
}

const sampleLog = `Starting Timing to Notion sync at 2025-07-17 10:00:01.123456
Fetching data for 2025-07-17 (PDT)
Starting Timing to Notion sync at 2025-07-17 10:15:02.000001
time=2025-07-17T10:33:00.000-07:00 level=INFO msg="starting timing to notion sync" run_id=3adb3f14-5b1e-4c8e-9d7a-0f2c6e1b9a41 started_at="2025-07-17 10:33:00.000000"
time=2025-07-17T10:33:01.000-07:00 level=INFO msg="fetching timing report" run_id=3adb3f14-5b1e-4c8e-9d7a-0f2c6e1b9a41 date=2025-07-17
Starting Timing to Notion sync at 2025-07-17 10:48:00
`

func TestExtractTimestamps(t *testing.T) {
	ts, err := ExtractTimestamps(strings.NewReader(sampleLog), nil, DefaultLast)
	require.NoError(t, err)
	require.Len(t, ts, 4)
	assert.Equal(t, time.Date(2025, 7, 17, 10, 0, 1, 0, time.Local), ts[0])
	assert.Equal(t, time.Date(2025, 7, 17, 10, 33, 0, 0, time.Local), ts[2])
	assert.Equal(t, time.Date(2025, 7, 17, 10, 48, 0, 0, time.Local), ts[3])
}

func TestExtractTimestamps_StartedAtMustBelongToBanner(t *testing.T) {
	log := `time=2025-07-17T10:00:00.000-07:00 level=INFO msg="sync complete" started_at="2025-07-17 10:00:00.000000"
time=2025-07-17T10:15:00.000-07:00 level=INFO msg="starting timing to notion sync"
time=2025-07-17T10:15:01.000-07:00 level=INFO msg=other started_at="2025-07-17 10:15:01.000000"
`
	ts, err := ExtractTimestamps(strings.NewReader(log), nil, 0)
	require.NoError(t, err)
	assert.Empty(t, ts)
}

func TestExtractTimestamps_KeepsLastN(t *testing.T) {
	ts, err := ExtractTimestamps(strings.NewReader(sampleLog), nil, 2)
	require.NoError(t, err)
	require.Len(t, ts, 2)
	assert.Equal(t, 33, ts[0].Minute())
	assert.Equal(t, 48, ts[1].Minute())
}

func TestExtractTimestamps_MalformedTimestampFails(t *testing.T) {
	_, err := ExtractTimestamps(strings.NewReader("Starting Timing to Notion sync at 2025-13-45 10:00:00.1\n"), nil, 0)
	assert.Error(t, err)
}

func TestExtractTimestamps_CustomPattern(t *testing.T) {
	re := regexp.MustCompile(`run at (\S+ \S+)`)
	ts, err := ExtractTimestamps(strings.NewReader("run at 2025-07-17 08:00:00.5\nrun at 2025-07-17 08:15:00\n"), re, 0)
	require.NoError(t, err)
	assert.Len(t, ts, 2)

	_, err = ExtractTimestamps(strings.NewReader(""), regexp.MustCompile(`run`), 0)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, []Gap{{From: at(10, 15), To: at(10, 33), Actual: 18, Expected: 15, Delta: 3}}))
	assert.Equal(t, "Recent sync timing analysis:\n"+
		strings.Repeat("-", 60)+"\n"+
		"2025-07-17 10:15 -> 10:33\n"+
		"  Gap: 18.0 minutes (expected 15 minutes)\n"+
		"  Delay: 3.0 minutes\n\n", buf.String())
}
