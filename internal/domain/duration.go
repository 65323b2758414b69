package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

// ErrMalformedDuration is returned for text that is not H:MM:SS.
var ErrMalformedDuration = errors.New("malformed duration")

var clockRe = regexp.MustCompile(`^(\d+):([0-5]\d):([0-5]\d)$`)

// ParseClock converts "H:MM:SS" to minutes. Hours are unbounded; minutes and
// seconds must be two digits below 60.
func ParseClock(text string) (float64, error) {
	m := clockRe.FindStringSubmatch(text)
	if m == nil {
		return 0, errors.Wrapf(ErrMalformedDuration, "%q", text)
	}
	h, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedDuration, "%q: %v", text, err)
	}
	mm, _ := strconv.Atoi(m[2])
	ss, _ := strconv.Atoi(m[3])
	return float64(h)*60 + float64(mm) + float64(ss)/60, nil
}

// FormatClock renders seconds as "H:MM:SS", truncating fractions.
// Negative input renders as 0:00:00.
func FormatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// RoundHours converts seconds to hours rounded to three decimals.
func RoundHours(seconds float64) float64 {
	return math.Round(seconds/3600*1000) / 1000
}
