package domain

// TimeEntry represents one row of a Timing report in the domain.
type TimeEntry struct {
	Project     ProjectRef
	DurationSec float64 // Negative values are dropped during aggregation
	Title       string
}
