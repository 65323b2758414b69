// Package reconcile compares a Timing app export against the minutes that
// were actually synced, grouped into named buckets of projects.
package reconcile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"timing-notion-sync/internal/domain"
)

// OtherBucket collects every project no configured bucket names.
const OtherBucket = "Other"

// ExportEntry is one row of the app's JSON export. Minutes is derived from
// Duration when the export is read.
type ExportEntry struct {
	Application string  `json:"application"`
	Project     string  `json:"project"`
	Duration    string  `json:"duration"`
	Minutes     float64 `json:"-"`
}

// ReadExport decodes a JSON array of export entries. A missing application
// or project, or a malformed duration, fails the whole read.
func ReadExport(r io.Reader) ([]ExportEntry, error) {
	var entries []ExportEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, errors.Wrap(err, "decode export")
	}
	for i := range entries {
		if entries[i].Application == "" {
			return nil, errors.Errorf("entry %d: missing application", i)
		}
		if entries[i].Project == "" {
			return nil, errors.Errorf("entry %d (%s): missing project", i, entries[i].Application)
		}
		m, err := domain.ParseClock(entries[i].Duration)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d (%s)", i, entries[i].Project)
		}
		entries[i].Minutes = m
	}
	return entries, nil
}

// Bucket is a named group of project names.
type Bucket struct {
	Name     string   `yaml:"name"`
	Projects []string `yaml:"projects"`
}

// DefaultBuckets are used when no bucket file is given.
func DefaultBuckets() []Bucket {
	return []Bucket{
		{Name: "Development", Projects: []string{"Development", "Web Browsing ▸ Development"}},
		{Name: "Productivity", Projects: []string{"Productivity"}},
	}
}

// LoadBuckets reads a YAML list of buckets:
//
//	- name: Development
//	  projects: [Development, "Web Browsing ▸ Development"]
func LoadBuckets(path string) ([]Bucket, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read buckets")
	}
	var out []Bucket
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrapf(err, "parse buckets %s", path)
	}
	for i, b := range out {
		if strings.TrimSpace(b.Name) == "" {
			return nil, errors.Errorf("bucket %d has no name", i)
		}
	}
	if err := checkBuckets(out); err != nil {
		return nil, err
	}
	return out, nil
}

// BucketTotal is one bucket's members (in configured order, zero when the
// project is absent from the export) and their sum.
type BucketTotal struct {
	Name    string
	Members []domain.ProjectAggregate
	Total   float64
}

// Report is the reconciliation of one export. All amounts are minutes.
type Report struct {
	Buckets     []BucketTotal
	Other       float64
	Projects    []domain.ProjectAggregate // descending by total
	GrandTotal  float64
	Synced      float64
	Discrepancy float64
	Entries     []ExportEntry
}

// Build totals entries per project and per bucket and compares the grand
// total against synced. A project may belong to at most one bucket.
func Build(entries []ExportEntry, buckets []Bucket, synced float64) (*Report, error) {
	if err := checkBuckets(buckets); err != nil {
		return nil, err
	}
	agg := domain.NewAggregates()
	for _, e := range entries {
		agg.Add(e.Project, e.Project, e.Minutes)
	}

	rep := &Report{
		Projects:   agg.Items(),
		GrandTotal: agg.Total(),
		Synced:     synced,
		Entries:    entries,
	}
	sort.SliceStable(rep.Projects, func(i, j int) bool { return rep.Projects[i].Total > rep.Projects[j].Total })

	named := make(map[string]bool)
	for _, b := range buckets {
		bt := BucketTotal{Name: b.Name}
		for _, p := range b.Projects {
			named[p] = true
			var total float64
			if a, ok := agg.Get(p); ok {
				total = a.Total
			}
			bt.Members = append(bt.Members, domain.ProjectAggregate{Key: p, Name: p, Total: total})
			bt.Total += total
		}
		rep.Buckets = append(rep.Buckets, bt)
	}
	for _, p := range rep.Projects {
		if !named[p.Key] {
			rep.Other += p.Total
		}
	}
	rep.Discrepancy = rep.GrandTotal - synced
	return rep, nil
}

func checkBuckets(buckets []Bucket) error {
	names := make(map[string]bool)
	owner := make(map[string]string)
	for _, b := range buckets {
		if b.Name == OtherBucket {
			return errors.Errorf("bucket name %q is reserved", OtherBucket)
		}
		if names[b.Name] {
			return errors.Errorf("duplicate bucket %q", b.Name)
		}
		names[b.Name] = true
		for _, p := range b.Projects {
			if prev, ok := owner[p]; ok {
				return errors.Errorf("project %q is in both %q and %q", p, prev, b.Name)
			}
			owner[p] = b.Name
		}
	}
	return nil
}

// Render writes the human-readable report.
func Render(w io.Writer, rep *Report) error {
	var b strings.Builder
	b.WriteString("=== Timing Export Analysis ===\n\n")

	n := 1
	for _, bt := range rep.Buckets {
		fmt.Fprintf(&b, "%d. %s Total:\n", n, bt.Name)
		for _, m := range bt.Members {
			fmt.Fprintf(&b, "   - %s: %.1f minutes\n", m.Name, m.Total)
		}
		fmt.Fprintf(&b, "   - TOTAL: %.1f minutes (%.1f hours)\n\n", bt.Total, bt.Total/60)
		n++
	}
	fmt.Fprintf(&b, "%d. %s Total:\n", n, OtherBucket)
	fmt.Fprintf(&b, "   - TOTAL: %.1f minutes (%.1f hours)\n\n", rep.Other, rep.Other/60)
	n++

	fmt.Fprintf(&b, "%d. All Projects Summary:\n", n)
	for _, p := range rep.Projects {
		fmt.Fprintf(&b, "   - %s: %.1f minutes (%.1f hours)\n", p.Name, p.Total, p.Total/60)
	}
	b.WriteString("\n")
	n++

	fmt.Fprintf(&b, "%d. Grand Total:\n", n)
	fmt.Fprintf(&b, "   - %.1f minutes (%.1f hours)\n\n", rep.GrandTotal, rep.GrandTotal/60)

	b.WriteString("=== Sync Discrepancy Analysis ===\n")
	fmt.Fprintf(&b, "Export shows %.1f minutes total\n", rep.GrandTotal)
	fmt.Fprintf(&b, "But only %g minutes were synced\n", rep.Synced)
	fmt.Fprintf(&b, "Missing: %.1f minutes (%.1f hours)\n\n", rep.Discrepancy, rep.Discrepancy/60)

	b.WriteString("=== Detailed Activity Breakdown ===\n")
	for _, e := range rep.Entries {
		fmt.Fprintf(&b, "%-20s | %-25s | %-8s | %6.1f min\n", e.Application, e.Project, e.Duration, e.Minutes)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
