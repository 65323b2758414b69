package domain

// ProjectAggregate is the accumulated duration of one project.
type ProjectAggregate struct {
	Key   string
	Name  string
	Total float64
}

// Aggregates folds durations by key and remembers first-seen order so
// reports list projects the way they appeared in the input.
type Aggregates struct {
	items []ProjectAggregate
	index map[string]int
}

func NewAggregates() *Aggregates {
	return &Aggregates{index: make(map[string]int)}
}

// Aggregate groups entries by project key and sums their durations in seconds.
func Aggregate(entries []TimeEntry) *Aggregates {
	agg := NewAggregates()
	for _, e := range entries {
		agg.Add(e.Project.Key(), e.Project.Name(), e.DurationSec)
	}
	return agg
}

// Add accumulates amount under key. The name is fixed by the first call for
// a key. Negative amounts are dropped and Add reports false.
func (a *Aggregates) Add(key, name string, amount float64) bool {
	if amount < 0 {
		return false
	}
	i, ok := a.index[key]
	if !ok {
		a.index[key] = len(a.items)
		a.items = append(a.items, ProjectAggregate{Key: key, Name: name, Total: amount})
		return true
	}
	a.items[i].Total += amount
	return true
}

// Get returns the aggregate stored under key.
func (a *Aggregates) Get(key string) (ProjectAggregate, bool) {
	i, ok := a.index[key]
	if !ok {
		return ProjectAggregate{}, false
	}
	return a.items[i], true
}

// Items returns a copy of the aggregates in first-seen order.
func (a *Aggregates) Items() []ProjectAggregate {
	out := make([]ProjectAggregate, len(a.items))
	copy(out, a.items)
	return out
}

func (a *Aggregates) Len() int { return len(a.items) }

// Total sums every aggregate.
func (a *Aggregates) Total() float64 {
	var sum float64
	for _, it := range a.items {
		sum += it.Total
	}
	return sum
}
