package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Project represents a Timing project as listed by the projects endpoint.
type Project struct {
	ID    string // Last path segment of the API "self" reference
	Title string
}

// ProjectKind tells which shape the "project" field of a report row had.
type ProjectKind int

const (
	ProjectAbsent ProjectKind = iota
	ProjectFlat
	ProjectHierarchical
)

const (
	uncategorizedKey  = "uncategorized"
	uncategorizedName = "Uncategorized"
	unknownKey        = "unknown"
	unknownName       = "Unknown"

	// ChainSeparator joins the levels of a project hierarchy into a display name.
	ChainSeparator = " > "
)

// ProjectRef is the project a time entry belongs to, resolved once when the
// entry is read. Use the constructors rather than filling fields by hand.
type ProjectRef struct {
	Kind  ProjectKind
	ID    string   // hierarchical only; may be empty
	Chain []string // hierarchical only; root first
	Label string   // flat only
}

func AbsentProject() ProjectRef { return ProjectRef{Kind: ProjectAbsent} }

func FlatProject(name string) ProjectRef { return ProjectRef{Kind: ProjectFlat, Label: name} }

func HierarchicalProject(id string, chain ...string) ProjectRef {
	return ProjectRef{Kind: ProjectHierarchical, ID: id, Chain: chain}
}

// Key returns the stable grouping key. Same-named projects at different
// depths of the hierarchy keep distinct keys.
func (p ProjectRef) Key() string {
	switch p.Kind {
	case ProjectFlat:
		return p.Label
	case ProjectHierarchical:
		if p.ID == "" {
			return unknownKey
		}
		return p.ID
	default:
		return uncategorizedKey
	}
}

// Name returns the display name used as the record title.
func (p ProjectRef) Name() string {
	switch p.Kind {
	case ProjectFlat:
		return p.Label
	case ProjectHierarchical:
		if len(p.Chain) == 0 {
			return unknownName
		}
		return strings.Join(p.Chain, ChainSeparator)
	default:
		return uncategorizedName
	}
}

type rawProject struct {
	Self       string   `json:"self"`
	Title      string   `json:"title"`
	TitleChain []string `json:"title_chain"`
}

// ParseProjectRef resolves the raw "project" field of a report row.
// Objects become hierarchical refs, strings flat refs, and anything else
// (missing, null, numbers, arrays) is absent.
func ParseProjectRef(raw json.RawMessage) ProjectRef {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return AbsentProject()
	}
	switch raw[0] {
	case '{':
		var rp rawProject
		if err := json.Unmarshal(raw, &rp); err != nil {
			return AbsentProject()
		}
		chain := rp.TitleChain
		if len(chain) == 0 && rp.Title != "" {
			chain = []string{rp.Title}
		}
		return HierarchicalProject(rp.Self, chain...)
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return AbsentProject()
		}
		return FlatProject(s)
	default:
		return AbsentProject()
	}
}
