// Package selection implements the tri-state checkbox selection engine used by
// every dictionary picker.
//
// A Selection is a flat list of codes. A selected code implies its whole
// subtree, so a code and any of its descendants are never present together.
// Every operation returns a new Selection and leaves its input untouched.
package selection

import "slices"

// State is the checkbox state of a node.
type State int

const (
	Unselected State = iota
	Partial
	Full
)

func (s State) String() string {
	switch s {
	case Partial:
		return "partial"
	case Full:
		return "full"
	default:
		return "unselected"
	}
}

// Hierarchy is the read-only tree shape the engine works against.
// *treeindex.Index satisfies it.
type Hierarchy interface {
	Parent(code string) (string, bool)
	Children(code string) []string
	Descendants(code string) []string
}

// Selection is an ordered, duplicate-free list of selected codes.
type Selection []string

// Of builds a Selection from codes, dropping duplicates and empty codes.
func Of(codes ...string) Selection {
	out := make(Selection, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Has reports whether code is present.
func (s Selection) Has(code string) bool { return slices.Contains(s, code) }

// Len returns the number of codes.
func (s Selection) Len() int { return len(s) }

// Codes returns a copy of the codes.
func (s Selection) Codes() []string { return slices.Clone([]string(s)) }

// Set returns the codes as a lookup set.
func (s Selection) Set() map[string]bool {
	m := make(map[string]bool, len(s))
	for _, c := range s {
		m[c] = true
	}
	return m
}

// Equal reports whether both selections hold the same codes regardless of order.
func (s Selection) Equal(other Selection) bool {
	if len(s) != len(other) {
		return false
	}
	set := s.Set()
	for _, c := range other {
		if !set[c] {
			return false
		}
	}
	return true
}

func (s Selection) without(drop map[string]bool) Selection {
	out := make(Selection, 0, len(s))
	for _, c := range s {
		if !drop[c] {
			out = append(out, c)
		}
	}
	return out
}

func (s Selection) with(codes ...string) Selection {
	out := slices.Clone(s)
	set := s.Set()
	for _, c := range codes {
		if !set[c] {
			set[c] = true
			out = append(out, c)
		}
	}
	return out
}
