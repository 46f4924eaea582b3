package search

import "sort"

// Expansion holds the expand/collapse state of a rendered forest as two
// separate sets: what the user opened by hand and what the current search
// forces open. They are unioned only when asked whether a node is expanded,
// so clearing the search restores exactly the user's own state.
type Expansion struct {
	user   map[string]bool
	forced map[string]bool
}

// NewExpansion creates an expansion state with the given codes expanded by the user.
func NewExpansion(expanded ...string) *Expansion {
	x := &Expansion{user: make(map[string]bool, len(expanded)), forced: map[string]bool{}}
	for _, c := range expanded {
		x.user[c] = true
	}
	return x
}

// Toggle flips the user's expand state of code.
func (x *Expansion) Toggle(code string) {
	x.SetUser(code, !x.user[code])
}

// SetUser sets the user's expand state of code.
func (x *Expansion) SetUser(code string, expanded bool) {
	next := make(map[string]bool, len(x.user)+1)
	for c := range x.user {
		next[c] = true
	}
	if expanded {
		next[code] = true
	} else {
		delete(next, code)
	}
	x.user = next
}

// ApplySearch replaces the search-forced set with the result's.
func (x *Expansion) ApplySearch(r Result) {
	forced := make(map[string]bool, len(r.ForceExpanded))
	for c := range r.ForceExpanded {
		forced[c] = true
	}
	x.forced = forced
}

// ClearSearch drops every search-forced expansion.
func (x *Expansion) ClearSearch() {
	x.forced = map[string]bool{}
}

// IsExpanded reports whether code renders expanded.
func (x *Expansion) IsExpanded(code string) bool {
	return x.user[code] || x.forced[code]
}

// UserExpanded returns the codes the user expanded, sorted.
func (x *Expansion) UserExpanded() []string { return sortedKeys(x.user) }

// Forced returns the codes expanded by the current search, sorted.
func (x *Expansion) Forced() []string { return sortedKeys(x.forced) }

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
