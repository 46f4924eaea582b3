// Package search narrows a dictionary forest to the branches matching a
// query and tracks which branches must be expanded to reveal the matches.
package search

import (
	"sort"

	"github.com/heartmarshall/refdict/internal/domain"
)

// Result is the outcome of filtering a forest.
type Result struct {
	// Forest holds the kept nodes. Nodes are shallow copies; children of a
	// node that matched on its own are the original, unfiltered slices.
	Forest []domain.TreeNode
	// ForceExpanded holds every kept node that has a matching descendant.
	ForceExpanded map[string]bool
	// Query is the normalized query the result was computed for.
	Query string
}

// Active reports whether the result came from a non-empty query.
func (r Result) Active() bool { return r.Query != "" }

// ExpandedCodes returns the force-expanded codes sorted.
func (r Result) ExpandedCodes() []string {
	out := make([]string, 0, len(r.ForceExpanded))
	for c := range r.ForceExpanded {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Matches reports whether a single node matches an already normalized query
// by name or alternate code.
func Matches(n *domain.TreeNode, normalizedQuery string) bool {
	return domain.ContainsNormalized(n.Name, normalizedQuery) ||
		domain.ContainsNormalized(n.AltCode, normalizedQuery)
}

type frame struct {
	n         *domain.TreeNode
	next      int
	kept      []domain.TreeNode
	descMatch bool
}

// Filter keeps every node that matches query together with its whole
// subtree, plus the ancestors needed to reach it. A root that matches keeps
// all its children; a root that does not is kept only with its matching
// children. An empty query returns the forest unchanged.
//
// The input forest is never modified.
func Filter(query string, forest []domain.TreeNode) Result {
	q := domain.NormalizeText(query)
	if q == "" {
		return Result{Forest: forest, ForceExpanded: map[string]bool{}}
	}

	res := Result{
		Forest:        []domain.TreeNode{},
		ForceExpanded: map[string]bool{},
		Query:         q,
	}

	for i := range forest {
		stack := []*frame{{n: &forest[i]}}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.next < len(top.n.Children) {
				child := &top.n.Children[top.next]
				top.next++
				stack = append(stack, &frame{n: child})
				continue
			}
			stack = stack[:len(stack)-1]

			self := Matches(top.n, q)
			if top.descMatch {
				res.ForceExpanded[top.n.Code] = true
			}

			var (
				out  domain.TreeNode
				keep bool
			)
			switch {
			case self:
				out, keep = *top.n, true
			case len(top.kept) > 0:
				out, keep = *top.n, true
				out.Children = top.kept
			}

			if len(stack) == 0 {
				if keep {
					res.Forest = append(res.Forest, out)
				}
				continue
			}
			parent := stack[len(stack)-1]
			if self || top.descMatch {
				parent.descMatch = true
			}
			if keep {
				parent.kept = append(parent.kept, out)
			}
		}
	}

	return res
}
