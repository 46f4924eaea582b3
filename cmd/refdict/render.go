package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/heartmarshall/refdict/internal/domain"
	"github.com/heartmarshall/refdict/internal/search"
	"github.com/heartmarshall/refdict/internal/selection"
	"github.com/heartmarshall/refdict/internal/service/picker"
)

type rowSource interface {
	Rows() []picker.Row
	Value() picker.Value
	Degraded() bool
}

func checkbox(s selection.State) string {
	switch s {
	case selection.Full:
		return "[x]"
	case selection.Partial:
		return "[-]"
	default:
		return "[ ]"
	}
}

func renderTree(w io.Writer, p rowSource) {
	if p.Degraded() {
		fmt.Fprintln(w, "(dictionary unavailable, showing raw codes)")
	}
	for _, r := range p.Rows() {
		marker := " "
		switch {
		case r.HasChildren && r.Expanded:
			marker = "v"
		case r.HasChildren:
			marker = ">"
		}
		fmt.Fprintf(w, "%s%s %s %s (%s)\n", strings.Repeat("  ", r.Depth), marker, checkbox(r.State), r.Label, r.Code)
	}
	if v := p.Value(); !v.IsEmpty() {
		fmt.Fprintf(w, "selected: %s\n", strings.Join(v.Codes, ", "))
	}
}

// branchCodes returns the code of every node that has children.
func branchCodes(forest []domain.TreeNode) []string {
	var out []string
	stack := make([]*domain.TreeNode, 0, len(forest))
	for i := range forest {
		stack = append(stack, &forest[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(n.Children) == 0 {
			continue
		}
		out = append(out, n.Code)
		for i := range n.Children {
			stack = append(stack, &n.Children[i])
		}
	}
	return out
}

// matchPaths lists the items of forest matching query as
// "Root / ... / Item (CODE)" in forest order.
func matchPaths(forest []domain.TreeNode, query string) []string {
	res := search.Filter(query, forest)
	if !res.Active() {
		return nil
	}

	type frame struct {
		n    *domain.TreeNode
		path []string
	}
	stack := make([]frame, 0, len(res.Forest))
	for i := len(res.Forest) - 1; i >= 0; i-- {
		stack = append(stack, frame{n: &res.Forest[i]})
	}

	var out []string
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		path := append(slices.Clip(f.path), f.n.Name)
		if search.Matches(f.n, res.Query) {
			out = append(out, fmt.Sprintf("%s (%s)", strings.Join(path, " / "), f.n.Code))
		}
		for i := len(f.n.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{n: &f.n.Children[i], path: path})
		}
	}
	return out
}
