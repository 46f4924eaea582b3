// Package treeindex flattens a dictionary forest into a code-keyed arena.
//
// Traversal is iterative (explicit stack), so the depth of a dictionary is
// bounded only by memory. The original forest is retained for rendering and
// is never mutated.
package treeindex

import (
	"github.com/heartmarshall/refdict/internal/domain"
)

// Duplicate records a code seen more than once while building an index.
type Duplicate struct {
	Code string
	// Occurrences counts every time the code was seen, including the first.
	Occurrences int
}

type node struct {
	meta     domain.ItemMeta
	parent   string
	hasPar   bool
	children []string
}

// Index is the flattened form of one forest.
type Index struct {
	forest []domain.TreeNode
	nodes  map[string]*node
	roots  []string
	dups   map[string]int
	order  []string
}

type frame struct {
	n      *domain.TreeNode
	parent string
	hasPar bool
}

// Build indexes the forest. Duplicate codes overwrite the earlier entry
// (last seen wins) and are reported through Duplicates.
func Build(forest []domain.TreeNode) *Index {
	idx := &Index{
		forest: forest,
		nodes:  make(map[string]*node),
		dups:   make(map[string]int),
	}

	// Push in reverse so pops come out in document order.
	stack := make([]frame, 0, len(forest))
	for i := len(forest) - 1; i >= 0; i-- {
		stack = append(stack, frame{n: &forest[i]})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		code := f.n.Code
		if f.hasPar && f.parent == code {
			f.parent, f.hasPar = "", false
		}
		var inherited []string
		if prev, seen := idx.nodes[code]; seen {
			idx.dups[code]++
			idx.detach(code, prev)
			inherited = idx.adoptable(prev.children, f)
		} else {
			idx.order = append(idx.order, code)
		}

		idx.nodes[code] = &node{
			meta: domain.ItemMeta{
				Name:      f.n.Name,
				IconRef:   f.n.IconRef,
				SortOrder: f.n.SortOrder,
				Level:     f.n.Level,
			},
			parent:   f.parent,
			hasPar:   f.hasPar,
			children: inherited,
		}

		if f.hasPar {
			p := idx.nodes[f.parent]
			p.children = append(p.children, code)
		} else {
			idx.roots = append(idx.roots, code)
		}

		for i := len(f.n.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{n: &f.n.Children[i], parent: code, hasPar: true})
		}
	}

	return idx
}

// detach unlinks an earlier occurrence of code from its parent (or the root list)
// so the last occurrence alone determines the hierarchy.
func (idx *Index) detach(code string, prev *node) {
	if !prev.hasPar {
		idx.roots = removeString(idx.roots, code)
		return
	}
	if p, ok := idx.nodes[prev.parent]; ok {
		p.children = removeString(p.children, code)
	}
}

// adoptable filters the children of an earlier occurrence down to those that
// can hang under the new position without forming a cycle.
func (idx *Index) adoptable(children []string, f frame) []string {
	if len(children) == 0 {
		return nil
	}
	blocked := map[string]bool{}
	if f.hasPar {
		blocked[f.parent] = true
		for _, a := range idx.Ancestors(f.parent) {
			blocked[a] = true
		}
	}
	out := make([]string, 0, len(children))
	for _, c := range children {
		if !blocked[c] {
			out = append(out, c)
		}
	}
	return out
}

func removeString(list []string, s string) []string {
	out := list[:0:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// Flatten returns the itemsByCode map for a forest.
func Flatten(forest []domain.TreeNode) map[string]domain.ItemMeta {
	return Build(forest).Items()
}

// Items returns a fresh copy of the code → metadata map.
func (idx *Index) Items() map[string]domain.ItemMeta {
	items := make(map[string]domain.ItemMeta, len(idx.nodes))
	for code, n := range idx.nodes {
		items[code] = n.meta
	}
	return items
}

// Len returns the number of distinct codes.
func (idx *Index) Len() int { return len(idx.nodes) }

// Forest returns the original forest.
func (idx *Index) Forest() []domain.TreeNode { return idx.forest }

// Roots returns root codes in forest order.
func (idx *Index) Roots() []string { return idx.roots }

// Codes returns every distinct code in first-seen document order.
func (idx *Index) Codes() []string { return idx.order }

// Has reports whether code is present.
func (idx *Index) Has(code string) bool {
	_, ok := idx.nodes[code]
	return ok
}

// Lookup returns the metadata of a code.
func (idx *Index) Lookup(code string) (domain.ItemMeta, bool) {
	n, ok := idx.nodes[code]
	if !ok {
		return domain.ItemMeta{}, false
	}
	return n.meta, true
}

// Label returns the display name of a code, or the raw code when unknown.
func (idx *Index) Label(code string) string {
	if n, ok := idx.nodes[code]; ok && n.meta.Name != "" {
		return n.meta.Name
	}
	return code
}

// IsRoot reports whether code is a known root.
func (idx *Index) IsRoot(code string) bool {
	n, ok := idx.nodes[code]
	return ok && !n.hasPar
}

// Parent returns the parent code. ok is false for roots and unknown codes.
func (idx *Index) Parent(code string) (string, bool) {
	n, ok := idx.nodes[code]
	if !ok || !n.hasPar {
		return "", false
	}
	return n.parent, true
}

// Children returns the direct children of code in forest order.
func (idx *Index) Children(code string) []string {
	n, ok := idx.nodes[code]
	if !ok {
		return nil
	}
	return n.children
}

// Descendants returns every code below code, depth first.
func (idx *Index) Descendants(code string) []string {
	n, ok := idx.nodes[code]
	if !ok || len(n.children) == 0 {
		return nil
	}

	var out []string
	seen := map[string]bool{code: true}
	stack := reversed(n.children)
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
		stack = append(stack, reversed(idx.nodes[c].children)...)
	}
	return out
}

// Ancestors returns the chain of ancestors of code, nearest first.
func (idx *Index) Ancestors(code string) []string {
	var out []string
	seen := map[string]bool{code: true}
	for {
		p, ok := idx.Parent(code)
		if !ok || seen[p] {
			return out
		}
		seen[p] = true
		out = append(out, p)
		code = p
	}
}

// RootOf returns the root code of the tree containing code.
func (idx *Index) RootOf(code string) (string, bool) {
	if !idx.Has(code) {
		return "", false
	}
	anc := idx.Ancestors(code)
	if len(anc) == 0 {
		return code, true
	}
	return anc[len(anc)-1], true
}

// Duplicates lists codes that appeared more than once.
func (idx *Index) Duplicates() []Duplicate {
	if len(idx.dups) == 0 {
		return nil
	}
	out := make([]Duplicate, 0, len(idx.dups))
	for _, code := range idx.order {
		if extra, ok := idx.dups[code]; ok {
			out = append(out, Duplicate{Code: code, Occurrences: extra + 1})
		}
	}
	return out
}

func reversed(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
