package selection

// Engine converts (current selection, user action) into the next selection.
type Engine struct {
	tree     Hierarchy
	multiple bool
}

// NewEngine creates an engine over tree. With multiple=false every select
// call replaces the selection with the chosen code (or empties it when that
// code is already the sole member).
func NewEngine(tree Hierarchy, multiple bool) *Engine {
	return &Engine{tree: tree, multiple: multiple}
}

// Multiple reports whether the engine runs in multi-select mode.
func (e *Engine) Multiple() bool { return e.multiple }

// Clear returns the empty selection.
func (e *Engine) Clear() Selection { return Selection{} }

// SelectRoot toggles a whole branch. Selecting a branch removes any of its
// descendants already present, which is also how an "every leaf selected"
// encoding gets collapsed into the root code.
func (e *Engine) SelectRoot(sel Selection, root string) Selection {
	if !e.multiple {
		return e.single(sel, root)
	}
	return e.toggle(sel, root, "")
}

// SelectLeaf toggles one leaf. When parentRoot (or any other ancestor) is
// selected as a whole branch, that ancestor is replaced by every other
// sibling along the path down to leaf. parentRoot may be empty.
func (e *Engine) SelectLeaf(sel Selection, leaf, parentRoot string) Selection {
	if !e.multiple {
		return e.single(sel, leaf)
	}
	return e.toggle(sel, leaf, parentRoot)
}

// Toggle dispatches a click on code to SelectRoot or SelectLeaf.
func (e *Engine) Toggle(sel Selection, code string) Selection {
	if parent, ok := e.tree.Parent(code); ok {
		return e.SelectLeaf(sel, code, parent)
	}
	return e.SelectRoot(sel, code)
}

func (e *Engine) single(sel Selection, code string) Selection {
	if len(sel) == 1 && sel[0] == code {
		return Selection{}
	}
	return Selection{code}
}

func (e *Engine) toggle(sel Selection, code, hint string) Selection {
	if sel.Has(code) {
		return sel.without(map[string]bool{code: true})
	}

	if anc, ok := e.selectedAncestor(sel, code, hint); ok {
		return e.carve(sel, anc, code)
	}

	drop := make(map[string]bool)
	for _, d := range e.tree.Descendants(code) {
		drop[d] = true
	}
	return sel.without(drop).with(code)
}

// selectedAncestor finds the ancestor of code that is selected as a whole
// branch. hint is trusted only when the hierarchy does not know code's parent.
func (e *Engine) selectedAncestor(sel Selection, code, hint string) (string, bool) {
	set := sel.Set()
	if a, ok := e.nearestIn(set, code); ok {
		return a, true
	}
	if _, known := e.tree.Parent(code); !known && hint != "" && hint != code && set[hint] {
		return hint, true
	}
	return "", false
}

// nearestIn walks up from code and returns the first ancestor present in set.
func (e *Engine) nearestIn(set map[string]bool, code string) (string, bool) {
	seen := map[string]bool{code: true}
	cur := code
	for {
		p, ok := e.tree.Parent(cur)
		if !ok || seen[p] {
			return "", false
		}
		if set[p] {
			return p, true
		}
		seen[p] = true
		cur = p
	}
}

// carve turns "ancestor selected" into "ancestor's subtree minus code" by
// selecting every sibling on the path from code up to ancestor.
func (e *Engine) carve(sel Selection, ancestor, code string) Selection {
	var add []string
	seen := map[string]bool{}
	cur := code
	for cur != ancestor && !seen[cur] {
		seen[cur] = true
		parent, ok := e.tree.Parent(cur)
		if !ok {
			parent = ancestor
		}
		for _, sib := range e.tree.Children(parent) {
			if sib != cur {
				add = append(add, sib)
			}
		}
		cur = parent
	}
	return sel.without(map[string]bool{ancestor: true}).with(add...)
}

// RootState computes the checkbox state of code. A node is Full when it or
// one of its ancestors is selected, or every child is Full; Partial when
// something below it is selected but it is not Full.
func (e *Engine) RootState(sel Selection, code string) State {
	set := sel.Set()
	if _, ok := e.nearestIn(set, code); ok {
		return Full
	}
	return e.states(set, code)[code]
}

type visit struct {
	code     string
	expanded bool
}

func (e *Engine) states(set map[string]bool, code string) map[string]State {
	states := make(map[string]State)
	visited := map[string]bool{code: true}
	stack := []visit{{code: code}}

	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if set[v.code] {
			states[v.code] = Full
			continue
		}
		kids := e.tree.Children(v.code)
		if len(kids) == 0 {
			states[v.code] = Unselected
			continue
		}
		if !v.expanded {
			stack = append(stack, visit{code: v.code, expanded: true})
			for _, k := range kids {
				if !visited[k] {
					visited[k] = true
					stack = append(stack, visit{code: k})
				}
			}
			continue
		}

		full, some := true, false
		for _, k := range kids {
			switch states[k] {
			case Full:
				some = true
			case Partial:
				some = true
				full = false
			default:
				full = false
			}
		}
		switch {
		case full:
			states[v.code] = Full
		case some:
			states[v.code] = Partial
		default:
			states[v.code] = Unselected
		}
	}
	return states
}

// Canonical collapses every branch whose children are all Full into the
// branch code. The engine never calls it on its own: the per-leaf encoding
// is kept until the user clicks the root.
func (e *Engine) Canonical(sel Selection) Selection {
	out := sel
	for {
		collapsed := false
		set := out.Set()
		for _, c := range out {
			p, ok := e.tree.Parent(c)
			if !ok || set[p] {
				continue
			}
			if e.RootState(out, p) == Full {
				drop := make(map[string]bool)
				for _, d := range e.tree.Descendants(p) {
					drop[d] = true
				}
				out = out.without(drop).with(p)
				collapsed = true
				break
			}
		}
		if !collapsed {
			return out
		}
	}
}

// Sanitize dedupes an externally supplied selection and drops codes whose
// ancestor is also present. Unknown codes are kept as-is. In single-select
// mode only the first code survives.
func (e *Engine) Sanitize(sel Selection) Selection {
	clean := Of(sel...)
	if !e.multiple && len(clean) > 1 {
		clean = clean[:1]
	}
	set := clean.Set()
	drop := make(map[string]bool)
	for _, c := range clean {
		if _, ok := e.nearestIn(set, c); ok {
			drop[c] = true
		}
	}
	if len(drop) == 0 {
		return clean
	}
	return clean.without(drop)
}
