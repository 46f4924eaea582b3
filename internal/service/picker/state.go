package picker

import (
	"github.com/heartmarshall/refdict/internal/search"
	"github.com/heartmarshall/refdict/internal/selection"
	"github.com/heartmarshall/refdict/internal/treeindex"
)

// Picker is the state of one open picker. It is not safe for concurrent use.
type Picker struct {
	props     Props
	rec       changeRecorder
	name      string
	err       error
	index     *treeindex.Index
	engine    *selection.Engine
	expansion *search.Expansion
	filtered  search.Result
	sel       selection.Selection
}

// Degraded reports whether the dictionary could not be resolved.
func (p *Picker) Degraded() bool { return p.err != nil }

// Err returns the resolve error of a degraded picker.
func (p *Picker) Err() error { return p.err }

// DictionaryName returns the resolved dictionary's display name.
func (p *Picker) DictionaryName() string { return p.name }

// Query returns the active search query, normalized.
func (p *Picker) Query() string { return p.filtered.Query }

// Value returns the selected codes in the picker's external representation.
func (p *Picker) Value() Value {
	if len(p.sel) == 0 {
		return Value{}
	}
	if !p.props.Multiple {
		return Single(p.sel[0])
	}
	return Many(p.sel.Codes()...)
}

// Selected returns the labels of the selected codes, in selection order.
// Unknown codes are labelled with themselves.
func (p *Picker) Selected() []Row {
	rows := make([]Row, 0, len(p.sel))
	for _, c := range p.sel {
		meta, _ := p.index.Lookup(c)
		rows = append(rows, Row{
			Code:    c,
			Label:   p.index.Label(c),
			IconRef: meta.IconRef,
			State:   selection.Full,
		})
	}
	return rows
}

// ClickRoot toggles a whole branch.
func (p *Picker) ClickRoot(code string) {
	p.apply(p.engine.SelectRoot(p.sel, code))
}

// ClickLeaf toggles one leaf.
func (p *Picker) ClickLeaf(code string) {
	parent, _ := p.index.Parent(code)
	p.apply(p.engine.SelectLeaf(p.sel, code, parent))
}

// Click toggles code, whatever its position in the tree.
func (p *Picker) Click(code string) {
	p.apply(p.engine.Toggle(p.sel, code))
}

// Clear empties the selection.
func (p *Picker) Clear() {
	p.apply(p.engine.Clear())
}

// Search narrows the visible rows to query and expands the branches holding
// matches. An empty query restores the full tree and the user's own
// expansion state.
func (p *Picker) Search(query string) {
	p.filtered = search.Filter(query, p.index.Forest())
	if p.filtered.Active() {
		p.expansion.ApplySearch(p.filtered)
		return
	}
	p.expansion.ClearSearch()
}

// ToggleExpand flips the user's expand state of code.
func (p *Picker) ToggleExpand(code string) {
	p.expansion.Toggle(code)
}

func (p *Picker) apply(next selection.Selection) {
	if next.Equal(p.sel) {
		return
	}
	p.sel = next
	if p.rec != nil {
		p.rec.IncSelectionChange(p.props.Multiple)
	}
	if p.props.OnChange != nil {
		p.props.OnChange(p.Value())
	}
}
