package picker

import "github.com/heartmarshall/refdict/internal/domain"

// Rows returns the visible rows in display order: the filtered forest walked
// depth first, descending only into expanded nodes.
func (p *Picker) Rows() []Row {
	type item struct {
		n     *domain.TreeNode
		depth int
	}

	forest := p.filtered.Forest
	stack := make([]item, 0, len(forest))
	for i := len(forest) - 1; i >= 0; i-- {
		stack = append(stack, item{n: &forest[i]})
	}

	var rows []Row
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := it.n
		expanded := p.expansion.IsExpanded(n.Code)
		rows = append(rows, Row{
			Code:        n.Code,
			Label:       p.index.Label(n.Code),
			IconRef:     n.IconRef,
			Depth:       it.depth,
			State:       p.engine.RootState(p.sel, n.Code),
			HasChildren: len(n.Children) > 0,
			Expanded:    expanded && len(n.Children) > 0,
		})

		if !expanded {
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{n: &n.Children[i], depth: it.depth + 1})
		}
	}
	return rows
}
