package refapi

import "github.com/heartmarshall/refdict/internal/domain"

// apiResponse is the body of GET /dictionaries/with-items.
type apiResponse struct {
	Dictionaries []apiDictionaryTree `json:"dictionaries"`
	PageInfo     apiPageInfo         `json:"pageInfo"`
	Status       int                 `json:"status"`
	Message      string              `json:"message"`
}

type apiPageInfo struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

type apiDictionaryTree struct {
	Dictionary apiDictionary `json:"dictionary"`
	Tree       []apiNode     `json:"tree"`
}

type apiDictionary struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type apiNode struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	IconRef   string    `json:"iconRef"`
	AltCode   string    `json:"altCode"`
	SortOrder int       `json:"sortOrder"`
	Level     int       `json:"level"`
	Children  []apiNode `json:"children"`
}

func (r apiResponse) ok() bool { return r.Status == 0 || r.Status == 200 }

func mapPage(r apiResponse) *domain.DictionaryPage {
	page := &domain.DictionaryPage{
		Dictionaries: make([]domain.DictionaryTree, 0, len(r.Dictionaries)),
		TotalPages:   r.PageInfo.TotalPages,
		Status:       r.Status,
	}
	if page.Status == 0 {
		page.Status = 200
	}
	for _, d := range r.Dictionaries {
		page.Dictionaries = append(page.Dictionaries, domain.DictionaryTree{
			Dictionary: domain.Dictionary{ID: d.Dictionary.ID, Code: d.Dictionary.Code, Name: d.Dictionary.Name},
			Tree:       mapForest(d.Tree),
		})
	}
	return page
}

// mapForest converts the wire forest without recursion so arbitrarily deep
// trees cannot exhaust the stack.
func mapForest(nodes []apiNode) []domain.TreeNode {
	out := make([]domain.TreeNode, len(nodes))
	type job struct {
		src []apiNode
		dst []domain.TreeNode
	}
	stack := []job{{src: nodes, dst: out}}
	for len(stack) > 0 {
		j := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for i, n := range j.src {
			j.dst[i] = domain.TreeNode{
				Code:      n.Code,
				Name:      n.Name,
				IconRef:   n.IconRef,
				AltCode:   n.AltCode,
				SortOrder: n.SortOrder,
				Level:     n.Level,
			}
			if len(n.Children) > 0 {
				j.dst[i].Children = make([]domain.TreeNode, len(n.Children))
				stack = append(stack, job{src: n.Children, dst: j.dst[i].Children})
			}
		}
	}
	return out
}
