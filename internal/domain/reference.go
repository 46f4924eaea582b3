package domain

import (
	"time"

	"github.com/google/uuid"
)

// TreeNode is one item of a reference dictionary forest. Codes are unique
// across the entire forest, so a selection is a flat set of codes.
type TreeNode struct {
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	IconRef   string     `json:"iconRef,omitempty"`
	AltCode   string     `json:"altCode,omitempty"`
	SortOrder int        `json:"sortOrder"`
	Level     int        `json:"level"`
	Children  []TreeNode `json:"children,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n TreeNode) IsLeaf() bool { return len(n.Children) == 0 }

// ItemMeta is the per-code metadata recorded by the tree index.
type ItemMeta struct {
	Name      string `json:"name"`
	IconRef   string `json:"iconRef,omitempty"`
	SortOrder int    `json:"sortOrder"`
	Level     int    `json:"level"`
}

// Dictionary identifies a named reference-data forest.
type Dictionary struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// DictionaryTree is one dictionary together with its forest, as returned by the fetch API.
type DictionaryTree struct {
	Dictionary Dictionary `json:"dictionary"`
	Tree       []TreeNode `json:"tree"`
}

// DictionaryPage is one page of the paginated dictionaries-with-items listing.
type DictionaryPage struct {
	Dictionaries []DictionaryTree
	TotalPages   int
	// Status is the server-reported status code, 200 on success.
	Status int
}

// DictionaryCacheEntry is the cached form of one dictionary. It is replaced
// wholesale on refresh and never patched node by node.
type DictionaryCacheEntry struct {
	DictionaryID   int64               `json:"dictionaryId"`
	DictionaryName string              `json:"dictionaryName"`
	ItemsByCode    map[string]ItemMeta `json:"itemsByCode"`
	Tree           []TreeNode          `json:"tree"`
	FetchedAt      time.Time           `json:"fetchedAt"`
}

// Snapshot is one complete, atomically replaced copy of every cached
// dictionary with a single freshness timestamp.
type Snapshot struct {
	Generation uuid.UUID
	FetchedAt  time.Time
	Entries    map[string]DictionaryCacheEntry
}

// Entry returns the cache entry for a dictionary code.
func (s *Snapshot) Entry(code string) (DictionaryCacheEntry, bool) {
	if s == nil {
		return DictionaryCacheEntry{}, false
	}
	e, ok := s.Entries[code]
	return e, ok
}

// IsFresh reports whether the snapshot is younger than ttl at the given instant.
func (s *Snapshot) IsFresh(now time.Time, ttl time.Duration) bool {
	if s == nil {
		return false
	}
	return now.Sub(s.FetchedAt) < ttl
}

// Codes returns the dictionary codes held by the snapshot (unordered).
func (s *Snapshot) Codes() []string {
	if s == nil {
		return nil
	}
	codes := make([]string, 0, len(s.Entries))
	for code := range s.Entries {
		codes = append(codes, code)
	}
	return codes
}
