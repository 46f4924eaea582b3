package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/refdict/internal/domain"
	"github.com/heartmarshall/refdict/internal/treeindex"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func countryIndex() *treeindex.Index {
	return treeindex.Build([]domain.TreeNode{
		{Code: "US", Name: "United States", Children: []domain.TreeNode{
			{Code: "CA", Name: "California", Level: 1},
			{Code: "NY", Name: "New York", Level: 1},
		}},
		{Code: "CN", Name: "China", Children: []domain.TreeNode{
			{Code: "BJ", Name: "Beijing", Level: 1},
			{Code: "SH", Name: "Shanghai", Level: 1},
		}},
		{Code: "SG", Name: "Singapore"},
	})
}

func threeLeafIndex() *treeindex.Index {
	return treeindex.Build([]domain.TreeNode{
		{Code: "ROOT", Children: []domain.TreeNode{
			{Code: "A", Level: 1},
			{Code: "B", Level: 1},
			{Code: "C", Level: 1},
		}},
	})
}

func deepIndex() *treeindex.Index {
	return treeindex.Build([]domain.TreeNode{
		{Code: "EU", Children: []domain.TreeNode{
			{Code: "DE", Level: 1, Children: []domain.TreeNode{
				{Code: "BE", Level: 2},
				{Code: "HH", Level: 2},
			}},
			{Code: "FR", Level: 1, Children: []domain.TreeNode{
				{Code: "PA", Level: 2},
			}},
		}},
	})
}

// ---------------------------------------------------------------------------
// SelectRoot
// ---------------------------------------------------------------------------

func TestEngine_SelectRoot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sel  Selection
		root string
		want Selection
	}{
		{name: "select empty", sel: Of(), root: "US", want: Of("US")},
		{name: "deselect selected root", sel: Of("US", "BJ"), root: "US", want: Of("BJ")},
		{name: "select removes partial leaves", sel: Of("CA", "BJ"), root: "US", want: Of("BJ", "US")},
		{name: "select canonicalizes full leaves", sel: Of("CA", "NY"), root: "US", want: Of("US")},
		{name: "select childless root", sel: Of("US"), root: "SG", want: Of("US", "SG")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := NewEngine(countryIndex(), true)
			assert.Equal(t, tt.want, e.SelectRoot(tt.sel, tt.root))
		})
	}
}

func TestEngine_SelectRoot_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	e := NewEngine(countryIndex(), true)
	sel := Of("CA", "NY")

	_ = e.SelectRoot(sel, "US")

	assert.Equal(t, Of("CA", "NY"), sel)
}

func TestEngine_SelectRoot_TwiceRestoresState(t *testing.T) {
	t.Parallel()

	e := NewEngine(countryIndex(), true)
	before := Of("BJ", "SG")

	once := e.SelectRoot(before, "US")
	twice := e.SelectRoot(once, "US")

	assert.True(t, before.Equal(twice), "got %v", twice)
}

// ---------------------------------------------------------------------------
// SelectLeaf
// ---------------------------------------------------------------------------

func TestEngine_SelectLeaf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sel    Selection
		leaf   string
		parent string
		want   Selection
	}{
		{name: "add leaf", sel: Of(), leaf: "CA", parent: "US", want: Of("CA")},
		{name: "remove leaf", sel: Of("CA", "NY"), leaf: "CA", parent: "US", want: Of("NY")},
		{name: "carve from whole branch", sel: Of("US"), leaf: "CA", parent: "US", want: Of("NY")},
		{name: "carve keeps other roots", sel: Of("CN", "US"), leaf: "SH", parent: "CN", want: Of("US", "BJ")},
		{name: "empty parent hint is derived", sel: Of("US"), leaf: "NY", parent: "", want: Of("CA")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := NewEngine(countryIndex(), true)
			assert.Equal(t, tt.want, e.SelectLeaf(tt.sel, tt.leaf, tt.parent))
		})
	}
}

func TestEngine_SelectLeaf_CarveAllButOne(t *testing.T) {
	t.Parallel()

	e := NewEngine(threeLeafIndex(), true)

	got := e.SelectLeaf(Of("ROOT"), "B", "ROOT")

	assert.Equal(t, Of("A", "C"), got)
	assert.Equal(t, Partial, e.RootState(got, "ROOT"))
}

func TestEngine_SelectLeaf_OnlyChildCarvesToEmpty(t *testing.T) {
	t.Parallel()

	idx := treeindex.Build([]domain.TreeNode{
		{Code: "HK", Children: []domain.TreeNode{{Code: "HK-I", Level: 1}}},
	})
	e := NewEngine(idx, true)

	got := e.SelectLeaf(Of("HK"), "HK-I", "HK")

	assert.Empty(t, got)
	assert.Equal(t, Unselected, e.RootState(got, "HK"))
}

func TestEngine_SelectLeaf_UnknownLeafUsesHint(t *testing.T) {
	t.Parallel()

	e := NewEngine(countryIndex(), true)

	// "LA" is not in the index; the hint says it belongs to US.
	got := e.SelectLeaf(Of("US"), "LA", "US")

	assert.Equal(t, Of("CA", "NY"), got)
}

func TestEngine_SelectLeaf_DeepCarve(t *testing.T) {
	t.Parallel()

	e := NewEngine(deepIndex(), true)

	got := e.SelectLeaf(Of("EU"), "BE", "EU")

	assert.Equal(t, Of("HH", "FR"), got)
	assert.Equal(t, Partial, e.RootState(got, "EU"))
	assert.Equal(t, Partial, e.RootState(got, "DE"))
	assert.Equal(t, Full, e.RootState(got, "FR"))
}

func TestEngine_SelectLeaf_InnerNodeDropsDescendants(t *testing.T) {
	t.Parallel()

	e := NewEngine(deepIndex(), true)

	got := e.SelectLeaf(Of("BE"), "DE", "EU")

	assert.Equal(t, Of("DE"), got)
}

// ---------------------------------------------------------------------------
// RootState
// ---------------------------------------------------------------------------

func TestEngine_RootState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sel  Selection
		code string
		want State
	}{
		{name: "nothing selected", sel: Of(), code: "US", want: Unselected},
		{name: "root code selected", sel: Of("US"), code: "US", want: Full},
		{name: "one of two leaves", sel: Of("CA"), code: "US", want: Partial},
		{name: "every leaf selected", sel: Of("CA", "NY"), code: "US", want: Full},
		{name: "other root only", sel: Of("BJ"), code: "US", want: Unselected},
		{name: "childless root", sel: Of("SG"), code: "SG", want: Full},
		{name: "childless root unselected", sel: Of("US"), code: "SG", want: Unselected},
		{name: "leaf state", sel: Of("CA"), code: "CA", want: Full},
		{name: "leaf under selected root", sel: Of("US"), code: "NY", want: Full},
		{name: "sibling leaf unselected", sel: Of("CA"), code: "NY", want: Unselected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := NewEngine(countryIndex(), true)
			assert.Equal(t, tt.want, e.RootState(tt.sel, tt.code))
		})
	}
}

func TestEngine_RootState_Deep(t *testing.T) {
	t.Parallel()

	e := NewEngine(deepIndex(), true)

	assert.Equal(t, Full, e.RootState(Of("DE", "PA"), "EU"))
	assert.Equal(t, Full, e.RootState(Of("BE", "HH", "FR"), "EU"))
	assert.Equal(t, Partial, e.RootState(Of("BE", "FR"), "EU"))
	assert.Equal(t, Partial, e.RootState(Of("PA"), "EU"))
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unselected", Unselected.String())
	assert.Equal(t, "partial", Partial.String())
	assert.Equal(t, "full", Full.String())
}

// ---------------------------------------------------------------------------
// Lazy canonicalization
// ---------------------------------------------------------------------------

func TestEngine_AllLeavesReportFullButStayPerLeaf(t *testing.T) {
	t.Parallel()

	e := NewEngine(threeLeafIndex(), true)

	sel := e.SelectLeaf(Of(), "A", "ROOT")
	sel = e.SelectLeaf(sel, "B", "ROOT")
	sel = e.SelectLeaf(sel, "C", "ROOT")

	assert.Equal(t, Full, e.RootState(sel, "ROOT"))
	assert.Equal(t, Of("A", "B", "C"), sel, "raw set must not be auto-canonicalized")

	sel = e.SelectRoot(sel, "ROOT")
	assert.Equal(t, Of("ROOT"), sel)
}

func TestEngine_CountryWalkthrough(t *testing.T) {
	t.Parallel()

	e := NewEngine(countryIndex(), true)

	sel := e.SelectLeaf(Of(), "CA", "US")
	assert.Equal(t, Of("CA"), sel)
	assert.Equal(t, Partial, e.RootState(sel, "US"))

	sel = e.SelectLeaf(sel, "NY", "US")
	assert.Equal(t, Of("CA", "NY"), sel)
	assert.Equal(t, Full, e.RootState(sel, "US"))
	assert.False(t, sel.Has("US"))

	sel = e.SelectRoot(sel, "US")
	assert.Equal(t, Of("US"), sel)

	sel = e.SelectRoot(sel, "US")
	assert.Empty(t, sel)
}

func TestEngine_Canonical(t *testing.T) {
	t.Parallel()

	e := NewEngine(deepIndex(), true)

	got := e.Canonical(Of("BE", "HH", "PA"))

	assert.Equal(t, Of("EU"), got)
	assert.Equal(t, Of("BE", "FR"), e.Canonical(Of("BE", "PA")), "FR has a single child")
}

// ---------------------------------------------------------------------------
// Single-select mode
// ---------------------------------------------------------------------------

func TestEngine_SingleSelect(t *testing.T) {
	t.Parallel()

	e := NewEngine(countryIndex(), false)

	sel := e.SelectLeaf(Of(), "CA", "US")
	assert.Equal(t, Of("CA"), sel)

	sel = e.SelectRoot(sel, "CN")
	assert.Equal(t, Of("CN"), sel)

	sel = e.SelectLeaf(sel, "BJ", "CN")
	assert.Equal(t, Of("BJ"), sel)

	sel = e.Toggle(sel, "BJ")
	assert.Empty(t, sel)
	assert.False(t, e.Multiple())
}

// ---------------------------------------------------------------------------
// Toggle, Clear, Sanitize
// ---------------------------------------------------------------------------

func TestEngine_ToggleDispatches(t *testing.T) {
	t.Parallel()

	e := NewEngine(countryIndex(), true)

	assert.Equal(t, Of("US"), e.Toggle(Of("CA"), "US"))
	assert.Equal(t, Of("NY"), e.Toggle(Of("US"), "CA"))
}

func TestEngine_Clear(t *testing.T) {
	t.Parallel()

	e := NewEngine(countryIndex(), true)

	got := e.Clear()

	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEngine_Sanitize(t *testing.T) {
	t.Parallel()

	multi := NewEngine(countryIndex(), true)
	assert.Equal(t, Of("US", "BJ", "ZZ"), multi.Sanitize(Selection{"CA", "US", "BJ", "BJ", "ZZ", ""}))

	single := NewEngine(countryIndex(), false)
	assert.Equal(t, Of("CA"), single.Sanitize(Of("CA", "NY")))
}

func TestSelection_Helpers(t *testing.T) {
	t.Parallel()

	sel := Of("A", "B", "A", "")

	assert.Equal(t, 2, sel.Len())
	assert.True(t, sel.Has("B"))
	assert.True(t, sel.Equal(Of("B", "A")))
	assert.False(t, sel.Equal(Of("A", "C")))

	codes := sel.Codes()
	codes[0] = "X"
	assert.Equal(t, "A", sel[0], "Codes must return a copy")
}
