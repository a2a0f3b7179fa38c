package configbridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Scenario 5 from spec.md §8: A -> B -> C where C has a host-prototype
// linking back to A. Expected: import order is A, B, C in three
// single-template bundles.
func TestOrderGroups_DependencyChainWithHostPrototypeBackref(t *testing.T) {
	templates := []Template{
		{Name: "C", LinkedTemplates: []string{"B"}, HostPrototypeTemplates: []string{"A"}},
		{Name: "B", LinkedTemplates: []string{"A"}},
		{Name: "A"},
	}

	groups := OrderGroups(templates)
	require.Equal(t, [][]string{{"A"}, {"B"}, {"C"}}, groups)
}

func TestOrderGroups_IndependentTemplatesShareGroupSortedAlphabetically(t *testing.T) {
	templates := []Template{
		{Name: "Zeta"},
		{Name: "Alpha"},
		{Name: "Mu"},
	}

	groups := OrderGroups(templates)
	require.Equal(t, [][]string{{"Alpha", "Mu", "Zeta"}}, groups)
}

// A dependency cycle (or a dependency missing from the export set) must
// not loop forever; every template still comes out exactly once.
func TestOrderGroups_CycleFlushesRemainingAsFinalGroup(t *testing.T) {
	templates := []Template{
		{Name: "X", LinkedTemplates: []string{"Y"}},
		{Name: "Y", LinkedTemplates: []string{"X"}},
	}

	groups := OrderGroups(templates)
	require.Len(t, groups, 1)
	require.ElementsMatch(t, []string{"X", "Y"}, groups[0])
}

func TestChunk_SplitsPreservingOrder(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e"}
	require.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, Chunk(names, 2))
	require.Equal(t, [][]string{{"a", "b", "c", "d", "e"}}, Chunk(names, 100))
	require.Nil(t, Chunk(nil, 2))
}
