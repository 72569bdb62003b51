package plugin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDependencyGraphDetectCycles(t *testing.T) {
	graph := NewDependencyGraph()
	graph.AddEdge("A", "B")
	graph.AddEdge("B", "C")
	graph.AddEdge("C", "A")

	cycle := graph.DetectCycles()
	require.Len(t, cycle, 3)
	require.ElementsMatch(t, []string{"A", "B", "C"}, cycle)

	acyclic := NewDependencyGraph()
	acyclic.AddEdge("A", "B")
	acyclic.AddEdge("B", "C")
	require.Nil(t, acyclic.DetectCycles())
}

func TestDependencyGraphCycleThrough(t *testing.T) {
	graph := NewDependencyGraph()
	graph.AddEdge("sort", "filter")
	graph.AddEdge("filter", "sort")
	graph.AddEdge("actions", "sort")
	graph.AddEdge("self", "self")

	require.Equal(t, []string{"sort", "filter"}, graph.CycleThrough("sort"))
	require.Equal(t, []string{"filter", "sort"}, graph.CycleThrough("filter"))
	require.Nil(t, graph.CycleThrough("actions"), "depending on a cycle is not being on one")
	require.Equal(t, []string{"self"}, graph.CycleThrough("self"))
}

func TestDependencyGraphUtilities(t *testing.T) {
	graph := NewDependencyGraph()
	graph.AddEdge("actions", "validation")
	graph.AddEdge("actions", "edit")
	graph.AddEdge("validation", "edit")

	require.Equal(t, []string{"edit", "validation"}, graph.GetDependencies("actions"))
	require.Empty(t, graph.GetDependencies("edit"))

	require.True(t, graph.HasNode("actions"))
	require.False(t, graph.HasNode("missing"))

	var nilGraph *DependencyGraph
	require.False(t, nilGraph.HasNode("actions"))
}
