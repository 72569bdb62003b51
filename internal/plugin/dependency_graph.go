package plugin

import "sort"

// DependencyGraph tracks refresh dependencies between loaded plugins.
type DependencyGraph struct {
	nodes    map[string]struct{}
	outgoing map[string]map[string]struct{}
}

// NewDependencyGraph creates an empty dependency graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes:    make(map[string]struct{}),
		outgoing: make(map[string]map[string]struct{}),
	}
}

// AddNode ensures the plugin exists within the graph.
func (g *DependencyGraph) AddNode(name string) {
	if _, exists := g.nodes[name]; exists {
		return
	}
	g.nodes[name] = struct{}{}
	g.outgoing[name] = make(map[string]struct{})
}

// AddEdge records that dependent refreshes after dependency.
func (g *DependencyGraph) AddEdge(dependent, dependency string) {
	g.AddNode(dependent)
	g.AddNode(dependency)
	g.outgoing[dependent][dependency] = struct{}{}
}

// HasNode reports if the node exists in the graph.
func (g *DependencyGraph) HasNode(node string) bool {
	if g == nil {
		return false
	}
	_, ok := g.nodes[node]
	return ok
}

// GetDependencies returns the sorted dependencies of a node.
func (g *DependencyGraph) GetDependencies(node string) []string {
	deps := make([]string, 0, len(g.outgoing[node]))
	for dep := range g.outgoing[node] {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps
}

// DetectCycles returns one cycle if present or nil when the graph is acyclic.
func (g *DependencyGraph) DetectCycles() []string {
	for _, node := range g.sortedNodes() {
		if cycle := g.CycleThrough(node); cycle != nil {
			return cycle
		}
	}
	return nil
}

// CycleThrough returns a cycle starting at node, or nil when node is not on
// a cycle.
func (g *DependencyGraph) CycleThrough(node string) []string {
	visited := make(map[string]bool)
	path := []string{node}

	var dfs func(current string) bool
	dfs = func(current string) bool {
		for _, dep := range g.GetDependencies(current) {
			if dep == node {
				return true
			}
			if visited[dep] {
				continue
			}
			visited[dep] = true
			path = append(path, dep)
			if dfs(dep) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}

	if !dfs(node) {
		return nil
	}
	return path
}

func (g *DependencyGraph) sortedNodes() []string {
	nodes := make([]string, 0, len(g.nodes))
	for node := range g.nodes {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	return nodes
}
