package elaborate

import "sort"

// depGraph is a directed graph over variable-identifier keys (strings),
// used to compute the dependency relation within a single node and to
// detect illegal cycles.
type depGraph struct {
	nodes   []string
	edges   map[string][]string
	nodeSet map[string]bool
}

func newDepGraph() *depGraph {
	return &depGraph{edges: make(map[string][]string), nodeSet: make(map[string]bool)}
}

func (g *depGraph) addNode(name string) {
	if !g.nodeSet[name] {
		g.nodes = append(g.nodes, name)
		g.nodeSet[name] = true
		g.edges[name] = nil
	}
}

func (g *depGraph) addEdge(from, to string) {
	g.addNode(from)
	g.addNode(to)
	g.edges[from] = append(g.edges[from], to)
}

// sortEdges gives every adjacency list a stable order, so that two graphs
// built from equal input (in particular, with nodes added in sorted
// identifier order) produce byte-identical SCC/toposort results.
func (g *depGraph) sortEdges() {
	for v := range g.edges {
		sort.Strings(g.edges[v])
	}
}

// sccs computes strongly connected components via Tarjan's algorithm.
// Returned components are in reverse-topological order of their roots,
// matching the classic formulation.
func (g *depGraph) sccs() [][]string {
	index := 0
	var stack []string
	indices := make(map[string]int)
	lowlinks := make(map[string]int)
	onStack := make(map[string]bool)
	var result [][]string

	var strongconnect func(string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlinks[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, seen := indices[w]; !seen {
				strongconnect(w)
				if lowlinks[w] < lowlinks[v] {
					lowlinks[v] = lowlinks[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlinks[v] {
					lowlinks[v] = indices[w]
				}
			}
		}

		if lowlinks[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			result = append(result, scc)
		}
	}

	for _, n := range g.nodes {
		if _, seen := indices[n]; !seen {
			strongconnect(n)
		}
	}
	return result
}

// hasSelfLoop reports whether v has an edge to itself.
func (g *depGraph) hasSelfLoop(v string) bool {
	for _, w := range g.edges[v] {
		if w == v {
			return true
		}
	}
	return false
}

// topoSort returns the graph's nodes ordered so that for every edge
// u -> v, v precedes u (a definition is sorted before the equation that
// reads it), or an error if a cycle outside pre exists. cycleErr
// constructs the CyclicDependency diagnostic given the offending
// component's members.
func (g *depGraph) topoSort(cycleErr func(members []string) error) ([]string, error) {
	g.sortEdges()
	components := g.sccs()
	var order []string
	for _, comp := range components {
		if len(comp) > 1 {
			sorted := append([]string{}, comp...)
			sort.Strings(sorted)
			return nil, cycleErr(sorted)
		}
		v := comp[0]
		if g.hasSelfLoop(v) {
			return nil, cycleErr([]string{v})
		}
		order = append(order, v)
	}
	return order, nil
}

// transitiveClosure returns, for every node, the set of nodes reachable
// via one or more edges (used for output_input_dep computation).
func (g *depGraph) transitiveClosure() map[string]map[string]bool {
	closure := make(map[string]map[string]bool, len(g.nodes))
	var visit func(start, v string, seen map[string]bool)
	visit = func(start, v string, seen map[string]bool) {
		for _, w := range g.edges[v] {
			if seen[w] {
				continue
			}
			seen[w] = true
			closure[start][w] = true
			visit(start, w, seen)
		}
	}
	for _, n := range g.nodes {
		closure[n] = make(map[string]bool)
		visit(n, n, make(map[string]bool))
	}
	return closure
}
