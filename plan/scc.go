package plan

// tarjan computes the strongly connected components of a directed graph
// given as an adjacency list, used to find the recursive views (a
// size-one component with a self-loop, or a component spanning more than
// one view) and the component each one is evaluated with by
// NewJointBottomUp.
type tarjan struct {
	graph   map[string][]string
	index   map[string]int
	low     map[string]int
	onStack map[string]bool
	stack   []string
	counter int
	comps   [][]string
}

func newTarjan(graph map[string][]string) *tarjan {
	return &tarjan{
		graph:   graph,
		index:   make(map[string]int),
		low:     make(map[string]int),
		onStack: make(map[string]bool),
	}
}

func (t *tarjan) run() [][]string {
	for node := range t.graph {
		if _, seen := t.index[node]; !seen {
			t.strongconnect(node)
		}
	}
	return t.comps
}

func (t *tarjan) strongconnect(v string) {
	t.index[v] = t.counter
	t.low[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.graph[v] {
		if _, seen := t.index[w]; !seen {
			t.strongconnect(w)
			if t.low[w] < t.low[v] {
				t.low[v] = t.low[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.low[v] {
				t.low[v] = t.index[w]
			}
		}
	}

	if t.low[v] == t.index[v] {
		var comp []string
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		t.comps = append(t.comps, comp)
	}
}

// hasSelfLoop reports whether node has an edge to itself in graph.
func hasSelfLoop(graph map[string][]string, node string) bool {
	for _, w := range graph[node] {
		if w == node {
			return true
		}
	}
	return false
}

// componentOf returns the strongly connected component containing node,
// among components, or nil if node is absent from graph entirely.
func componentOf(components [][]string, node string) []string {
	for _, c := range components {
		for _, n := range c {
			if n == node {
				return c
			}
		}
	}
	return nil
}
