package typecheck

// tarjan finds strongly connected components of size > 1 (or a
// self-loop) in a name -> []name dependency graph, reporting the first
// one found as a CircularDependency. Ported from the strongconnect
// closure shape of original_source/lof/src/typechecker.rs, generalized
// from Rust's explicit index/lowlink maps to Go maps of the same shape.
type tarjan struct {
	graph    map[string][]string
	indices  map[string]int
	lowlinks map[string]int
	onStack  map[string]bool
	stack    []string
	nextIdx  int
	cycle    []string
}

func findCycle(graph map[string][]string) []string {
	t := &tarjan{
		graph:    graph,
		indices:  make(map[string]int),
		lowlinks: make(map[string]int),
		onStack:  make(map[string]bool),
	}
	for name := range graph {
		if _, visited := t.indices[name]; !visited {
			t.strongconnect(name)
			if t.cycle != nil {
				return t.cycle
			}
		}
	}
	return nil
}

func (t *tarjan) strongconnect(v string) {
	t.indices[v] = t.nextIdx
	t.lowlinks[v] = t.nextIdx
	t.nextIdx++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.graph[v] {
		if _, visited := t.indices[w]; !visited {
			t.strongconnect(w)
			if t.cycle != nil {
				return
			}
			if t.lowlinks[w] < t.lowlinks[v] {
				t.lowlinks[v] = t.lowlinks[w]
			}
		} else if t.onStack[w] {
			if t.indices[w] < t.lowlinks[v] {
				t.lowlinks[v] = t.indices[w]
			}
		}
	}

	if t.lowlinks[v] == t.indices[v] {
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
		if len(comp) > 1 {
			t.cycle = comp
			return
		}
		// a self-loop (v depends on itself directly) is also a cycle
		for _, w := range t.graph[v] {
			if w == v {
				t.cycle = []string{v}
				return
			}
		}
	}
}
