package graph

// FindCycles returns the cycles reachable from start, one path per strongly
// connected component. A path starts and ends with the same id, e.g.
// [3 5 3]; a self-loop is reported as [id id].
//
// Every graph produced by the pipeline builder is acyclic, so an empty
// result is the normal case.
//
// The algorithm:
//  1. Collect the reachable adjacency with BreadthFirst
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a cycle
func FindCycles[N Node[N]](start N) [][]ID {
	adj := make(map[ID][]ID)
	var order []ID
	for _, n := range BreadthFirst(start) {
		order = append(order, n.ID())
		adj[n.ID()] = IDs(n.Children())
	}

	var cycles [][]ID
	for _, scc := range tarjanSCC(order, adj) {
		if len(scc) == 1 {
			if hasSelfLoop(scc[0], adj) {
				cycles = append(cycles, []ID{scc[0], scc[0]})
			}
			continue
		}
		cycles = append(cycles, reconstructCyclePath(scc, adj))
	}
	return cycles
}

func hasSelfLoop(id ID, adj map[ID][]ID) bool {
	for _, next := range adj[id] {
		if next == id {
			return true
		}
	}
	return false
}

// tarjanSCC visits nodes in the given order so results are deterministic.
func tarjanSCC(order []ID, adj map[ID][]ID) [][]ID {
	var (
		index   = 0
		stack   []ID
		indices = make(map[ID]int)
		lowlink = make(map[ID]int)
		onStack = make(map[ID]bool)
		sccs    [][]ID
	)

	var strongConnect func(ID)
	strongConnect = func(v ID) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []ID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, id := range order {
		if _, visited := indices[id]; !visited {
			strongConnect(id)
		}
	}
	return sccs
}

// reconstructCyclePath follows edges inside the SCC from its first member
// until it returns to it.
func reconstructCyclePath(scc []ID, adj map[ID][]ID) []ID {
	members := NewIDSet(scc...)
	start := scc[0]
	current := start
	path := []ID{current}
	visited := NewIDSet()

	for {
		visited.Add(current)

		next, found := ID(0), false
		for _, w := range adj[current] {
			if members.Has(w) && (!visited.Has(w) || w == start) {
				next, found = w, true
				break
			}
		}
		if !found {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
