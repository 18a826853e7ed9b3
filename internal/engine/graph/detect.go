package graph

import "sort"

// DetectCycles finds circular import chains in a forward dependency graph.
// Each cycle is returned as the ordered list of files forming it, starting at
// the lexicographically smallest member so repeated runs report cycles
// identically.
func DetectCycles(deps map[string][]string) [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	roots := make([]string, 0, len(deps))
	for path := range deps {
		roots = append(roots, path)
	}
	sort.Strings(roots)

	for _, root := range roots {
		if !visited[root] {
			findCycles(deps, root, visited, onStack, []string{}, &cycles)
		}
	}

	for i, cycle := range cycles {
		cycles[i] = rotateToSmallest(cycle)
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycleKey(cycles[i]) < cycleKey(cycles[j])
	})
	return cycles
}

func findCycles(deps map[string][]string, curr string, visited, onStack map[string]bool, path []string, cycles *[][]string) {
	visited[curr] = true
	onStack[curr] = true
	path = append(path, curr)

	for _, next := range deps[curr] {
		if onStack[next] {
			cycleStart := -1
			for i, file := range path {
				if file == next {
					cycleStart = i
					break
				}
			}
			if cycleStart != -1 {
				cycle := make([]string, len(path)-cycleStart)
				copy(cycle, path[cycleStart:])
				*cycles = append(*cycles, cycle)
			}
		} else if !visited[next] {
			findCycles(deps, next, visited, onStack, path, cycles)
		}
	}

	onStack[curr] = false
}

func rotateToSmallest(cycle []string) []string {
	if len(cycle) == 0 {
		return cycle
	}
	smallest := 0
	for i, file := range cycle {
		if file < cycle[smallest] {
			smallest = i
		}
	}
	rotated := make([]string, 0, len(cycle))
	rotated = append(rotated, cycle[smallest:]...)
	rotated = append(rotated, cycle[:smallest]...)
	return rotated
}

func cycleKey(cycle []string) string {
	key := ""
	for _, file := range cycle {
		key += file + "\x00"
	}
	return key
}

// FindImportChain returns the shortest import path between two files using a
// breadth-first search with sorted neighbor expansion, so ties resolve
// deterministically.
func FindImportChain(deps map[string][]string, from, to string) ([]string, bool) {
	if from == to {
		if _, ok := deps[from]; !ok {
			return nil, false
		}
		return []string{from}, true
	}

	queue := []string{from}
	visited := map[string]bool{from: true}
	prev := make(map[string]string)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		neighbors := append([]string(nil), deps[curr]...)
		sort.Strings(neighbors)

		for _, next := range neighbors {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				path := []string{to}
				for node := to; node != from; {
					p, ok := prev[node]
					if !ok {
						return nil, false
					}
					path = append(path, p)
					node = p
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}

			queue = append(queue, next)
		}
	}

	return nil, false
}
