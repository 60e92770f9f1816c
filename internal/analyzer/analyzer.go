// Package analyzer inspects a built taskgraph.Graph for structural
// problems (cycles, duplicate edges) and projects it into tree and table
// shapes for downstream formatting.
package analyzer

import (
	"sort"

	"github.com/ctrl-q/ctrlq/internal/taskgraph"
)

// CircularPair names two tasks involved in a dependency cycle, identified
// without regard to which direction the back-edge ran.
type CircularPair struct {
	A, B string
}

func pairKey(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// DetectCycles runs a white/gray/black DFS over the graph's composite
// edges. Every back-edge (an edge into a gray node) yields a circular
// pair, de-duplicated by unordered endpoint identity.
func DetectCycles(graph *taskgraph.Graph) []CircularPair {
	adj := adjacency(graph)

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	seen := make(map[[2]string]bool)
	var pairs []CircularPair

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		for _, next := range adj[id] {
			switch color[next] {
			case white:
				visit(next)
			case gray:
				a, b := pairKey(id, next)
				key := [2]string{a, b}
				if !seen[key] {
					seen[key] = true
					pairs = append(pairs, CircularPair{A: a, B: b})
				}
			}
		}
		color[id] = black
	}

	ids := taskIDs(graph)
	for _, id := range ids {
		if color[id] == white {
			visit(id)
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs
}

// DuplicateEdge reports an (upstream, downstream, ruleState) triple that
// appears more than once across the graph's composite rules.
type DuplicateEdge struct {
	Upstream   string
	Downstream string
	RuleState  taskgraph.RuleState
	Count      int
}

// DetectDuplicateEdges counts occurrences of every (upstream, downstream,
// ruleState) triple and reports every one occurring at least twice.
func DetectDuplicateEdges(graph *taskgraph.Graph) []DuplicateEdge {
	type triple struct {
		upstream, downstream string
		state                taskgraph.RuleState
	}
	counts := make(map[triple]int)
	for _, e := range graph.Edges() {
		counts[triple{e.Upstream, e.Downstream, e.RuleState}]++
	}

	var dups []DuplicateEdge
	for t, n := range counts {
		if n >= 2 {
			dups = append(dups, DuplicateEdge{Upstream: t.upstream, Downstream: t.downstream, RuleState: t.state, Count: n})
		}
	}
	sort.Slice(dups, func(i, j int) bool {
		if dups[i].Upstream != dups[j].Upstream {
			return dups[i].Upstream < dups[j].Upstream
		}
		return dups[i].Downstream < dups[j].Downstream
	})
	return dups
}

// adjacency builds an upstream->downstream map from the graph's resolved
// composite edges, ignoring the dangling (tombstoned) ones: a reference
// that never resolved cannot participate in a cycle.
func adjacency(graph *taskgraph.Graph) map[string][]string {
	adj := make(map[string][]string)
	for _, e := range graph.Edges() {
		adj[e.Upstream] = append(adj[e.Upstream], e.Downstream)
	}
	return adj
}

func taskIDs(graph *taskgraph.Graph) []string {
	tasks := graph.AllTasks()
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)
	return ids
}
