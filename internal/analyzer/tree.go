package analyzer

import (
	"sort"

	"github.com/ctrl-q/ctrlq/internal/taskgraph"
)

// TreeDetail selects a per-node decoration the tree renderer attaches.
// Named, not stringly-typed, to keep the --tree-details flag's choices
// out of the rendering hot path.
type TreeDetail string

const (
	DetailLastExecution TreeDetail = "lastexecution"
	DetailTag           TreeDetail = "tag"
	DetailCustomProperty TreeDetail = "customproperty"
	DetailAppName       TreeDetail = "appname"
)

// TreeNode is one vertex of a rendered causal tree. The same downstream
// task may appear in more than one TreeNode across the forest — this is a
// tree, not a DAG, by design; each appearance shows a different causal
// chain from a different root.
type TreeNode struct {
	Task     *taskgraph.Task
	Depth    int
	IsMarker bool
	MarkerFor string
	Decorations map[TreeDetail]string
	Children    []*TreeNode
}

// Forest is the tree renderer's top-level output: one causal tree per
// root task plus a synthetic "scheduled" super-root collecting every task
// that owns at least one schedule trigger.
type Forest struct {
	ScheduledRoot *TreeNode
	CausalRoots   []*TreeNode
}

// RenderTree builds the forest described in §4.7: roots from
// GetRootNodesFromFilter, one causal subtree per root via GetSubtree, and
// a synthetic scheduled-root whose direct children are every task with at
// least one schedule trigger (shown flat, since a schedule trigger has no
// further causal children of its own).
func RenderTree(graph *taskgraph.Graph, spec taskgraph.FilterSpec, maxDepth int, details []TreeDetail) Forest {
	roots := graph.GetRootNodesFromFilter(spec)
	sort.Slice(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })

	causal := make([]*TreeNode, 0, len(roots))
	for _, root := range roots {
		flat := graph.GetSubtree(root.ID, maxDepth)
		if tree := buildFromFlat(flat, graph, details); tree != nil {
			causal = append(causal, tree)
		}
	}

	scheduled := &TreeNode{IsMarker: false, Decorations: map[TreeDetail]string{}}
	for _, t := range graph.AllTasks() {
		if len(t.ScheduleTriggers) == 0 {
			continue
		}
		scheduled.Children = append(scheduled.Children, &TreeNode{
			Task:        t,
			Depth:       1,
			Decorations: decorate(t, details),
		})
	}
	sort.Slice(scheduled.Children, func(i, j int) bool { return scheduled.Children[i].Task.Name < scheduled.Children[j].Task.Name })

	return Forest{ScheduledRoot: scheduled, CausalRoots: causal}
}

// buildFromFlat reconstructs a nested TreeNode from GetSubtree's flat,
// depth-annotated pre-order walk using a depth-indexed stack.
func buildFromFlat(flat []taskgraph.SubtreeNode, graph *taskgraph.Graph, details []TreeDetail) *TreeNode {
	if len(flat) == 0 {
		return nil
	}
	nodes := make([]*TreeNode, len(flat))
	for i, n := range flat {
		tn := &TreeNode{Depth: n.Depth, IsMarker: n.IsMarker, MarkerFor: n.MarkerFor}
		if !n.IsMarker {
			tn.Task = n.Task
			tn.Decorations = decorate(n.Task, details)
		}
		nodes[i] = tn
	}

	root := nodes[0]
	stack := []*TreeNode{root}
	for i := 1; i < len(nodes); i++ {
		cur := nodes[i]
		for len(stack) > 0 && stack[len(stack)-1].Depth >= cur.Depth {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			stack = append(stack, root)
		}
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, cur)
		stack = append(stack, cur)
	}
	return root
}

func decorate(t *taskgraph.Task, details []TreeDetail) map[TreeDetail]string {
	out := make(map[TreeDetail]string, len(details))
	for _, d := range details {
		switch d {
		case DetailTag:
			out[d] = joinTags(t.Tags)
		case DetailCustomProperty:
			out[d] = joinCustomProperties(t.CustomPropertyValues)
		case DetailAppName:
			out[d] = t.AppRef
		case DetailLastExecution:
			// No execution-history source is wired into the core; the
			// column is always present but empty until C2 grows one.
			out[d] = ""
		}
	}
	return out
}
