package taskgraph

// FilterSpec carries the union of initial-task selection terms accepted by
// GetRootNodesFromFilter.
type FilterSpec struct {
	TaskIDs  []string
	TaskTags []string
	AppIDs   []string
	AppTags  []string
}

func (f FilterSpec) empty() bool {
	return len(f.TaskIDs) == 0 && len(f.TaskTags) == 0 && len(f.AppIDs) == 0 && len(f.AppTags) == 0
}

// matches reports whether t satisfies any term of f (a union, not an
// intersection).
func (f FilterSpec) matches(t *Task) bool {
	for _, id := range f.TaskIDs {
		if t.ID == id {
			return true
		}
	}
	for _, tag := range f.TaskTags {
		for _, tt := range t.Tags {
			if tt == tag {
				return true
			}
		}
	}
	for _, appID := range f.AppIDs {
		if t.AppRef == appID {
			return true
		}
	}
	// AppTags cannot be resolved without the app population; callers that
	// need it populate FilterSpec.AppIDs ahead of time via the resolver.
	return false
}

// FilterTasks returns every task matching any filter term (union), or
// every task in the graph if spec carries no terms. Unlike
// GetRootNodesFromFilter this does not walk to causal roots; it is the
// direct listing used by table-shaped output.
func (g *Graph) FilterTasks(spec FilterSpec) []*Task {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var out []*Task
	for _, t := range g.tasks {
		if spec.empty() || spec.matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// GetRootNodesFromFilter collects the set of initial tasks matching any
// filter term (union), then for each initial task walks composite-dependency
// edges in reverse until a fixed point; the roots are the tasks with no
// incoming composite edge. Results are de-duplicated by task GUID.
func (g *Graph) GetRootNodesFromFilter(spec FilterSpec) []*Task {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var initial []*Task
	for _, t := range g.tasks {
		if spec.empty() || spec.matches(t) {
			initial = append(initial, t)
		}
	}

	visited := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, up := range g.incoming(id) {
			if up != TombstoneID {
				walk(up)
			}
		}
	}
	for _, t := range initial {
		walk(t.ID)
	}

	seen := make(map[string]bool)
	var roots []*Task
	for id := range visited {
		if len(g.incoming(id)) == 0 {
			if t, ok := g.tasks[id]; ok && !seen[id] {
				seen[id] = true
				roots = append(roots, t)
			}
		}
	}
	return roots
}

// SubtreeNode is a single entry in a subtree walk, carrying the depth at
// which it was discovered and whether it is a cycle-closing marker.
type SubtreeNode struct {
	Task      *Task
	Depth     int
	IsMarker  bool
	MarkerFor string
}

// GetSubtree returns the set of downstream tasks reachable from root through
// composite edges, depth-limited to protect against pathological inputs.
// When a cycle is detected the recursion halts at the repeating node and
// emits a marker vertex instead of looping forever.
func (g *Graph) GetSubtree(root string, maxDepth int) []SubtreeNode {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var out []SubtreeNode
	onPath := make(map[string]bool)

	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		if depth > maxDepth {
			return
		}
		if onPath[id] {
			out = append(out, SubtreeNode{IsMarker: true, MarkerFor: id, Depth: depth})
			return
		}
		t, ok := g.tasks[id]
		if !ok {
			return
		}
		out = append(out, SubtreeNode{Task: t, Depth: depth})
		onPath[id] = true
		for _, down := range g.outgoing(id) {
			walk(down, depth+1)
		}
		onPath[id] = false
	}
	walk(root, 0)
	return out
}
