package taskgraph

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ctrl-q/ctrlq/internal/ctxlog"
)

// TombstoneID marks an edge endpoint whose upstream GUID could not be
// resolved against any known task. Unresolved references are reported,
// never silently dropped. Generated once per process from a random UUID so
// it can never collide with a real server-assigned task GUID.
var TombstoneID = uuid.NewString()

// edge is a directed composite-rule edge from an upstream task to a
// downstream task, annotated with the owning event and required state.
type edge struct {
	Upstream   string
	Downstream string
	EventID    string
	RuleState  RuleState
}

// Graph is the single source of truth for the task graph during a run. It
// is safe for concurrent reads; mutation is expected from a single writer
// per §5 of the specification this package implements.
type Graph struct {
	mutex sync.RWMutex

	tasks map[string]*Task // by GUID
	byName map[string][]*Task
	byTag  map[string][]*Task
	byApp  map[string][]*Task

	scheduleMeta  map[string]*ScheduleTrigger // meta-node id -> trigger
	compositeMeta map[string]*CompositeEvent  // meta-node id -> event

	edges []edge

	dangling []edge // edges whose upstream could not be resolved
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		tasks:         make(map[string]*Task),
		byName:        make(map[string][]*Task),
		byTag:         make(map[string][]*Task),
		byApp:         make(map[string][]*Task),
		scheduleMeta:  make(map[string]*ScheduleTrigger),
		compositeMeta: make(map[string]*CompositeEvent),
	}
}

// AddTask ingests a single task and its owned triggers/events into the
// graph's indices. It does not link composite edges; call Rebuild for that
// once every task the run will reference has been added.
func (g *Graph) AddTask(t *Task) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.tasks[t.ID] = t
	g.byName[t.Name] = append(g.byName[t.Name], t)
	for _, tag := range t.Tags {
		g.byTag[tag] = append(g.byTag[tag], t)
	}
	if t.AppRef != "" {
		g.byApp[t.AppRef] = append(g.byApp[t.AppRef], t)
	}
	for _, st := range t.ScheduleTriggers {
		g.scheduleMeta["schedule."+t.ID+"."+st.Name] = st
	}
	for _, ce := range t.CompositeEvents {
		g.compositeMeta["composite."+ce.ID] = ce
	}
}

// AddCompositeEvent attaches a composite event to its owning downstream task,
// found by GUID, and registers it in the meta-node index. It is a no-op if
// the downstream task is not in the graph.
func (g *Graph) AddCompositeEvent(downstreamID string, ce *CompositeEvent) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	t, ok := g.tasks[downstreamID]
	if !ok {
		return
	}
	ce.TaskID = downstreamID
	t.CompositeEvents = append(t.CompositeEvents, ce)
	g.compositeMeta["composite."+ce.ID] = ce
}

// Task looks up a task by GUID.
func (g *Graph) Task(id string) (*Task, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	t, ok := g.tasks[id]
	return t, ok
}

// TasksByName returns every task registered under the given name (names are
// not unique in QSEoW).
func (g *Graph) TasksByName(name string) []*Task {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return append([]*Task(nil), g.byName[name]...)
}

// AllTasks returns every task in the graph, in no particular order.
func (g *Graph) AllTasks() []*Task {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	out := make([]*Task, 0, len(g.tasks))
	for _, t := range g.tasks {
		out = append(out, t)
	}
	return out
}

// Rebuild derives the composite-edge set from every composite event owned by
// every task currently in the graph. It is idempotent and safe to call
// repeatedly as the graph grows (e.g. across Phase A and Phase B).
func (g *Graph) Rebuild(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.edges = g.edges[:0]
	g.dangling = g.dangling[:0]

	for _, downstream := range g.tasks {
		for _, ce := range downstream.CompositeEvents {
			for _, rule := range ce.Rules {
				e := edge{
					Upstream:   rule.UpstreamRef,
					Downstream: downstream.ID,
					EventID:    ce.ID,
					RuleState:  rule.RuleState,
				}
				if _, ok := g.tasks[rule.UpstreamRef]; !ok {
					logger.Warn("dangling composite rule reference", "upstream", rule.UpstreamRef, "downstream", downstream.ID, "event", ce.ID)
					e.Upstream = TombstoneID
					g.dangling = append(g.dangling, e)
					continue
				}
				g.edges = append(g.edges, e)
			}
		}
	}
}

// Edges returns the resolved (upstream, downstream, event, ruleState) tuples.
func (g *Graph) Edges() []edge {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return append([]edge(nil), g.edges...)
}

// Dangling returns edges whose upstream reference could not be resolved.
func (g *Graph) Dangling() []edge {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return append([]edge(nil), g.dangling...)
}

// incoming returns, for a task id, the set of upstream task ids with an edge
// into it.
func (g *Graph) incoming(id string) []string {
	var ups []string
	for _, e := range g.edges {
		if e.Downstream == id {
			ups = append(ups, e.Upstream)
		}
	}
	return ups
}

// outgoing returns, for a task id, the set of downstream task ids reachable
// directly from it.
func (g *Graph) outgoing(id string) []string {
	var downs []string
	for _, e := range g.edges {
		if e.Upstream == id {
			downs = append(downs, e.Downstream)
		}
	}
	return downs
}
