package taskgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.Empty(t, g.AllTasks())
}

func TestAddTaskAndRebuild(t *testing.T) {
	g := New()
	a := &Task{ID: "a", Name: "TaskA", Kind: Reload}
	b := &Task{ID: "b", Name: "TaskB", Kind: Reload, CompositeEvents: []*CompositeEvent{
		{ID: "ce1", Name: "after-a", Rules: []*CompositeRule{{UpstreamRef: "a", RuleState: TaskSuccessful}}},
	}}
	g.AddTask(a)
	g.AddTask(b)
	g.Rebuild(context.Background())

	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "a", edges[0].Upstream)
	assert.Equal(t, "b", edges[0].Downstream)
	assert.Empty(t, g.Dangling())
}

func TestRebuildDanglingReference(t *testing.T) {
	g := New()
	b := &Task{ID: "b", Name: "TaskB", CompositeEvents: []*CompositeEvent{
		{ID: "ce1", Name: "after-missing", Rules: []*CompositeRule{{UpstreamRef: "ghost", RuleState: TaskFail}}},
	}}
	g.AddTask(b)
	g.Rebuild(context.Background())

	assert.Empty(t, g.Edges())
	require.Len(t, g.Dangling(), 1)
	assert.Equal(t, TombstoneID, g.Dangling()[0].Upstream)
}

func TestGetRootNodesFromFilter(t *testing.T) {
	g := New()
	a := &Task{ID: "a", Name: "A"}
	b := &Task{ID: "b", Name: "B", Tags: []string{"nightly"}, CompositeEvents: []*CompositeEvent{
		{ID: "ce", Rules: []*CompositeRule{{UpstreamRef: "a", RuleState: TaskSuccessful}}},
	}}
	g.AddTask(a)
	g.AddTask(b)
	g.Rebuild(context.Background())

	roots := g.GetRootNodesFromFilter(FilterSpec{TaskTags: []string{"nightly"}})
	require.Len(t, roots, 1)
	assert.Equal(t, "a", roots[0].ID)
}

func TestGetSubtreeMarksCycle(t *testing.T) {
	g := New()
	a := &Task{ID: "a", Name: "A", CompositeEvents: []*CompositeEvent{
		{ID: "ce1", Rules: []*CompositeRule{{UpstreamRef: "b", RuleState: TaskSuccessful}}},
	}}
	b := &Task{ID: "b", Name: "B", CompositeEvents: []*CompositeEvent{
		{ID: "ce2", Rules: []*CompositeRule{{UpstreamRef: "a", RuleState: TaskSuccessful}}},
	}}
	g.AddTask(a)
	g.AddTask(b)
	g.Rebuild(context.Background())

	nodes := g.GetSubtree("a", 10)
	var sawMarker bool
	for _, n := range nodes {
		if n.IsMarker {
			sawMarker = true
		}
	}
	assert.True(t, sawMarker, "expected a cycle marker in the subtree walk")
}
