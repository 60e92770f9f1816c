package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrl-q/ctrlq/internal/taskgraph"
)

func buildCycleGraph() *taskgraph.Graph {
	g := taskgraph.New()
	a := &taskgraph.Task{ID: "a", Name: "A", CompositeEvents: []*taskgraph.CompositeEvent{
		{ID: "ce1", Name: "from-b", Rules: []*taskgraph.CompositeRule{{UpstreamRef: "b", RuleState: taskgraph.TaskSuccessful}}},
	}}
	b := &taskgraph.Task{ID: "b", Name: "B", CompositeEvents: []*taskgraph.CompositeEvent{
		{ID: "ce2", Name: "from-a", Rules: []*taskgraph.CompositeRule{{UpstreamRef: "a", RuleState: taskgraph.TaskSuccessful}}},
	}}
	g.AddTask(a)
	g.AddTask(b)
	g.Rebuild(context.Background())
	return g
}

func TestDetectCyclesFindsOnePair(t *testing.T) {
	g := buildCycleGraph()
	pairs := DetectCycles(g)
	require.Len(t, pairs, 1)
	assert.Equal(t, "a", pairs[0].A)
	assert.Equal(t, "b", pairs[0].B)
}

func TestDetectCyclesNoneOnAcyclicGraph(t *testing.T) {
	g := taskgraph.New()
	a := &taskgraph.Task{ID: "a", Name: "A"}
	b := &taskgraph.Task{ID: "b", Name: "B", CompositeEvents: []*taskgraph.CompositeEvent{
		{ID: "ce", Name: "after-a", Rules: []*taskgraph.CompositeRule{{UpstreamRef: "a", RuleState: taskgraph.TaskSuccessful}}},
	}}
	g.AddTask(a)
	g.AddTask(b)
	g.Rebuild(context.Background())

	assert.Empty(t, DetectCycles(g))
}

func TestDetectDuplicateEdges(t *testing.T) {
	g := taskgraph.New()
	a := &taskgraph.Task{ID: "a", Name: "A"}
	b := &taskgraph.Task{ID: "b", Name: "B", CompositeEvents: []*taskgraph.CompositeEvent{
		{ID: "ce1", Name: "e1", Rules: []*taskgraph.CompositeRule{{UpstreamRef: "a", RuleState: taskgraph.TaskSuccessful}}},
		{ID: "ce2", Name: "e2", Rules: []*taskgraph.CompositeRule{{UpstreamRef: "a", RuleState: taskgraph.TaskSuccessful}}},
	}}
	g.AddTask(a)
	g.AddTask(b)
	g.Rebuild(context.Background())

	dups := DetectDuplicateEdges(g)
	require.Len(t, dups, 1)
	assert.Equal(t, 2, dups[0].Count)
	assert.Equal(t, "a", dups[0].Upstream)
	assert.Equal(t, "b", dups[0].Downstream)
}

func TestRenderTreeBuildsNestedChainAndScheduledRoot(t *testing.T) {
	g := taskgraph.New()
	a := &taskgraph.Task{ID: "a", Name: "A", ScheduleTriggers: []*taskgraph.ScheduleTrigger{
		{Name: "nightly", IncrementOption: taskgraph.Daily},
	}}
	b := &taskgraph.Task{ID: "b", Name: "B", CompositeEvents: []*taskgraph.CompositeEvent{
		{ID: "ce", Name: "after-a", Rules: []*taskgraph.CompositeRule{{UpstreamRef: "a", RuleState: taskgraph.TaskSuccessful}}},
	}}
	g.AddTask(a)
	g.AddTask(b)
	g.Rebuild(context.Background())

	forest := RenderTree(g, taskgraph.FilterSpec{}, 10, nil)
	require.Len(t, forest.CausalRoots, 1)
	root := forest.CausalRoots[0]
	assert.Equal(t, "a", root.Task.ID)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "b", root.Children[0].Task.ID)

	require.Len(t, forest.ScheduledRoot.Children, 1)
	assert.Equal(t, "a", forest.ScheduledRoot.Children[0].Task.ID)
}

func TestRenderTreeMarksCycleInCausalTree(t *testing.T) {
	g := taskgraph.New()
	c := &taskgraph.Task{ID: "c", Name: "C"}
	a := &taskgraph.Task{ID: "a", Name: "A", CompositeEvents: []*taskgraph.CompositeEvent{
		{ID: "ce-ca", Name: "from-c", Rules: []*taskgraph.CompositeRule{{UpstreamRef: "c", RuleState: taskgraph.TaskSuccessful}}},
		{ID: "ce-ba", Name: "from-b", Rules: []*taskgraph.CompositeRule{{UpstreamRef: "b", RuleState: taskgraph.TaskSuccessful}}},
	}}
	b := &taskgraph.Task{ID: "b", Name: "B", CompositeEvents: []*taskgraph.CompositeEvent{
		{ID: "ce-ab", Name: "from-a", Rules: []*taskgraph.CompositeRule{{UpstreamRef: "a", RuleState: taskgraph.TaskSuccessful}}},
	}}
	g.AddTask(c)
	g.AddTask(a)
	g.AddTask(b)
	g.Rebuild(context.Background())

	forest := RenderTree(g, taskgraph.FilterSpec{TaskIDs: []string{"a"}}, 10, nil)
	require.NotEmpty(t, forest.CausalRoots)

	var sawMarker bool
	var walk func(n *TreeNode)
	walk = func(n *TreeNode) {
		if n.IsMarker {
			sawMarker = true
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, root := range forest.CausalRoots {
		walk(root)
	}
	assert.True(t, sawMarker)
}

func TestRenderTableSelectsOnlyRequestedBlocks(t *testing.T) {
	g := taskgraph.New()
	a := &taskgraph.Task{ID: "a", Name: "A", Kind: taskgraph.Reload, Tags: []string{"nightly"}}
	g.AddTask(a)
	g.Rebuild(context.Background())

	rows := RenderTable(g, taskgraph.FilterSpec{}, []TableBlock{BlockCommon})
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].Cells["name"])
	_, hasTags := rows[0].Cells["tags"]
	assert.False(t, hasTags)

	rowsWithTags := RenderTable(g, taskgraph.FilterSpec{}, []TableBlock{BlockCommon, BlockTag})
	assert.Equal(t, "nightly", rowsWithTags[0].Cells["tags"])
}
