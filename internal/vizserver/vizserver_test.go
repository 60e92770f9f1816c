package vizserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrl-q/ctrlq/internal/analyzer"
	"github.com/ctrl-q/ctrlq/internal/ctxlog"
	"github.com/ctrl-q/ctrlq/internal/taskgraph"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	g := taskgraph.New()
	a := &taskgraph.Task{ID: "a", Name: "A", Kind: taskgraph.Reload, ScheduleTriggers: []*taskgraph.ScheduleTrigger{
		{Name: "nightly", IncrementOption: taskgraph.Daily},
	}}
	b := &taskgraph.Task{ID: "b", Name: "B", Kind: taskgraph.Reload, CompositeEvents: []*taskgraph.CompositeEvent{
		{ID: "ce", Name: "after-a", Rules: []*taskgraph.CompositeRule{{UpstreamRef: "a", RuleState: taskgraph.TaskSuccessful}}},
	}}
	g.AddTask(a)
	g.AddTask(b)
	g.Rebuild(context.Background())

	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return New(ctx, 0, g)
}

func TestNewWithNonPositivePortDisablesServer(t *testing.T) {
	s := testServer(t)
	assert.Nil(t, s.httpServer)
	s.Start()  // must be a no-op, not a panic
	assert.NoError(t, s.Close())
}

func TestHealthHandlerReturnsOK(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.healthHandler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTreeHandlerServesCausalAndScheduledRoots(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/tree", nil)
	rec := httptest.NewRecorder()
	s.treeHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var forest analyzer.Forest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&forest))
	require.Len(t, forest.CausalRoots, 1)
	assert.Equal(t, "a", forest.CausalRoots[0].Task.ID)
	require.Len(t, forest.CausalRoots[0].Children, 1)
	assert.Equal(t, "b", forest.CausalRoots[0].Children[0].Task.ID)
}

func TestTreeHandlerRejectsInvalidMaxDepth(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/tree?maxDepth=notanumber", nil)
	rec := httptest.NewRecorder()
	s.treeHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTableHandlerDefaultsToCommonBlock(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/table", nil)
	rec := httptest.NewRecorder()
	s.tableHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var rows []analyzer.TableRow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rows))
	require.Len(t, rows, 2)
	assert.Contains(t, rows[0].Cells, "name")
	assert.NotContains(t, rows[0].Cells, "tags")
}

func TestTableHandlerFiltersByTaskID(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/table?taskId=a", nil)
	rec := httptest.NewRecorder()
	s.tableHandler(rec, req)

	var rows []analyzer.TableRow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].TaskID)
}
