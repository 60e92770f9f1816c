package exporter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrl-q/ctrlq/internal/importparse"
	"github.com/ctrl-q/ctrlq/internal/taskgraph"
)

// sliceSource adapts an in-memory [][]string (header + rows) to
// importparse.RowSource, mirroring how a real file-backed source streams.
type sliceSource struct {
	header []string
	rows   [][]string
	pos    int
}

func newSliceSource(rows [][]string) *sliceSource {
	return &sliceSource{header: rows[0], rows: rows[1:]}
}

func (s *sliceSource) Header() []string { return s.header }
func (s *sliceSource) Next() ([]string, bool, error) {
	if s.pos >= len(s.rows) {
		return nil, false, nil
	}
	r := s.rows[s.pos]
	s.pos++
	return r, true, nil
}
func (s *sliceSource) Close() error { return nil }

func TestExportImportRoundTripChainOfTwoTasks(t *testing.T) {
	g := taskgraph.New()
	upstream := &taskgraph.Task{ID: "guid-1", Name: "T1", Kind: taskgraph.Reload, Enabled: true, AppRef: "app-guid-1"}
	downstream := &taskgraph.Task{
		ID: "guid-2", Name: "T2", Kind: taskgraph.Reload, Enabled: true, AppRef: "app-guid-1",
		CompositeEvents: []*taskgraph.CompositeEvent{
			{ID: "ce1", Name: "after-t1", Enabled: true,
				Rules: []*taskgraph.CompositeRule{{UpstreamRef: "guid-1", RuleState: taskgraph.TaskSuccessful}}},
		},
	}
	g.AddTask(upstream)
	g.AddTask(downstream)
	g.Rebuild(context.Background())

	rows := ExportTasks(g)
	require.Greater(t, len(rows), 1)

	recs, diags, err := importparse.ParseTasks(newSliceSource(rows), importparse.Options{RefBy: importparse.ByName})
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, recs, 2)

	byName := map[string]importparse.TaskRecord{}
	for _, r := range recs {
		byName[r.TaskName] = r
	}
	require.Contains(t, byName, "T1")
	require.Contains(t, byName, "T2")

	t2 := byName["T2"]
	require.Len(t, t2.CompositeEvents, 1)
	require.Len(t, t2.CompositeEvents[0].Rules, 1)
	assert.Equal(t, byName["T1"].TaskID, t2.CompositeEvents[0].Rules[0].RuleTaskID)
}

func TestExportSingleTaskNoTriggersProducesOneRow(t *testing.T) {
	g := taskgraph.New()
	g.AddTask(&taskgraph.Task{ID: "guid-1", Name: "Solo", Kind: taskgraph.Reload, Enabled: true, AppRef: "app-guid-1"})
	g.Rebuild(context.Background())

	rows := ExportTasks(g)
	require.Len(t, rows, 2) // header + one task row

	recs, diags, err := importparse.ParseTasks(newSliceSource(rows), importparse.Options{RefBy: importparse.ByName})
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, recs, 1)
	assert.Equal(t, "Solo", recs[0].TaskName)
	assert.Empty(t, recs[0].SchemaEvents)
	assert.Empty(t, recs[0].CompositeEvents)
}

func TestExportExternalProgramTaskCarriesPath(t *testing.T) {
	g := taskgraph.New()
	g.AddTask(&taskgraph.Task{ID: "guid-1", Name: "Ext", Kind: taskgraph.ExternalProgram, Enabled: true, Path: "C:\\run.exe", Parameters: "-x"})
	g.Rebuild(context.Background())

	rows := ExportTasks(g)
	recs, diags, err := importparse.ParseTasks(newSliceSource(rows), importparse.Options{RefBy: importparse.ByName})
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, recs, 1)
	assert.Equal(t, "C:\\run.exe", recs[0].Path)
	assert.Equal(t, "-x", recs[0].Parameters)
}
