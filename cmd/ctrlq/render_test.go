package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrl-q/ctrlq/internal/analyzer"
)

func sampleRows() []analyzer.TableRow {
	return []analyzer.TableRow{
		{TaskID: "guid-1", Cells: map[string]string{"id": "guid-1", "name": "T1", "kind": "Reload"}},
		{TaskID: "guid-2", Cells: map[string]string{"id": "guid-2", "name": "T2", "kind": "External program"}},
	}
}

func TestTableColumnsPinsIDAndNameFirst(t *testing.T) {
	cols := tableColumns(sampleRows())
	require.GreaterOrEqual(t, len(cols), 2)
	assert.Equal(t, "id", cols[0])
	assert.Equal(t, "name", cols[1])
}

func TestWriteTableScreenIncludesHeaderAndRows(t *testing.T) {
	buf := &bytes.Buffer{}
	writeTableScreen(buf, sampleRows())
	out := buf.String()
	assert.Contains(t, out, "id\tname\tkind")
	assert.Contains(t, out, "T1")
	assert.Contains(t, out, "T2")
}

func TestWriteTableCSVRoundTrips(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, writeTableCSV(buf, sampleRows()))

	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header + 2 rows
	assert.Equal(t, "id", records[0][0])
}

func TestWriteTableJSONProducesArrayOfObjects(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, writeTableJSON(buf, sampleRows()))

	var out []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "T1", out[0]["name"])
}

func TestWriteTreeRendersScheduledAndCausalSections(t *testing.T) {
	forest := analyzer.Forest{
		ScheduledRoot: &analyzer.TreeNode{},
		CausalRoots:   nil,
	}
	buf := &bytes.Buffer{}
	writeTree(buf, forest)
	out := buf.String()
	assert.Contains(t, out, "scheduled:")
	assert.Contains(t, out, "causal:")
}

func TestConfirmOverwriteSkipsPromptWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.csv")
	require.NoError(t, confirmOverwrite(path, false))
}

func TestConfirmOverwriteSkipsPromptWhenSuppressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exists.csv")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, confirmOverwrite(path, true))
}
