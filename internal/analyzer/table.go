package analyzer

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ctrl-q/ctrlq/internal/taskgraph"
)

// TableBlock selects one column group of the table renderer, matching the
// --table-details flag's choices one-for-one.
type TableBlock string

const (
	BlockCommon           TableBlock = "common"
	BlockLastExecution     TableBlock = "lastexecution"
	BlockTag               TableBlock = "tag"
	BlockCustomProperty    TableBlock = "customproperty"
	BlockSchemaTrigger     TableBlock = "schematrigger"
	BlockCompositeTrigger  TableBlock = "compositetrigger"
)

// TableRow is one task projected into a flat set of named cells, ready for
// a CSV/Excel/JSON/screen renderer to consume without knowing about the
// task graph's internal shape.
type TableRow struct {
	TaskID string
	Cells  map[string]string
}

// RenderTable projects every task matching spec into a TableRow, filling
// only the column blocks the caller selected.
func RenderTable(graph *taskgraph.Graph, spec taskgraph.FilterSpec, blocks []TableBlock) []TableRow {
	tasks := graph.FilterTasks(spec)
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })

	has := func(b TableBlock) bool {
		for _, want := range blocks {
			if want == b {
				return true
			}
		}
		return false
	}

	rows := make([]TableRow, 0, len(tasks))
	for _, t := range tasks {
		cells := map[string]string{}
		if has(BlockCommon) {
			cells["id"] = t.ID
			cells["name"] = t.Name
			cells["kind"] = t.Kind.String()
			cells["enabled"] = strconv.FormatBool(t.Enabled)
		}
		if has(BlockLastExecution) {
			// No execution-history endpoint is wired into C2; left blank
			// until the Repository listing for it is added.
			cells["lastExecutionStatus"] = ""
			cells["lastExecutionStart"] = ""
		}
		if has(BlockTag) {
			cells["tags"] = joinTags(t.Tags)
		}
		if has(BlockCustomProperty) {
			cells["customProperties"] = joinCustomProperties(t.CustomPropertyValues)
		}
		if has(BlockSchemaTrigger) {
			cells["scheduleTriggers"] = joinScheduleTriggers(t.ScheduleTriggers)
		}
		if has(BlockCompositeTrigger) {
			cells["compositeTriggers"] = joinCompositeEvents(t.CompositeEvents)
		}
		rows = append(rows, TableRow{TaskID: t.ID, Cells: cells})
	}
	return rows
}

func joinTags(tags []string) string {
	return strings.Join(tags, " / ")
}

func joinCustomProperties(props map[string]string) string {
	if len(props) == 0 {
		return ""
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+props[k])
	}
	return strings.Join(parts, " / ")
}

func joinScheduleTriggers(triggers []*taskgraph.ScheduleTrigger) string {
	parts := make([]string, 0, len(triggers))
	for _, st := range triggers {
		parts = append(parts, st.Name+" ("+string(st.IncrementOption)+")")
	}
	return strings.Join(parts, " / ")
}

func joinCompositeEvents(events []*taskgraph.CompositeEvent) string {
	parts := make([]string, 0, len(events))
	for _, ce := range events {
		parts = append(parts, ce.Name)
	}
	return strings.Join(parts, " / ")
}
