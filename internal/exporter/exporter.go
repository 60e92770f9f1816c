// Package exporter projects a taskgraph.Graph back into the tabular row
// stream importparse understands, satisfying the round-trip law: importing
// the exporter's output into an empty server recreates an equivalent task
// population (GUIDs differ; local counters are freshly assigned here and
// honored by C4+C6 on the way back in).
package exporter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ctrl-q/ctrlq/internal/taskgraph"
)

// TaskHeader is the column order this package writes and the only order it
// guarantees; importparse resolves columns by name, so a reader is free to
// see them in any order.
var TaskHeader = []string{
	"Task counter", "Task type", "Task name", "Task id", "Task enabled",
	"Task timeout", "Task retries", "App id", "Partial reload", "Manually triggered",
	"Tags", "Custom properties", "Path", "Parameters",
	"Event counter", "Event type", "Event name", "Event enabled",
	"Schema increment option", "Schema increment description", "Daylight savings time",
	"Schema start", "Schema expiration", "Schema filter description", "Schema time zone",
	"Time constraint seconds", "Time constraint minutes", "Time constraint hours", "Time constraint days",
	"Rule counter", "Rule state", "Rule task name", "Rule task id",
}

var colCount = len(TaskHeader)

// column indices, matching TaskHeader above.
const (
	cTaskCounter = iota
	cTaskType
	cTaskName
	cTaskID
	cTaskEnabled
	cTaskTimeout
	cTaskRetries
	cAppID
	cPartialReload
	cManuallyTriggered
	cTags
	cCustomProperties
	cPath
	cParameters
	cEventCounter
	cEventType
	cEventName
	cEventEnabled
	cSchemaIncrementOption
	cSchemaIncrementDescription
	cDaylightSavingTime
	cSchemaStart
	cSchemaExpiration
	cSchemaFilterDescription
	cSchemaTimeZone
	cTimeConstraintSeconds
	cTimeConstraintMinutes
	cTimeConstraintHours
	cTimeConstraintDays
	cRuleCounter
	cRuleState
	cRuleTaskName
	cRuleTaskID
)

// ExportTasks renders every task in graph as a header row followed by one
// or more data rows per task, grouped the way importparse expects: the
// first row of a Task counter group carries the task's own fields, and
// every schedule/composite event the task owns gets its own row (or one
// row per rule, for composite events) sharing that Task counter.
func ExportTasks(graph *taskgraph.Graph) [][]string {
	tasks := graph.AllTasks()

	counters := assignCounters(tasks)

	rows := [][]string{append([]string(nil), TaskHeader...)}
	for _, t := range tasks {
		rows = append(rows, taskRows(t, counters)...)
	}
	return rows
}

func assignCounters(tasks []*taskgraph.Task) map[string]int {
	counters := make(map[string]int, len(tasks))
	next := 1
	for _, t := range tasks {
		counters[t.ID] = next
		next++
	}
	return counters
}

func taskRows(t *taskgraph.Task, counters map[string]int) [][]string {
	base := newRow()
	base[cTaskCounter] = strconv.Itoa(counters[t.ID])
	base[cTaskType] = t.Kind.String()
	base[cTaskName] = t.Name
	base[cTaskID] = strconv.Itoa(counters[t.ID])
	base[cTaskEnabled] = bool01(t.Enabled)
	if t.SessionTimeoutMinutes > 0 {
		base[cTaskTimeout] = strconv.Itoa(t.SessionTimeoutMinutes)
	}
	base[cTaskRetries] = strconv.Itoa(t.MaxRetries)
	base[cManuallyTriggered] = bool01(t.IsManuallyTriggered)
	base[cTags] = joinList(t.Tags)
	base[cCustomProperties] = joinCustomProperties(t.CustomPropertyValues)
	if t.Kind == taskgraph.Reload {
		base[cAppID] = t.AppRef
		base[cPartialReload] = bool01(t.IsPartialReload)
	} else {
		base[cPath] = t.Path
		base[cParameters] = t.Parameters
	}

	const taskFieldsEnd = cParameters + 1

	var out [][]string
	wroteFirstRow := false

	emit := func(row []string) {
		row[cTaskCounter] = base[cTaskCounter]
		if !wroteFirstRow {
			copy(row[:taskFieldsEnd], base[:taskFieldsEnd])
			wroteFirstRow = true
		}
		out = append(out, row)
	}

	eventCounter := 1
	for _, st := range t.ScheduleTriggers {
		row := newRow()
		row[cEventCounter] = strconv.Itoa(eventCounter)
		row[cEventType] = "Schema"
		row[cEventName] = st.Name
		row[cEventEnabled] = bool01(st.Enabled)
		row[cSchemaIncrementOption] = string(st.IncrementOption)
		row[cSchemaIncrementDescription] = incrementDescription(st.IncrementDescription)
		row[cDaylightSavingTime] = string(st.DaylightSaving)
		row[cSchemaStart] = timestampOf(st.StartUTC)
		row[cSchemaExpiration] = timestampOf(st.ExpirationUTC)
		row[cSchemaFilterDescription] = st.FilterDescription
		row[cSchemaTimeZone] = st.TimeZone
		emit(row)
		eventCounter++
	}

	for _, ce := range t.CompositeEvents {
		if len(ce.Rules) == 0 {
			continue
		}
		for ruleCounter, rule := range ce.Rules {
			row := newRow()
			row[cEventCounter] = strconv.Itoa(eventCounter)
			row[cEventType] = "Composite"
			row[cEventName] = ce.Name
			row[cEventEnabled] = bool01(ce.Enabled)
			row[cTimeConstraintSeconds] = strconv.Itoa(ce.TimeConstraint.Seconds)
			row[cTimeConstraintMinutes] = strconv.Itoa(ce.TimeConstraint.Minutes)
			row[cTimeConstraintHours] = strconv.Itoa(ce.TimeConstraint.Hours)
			row[cTimeConstraintDays] = strconv.Itoa(ce.TimeConstraint.Days)
			row[cRuleCounter] = strconv.Itoa(ruleCounter + 1)
			row[cRuleState] = rule.RuleState.String()
			row[cRuleTaskID] = ruleTaskID(rule.UpstreamRef, counters)
			emit(row)
		}
		eventCounter++
	}

	if !wroteFirstRow {
		emit(newRow())
	}
	return out
}

func newRow() []string { return make([]string, colCount) }

func ruleTaskID(upstreamRef string, counters map[string]int) string {
	if upstreamRef == taskgraph.TombstoneID {
		return ""
	}
	if n, ok := counters[upstreamRef]; ok {
		return strconv.Itoa(n)
	}
	return upstreamRef
}

func bool01(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func joinList(items []string) string {
	return strings.Join(items, " / ")
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
		parts = append(parts, fmt.Sprintf("%s=%s", k, props[k]))
	}
	return strings.Join(parts, " / ")
}

func incrementDescription(d taskgraph.IncrementDescription) string {
	return fmt.Sprintf("%d,%d,%d,%d", d.Minutes, d.Hours, d.Days, d.Weeks)
}

func timestampOf(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02T15:04:05.000Z")
}
