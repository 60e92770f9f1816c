// Package importparse reads a tabular import source (delimited text or
// spreadsheet) into a row stream and groups rows into task/event/rule
// records, enforcing the column grammar and type rules of the tabular
// import grammar.
package importparse

import "fmt"

// Column is a typed enum of logical columns, eliminating stringly-typed
// access to the source's header names in the hot path (a ColumnResolver
// maps a header name or position to one of these).
type Column int

const (
	ColTaskCounter Column = iota
	ColTaskType
	ColTaskName
	ColTaskID
	ColTaskEnabled
	ColTaskTimeout
	ColTaskRetries
	ColAppID
	ColPartialReload
	ColManuallyTriggered
	ColTags
	ColCustomProperties
	ColPath
	ColParameters

	ColEventCounter
	ColEventType
	ColEventName
	ColEventEnabled

	ColSchemaIncrementOption
	ColSchemaIncrementDescription
	ColDaylightSavingTime
	ColSchemaStart
	ColSchemaExpiration
	ColSchemaFilterDescription
	ColSchemaTimeZone

	ColTimeConstraintSeconds
	ColTimeConstraintMinutes
	ColTimeConstraintHours
	ColTimeConstraintDays

	ColRuleCounter
	ColRuleState
	ColRuleTaskName
	ColRuleTaskID

	ColAppCounter
	ColAppName
	ColQVFDirectory
	ColQVFName
	ColExcludeDataConnections
	ColAppTags
	ColAppCustomProperties
	ColOwnerUserDirectory
	ColOwnerUserID
	ColPublishToStream
)

// headerNames is the canonical source header text for each logical column,
// used when col-ref-by=name.
var headerNames = map[Column]string{
	ColTaskCounter:       "Task counter",
	ColTaskType:          "Task type",
	ColTaskName:          "Task name",
	ColTaskID:            "Task id",
	ColTaskEnabled:       "Task enabled",
	ColTaskTimeout:       "Task timeout",
	ColTaskRetries:       "Task retries",
	ColAppID:             "App id",
	ColPartialReload:     "Partial reload",
	ColManuallyTriggered: "Manually triggered",
	ColTags:              "Tags",
	ColCustomProperties:  "Custom properties",
	ColPath:              "Path",
	ColParameters:        "Parameters",

	ColEventCounter: "Event counter",
	ColEventType:    "Event type",
	ColEventName:    "Event name",
	ColEventEnabled: "Event enabled",

	ColSchemaIncrementOption:      "Schema increment option",
	ColSchemaIncrementDescription: "Schema increment description",
	ColDaylightSavingTime:         "Daylight savings time",
	ColSchemaStart:                "Schema start",
	ColSchemaExpiration:           "Schema expiration",
	ColSchemaFilterDescription:    "Schema filter description",
	ColSchemaTimeZone:             "Schema time zone",

	ColTimeConstraintSeconds: "Time constraint seconds",
	ColTimeConstraintMinutes: "Time constraint minutes",
	ColTimeConstraintHours:   "Time constraint hours",
	ColTimeConstraintDays:    "Time constraint days",

	ColRuleCounter:  "Rule counter",
	ColRuleState:    "Rule state",
	ColRuleTaskName: "Rule task name",
	ColRuleTaskID:   "Rule task id",

	ColAppCounter:             "App counter",
	ColAppName:                "App name",
	ColQVFDirectory:           "QVF directory",
	ColQVFName:                "QVF name",
	ColExcludeDataConnections: "Exclude data connections",
	ColAppTags:                "App tags",
	ColAppCustomProperties:    "App custom properties",
	ColOwnerUserDirectory:     "Owner user directory",
	ColOwnerUserID:            "Owner user id",
	ColPublishToStream:        "Publish to stream",
}

// mandatoryTaskColumns must be present for a task-sheet import.
var mandatoryTaskColumns = []Column{
	ColTaskCounter, ColTaskType, ColTaskName, ColTaskID, ColTaskEnabled,
}

// mandatoryAppColumns must be present for an app-sheet import.
var mandatoryAppColumns = []Column{
	ColAppCounter, ColAppName, ColQVFName,
}

// ColRefBy selects whether columns are addressed by header name or by
// zero-based position.
type ColRefBy int

const (
	ByName ColRefBy = iota
	ByPosition
)

// ColumnResolver maps a parsed header row to column indices, so the rest of
// the parser only ever deals with the Column enum.
type ColumnResolver struct {
	mode    ColRefBy
	indices map[Column]int
	// positions is only consulted when mode == ByPosition; it is the
	// caller-declared column order.
	positions []Column
}

// NewColumnResolver builds a resolver from a parsed header row.
func NewColumnResolver(mode ColRefBy, header []string, positions []Column) (*ColumnResolver, error) {
	r := &ColumnResolver{mode: mode, indices: make(map[Column]int), positions: positions}
	switch mode {
	case ByName:
		nameToCol := make(map[string]Column, len(headerNames))
		for col, name := range headerNames {
			nameToCol[name] = col
		}
		for i, h := range header {
			if col, ok := nameToCol[h]; ok {
				r.indices[col] = i
			}
		}
	case ByPosition:
		for i, col := range positions {
			r.indices[col] = i
		}
	}
	return r, nil
}

// Index returns the column position for a logical column, or -1 if absent
// (an optional column that was not supplied).
func (r *ColumnResolver) Index(col Column) int {
	if i, ok := r.indices[col]; ok {
		return i
	}
	return -1
}

// RequireColumns validates that every column in the set is present,
// returning an error naming the first missing one.
func (r *ColumnResolver) RequireColumns(cols []Column) error {
	for _, col := range cols {
		if r.Index(col) == -1 {
			return fmt.Errorf("missing mandatory column %q", headerNames[col])
		}
	}
	return nil
}
