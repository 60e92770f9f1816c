package importparse

import "fmt"

// Options configures a single parse run.
type Options struct {
	RefBy             ColRefBy
	Positions         []Column // only consulted when RefBy == ByPosition
	LimitImportCount  int      // 0 means no limit
	CollectAll        bool     // false (default) is "fatal per row"
}

// ParseTasks reads every row of src and groups it into TaskRecords,
// validating the column grammar and coercing every declared column. Rows
// sharing a Task counter are merged into one record regardless of row
// order within the group.
func ParseTasks(src RowSource, opt Options) ([]TaskRecord, Diagnostics, error) {
	resolver, err := NewColumnResolver(opt.RefBy, src.Header(), opt.Positions)
	if err != nil {
		return nil, nil, err
	}
	if err := resolver.RequireColumns(mandatoryTaskColumns); err != nil {
		return nil, nil, err
	}

	byCounter := make(map[int]*TaskRecord)
	var order []int
	var diags Diagnostics

	rowIdx := 1 // header was row 0
	for {
		row, ok, err := src.Next()
		if err != nil {
			return nil, diags, err
		}
		if !ok {
			break
		}
		rowIdx++

		taskCounter, _, err := coerceInt(cell(row, resolver.Index(ColTaskCounter)))
		if err != nil {
			d := Diagnostic{Row: rowIdx, Column: "Task counter", Rule: "int >= 1", Cause: err}
			if !opt.CollectAll {
				return nil, diags, d
			}
			diags = append(diags, d)
			continue
		}
		if opt.LimitImportCount > 0 && taskCounter > opt.LimitImportCount {
			continue
		}

		rec, exists := byCounter[taskCounter]
		if !exists {
			rec = &TaskRecord{RowIndex: rowIdx, TaskCounter: taskCounter}
			if err := populateTaskFields(rec, resolver, row); err != nil {
				d := Diagnostic{Row: rowIdx, TaskCounter: taskCounter, Rule: "task field validation", Cause: err}
				if !opt.CollectAll {
					return nil, diags, d
				}
				diags = append(diags, d)
				continue
			}
			byCounter[taskCounter] = rec
			order = append(order, taskCounter)
		}

		if err := mergeEventRow(rec, resolver, row, rowIdx); err != nil {
			d := Diagnostic{Row: rowIdx, TaskCounter: taskCounter, Rule: "event/rule field validation", Cause: err}
			if !opt.CollectAll {
				return nil, diags, d
			}
			diags = append(diags, d)
			continue
		}
	}

	out := make([]TaskRecord, 0, len(order))
	for _, c := range order {
		rec := *byCounter[c]
		for _, ce := range rec.CompositeEvents {
			if len(ce.Rules) == 0 {
				d := Diagnostic{Row: rec.RowIndex, TaskCounter: rec.TaskCounter, EventCounter: ce.EventCounter,
					Rule: "composite event must have at least one rule", Cause: fmt.Errorf("event %q has zero rules", ce.Name)}
				if !opt.CollectAll {
					return nil, diags, d
				}
				diags = append(diags, d)
				continue
			}
		}
		out = append(out, rec)
	}
	if len(diags) > 0 && opt.CollectAll {
		return out, diags, nil
	}
	if len(diags) > 0 {
		return nil, diags, diags
	}
	return out, nil, nil
}

func populateTaskFields(rec *TaskRecord, r *ColumnResolver, row []string) error {
	rec.TaskType = cell(row, r.Index(ColTaskType))
	if rec.TaskType != "Reload" && rec.TaskType != "External program" {
		return fmt.Errorf("Task type must be 'Reload' or 'External program', got %q", rec.TaskType)
	}
	rec.TaskName = cell(row, r.Index(ColTaskName))
	rec.TaskID = cell(row, r.Index(ColTaskID))

	enabled, err := coerceBool01(cell(row, r.Index(ColTaskEnabled)))
	if err != nil {
		return fmt.Errorf("Task enabled: %w", err)
	}
	rec.TaskEnabled = enabled

	if idx := r.Index(ColTaskTimeout); idx != -1 {
		n, present, err := coerceInt(cell(row, idx))
		if err != nil {
			return fmt.Errorf("Task timeout: %w", err)
		}
		if present && n <= 0 {
			return fmt.Errorf("Task timeout must be > 0, got %d", n)
		}
		rec.TaskTimeoutMinutes = n
	}
	if idx := r.Index(ColTaskRetries); idx != -1 {
		n, _, err := coerceInt(cell(row, idx))
		if err != nil {
			return fmt.Errorf("Task retries: %w", err)
		}
		if n < 0 {
			return fmt.Errorf("Task retries must be >= 0, got %d", n)
		}
		rec.TaskRetries = n
	}
	rec.AppID = cell(row, r.Index(ColAppID))
	if idx := r.Index(ColPartialReload); idx != -1 {
		b, err := coerceBool01(cell(row, idx))
		if err != nil {
			return fmt.Errorf("Partial reload: %w", err)
		}
		rec.PartialReload = b
	}
	if idx := r.Index(ColManuallyTriggered); idx != -1 {
		b, err := coerceBool01(cell(row, idx))
		if err != nil {
			return fmt.Errorf("Manually triggered: %w", err)
		}
		rec.ManuallyTriggered = b
	}
	if rec.TaskType == "Reload" {
		if rec.AppID == "" {
			return fmt.Errorf("App id is required for Reload tasks")
		}
	} else {
		rec.Path = cell(row, r.Index(ColPath))
		rec.Parameters = cell(row, r.Index(ColParameters))
		if rec.Path == "" {
			return fmt.Errorf("Path is required for External program tasks")
		}
	}
	rec.Tags = splitList(cell(row, r.Index(ColTags)))
	cp, err := splitCustomProperties(cell(row, r.Index(ColCustomProperties)))
	if err != nil {
		return fmt.Errorf("Custom properties: %w", err)
	}
	rec.CustomProperties = cp
	return nil
}

// mergeEventRow attaches this row's event/rule data (if any) to rec. A row
// with no Event counter column set describes only the task itself.
func mergeEventRow(rec *TaskRecord, r *ColumnResolver, row []string, rowIdx int) error {
	eventCounterIdx := r.Index(ColEventCounter)
	if eventCounterIdx == -1 {
		return nil
	}
	eventCounterStr := cell(row, eventCounterIdx)
	eventCounter, present, err := coerceInt(eventCounterStr)
	if err != nil {
		return fmt.Errorf("Event counter: %w", err)
	}
	if !present {
		return nil
	}

	eventType := cell(row, r.Index(ColEventType))
	eventName := cell(row, r.Index(ColEventName))
	eventEnabled, err := coerceBool01(cell(row, r.Index(ColEventEnabled)))
	if err != nil {
		return fmt.Errorf("Event enabled: %w", err)
	}

	switch eventType {
	case "Schema":
		for i := range rec.SchemaEvents {
			if rec.SchemaEvents[i].EventCounter == eventCounter {
				return nil // already merged; identical group, order-independent
			}
		}
		rec.SchemaEvents = append(rec.SchemaEvents, SchemaEventRecord{
			EventCounter:         eventCounter,
			Name:                 eventName,
			Enabled:              eventEnabled,
			IncrementOption:      cell(row, r.Index(ColSchemaIncrementOption)),
			IncrementDescription: cell(row, r.Index(ColSchemaIncrementDescription)),
			DaylightSaving:       cell(row, r.Index(ColDaylightSavingTime)),
			Start:                cell(row, r.Index(ColSchemaStart)),
			Expiration:           cell(row, r.Index(ColSchemaExpiration)),
			FilterDescription:    cell(row, r.Index(ColSchemaFilterDescription)),
			TimeZone:             cell(row, r.Index(ColSchemaTimeZone)),
		})
		return nil
	case "Composite":
		var ce *CompositeEventRecord
		for i := range rec.CompositeEvents {
			if rec.CompositeEvents[i].EventCounter == eventCounter {
				ce = &rec.CompositeEvents[i]
				break
			}
		}
		if ce == nil {
			secs, _, _ := coerceInt(cell(row, r.Index(ColTimeConstraintSeconds)))
			mins, _, _ := coerceInt(cell(row, r.Index(ColTimeConstraintMinutes)))
			hrs, _, _ := coerceInt(cell(row, r.Index(ColTimeConstraintHours)))
			days, _, _ := coerceInt(cell(row, r.Index(ColTimeConstraintDays)))
			rec.CompositeEvents = append(rec.CompositeEvents, CompositeEventRecord{
				EventCounter:          eventCounter,
				Name:                  eventName,
				Enabled:               eventEnabled,
				TimeConstraintSeconds: secs,
				TimeConstraintMinutes: mins,
				TimeConstraintHours:   hrs,
				TimeConstraintDays:    days,
			})
			ce = &rec.CompositeEvents[len(rec.CompositeEvents)-1]
		}
		return mergeRuleRow(ce, r, row, rowIdx)
	default:
		return fmt.Errorf("Event type must be 'Schema' or 'Composite', got %q", eventType)
	}
}

func mergeRuleRow(ce *CompositeEventRecord, r *ColumnResolver, row []string, rowIdx int) error {
	ruleCounterIdx := r.Index(ColRuleCounter)
	if ruleCounterIdx == -1 {
		return nil
	}
	ruleCounter, present, err := coerceInt(cell(row, ruleCounterIdx))
	if err != nil {
		return fmt.Errorf("Rule counter: %w", err)
	}
	if !present {
		return nil
	}
	for _, existing := range ce.Rules {
		if existing.RuleCounter == ruleCounter {
			return nil // identical (taskCounter, eventCounter, ruleCounter) triple already merged
		}
	}
	state := cell(row, r.Index(ColRuleState))
	if state != "TaskSuccessful" && state != "TaskFail" {
		return fmt.Errorf("Rule state must be 'TaskSuccessful' or 'TaskFail', got %q", state)
	}
	ce.Rules = append(ce.Rules, RuleRecord{
		RuleCounter:  ruleCounter,
		RuleState:    state,
		RuleTaskName: cell(row, r.Index(ColRuleTaskName)),
		RuleTaskID:   cell(row, r.Index(ColRuleTaskID)),
	})
	return nil
}
