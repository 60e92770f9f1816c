// Package taskgraph holds the in-memory multigraph of tasks, schedule
// triggers, composite events, and composite rules for a single Ctrl-Q run.
package taskgraph

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TaskKind distinguishes reload tasks from external-program tasks.
type TaskKind int

const (
	Reload TaskKind = iota
	ExternalProgram
)

func (k TaskKind) String() string {
	if k == ExternalProgram {
		return "External program"
	}
	return "Reload"
}

// RuleState is the terminal state a composite rule requires of its
// upstream task.
type RuleState int

const (
	TaskSuccessful RuleState = iota
	TaskFail
)

func (s RuleState) String() string {
	if s == TaskFail {
		return "TaskFail"
	}
	return "TaskSuccessful"
}

// IncrementOption is the schedule trigger's recurrence unit.
type IncrementOption string

const (
	Once    IncrementOption = "once"
	Hourly  IncrementOption = "hourly"
	Daily   IncrementOption = "daily"
	Weekly  IncrementOption = "weekly"
	Monthly IncrementOption = "monthly"
	Custom  IncrementOption = "custom"
)

// DaylightSaving is the trigger's DST handling mode.
type DaylightSaving string

const (
	Observe           DaylightSaving = "observe"
	PermanentStandard DaylightSaving = "permanentStandard"
	PermanentDaylight DaylightSaving = "permanentDaylight"
)

// NeverExpires is the sentinel expiration timestamp meaning "no expiration".
var NeverExpires = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

// Never is the sentinel timestamp meaning "no value given".
var Never = time.Date(1753, 1, 1, 0, 0, 0, 0, time.UTC)

// IncrementDescription is the schema trigger's four-integer recurrence spec.
type IncrementDescription struct {
	Minutes int
	Hours   int
	Days    int
	Weeks   int
}

// ParseIncrementDescription parses the "minutes,hours,days,weeks"
// comma-separated grammar the exporter writes back out. An empty string is
// the zero value, matching the "absent" semantics of the other optional
// numeric columns.
func ParseIncrementDescription(s string) (IncrementDescription, error) {
	var d IncrementDescription
	s = strings.TrimSpace(s)
	if s == "" {
		return d, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return d, fmt.Errorf("increment description must have 4 comma-separated integers, got %q", s)
	}
	fields := []*int{&d.Minutes, &d.Hours, &d.Days, &d.Weeks}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return IncrementDescription{}, fmt.Errorf("increment description %q: field %d: %w", s, i+1, err)
		}
		*fields[i] = n
	}
	return d, nil
}

// Task is a unit of work scheduled by QSEoW.
type Task struct {
	ID                    string
	Kind                  TaskKind
	Name                  string
	Enabled               bool
	SessionTimeoutMinutes int
	MaxRetries            int

	// Reload-only.
	AppRef              string
	IsPartialReload     bool
	IsManuallyTriggered bool

	// External-program-only.
	Path       string
	Parameters string

	Tags                  []string
	CustomPropertyValues  map[string]string

	ScheduleTriggers []*ScheduleTrigger
	CompositeEvents  []*CompositeEvent
}

// Validate enforces the kind/payload invariant from the data model.
func (t *Task) Validate() error {
	if t.Kind == Reload {
		if t.Path != "" || t.Parameters != "" {
			return fmt.Errorf("task %q: reload task must not carry path/parameters", t.Name)
		}
	} else {
		if t.AppRef != "" || t.IsPartialReload {
			return fmt.Errorf("task %q: external program task must not carry appRef/partial-reload", t.Name)
		}
	}
	return nil
}

// ScheduleTrigger is a time-based fire rule attached to exactly one task.
type ScheduleTrigger struct {
	Name                 string
	Enabled              bool
	IncrementOption      IncrementOption
	IncrementDescription IncrementDescription
	DaylightSaving       DaylightSaving
	StartUTC             time.Time
	ExpirationUTC        time.Time
	FilterDescription    string
	TimeZone             string
}

// Validate enforces expirationUTC >= startUTC.
func (s *ScheduleTrigger) Validate() error {
	if s.ExpirationUTC.Before(s.StartUTC) {
		return fmt.Errorf("schedule trigger %q: expirationUTC (%s) before startUTC (%s)", s.Name, s.ExpirationUTC, s.StartUTC)
	}
	return nil
}

// TimeConstraint is the composite event's sliding dependency window.
type TimeConstraint struct {
	Seconds int
	Minutes int
	Hours   int
	Days    int
}

// IsZero reports whether every field of the constraint is zero.
func (tc TimeConstraint) IsZero() bool {
	return tc.Seconds == 0 && tc.Minutes == 0 && tc.Hours == 0 && tc.Days == 0
}

// CompositeEvent is a dependency-based fire rule attached to exactly one
// downstream task.
type CompositeEvent struct {
	ID             string
	Name           string
	Enabled        bool
	TimeConstraint TimeConstraint
	Rules          []*CompositeRule

	// TaskID is the GUID (or local counter, pre-resolution) of the owning
	// downstream task.
	TaskID string
}

// Validate enforces the non-empty rule list invariant.
func (c *CompositeEvent) Validate() error {
	if len(c.Rules) == 0 {
		return fmt.Errorf("composite event %q: must have at least one rule", c.Name)
	}
	return nil
}

// CompositeRule is an edge from an upstream task to a composite event.
type CompositeRule struct {
	UpstreamRef string
	RuleState   RuleState
}
