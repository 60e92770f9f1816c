package main

import (
	"context"
	"fmt"

	"github.com/ctrl-q/ctrlq/internal/importparse"
	"github.com/ctrl-q/ctrlq/internal/qrs"
	"github.com/ctrl-q/ctrlq/internal/resolve"
	"github.com/ctrl-q/ctrlq/internal/taskgraph"
)

// loadGraph fetches the live task and composite-event population from the
// Repository and assembles it into an in-memory graph, mirroring the shape
// runPhaseA/runPhaseB leave behind after an import.
func loadGraph(ctx context.Context, repo *qrs.Client) (*taskgraph.Graph, error) {
	reloadTasks, err := repo.ListReloadTasks(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list reload tasks: %w", err)
	}
	externalTasks, err := repo.ListExternalProgramTasks(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list external program tasks: %w", err)
	}
	composites, err := repo.ListCompositeEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list composite events: %w", err)
	}

	g := taskgraph.New()
	for _, ts := range reloadTasks {
		g.AddTask(taskFromSummary(ts, taskgraph.Reload))
	}
	for _, ts := range externalTasks {
		g.AddTask(taskFromSummary(ts, taskgraph.ExternalProgram))
	}
	for _, ce := range composites {
		g.AddCompositeEvent(ce.TaskID, compositeEventFromSummary(ce))
	}
	g.Rebuild(ctx)
	return g, nil
}

func taskFromSummary(ts qrs.TaskSummary, kind taskgraph.TaskKind) *taskgraph.Task {
	triggers := make([]*taskgraph.ScheduleTrigger, 0, len(ts.SchemaEvents))
	for _, se := range ts.SchemaEvents {
		trigger := &taskgraph.ScheduleTrigger{
			Name:              se.Name,
			Enabled:           se.Enabled,
			IncrementOption:   taskgraph.IncrementOption(se.IncrementOption),
			DaylightSaving:    taskgraph.DaylightSaving(se.DaylightSaving),
			FilterDescription: se.FilterDescription,
			TimeZone:          se.TimeZone,
			ExpirationUTC:     taskgraph.NeverExpires,
		}
		if start, err := importparse.ParseTimestamp(se.StartUTC); err == nil {
			trigger.StartUTC = start
		}
		if exp, err := importparse.ParseTimestamp(se.ExpirationUTC); err == nil {
			trigger.ExpirationUTC = exp
		}
		if inc, err := taskgraph.ParseIncrementDescription(se.IncrementDescription); err == nil {
			trigger.IncrementDescription = inc
		}
		triggers = append(triggers, trigger)
	}

	return &taskgraph.Task{
		ID:                    ts.ID,
		Kind:                  kind,
		Name:                  ts.Name,
		Enabled:               ts.Enabled,
		SessionTimeoutMinutes: ts.SessionTimeoutMinutes,
		MaxRetries:            ts.MaxRetries,
		AppRef:                ts.AppID,
		IsPartialReload:       ts.IsPartialReload,
		IsManuallyTriggered:   ts.IsManuallyTriggered,
		Path:                  ts.Path,
		Parameters:            ts.Parameters,
		Tags:                  ts.TagNames,
		CustomPropertyValues:  ts.CustomProperties,
		ScheduleTriggers:      triggers,
	}
}

func compositeEventFromSummary(ce qrs.CompositeEventSummary) *taskgraph.CompositeEvent {
	rules := make([]*taskgraph.CompositeRule, 0, len(ce.Rules))
	for _, r := range ce.Rules {
		rules = append(rules, &taskgraph.CompositeRule{
			UpstreamRef: r.UpstreamTaskID,
			RuleState:   ruleStateFrom(r.RuleState),
		})
	}
	return &taskgraph.CompositeEvent{
		ID:      ce.ID,
		Name:    ce.Name,
		Enabled: ce.Enabled,
		TimeConstraint: taskgraph.TimeConstraint{
			Seconds: ce.TimeConstraint.Seconds,
			Minutes: ce.TimeConstraint.Minutes,
			Hours:   ce.TimeConstraint.Hours,
			Days:    ce.TimeConstraint.Days,
		},
		Rules:  rules,
		TaskID: ce.TaskID,
	}
}

func ruleStateFrom(state string) taskgraph.RuleState {
	if state == "TaskFail" {
		return taskgraph.TaskFail
	}
	return taskgraph.TaskSuccessful
}

// loadCatalog warms up the reference-resolution caches from the live
// server: tags, custom properties, streams, and the GUID populations a
// rule or app reference may point at.
func loadCatalog(ctx context.Context, repo *qrs.Client, graph *taskgraph.Graph) (*resolve.Catalog, error) {
	tags, err := repo.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	props, err := repo.ListCustomProperties(ctx)
	if err != nil {
		return nil, fmt.Errorf("list custom properties: %w", err)
	}
	streams, err := repo.ListStreams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	apps, err := repo.ListApps(ctx)
	if err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}

	knownTasks := make([]string, 0, len(graph.AllTasks()))
	for _, t := range graph.AllTasks() {
		knownTasks = append(knownTasks, t.ID)
	}
	knownApps := make([]string, 0, len(apps))
	for _, a := range apps {
		knownApps = append(knownApps, a.ID)
	}

	return resolve.NewCatalog(tags, props, streams, knownTasks, knownApps), nil
}
