package importer

import (
	"context"
	"fmt"

	"github.com/ctrl-q/ctrlq/internal/ctxlog"
	"github.com/ctrl-q/ctrlq/internal/importparse"
	"github.com/ctrl-q/ctrlq/internal/qrs"
	"github.com/ctrl-q/ctrlq/internal/resolve"
	"github.com/ctrl-q/ctrlq/internal/taskgraph"
)

// runPhaseB creates composite triggers. It runs after every Phase A task has
// either succeeded or failed, so a rule's upstreamRef may point at a task
// this same import just created. A rule that fails to resolve aborts only
// its own event; sibling events on the same or other tasks are unaffected.
func runPhaseB(ctx context.Context, repo Repository, graph *taskgraph.Graph, catalog *resolve.Catalog,
	tasks []importparse.TaskRecord, localToGUID *localToGUIDTable, opt Options) []EventResult {

	var items []compositeWorkItem
	for _, rec := range tasks {
		downstreamGUID, ok := localToGUID.get(rec.TaskID)
		if !ok {
			// The owning task failed to create in Phase A; its events cannot
			// be attached to anything and are skipped, not retried.
			for _, ce := range rec.CompositeEvents {
				items = append(items, compositeWorkItem{
					taskCounter: rec.TaskCounter, ce: ce,
					err: fmt.Errorf("owning task (counter %d) was not created in phase A", rec.TaskCounter),
				})
			}
			continue
		}
		for _, ce := range rec.CompositeEvents {
			items = append(items, compositeWorkItem{taskCounter: rec.TaskCounter, downstreamGUID: downstreamGUID, ce: ce})
		}
	}

	resolver := resolve.NewRuleResolver(catalog.KnownTaskIDs, localTaskIDSet(tasks))
	logger := ctxlog.FromContext(ctx)

	return runPool(items, opt.Workers, func(_ int, item compositeWorkItem) EventResult {
		result := EventResult{TaskCounter: item.taskCounter, EventCounter: item.ce.EventCounter}
		if item.err != nil {
			result.Err = item.err
			return result
		}

		rules := make([]qrs.CompositeRuleSpec, 0, len(item.ce.Rules))
		for _, rule := range item.ce.Rules {
			upstreamGUID, err := resolveUpstream(rule.RuleTaskID, resolver, localToGUID)
			if err != nil {
				result.Err = fmt.Errorf("rule counter %d: %w", rule.RuleCounter, err)
				return result
			}
			rules = append(rules, qrs.CompositeRuleSpec{UpstreamTaskID: upstreamGUID, RuleState: rule.RuleState})
		}

		spec := qrs.CompositeEventSpec{
			Name:    item.ce.Name,
			Enabled: item.ce.Enabled,
			TaskID:  item.downstreamGUID,
			TimeConstraint: qrs.TimeConstraintSpec{
				Seconds: item.ce.TimeConstraintSeconds,
				Minutes: item.ce.TimeConstraintMinutes,
				Hours:   item.ce.TimeConstraintHours,
				Days:    item.ce.TimeConstraintDays,
			},
			Rules: rules,
		}

		var guid string
		var err error
		if opt.DryRun {
			logger.Info("dry-run: would create composite event", "task_counter", item.taskCounter, "event_counter", item.ce.EventCounter, "payload", spec)
			guid = fmt.Sprintf("dry-run-event-%d", item.ce.EventCounter)
		} else {
			guid, err = repo.CreateCompositeEvent(ctx, spec)
		}
		if err != nil {
			result.Err = err
			return result
		}
		result.GUID = guid

		ruleSpecs := make([]*taskgraph.CompositeRule, 0, len(rules))
		for _, r := range rules {
			ruleSpecs = append(ruleSpecs, &taskgraph.CompositeRule{UpstreamRef: r.UpstreamTaskID, RuleState: ruleStateOf(r.RuleState)})
		}
		graph.AddCompositeEvent(item.downstreamGUID, &taskgraph.CompositeEvent{
			ID:      guid,
			Name:    item.ce.Name,
			Enabled: item.ce.Enabled,
			TimeConstraint: taskgraph.TimeConstraint{
				Seconds: item.ce.TimeConstraintSeconds,
				Minutes: item.ce.TimeConstraintMinutes,
				Hours:   item.ce.TimeConstraintHours,
				Days:    item.ce.TimeConstraintDays,
			},
			Rules: ruleSpecs,
		})

		return result
	})
}

// resolveUpstream resolves a rule's upstreamRef against the tasks created
// earlier in this run, falling back to a pre-existing server GUID.
func resolveUpstream(ref string, resolver *resolve.RuleResolver, localToGUID *localToGUIDTable) (string, error) {
	isLocal, err := resolver.Resolve(ref)
	if err != nil {
		return "", err
	}
	if !isLocal {
		return ref, nil
	}
	guid, ok := localToGUID.get(ref)
	if !ok {
		return "", fmt.Errorf("upstream task reference %q was declared in this import but its task was not created", ref)
	}
	return guid, nil
}

func ruleStateOf(state string) taskgraph.RuleState {
	if state == "TaskFail" {
		return taskgraph.TaskFail
	}
	return taskgraph.TaskSuccessful
}

func localTaskIDSet(tasks []importparse.TaskRecord) map[string]bool {
	out := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t.TaskID != "" {
			out[t.TaskID] = true
		}
	}
	return out
}

type compositeWorkItem struct {
	taskCounter    int
	downstreamGUID string
	ce             importparse.CompositeEventRecord
	err            error
}
