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

// runPhaseA creates tasks and their embedded schedule triggers. Composite
// events are deliberately excluded from the Phase A payload even if the
// source lists them on this row — that is Phase B's job — because the
// source format allows a row to reference a task the same file creates
// later, and creating composite events inside Phase A would fail on rules
// whose upstream does not yet exist.
//
// Errors in Phase A do not roll back previously created tasks; each task is
// independent.
func runPhaseA(ctx context.Context, repo Repository, graph *taskgraph.Graph, catalog *resolve.Catalog, appResolver *resolve.AppResolver,
	tasks []importparse.TaskRecord, localToGUID *localToGUIDTable, opt Options) []TaskResult {

	logger := ctxlog.FromContext(ctx)

	return runPool(tasks, opt.Workers, func(_ int, rec importparse.TaskRecord) TaskResult {
		result := TaskResult{TaskCounter: rec.TaskCounter, LocalID: rec.TaskID}

		var tagIDs []string
		for _, name := range rec.Tags {
			id, err := catalog.ResolveTag(name)
			if err != nil {
				result.Err = fmt.Errorf("resolve tag: %w", err)
				return result
			}
			tagIDs = append(tagIDs, id)
		}
		for name, value := range rec.CustomProperties {
			if err := catalog.ResolveCustomProperty(name, value); err != nil {
				result.Err = fmt.Errorf("resolve custom property: %w", err)
				return result
			}
		}

		schemaEvents := make([]qrs.SchemaEventSpec, 0, len(rec.SchemaEvents))
		for _, se := range rec.SchemaEvents {
			schemaEvents = append(schemaEvents, qrs.SchemaEventSpec{
				Name:                 se.Name,
				Enabled:              se.Enabled,
				IncrementOption:      se.IncrementOption,
				IncrementDescription: se.IncrementDescription,
				DaylightSaving:       se.DaylightSaving,
				StartUTC:             se.Start,
				ExpirationUTC:        se.Expiration,
				FilterDescription:    se.FilterDescription,
				TimeZone:             se.TimeZone,
			})
		}

		var guid string
		var err error
		var appGUID string
		if rec.TaskType == "Reload" {
			var rerr error
			appGUID, rerr = appResolver.Resolve(rec.AppID)
			if rerr != nil {
				result.Err = fmt.Errorf("resolve app reference: %w", rerr)
				return result
			}
			spec := qrs.ReloadTaskSpec{
				Name:                  rec.TaskName,
				Enabled:               rec.TaskEnabled,
				SessionTimeoutMinutes: rec.TaskTimeoutMinutes,
				MaxRetries:            rec.TaskRetries,
				AppID:                 appGUID,
				IsPartialReload:       rec.PartialReload,
				IsManuallyTriggered:   rec.ManuallyTriggered,
				TagIDs:                tagIDs,
				CustomProperties:      rec.CustomProperties,
				SchemaEvents:          schemaEvents,
			}
			if opt.DryRun {
				logger.Info("dry-run: would create reload task", "task_counter", rec.TaskCounter, "payload", spec)
				guid = fmt.Sprintf("dry-run-task-%d", rec.TaskCounter)
			} else {
				guid, err = repo.CreateReloadTask(ctx, spec)
			}
		} else {
			spec := qrs.ExternalProgramTaskSpec{
				Name:                  rec.TaskName,
				Enabled:               rec.TaskEnabled,
				SessionTimeoutMinutes: rec.TaskTimeoutMinutes,
				MaxRetries:            rec.TaskRetries,
				Path:                  rec.Path,
				Parameters:            rec.Parameters,
				TagIDs:                tagIDs,
				CustomProperties:      rec.CustomProperties,
				SchemaEvents:          schemaEvents,
			}
			if opt.DryRun {
				logger.Info("dry-run: would create external program task", "task_counter", rec.TaskCounter, "payload", spec)
				guid = fmt.Sprintf("dry-run-task-%d", rec.TaskCounter)
			} else {
				guid, err = repo.CreateExternalProgramTask(ctx, spec)
			}
		}
		if err != nil {
			result.Err = err
			return result
		}

		result.GUID = guid
		if rec.TaskID != "" {
			localToGUID.set(rec.TaskID, guid)
		}

		triggers := make([]*taskgraph.ScheduleTrigger, 0, len(rec.SchemaEvents))
		for _, se := range rec.SchemaEvents {
			trigger := &taskgraph.ScheduleTrigger{
				Name:              se.Name,
				Enabled:           se.Enabled,
				IncrementOption:   taskgraph.IncrementOption(se.IncrementOption),
				DaylightSaving:    taskgraph.DaylightSaving(se.DaylightSaving),
				FilterDescription: se.FilterDescription,
				TimeZone:          se.TimeZone,
				ExpirationUTC:     taskgraph.NeverExpires,
			}
			if start, serr := importparse.ParseTimestamp(se.Start); serr == nil {
				trigger.StartUTC = start
			}
			if exp, eerr := importparse.ParseTimestamp(se.Expiration); eerr == nil {
				trigger.ExpirationUTC = exp
			}
			if inc, ierr := taskgraph.ParseIncrementDescription(se.IncrementDescription); ierr == nil {
				trigger.IncrementDescription = inc
			}
			triggers = append(triggers, trigger)
		}

		task := &taskgraph.Task{
			ID:                    guid,
			Name:                  rec.TaskName,
			Enabled:               rec.TaskEnabled,
			SessionTimeoutMinutes: rec.TaskTimeoutMinutes,
			MaxRetries:            rec.TaskRetries,
			Tags:                  rec.Tags,
			CustomPropertyValues:  rec.CustomProperties,
			ScheduleTriggers:      triggers,
		}
		if rec.TaskType == "Reload" {
			task.Kind = taskgraph.Reload
			task.AppRef = appGUID
			task.IsPartialReload = rec.PartialReload
		} else {
			task.Kind = taskgraph.ExternalProgram
			task.Path = rec.Path
			task.Parameters = rec.Parameters
		}
		task.IsManuallyTriggered = rec.ManuallyTriggered
		graph.AddTask(task)

		return result
	})
}
