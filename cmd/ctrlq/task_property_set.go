package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ctrl-q/ctrlq/internal/ctxlog"
	"github.com/ctrl-q/ctrlq/internal/resolve"
	"github.com/ctrl-q/ctrlq/internal/taskgraph"
)

func newTaskCustomPropertySetCommand() *cobra.Command {
	var (
		taskIDs        []string
		taskTags       []string
		propertyNames  []string
		propertyValues []string
		mode           string
		dryRun         bool
	)

	cmd := &cobra.Command{
		Use:   "task-custom-property-set",
		Short: "Append or replace custom properties on existing tasks (their tags are kept unchanged)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := runtimeFromContext(ctx)
			logger := ctxlog.FromContext(ctx)

			if mode != "append" && mode != "replace" {
				return NewExitError(ExitCommandError, fmt.Sprintf("--mode must be append or replace, got %q", mode))
			}
			if len(propertyNames) != len(propertyValues) {
				return NewExitError(ExitCommandError, "--custom-property-name and --custom-property-value must repeat the same number of times")
			}
			if len(taskIDs) == 0 && len(taskTags) == 0 {
				return NewExitError(ExitCommandError, "at least one of --task-id or --task-tag is required")
			}

			graph, err := loadGraph(ctx, rt.repo)
			if err != nil {
				return WrapExitError(ExitFailure, "load task graph", err)
			}
			catalog, err := loadCatalog(ctx, rt.repo, graph)
			if err != nil {
				return WrapExitError(ExitFailure, "warm reference cache", err)
			}

			desired := make(map[string]string, len(propertyNames))
			for i, name := range propertyNames {
				value := propertyValues[i]
				if err := catalog.ResolveCustomProperty(name, value); err != nil {
					return WrapExitError(ExitCommandError, "resolve custom property", err)
				}
				desired[name] = value
			}

			targets := graph.FilterTasks(taskgraph.FilterSpec{TaskIDs: taskIDs, TaskTags: taskTags})
			if len(targets) == 0 {
				logger.Warn("no tasks matched the given filters")
				return nil
			}

			failed := 0
			for _, t := range targets {
				tagIDs, err := resolveTagIDs(catalog, t.Tags)
				if err != nil {
					failed++
					fmt.Fprintf(os.Stderr, "task %s (%s): %v\n", t.Name, t.ID, err)
					continue
				}
				props := mergeProperties(mode, t.CustomPropertyValues, desired)

				if dryRun {
					logger.Info("dry-run: would update task", "task", t.Name, "id", t.ID, "properties", props)
					continue
				}
				if err := rt.repo.UpdateTaskTagsAndProperties(ctx, t.ID, tagIDs, props); err != nil {
					failed++
					fmt.Fprintf(os.Stderr, "task %s (%s): %v\n", t.Name, t.ID, err)
				}
			}

			logger.Info("custom-property-set complete", "tasks_matched", len(targets), "failures", failed)
			if failed > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d task(s) failed to update", failed))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&taskIDs, "task-id", nil, "restrict to these task GUIDs")
	cmd.Flags().StringSliceVar(&taskTags, "task-tag", nil, "restrict to tasks carrying these tags")
	cmd.Flags().StringArrayVar(&propertyNames, "custom-property-name", nil, "custom property name (repeatable, paired with --custom-property-value)")
	cmd.Flags().StringArrayVar(&propertyValues, "custom-property-value", nil, "custom property value (repeatable, paired with --custom-property-name)")
	cmd.Flags().StringVar(&mode, "mode", "append", "append|replace")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log intended changes without calling the Repository")

	return cmd
}

// resolveTagIDs resolves a task's current tag names back to GUIDs so an
// update payload can carry the unchanged set alongside the new properties.
func resolveTagIDs(catalog *resolve.Catalog, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, err := catalog.ResolveTag(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// mergeProperties applies desired onto existing per mode: replace discards
// existing values for any name also present in desired; append keeps every
// existing value and only adds names not already set.
func mergeProperties(mode string, existing, desired map[string]string) map[string]string {
	out := make(map[string]string, len(existing)+len(desired))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range desired {
		if mode == "replace" {
			out[k] = v
			continue
		}
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}
