package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ctrl-q/ctrlq/internal/analyzer"
	"github.com/ctrl-q/ctrlq/internal/ctxlog"
	"github.com/ctrl-q/ctrlq/internal/importer"
	"github.com/ctrl-q/ctrlq/internal/importparse"
)

func newTaskImportCommand() *cobra.Command {
	var (
		fileType           string
		fileName           string
		sheetName          string
		importApp          bool
		importAppSheetName string
		limitImportCount   int
		sleepAppUploadMS   int
		updateMode         string
		dryRun             bool
		workers            int
	)

	cmd := &cobra.Command{
		Use:   "task-import",
		Short: "Create tasks, schedule triggers, and composite triggers from a source file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := runtimeFromContext(ctx)
			logger := ctxlog.FromContext(ctx)

			if updateMode != "create" {
				return NewExitError(ExitCommandError, "--update-mode: only \"create\" is supported")
			}

			taskSrc, err := openSource(fileType, fileName, sheetName)
			if err != nil {
				return WrapExitError(ExitCommandError, "open source file", err)
			}
			defer taskSrc.Close()

			tasks, taskDiags, err := importparse.ParseTasks(taskSrc, importparse.Options{
				RefBy:            importparse.ByName,
				LimitImportCount: limitImportCount,
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "parse task source", err)
			}
			for _, d := range taskDiags {
				logger.Warn("task parse diagnostic", "row", d.Row, "message", d.Error())
			}

			var apps []importparse.AppRecord
			if importApp {
				appSrc, err := openSource(fileType, fileName, importAppSheetName)
				if err != nil {
					return WrapExitError(ExitCommandError, "open app sheet", err)
				}
				defer appSrc.Close()

				var appDiags importparse.Diagnostics
				apps, appDiags, err = importparse.ParseApps(appSrc, importparse.Options{RefBy: importparse.ByName})
				if err != nil {
					return WrapExitError(ExitCommandError, "parse app source", err)
				}
				for _, d := range appDiags {
					logger.Warn("app parse diagnostic", "row", d.Row, "message", d.Error())
				}
			}

			graph, err := loadGraph(ctx, rt.repo)
			if err != nil {
				return WrapExitError(ExitFailure, "load existing task graph", err)
			}
			catalog, err := loadCatalog(ctx, rt.repo, graph)
			if err != nil {
				return WrapExitError(ExitFailure, "warm reference cache", err)
			}

			loadQVF := func(directory, name string) ([]byte, error) {
				return os.ReadFile(filepath.Join(directory, name))
			}

			taskResults, eventResults, err := importer.Run(ctx, rt.repo, graph, catalog, tasks, apps, loadQVF, importer.Options{
				UpdateMode:     importer.ModeCreate,
				DryRun:         dryRun,
				SleepAppUpload: time.Duration(sleepAppUploadMS) * time.Millisecond,
				Workers:        workers,
			})
			if err != nil {
				return WrapExitError(ExitFailure, "import run failed", err)
			}

			taskFailed, eventFailed := 0, 0
			for _, r := range taskResults {
				if r.Err != nil {
					taskFailed++
					fmt.Fprintf(os.Stderr, "task counter %d: %v\n", r.TaskCounter, r.Err)
				}
			}
			for _, r := range eventResults {
				if r.Err != nil {
					eventFailed++
					fmt.Fprintf(os.Stderr, "task counter %d, event counter %d: %v\n", r.TaskCounter, r.EventCounter, r.Err)
				}
			}
			failed := taskFailed + eventFailed

			for _, pair := range analyzer.DetectCycles(graph) {
				fmt.Fprintf(os.Stderr, "warning: circular reference between tasks %s and %s\n", pair.A, pair.B)
			}
			for _, dup := range analyzer.DetectDuplicateEdges(graph) {
				fmt.Fprintf(os.Stderr, "warning: duplicate edge %s -> %s (%s, seen %d times)\n", dup.Upstream, dup.Downstream, dup.RuleState, dup.Count)
			}

			logger.Info("import complete", "tasks_created", len(taskResults)-taskFailed, "events_created", len(eventResults)-eventFailed, "failures", failed)
			if failed > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d work item(s) failed during import", failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fileType, "file-type", "csv", "excel|csv")
	cmd.Flags().StringVar(&fileName, "file-name", "", "path to the source file")
	cmd.Flags().StringVar(&sheetName, "sheet-name", "", "task sheet name (excel only, default first sheet)")
	cmd.Flags().BoolVar(&importApp, "import-app", false, "also process an app sheet before tasks")
	cmd.Flags().StringVar(&importAppSheetName, "import-app-sheet-name", "", "app sheet name (excel only)")
	cmd.Flags().IntVar(&limitImportCount, "limit-import-count", 0, "0 means no limit")
	cmd.Flags().IntVar(&sleepAppUploadMS, "sleep-app-upload", 1000, "milliseconds to sleep between app uploads")
	cmd.Flags().StringVar(&updateMode, "update-mode", "create", "create (only legal value)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log intended actions without calling the Repository")
	cmd.Flags().IntVar(&workers, "workers", 1, "bounded worker pool size within a phase; opt into pipelining with a higher value")

	cmd.MarkFlagRequired("file-name")

	return cmd
}

func openSource(fileType, fileName, sheetName string) (importparse.RowSource, error) {
	switch fileType {
	case "excel":
		return importparse.OpenSpreadsheet(fileName, sheetName)
	case "csv":
		return importparse.OpenDelimited(fileName, ',')
	default:
		return nil, fmt.Errorf("--file-type must be excel or csv, got %q", fileType)
	}
}
