package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ctrl-q/ctrlq/internal/analyzer"
	"github.com/ctrl-q/ctrlq/internal/taskgraph"
)

func newTaskGetCommand() *cobra.Command {
	var (
		outputFormat     string
		outputDest       string
		outputFileFormat string
		outputFile       string
		outputOverwrite  bool
		taskIDs          []string
		taskTags         []string
		tableDetails     []string
		treeDetails      []string
		maxDepth         int
	)

	cmd := &cobra.Command{
		Use:   "task-get",
		Short: "Read the task graph as a tree or a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFromContext(cmd.Context())
			graph, err := loadGraph(cmd.Context(), rt.repo)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to load task graph", err)
			}

			for _, pair := range analyzer.DetectCycles(graph) {
				fmt.Fprintf(os.Stderr, "warning: circular reference between tasks %s and %s\n", pair.A, pair.B)
			}
			for _, dup := range analyzer.DetectDuplicateEdges(graph) {
				fmt.Fprintf(os.Stderr, "warning: duplicate edge %s -> %s (%s, seen %d times)\n", dup.Upstream, dup.Downstream, dup.RuleState, dup.Count)
			}

			spec := taskgraph.FilterSpec{TaskIDs: taskIDs, TaskTags: taskTags}

			switch outputFormat {
			case "tree":
				var details []analyzer.TreeDetail
				for _, d := range treeDetails {
					details = append(details, analyzer.TreeDetail(d))
				}
				forest := analyzer.RenderTree(graph, spec, maxDepth, details)
				return emitTree(forest, outputDest, outputFileFormat, outputFile, outputOverwrite)
			case "table":
				if len(tableDetails) == 0 {
					tableDetails = []string{string(analyzer.BlockCommon)}
				}
				var blocks []analyzer.TableBlock
				for _, b := range tableDetails {
					blocks = append(blocks, analyzer.TableBlock(b))
				}
				rows := analyzer.RenderTable(graph, spec, blocks)
				return emitTable(rows, outputDest, outputFileFormat, outputFile, outputOverwrite)
			default:
				return NewExitError(ExitCommandError, fmt.Sprintf("--output-format must be tree or table, got %q", outputFormat))
			}
		},
	}

	cmd.Flags().StringVar(&outputFormat, "output-format", "tree", "tree|table")
	cmd.Flags().StringVar(&outputDest, "output-dest", "screen", "screen|file")
	cmd.Flags().StringVar(&outputFileFormat, "output-file-format", "csv", "excel|csv|json")
	cmd.Flags().StringVar(&outputFile, "output-file", "ctrlq-tasks", "output file path, extension appended automatically")
	cmd.Flags().BoolVar(&outputOverwrite, "output-file-overwrite", false, "suppress the interactive overwrite prompt")
	cmd.Flags().StringSliceVar(&taskIDs, "task-id", nil, "restrict to these task GUIDs (table output; tree roots)")
	cmd.Flags().StringSliceVar(&taskTags, "task-tag", nil, "restrict to tasks carrying these tags")
	cmd.Flags().StringSliceVar(&tableDetails, "table-details", nil, "common,lastexecution,tag,customproperty,schematrigger,compositetrigger")
	cmd.Flags().StringSliceVar(&treeDetails, "tree-details", nil, "lastexecution,tag,customproperty,appname")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 100, "bound on the causal-tree walk depth")

	return cmd
}

func emitTree(forest analyzer.Forest, dest, fileFormat, file string, overwrite bool) error {
	if dest == "screen" {
		writeTree(os.Stdout, forest)
		return nil
	}
	// Tree output has no natural tabular file rendering; screen text is
	// still the most useful thing to write.
	path := file + ".txt"
	if err := confirmOverwrite(path, overwrite); err != nil {
		return WrapExitError(ExitCommandError, "output file", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return WrapExitError(ExitFailure, "create output file", err)
	}
	defer f.Close()
	writeTree(f, forest)
	return nil
}

func emitTable(rows []analyzer.TableRow, dest, fileFormat, file string, overwrite bool) error {
	if dest == "screen" {
		writeTableScreen(os.Stdout, rows)
		return nil
	}

	var path string
	switch fileFormat {
	case "excel":
		path = file + ".xlsx"
	case "csv":
		path = file + ".csv"
	case "json":
		path = file + ".json"
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("--output-file-format must be excel, csv, or json, got %q", fileFormat))
	}
	if err := confirmOverwrite(path, overwrite); err != nil {
		return WrapExitError(ExitCommandError, "output file", err)
	}

	if fileFormat == "excel" {
		if err := writeTableExcel(path, rows); err != nil {
			return WrapExitError(ExitFailure, "write excel output", err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return WrapExitError(ExitFailure, "create output file", err)
	}
	defer f.Close()

	if fileFormat == "csv" {
		if err := writeTableCSV(f, rows); err != nil {
			return WrapExitError(ExitFailure, "write csv output", err)
		}
		return nil
	}
	if err := writeTableJSON(f, rows); err != nil {
		return WrapExitError(ExitFailure, "write json output", err)
	}
	return nil
}
