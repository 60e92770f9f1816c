package main

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ctrl-q/ctrlq/internal/analyzer"
)

// writeTree renders a forest to w as an indented outline. It serves both
// the screen and the file destination for tree output; a tree written to a
// file uses this same outline, whatever --output-file-format says.
func writeTree(w io.Writer, forest analyzer.Forest) {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	fmt.Fprintln(bw, "scheduled:")
	for _, child := range forest.ScheduledRoot.Children {
		writeTreeNode(bw, child, 1)
	}
	fmt.Fprintln(bw, "causal:")
	for _, root := range forest.CausalRoots {
		writeTreeNode(bw, root, 1)
	}
}

func writeTreeNode(w *bufio.Writer, n *analyzer.TreeNode, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.IsMarker {
		fmt.Fprintf(w, "%s(cycle: %s)\n", indent, n.MarkerFor)
		return
	}
	label := n.Task.Name
	if len(n.Decorations) > 0 {
		keys := make([]string, 0, len(n.Decorations))
		for k := range n.Decorations {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, n.Decorations[analyzer.TreeDetail(k)]))
		}
		label = fmt.Sprintf("%s [%s]", label, strings.Join(parts, ", "))
	}
	fmt.Fprintf(w, "%s%s\n", indent, label)
	for _, child := range n.Children {
		writeTreeNode(w, child, depth+1)
	}
}

// tableColumns returns the union of every row's cell keys, sorted, with
// "id" and "name" pinned first when present.
func tableColumns(rows []analyzer.TableRow) []string {
	set := map[string]bool{}
	for _, r := range rows {
		for k := range r.Cells {
			set[k] = true
		}
	}
	var rest []string
	for k := range set {
		if k == "id" || k == "name" {
			continue
		}
		rest = append(rest, k)
	}
	sort.Strings(rest)
	var cols []string
	if set["id"] {
		cols = append(cols, "id")
	}
	if set["name"] {
		cols = append(cols, "name")
	}
	return append(cols, rest...)
}

func writeTableScreen(w io.Writer, rows []analyzer.TableRow) {
	cols := tableColumns(rows)
	bw := bufio.NewWriter(w)
	defer bw.Flush()
	fmt.Fprintln(bw, strings.Join(cols, "\t"))
	for _, r := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = r.Cells[c]
		}
		fmt.Fprintln(bw, strings.Join(cells, "\t"))
	}
}

func writeTableCSV(w io.Writer, rows []analyzer.TableRow) error {
	cols := tableColumns(rows)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	for _, r := range rows {
		record := make([]string, len(cols))
		for i, c := range cols {
			record[i] = r.Cells[c]
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeTableJSON(w io.Writer, rows []analyzer.TableRow) error {
	out := make([]map[string]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Cells)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeTableExcel(path string, rows []analyzer.TableRow) error {
	cols := tableColumns(rows)
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"

	for i, c := range cols {
		cellRef, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cellRef, c); err != nil {
			return err
		}
	}
	for rowIdx, r := range rows {
		for i, c := range cols {
			cellRef, err := excelize.CoordinatesToCellName(i+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cellRef, r.Cells[c]); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}

// confirmOverwrite prompts on stdin unless suppressed; a "no" answer is
// surfaced as an error rather than a silent skip.
func confirmOverwrite(path string, suppress bool) error {
	if suppress {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	fmt.Fprintf(os.Stderr, "%s already exists. Overwrite? [y/N]: ", path)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer != "y" && answer != "yes" {
		return fmt.Errorf("aborted: %s exists and overwrite was declined", path)
	}
	return nil
}
