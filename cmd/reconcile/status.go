package main

import (
	"fmt"
	"io"

	"github.com/dusk-indust/reconcile/internal/status"
)

func runStatus(args []string, stdout io.Writer) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	runs, ok := status.ListRuns(root)
	if !ok {
		return fmt.Errorf("cannot read %s", root)
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No runs found.")
		fmt.Fprintln(stdout, "Run 'reconcile --output-dir <dir> <assembly.gfa>...' to build a consensus.")
		return nil
	}

	for i, rs := range runs {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		printRunStatus(stdout, rs)
	}
	return nil
}

func printRunStatus(w io.Writer, rs status.RunStatus) {
	title := fmt.Sprintf("Run: %s", rs.Dir)
	if rs.Report != nil {
		title += fmt.Sprintf(" (%s)", rs.Report.RunID)
	}
	fmt.Fprintln(w, headerStyle.Render(title))

	for _, f := range rs.Outputs {
		label := "missing"
		if f.Exists {
			label = fmt.Sprintf("%d bytes", f.Size)
		}
		fmt.Fprintf(w, "  %-26s [%s]\n", f.Name, label)
	}

	if rs.Report == nil {
		fmt.Fprintln(w, warnStyle.Render("  report unreadable"))
		return
	}
	for _, cc := range status.CountConfidence(rs.Report) {
		fmt.Fprintf(w, "  %-26s %d cluster(s)\n", confidenceLabel(cc.Confidence), cc.Clusters)
	}
	if n := len(rs.Report.Issues); n > 0 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("  %d issue(s)", n)))
	}
	if !rs.Complete {
		fmt.Fprintln(w, mutedStyle.Render("  incomplete: some outputs are missing"))
	}
}
