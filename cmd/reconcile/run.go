package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/orchestrator"
)

// runPipeline reconciles the input assemblies, printing progress while the
// run is underway and a summary table at the end.
func runPipeline(ctx context.Context, cfg orchestrator.Config, inputs []string, stdout io.Writer) error {
	var store graph.Store
	if cfg.GraphDB != "" {
		s, err := createGraphStore(cfg.GraphDB)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	p := orchestrator.NewPipeline(cfg, store)

	done := make(chan struct{})
	go func() {
		defer close(done)
		printProgress(stdout, p.Progress(), cfg.Quiet)
	}()

	rep, err := p.Run(ctx, inputs)
	p.Close()
	<-done
	if err != nil {
		return err
	}
	if n := p.Dropped(); n > 0 && !cfg.Quiet {
		fmt.Fprintln(stdout, mutedStyle.Render(fmt.Sprintf("  (%d progress events not shown)", n)))
	}

	printSummary(stdout, rep)
	if cfg.OutputDir != "" {
		fmt.Fprintf(stdout, "\nOutputs written to %s\n", cfg.OutputDir)
	}
	if cfg.GraphDB != "" {
		fmt.Fprintf(stdout, "Graph persisted to %s\n", cfg.GraphDB)
	}
	return nil
}

// printProgress drains events until the channel closes. A stage header is
// printed the first time each stage reports.
func printProgress(w io.Writer, events <-chan orchestrator.ProgressEvent, quiet bool) {
	seen := make(map[orchestrator.Stage]bool)
	for ev := range events {
		if quiet {
			continue
		}
		if !seen[ev.Stage] {
			seen[ev.Stage] = true
			fmt.Fprintln(w, headerStyle.Render(orchestrator.FormatStageHeader(ev.Stage)))
		}
		fmt.Fprintln(w, orchestrator.FormatProgress(ev))
	}
}
