package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dusk-indust/reconcile/internal/export"
	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/orchestrator"
)

// runDiagram prints a Mermaid diagram of the clustered graph, read either
// from a Kuzu database written by an earlier run or rebuilt from GFA inputs.
func runDiagram(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("diagram", flag.ContinueOnError)
	graphDB := fs.String("graph-db", "", "Kuzu database written by 'reconcile --graph-db'")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var store graph.Store
	switch {
	case *graphDB != "":
		if _, err := os.Stat(*graphDB); err != nil {
			return fmt.Errorf("no graph found at %s\nRun 'reconcile --graph-db %s <assembly.gfa>...' first", *graphDB, *graphDB)
		}
		s, err := openGraphStore(*graphDB)
		if err != nil {
			return fmt.Errorf("open graph: %w", err)
		}
		store = s
	case fs.NArg() > 0:
		s, err := buildGraphStore(ctx, fs.Args())
		if err != nil {
			return err
		}
		store = s
	default:
		return errors.New("usage: reconcile diagram [--graph-db dir] [<assembly.gfa>...]")
	}
	defer store.Close()

	mermaid, err := export.GenerateMermaid(ctx, store)
	if err != nil {
		return err
	}

	fmt.Fprint(stdout, mermaid)
	return nil
}

// buildGraphStore runs the pipeline over inputs without writing outputs and
// returns the in-memory snapshot of its graph. Progress events are dropped.
func buildGraphStore(ctx context.Context, inputs []string) (graph.Store, error) {
	cfg := orchestrator.DefaultConfig()
	store := graph.NewMemStore()

	p := orchestrator.NewPipeline(cfg, store)
	defer p.Close()

	if _, err := p.Run(ctx, inputs); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
