//go:build cgo

package main

import (
	"fmt"
	"os"

	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/mcptools"
)

// createGraphStore opens a new Kuzu database for one run. An existing path
// is refused so runs never mix into one database.
func createGraphStore(path string) (graph.Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("graph database %s already exists", path)
	}
	store, err := graph.NewKuzuFileStore(path)
	if err != nil {
		return nil, fmt.Errorf("open graph database: %w", err)
	}
	return store, nil
}

// openGraphStore opens the Kuzu database of an earlier run.
func openGraphStore(path string) (graph.Store, error) {
	return graph.NewKuzuFileStore(path)
}

// mcpStoreOpener gives every build_consensus call its own in-memory Kuzu
// database.
func mcpStoreOpener() mcptools.StoreOpener {
	return func() (graph.Store, error) {
		return graph.NewKuzuStore()
	}
}
