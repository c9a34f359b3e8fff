//go:build !cgo

package main

import (
	"errors"

	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/mcptools"
)

var errNoKuzu = errors.New("graph databases need a cgo build (Kuzu)")

func createGraphStore(string) (graph.Store, error) { return nil, errNoKuzu }

func openGraphStore(string) (graph.Store, error) { return nil, errNoKuzu }

// mcpStoreOpener falls back to the in-memory store.
func mcpStoreOpener() mcptools.StoreOpener { return nil }
