package graph

import (
	"testing"

	"github.com/dusk-indust/reconcile/internal/seqstore"
	"github.com/stretchr/testify/require"
)

// Test segments. None is equal to another or to another's reverse complement.
const (
	seqA      = "AAACCCGGGA"
	seqB      = "CATCATCATC"
	seqBAlt   = "CTTCTTCTTCTT"
	seqC      = "GGATTACAGG"
	seqPlasm  = "TTGGCTAG"
	seqPlasm2 = "GCGCAATT"
)

// internAll interns each sequence in order and returns the store with ids.
func internAll(t *testing.T, seqs ...string) (*seqstore.Store, []seqstore.SegmentID) {
	t.Helper()
	store := seqstore.New()
	ids := make([]seqstore.SegmentID, len(seqs))
	for i, s := range seqs {
		id, strand, err := store.Intern([]byte(s))
		require.NoError(t, err)
		require.Equal(t, seqstore.Forward, strand, "fixture sequence %q must be new", s)
		ids[i] = id
	}
	return store, ids
}

func fwd(id seqstore.SegmentID) StrandedRef {
	return StrandedRef{Segment: id, Strand: seqstore.Forward}
}

func rev(id seqstore.SegmentID) StrandedRef {
	return StrandedRef{Segment: id, Strand: seqstore.Reverse}
}

func mkPath(asm, name string, circular bool, refs ...StrandedRef) Path {
	return Path{Assembly: asm, Name: name, Circular: circular, Refs: refs}
}

// buildGraph builds a graph from paths and fails the test on any dropped input.
func buildGraph(t *testing.T, seqs *seqstore.Store, paths ...Path) *Graph {
	t.Helper()
	b := NewBuilder(seqs)
	b.AddAll(paths)
	g, dropped := b.Build()
	require.Empty(t, dropped)
	require.NoError(t, g.Validate())
	return g
}
