//go:build cgo

package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a fresh in-memory KuzuStore with an initialized schema.
// It registers a cleanup function to close the store when the test finishes.
func newTestStore(t *testing.T) *KuzuStore {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err, "NewKuzuStore should not fail")
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.InitSchema(ctx), "InitSchema should not fail")
	return s
}

func TestKuzuStore_InitSchema(t *testing.T) {
	s, err := NewKuzuStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.InitSchema(ctx))
	// Second call should be idempotent (IF NOT EXISTS).
	require.NoError(t, s.InitSchema(ctx))
}

func TestKuzuStore_SegmentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := SegmentRecord{ID: 7, Length: 10, Depth: 3, Assemblies: 3, Sequence: seqA}
	require.NoError(t, s.AddSegment(ctx, rec))

	got, err := s.GetSegment(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, *got)

	missing, err := s.GetSegment(ctx, 8)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestKuzuStore_PersistMatchesMemStore(t *testing.T) {
	g, ids := chromosomeAndPlasmid(t)
	clusters := ComputeClusters(g, DefaultClusterOptions())
	ctx := context.Background()

	kz := newTestStore(t)
	mem := NewMemStore()
	require.NoError(t, Persist(ctx, kz, g, clusters, false))
	require.NoError(t, Persist(ctx, mem, g, clusters, false))

	kzStats, err := kz.Stats(ctx)
	require.NoError(t, err)
	memStats, err := mem.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, memStats, kzStats)

	kzClusters, err := kz.GetClusters(ctx)
	require.NoError(t, err)
	memClusters, err := mem.GetClusters(ctx)
	require.NoError(t, err)
	assert.Equal(t, memClusters, kzClusters)

	kzVisits, err := kz.GetPathsThrough(ctx, int(ids[3]))
	require.NoError(t, err)
	memVisits, err := mem.GetPathsThrough(ctx, int(ids[3]))
	require.NoError(t, err)
	assert.Equal(t, memVisits, kzVisits)

	kzChains, err := kz.GetNeighbors(ctx, int(ids[0]), 2)
	require.NoError(t, err)
	memChains, err := mem.GetNeighbors(ctx, int(ids[0]), 2)
	require.NoError(t, err)
	assert.Equal(t, memChains, kzChains)

	links, err := kz.GetAllLinks(ctx)
	require.NoError(t, err)
	assert.Len(t, links, 4)
}

func TestKuzuFileStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "graph")
	ctx := context.Background()

	s, err := NewKuzuFileStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.InitSchema(ctx))
	require.NoError(t, s.AddPath(ctx, PathRecord{ID: 1, Assembly: "asm1", Name: "chr", Circular: true, Length: 30, Refs: "1+,2+,3+"}))
	require.NoError(t, s.Close())

	reopened, err := NewKuzuFileStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	p, err := reopened.GetPath(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "1+,2+,3+", p.Refs)
	assert.True(t, p.Circular)
}
