package graph

import (
	"context"
	"sort"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu         sync.RWMutex
	segments   map[int]SegmentRecord
	paths      map[int]PathRecord
	clusters   []ClusterRecord
	links      []LinkRecord
	traversals []TraversalRecord
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		segments: make(map[int]SegmentRecord),
		paths:    make(map[int]PathRecord),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddSegment stores a segment keyed by id.
func (m *MemStore) AddSegment(_ context.Context, rec SegmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.segments[rec.ID] = rec
	return nil
}

// AddPath stores a path keyed by id.
func (m *MemStore) AddPath(_ context.Context, rec PathRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[rec.ID] = rec
	return nil
}

// AddCluster appends a cluster to the internal slice.
func (m *MemStore) AddCluster(_ context.Context, rec ClusterRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Members = append([]int(nil), rec.Members...)
	m.clusters = append(m.clusters, rec)
	return nil
}

// AddLink appends a link to the internal slice.
func (m *MemStore) AddLink(_ context.Context, rec LinkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, rec)
	return nil
}

// AddTraversal appends a path visit to the internal slice.
func (m *MemStore) AddTraversal(_ context.Context, rec TraversalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.traversals = append(m.traversals, rec)
	return nil
}

// GetSegment returns the segment with the given id, or nil if not found.
func (m *MemStore) GetSegment(_ context.Context, id int) (*SegmentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.segments[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// GetPath returns the path with the given id, or nil if not found.
func (m *MemStore) GetPath(_ context.Context, id int) (*PathRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.paths[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// GetPathsThrough returns every recorded visit to segment, ordered by path
// and position.
func (m *MemStore) GetPathsThrough(_ context.Context, segment int) ([]TraversalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []TraversalRecord
	for _, t := range m.traversals {
		if t.Segment == segment {
			out = append(out, t)
		}
	}
	sortTraversals(out)
	return out, nil
}

// GetClusters returns all stored clusters.
func (m *MemStore) GetClusters(_ context.Context) ([]ClusterRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ClusterRecord, len(m.clusters))
	copy(out, m.clusters)
	return out, nil
}

// GetAllLinks returns a copy of all links in the store.
func (m *MemStore) GetAllLinks(_ context.Context) ([]LinkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]LinkRecord, len(m.links))
	copy(out, m.links)
	return out, nil
}

// GetNeighbors performs a BFS over links from segment, up to maxDepth hops.
// It returns one NeighborChain per reachable segment.
func (m *MemStore) GetNeighbors(_ context.Context, segment int, maxDepth int) ([]NeighborChain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if maxDepth <= 0 {
		return nil, nil
	}

	// BFS state: each entry tracks the walk from segment to the current one.
	type bfsEntry struct {
		id   int
		path []int
	}

	visited := map[int]bool{segment: true}
	queue := []bfsEntry{{id: segment, path: []int{segment}}}
	var chains []NeighborChain

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var nextQueue []bfsEntry
		for _, entry := range queue {
			for _, nb := range m.neighbors(entry.id) {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				newPath := make([]int, len(entry.path), len(entry.path)+1)
				copy(newPath, entry.path)
				newPath = append(newPath, nb)
				chains = append(chains, NeighborChain{
					Segments: newPath,
					Depth:    len(newPath) - 1,
				})
				nextQueue = append(nextQueue, bfsEntry{id: nb, path: newPath})
			}
		}
		queue = nextQueue
	}

	return chains, nil
}

// neighbors returns segment ids one link away from id, sorted.
func (m *MemStore) neighbors(id int) []int {
	set := make(map[int]bool)
	for _, l := range m.links {
		if l.From == id && l.To != id {
			set[l.To] = true
		}
		if l.To == id && l.From != id {
			set[l.From] = true
		}
	}
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// Stats returns counts of all record types in the graph.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, s := range m.segments {
		total += s.Length
	}
	return &GraphStats{
		SegmentCount:   len(m.segments),
		PathCount:      len(m.paths),
		ClusterCount:   len(m.clusters),
		LinkCount:      len(m.links),
		TraversalCount: len(m.traversals),
		TotalLength:    total,
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

func sortTraversals(ts []TraversalRecord) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Path != ts[j].Path {
			return ts[i].Path < ts[j].Path
		}
		return ts[i].Position < ts[j].Position
	})
}
