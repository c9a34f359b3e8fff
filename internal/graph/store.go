package graph

import (
	"context"
	"io"
)

// Store is the interface for a persisted reconciliation graph.
// Implementations: KuzuStore (on-disk, queried after a run), MemStore (testing
// and in-process queries). The in-memory Graph stays the source of truth
// during a run; a Store only holds its snapshot.
type Store interface {
	io.Closer

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations.
	AddSegment(ctx context.Context, rec SegmentRecord) error
	AddPath(ctx context.Context, rec PathRecord) error
	AddCluster(ctx context.Context, rec ClusterRecord) error
	AddLink(ctx context.Context, rec LinkRecord) error
	AddTraversal(ctx context.Context, rec TraversalRecord) error

	// Read operations. Missing records return nil without error.
	GetSegment(ctx context.Context, id int) (*SegmentRecord, error)
	GetPath(ctx context.Context, id int) (*PathRecord, error)
	GetPathsThrough(ctx context.Context, segment int) ([]TraversalRecord, error)
	GetClusters(ctx context.Context) ([]ClusterRecord, error)
	GetAllLinks(ctx context.Context) ([]LinkRecord, error)

	// Graph traversal over links, ignoring strand.
	GetNeighbors(ctx context.Context, segment int, maxDepth int) ([]NeighborChain, error)

	// Stats.
	Stats(ctx context.Context) (*GraphStats, error)
}
