package mcptools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/dusk-indust/reconcile/internal/export"
	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/orchestrator"
	"github.com/dusk-indust/reconcile/internal/resolve"
	"github.com/dusk-indust/reconcile/internal/status"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrNoGraph is returned by query tools before any consensus was built.
var ErrNoGraph = errors.New("no graph built yet; call build_consensus first")

// StoreOpener opens an empty graph store for one run.
type StoreOpener func() (graph.Store, error)

// ConsensusService holds the latest run's graph store and report used by
// MCP tool handlers. Each build_consensus call replaces both. Query tools
// hold mu for reading while they use the store, so a replaced store is
// closed only once no query is using it.
type ConsensusService struct {
	cfg  orchestrator.Config
	open StoreOpener

	mu     sync.RWMutex
	store  graph.Store
	report *orchestrator.Report
}

// NewConsensusService creates a ConsensusService. A nil open selects an
// in-memory store.
func NewConsensusService(cfg orchestrator.Config, open StoreOpener) *ConsensusService {
	if open == nil {
		open = func() (graph.Store, error) { return graph.NewMemStore(), nil }
	}
	return &ConsensusService{cfg: cfg, open: open}
}

// Close releases the current graph store.
func (s *ConsensusService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

// BuildConsensus reads the input GFA files, runs the full pipeline and
// keeps the resulting graph for the query tools.
func (s *ConsensusService) BuildConsensus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input BuildConsensusInput,
) (*mcp.CallToolResult, BuildConsensusOutput, error) {
	if len(input.Inputs) == 0 {
		return nil, BuildConsensusOutput{}, fmt.Errorf("inputs is required")
	}

	cfg := s.cfg
	if input.OutputDir != "" {
		cfg.OutputDir = input.OutputDir
	}
	if input.MaxBubbleDepth > 0 {
		cfg.MaxBubbleDepth = input.MaxBubbleDepth
	}
	if input.TieBreak != "" {
		tb, err := resolve.ParseTieBreak(input.TieBreak)
		if err != nil {
			return nil, BuildConsensusOutput{}, err
		}
		cfg.TieBreak = tb
	}
	if len(input.AssemblyPriority) > 0 {
		cfg.AssemblyPriority = input.AssemblyPriority
	}

	store, err := s.open()
	if err != nil {
		return nil, BuildConsensusOutput{}, fmt.Errorf("open graph store: %w", err)
	}

	pipeline := orchestrator.NewPipeline(cfg, store)
	rep, err := pipeline.Run(ctx, input.Inputs)
	pipeline.Close()
	if err != nil {
		store.Close()
		return nil, BuildConsensusOutput{}, err
	}

	s.mu.Lock()
	old := s.store
	s.store, s.report = store, rep
	if old != nil {
		if err := old.Close(); err != nil {
			log.Printf("WARNING: close previous graph store: %v", err)
		}
	}
	s.mu.Unlock()

	return nil, BuildConsensusOutput{
		RunID:      rep.RunID,
		Assemblies: rep.Assemblies,
		Dropped:    rep.Dropped,
		Stats:      rep.Stats,
		Clusters:   rep.Clusters,
		Issues:     rep.Issues,
		OutputDir:  cfg.OutputDir,
	}, nil
}

// acquire read-locks the latest store and report. On success the caller
// must call release when it no longer uses them.
func (s *ConsensusService) acquire() (store graph.Store, rep *orchestrator.Report, release func(), err error) {
	s.mu.RLock()
	if s.store == nil {
		s.mu.RUnlock()
		return nil, nil, nil, ErrNoGraph
	}
	return s.store, s.report, s.mu.RUnlock, nil
}

// GetClusters returns every cluster of the latest run, including excluded
// ones.
func (s *ConsensusService) GetClusters(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GetClustersInput,
) (*mcp.CallToolResult, GetClustersOutput, error) {
	store, _, release, err := s.acquire()
	if err != nil {
		return nil, GetClustersOutput{}, err
	}
	defer release()

	clusters, err := store.GetClusters(ctx)
	if err != nil {
		return nil, GetClustersOutput{}, fmt.Errorf("get clusters: %w", err)
	}

	return nil, GetClustersOutput{Clusters: clusters}, nil
}

// GetBubbles returns the bubbles found while resolving the latest run.
func (s *ConsensusService) GetBubbles(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetBubblesInput,
) (*mcp.CallToolResult, GetBubblesOutput, error) {
	_, rep, release, err := s.acquire()
	if err != nil {
		return nil, GetBubblesOutput{}, err
	}
	defer release()

	out := GetBubblesOutput{Bubbles: []export.BubbleExport{}}
	for _, r := range rep.Results {
		if r.Result == nil || (input.Cluster != 0 && r.Cluster.ID != input.Cluster) {
			continue
		}
		for _, b := range r.Result.Bubbles {
			if b.Resolved && !input.IncludeResolved {
				continue
			}
			out.Bubbles = append(out.Bubbles, export.Bubble(b))
		}
	}

	return nil, out, nil
}

// GraphStats returns record counts of the latest run's stored graph.
func (s *ConsensusService) GraphStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GraphStatsInput,
) (*mcp.CallToolResult, GraphStatsOutput, error) {
	store, _, release, err := s.acquire()
	if err != nil {
		return nil, GraphStatsOutput{}, err
	}
	defer release()

	stats, err := store.Stats(ctx)
	if err != nil {
		return nil, GraphStatsOutput{}, fmt.Errorf("stats: %w", err)
	}

	return nil, GraphStatsOutput{Stats: *stats}, nil
}

// GetNeighbors walks links outward from a segment of the stored graph.
func (s *ConsensusService) GetNeighbors(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetNeighborsInput,
) (*mcp.CallToolResult, GetNeighborsOutput, error) {
	if input.Segment <= 0 {
		return nil, GetNeighborsOutput{}, fmt.Errorf("segment is required")
	}
	store, _, release, err := s.acquire()
	if err != nil {
		return nil, GetNeighborsOutput{}, err
	}
	defer release()

	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}

	seg, err := store.GetSegment(ctx, input.Segment)
	if err != nil {
		return nil, GetNeighborsOutput{}, fmt.Errorf("get segment: %w", err)
	}
	if seg == nil {
		return nil, GetNeighborsOutput{}, fmt.Errorf("unknown segment %d", input.Segment)
	}

	chains, err := store.GetNeighbors(ctx, input.Segment, maxDepth)
	if err != nil {
		return nil, GetNeighborsOutput{}, fmt.Errorf("get neighbors: %w", err)
	}

	return nil, GetNeighborsOutput{Chains: chains}, nil
}

// GetPathsThrough lists the input paths visiting a segment of the stored
// graph.
func (s *ConsensusService) GetPathsThrough(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetPathsThroughInput,
) (*mcp.CallToolResult, GetPathsThroughOutput, error) {
	if input.Segment <= 0 {
		return nil, GetPathsThroughOutput{}, fmt.Errorf("segment is required")
	}
	store, _, release, err := s.acquire()
	if err != nil {
		return nil, GetPathsThroughOutput{}, err
	}
	defer release()

	visits, err := store.GetPathsThrough(ctx, input.Segment)
	if err != nil {
		return nil, GetPathsThroughOutput{}, fmt.Errorf("get paths through: %w", err)
	}
	if len(visits) == 0 {
		return nil, GetPathsThroughOutput{}, fmt.Errorf("unknown segment %d", input.Segment)
	}

	paths := make(map[int]*graph.PathRecord)
	out := GetPathsThroughOutput{Visits: make([]PathVisit, 0, len(visits))}
	for _, v := range visits {
		p, ok := paths[v.Path]
		if !ok {
			p, err = store.GetPath(ctx, v.Path)
			if err != nil {
				return nil, GetPathsThroughOutput{}, fmt.Errorf("get path %d: %w", v.Path, err)
			}
			if p == nil {
				return nil, GetPathsThroughOutput{}, fmt.Errorf("traversal of missing path %d", v.Path)
			}
			paths[v.Path] = p
		}
		out.Visits = append(out.Visits, PathVisit{Path: *p, Position: v.Position, Strand: v.Strand})
	}

	return nil, out, nil
}

// GetStatus summarises the output directory of a finished run.
func (s *ConsensusService) GetStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetStatusInput,
) (*mcp.CallToolResult, GetStatusOutput, error) {
	dir := input.OutputDir
	if dir == "" {
		dir = s.cfg.OutputDir
	}
	if dir == "" {
		return nil, GetStatusOutput{}, fmt.Errorf("outputDir is required")
	}

	rs := status.GetRunStatus(dir)
	out := GetStatusOutput{Complete: rs.Complete}
	for _, f := range rs.Outputs {
		if !f.Exists {
			out.Missing = append(out.Missing, f.Name)
		}
	}
	if rs.Report != nil {
		out.RunID = rs.Report.RunID
		out.Confidence = status.CountConfidence(rs.Report)
		out.Issues = len(rs.Report.Issues)
	}

	return nil, out, nil
}
