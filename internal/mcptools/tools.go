package mcptools

import (
	"github.com/dusk-indust/reconcile/internal/export"
	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/orchestrator"
	"github.com/dusk-indust/reconcile/internal/status"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// BuildConsensusInput is the input for the build_consensus MCP tool.
type BuildConsensusInput struct {
	Inputs           []string `json:"inputs" jsonschema:"absolute paths of the GFA files to reconcile, one or more per assembly"`
	OutputDir        string   `json:"outputDir,omitempty" jsonschema:"directory to write consensus and report files into (default: none, results stay in memory)"`
	MaxBubbleDepth   int      `json:"maxBubbleDepth,omitempty" jsonschema:"segments a branch may walk before it must rejoin the backbone (default: 64)"`
	TieBreak         string   `json:"tieBreak,omitempty" jsonschema:"secondary bubble ranking: depth-first or identity-first (default: depth-first)"`
	AssemblyPriority []string `json:"assemblyPriority,omitempty" jsonschema:"assemblies preferred as backbone, most trusted first"`
}

// BuildConsensusOutput is the result of the build_consensus MCP tool.
type BuildConsensusOutput struct {
	RunID      string                        `json:"runId"`
	Assemblies []string                      `json:"assemblies"`
	Dropped    []string                      `json:"dropped,omitempty"`
	Stats      graph.GraphStats              `json:"stats"`
	Clusters   []orchestrator.ClusterSummary `json:"clusters"`
	Issues     []orchestrator.Issue          `json:"issues,omitempty"`
	OutputDir  string                        `json:"outputDir,omitempty"`
}

// GetClustersInput is the input for the get_clusters MCP tool.
type GetClustersInput struct{}

// GetClustersOutput is the result of the get_clusters MCP tool.
type GetClustersOutput struct {
	Clusters []graph.ClusterRecord `json:"clusters"`
}

// GetBubblesInput is the input for the get_bubbles MCP tool.
type GetBubblesInput struct {
	Cluster         int  `json:"cluster,omitempty" jsonschema:"only return bubbles of this cluster id (default: all clusters)"`
	IncludeResolved bool `json:"includeResolved,omitempty" jsonschema:"also return bubbles the vote resolved (default: unresolved only)"`
}

// GetBubblesOutput is the result of the get_bubbles MCP tool.
type GetBubblesOutput struct {
	Bubbles []export.BubbleExport `json:"bubbles"`
}

// GraphStatsInput is the input for the graph_stats MCP tool.
type GraphStatsInput struct{}

// GraphStatsOutput is the result of the graph_stats MCP tool.
type GraphStatsOutput struct {
	Stats graph.GraphStats `json:"stats"`
}

// GetNeighborsInput is the input for the get_neighbors MCP tool.
type GetNeighborsInput struct {
	Segment  int `json:"segment" jsonschema:"segment id as numbered in the stored graph"`
	MaxDepth int `json:"maxDepth,omitempty" jsonschema:"maximum number of links to follow (default: 3)"`
}

// GetNeighborsOutput is the result of the get_neighbors MCP tool.
type GetNeighborsOutput struct {
	Chains []graph.NeighborChain `json:"chains"`
}

// GetPathsThroughInput is the input for the get_paths_through MCP tool.
type GetPathsThroughInput struct {
	Segment int `json:"segment" jsonschema:"segment id as numbered in the stored graph"`
}

// PathVisit is one pass of an input path through a segment.
type PathVisit struct {
	Path     graph.PathRecord `json:"path"`
	Position int              `json:"position"`
	Strand   string           `json:"strand"`
}

// GetPathsThroughOutput is the result of the get_paths_through MCP tool.
type GetPathsThroughOutput struct {
	Visits []PathVisit `json:"visits"`
}

// GetStatusInput is the input for the get_status MCP tool.
type GetStatusInput struct {
	OutputDir string `json:"outputDir,omitempty" jsonschema:"output directory of a finished run (default: the configured output directory)"`
}

// GetStatusOutput is the result of the get_status MCP tool.
type GetStatusOutput struct {
	RunID      string                   `json:"runId,omitempty"`
	Complete   bool                     `json:"complete"`
	Missing    []string                 `json:"missing,omitempty"`
	Confidence []status.ConfidenceCount `json:"confidence,omitempty"`
	Issues     int                      `json:"issues"`
}
