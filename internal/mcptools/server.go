package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewConsensusMCPServer creates an MCP server with the consensus tools
// registered.
func NewConsensusMCPServer(svc *ConsensusService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "reconcile",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "build_consensus",
		Description: "Reconcile several assemblies of one genome given as GFA files. Builds the combined graph, clusters it into replicons, votes on every bubble and returns per-cluster consensus summaries and issues.",
	}, svc.BuildConsensus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_clusters",
		Description: "Return every replicon cluster of the latest run with its role, depth, copy number, assembly coverage and member segments.",
	}, svc.GetClusters)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_bubbles",
		Description: "Return the bubbles (regions where the assemblies disagree) of the latest run, with every alternative in GFA path notation and the one kept.",
	}, svc.GetBubbles)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "graph_stats",
		Description: "Return segment, path, link, traversal and cluster counts of the latest run's graph.",
	}, svc.GraphStats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_neighbors",
		Description: "Walk links outward from a segment of the latest run's graph. Returns one chain per reachable segment up to the given depth.",
	}, svc.GetNeighbors)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_paths_through",
		Description: "List every input path that passes through a segment of the latest run's graph, with the path's assembly, contig name, position and strand.",
	}, svc.GetPathsThrough)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_status",
		Description: "Summarise the output directory of a finished run: missing files, cluster confidence counts and the number of issues.",
	}, svc.GetStatus)

	return server
}

// RunMCPServer starts an HTTP server exposing the consensus MCP tools.
func RunMCPServer(ctx context.Context, svc *ConsensusService, addr string) error {
	server := NewConsensusMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking until
// stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
