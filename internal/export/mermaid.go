package export

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/reconcile/internal/graph"
)

// GenerateMermaid produces a Mermaid graph LR diagram from a graph store.
// Segments are grouped by cluster; links become arrows labelled with the
// number of paths supporting them.
func GenerateMermaid(ctx context.Context, store graph.Store) (string, error) {
	clusters, err := store.GetClusters(ctx)
	if err != nil {
		return "", fmt.Errorf("get clusters: %w", err)
	}

	links, err := store.GetAllLinks(ctx)
	if err != nil {
		return "", fmt.Errorf("get links: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("graph LR\n")

	// Emit cluster subgraphs.
	for _, c := range clusters {
		if len(c.Members) == 0 {
			continue
		}
		sorted := make([]int, len(c.Members))
		copy(sorted, c.Members)
		sort.Ints(sorted)

		title := fmt.Sprintf("cluster %d: %s %s", c.ID, c.Role, c.Coverage)
		if c.LowConfidence {
			title += " (excluded)"
		}
		fmt.Fprintf(&sb, "  subgraph C%d[\"%s\"]\n", c.ID, title)
		for _, id := range sorted {
			label, err := segmentLabel(ctx, store, id)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", nodeID(id), label)
		}
		sb.WriteString("  end\n")
	}

	// Emit links.
	for _, l := range links {
		fmt.Fprintf(&sb, "  %s -->|\"%s%s %d\"| %s\n",
			nodeID(l.From), l.FromStrand, l.ToStrand, l.Support, nodeID(l.To))
	}

	return sb.String(), nil
}

func nodeID(segment int) string {
	return fmt.Sprintf("S%d", segment)
}

// segmentLabel returns "id (length bp)" for a stored segment.
func segmentLabel(ctx context.Context, store graph.Store, id int) (string, error) {
	seg, err := store.GetSegment(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get segment %d: %w", id, err)
	}
	if seg == nil {
		return fmt.Sprintf("%d", id), nil
	}
	return fmt.Sprintf("%d (%d bp, depth %d)", id, seg.Length, seg.Depth), nil
}
