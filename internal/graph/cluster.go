package graph

import (
	"fmt"
	"sort"

	"github.com/dusk-indust/reconcile/internal/seqstore"
)

// ClusterOptions tunes replicon clustering.
type ClusterOptions struct {
	// MinLength is the smallest unique length (bp) a cluster needs for
	// automatic consensus.
	MinLength int

	// MinDepth is the smallest length-weighted mean depth a cluster needs.
	MinDepth float64

	// MinLinkSupport is the fraction of the shallower endpoint's depth an
	// edge must carry to join its endpoints into one cluster. Zero keeps
	// every edge.
	MinLinkSupport float64

	// ChromosomeFraction is the share of the top cluster's total coverage a
	// cluster needs to be classed as chromosomal.
	ChromosomeFraction float64
}

// DefaultClusterOptions returns the options used when none are configured.
func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{
		MinLength:          1,
		MinDepth:           1.0,
		ChromosomeFraction: 0.5,
	}
}

// ComputeClusters partitions the graph into connected components, ignoring
// strand, and annotates each with length, depth and role estimates.
//
// Algorithm:
//  1. Build an undirected adjacency list from edges that pass MinLinkSupport.
//  2. Find connected components via BFS, seeded in segment id order.
//  3. Order components by total coverage, then unique length, then lowest
//     segment id, and number them from 1.
//  4. Derive copy number and role relative to the first component.
//
// The result depends only on the graph, so repeated calls are identical.
func ComputeClusters(g *Graph, opts ClusterOptions) []Cluster {
	adj := buildAdjacency(g, opts.MinLinkSupport)

	visited := make(map[seqstore.SegmentID]bool, g.NodeCount())
	var clusters []Cluster
	for _, n := range g.Nodes() {
		if visited[n.Segment] {
			continue
		}
		component := bfsComponent(n.Segment, adj, visited)
		clusters = append(clusters, summarize(g, component))
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		a, b := clusters[i], clusters[j]
		if a.TotalCoverage != b.TotalCoverage {
			return a.TotalCoverage > b.TotalCoverage
		}
		if a.UniqueLength != b.UniqueLength {
			return a.UniqueLength > b.UniqueLength
		}
		return a.Segments[0] < b.Segments[0]
	})

	total := len(g.Assemblies())
	for i := range clusters {
		c := &clusters[i]
		c.ID = i + 1
		c.TotalAssemblies = total
		if clusters[0].MeanDepth > 0 {
			c.CopyNumber = c.MeanDepth / clusters[0].MeanDepth
		}
		c.Role = RolePlasmid
		if i == 0 || float64(c.TotalCoverage) >= opts.ChromosomeFraction*float64(clusters[0].TotalCoverage) {
			c.Role = RoleChromosome
		}
		switch {
		case c.UniqueLength < opts.MinLength:
			c.LowConfidence = true
			c.Reason = fmt.Sprintf("unique length %d below minimum %d", c.UniqueLength, opts.MinLength)
		case c.MeanDepth < opts.MinDepth:
			c.LowConfidence = true
			c.Reason = fmt.Sprintf("mean depth %.2f below minimum %.2f", c.MeanDepth, opts.MinDepth)
		}
	}
	return clusters
}

// buildAdjacency constructs a strand-agnostic adjacency list in one pass over
// the edges. Self-loops are skipped since they never join components.
func buildAdjacency(g *Graph, minSupport float64) map[seqstore.SegmentID][]seqstore.SegmentID {
	adj := make(map[seqstore.SegmentID][]seqstore.SegmentID, g.NodeCount())
	for _, e := range g.Edges() {
		a, b := e.From.Segment, e.To.Segment
		if a == b {
			continue
		}
		if minSupport > 0 {
			na, _ := g.Node(a)
			nb, _ := g.Node(b)
			shallow := na.Depth
			if nb.Depth < shallow {
				shallow = nb.Depth
			}
			if float64(len(e.Paths)) < minSupport*float64(shallow) {
				continue
			}
		}
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	return adj
}

// bfsComponent performs BFS from start and returns the reachable segments
// sorted by id. It marks visited segments as it goes.
func bfsComponent(start seqstore.SegmentID, adj map[seqstore.SegmentID][]seqstore.SegmentID, visited map[seqstore.SegmentID]bool) []seqstore.SegmentID {
	var component []seqstore.SegmentID
	queue := []seqstore.SegmentID{start}
	visited[start] = true

	for len(queue) > 0 {
		seg := queue[0]
		queue = queue[1:]
		component = append(component, seg)
		for _, nb := range adj[seg] {
			if !visited[nb] {
				visited[nb] = true
				queue = append(queue, nb)
			}
		}
	}

	sort.Slice(component, func(i, j int) bool { return component[i] < component[j] })
	return component
}

// summarize computes the size and depth figures of one component.
func summarize(g *Graph, segments []seqstore.SegmentID) Cluster {
	c := Cluster{Segments: segments}
	pathSet := make(map[PathID]bool)
	for _, id := range segments {
		n, _ := g.Node(id)
		c.UniqueLength += n.Length
		c.TotalCoverage += n.Length * n.Depth
		for _, t := range n.Traversals {
			pathSet[t.Path] = true
		}
	}
	for id := range pathSet {
		c.Paths = append(c.Paths, id)
	}
	sort.Slice(c.Paths, func(i, j int) bool { return c.Paths[i] < c.Paths[j] })
	c.Assemblies = g.AssembliesOf(c.Paths)

	if c.UniqueLength > 0 {
		c.MeanDepth = float64(c.TotalCoverage) / float64(c.UniqueLength)
	}
	if len(c.Paths) > 0 {
		c.EstimatedLength = c.TotalCoverage / len(c.Paths)
	}
	c.Loop = isSimpleLoop(g, segments)
	return c
}

// isSimpleLoop reports whether the segments form one unbranched circle: every
// endpoint has exactly one successor and one predecessor, and following
// successors from the first segment visits each segment once before
// returning to the start.
func isSimpleLoop(g *Graph, segments []seqstore.SegmentID) bool {
	if len(segments) == 0 {
		return false
	}
	for _, id := range segments {
		fwd := Endpoint{Segment: id, Strand: seqstore.Forward}
		if len(g.Next(fwd)) != 1 || len(g.Next(fwd.Reverse())) != 1 {
			return false
		}
	}
	start := Endpoint{Segment: segments[0], Strand: seqstore.Forward}
	visited := make(map[seqstore.SegmentID]bool, len(segments))
	cur := start
	for {
		if visited[cur.Segment] {
			return false
		}
		visited[cur.Segment] = true
		next := g.Next(cur)
		if len(next) != 1 {
			return false
		}
		cur = next[0]
		if cur == start {
			break
		}
	}
	return len(visited) == len(segments)
}
