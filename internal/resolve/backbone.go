package resolve

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/seqstore"
)

// selectBackbone picks the path the consensus walk follows. Candidates are
// paths that span the cluster: they lie wholly inside it and pass through
// every terminal segment. Among them the one collinear with the most other
// paths wins, then the longest, then the configured assembly priority, then
// the lowest path id.
func (r *Resolver) selectBackbone(c graph.Cluster) (graph.Path, error) {
	members := make(map[seqstore.SegmentID]bool, len(c.Segments))
	for _, s := range c.Segments {
		members[s] = true
	}
	ends := r.terminals(c, members)

	paths := make([]graph.Path, 0, len(c.Paths))
	for _, id := range c.Paths {
		p, err := r.g.Path(id)
		if err != nil {
			return graph.Path{}, err
		}
		paths = append(paths, p)
	}

	edges := make([]map[graph.EdgeKey]bool, len(paths))
	for i, p := range paths {
		edges[i] = pathEdges(p)
	}

	type candidate struct {
		path      graph.Path
		collinear int
		length    int
		rank      int
	}
	var cands []candidate
	for i, p := range paths {
		if !within(p, members) || !passes(p, ends) {
			continue
		}
		n := 0
		for j, q := range paths {
			if i != j && collinear(p, edges[i], q, edges[j]) {
				n++
			}
		}
		cands = append(cands, candidate{
			path:      p,
			collinear: n,
			length:    r.g.SpellLength(p.Refs),
			rank:      r.priority(p.Assembly),
		})
	}
	if len(cands) == 0 {
		return graph.Path{}, fmt.Errorf("%w: cluster %d (terminal segments %s)", ErrNoBackbone, c.ID, formatSegments(ends))
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.collinear != b.collinear {
			return a.collinear > b.collinear
		}
		if a.length != b.length {
			return a.length > b.length
		}
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		return a.path.ID < b.path.ID
	})

	bb := cands[0].path
	if bb.Circular {
		bb.Refs = rotate(bb.Refs, r.startIndex(bb.Refs))
	}
	return bb, nil
}

// priority returns the rank of an assembly in AssemblyPriority, or the list
// length when it is not named.
func (r *Resolver) priority(assembly string) int {
	for i, a := range r.opts.AssemblyPriority {
		if a == assembly {
			return i
		}
	}
	return len(r.opts.AssemblyPriority)
}

// startIndex picks where a circular backbone starts: the position whose
// segment the most assemblies traverse, lowest index on ties.
func (r *Resolver) startIndex(refs []graph.StrandedRef) int {
	best, bestN := 0, -1
	for i, ref := range refs {
		n := 0
		if node, ok := r.g.Node(ref.Segment); ok {
			n = len(node.Assemblies)
		}
		if n > bestN {
			best, bestN = i, n
		}
	}
	return best
}

// terminals returns the cluster segments with a side that links to nothing
// else in the cluster, in cluster order. The two ends of a linear replicon
// are terminals; a circular replicon has none.
func (r *Resolver) terminals(c graph.Cluster, members map[seqstore.SegmentID]bool) []seqstore.SegmentID {
	var out []seqstore.SegmentID
	for _, s := range c.Segments {
		for _, strand := range []seqstore.Strand{seqstore.Forward, seqstore.Reverse} {
			if !linksInto(r.g.Next(graph.Endpoint{Segment: s, Strand: strand}), members) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

func linksInto(next []graph.Endpoint, members map[seqstore.SegmentID]bool) bool {
	for _, ep := range next {
		if members[ep.Segment] {
			return true
		}
	}
	return false
}

// passes reports whether p visits every one of segs.
func passes(p graph.Path, segs []seqstore.SegmentID) bool {
	on := make(map[seqstore.SegmentID]bool, len(p.Refs))
	for _, ref := range p.Refs {
		on[ref.Segment] = true
	}
	for _, s := range segs {
		if !on[s] {
			return false
		}
	}
	return true
}

func formatSegments(segs []seqstore.SegmentID) string {
	if len(segs) == 0 {
		return "none"
	}
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = strconv.Itoa(int(s))
	}
	return strings.Join(parts, ", ")
}

func within(p graph.Path, members map[seqstore.SegmentID]bool) bool {
	for _, ref := range p.Refs {
		if !members[ref.Segment] {
			return false
		}
	}
	return true
}

// pathEdges returns the canonical adjacencies a path walks, including the
// closing adjacency of a circular path.
func pathEdges(p graph.Path) map[graph.EdgeKey]bool {
	out := make(map[graph.EdgeKey]bool, len(p.Refs))
	for i := 1; i < len(p.Refs); i++ {
		out[graph.CanonicalEdge(p.Refs[i-1].Endpoint(), p.Refs[i].Endpoint())] = true
	}
	if p.Circular && len(p.Refs) > 0 {
		out[graph.CanonicalEdge(p.Refs[len(p.Refs)-1].Endpoint(), p.Refs[0].Endpoint())] = true
	}
	return out
}

// collinear reports whether p and q agree on more than half the adjacencies
// of the shorter one. Paths without adjacencies are collinear with any path
// sharing one of their segments.
func collinear(p graph.Path, pe map[graph.EdgeKey]bool, q graph.Path, qe map[graph.EdgeKey]bool) bool {
	if len(pe) == 0 || len(qe) == 0 {
		return sharesSegment(p, q)
	}
	shared := 0
	for k := range pe {
		if qe[k] {
			shared++
		}
	}
	return shared*2 > min(len(pe), len(qe))
}

func sharesSegment(p, q graph.Path) bool {
	seen := make(map[seqstore.SegmentID]bool, len(p.Refs))
	for _, r := range p.Refs {
		seen[r.Segment] = true
	}
	for _, r := range q.Refs {
		if seen[r.Segment] {
			return true
		}
	}
	return false
}

func rotate(refs []graph.StrandedRef, start int) []graph.StrandedRef {
	out := make([]graph.StrandedRef, 0, len(refs))
	out = append(out, refs[start:]...)
	return append(out, refs[:start]...)
}
