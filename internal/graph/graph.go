package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dusk-indust/reconcile/internal/seqstore"
)

var (
	ErrMalformedInput       = errors.New("graph: malformed input")
	ErrInsufficientCoverage = errors.New("graph: insufficient coverage")
	ErrInvariantViolation   = errors.New("graph: invariant violation")
	ErrUnknownPath          = errors.New("graph: unknown path")
)

// InputError describes an input assembly dropped during building.
type InputError struct {
	Assembly string
	Path     string
	Reason   string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("graph: malformed input: assembly %q path %q: %s", e.Assembly, e.Path, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrMalformedInput }

// Graph is the combined stranded multigraph built from every input path.
// A built Graph is never mutated, so concurrent readers need no locking.
type Graph struct {
	seqs       *seqstore.Store
	nodes      map[seqstore.SegmentID]*Node
	edges      map[EdgeKey]*Edge
	next       map[Endpoint][]Endpoint
	paths      []Path
	assemblies []string
}

// Seqs returns the sequence store the graph was built over.
func (g *Graph) Seqs() *seqstore.Store { return g.seqs }

// Node returns the node for a segment.
func (g *Graph) Node(id seqstore.SegmentID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every node ordered by segment id.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Edges returns every edge ordered by canonical key.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().less(out[j].Key()) })
	return out
}

// Edge returns the edge for the adjacency from -> to in either orientation.
func (g *Graph) Edge(from, to Endpoint) (*Edge, bool) {
	e, ok := g.edges[CanonicalEdge(from, to)]
	return e, ok
}

// Next returns the endpoints that follow ep in at least one path, sorted.
func (g *Graph) Next(ep Endpoint) []Endpoint {
	return g.next[ep]
}

// Paths returns every retained path ordered by id.
func (g *Graph) Paths() []Path { return g.paths }

// Path returns the path with the given id.
func (g *Graph) Path(id PathID) (Path, error) {
	if id < 1 || int(id) > len(g.paths) {
		return Path{}, fmt.Errorf("%w: %d", ErrUnknownPath, id)
	}
	return g.paths[id-1], nil
}

// Assemblies returns the sorted ids of assemblies that contributed paths.
func (g *Graph) Assemblies() []string { return g.assemblies }

// AssembliesOf returns the distinct sorted assemblies of the given paths.
func (g *Graph) AssembliesOf(ids []PathID) []string {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id >= 1 && int(id) <= len(g.paths) {
			set[g.paths[id-1].Assembly] = true
		}
	}
	return sortedKeys(set)
}

// Spell concatenates the oriented, trimmed sequences of refs.
func (g *Graph) Spell(refs []StrandedRef) ([]byte, error) {
	var out []byte
	for _, r := range refs {
		s, err := g.seqs.Oriented(r.Segment, r.Strand, r.TrimStart, r.TrimEnd)
		if err != nil {
			return nil, err
		}
		out = append(out, s...)
	}
	return out, nil
}

// SpellLength returns the length Spell would produce without building it.
func (g *Graph) SpellLength(refs []StrandedRef) int {
	return spellLength(g.seqs, refs)
}

// Validate checks the structural invariants of a built graph. Any failure
// means the builder is wrong and wraps ErrInvariantViolation.
func (g *Graph) Validate() error {
	for key, e := range g.edges {
		if len(e.Paths) == 0 {
			return fmt.Errorf("%w: edge %s->%s has no supporting path", ErrInvariantViolation, key.From, key.To)
		}
		if CanonicalEdge(key.From, key.To) != key {
			return fmt.Errorf("%w: edge %s->%s stored under a non-canonical key", ErrInvariantViolation, key.From, key.To)
		}
	}

	for id, n := range g.nodes {
		seen := make(map[PathID]bool)
		for _, t := range n.Traversals {
			seen[t.Path] = true
		}
		if len(seen) != n.Depth {
			return fmt.Errorf("%w: node %d depth %d but %d distinct paths", ErrInvariantViolation, id, n.Depth, len(seen))
		}
		if n.Depth == 0 {
			return fmt.Errorf("%w: node %d has no traversals", ErrInvariantViolation, id)
		}
	}

	for _, p := range g.paths {
		for i := 1; i < len(p.Refs); i++ {
			if _, ok := g.Edge(p.Refs[i-1].Endpoint(), p.Refs[i].Endpoint()); !ok {
				return fmt.Errorf("%w: path %d step %d has no edge", ErrInvariantViolation, p.ID, i)
			}
		}
		if p.Circular && len(p.Refs) > 0 {
			last, first := p.Refs[len(p.Refs)-1].Endpoint(), p.Refs[0].Endpoint()
			if _, ok := g.Edge(last, first); !ok {
				return fmt.Errorf("%w: circular path %d does not close", ErrInvariantViolation, p.ID)
			}
		}
	}
	return nil
}

func sortEndpoints(eps []Endpoint) {
	sort.Slice(eps, func(i, j int) bool { return eps[i].less(eps[j]) })
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// insertPath merges one path's nodes and edges into the graph.
func (g *Graph) insertPath(p Path) {
	for i, r := range p.Refs {
		n, ok := g.nodes[r.Segment]
		if !ok {
			n = &Node{Segment: r.Segment, Length: g.seqs.Len(r.Segment)}
			g.nodes[r.Segment] = n
		}
		n.Traversals = append(n.Traversals, Traversal{Path: p.ID, Position: i, Strand: r.Strand})
	}
	for i := 1; i < len(p.Refs); i++ {
		g.addEdge(p.Refs[i-1].Endpoint(), p.Refs[i].Endpoint(), p.ID)
	}
	if p.Circular && len(p.Refs) > 0 {
		g.addEdge(p.Refs[len(p.Refs)-1].Endpoint(), p.Refs[0].Endpoint(), p.ID)
	}
}

func (g *Graph) addEdge(from, to Endpoint, id PathID) {
	key := CanonicalEdge(from, to)
	e, ok := g.edges[key]
	if !ok {
		e = &Edge{From: key.From, To: key.To}
		g.edges[key] = e
		g.link(key.From, key.To)
		g.link(key.To.Reverse(), key.From.Reverse())
	}
	if len(e.Paths) == 0 || e.Paths[len(e.Paths)-1] != id {
		e.Paths = append(e.Paths, id)
	}
}

func (g *Graph) link(from, to Endpoint) {
	for _, e := range g.next[from] {
		if e == to {
			return
		}
	}
	g.next[from] = append(g.next[from], to)
}

// finish computes the derived per-node and per-edge aggregates.
func (g *Graph) finish() {
	for _, n := range g.nodes {
		ids := make([]PathID, 0, len(n.Traversals))
		for _, t := range n.Traversals {
			ids = append(ids, t.Path)
		}
		ids = uniquePathIDs(ids)
		n.Depth = len(ids)
		n.Assemblies = g.AssembliesOf(ids)
	}
	for _, e := range g.edges {
		e.Paths = uniquePathIDs(e.Paths)
		e.Assemblies = g.AssembliesOf(e.Paths)
	}
	for ep := range g.next {
		sortEndpoints(g.next[ep])
	}
}

func uniquePathIDs(ids []PathID) []PathID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:0]
	for _, id := range ids {
		if len(out) == 0 || id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}
