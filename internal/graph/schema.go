package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dusk-indust/reconcile/internal/seqstore"
)

// --- Enums ---

// Role classifies a cluster as a candidate replicon type.
type Role string

const (
	RoleChromosome Role = "chromosome"
	RolePlasmid    Role = "plasmid"
)

// --- Path model ---

// StrandedRef points at a segment read on one strand, optionally with bases
// trimmed from either end of the oriented sequence.
type StrandedRef struct {
	Segment   seqstore.SegmentID `json:"segment" yaml:"segment"`
	Strand    seqstore.Strand    `json:"strand" yaml:"strand"`
	TrimStart int                `json:"trimStart,omitempty" yaml:"trimStart,omitempty"`
	TrimEnd   int                `json:"trimEnd,omitempty" yaml:"trimEnd,omitempty"`
}

// Endpoint returns the strand-aware identity of the ref, ignoring trims.
func (r StrandedRef) Endpoint() Endpoint {
	return Endpoint{Segment: r.Segment, Strand: r.Strand}
}

func (r StrandedRef) String() string {
	return strconv.Itoa(int(r.Segment)) + r.Strand.String()
}

// PathID identifies a Path within one built graph. IDs start at 1.
type PathID int

// Path is one input contig's traversal through interned segments.
type Path struct {
	ID       PathID        `json:"id"`
	Assembly string        `json:"assembly"`
	Name     string        `json:"name"`
	// Header is the full contig description line, when known.
	Header   string        `json:"header,omitempty"`
	Circular bool          `json:"circular"`
	Refs     []StrandedRef `json:"refs"`
	// Length is the declared contig length, 0 when unknown.
	Length int `json:"length,omitempty"`
}

// RefString renders the refs in GFA path notation, e.g. "1+,4-,2+".
func (p Path) RefString() string {
	return FormatRefs(p.Refs)
}

// FormatRefs renders refs as a comma-separated list of signed segment ids.
func FormatRefs(refs []StrandedRef) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// ParseRefs parses GFA path notation ("1+,4-") into untrimmed refs.
func ParseRefs(s string) ([]StrandedRef, error) {
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	refs := make([]StrandedRef, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			return nil, fmt.Errorf("graph: bad path element %q", f)
		}
		strand, err := seqstore.ParseStrand(f[len(f)-1:])
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(f[:len(f)-1])
		if err != nil {
			return nil, fmt.Errorf("graph: bad segment id %q: %w", f, err)
		}
		refs = append(refs, StrandedRef{Segment: seqstore.SegmentID(n), Strand: strand})
	}
	return refs, nil
}

// --- Graph model ---

// Endpoint is a segment on a specific strand. It is the equality key for
// graph traversal: the same segment on opposite strands is a different
// endpoint with the same content.
type Endpoint struct {
	Segment seqstore.SegmentID `json:"segment"`
	Strand  seqstore.Strand    `json:"strand"`
}

// Reverse returns the endpoint on the opposite strand.
func (e Endpoint) Reverse() Endpoint {
	return Endpoint{Segment: e.Segment, Strand: e.Strand.Flip()}
}

// Ref converts the endpoint to an untrimmed StrandedRef.
func (e Endpoint) Ref() StrandedRef {
	return StrandedRef{Segment: e.Segment, Strand: e.Strand}
}

func (e Endpoint) String() string {
	return strconv.Itoa(int(e.Segment)) + e.Strand.String()
}

func (e Endpoint) less(o Endpoint) bool {
	if e.Segment != o.Segment {
		return e.Segment < o.Segment
	}
	return e.Strand == seqstore.Forward && o.Strand == seqstore.Reverse
}

// Traversal records one visit of a path to a node.
type Traversal struct {
	Path     PathID          `json:"path"`
	Position int             `json:"position"`
	Strand   seqstore.Strand `json:"strand"`
}

// Node is a segment together with every path visit recorded on it.
type Node struct {
	Segment    seqstore.SegmentID `json:"segment"`
	Length     int                `json:"length"`
	Traversals []Traversal        `json:"traversals"`
	// Depth is the number of distinct paths traversing the node.
	Depth int `json:"depth"`
	// Assemblies lists the distinct source assemblies, sorted.
	Assemblies []string `json:"assemblies"`
}

// EdgeKey is the strand-canonical identity of an adjacency: a->b and
// rev(b)->rev(a) describe the same edge and share one key.
type EdgeKey struct {
	From Endpoint
	To   Endpoint
}

// CanonicalEdge returns the key for the adjacency from -> to.
func CanonicalEdge(from, to Endpoint) EdgeKey {
	fwd := EdgeKey{From: from, To: to}
	rev := EdgeKey{From: to.Reverse(), To: from.Reverse()}
	if rev.less(fwd) {
		return rev
	}
	return fwd
}

func (k EdgeKey) less(o EdgeKey) bool {
	if k.From != o.From {
		return k.From.less(o.From)
	}
	return k.To.less(o.To)
}

// Edge is an observed adjacency with the set of paths that contain it.
type Edge struct {
	From  Endpoint `json:"from"`
	To    Endpoint `json:"to"`
	Paths []PathID `json:"paths"`
	// Assemblies lists the distinct source assemblies supporting the edge.
	Assemblies []string `json:"assemblies"`
}

// Key returns the canonical key of the edge.
func (e Edge) Key() EdgeKey {
	return EdgeKey{From: e.From, To: e.To}
}

// --- Cluster model ---

// Cluster is a connected group of nodes hypothesised to be one replicon.
type Cluster struct {
	ID       int                  `json:"id" yaml:"id"`
	Segments []seqstore.SegmentID `json:"segments" yaml:"segments"`
	// Paths lists every path with at least one traversal in the cluster.
	Paths []PathID `json:"paths" yaml:"paths"`
	// Assemblies lists the source assemblies with a path in the cluster.
	Assemblies      []string `json:"assemblies" yaml:"assemblies"`
	TotalAssemblies int      `json:"totalAssemblies" yaml:"totalAssemblies"`
	UniqueLength    int      `json:"uniqueLength" yaml:"uniqueLength"`
	// TotalCoverage is the sum over nodes of length times depth.
	TotalCoverage   int     `json:"totalCoverage" yaml:"totalCoverage"`
	MeanDepth       float64 `json:"meanDepth" yaml:"meanDepth"`
	EstimatedLength int     `json:"estimatedLength" yaml:"estimatedLength"`
	CopyNumber      float64 `json:"copyNumber" yaml:"copyNumber"`
	Role            Role    `json:"role" yaml:"role"`
	// Loop is true when the cluster forms a single unbranched circle.
	Loop          bool   `json:"loop" yaml:"loop"`
	LowConfidence bool   `json:"lowConfidence" yaml:"lowConfidence"`
	Reason        string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Coverage renders the assembly coverage annotation, e.g. "2/3".
func (c Cluster) Coverage() string {
	return fmt.Sprintf("%d/%d", len(c.Assemblies), c.TotalAssemblies)
}

// ReducedCoverage reports whether some input assemblies lack a path through
// the cluster.
func (c Cluster) ReducedCoverage() bool {
	return len(c.Assemblies) < c.TotalAssemblies
}

// --- Persisted records ---

// SegmentRecord is the stored form of a node.
type SegmentRecord struct {
	ID         int    `json:"id"`
	Length     int    `json:"length"`
	Depth      int    `json:"depth"`
	Assemblies int    `json:"assemblies"`
	Sequence   string `json:"sequence,omitempty"`
}

// PathRecord is the stored form of a path.
type PathRecord struct {
	ID       int    `json:"id"`
	Assembly string `json:"assembly"`
	Name     string `json:"name"`
	Circular bool   `json:"circular"`
	Length   int    `json:"length"`
	Refs     string `json:"refs"` // GFA path notation
}

// ClusterRecord is the stored form of a cluster.
type ClusterRecord struct {
	ID            int     `json:"id"`
	Role          Role    `json:"role"`
	UniqueLength  int     `json:"uniqueLength"`
	MeanDepth     float64 `json:"meanDepth"`
	CopyNumber    float64 `json:"copyNumber"`
	Loop          bool    `json:"loop"`
	LowConfidence bool    `json:"lowConfidence"`
	Coverage      string  `json:"coverage"`
	Members       []int   `json:"members"` // segment ids
}

// LinkRecord is a stored adjacency between two segments.
type LinkRecord struct {
	From       int    `json:"from"`
	FromStrand string `json:"fromStrand"`
	To         int    `json:"to"`
	ToStrand   string `json:"toStrand"`
	Support    int    `json:"support"` // paths
	Assemblies int    `json:"assemblies"`
}

// TraversalRecord is a stored path visit to a segment.
type TraversalRecord struct {
	Path     int    `json:"path"`
	Segment  int    `json:"segment"`
	Position int    `json:"position"`
	Strand   string `json:"strand"`
}

// GraphStats summarizes a stored graph.
type GraphStats struct {
	SegmentCount   int `json:"segmentCount"`
	PathCount      int `json:"pathCount"`
	ClusterCount   int `json:"clusterCount"`
	LinkCount      int `json:"linkCount"`
	TraversalCount int `json:"traversalCount"`
	TotalLength    int `json:"totalLength"`
}

// NeighborChain is an ordered walk of segment ids away from a start segment.
type NeighborChain struct {
	Segments []int `json:"segments"`
	Depth    int   `json:"depth"`
}
