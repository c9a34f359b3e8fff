// Package resolve turns each replicon cluster into one consensus path by
// walking a backbone path and voting on every bubble where the inputs
// disagree.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/dusk-indust/reconcile/internal/align"
	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/seqstore"
)

var (
	ErrNoBackbone       = errors.New("resolve: no backbone path spans the cluster")
	ErrUnresolvedBubble = errors.New("resolve: bubble did not reconverge")
)

// TieBreak selects which secondary key ranks bubble alternatives first once
// their assembly counts tie.
type TieBreak string

const (
	// TieBreakDepthFirst ranks by (assemblies, path depth, identity).
	TieBreakDepthFirst TieBreak = "depth-first"
	// TieBreakIdentityFirst ranks by (assemblies, identity, path depth).
	TieBreakIdentityFirst TieBreak = "identity-first"
)

// ParseTieBreak validates a configured tie-break name. Empty selects
// TieBreakDepthFirst.
func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(s) {
	case "", TieBreakDepthFirst:
		return TieBreakDepthFirst, nil
	case TieBreakIdentityFirst:
		return TieBreakIdentityFirst, nil
	default:
		return "", fmt.Errorf("resolve: unknown tie-break order %q", s)
	}
}

// Confidence summarises how trustworthy a cluster's consensus is.
type Confidence string

const (
	ConfidenceHigh       Confidence = "high"
	ConfidenceDowngraded Confidence = "downgraded"
	ConfidenceFailed     Confidence = "failed"
	ConfidenceExcluded   Confidence = "excluded"
)

// Options tunes the resolver.
type Options struct {
	// MaxBubbleDepth is the most segments any branch may walk from a bubble
	// entry before it must rejoin the backbone.
	MaxBubbleDepth int

	// AssemblyPriority breaks backbone ties: earlier assemblies win.
	AssemblyPriority []string

	// TieBreak orders the secondary bubble scoring keys.
	TieBreak TieBreak
}

// DefaultMaxBubbleDepth is used when Options.MaxBubbleDepth is unset.
const DefaultMaxBubbleDepth = 64

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxBubbleDepth: DefaultMaxBubbleDepth,
		TieBreak:       TieBreakDepthFirst,
	}
}

// Alternative is one sub-path through a bubble, strictly between its entry
// and exit.
type Alternative struct {
	Refs       []graph.StrandedRef `json:"refs" yaml:"refs"`
	Paths      []graph.PathID      `json:"paths" yaml:"paths"`
	Assemblies []string            `json:"assemblies" yaml:"assemblies"`
	// Depth is the number of input paths taking this alternative.
	Depth int `json:"depth" yaml:"depth"`
	// Identity is measured against the backbone's own alternative.
	Identity float64 `json:"identity" yaml:"identity"`
	Backbone bool    `json:"backbone" yaml:"backbone"`
	Chosen   bool    `json:"chosen" yaml:"chosen"`
}

// Bubble is a region where the paths through a cluster disagree.
type Bubble struct {
	Cluster int            `json:"cluster" yaml:"cluster"`
	Entry   graph.Endpoint `json:"entry" yaml:"entry"`
	// Exit is meaningful only when Resolved is set.
	Exit         graph.Endpoint `json:"exit" yaml:"exit"`
	Resolved     bool           `json:"resolved" yaml:"resolved"`
	SearchDepth  int            `json:"searchDepth" yaml:"searchDepth"`
	Alternatives []Alternative  `json:"alternatives" yaml:"alternatives"`
	Reason       string         `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Chosen returns the selected alternative.
func (b Bubble) Chosen() (Alternative, bool) {
	for _, a := range b.Alternatives {
		if a.Chosen {
			return a, true
		}
	}
	return Alternative{}, false
}

// Err returns nil for a resolved bubble and an error wrapping
// ErrUnresolvedBubble otherwise.
func (b Bubble) Err() error {
	if b.Resolved {
		return nil
	}
	return fmt.Errorf("%w: cluster %d at %s: %s", ErrUnresolvedBubble, b.Cluster, b.Entry, b.Reason)
}

// ConsensusPath is the chosen traversal of one cluster.
type ConsensusPath struct {
	Cluster  int                 `json:"cluster" yaml:"cluster"`
	Circular bool                `json:"circular" yaml:"circular"`
	Refs     []graph.StrandedRef `json:"refs" yaml:"refs"`
	// Support holds, per ref, the number of assemblies agreeing there.
	Support []int `json:"support" yaml:"support"`
	// Identity is each spanning assembly's mean identity to the consensus.
	Identity map[string]float64 `json:"identity" yaml:"identity"`
	// Assemblies lists the assemblies with a path in the cluster.
	Assemblies []string `json:"assemblies" yaml:"assemblies"`
}

// Result is the resolver's output for one cluster.
type Result struct {
	Cluster   graph.Cluster `json:"cluster"`
	Backbone  graph.Path    `json:"backbone"`
	Consensus ConsensusPath `json:"consensus"`
	Bubbles   []Bubble      `json:"bubbles"`
	// Skipped lists cluster segments the consensus leaves out without a
	// bubble that accounts for them.
	Skipped    []seqstore.SegmentID `json:"skipped,omitempty"`
	Confidence Confidence           `json:"confidence"`
}

// Unresolved returns the bubbles that never reconverged.
func (r *Result) Unresolved() []Bubble {
	var out []Bubble
	for _, b := range r.Bubbles {
		if !b.Resolved {
			out = append(out, b)
		}
	}
	return out
}

// Resolver builds consensus paths over a read-only graph. One Resolver may
// serve many goroutines as long as its Aligner is safe for concurrent use.
type Resolver struct {
	g       *graph.Graph
	aligner align.Aligner
	opts    Options
}

// New returns a Resolver. Zero-valued options fall back to defaults.
func New(g *graph.Graph, aligner align.Aligner, opts Options) *Resolver {
	if opts.MaxBubbleDepth <= 0 {
		opts.MaxBubbleDepth = DefaultMaxBubbleDepth
	}
	if opts.TieBreak == "" {
		opts.TieBreak = TieBreakDepthFirst
	}
	return &Resolver{g: g, aligner: aligner, opts: opts}
}

// Resolve builds the consensus path of one cluster. Cancellation is checked
// once on entry; a resolution that has started runs to completion.
//
// ErrNoBackbone is returned when no path spans the cluster. Unresolved
// bubbles and skipped segments are not errors: they are reported on the
// result and downgrade its confidence.
func (r *Resolver) Resolve(ctx context.Context, c graph.Cluster) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	backbone, err := r.selectBackbone(c)
	if err != nil {
		return nil, err
	}

	w := newWalk(r, c, backbone)
	if err := w.run(); err != nil {
		return nil, fmt.Errorf("resolve cluster %d: %w", c.ID, err)
	}

	res := &Result{
		Cluster:    c,
		Backbone:   backbone,
		Bubbles:    w.bubbles,
		Skipped:    w.skipped(),
		Confidence: ConfidenceHigh,
		Consensus: ConsensusPath{
			Cluster:    c.ID,
			Circular:   backbone.Circular,
			Refs:       w.refs,
			Support:    w.support,
			Identity:   w.identities(),
			Assemblies: c.Assemblies,
		},
	}
	if len(res.Unresolved()) > 0 || len(res.Skipped) > 0 {
		res.Confidence = ConfidenceDowngraded
	}
	return res, nil
}
