package orchestrator

import (
	"fmt"
	"runtime"

	"github.com/dusk-indust/reconcile/internal/align"
	"github.com/dusk-indust/reconcile/internal/config"
	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/resolve"
)

// Config holds runtime configuration for a reconciliation run.
type Config struct {
	// Threads bounds how many clusters resolve at once.
	Threads int `json:"threads,omitempty" yaml:"threads,omitempty"`

	// MinClusterLength is the unique length below which a cluster is
	// excluded from consensus.
	MinClusterLength int `json:"minClusterLength,omitempty" yaml:"minClusterLength,omitempty"`

	// MinClusterDepth is the mean path depth below which a cluster is
	// excluded from consensus.
	MinClusterDepth float64 `json:"minClusterDepth,omitempty" yaml:"minClusterDepth,omitempty"`

	// MinLinkSupport is the fraction of the shallower endpoint's depth an
	// edge needs to join two nodes into one cluster. 0 keeps every edge.
	MinLinkSupport float64 `json:"minLinkSupport,omitempty" yaml:"minLinkSupport,omitempty"`

	// ChromosomeFraction labels clusters holding at least this fraction of
	// the largest cluster's coverage as chromosomes.
	ChromosomeFraction float64 `json:"chromosomeFraction,omitempty" yaml:"chromosomeFraction,omitempty"`

	// MaxBubbleDepth bounds the re-convergence search, in segments.
	MaxBubbleDepth int `json:"maxBubbleDepth,omitempty" yaml:"maxBubbleDepth,omitempty"`

	// MaxAlignLength is the longest sequence aligned exactly; longer bubble
	// branches fall back to a length-ratio identity.
	MaxAlignLength int `json:"maxAlignLength,omitempty" yaml:"maxAlignLength,omitempty"`

	// AssemblyPriority breaks backbone ties; earlier assemblies win.
	AssemblyPriority []string `json:"assemblyPriority,omitempty" yaml:"assemblyPriority,omitempty"`

	// TieBreak orders depth and identity when bubble assembly counts tie.
	TieBreak resolve.TieBreak `json:"tieBreak,omitempty" yaml:"tieBreak,omitempty"`

	// OutputDir receives the consensus and report files. Empty skips
	// writing.
	OutputDir string `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`

	// GraphDB is the Kuzu database directory the graph is persisted to.
	// Empty keeps the graph in memory only.
	GraphDB string `json:"graphDB,omitempty" yaml:"graphDB,omitempty"`

	// Quiet suppresses progress output.
	Quiet bool `json:"quiet,omitempty" yaml:"quiet,omitempty"`

	// Verbose logs every bubble decision.
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	co := graph.DefaultClusterOptions()
	return Config{
		Threads:            runtime.GOMAXPROCS(0),
		MinClusterLength:   co.MinLength,
		MinClusterDepth:    co.MinDepth,
		MinLinkSupport:     co.MinLinkSupport,
		ChromosomeFraction: co.ChromosomeFraction,
		MaxBubbleDepth:     resolve.DefaultMaxBubbleDepth,
		MaxAlignLength:     align.DefaultMaxLength,
		TieBreak:           resolve.TieBreakDepthFirst,
	}
}

// Merge overlays the non-zero settings of a project config file.
func (c Config) Merge(pc *config.ProjectConfig) (Config, error) {
	if pc == nil {
		return c, nil
	}
	if pc.OutputDir != "" {
		c.OutputDir = pc.OutputDir
	}
	if pc.GraphDB != "" {
		c.GraphDB = pc.GraphDB
	}
	if pc.Threads > 0 {
		c.Threads = pc.Threads
	}
	if pc.MinClusterLength > 0 {
		c.MinClusterLength = pc.MinClusterLength
	}
	if pc.MinClusterDepth > 0 {
		c.MinClusterDepth = pc.MinClusterDepth
	}
	if pc.MinLinkSupport > 0 {
		c.MinLinkSupport = pc.MinLinkSupport
	}
	if pc.ChromosomeFraction > 0 {
		c.ChromosomeFraction = pc.ChromosomeFraction
	}
	if pc.MaxBubbleDepth > 0 {
		c.MaxBubbleDepth = pc.MaxBubbleDepth
	}
	if pc.MaxAlignLength > 0 {
		c.MaxAlignLength = pc.MaxAlignLength
	}
	if len(pc.AssemblyPriority) > 0 {
		c.AssemblyPriority = pc.AssemblyPriority
	}
	if pc.TieBreak != "" {
		tb, err := resolve.ParseTieBreak(pc.TieBreak)
		if err != nil {
			return c, err
		}
		c.TieBreak = tb
	}
	c.Verbose = c.Verbose || pc.Verbose
	c.Quiet = c.Quiet || pc.Quiet
	return c, nil
}

// Validate rejects settings no run can use.
func (c Config) Validate() error {
	switch {
	case c.Threads < 1:
		return fmt.Errorf("orchestrator: threads must be at least 1, got %d", c.Threads)
	case c.MaxBubbleDepth < 1:
		return fmt.Errorf("orchestrator: max bubble depth must be at least 1, got %d", c.MaxBubbleDepth)
	case c.MinLinkSupport < 0 || c.MinLinkSupport > 1:
		return fmt.Errorf("orchestrator: min link support must be in [0,1], got %g", c.MinLinkSupport)
	case c.ChromosomeFraction < 0 || c.ChromosomeFraction > 1:
		return fmt.Errorf("orchestrator: chromosome fraction must be in [0,1], got %g", c.ChromosomeFraction)
	}
	if _, err := resolve.ParseTieBreak(string(c.TieBreak)); err != nil {
		return err
	}
	return nil
}

func (c Config) clusterOptions() graph.ClusterOptions {
	return graph.ClusterOptions{
		MinLength:          c.MinClusterLength,
		MinDepth:           c.MinClusterDepth,
		MinLinkSupport:     c.MinLinkSupport,
		ChromosomeFraction: c.ChromosomeFraction,
	}
}

func (c Config) resolveOptions() resolve.Options {
	return resolve.Options{
		MaxBubbleDepth:   c.MaxBubbleDepth,
		AssemblyPriority: c.AssemblyPriority,
		TieBreak:         c.TieBreak,
	}
}
