package graph

import (
	"context"
	"fmt"
)

// Persist writes a snapshot of g and its clusters into store. Segment
// sequences are copied only when withSequences is set.
func Persist(ctx context.Context, store Store, g *Graph, clusters []Cluster, withSequences bool) error {
	if err := store.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	for _, n := range g.Nodes() {
		rec := SegmentRecord{
			ID:         int(n.Segment),
			Length:     n.Length,
			Depth:      n.Depth,
			Assemblies: len(n.Assemblies),
		}
		if withSequences {
			seq, err := g.Seqs().Fetch(n.Segment)
			if err != nil {
				return err
			}
			rec.Sequence = string(seq)
		}
		if err := store.AddSegment(ctx, rec); err != nil {
			return fmt.Errorf("add segment %d: %w", n.Segment, err)
		}
	}

	for _, p := range g.Paths() {
		rec := PathRecord{
			ID:       int(p.ID),
			Assembly: p.Assembly,
			Name:     p.Name,
			Circular: p.Circular,
			Length:   g.SpellLength(p.Refs),
			Refs:     p.RefString(),
		}
		if err := store.AddPath(ctx, rec); err != nil {
			return fmt.Errorf("add path %d: %w", p.ID, err)
		}
		for i, r := range p.Refs {
			t := TraversalRecord{Path: int(p.ID), Segment: int(r.Segment), Position: i, Strand: r.Strand.String()}
			if err := store.AddTraversal(ctx, t); err != nil {
				return fmt.Errorf("add traversal %d/%d: %w", p.ID, i, err)
			}
		}
	}

	for _, e := range g.Edges() {
		rec := LinkRecord{
			From:       int(e.From.Segment),
			FromStrand: e.From.Strand.String(),
			To:         int(e.To.Segment),
			ToStrand:   e.To.Strand.String(),
			Support:    len(e.Paths),
			Assemblies: len(e.Assemblies),
		}
		if err := store.AddLink(ctx, rec); err != nil {
			return fmt.Errorf("add link %s->%s: %w", e.From, e.To, err)
		}
	}

	for _, c := range clusters {
		if err := store.AddCluster(ctx, ClusterToRecord(c)); err != nil {
			return fmt.Errorf("add cluster %d: %w", c.ID, err)
		}
	}
	return nil
}

// ClusterToRecord converts a cluster to its stored form.
func ClusterToRecord(c Cluster) ClusterRecord {
	members := make([]int, len(c.Segments))
	for i, s := range c.Segments {
		members[i] = int(s)
	}
	return ClusterRecord{
		ID:            c.ID,
		Role:          c.Role,
		UniqueLength:  c.UniqueLength,
		MeanDepth:     c.MeanDepth,
		CopyNumber:    c.CopyNumber,
		Loop:          c.Loop,
		LowConfidence: c.LowConfidence,
		Coverage:      c.Coverage(),
		Members:       members,
	}
}
