package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/dusk-indust/reconcile/internal/align"
	"github.com/dusk-indust/reconcile/internal/emit"
	"github.com/dusk-indust/reconcile/internal/gfa"
	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/resolve"
	"github.com/dusk-indust/reconcile/internal/seqstore"
	"github.com/google/uuid"
)

// Compile-time interface check.
var _ Orchestrator = (*Pipeline)(nil)

// Pipeline runs ingest, build, cluster, resolve and emit in order. Stages
// before resolve are single-threaded; clusters resolve in parallel through a
// FanOut.
type Pipeline struct {
	cfg      Config
	store    graph.Store
	progress *ProgressReporter
}

// NewPipeline creates a Pipeline that snapshots each run's graph into store.
// A nil store selects a fresh in-memory store per run. The caller owns store
// and closes it.
func NewPipeline(cfg Config, store graph.Store) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    store,
		progress: NewProgressReporter(),
	}
}

// Progress returns a channel that emits progress events.
func (p *Pipeline) Progress() <-chan ProgressEvent {
	return p.progress.Subscribe()
}

// Dropped returns how many progress events a slow consumer missed.
func (p *Pipeline) Dropped() int64 {
	return p.progress.Dropped()
}

// Close shuts down the progress reporter. Callers should invoke this when the
// pipeline is no longer needed.
func (p *Pipeline) Close() {
	p.progress.Close()
}

// Input is a set of interned paths ready to reconcile.
type Input struct {
	Seqs  *seqstore.Store
	Paths []graph.Path
	// Rejected lists paths that failed during ingestion; their assemblies
	// are dropped.
	Rejected []*graph.InputError
}

// Ingest reads GFA files into one Input sharing a single sequence store.
func Ingest(inputs []string, onProgress func(ProgressEvent)) (Input, error) {
	notify := func(section string, status ProgressStatus, msg string) {
		if onProgress != nil {
			onProgress(ProgressEvent{Stage: StageIngest, Section: section, Status: status, Message: msg})
		}
	}
	in := Input{Seqs: seqstore.New()}
	for _, name := range inputs {
		notify(name, ProgressWorking, "")
		doc, err := gfa.ReadFile(name, in.Seqs)
		if err != nil {
			notify(name, ProgressFailed, err.Error())
			return Input{}, fmt.Errorf("pipeline: ingest: %w", err)
		}
		notify(name, ProgressComplete, fmt.Sprintf("%d paths", len(doc.Paths)))
		in.Paths = append(in.Paths, doc.Paths...)
		in.Rejected = append(in.Rejected, doc.Rejected...)
	}
	return in, nil
}

// Run reads every input GFA file and reconciles their paths. A file that
// cannot be parsed fails the run; a path stepping through an unknown
// segment only drops its assembly.
func (p *Pipeline) Run(ctx context.Context, inputs []string) (*Report, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	in, err := Ingest(inputs, p.progress.Emit)
	if err != nil {
		return nil, err
	}
	rep, err := p.Reconcile(ctx, in)
	if rep != nil {
		rep.Inputs = inputs
	}
	return rep, err
}

// Reconcile runs every stage after ingestion. Only an invariant violation,
// cancellation or an output write failure returns an error; every other
// problem becomes an Issue on the report.
func (p *Pipeline) Reconcile(ctx context.Context, in Input) (*Report, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	rep := &Report{
		RunID:   uuid.NewString(),
		Started: time.Now().UTC(),
		Config:  p.cfg,
	}

	// Build.
	p.stageEvent(StageBuild, "graph", ProgressWorking, "")
	b := graph.NewBuilder(in.Seqs)
	b.AddAll(in.Paths)
	for _, r := range in.Rejected {
		b.Reject(r)
	}
	g, dropped := b.Build()
	for _, d := range dropped {
		rep.Issues = append(rep.Issues, Issue{
			Kind:     IssueMalformedInput,
			Assembly: d.Assembly,
			Path:     d.Path,
			Message:  d.Error(),
		})
		rep.Dropped = appendUnique(rep.Dropped, d.Assembly)
	}
	if err := g.Validate(); err != nil {
		p.stageEvent(StageBuild, "graph", ProgressFailed, err.Error())
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	rep.Graph = g
	rep.Assemblies = g.Assemblies()
	p.stageEvent(StageBuild, "graph", ProgressComplete,
		fmt.Sprintf("%d segments, %d paths", g.NodeCount(), len(g.Paths())))

	// Cluster.
	p.stageEvent(StageCluster, "components", ProgressWorking, "")
	clusters := graph.ComputeClusters(g, p.cfg.clusterOptions())
	var eligible []graph.Cluster
	for _, c := range clusters {
		if c.LowConfidence {
			log.Printf("WARNING: cluster %d excluded: %s", c.ID, c.Reason)
			rep.Issues = append(rep.Issues, Issue{
				Kind:    IssueInsufficientCoverage,
				Cluster: c.ID,
				Message: fmt.Sprintf("%v: %s", graph.ErrInsufficientCoverage, c.Reason),
			})
			continue
		}
		eligible = append(eligible, c)
	}
	for _, is := range CheckCoherence(g, clusters) {
		log.Printf("WARNING: cluster %d: %s", is.Cluster, is.Message)
		rep.Issues = append(rep.Issues, is)
	}
	if err := p.persist(ctx, g, clusters, rep); err != nil {
		return nil, err
	}
	p.stageEvent(StageCluster, "components", ProgressComplete,
		fmt.Sprintf("%d clusters, %d eligible", len(clusters), len(eligible)))

	// Resolve.
	resolver := resolve.New(g, align.NewNW(p.cfg.MaxAlignLength), p.cfg.resolveOptions())
	fo := NewFanOut(resolver, p.cfg.Threads, p.progress.Emit)
	fo.verbose = p.cfg.Verbose
	results, err := fo.Run(ctx, eligible)
	if err != nil {
		return nil, fmt.Errorf("pipeline: resolve: %w", err)
	}
	rep.Results = results

	// Emit.
	p.stageEvent(StageEmit, "consensus", ProgressWorking, "")
	byID := make(map[int]ClusterResult, len(results))
	for _, r := range results {
		byID[r.Cluster.ID] = r
	}
	for _, c := range clusters {
		summary := newClusterSummary(c)
		r, ok := byID[c.ID]
		switch {
		case !ok:
			summary.Confidence = resolve.ConfidenceExcluded
		case r.Err != nil:
			summary.Confidence = resolve.ConfidenceFailed
			summary.Reason = r.Err.Error()
			rep.Issues = append(rep.Issues, failureIssue(c.ID, r.Err))
			log.Printf("WARNING: cluster %d failed: %v", c.ID, r.Err)
		default:
			rec, err := emit.Render(in.Seqs, r.Result)
			if err != nil {
				summary.Confidence = resolve.ConfidenceFailed
				summary.Reason = err.Error()
				rep.Issues = append(rep.Issues, failureIssue(c.ID, err))
				log.Printf("WARNING: cluster %d failed: %v", c.ID, err)
				break
			}
			summary.fill(r.Result, rec)
			rep.Records = append(rep.Records, rec)
			for _, bub := range r.Result.Unresolved() {
				log.Printf("WARNING: %v", bub.Err())
				rep.Unresolved = append(rep.Unresolved, bub)
				rep.Issues = append(rep.Issues, Issue{
					Kind:    IssueUnresolvedBubble,
					Cluster: c.ID,
					Message: bub.Err().Error(),
				})
			}
			if skipped := r.Result.Skipped; len(skipped) > 0 {
				msg := "segments left out of the consensus: " + formatSegmentIDs(skipped)
				log.Printf("WARNING: cluster %d: %s", c.ID, msg)
				rep.Issues = append(rep.Issues, Issue{Kind: IssueSkippedSegments, Cluster: c.ID, Message: msg})
			}
		}
		rep.Clusters = append(rep.Clusters, summary)
	}
	emit.SortRecords(rep.Records)
	p.stageEvent(StageEmit, "consensus", ProgressComplete, fmt.Sprintf("%d replicons", len(rep.Records)))

	rep.Finished = time.Now().UTC()
	if p.cfg.OutputDir != "" {
		if err := WriteOutputs(p.cfg.OutputDir, rep); err != nil {
			return rep, fmt.Errorf("pipeline: write outputs: %w", err)
		}
	}
	return rep, nil
}

// persist snapshots the graph into the configured store and reads its stats
// back for the report.
func (p *Pipeline) persist(ctx context.Context, g *graph.Graph, clusters []graph.Cluster, rep *Report) error {
	store := p.store
	if store == nil {
		mem := graph.NewMemStore()
		defer mem.Close()
		store = mem
	}
	if err := graph.Persist(ctx, store, g, clusters, false); err != nil {
		return fmt.Errorf("pipeline: persist graph: %w", err)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: graph stats: %w", err)
	}
	rep.Stats = *stats
	return nil
}

func (p *Pipeline) stageEvent(stage Stage, section string, status ProgressStatus, msg string) {
	p.progress.Emit(ProgressEvent{Stage: stage, Section: section, Status: status, Message: msg})
}

func failureIssue(cluster int, err error) Issue {
	kind := IssueResolveFailed
	if errors.Is(err, resolve.ErrNoBackbone) {
		kind = IssueNoBackbone
	}
	return Issue{Kind: kind, Cluster: cluster, Message: err.Error()}
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func formatSegmentIDs(ids []seqstore.SegmentID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, ", ")
}
