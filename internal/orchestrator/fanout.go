package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/resolve"
	"golang.org/x/sync/errgroup"
)

// ClusterResolver resolves one cluster. *resolve.Resolver implements it.
type ClusterResolver interface {
	Resolve(ctx context.Context, c graph.Cluster) (*resolve.Result, error)
}

// ClusterResult holds the outcome of resolving one cluster.
type ClusterResult struct {
	Cluster graph.Cluster

	// Result is nil when Err is set.
	Result *resolve.Result

	// Err is the per-cluster failure, such as resolve.ErrNoBackbone.
	Err error
}

// FanOut resolves clusters in parallel. Clusters share no mutable state, so
// each worker gets the read-only graph through the resolver and writes only
// its own slot of the result slice.
type FanOut struct {
	resolver   ClusterResolver
	limit      int
	verbose    bool
	onProgress func(ProgressEvent)
}

// NewFanOut creates a FanOut running at most limit resolutions at once.
// onProgress is called synchronously from each goroutine; it may be nil.
func NewFanOut(resolver ClusterResolver, limit int, onProgress func(ProgressEvent)) *FanOut {
	return &FanOut{
		resolver:   resolver,
		limit:      max(limit, 1),
		onProgress: onProgress,
	}
}

// Run resolves every cluster and returns one result per cluster in input
// order. A failing cluster is recorded in its result and does not stop the
// others. Only cancellation aborts the run: the errgroup context is then
// canceled and clusters not yet started return the context error.
func (f *FanOut) Run(ctx context.Context, clusters []graph.Cluster) ([]ClusterResult, error) {
	results := make([]ClusterResult, len(clusters))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.limit)

	for i, c := range clusters {
		section := clusterSection(c.ID)
		f.emit(ProgressEvent{
			Stage:   StageResolve,
			Section: section,
			Status:  ProgressPending,
		})

		g.Go(func() error {
			f.emit(ProgressEvent{
				Stage:   StageResolve,
				Section: section,
				Status:  ProgressWorking,
			})

			res, err := f.resolver.Resolve(gctx, c)
			results[i] = ClusterResult{Cluster: c, Result: res, Err: err}
			if err != nil {
				f.emit(ProgressEvent{
					Stage:   StageResolve,
					Section: section,
					Status:  ProgressFailed,
					Message: err.Error(),
				})
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				return nil
			}

			if f.verbose {
				logBubbles(res)
			}
			f.emit(ProgressEvent{
				Stage:   StageResolve,
				Section: section,
				Status:  ProgressComplete,
				Message: summarize(res),
			})
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// emit sends a progress event if a callback is registered.
func (f *FanOut) emit(ev ProgressEvent) {
	if f.onProgress != nil {
		f.onProgress(ev)
	}
}

func clusterSection(id int) string {
	return fmt.Sprintf("cluster %d", id)
}

func summarize(res *resolve.Result) string {
	return fmt.Sprintf("%d segments, %d bubbles, %s", len(res.Consensus.Refs), len(res.Bubbles), res.Confidence)
}

func logBubbles(res *resolve.Result) {
	for _, b := range res.Bubbles {
		if !b.Resolved {
			continue
		}
		chosen, _ := b.Chosen()
		log.Printf("cluster %d: bubble %s..%s chose [%s] over %d alternatives, assemblies %v",
			b.Cluster, b.Entry, b.Exit, graph.FormatRefs(chosen.Refs),
			len(b.Alternatives)-1, chosen.Assemblies)
	}
}
