// Package emit renders resolved consensus paths into sequences with
// per-base support and writes them out.
package emit

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/resolve"
	"github.com/dusk-indust/reconcile/internal/seqstore"
)

// ErrEmptyConsensus is returned when a consensus path spells no bases.
var ErrEmptyConsensus = errors.New("emit: consensus path is empty")

// Record is one rendered replicon.
type Record struct {
	Cluster    graph.Cluster      `json:"cluster" yaml:"cluster"`
	Name       string             `json:"name" yaml:"name"`
	Circular   bool               `json:"circular" yaml:"circular"`
	Confidence resolve.Confidence `json:"confidence" yaml:"confidence"`
	Sequence   []byte             `json:"-" yaml:"-"`
	// Support holds one assembly count per base of Sequence.
	Support []int `json:"-" yaml:"-"`
	// Identity is each spanning assembly's mean identity to Sequence.
	Identity map[string]float64 `json:"identity" yaml:"identity"`
	Path     string             `json:"path" yaml:"path"`
}

// Length returns the number of bases in the record.
func (r Record) Length() int { return len(r.Sequence) }

// MeanSupport returns the average per-base support.
func (r Record) MeanSupport() float64 {
	if len(r.Support) == 0 {
		return 0
	}
	total := 0
	for _, s := range r.Support {
		total += s
	}
	return float64(total) / float64(len(r.Support))
}

// MinSupport returns the lowest per-base support.
func (r Record) MinSupport() int {
	if len(r.Support) == 0 {
		return 0
	}
	low := r.Support[0]
	for _, s := range r.Support[1:] {
		low = min(low, s)
	}
	return low
}

// Header returns the FASTA description line without the leading '>'.
func (r Record) Header() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s length=%d", r.Name, r.Length())
	if r.Circular {
		b.WriteString(" circular=true")
	}
	fmt.Fprintf(&b, " coverage=%s confidence=%s", r.Cluster.Coverage(), r.Confidence)
	return b.String()
}

// RecordName is the sequence name used for a cluster's consensus.
func RecordName(cluster int) string {
	return fmt.Sprintf("cluster_%d", cluster)
}

// Render spells a resolver result from the sequence store. It has no side
// effects and the same inputs always give the same record.
func Render(seqs *seqstore.Store, res *resolve.Result) (Record, error) {
	cp := res.Consensus
	if len(cp.Support) != len(cp.Refs) {
		return Record{}, fmt.Errorf("emit: cluster %d: %d support values for %d refs",
			cp.Cluster, len(cp.Support), len(cp.Refs))
	}

	var sequence []byte
	var support []int
	for i, ref := range cp.Refs {
		part, err := seqs.Oriented(ref.Segment, ref.Strand, ref.TrimStart, ref.TrimEnd)
		if err != nil {
			return Record{}, fmt.Errorf("emit: cluster %d: %w", cp.Cluster, err)
		}
		sequence = append(sequence, part...)
		for range part {
			support = append(support, cp.Support[i])
		}
	}
	if len(sequence) == 0 {
		return Record{}, fmt.Errorf("%w: cluster %d", ErrEmptyConsensus, cp.Cluster)
	}

	identity := make(map[string]float64, len(cp.Identity))
	for k, v := range cp.Identity {
		identity[k] = v
	}

	return Record{
		Cluster:    res.Cluster,
		Name:       RecordName(cp.Cluster),
		Circular:   cp.Circular,
		Confidence: res.Confidence,
		Sequence:   sequence,
		Support:    support,
		Identity:   identity,
		Path:       graph.FormatRefs(cp.Refs),
	}, nil
}

// SortRecords orders records by cluster id.
func SortRecords(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Cluster.ID < recs[j].Cluster.ID })
}
