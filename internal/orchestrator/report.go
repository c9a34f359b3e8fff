package orchestrator

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dusk-indust/reconcile/internal/emit"
	"github.com/dusk-indust/reconcile/internal/gfa"
	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/resolve"
	"gopkg.in/yaml.v3"
)

// Output file names written by WriteOutputs.
const (
	ConsensusFASTA = "consensus_assembly.fasta"
	ConsensusGFA   = "consensus_assembly.gfa"
	InputGFA       = "input_assemblies.gfa"
	SupportTSV     = "consensus_support.tsv"
	IdentityTSV    = "consensus_identity.tsv"
	ReportYAML     = "report.yaml"
	ReportJSON     = "report.json"

	outputDirPerm  = 0o755
	outputFilePerm = 0o644
)

// IssueKind classifies a non-fatal problem found during a run.
type IssueKind string

const (
	IssueMalformedInput       IssueKind = "malformed-input"
	IssueInsufficientCoverage IssueKind = "insufficient-coverage"
	IssueNoBackbone           IssueKind = "no-backbone"
	IssueUnresolvedBubble     IssueKind = "unresolved-bubble"
	IssueResolveFailed        IssueKind = "resolve-failed"
	IssueCircularityConflict  IssueKind = "circularity-conflict"
	IssueFragmentedAssembly   IssueKind = "fragmented-assembly"
	IssueSkippedSegments      IssueKind = "skipped-segments"
)

// Issue is one problem isolated to an input assembly or a cluster. The run
// carries on past every Issue.
type Issue struct {
	Kind     IssueKind `json:"kind" yaml:"kind"`
	Assembly string    `json:"assembly,omitempty" yaml:"assembly,omitempty"`
	Path     string    `json:"path,omitempty" yaml:"path,omitempty"`
	Cluster  int       `json:"cluster,omitempty" yaml:"cluster,omitempty"`
	Message  string    `json:"message" yaml:"message"`
}

// ClusterSummary is the per-cluster line of the end-of-run report.
type ClusterSummary struct {
	ID           int                `json:"id" yaml:"id"`
	Role         graph.Role         `json:"role" yaml:"role"`
	Coverage     string             `json:"coverage" yaml:"coverage"`
	Assemblies   []string           `json:"assemblies" yaml:"assemblies"`
	UniqueLength int                `json:"uniqueLength" yaml:"uniqueLength"`
	MeanDepth    float64            `json:"meanDepth" yaml:"meanDepth"`
	CopyNumber   float64            `json:"copyNumber" yaml:"copyNumber"`
	Loop         bool               `json:"loop" yaml:"loop"`
	Confidence   resolve.Confidence `json:"confidence" yaml:"confidence"`
	Reason       string             `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Set only for clusters with a consensus.
	Backbone    string             `json:"backbone,omitempty" yaml:"backbone,omitempty"`
	Length      int                `json:"length,omitempty" yaml:"length,omitempty"`
	Circular    bool               `json:"circular,omitempty" yaml:"circular,omitempty"`
	Bubbles     int                `json:"bubbles,omitempty" yaml:"bubbles,omitempty"`
	Unresolved  int                `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
	MeanSupport float64            `json:"meanSupport,omitempty" yaml:"meanSupport,omitempty"`
	MinSupport  int                `json:"minSupport,omitempty" yaml:"minSupport,omitempty"`
	Identity    map[string]float64 `json:"identity,omitempty" yaml:"identity,omitempty"`
}

func newClusterSummary(c graph.Cluster) ClusterSummary {
	return ClusterSummary{
		ID:           c.ID,
		Role:         c.Role,
		Coverage:     c.Coverage(),
		Assemblies:   c.Assemblies,
		UniqueLength: c.UniqueLength,
		MeanDepth:    c.MeanDepth,
		CopyNumber:   c.CopyNumber,
		Loop:         c.Loop,
		Reason:       c.Reason,
	}
}

func (s *ClusterSummary) fill(res *resolve.Result, rec emit.Record) {
	s.Confidence = res.Confidence
	s.Backbone = fmt.Sprintf("%s/%s", res.Backbone.Assembly, res.Backbone.Name)
	s.Length = rec.Length()
	s.Circular = rec.Circular
	s.Bubbles = len(res.Bubbles)
	s.Unresolved = len(res.Unresolved())
	s.MeanSupport = rec.MeanSupport()
	s.MinSupport = rec.MinSupport()
	s.Identity = rec.Identity
}

// Report is the end-of-run summary. Every replicon's problems are listed in
// Issues; nothing is omitted silently.
type Report struct {
	RunID      string           `json:"runId" yaml:"runId"`
	Started    time.Time        `json:"started" yaml:"started"`
	Finished   time.Time        `json:"finished" yaml:"finished"`
	Config     Config           `json:"config" yaml:"config"`
	Inputs     []string         `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Assemblies []string         `json:"assemblies" yaml:"assemblies"`
	Dropped    []string         `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	Stats      graph.GraphStats `json:"stats" yaml:"stats"`
	Clusters   []ClusterSummary `json:"clusters" yaml:"clusters"`
	Issues     []Issue          `json:"issues,omitempty" yaml:"issues,omitempty"`
	Unresolved []resolve.Bubble `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`

	// In-process results, not serialized.
	Graph   *graph.Graph    `json:"-" yaml:"-"`
	Records []emit.Record   `json:"-" yaml:"-"`
	Results []ClusterResult `json:"-" yaml:"-"`
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// IssuesOf returns the issues of one kind, in report order.
func (r *Report) IssuesOf(kind IssueKind) []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Kind == kind {
			out = append(out, is)
		}
	}
	return out
}

// WriteOutputs writes the consensus sequences, both GFA graphs, the support
// and identity tables and the report into dir, creating it if needed.
func WriteOutputs(dir string, rep *Report) error {
	if err := os.MkdirAll(dir, outputDirPerm); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	writers := []outputFile{
		{ConsensusFASTA, func(w io.Writer) error { return emit.WriteFASTA(w, rep.Records) }},
		{ConsensusGFA, func(w io.Writer) error { return gfa.WriteConsensus(w, rep.Records) }},
		{SupportTSV, func(w io.Writer) error { return emit.WriteSupport(w, rep.Records) }},
		{IdentityTSV, func(w io.Writer) error { return emit.WriteIdentity(w, rep.Records) }},
		{ReportYAML, func(w io.Writer) error { return WriteReportYAML(w, rep) }},
		{ReportJSON, func(w io.Writer) error { return WriteReportJSON(w, rep) }},
	}
	if rep.Graph != nil {
		writers = append(writers, outputFile{InputGFA, func(w io.Writer) error { return gfa.Write(w, rep.Graph) }})
	}

	for _, wr := range writers {
		if err := writeFile(filepath.Join(dir, wr.name), wr.write); err != nil {
			return err
		}
	}
	return nil
}

// WriteReportJSON writes the report as indented JSON.
func WriteReportJSON(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// WriteReportYAML writes the report as YAML.
func WriteReportYAML(w io.Writer, rep *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return err
	}
	return enc.Close()
}

// LoadReport reads the JSON report of a finished run from dir.
func LoadReport(dir string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(dir, ReportJSON))
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ReportJSON, err)
	}
	return &rep, nil
}

type outputFile struct {
	name  string
	write func(io.Writer) error
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputFilePerm)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
