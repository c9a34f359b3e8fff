package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/orchestrator"
	"github.com/dusk-indust/reconcile/internal/resolve"
	"github.com/dusk-indust/reconcile/internal/status"
	"gopkg.in/yaml.v3"
)

// RunExport is the top-level export structure for a finished run.
type RunExport struct {
	RunID      string               `json:"runId" yaml:"runId"`
	ExportedAt string               `json:"exportedAt" yaml:"exportedAt"`
	Assemblies []string             `json:"assemblies" yaml:"assemblies"`
	Dropped    []string             `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	Outputs    []OutputExport       `json:"outputs" yaml:"outputs"`
	Clusters   []ClusterExport      `json:"clusters" yaml:"clusters"`
	Bubbles    []BubbleExport       `json:"unresolvedBubbles,omitempty" yaml:"unresolvedBubbles,omitempty"`
	Issues     []orchestrator.Issue `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// OutputExport describes one output file.
type OutputExport struct {
	Name   string `json:"name" yaml:"name"`
	Status string `json:"status" yaml:"status"`
	Size   int64  `json:"size,omitempty" yaml:"size,omitempty"`
}

// ClusterExport describes one cluster and its consensus.
type ClusterExport struct {
	ID          int                `json:"id" yaml:"id"`
	Role        string             `json:"role" yaml:"role"`
	Coverage    string             `json:"coverage" yaml:"coverage"`
	Confidence  string             `json:"confidence" yaml:"confidence"`
	Length      int                `json:"length,omitempty" yaml:"length,omitempty"`
	Circular    bool               `json:"circular,omitempty" yaml:"circular,omitempty"`
	Backbone    string             `json:"backbone,omitempty" yaml:"backbone,omitempty"`
	MeanSupport float64            `json:"meanSupport,omitempty" yaml:"meanSupport,omitempty"`
	Identity    map[string]float64 `json:"identity,omitempty" yaml:"identity,omitempty"`
	Reason      string             `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// BubbleExport describes one bubble for human review. Alternatives are
// rendered in GFA path notation.
type BubbleExport struct {
	Cluster      int      `json:"cluster" yaml:"cluster"`
	Entry        string   `json:"entry" yaml:"entry"`
	Exit         string   `json:"exit,omitempty" yaml:"exit,omitempty"`
	Resolved     bool     `json:"resolved" yaml:"resolved"`
	Alternatives []string `json:"alternatives" yaml:"alternatives"`
	Kept         string   `json:"kept" yaml:"kept"`
	Reason       string   `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Bubble converts a resolver bubble to its export form.
func Bubble(b resolve.Bubble) BubbleExport {
	be := BubbleExport{
		Cluster:  b.Cluster,
		Entry:    b.Entry.String(),
		Resolved: b.Resolved,
		Reason:   b.Reason,
	}
	if b.Resolved {
		be.Exit = b.Exit.String()
	}
	for _, alt := range b.Alternatives {
		refs := graph.FormatRefs(alt.Refs)
		be.Alternatives = append(be.Alternatives, refs)
		if alt.Chosen {
			be.Kept = refs
		}
	}
	return be
}

// ExportRun builds a RunExport from the output directory of a run.
func ExportRun(dir string) (*RunExport, error) {
	rs := status.GetRunStatus(dir)
	if rs.Report == nil {
		return nil, fmt.Errorf("export: no readable %s in %s", orchestrator.ReportJSON, dir)
	}
	rep := rs.Report

	exp := &RunExport{
		RunID:      rep.RunID,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Assemblies: rep.Assemblies,
		Dropped:    rep.Dropped,
		Issues:     rep.Issues,
	}

	for _, f := range rs.Outputs {
		s := "missing"
		if f.Exists {
			s = "present"
		}
		exp.Outputs = append(exp.Outputs, OutputExport{Name: f.Name, Status: s, Size: f.Size})
	}

	for _, c := range rep.Clusters {
		exp.Clusters = append(exp.Clusters, ClusterExport{
			ID:          c.ID,
			Role:        string(c.Role),
			Coverage:    c.Coverage,
			Confidence:  string(c.Confidence),
			Length:      c.Length,
			Circular:    c.Circular,
			Backbone:    c.Backbone,
			MeanSupport: c.MeanSupport,
			Identity:    c.Identity,
			Reason:      c.Reason,
		})
	}

	for _, b := range rep.Unresolved {
		exp.Bubbles = append(exp.Bubbles, Bubble(b))
	}

	return exp, nil
}

// WriteJSON writes the export as indented JSON.
func WriteJSON(w io.Writer, exp *RunExport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exp)
}

// WriteYAML writes the export as YAML.
func WriteYAML(w io.Writer, exp *RunExport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(exp); err != nil {
		return err
	}
	return enc.Close()
}
