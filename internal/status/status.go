// Package status inspects the output directory of a finished reconciliation
// run.
package status

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/dusk-indust/reconcile/internal/orchestrator"
	"github.com/dusk-indust/reconcile/internal/resolve"
)

// OutputFile describes one expected output of a run.
type OutputFile struct {
	Name   string
	Path   string // absolute path when present, empty otherwise
	Exists bool
	Size   int64
}

// RunStatus holds the status of one output directory.
type RunStatus struct {
	Dir     string
	Outputs []OutputFile
	// Report is nil when the directory holds no readable report.
	Report *orchestrator.Report
	// Complete is true when every expected output exists.
	Complete bool
}

// ExpectedOutputs lists the files a run writes, in display order.
var ExpectedOutputs = []string{
	orchestrator.ConsensusFASTA,
	orchestrator.ConsensusGFA,
	orchestrator.InputGFA,
	orchestrator.SupportTSV,
	orchestrator.IdentityTSV,
	orchestrator.ReportYAML,
	orchestrator.ReportJSON,
}

// ScanOutputs checks which expected output files exist in dir.
func ScanOutputs(dir string) []OutputFile {
	out := make([]OutputFile, len(ExpectedOutputs))
	for i, name := range ExpectedOutputs {
		out[i] = OutputFile{Name: name}
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			out[i].Path = path
			out[i].Exists = true
			out[i].Size = info.Size()
		}
	}
	return out
}

// GetRunStatus returns the outputs and report of the run in dir. A missing
// or unreadable report leaves Report nil.
func GetRunStatus(dir string) RunStatus {
	rs := RunStatus{Dir: dir, Outputs: ScanOutputs(dir), Complete: true}
	for _, f := range rs.Outputs {
		if !f.Exists {
			rs.Complete = false
		}
	}
	if rep, err := orchestrator.LoadReport(dir); err == nil {
		rs.Report = rep
	}
	return rs
}

// ListRuns scans root and its immediate subdirectories for run outputs.
// Returns false when root cannot be read.
func ListRuns(root string) ([]RunStatus, bool) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, false
	}

	var results []RunStatus
	if hasReport(root) {
		results = append(results, GetRunStatus(root))
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if hasReport(dir) {
			results = append(results, GetRunStatus(dir))
		}
	}
	return results, true
}

func hasReport(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, orchestrator.ReportJSON))
	return err == nil
}

// ConfidenceCount is the number of clusters at one confidence level.
type ConfidenceCount struct {
	Confidence resolve.Confidence
	Clusters   int
}

// CountConfidence tallies the report's clusters by confidence, ordered from
// high to excluded. Levels with no clusters are omitted.
func CountConfidence(rep *orchestrator.Report) []ConfidenceCount {
	order := map[resolve.Confidence]int{
		resolve.ConfidenceHigh:       0,
		resolve.ConfidenceDowngraded: 1,
		resolve.ConfidenceFailed:     2,
		resolve.ConfidenceExcluded:   3,
	}
	counts := make(map[resolve.Confidence]int)
	for _, c := range rep.Clusters {
		counts[c.Confidence]++
	}
	out := make([]ConfidenceCount, 0, len(counts))
	for conf, n := range counts {
		out = append(out, ConfidenceCount{Confidence: conf, Clusters: n})
	}
	sort.Slice(out, func(i, j int) bool {
		return order[out[i].Confidence] < order[out[j].Confidence]
	})
	return out
}
