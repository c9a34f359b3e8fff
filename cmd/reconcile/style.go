package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dusk-indust/reconcile/internal/orchestrator"
	"github.com/dusk-indust/reconcile/internal/resolve"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)

	confidenceColor = map[resolve.Confidence]lipgloss.Color{
		resolve.ConfidenceHigh:       lipgloss.Color("#7BD88F"),
		resolve.ConfidenceDowngraded: lipgloss.Color("#FFD866"),
		resolve.ConfidenceFailed:     lipgloss.Color("#FF6B6B"),
		resolve.ConfidenceExcluded:   lipgloss.Color("#888888"),
	}
)

func confidenceLabel(c resolve.Confidence) string {
	return lipgloss.NewStyle().Foreground(confidenceColor[c]).Render(string(c))
}

// printSummary renders the per-cluster table and the issue list of a run.
func printSummary(w io.Writer, rep *orchestrator.Report) {
	var lines []string
	lines = append(lines, headerStyle.Render("Consensus"))
	lines = append(lines, mutedStyle.Render(fmt.Sprintf("run %s  %d assemblies  %s",
		rep.RunID, len(rep.Assemblies), rep.Duration().Round(time.Millisecond))))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("%-8s %-11s %-8s %10s %6s %8s  %s",
		"cluster", "role", "coverage", "length", "depth", "bubbles", "confidence"))
	for _, c := range rep.Clusters {
		length := "-"
		if c.Length > 0 {
			length = fmt.Sprintf("%d", c.Length)
			if c.Circular {
				length += "c"
			}
		}
		bubbles := "-"
		if c.Bubbles > 0 {
			bubbles = fmt.Sprintf("%d/%d", c.Bubbles-c.Unresolved, c.Bubbles)
		}
		lines = append(lines, fmt.Sprintf("%-8d %-11s %-8s %10s %6.2f %8s  %s",
			c.ID, c.Role, c.Coverage, length, c.MeanDepth, bubbles, confidenceLabel(c.Confidence)))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))

	if len(rep.Issues) == 0 {
		return
	}
	fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("%d issue(s)", len(rep.Issues))))
	for _, is := range rep.Issues {
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render(string(is.Kind)), is.Message)
	}
}
