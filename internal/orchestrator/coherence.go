package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/reconcile/internal/graph"
)

// CheckCoherence performs a lightweight cross-assembly consistency scan of
// each cluster. It flags clusters whose paths disagree on circularity and
// assemblies that contribute more than one contig to a single cluster. Both
// are reported for review; neither changes the consensus.
func CheckCoherence(g *graph.Graph, clusters []graph.Cluster) []Issue {
	var issues []Issue
	for _, c := range clusters {
		// byAssembly maps assembly -> contig names in the cluster.
		byAssembly := make(map[string][]string)
		var circular, linear []string

		for _, id := range c.Paths {
			p, err := g.Path(id)
			if err != nil {
				continue
			}
			byAssembly[p.Assembly] = append(byAssembly[p.Assembly], p.Name)
			if p.Circular {
				circular = appendUnique(circular, p.Assembly)
			} else {
				linear = appendUnique(linear, p.Assembly)
			}
		}

		if len(circular) > 0 && len(linear) > 0 {
			sort.Strings(circular)
			sort.Strings(linear)
			issues = append(issues, Issue{
				Kind:    IssueCircularityConflict,
				Cluster: c.ID,
				Message: fmt.Sprintf("assemblies disagree on circularity: circular in %s, linear in %s",
					strings.Join(circular, ", "), strings.Join(linear, ", ")),
			})
		}

		assemblies := make([]string, 0, len(byAssembly))
		for asm := range byAssembly {
			assemblies = append(assemblies, asm)
		}
		sort.Strings(assemblies)
		for _, asm := range assemblies {
			names := byAssembly[asm]
			if len(names) <= 1 {
				continue
			}
			sort.Strings(names)
			issues = append(issues, Issue{
				Kind:     IssueFragmentedAssembly,
				Assembly: asm,
				Cluster:  c.ID,
				Message: fmt.Sprintf("%d contigs in one cluster: %s",
					len(names), strings.Join(names, ", ")),
			})
		}
	}
	return issues
}
