package orchestrator

import (
	"testing"

	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coherenceOf(t *testing.T, f *fixture) []Issue {
	t.Helper()
	b := graph.NewBuilder(f.seqs)
	b.AddAll(f.paths)
	g, dropped := b.Build()
	require.Empty(t, dropped)
	return CheckCoherence(g, graph.ComputeClusters(g, graph.DefaultClusterOptions()))
}

func TestCheckCoherence_AgreeingAssemblies_NoIssues(t *testing.T) {
	assert.Empty(t, coherenceOf(t, chromosomeAndPlasmid(t)))
}

func TestCheckCoherence_CircularityConflict(t *testing.T) {
	f := newFixture(t).
		add("asm1", "chr", true, "A B C").
		add("asm2", "chr", true, "A B C").
		add("asm3", "chr", false, "A B C")

	issues := coherenceOf(t, f)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueCircularityConflict, issues[0].Kind)
	assert.Equal(t, 1, issues[0].Cluster)
	assert.Equal(t, "assemblies disagree on circularity: circular in asm1, asm2, linear in asm3", issues[0].Message)
}

func TestCheckCoherence_FragmentedAssembly(t *testing.T) {
	f := newFixture(t).
		add("asm1", "chr", false, "A B C D").
		add("asm2", "chr", false, "A B C D").
		add("asm3", "tig2", false, "C D").
		add("asm3", "tig1", false, "A B")

	issues := coherenceOf(t, f)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueFragmentedAssembly, issues[0].Kind)
	assert.Equal(t, "asm3", issues[0].Assembly)
	assert.Equal(t, "2 contigs in one cluster: tig1, tig2", issues[0].Message)
}
