package export

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/orchestrator"
	"github.com/dusk-indust/reconcile/internal/seqstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// runDivergent reconciles three linear assemblies where asm3 takes a
// three-segment detour, with a bubble bound too small to resolve it.
func runDivergent(t *testing.T) string {
	t.Helper()
	seqs := seqstore.New()
	ids := make(map[string]graph.StrandedRef)
	for name, s := range map[string]string{
		"A": "AAACCCGGGA", "B": "CATCATCATC", "C": "GGATTACAGG", "D": "TGTGCACGTT",
		"E": "ACGGTTCAAG", "X": "GTCAGTCAGA", "Y": "CCTTAGGAAT", "Z": "TAGCTTGCAC",
	} {
		id, strand, err := seqs.Intern([]byte(s))
		require.NoError(t, err)
		ids[name] = graph.StrandedRef{Segment: id, Strand: strand}
	}
	path := func(asm string, steps ...string) graph.Path {
		p := graph.Path{Assembly: asm, Name: "chr"}
		for _, s := range steps {
			p.Refs = append(p.Refs, ids[s])
		}
		return p
	}

	dir := filepath.Join(t.TempDir(), "run")
	cfg := orchestrator.DefaultConfig()
	cfg.MaxBubbleDepth = 2
	cfg.OutputDir = dir

	p := orchestrator.NewPipeline(cfg, nil)
	defer p.Close()
	_, err := p.Reconcile(context.Background(), orchestrator.Input{
		Seqs: seqs,
		Paths: []graph.Path{
			path("asm1", "A", "B", "C", "D", "E"),
			path("asm2", "A", "B", "C", "D", "E"),
			path("asm3", "A", "X", "Y", "Z", "E"),
		},
	})
	require.NoError(t, err)
	return dir
}

func TestExportRun(t *testing.T) {
	dir := runDivergent(t)

	exp, err := ExportRun(dir)
	require.NoError(t, err)

	assert.NotEmpty(t, exp.RunID)
	assert.Equal(t, []string{"asm1", "asm2", "asm3"}, exp.Assemblies)
	require.Len(t, exp.Outputs, 7)
	for _, o := range exp.Outputs {
		assert.Equal(t, "present", o.Status, o.Name)
	}

	require.Len(t, exp.Clusters, 1)
	c := exp.Clusters[0]
	assert.Equal(t, "downgraded", c.Confidence)
	assert.Equal(t, 50, c.Length)
	assert.Equal(t, "asm1/chr", c.Backbone)

	require.Len(t, exp.Bubbles, 1)
	b := exp.Bubbles[0]
	assert.Equal(t, 1, b.Cluster)
	assert.Len(t, b.Alternatives, 2)
	assert.Equal(t, b.Alternatives[0], b.Kept, "the backbone alternative is kept")
	assert.Equal(t, "no re-convergence within 2 segments", b.Reason)

	require.Len(t, exp.Issues, 1)
	assert.Equal(t, orchestrator.IssueUnresolvedBubble, exp.Issues[0].Kind)
}

func TestExportRun_NoReport(t *testing.T) {
	_, err := ExportRun(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no readable report.json")
}

func TestWriteJSONAndYAML(t *testing.T) {
	exp, err := ExportRun(runDivergent(t))
	require.NoError(t, err)

	var jsonBuf bytes.Buffer
	require.NoError(t, WriteJSON(&jsonBuf, exp))
	var fromJSON RunExport
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &fromJSON))
	assert.Equal(t, exp.RunID, fromJSON.RunID)
	assert.Equal(t, exp.Bubbles, fromJSON.Bubbles)

	var yamlBuf bytes.Buffer
	require.NoError(t, WriteYAML(&yamlBuf, exp))
	var fromYAML RunExport
	require.NoError(t, yaml.Unmarshal(yamlBuf.Bytes(), &fromYAML))
	assert.Equal(t, exp.RunID, fromYAML.RunID)
	assert.Equal(t, exp.Clusters[0].Backbone, fromYAML.Clusters[0].Backbone)
}

func TestGenerateMermaid(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	defer store.Close()

	require.NoError(t, store.AddSegment(ctx, graph.SegmentRecord{ID: 1, Length: 10, Depth: 3}))
	require.NoError(t, store.AddSegment(ctx, graph.SegmentRecord{ID: 2, Length: 12, Depth: 2}))
	require.NoError(t, store.AddSegment(ctx, graph.SegmentRecord{ID: 3, Length: 8, Depth: 1}))
	require.NoError(t, store.AddLink(ctx, graph.LinkRecord{From: 1, FromStrand: "+", To: 2, ToStrand: "-", Support: 2}))
	require.NoError(t, store.AddCluster(ctx, graph.ClusterRecord{
		ID: 1, Role: graph.RoleChromosome, Coverage: "3/3", Members: []int{2, 1},
	}))
	require.NoError(t, store.AddCluster(ctx, graph.ClusterRecord{
		ID: 2, Role: graph.RolePlasmid, Coverage: "1/3", LowConfidence: true, Members: []int{3},
	}))

	out, err := GenerateMermaid(ctx, store)
	require.NoError(t, err)

	assert.Contains(t, out, "graph LR\n")
	assert.Contains(t, out, "  subgraph C1[\"cluster 1: chromosome 3/3\"]\n")
	assert.Contains(t, out, "    S1[\"1 (10 bp, depth 3)\"]\n    S2[\"2 (12 bp, depth 2)\"]\n")
	assert.Contains(t, out, "  subgraph C2[\"cluster 2: plasmid 1/3 (excluded)\"]\n")
	assert.Contains(t, out, "  S1 -->|\"+- 2\"| S2\n")
}
