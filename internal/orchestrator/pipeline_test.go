package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/resolve"
	"github.com/dusk-indust/reconcile/internal/seqstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test segments. None equals another or another's reverse complement.
const (
	seqA = "AAACCCGGGA"
	seqB = "CATCATCATC"
	seqC = "GGATTACAGG"
	seqD = "TGTGCACGTT"
	seqE = "ACGGTTCAAG"
	seqX = "GTCAGTCAGA"
	seqY = "CCTTAGGAAT"
	seqZ = "TAGCTTGCAC"
	seqP = "TTGGCTAG"
)

type fixture struct {
	seqs  *seqstore.Store
	ids   map[string]seqstore.SegmentID
	paths []graph.Path
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{seqs: seqstore.New(), ids: make(map[string]seqstore.SegmentID)}
	for name, seq := range map[string]string{
		"A": seqA, "B": seqB, "C": seqC, "D": seqD, "E": seqE,
		"X": seqX, "Y": seqY, "Z": seqZ, "P": seqP,
	} {
		id, strand, err := f.seqs.Intern([]byte(seq))
		require.NoError(t, err)
		require.Equal(t, seqstore.Forward, strand)
		f.ids[name] = id
	}
	return f
}

// add queues a path written as space-separated segment names, each with an
// optional trailing '-' for the reverse strand.
func (f *fixture) add(asm, name string, circular bool, steps string) *fixture {
	var refs []graph.StrandedRef
	for _, s := range strings.Fields(steps) {
		strand := seqstore.Forward
		if strings.HasSuffix(s, "-") {
			strand = seqstore.Reverse
			s = strings.TrimSuffix(s, "-")
		}
		refs = append(refs, graph.StrandedRef{Segment: f.ids[s], Strand: strand})
	}
	f.paths = append(f.paths, graph.Path{Assembly: asm, Name: name, Circular: circular, Refs: refs})
	return f
}

func (f *fixture) input() Input {
	return Input{Seqs: f.seqs, Paths: f.paths}
}

// chromosomeAndPlasmid has three assemblies agreeing on a circular
// chromosome and two of them carrying a small plasmid.
func chromosomeAndPlasmid(t *testing.T) *fixture {
	return newFixture(t).
		add("asm1", "chr", true, "A B C").
		add("asm2", "chr", true, "A B C").
		add("asm3", "chr", true, "C- B- A-").
		add("asm1", "plasmid", true, "P").
		add("asm2", "plasmid", true, "P-")
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Threads = 2
	return cfg
}

func reconcile(t *testing.T, cfg Config, in Input) *Report {
	t.Helper()
	p := NewPipeline(cfg, nil)
	defer p.Close()
	rep, err := p.Reconcile(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, rep)
	return rep
}

func TestPipeline_InterfaceCompliance(t *testing.T) {
	var _ Orchestrator = (*Pipeline)(nil)
}

func TestPipeline_Reconcile_ChromosomeAndPlasmid(t *testing.T) {
	rep := reconcile(t, testConfig(), chromosomeAndPlasmid(t).input())

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, []string{"asm1", "asm2", "asm3"}, rep.Assemblies)
	assert.Empty(t, rep.Issues)
	assert.Empty(t, rep.Unresolved)
	assert.Equal(t, 4, rep.Stats.SegmentCount)
	assert.Equal(t, 5, rep.Stats.PathCount)
	assert.Equal(t, 2, rep.Stats.ClusterCount)

	require.Len(t, rep.Records, 2)
	chr, pl := rep.Records[0], rep.Records[1]

	assert.Equal(t, "cluster_1", chr.Name)
	assert.Equal(t, 30, chr.Length())
	assert.True(t, chr.Circular)
	assert.Equal(t, 3, chr.MinSupport())
	assert.Equal(t, resolve.ConfidenceHigh, chr.Confidence)

	assert.Equal(t, "cluster_2", pl.Name)
	assert.Equal(t, "2/3", pl.Cluster.Coverage())
	assert.Equal(t, 8, pl.Length())
	assert.Equal(t, 2, pl.MinSupport())

	require.Len(t, rep.Clusters, 2)
	assert.Equal(t, graph.RoleChromosome, rep.Clusters[0].Role)
	assert.Equal(t, graph.RolePlasmid, rep.Clusters[1].Role)
	assert.Equal(t, "2/3", rep.Clusters[1].Coverage)
	for _, cs := range rep.Clusters {
		assert.Equal(t, resolve.ConfidenceHigh, cs.Confidence)
		assert.NotEmpty(t, cs.Backbone)
	}
}

func TestPipeline_Reconcile_InputOrderIndependent(t *testing.T) {
	f := chromosomeAndPlasmid(t)
	forward := reconcile(t, testConfig(), f.input())

	reversed := f.input()
	reversed.Paths = make([]graph.Path, len(f.paths))
	for i, p := range f.paths {
		reversed.Paths[len(f.paths)-1-i] = p
	}
	backward := reconcile(t, testConfig(), reversed)

	require.Len(t, backward.Records, len(forward.Records))
	for i := range forward.Records {
		assert.Equal(t, forward.Records[i].Sequence, backward.Records[i].Sequence)
		assert.Equal(t, forward.Records[i].Support, backward.Records[i].Support)
	}
}

func TestPipeline_Reconcile_UnresolvedBubble(t *testing.T) {
	f := newFixture(t).
		add("asm1", "chr", false, "A B C D E").
		add("asm2", "chr", false, "A B C D E").
		add("asm3", "chr", false, "A X Y Z E")

	cfg := testConfig()
	cfg.MaxBubbleDepth = 2
	rep := reconcile(t, cfg, f.input())

	require.Len(t, rep.Records, 1)
	assert.Equal(t, resolve.ConfidenceDowngraded, rep.Records[0].Confidence)
	assert.Equal(t, seqA+seqB+seqC+seqD+seqE, string(rep.Records[0].Sequence),
		"the backbone sub-path is kept")

	require.Len(t, rep.Unresolved, 1)
	issues := rep.IssuesOf(IssueUnresolvedBubble)
	require.Len(t, issues, 1)
	assert.Equal(t, 1, issues[0].Cluster)
	assert.Contains(t, issues[0].Message, "no re-convergence within 2 segments")
	assert.Equal(t, 1, rep.Clusters[0].Unresolved)
}

func TestPipeline_Reconcile_NoSpanningPath(t *testing.T) {
	f := newFixture(t).
		add("asm1", "chr", false, "A B").
		add("asm2", "chr", false, "B C")

	rep := reconcile(t, testConfig(), f.input())

	assert.Empty(t, rep.Records)
	require.Len(t, rep.Clusters, 1)
	assert.Equal(t, resolve.ConfidenceFailed, rep.Clusters[0].Confidence)
	issues := rep.IssuesOf(IssueNoBackbone)
	require.Len(t, issues, 1)
	assert.Equal(t, 1, issues[0].Cluster)
}

func TestPipeline_Reconcile_SkippedSegmentsReported(t *testing.T) {
	f := newFixture(t).
		add("asm1", "chr", false, "A B C").
		add("asm2", "left", false, "A X").
		add("asm3", "right", false, "X C")

	rep := reconcile(t, testConfig(), f.input())

	require.Len(t, rep.Records, 1)
	assert.Equal(t, resolve.ConfidenceDowngraded, rep.Records[0].Confidence)
	issues := rep.IssuesOf(IssueSkippedSegments)
	require.Len(t, issues, 1)
	assert.Equal(t, 1, issues[0].Cluster)
	assert.Equal(t, fmt.Sprintf("segments left out of the consensus: %d", f.ids["X"]), issues[0].Message)
}

func TestPipeline_Reconcile_MalformedAssemblyDropped(t *testing.T) {
	in := chromosomeAndPlasmid(t).input()
	in.Rejected = []*graph.InputError{{Assembly: "asm3", Path: "chr", Reason: "unknown segment s9"}}

	rep := reconcile(t, testConfig(), in)

	assert.Equal(t, []string{"asm3"}, rep.Dropped)
	assert.Equal(t, []string{"asm1", "asm2"}, rep.Assemblies)
	issues := rep.IssuesOf(IssueMalformedInput)
	require.Len(t, issues, 1)
	assert.Equal(t, "asm3", issues[0].Assembly)
	assert.Contains(t, issues[0].Message, "unknown segment s9")

	require.Len(t, rep.Records, 2)
	assert.Equal(t, 2, rep.Records[0].MinSupport())
	assert.Equal(t, "2/2", rep.Records[1].Cluster.Coverage())
}

func TestPipeline_Reconcile_LowCoverageClusterExcluded(t *testing.T) {
	cfg := testConfig()
	cfg.MinClusterLength = 20
	rep := reconcile(t, cfg, chromosomeAndPlasmid(t).input())

	require.Len(t, rep.Records, 1, "the 8 bp plasmid is excluded")
	assert.Equal(t, "cluster_1", rep.Records[0].Name)

	issues := rep.IssuesOf(IssueInsufficientCoverage)
	require.Len(t, issues, 1)
	assert.Equal(t, 2, issues[0].Cluster)

	require.Len(t, rep.Clusters, 2, "excluded clusters are still reported")
	assert.Equal(t, resolve.ConfidenceExcluded, rep.Clusters[1].Confidence)
	assert.NotEmpty(t, rep.Clusters[1].Reason)
}

func TestPipeline_Reconcile_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBubbleDepth = 0
	p := NewPipeline(cfg, nil)
	defer p.Close()

	_, err := p.Reconcile(context.Background(), chromosomeAndPlasmid(t).input())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max bubble depth")
}

func TestPipeline_Reconcile_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(testConfig(), nil)
	defer p.Close()

	_, err := p.Reconcile(ctx, chromosomeAndPlasmid(t).input())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_Reconcile_SharedStore(t *testing.T) {
	store := graph.NewMemStore()
	defer store.Close()

	p := NewPipeline(testConfig(), store)
	defer p.Close()
	_, err := p.Reconcile(context.Background(), chromosomeAndPlasmid(t).input())
	require.NoError(t, err)

	clusters, err := store.GetClusters(context.Background())
	require.NoError(t, err)
	assert.Len(t, clusters, 2)
}

func TestPipeline_Reconcile_WritesOutputs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	cfg := testConfig()
	cfg.OutputDir = dir

	rep := reconcile(t, cfg, chromosomeAndPlasmid(t).input())

	for _, name := range []string{ConsensusFASTA, ConsensusGFA, InputGFA, SupportTSV, IdentityTSV, ReportYAML, ReportJSON} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}

	fasta, err := os.ReadFile(filepath.Join(dir, ConsensusFASTA))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(fasta), ">cluster_1 length=30 circular=true coverage=3/3 confidence=high\n"))

	loaded, err := LoadReport(dir)
	require.NoError(t, err)
	assert.Equal(t, rep.RunID, loaded.RunID)
	assert.Equal(t, rep.Clusters, loaded.Clusters)
	assert.Equal(t, cfg.MaxBubbleDepth, loaded.Config.MaxBubbleDepth)
}

func TestLoadReport_Missing(t *testing.T) {
	_, err := LoadReport(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// writeGFA writes one assembly's chromosome as a GFA file named asm.gfa.
func writeGFA(t *testing.T, dir, asm string, steps string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("H\tVN:Z:1.0\n")
	for _, s := range []struct{ name, seq string }{{"a", seqA}, {"b", seqB}, {"c", seqC}, {"x", seqX}} {
		fmt.Fprintf(&b, "S\t%s\t%s\n", s.name, s.seq)
	}
	fmt.Fprintf(&b, "P\tchr\t%s\t*\tHD:Z:chr circular=true\n", steps)
	path := filepath.Join(dir, asm+".gfa")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestPipeline_Run_FromGFAFiles(t *testing.T) {
	dir := t.TempDir()
	inputs := []string{
		writeGFA(t, dir, "asm1", "a+,b+,c+"),
		writeGFA(t, dir, "asm2", "a+,b+,c+"),
		writeGFA(t, dir, "asm3", "a+,x+,c+"),
	}

	p := NewPipeline(testConfig(), nil)

	var events []ProgressEvent
	done := make(chan struct{})
	go func() {
		for ev := range p.Progress() {
			events = append(events, ev)
		}
		close(done)
	}()

	rep, err := p.Run(context.Background(), inputs)
	require.NoError(t, err)
	p.Close()
	<-done

	assert.Equal(t, inputs, rep.Inputs)
	assert.Equal(t, []string{"asm1", "asm2", "asm3"}, rep.Assemblies)
	require.Len(t, rep.Records, 1)
	assert.Equal(t, seqA+seqB+seqC, string(rep.Records[0].Sequence), "two of three assemblies carry B")
	assert.Equal(t, []int{3, 2, 3}, rep.Results[0].Result.Consensus.Support)

	stages := make(map[Stage]bool)
	for _, ev := range events {
		stages[ev.Stage] = true
	}
	for _, s := range []Stage{StageIngest, StageBuild, StageCluster, StageResolve, StageEmit} {
		assert.True(t, stages[s], "no events for stage %s", s)
	}
}

func TestPipeline_Run_UnknownSegmentDropsAssembly(t *testing.T) {
	dir := t.TempDir()
	inputs := []string{
		writeGFA(t, dir, "asm1", "a+,b+,c+"),
		writeGFA(t, dir, "asm2", "a+,b+,c+"),
		writeGFA(t, dir, "asm3", "a+,q+,c+"),
	}

	p := NewPipeline(testConfig(), nil)
	defer p.Close()

	rep, err := p.Run(context.Background(), inputs)
	require.NoError(t, err)
	assert.Equal(t, []string{"asm3"}, rep.Dropped)
	require.Len(t, rep.Records, 1)
	assert.Equal(t, "2/2", rep.Records[0].Cluster.Coverage())
}

func TestPipeline_Run_MissingFile(t *testing.T) {
	p := NewPipeline(testConfig(), nil)
	defer p.Close()

	_, err := p.Run(context.Background(), []string{filepath.Join(t.TempDir(), "nope.gfa")})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
