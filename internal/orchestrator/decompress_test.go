package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/seqstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rc(s string) string {
	return string(seqstore.RevComp([]byte(s)))
}

func TestDecompress_RebuildsEveryContig(t *testing.T) {
	contigs, dropped, err := Decompress(chromosomeAndPlasmid(t).input())
	require.NoError(t, err)
	assert.Empty(t, dropped)
	require.Len(t, contigs, 5)

	got := make(map[string]string)
	for _, c := range contigs {
		got[c.Assembly+"/"+c.Name] = string(c.Sequence)
		assert.True(t, c.Circular)
		assert.Equal(t, c.Name, c.Header, "no header falls back to the contig name")
	}
	assert.Equal(t, seqA+seqB+seqC, got["asm1/chr"])
	assert.Equal(t, seqA+seqB+seqC, got["asm2/chr"])
	assert.Equal(t, rc(seqC)+rc(seqB)+rc(seqA), got["asm3/chr"])
	assert.Equal(t, seqP, got["asm1/plasmid"])
	assert.Equal(t, rc(seqP), got["asm2/plasmid"])
}

func TestDecompress_DroppedAssemblySkipped(t *testing.T) {
	in := chromosomeAndPlasmid(t).input()
	in.Rejected = []*graph.InputError{{Assembly: "asm2", Path: "chr", Reason: "unknown segment q"}}

	contigs, dropped, err := Decompress(in)
	require.NoError(t, err)
	require.Len(t, dropped, 1)
	assert.Equal(t, "asm2", dropped[0].Assembly)
	for _, c := range contigs {
		assert.NotEqual(t, "asm2", c.Assembly)
	}
	assert.Len(t, contigs, 3)
}

func TestDecompress_FromGFA(t *testing.T) {
	dir := t.TempDir()
	inputs := []string{
		writeGFA(t, dir, "asm1", "a+,b+,c+"),
		writeGFA(t, dir, "asm2", "c-,x-,a-"),
	}
	in, err := Ingest(inputs, nil)
	require.NoError(t, err)

	contigs, _, err := Decompress(in)
	require.NoError(t, err)
	require.Len(t, contigs, 2)
	assert.Equal(t, seqA+seqB+seqC, string(contigs[0].Sequence))
	assert.Equal(t, rc(seqC)+rc(seqX)+rc(seqA), string(contigs[1].Sequence))
	assert.Equal(t, "chr circular=true", contigs[0].Header)
}

func TestWriteContigs(t *testing.T) {
	contigs, _, err := Decompress(chromosomeAndPlasmid(t).input())
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "contigs")
	written, err := WriteContigs(dir, contigs)
	require.NoError(t, err)
	require.Len(t, written, 3)
	assert.Equal(t, filepath.Join(dir, "asm1.fasta"), written[0])

	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Equal(t, ">chr\n"+seqA+seqB+seqC+"\n>plasmid\n"+seqP+"\n", string(data))
}
