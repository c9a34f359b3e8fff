package orchestrator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dusk-indust/reconcile/internal/emit"
	"github.com/dusk-indust/reconcile/internal/graph"
)

// Contig is one input contig rebuilt from its path through the combined
// graph.
type Contig struct {
	Assembly string
	Name     string
	Header   string
	Circular bool
	Sequence []byte
}

// Decompress rebuilds the sequence of every input contig that survives
// graph building. Dropped assemblies are returned alongside; their contigs
// are not rebuilt.
func Decompress(in Input) ([]Contig, []*graph.InputError, error) {
	b := graph.NewBuilder(in.Seqs)
	b.AddAll(in.Paths)
	for _, r := range in.Rejected {
		b.Reject(r)
	}
	g, dropped := b.Build()
	if err := g.Validate(); err != nil {
		return nil, nil, fmt.Errorf("decompress: %w", err)
	}

	contigs := make([]Contig, 0, len(g.Paths()))
	for _, p := range g.Paths() {
		seq, err := g.Spell(p.Refs)
		if err != nil {
			return nil, nil, fmt.Errorf("decompress %s/%s: %w", p.Assembly, p.Name, err)
		}
		if p.Length > 0 && len(seq) != p.Length {
			return nil, nil, fmt.Errorf("%w: %s/%s rebuilt to %d bp, declared %d",
				graph.ErrInvariantViolation, p.Assembly, p.Name, len(seq), p.Length)
		}
		header := p.Header
		if header == "" {
			header = p.Name
		}
		contigs = append(contigs, Contig{
			Assembly: p.Assembly,
			Name:     p.Name,
			Header:   header,
			Circular: p.Circular,
			Sequence: seq,
		})
	}
	return contigs, dropped, nil
}

// WriteContigs writes one FASTA file per assembly into dir, named after the
// assembly. It returns the written paths in assembly order.
func WriteContigs(dir string, contigs []Contig) ([]string, error) {
	if err := os.MkdirAll(dir, outputDirPerm); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var (
		order   []string
		byAsm   = make(map[string][]Contig)
		written []string
	)
	for _, c := range contigs {
		if _, ok := byAsm[c.Assembly]; !ok {
			order = append(order, c.Assembly)
		}
		byAsm[c.Assembly] = append(byAsm[c.Assembly], c)
	}

	for _, asm := range order {
		path := filepath.Join(dir, asm+".fasta")
		err := writeFile(path, func(w io.Writer) error {
			for _, c := range byAsm[asm] {
				if err := emit.WriteSequence(w, c.Header, c.Sequence); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
