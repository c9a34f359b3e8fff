package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/dusk-indust/reconcile/internal/orchestrator"
)

// runDecompress rebuilds every input contig from its GFA path and writes
// one FASTA file per assembly.
func runDecompress(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("decompress", flag.ContinueOnError)
	outDir := fs.String("o", ".", "directory for the per-assembly FASTA files")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("usage: reconcile decompress [-o dir] <assembly.gfa>...")
	}

	in, err := orchestrator.Ingest(fs.Args(), nil)
	if err != nil {
		return err
	}
	contigs, dropped, err := orchestrator.Decompress(in)
	if err != nil {
		return err
	}
	for _, d := range dropped {
		log.Printf("WARNING: skipping assembly %q: %v", d.Assembly, d)
	}

	written, err := orchestrator.WriteContigs(*outDir, contigs)
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Fprintf(stdout, "  created %s\n", path)
	}
	fmt.Fprintf(stdout, "%d contigs from %d assemblies\n", len(contigs), len(written))
	return nil
}
