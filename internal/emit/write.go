package emit

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
)

// LineWidth is the FASTA sequence line width.
const LineWidth = 60

// WriteFASTA writes records as FASTA, wrapping sequence lines at LineWidth.
func WriteFASTA(w io.Writer, recs []Record) error {
	bw := bufio.NewWriter(w)
	fw := fasta.NewWriter(bw, LineWidth)
	for _, r := range recs {
		if _, err := fw.Write(fastaSeq(r.Header(), r.Sequence)); err != nil {
			return fmt.Errorf("emit: write %s: %w", r.Name, err)
		}
	}
	return bw.Flush()
}

// WriteSequence writes a single sequence as FASTA. The header's first word
// is the sequence name and the rest its description.
func WriteSequence(w io.Writer, header string, seq []byte) error {
	bw := bufio.NewWriter(w)
	if _, err := fasta.NewWriter(bw, LineWidth).Write(fastaSeq(header, seq)); err != nil {
		return fmt.Errorf("emit: write %s: %w", header, err)
	}
	return bw.Flush()
}

func fastaSeq(header string, seq []byte) *linear.Seq {
	name, desc, _ := strings.Cut(header, " ")
	s := linear.NewSeq(name, alphabet.BytesToLetters(seq), alphabet.DNAredundant)
	s.Desc = desc
	return s
}

// WriteSupport writes per-base support as a tab-separated interval track:
// name, zero-based start, exclusive end, support. Adjacent bases with equal
// support share one line.
func WriteSupport(w io.Writer, recs []Record) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("name\tstart\tend\tsupport\n"); err != nil {
		return err
	}
	for _, r := range recs {
		start := 0
		for i := 1; i <= len(r.Support); i++ {
			if i < len(r.Support) && r.Support[i] == r.Support[start] {
				continue
			}
			if _, err := fmt.Fprintf(bw, "%s\t%d\t%d\t%d\n", r.Name, start, i, r.Support[start]); err != nil {
				return err
			}
			start = i
		}
	}
	return bw.Flush()
}

// WriteIdentity writes each record's per-assembly identity as
// tab-separated lines: name, assembly, identity.
func WriteIdentity(w io.Writer, recs []Record) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("name\tassembly\tidentity\n"); err != nil {
		return err
	}
	for _, r := range recs {
		asms := make([]string, 0, len(r.Identity))
		for a := range r.Identity {
			asms = append(asms, a)
		}
		sort.Strings(asms)
		for _, a := range asms {
			if _, err := fmt.Fprintf(bw, "%s\t%s\t%.6f\n", r.Name, a, r.Identity[a]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
