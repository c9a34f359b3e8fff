// Package align computes pairwise nucleotide identity for bubble
// tie-breaking and per-assembly identity scores.
package align

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/biogo/biogo/align"
	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/seq/linear"
)

// ErrUnexpectedFormat is returned when the aligner produces rows of an
// unexpected type.
var ErrUnexpectedFormat = errors.New("align: unexpected alignment format")

// Alignment is a global pairwise alignment of two sequences.
type Alignment struct {
	// Identity is Matches / Columns, in [0,1].
	Identity float64
	Matches  int
	Columns  int
	// Ref and Query are the gapped alignment rows. They are empty when the
	// identity was estimated without aligning.
	Ref   string
	Query string
}

// Mismatches returns the number of columns that are not identical matches.
func (a Alignment) Mismatches() int {
	return a.Columns - a.Matches
}

// Aligner computes a pairwise alignment. Implementations must be safe for
// concurrent use.
type Aligner interface {
	Align(a, b []byte) (Alignment, error)
}

// Scoring parameters of the nucleotide matrix.
const (
	matchScore    = 5
	mismatchScore = -4
	gapScore      = -6
)

// NW aligns sequences globally with Needleman-Wunsch over the IUPAC
// nucleotide alphabet. Sequences longer than MaxLength are not aligned:
// their identity is estimated from the length ratio.
type NW struct {
	MaxLength int
	matrix    align.NW
}

// DefaultMaxLength bounds the quadratic alignment table.
const DefaultMaxLength = 2000

// NewNW returns an NW aligner. A maxLength <= 0 selects DefaultMaxLength.
func NewNW(maxLength int) *NW {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &NW{MaxLength: maxLength, matrix: scoringMatrix()}
}

// scoringMatrix builds a linear-gap matrix indexed by the DNAredundant
// alphabet. Index 0 is the gap.
func scoringMatrix() align.NW {
	n := alphabet.DNAredundant.Len()
	m := make(align.NW, n)
	for i := range m {
		m[i] = make([]int, n)
		for j := range m[i] {
			switch {
			case i == 0 && j == 0:
				m[i][j] = 0
			case i == 0 || j == 0:
				m[i][j] = gapScore
			case i == j:
				m[i][j] = matchScore
			default:
				m[i][j] = mismatchScore
			}
		}
	}
	return m
}

// Align returns the global alignment of a and b.
func (n *NW) Align(a, b []byte) (Alignment, error) {
	switch {
	case len(a) == 0 && len(b) == 0:
		return Alignment{Identity: 1}, nil
	case len(a) == 0 || len(b) == 0:
		cols := len(a) + len(b)
		return Alignment{Columns: cols}, nil
	case len(a) > n.MaxLength || len(b) > n.MaxLength:
		return lengthEstimate(a, b), nil
	}

	ra := toSeq(a)
	rb := toSeq(b)
	aln, err := n.matrix.Align(ra, rb)
	if err != nil {
		return Alignment{}, fmt.Errorf("align: %w", err)
	}
	rows := align.Format(ra, rb, aln, '-')
	refRow, ok := rows[0].(alphabet.Letters)
	if !ok {
		return Alignment{}, ErrUnexpectedFormat
	}
	queryRow, ok := rows[1].(alphabet.Letters)
	if !ok {
		return Alignment{}, ErrUnexpectedFormat
	}
	return score(refRow, queryRow), nil
}

func score(ref, query alphabet.Letters) Alignment {
	cols := len(ref)
	if len(query) > cols {
		cols = len(query)
	}
	matches := 0
	for i := 0; i < len(ref) && i < len(query); i++ {
		if ref[i] != '-' && ref[i] == query[i] {
			matches++
		}
	}
	res := Alignment{
		Matches: matches,
		Columns: cols,
		Ref:     lettersString(ref),
		Query:   lettersString(query),
	}
	if cols > 0 {
		res.Identity = float64(matches) / float64(cols)
	}
	return res
}

func lettersString(ls alphabet.Letters) string {
	b := make([]byte, len(ls))
	for i, l := range ls {
		b[i] = byte(l)
	}
	return string(b)
}

// lengthEstimate treats the shorter sequence as fully matching the longer.
func lengthEstimate(a, b []byte) Alignment {
	short, long := len(a), len(b)
	if short > long {
		short, long = long, short
	}
	return Alignment{
		Identity: float64(short) / float64(long),
		Matches:  short,
		Columns:  long,
	}
}

// toSeq converts raw bases to a biogo sequence, mapping anything outside the
// IUPAC alphabet to n.
func toSeq(b []byte) *linear.Seq {
	letters := make(alphabet.Letters, len(b))
	for i, c := range b {
		l := alphabet.Letter(unicode.ToLower(rune(c)))
		if !alphabet.DNAredundant.IsValid(l) || l == '-' {
			l = 'n'
		}
		letters[i] = l
	}
	s := &linear.Seq{Seq: letters}
	s.Alpha = alphabet.DNAredundant
	return s
}
