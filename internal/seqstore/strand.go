package seqstore

import "fmt"

// Strand is the orientation in which a segment is read.
type Strand byte

const (
	Forward Strand = '+'
	Reverse Strand = '-'
)

// Flip returns the opposite orientation.
func (s Strand) Flip() Strand {
	if s == Reverse {
		return Forward
	}
	return Reverse
}

func (s Strand) String() string {
	if s == Reverse {
		return "-"
	}
	return "+"
}

// MarshalText encodes the strand as "+" or "-".
func (s Strand) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts "+" or "-".
func (s *Strand) UnmarshalText(b []byte) error {
	st, err := ParseStrand(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseStrand converts "+" or "-" into a Strand.
func ParseStrand(v string) (Strand, error) {
	switch v {
	case "+":
		return Forward, nil
	case "-":
		return Reverse, nil
	default:
		return Forward, fmt.Errorf("seqstore: invalid strand %q", v)
	}
}
