package seqstore

var complement [256]byte

func init() {
	pairs := []struct{ a, b byte }{
		{'A', 'T'}, {'C', 'G'},
		{'R', 'Y'}, {'S', 'S'}, {'W', 'W'},
		{'K', 'M'}, {'B', 'V'}, {'D', 'H'},
		{'N', 'N'},
	}
	for _, p := range pairs {
		complement[p.a] = p.b
		complement[p.b] = p.a
		complement[p.a+'a'-'A'] = p.b + 'a' - 'A'
		complement[p.b+'a'-'A'] = p.a + 'a' - 'A'
	}
}

// RevComp returns the reverse complement of seq using IUPAC ambiguity codes.
// Bytes outside the IUPAC alphabet complement to N.
func RevComp(seq []byte) []byte {
	n := len(seq)
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		c := complement[seq[n-1-i]]
		if c == 0 {
			c = 'N'
		}
		out[i] = c
	}
	return out
}

// Normalize upper-cases seq into a new slice and replaces every byte outside
// the IUPAC alphabet with N, the same way RevComp reads it.
func Normalize(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		if b >= 'a' && b <= 'z' {
			b -= 'a' - 'A'
		}
		if complement[b] == 0 {
			b = 'N'
		}
		out[i] = b
	}
	return out
}
