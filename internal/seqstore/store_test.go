package seqstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevComp(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ACGT", "ACGT"},
		{"AAAC", "GTTT"},
		{"acgtn", "nacgt"},
		{"RYKM", "KMRY"},
		{"AX", "NT"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, string(RevComp([]byte(tt.in))))
		})
	}
	assert.Nil(t, RevComp(nil))
}

func TestStore_InternDeduplicates(t *testing.T) {
	s := New()

	id1, st1, err := s.Intern([]byte("AACCG"))
	require.NoError(t, err)
	assert.Equal(t, SegmentID(1), id1)
	assert.Equal(t, Forward, st1)

	id2, st2, err := s.Intern([]byte("aaccg"))
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "case must not matter")
	assert.Equal(t, Forward, st2)

	id3, st3, err := s.Intern([]byte("CGGTT"))
	require.NoError(t, err)
	assert.Equal(t, id1, id3, "reverse complement maps to the same segment")
	assert.Equal(t, Reverse, st3)

	id4, _, err := s.Intern([]byte("GGGG"))
	require.NoError(t, err)
	assert.Equal(t, SegmentID(2), id4)
	assert.Equal(t, 2, s.Count())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ACGTRYN", string(Normalize([]byte("acgtry*"))))
	assert.Equal(t, "ANA", string(Normalize([]byte("AXA"))))
}

func TestStore_InternNonIUPACStoredAsN(t *testing.T) {
	s := New()
	id, st, err := s.Intern([]byte("TNT"))
	require.NoError(t, err)
	assert.Equal(t, Forward, st)

	again, st, err := s.Intern([]byte("AXA"))
	require.NoError(t, err)
	assert.Equal(t, id, again, "AXA is read as ANA, the reverse complement of TNT")
	assert.Equal(t, Reverse, st)

	got, err := s.Oriented(again, st, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "ANA", string(got), "spelling back matches the normalized input")

	x, st, err := s.Intern([]byte("GXC"))
	require.NoError(t, err)
	assert.Equal(t, Forward, st)
	stored, err := s.Fetch(x)
	require.NoError(t, err)
	assert.Equal(t, "GNC", string(stored))
}

func TestStore_InternPalindromeIsForward(t *testing.T) {
	s := New()
	id, st, err := s.Intern([]byte("GAATTC"))
	require.NoError(t, err)
	again, st2, err := s.Intern([]byte("GAATTC"))
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, Forward, st)
	assert.Equal(t, Forward, st2)
}

func TestStore_InternEmpty(t *testing.T) {
	_, _, err := New().Intern(nil)
	assert.ErrorIs(t, err, ErrEmptySequence)
}

func TestStore_FetchUnknown(t *testing.T) {
	s := New()
	_, err := s.Fetch(1)
	assert.ErrorIs(t, err, ErrUnknownSegment)
	assert.False(t, s.Has(0))
	assert.Equal(t, 0, s.Len(7))
}

func TestStore_Oriented(t *testing.T) {
	s := New()
	id, _, err := s.Intern([]byte("AACCGT"))
	require.NoError(t, err)

	tests := []struct {
		name       string
		strand     Strand
		start, end int
		want       string
		wantErr    bool
	}{
		{"forward whole", Forward, 0, 0, "AACCGT", false},
		{"reverse whole", Reverse, 0, 0, "ACGGTT", false},
		{"forward trimmed", Forward, 1, 2, "ACC", false},
		{"reverse trimmed", Reverse, 2, 1, "GGT", false},
		{"trim consumes all", Forward, 3, 3, "", true},
		{"negative trim", Forward, -1, 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Oriented(id, tt.strand, tt.start, tt.end)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadTrim)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}

	// The stored copy is untouched by orientation.
	stored, err := s.Fetch(id)
	require.NoError(t, err)
	assert.Equal(t, "AACCGT", string(stored))
}

func TestStore_ConcurrentIntern(t *testing.T) {
	s := New()
	seqs := []string{"AAAA", "CCCC", "ACGA", "TCGT"}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := s.Intern([]byte(seqs[i%len(seqs)]))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// ACGA and TCGT are reverse complements of each other.
	assert.Equal(t, 3, s.Count())
}

func TestParseStrand(t *testing.T) {
	st, err := ParseStrand("-")
	require.NoError(t, err)
	assert.Equal(t, Reverse, st)
	assert.Equal(t, Forward, st.Flip())

	_, err = ParseStrand("x")
	assert.Error(t, err)
}
