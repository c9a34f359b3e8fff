// Package seqstore interns nucleotide sequences so that identical content
// shared by several assemblies is stored once under a stable identifier.
package seqstore

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrEmptySequence  = errors.New("seqstore: empty sequence")
	ErrUnknownSegment = errors.New("seqstore: unknown segment")
	ErrBadTrim        = errors.New("seqstore: trim out of range")
)

// SegmentID identifies an interned sequence. IDs start at 1 and are never reused.
type SegmentID int

// Store is an append-only arena of sequences. It is safe for concurrent use.
// Content is normalized on entry, so lookups are case-insensitive and any
// non-IUPAC byte is stored as N.
type Store struct {
	mu    sync.RWMutex
	seqs  [][]byte
	index map[string]SegmentID
}

// New returns an empty Store.
func New() *Store {
	return &Store{index: make(map[string]SegmentID)}
}

// Intern returns the ID of seq, allocating one if neither seq nor its reverse
// complement has been seen before. The returned strand is Reverse when seq
// matched the reverse complement of stored content. Palindromic sequences
// always resolve as Forward.
func (s *Store) Intern(seq []byte) (SegmentID, Strand, error) {
	if len(seq) == 0 {
		return 0, Forward, ErrEmptySequence
	}
	norm := Normalize(seq)
	rc := RevComp(norm)

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.index[string(norm)]; ok {
		return id, Forward, nil
	}
	if id, ok := s.index[string(rc)]; ok {
		return id, Reverse, nil
	}
	s.seqs = append(s.seqs, norm)
	id := SegmentID(len(s.seqs))
	s.index[string(norm)] = id
	return id, Forward, nil
}

// Fetch returns the stored forward sequence. The slice is shared and must
// not be modified.
func (s *Store) Fetch(id SegmentID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 1 || int(id) > len(s.seqs) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSegment, id)
	}
	return s.seqs[id-1], nil
}

// Has reports whether id refers to a stored sequence.
func (s *Store) Has(id SegmentID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return id >= 1 && int(id) <= len(s.seqs)
}

// Len returns the length of the stored sequence, or 0 for an unknown id.
func (s *Store) Len(id SegmentID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 1 || int(id) > len(s.seqs) {
		return 0
	}
	return len(s.seqs[id-1])
}

// Count returns the number of stored sequences.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seqs)
}

// Oriented returns a fresh copy of the sequence read on the given strand with
// trimStart bases removed from its start and trimEnd from its end. Trims are
// measured on the oriented sequence and must leave at least one base.
func (s *Store) Oriented(id SegmentID, strand Strand, trimStart, trimEnd int) ([]byte, error) {
	seq, err := s.Fetch(id)
	if err != nil {
		return nil, err
	}
	if err := CheckTrim(len(seq), trimStart, trimEnd); err != nil {
		return nil, err
	}
	var out []byte
	if strand == Reverse {
		out = RevComp(seq)
	} else {
		out = make([]byte, len(seq))
		copy(out, seq)
	}
	return out[trimStart : len(out)-trimEnd], nil
}

// CheckTrim validates trim bounds against a segment length.
func CheckTrim(length, trimStart, trimEnd int) error {
	if trimStart < 0 || trimEnd < 0 || trimStart+trimEnd >= length {
		return fmt.Errorf("%w: start=%d end=%d length=%d", ErrBadTrim, trimStart, trimEnd, length)
	}
	return nil
}
