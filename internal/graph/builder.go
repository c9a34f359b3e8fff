package graph

import (
	"log"
	"sort"

	"github.com/dusk-indust/reconcile/internal/seqstore"
)

// Builder collects input paths and merges them into one combined Graph.
// Build does not depend on the order in which paths were added.
type Builder struct {
	seqs     *seqstore.Store
	inputs   []Path
	rejected map[string]*InputError
}

// NewBuilder returns a Builder over an already populated sequence store.
func NewBuilder(seqs *seqstore.Store) *Builder {
	return &Builder{seqs: seqs}
}

// Add queues a path for building. Its ID is reassigned by Build.
func (b *Builder) Add(p Path) {
	b.inputs = append(b.inputs, p)
}

// AddAll queues every path in ps.
func (b *Builder) AddAll(ps []Path) {
	b.inputs = append(b.inputs, ps...)
}

// Reject marks an assembly as malformed before any of its paths are built,
// for problems found during ingestion. The first rejection per assembly is
// kept.
func (b *Builder) Reject(ierr *InputError) {
	if b.rejected == nil {
		b.rejected = make(map[string]*InputError)
	}
	if _, ok := b.rejected[ierr.Assembly]; !ok {
		b.rejected[ierr.Assembly] = ierr
	}
}

// Build validates every queued path and merges the survivors into a Graph.
//
// A malformed path drops its whole assembly: the returned InputErrors name
// each dropped assembly and the first reason found. Surviving paths are
// sorted by (assembly, name, refs) before ids are assigned.
func (b *Builder) Build() (*Graph, []*InputError) {
	byAssembly := make(map[string][]Path)
	for _, p := range b.inputs {
		byAssembly[p.Assembly] = append(byAssembly[p.Assembly], p)
	}
	for asm := range b.rejected {
		if _, ok := byAssembly[asm]; !ok {
			byAssembly[asm] = nil
		}
	}

	names := make([]string, 0, len(byAssembly))
	for name := range byAssembly {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		kept    []Path
		dropped []*InputError
	)
	for _, asm := range names {
		ierr := b.rejected[asm]
		if ierr == nil {
			ierr = b.checkAssembly(asm, byAssembly[asm])
		}
		if ierr != nil {
			log.Printf("WARNING: dropping assembly %q: %v", asm, ierr)
			dropped = append(dropped, ierr)
			continue
		}
		kept = append(kept, byAssembly[asm]...)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, c := kept[i], kept[j]
		if a.Assembly != c.Assembly {
			return a.Assembly < c.Assembly
		}
		if a.Name != c.Name {
			return a.Name < c.Name
		}
		return a.RefString() < c.RefString()
	})

	g := &Graph{
		seqs:  b.seqs,
		nodes: make(map[seqstore.SegmentID]*Node),
		edges: make(map[EdgeKey]*Edge),
		next:  make(map[Endpoint][]Endpoint),
	}
	asmSet := make(map[string]bool)
	for i := range kept {
		p := kept[i]
		p.ID = PathID(i + 1)
		p.Refs = append([]StrandedRef(nil), p.Refs...)
		g.paths = append(g.paths, p)
		asmSet[p.Assembly] = true
		g.insertPath(p)
	}
	g.assemblies = sortedKeys(asmSet)
	g.finish()
	return g, dropped
}

// checkAssembly returns the first problem found in an assembly's paths.
func (b *Builder) checkAssembly(asm string, paths []Path) *InputError {
	if asm == "" {
		return &InputError{Assembly: asm, Path: firstName(paths), Reason: "missing assembly id"}
	}
	for _, p := range paths {
		if len(p.Refs) == 0 {
			return &InputError{Assembly: asm, Path: p.Name, Reason: "path has no segments"}
		}
		for i, r := range p.Refs {
			if !b.seqs.Has(r.Segment) {
				return &InputError{Assembly: asm, Path: p.Name, Reason: "unknown segment " + r.String()}
			}
			if r.Strand != seqstore.Forward && r.Strand != seqstore.Reverse {
				return &InputError{Assembly: asm, Path: p.Name, Reason: "invalid strand at " + r.String()}
			}
			if err := seqstore.CheckTrim(b.seqs.Len(r.Segment), r.TrimStart, r.TrimEnd); err != nil {
				return &InputError{Assembly: asm, Path: p.Name, Reason: err.Error()}
			}
			// Trims are only meaningful at a contig's ends.
			if (r.TrimStart > 0 && i != 0) || (r.TrimEnd > 0 && i != len(p.Refs)-1) {
				return &InputError{Assembly: asm, Path: p.Name, Reason: "interior trim at " + r.String()}
			}
		}
		if p.Length > 0 {
			if got := spellLength(b.seqs, p.Refs); got != p.Length {
				return &InputError{Assembly: asm, Path: p.Name, Reason: "declared length does not match segments"}
			}
		}
	}
	return nil
}

func spellLength(seqs *seqstore.Store, refs []StrandedRef) int {
	total := 0
	for _, r := range refs {
		total += seqs.Len(r.Segment) - r.TrimStart - r.TrimEnd
	}
	return total
}

func firstName(paths []Path) string {
	if len(paths) == 0 {
		return ""
	}
	return paths[0].Name
}
