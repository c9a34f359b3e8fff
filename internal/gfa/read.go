// Package gfa reads assembly graphs in GFA v1 into interned paths and writes
// combined and consensus graphs back out.
package gfa

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/seqstore"
)

// ErrSyntax is wrapped by every parse failure.
var ErrSyntax = errors.New("gfa: syntax error")

// Document is the content of one GFA file after interning.
type Document struct {
	// Paths holds one entry per P line, in file order.
	Paths []graph.Path
	// Segments maps GFA segment names to interned refs. A segment whose
	// reverse complement was already stored maps to the reverse strand.
	Segments map[string]graph.StrandedRef
	Links    int
	// Rejected holds P lines whose steps could not be resolved. Their
	// assemblies should be dropped from the run.
	Rejected []*graph.InputError
}

// ReadFile reads a GFA file. P lines without an FN tag are attributed to an
// assembly named after the file.
func ReadFile(path string, seqs *seqstore.Store) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := Read(f, seqs, AssemblyName(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// AssemblyName derives an assembly id from a file path: the base name
// without extension.
func AssemblyName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Read parses GFA v1 from r. Segments are interned into seqs as they are
// read. Links must have a 0M overlap and name known segments. Unknown line
// types are ignored. A P line stepping through an unknown segment is
// rejected rather than failing the file.
func Read(r io.Reader, seqs *seqstore.Store, defaultAssembly string) (*Document, error) {
	doc := &Document{Segments: make(map[string]graph.StrandedRef)}
	var links, paths []numbered

	br := bufio.NewReaderSize(r, 1<<16)
	for n := 1; ; n++ {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			fields := strings.Split(line, "\t")
			switch fields[0] {
			case "S":
				if perr := doc.segment(fields, seqs); perr != nil {
					return nil, lineErr(n, perr)
				}
			case "L":
				links = append(links, numbered{n, fields})
			case "P":
				paths = append(paths, numbered{n, fields})
			}
		}
		if err == io.EOF {
			break
		}
	}

	for _, l := range links {
		if err := doc.link(l.fields); err != nil {
			return nil, lineErr(l.n, err)
		}
	}
	for _, p := range paths {
		path, err := doc.path(p.fields, defaultAssembly)
		var inputErr *graph.InputError
		switch {
		case errors.As(err, &inputErr):
			doc.Rejected = append(doc.Rejected, inputErr)
		case err != nil:
			return nil, lineErr(p.n, err)
		default:
			doc.Paths = append(doc.Paths, path)
		}
	}
	return doc, nil
}

type numbered struct {
	n      int
	fields []string
}

func lineErr(n int, err error) error {
	return fmt.Errorf("%w: line %d: %v", ErrSyntax, n, err)
}

func (d *Document) segment(fields []string, seqs *seqstore.Store) error {
	if len(fields) < 3 {
		return errors.New("S line needs a name and a sequence")
	}
	name, seq := fields[1], fields[2]
	if seq == "*" {
		return fmt.Errorf("segment %s has no sequence", name)
	}
	if _, dup := d.Segments[name]; dup {
		return fmt.Errorf("duplicate segment %s", name)
	}
	id, strand, err := seqs.Intern([]byte(seq))
	if err != nil {
		return fmt.Errorf("segment %s: %w", name, err)
	}
	d.Segments[name] = graph.StrandedRef{Segment: id, Strand: strand}
	return nil
}

func (d *Document) link(fields []string) error {
	if len(fields) < 6 {
		return errors.New("L line needs six fields")
	}
	if fields[5] != "0M" {
		return fmt.Errorf("overlap %q, only 0M links are supported", fields[5])
	}
	for _, f := range []int{1, 3} {
		if _, ok := d.Segments[fields[f]]; !ok {
			return fmt.Errorf("link refers to unknown segment %s", fields[f])
		}
	}
	for _, f := range []int{2, 4} {
		if _, err := seqstore.ParseStrand(fields[f]); err != nil {
			return err
		}
	}
	d.Links++
	return nil
}

// path parses a P line. Step errors come back as *graph.InputError so the
// caller can drop just that assembly.
func (d *Document) path(fields []string, defaultAssembly string) (graph.Path, error) {
	if len(fields) < 3 {
		return graph.Path{}, errors.New("P line needs a name and a segment list")
	}
	p := graph.Path{Assembly: defaultAssembly, Name: fields[1]}

	var trimStart, trimEnd int
	var err error
	for _, tag := range fields[3:] {
		key, val, ok := splitTag(tag)
		if !ok {
			continue
		}
		switch key {
		case "LN:i":
			if p.Length, err = strconv.Atoi(val); err != nil {
				return graph.Path{}, fmt.Errorf("bad LN tag %q", tag)
			}
		case "FN:Z":
			p.Assembly = val
		case "HD:Z":
			p.Header = val
			if name := strings.Fields(val); len(name) > 0 {
				p.Name = name[0]
			}
			p.Circular = p.Circular || headerCircular(val)
		case "CI:A":
			p.Circular = p.Circular || val == "Y"
		case "TS:i":
			if trimStart, err = strconv.Atoi(val); err != nil {
				return graph.Path{}, fmt.Errorf("bad trim tag %q", tag)
			}
		case "TE:i":
			if trimEnd, err = strconv.Atoi(val); err != nil {
				return graph.Path{}, fmt.Errorf("bad trim tag %q", tag)
			}
		}
	}
	if p.Assembly == "" {
		return graph.Path{}, fmt.Errorf("path %s has no assembly", fields[1])
	}

	refs, reason := d.refs(fields[2])
	if reason != "" {
		return graph.Path{}, &graph.InputError{Assembly: p.Assembly, Path: p.Name, Reason: reason}
	}
	refs[0].TrimStart = trimStart
	refs[len(refs)-1].TrimEnd = trimEnd
	p.Refs = refs
	return p, nil
}

// refs parses a segment list such as "s1+,s4-" against known segment names.
// A non-empty reason reports why the list is unusable.
func (d *Document) refs(list string) ([]graph.StrandedRef, string) {
	if list == "" || list == "*" {
		return nil, "empty segment list"
	}
	parts := strings.Split(list, ",")
	out := make([]graph.StrandedRef, 0, len(parts))
	for _, part := range parts {
		if len(part) < 2 {
			return nil, fmt.Sprintf("bad path step %q", part)
		}
		strand, err := seqstore.ParseStrand(part[len(part)-1:])
		if err != nil {
			return nil, fmt.Sprintf("bad path step %q: %v", part, err)
		}
		ref, ok := d.Segments[part[:len(part)-1]]
		if !ok {
			return nil, fmt.Sprintf("unknown segment %s", part[:len(part)-1])
		}
		if strand == seqstore.Reverse {
			ref.Strand = ref.Strand.Flip()
		}
		out = append(out, ref)
	}
	return out, ""
}

// splitTag splits "LN:i:42" into "LN:i" and "42".
func splitTag(tag string) (string, string, bool) {
	if len(tag) < 5 || tag[2] != ':' || tag[4] != ':' {
		return "", "", false
	}
	return tag[:4], tag[5:], true
}

// headerCircular reports whether a contig header carries a circularity hint.
func headerCircular(header string) bool {
	for _, tok := range strings.Fields(header) {
		switch strings.ToLower(tok) {
		case "circular=true", "circular=yes", "circular=y", "suggestcircular=yes":
			return true
		}
	}
	return false
}
