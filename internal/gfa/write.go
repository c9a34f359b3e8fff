package gfa

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dusk-indust/reconcile/internal/emit"
	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/seqstore"
)

const header = "H\tVN:Z:1.0"

// Numbering maps segment ids to the numbers used in a written file.
type Numbering map[seqstore.SegmentID]int

// Renumber orders a graph's segments by length descending, then sequence,
// and numbers them from 1. The result depends only on segment content.
func Renumber(g *graph.Graph) (Numbering, []seqstore.SegmentID, error) {
	nodes := g.Nodes()
	ids := make([]seqstore.SegmentID, len(nodes))
	seqs := make(map[seqstore.SegmentID][]byte, len(nodes))
	for i, n := range nodes {
		s, err := g.Seqs().Fetch(n.Segment)
		if err != nil {
			return nil, nil, err
		}
		ids[i] = n.Segment
		seqs[n.Segment] = s
	}
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := seqs[ids[i]], seqs[ids[j]]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return bytes.Compare(a, b) < 0
	})
	num := make(Numbering, len(ids))
	for i, id := range ids {
		num[id] = i + 1
	}
	return num, ids, nil
}

func (n Numbering) ref(r graph.StrandedRef) string {
	return strconv.Itoa(n[r.Segment]) + r.Strand.String()
}

// Write emits the combined graph: segments with their path depth, links in
// both orientations, and one P line per input path.
func Write(w io.Writer, g *graph.Graph) error {
	num, order, err := Renumber(g)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, header)
	for _, id := range order {
		node, _ := g.Node(id)
		seq, err := g.Seqs().Fetch(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(bw, "S\t%d\t%s\tDP:f:%d\n", num[id], seq, node.Depth)
	}

	for _, l := range linkLines(g, num) {
		fmt.Fprintln(bw, l)
	}

	for _, p := range g.Paths() {
		fmt.Fprintln(bw, pathLine(p, num, g.SpellLength(p.Refs)))
	}
	return bw.Flush()
}

type link struct {
	from, to             int
	fromStrand, toStrand seqstore.Strand
}

func linkLines(g *graph.Graph, num Numbering) []string {
	seen := make(map[link]bool)
	var links []link
	add := func(from, to graph.Endpoint) {
		l := link{num[from.Segment], num[to.Segment], from.Strand, to.Strand}
		if !seen[l] {
			seen[l] = true
			links = append(links, l)
		}
	}
	for _, e := range g.Edges() {
		add(e.From, e.To)
		add(e.To.Reverse(), e.From.Reverse())
	}
	sort.Slice(links, func(i, j int) bool {
		a, b := links[i], links[j]
		if a.from != b.from {
			return a.from < b.from
		}
		if a.fromStrand != b.fromStrand {
			return a.fromStrand < b.fromStrand
		}
		if a.to != b.to {
			return a.to < b.to
		}
		return a.toStrand < b.toStrand
	})
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = fmt.Sprintf("L\t%d\t%s\t%d\t%s\t0M", l.from, l.fromStrand, l.to, l.toStrand)
	}
	return out
}

func pathLine(p graph.Path, num Numbering, length int) string {
	steps := make([]string, len(p.Refs))
	for i, r := range p.Refs {
		steps[i] = num.ref(r)
	}
	hd := p.Header
	if hd == "" {
		hd = p.Name
	}
	var b strings.Builder
	fmt.Fprintf(&b, "P\t%d\t%s\t*\tLN:i:%d\tFN:Z:%s\tHD:Z:%s",
		p.ID, strings.Join(steps, ","), length, p.Assembly, hd)
	if p.Circular {
		b.WriteString("\tCI:A:Y")
	}
	if n := len(p.Refs); n > 0 {
		if t := p.Refs[0].TrimStart; t > 0 {
			fmt.Fprintf(&b, "\tTS:i:%d", t)
		}
		if t := p.Refs[n-1].TrimEnd; t > 0 {
			fmt.Fprintf(&b, "\tTE:i:%d", t)
		}
	}
	return b.String()
}

// WriteConsensus emits one segment per consensus record, numbered by
// cluster id, with a self link closing each circular replicon. DP:f holds
// the mean per-base support.
func WriteConsensus(w io.Writer, recs []emit.Record) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, header)
	for _, r := range recs {
		fmt.Fprintf(bw, "S\t%d\t%s\tDP:f:%.2f\tLN:i:%d\n", r.Cluster.ID, r.Sequence, r.MeanSupport(), r.Length())
	}
	for _, r := range recs {
		if r.Circular {
			fmt.Fprintf(bw, "L\t%d\t+\t%d\t+\t0M\n", r.Cluster.ID, r.Cluster.ID)
		}
	}
	return bw.Flush()
}
