package resolve

import (
	"fmt"
	"sort"

	"github.com/dusk-indust/reconcile/internal/graph"
	"github.com/dusk-indust/reconcile/internal/seqstore"
)

// thread is one input path being followed alongside the backbone. dir is +1
// when the path runs the same way as the backbone and -1 when it runs
// against it.
type thread struct {
	path graph.Path
	pos  int
	dir  int
}

// at returns the endpoint the thread occupies, oriented along the backbone.
func (t thread) at() graph.Endpoint {
	ep := t.path.Refs[t.pos].Endpoint()
	if t.dir < 0 {
		ep = ep.Reverse()
	}
	return ep
}

// step advances one ref. Circular paths wrap; linear paths report false at
// their end.
func (t thread) step() (thread, bool) {
	n := len(t.path.Refs)
	next := t.pos + t.dir
	if next < 0 || next >= n {
		if !t.path.Circular {
			return t, false
		}
		next = (next + n) % n
	}
	t.pos = next
	return t, true
}

// trail is what a thread walks during a bubble search: the endpoints it
// visits and the thread state after each step. A trail stops short of its
// own start, so a circular path is followed for at most one lap and never
// back through the bubble entry.
type trail struct {
	start thread
	eps   []graph.Endpoint
	steps []thread
	ended bool
}

func newTrail(t thread, limit int) trail {
	tr := trail{start: t}
	cur := t
	for s := 0; s < limit; s++ {
		nt, ok := cur.step()
		if !ok {
			tr.ended = true
			break
		}
		if nt.pos == t.pos {
			break
		}
		tr.eps = append(tr.eps, nt.at())
		tr.steps = append(tr.steps, nt)
		cur = nt
	}
	return tr
}

// reach returns the number of steps before the trail first enters ep, or -1.
func (tr trail) reach(ep graph.Endpoint) int {
	for s, e := range tr.eps {
		if e == ep {
			return s
		}
	}
	return -1
}

// loss records assemblies outvoted at a bubble, for identity scoring.
type loss struct {
	assemblies []string
	length     int
	diffs      int
}

// walk holds the state of one cluster's consensus construction.
type walk struct {
	r        *Resolver
	cluster  graph.Cluster
	backbone graph.Path

	active []thread
	ended  map[graph.PathID]bool

	refs    []graph.StrandedRef
	support []int
	voters  [][]string
	losses  []loss
	bubbles []Bubble
}

func newWalk(r *Resolver, c graph.Cluster, backbone graph.Path) *walk {
	return &walk{
		r:        r,
		cluster:  c,
		backbone: backbone,
		ended:    make(map[graph.PathID]bool),
	}
}

// endpointAt returns backbone position i, with len(refs) naming the closure
// back to position 0.
func (w *walk) endpointAt(i int) graph.Endpoint {
	return w.backbone.Refs[i%len(w.backbone.Refs)].Endpoint()
}

func (w *walk) run() error {
	n := len(w.backbone.Refs)
	w.active = []thread{{path: w.backbone, dir: 1}}

	i := 0
	for {
		w.join(i)
		w.record(w.backbone.Refs[i], w.activeAssemblies())

		next := i + 1
		if next == n && !w.backbone.Circular {
			return nil
		}
		target := w.endpointAt(next)

		live := w.active[:0]
		diverged := false
		for _, t := range w.active {
			nt, ok := t.step()
			if !ok {
				w.ended[t.path.ID] = true
				continue
			}
			if nt.at() != target {
				diverged = true
			}
			live = append(live, t)
		}
		w.active = live

		if !diverged {
			for k := range w.active {
				w.active[k], _ = w.active[k].step()
			}
			if next == n {
				return nil
			}
			i = next
			continue
		}

		j, err := w.bubble(i)
		if err != nil {
			return err
		}
		if j >= n {
			return nil
		}
		i = j
	}
}

// join starts threads for every path that reaches backbone position i and is
// not already followed. A path that ran off its linear end never rejoins.
func (w *walk) join(i int) {
	ep := w.endpointAt(i)
	node, ok := w.r.g.Node(ep.Segment)
	if !ok {
		return
	}
	following := make(map[graph.PathID]bool, len(w.active))
	for _, t := range w.active {
		following[t.path.ID] = true
	}
	added := false
	for _, tr := range node.Traversals {
		if following[tr.Path] || w.ended[tr.Path] {
			continue
		}
		p, err := w.r.g.Path(tr.Path)
		if err != nil {
			continue
		}
		dir := 1
		if tr.Strand != ep.Strand {
			dir = -1
		}
		w.active = append(w.active, thread{path: p, pos: tr.Position, dir: dir})
		following[tr.Path] = true
		added = true
	}
	if added {
		sort.SliceStable(w.active, func(a, b int) bool {
			return w.active[a].path.ID < w.active[b].path.ID
		})
	}
}

func (w *walk) activeAssemblies() []string {
	ids := make([]graph.PathID, len(w.active))
	for k, t := range w.active {
		ids[k] = t.path.ID
	}
	return w.r.g.AssembliesOf(ids)
}

func (w *walk) record(ref graph.StrandedRef, assemblies []string) {
	w.refs = append(w.refs, ref)
	w.support = append(w.support, len(assemblies))
	w.voters = append(w.voters, assemblies)
}

// bubble handles a divergence after backbone position i and returns the
// backbone position the walk continues from.
func (w *walk) bubble(i int) (int, error) {
	limit := w.r.opts.MaxBubbleDepth
	n := len(w.backbone.Refs)
	last := n - 1
	if w.backbone.Circular {
		last = n
	}

	trails := make([]trail, len(w.active))
	for k, t := range w.active {
		trails[k] = newTrail(t, limit)
	}

	hi := min(i+limit, last)
	for j := i + 1; j <= hi; j++ {
		converged := true
		for _, tr := range trails {
			if w.exitStep(tr, i, j) >= 0 {
				continue
			}
			// A trail that ran off its end without touching the backbone at
			// or beyond j is dangling and does not hold the exit back.
			if !tr.ended || w.reachesBackbone(tr, j, hi) {
				converged = false
				break
			}
		}
		if converged {
			return j, w.converge(i, j, trails)
		}
	}
	return i + 1, w.unresolved(i, trails)
}

// exitStep returns the step at which tr enters backbone position j of a
// bubble entered at i, or -1. The backbone's own trail is matched by
// position so a repeated segment is not mistaken for the exit.
func (w *walk) exitStep(tr trail, i, j int) int {
	if tr.start.path.ID != w.backbone.ID {
		return tr.reach(w.endpointAt(j))
	}
	if s := j - i - 1; s < len(tr.eps) {
		return s
	}
	return -1
}

// reachesBackbone reports whether tr enters any backbone position in [from, to].
func (w *walk) reachesBackbone(tr trail, from, to int) bool {
	for k := from; k <= to; k++ {
		if tr.reach(w.endpointAt(k)) >= 0 {
			return true
		}
	}
	return false
}

// converge votes between the sub-paths the trails take from position i to
// position j and moves every voting thread to j. Threads that end before j
// are retired without a vote.
func (w *walk) converge(i, j int, trails []trail) error {
	exit := w.endpointAt(j)

	byKey := make(map[string]*Alternative)
	var order []string
	var moved []thread
	for _, tr := range trails {
		s := w.exitStep(tr, i, j)
		if s < 0 {
			w.ended[tr.start.path.ID] = true
			continue
		}
		interior := make([]graph.StrandedRef, s)
		for k, ep := range tr.eps[:s] {
			interior[k] = ep.Ref()
		}
		key := graph.FormatRefs(interior)
		alt, ok := byKey[key]
		if !ok {
			alt = &Alternative{Refs: interior}
			byKey[key] = alt
			order = append(order, key)
		}
		alt.Paths = append(alt.Paths, tr.start.path.ID)
		if tr.start.path.ID == w.backbone.ID {
			alt.Backbone = true
		}
		moved = append(moved, tr.steps[s])
	}

	alts := make([]Alternative, 0, len(order))
	for _, key := range order {
		alt := byKey[key]
		sort.Slice(alt.Paths, func(a, b int) bool { return alt.Paths[a] < alt.Paths[b] })
		alt.Assemblies = w.r.g.AssembliesOf(alt.Paths)
		alt.Depth = len(alt.Paths)
		alts = append(alts, *alt)
	}

	seqs, err := w.scoreIdentity(alts)
	if err != nil {
		return err
	}
	ranked := w.r.rank(alts)
	chosen := ranked[0]
	alts[chosen].Chosen = true

	if err := w.recordLosses(alts, seqs, chosen); err != nil {
		return err
	}
	for _, ref := range alts[chosen].Refs {
		w.record(ref, alts[chosen].Assemblies)
	}

	ordered := make([]Alternative, len(ranked))
	for k, idx := range ranked {
		ordered[k] = alts[idx]
	}
	w.bubbles = append(w.bubbles, Bubble{
		Cluster:      w.cluster.ID,
		Entry:        w.endpointAt(i),
		Exit:         exit,
		Resolved:     true,
		SearchDepth:  j - i,
		Alternatives: ordered,
	})

	sort.SliceStable(moved, func(a, b int) bool { return moved[a].path.ID < moved[b].path.ID })
	w.active = moved
	return nil
}

// scoreIdentity spells every alternative and aligns it against the
// backbone's own alternative.
func (w *walk) scoreIdentity(alts []Alternative) ([][]byte, error) {
	seqs := make([][]byte, len(alts))
	incumbent := -1
	for k := range alts {
		s, err := w.r.g.Spell(alts[k].Refs)
		if err != nil {
			return nil, err
		}
		seqs[k] = s
		if alts[k].Backbone {
			incumbent = k
		}
	}
	if incumbent < 0 {
		return nil, fmt.Errorf("backbone path %d missing from bubble", w.backbone.ID)
	}
	for k := range alts {
		if k == incumbent {
			alts[k].Identity = 1
			continue
		}
		al, err := w.r.aligner.Align(seqs[incumbent], seqs[k])
		if err != nil {
			return nil, err
		}
		alts[k].Identity = al.Identity
	}
	return seqs, nil
}

// recordLosses charges every outvoted assembly with the differences between
// its sub-path and the chosen one.
func (w *walk) recordLosses(alts []Alternative, seqs [][]byte, chosen int) error {
	winners := make(map[string]bool, len(alts[chosen].Assemblies))
	for _, a := range alts[chosen].Assemblies {
		winners[a] = true
	}
	for k, alt := range alts {
		if k == chosen {
			continue
		}
		var losers []string
		for _, a := range alt.Assemblies {
			if !winners[a] {
				losers = append(losers, a)
			}
		}
		if len(losers) == 0 {
			continue
		}
		al, err := w.r.aligner.Align(seqs[chosen], seqs[k])
		if err != nil {
			return err
		}
		w.losses = append(w.losses, loss{
			assemblies: losers,
			length:     len(seqs[chosen]),
			diffs:      al.Mismatches(),
		})
	}
	return nil
}

// unresolved reports a divergence after position i that never reconverged.
// The backbone's next segment is kept; threads leaving the backbone stop
// voting until they reach a later backbone position.
func (w *walk) unresolved(i int, trails []trail) error {
	target := w.endpointAt(i + 1)

	byFirst := make(map[graph.Endpoint]*Alternative)
	var order []graph.Endpoint
	var keep []thread
	for _, tr := range trails {
		if len(tr.eps) == 0 {
			continue
		}
		first := tr.eps[0]
		alt, ok := byFirst[first]
		if !ok {
			refs := make([]graph.StrandedRef, len(tr.eps))
			for k, ep := range tr.eps {
				refs[k] = ep.Ref()
			}
			alt = &Alternative{Refs: refs}
			byFirst[first] = alt
			order = append(order, first)
		}
		alt.Paths = append(alt.Paths, tr.start.path.ID)
		if tr.start.path.ID == w.backbone.ID {
			alt.Backbone = true
			alt.Chosen = true
		}
		if first == target {
			keep = append(keep, tr.steps[0])
		}
	}

	alts := make([]Alternative, 0, len(order))
	for _, ep := range order {
		alt := byFirst[ep]
		alt.Assemblies = w.r.g.AssembliesOf(alt.Paths)
		alt.Depth = len(alt.Paths)
		alts = append(alts, *alt)
	}
	sort.SliceStable(alts, func(a, b int) bool { return alts[a].Backbone && !alts[b].Backbone })

	limit := w.r.opts.MaxBubbleDepth
	w.bubbles = append(w.bubbles, Bubble{
		Cluster:      w.cluster.ID,
		Entry:        w.endpointAt(i),
		SearchDepth:  limit,
		Alternatives: alts,
		Reason:       fmt.Sprintf("no re-convergence within %d segments", limit),
	})
	w.active = keep
	return nil
}

// skipped returns the cluster segments that are neither on the consensus
// nor reported by a bubble. Every segment of a path that left the backbone
// at an unresolved bubble counts as reported.
func (w *walk) skipped() []seqstore.SegmentID {
	seen := make(map[seqstore.SegmentID]bool, len(w.cluster.Segments))
	mark := func(refs []graph.StrandedRef) {
		for _, ref := range refs {
			seen[ref.Segment] = true
		}
	}
	mark(w.refs)
	for _, b := range w.bubbles {
		for _, alt := range b.Alternatives {
			mark(alt.Refs)
			if b.Resolved {
				continue
			}
			for _, id := range alt.Paths {
				if p, err := w.r.g.Path(id); err == nil {
					mark(p.Refs)
				}
			}
		}
	}
	var out []seqstore.SegmentID
	for _, s := range w.cluster.Segments {
		if !seen[s] {
			out = append(out, s)
		}
	}
	return out
}

// identities returns each cluster assembly's identity to the consensus: one
// minus the differences charged at lost bubbles over the bases it covered.
func (w *walk) identities() map[string]float64 {
	covered := make(map[string]int)
	diffs := make(map[string]int)
	for k, ref := range w.refs {
		length := w.r.g.SpellLength([]graph.StrandedRef{ref})
		for _, a := range w.voters[k] {
			covered[a] += length
		}
	}
	for _, l := range w.losses {
		for _, a := range l.assemblies {
			covered[a] += l.length
			diffs[a] += l.diffs
		}
	}

	out := make(map[string]float64, len(w.cluster.Assemblies))
	for _, a := range w.cluster.Assemblies {
		if covered[a] == 0 {
			out[a] = 0
			continue
		}
		out[a] = max(0, 1-float64(diffs[a])/float64(covered[a]))
	}
	return out
}
