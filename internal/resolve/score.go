package resolve

import (
	"sort"

	"github.com/dusk-indust/reconcile/internal/graph"
)

// rank returns the indices of alts, best first. Assembly count always leads;
// depth and identity follow in the configured order; the backbone's own
// alternative and then the lexically smallest path notation settle the rest.
func (r *Resolver) rank(alts []Alternative) []int {
	idx := make([]int, len(alts))
	for k := range idx {
		idx[k] = k
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return r.better(alts[idx[a]], alts[idx[b]])
	})
	return idx
}

func (r *Resolver) better(a, b Alternative) bool {
	if len(a.Assemblies) != len(b.Assemblies) {
		return len(a.Assemblies) > len(b.Assemblies)
	}
	byDepth := func() (bool, bool) {
		return a.Depth > b.Depth, a.Depth != b.Depth
	}
	byIdentity := func() (bool, bool) {
		return a.Identity > b.Identity, a.Identity != b.Identity
	}
	keys := []func() (bool, bool){byDepth, byIdentity}
	if r.opts.TieBreak == TieBreakIdentityFirst {
		keys = []func() (bool, bool){byIdentity, byDepth}
	}
	for _, key := range keys {
		if win, decided := key(); decided {
			return win
		}
	}
	if a.Backbone != b.Backbone {
		return a.Backbone
	}
	return graph.FormatRefs(a.Refs) < graph.FormatRefs(b.Refs)
}
