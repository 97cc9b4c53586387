package usecase

import "github.com/user/kb-crawler/pkg/utils"

// visitedSet is a per-crawl, insertion-ordered set of URLs. It is not safe
// for concurrent use; discovery runs on a single goroutine.
type visitedSet struct {
	seen      map[string]struct{}
	order     []string
	canonical bool
}

func newVisitedSet(canonical bool) *visitedSet {
	return &visitedSet{seen: make(map[string]struct{}), canonical: canonical}
}

// key returns the identity used for deduplication. It is never navigated.
func (v *visitedSet) key(u string) string {
	if v.canonical {
		return utils.Canonicalize(u)
	}
	return u
}

// Add inserts u and reports whether its key was new. The first URL seen for
// a key is the one kept.
func (v *visitedSet) Add(u string) bool {
	k := v.key(u)
	if _, ok := v.seen[k]; ok {
		return false
	}
	v.seen[k] = struct{}{}
	v.order = append(v.order, u)
	return true
}

func (v *visitedSet) Len() int { return len(v.order) }

// List returns the kept URLs in insertion order.
func (v *visitedSet) List() []string {
	out := make([]string, len(v.order))
	copy(out, v.order)
	return out
}
