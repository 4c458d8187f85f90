package resolve

import (
	"fmt"

	"github.com/roach88/oplens/internal/activity"
)

// Drop reasons for the strict strategies.
const (
	ReasonConsumed     = "member already in a group"
	ReasonCount        = "member count differs from step count"
	ReasonOrder        = "role order mismatch"
	ReasonNoTerminal   = "walk did not reach the terminal role"
	ReasonShortChain   = "chain shorter than minimum"
	ReasonNoData       = "no unconsumed data-role sibling"
	ReasonNoAnchor     = "no unconsumed anchor sibling"
	ReasonNoAnchorPrev = "no anchor initialized before the oldest data step"
)

// ResolveCount groups each anchor's trigger walk when it has exactly
// Kind.Steps members whose roles, sorted by init time, follow
// Kind.Sequence.
func ResolveCount(in Input) (*Outcome, error) {
	k := in.Kind
	s := in.Index.Store()
	out := &Outcome{Kind: k.Name}
	used := consumed{}

	for _, anchor := range in.Classes.IDs(k.Name, k.Anchor) {
		if used[anchor] {
			continue
		}
		walk := in.Index.DescendantsUntil(anchor, in.isRole(k.Terminal))
		members := filterByKey(s, walk, anchor, k.CorrelationKey)

		if len(members) != k.Steps {
			out.Dropped = append(out.Dropped, Drop{Candidate: anchor, Reason: fmt.Sprintf("%s (%d != %d)", ReasonCount, len(members), k.Steps)})
			continue
		}

		ordered := sortByInit(s, members)
		roles := make(map[int64]string, len(ordered))
		mismatch := false
		for i, id := range ordered {
			want := k.Sequence[i]
			if !in.Classes.Has(id, k.Name, want) {
				mismatch = true
				break
			}
			roles[id] = want
		}
		if mismatch {
			out.Dropped = append(out.Dropped, Drop{Candidate: anchor, Reason: ReasonOrder})
			continue
		}
		if used.any(ordered) {
			out.Dropped = append(out.Dropped, Drop{Candidate: anchor, Reason: ReasonConsumed})
			continue
		}

		used.claim(ordered...)
		out.Groups = append(out.Groups, newGroup(anchor, roles))
	}
	return out, nil
}

// filterByKey keeps the walk members whose correlation key equals the
// anchor's. Members without a key are dropped. When the anchor itself has no
// key the walk is returned unchanged.
func filterByKey(s *activity.Store, walk []int64, anchor int64, path string) []int64 {
	if path == "" {
		return walk
	}
	a, ok := s.Get(anchor)
	if !ok {
		return walk
	}
	key, ok := activity.LookupString(a.Resource, path)
	if !ok {
		return walk
	}

	out := make([]int64, 0, len(walk))
	for _, id := range walk {
		if id == anchor {
			out = append(out, id)
			continue
		}
		m, _ := s.Get(id)
		if mk, ok := activity.LookupString(m.Resource, path); ok && mk == key {
			out = append(out, id)
		}
	}
	return out
}

// ResolveChain groups each anchor's trigger walk when it ends in the
// terminal role. Only members classified for the kind join the group; there
// must be at least Kind.MinChain of them. Data steps may repeat.
func ResolveChain(in Input) (*Outcome, error) {
	k := in.Kind
	out := &Outcome{Kind: k.Name}
	used := consumed{}

	for _, anchor := range in.Classes.IDs(k.Name, k.Anchor) {
		if used[anchor] {
			continue
		}
		walk := in.Index.DescendantsUntil(anchor, in.isRole(k.Terminal))
		if len(walk) < 2 || !in.Classes.Has(walk[len(walk)-1], k.Name, k.Terminal) {
			out.Dropped = append(out.Dropped, Drop{Candidate: anchor, Reason: ReasonNoTerminal})
			continue
		}
		last := walk[len(walk)-1]

		roles := make(map[int64]string, len(walk))
		members := make([]int64, 0, len(walk))
		for _, id := range walk {
			role, ok := in.Classes.RoleOf(id, k.Name)
			switch {
			case id == anchor:
				role = k.Anchor
			case id == last:
				role = k.Terminal
			case !ok:
				continue
			}
			roles[id] = role
			members = append(members, id)
		}
		if len(members) < k.MinChain {
			out.Dropped = append(out.Dropped, Drop{Candidate: anchor, Reason: fmt.Sprintf("%s (%d < %d)", ReasonShortChain, len(members), k.MinChain)})
			continue
		}
		if used.any(members) {
			out.Dropped = append(out.Dropped, Drop{Candidate: anchor, Reason: ReasonConsumed})
			continue
		}

		used.claim(members...)
		out.Groups = append(out.Groups, newGroup(anchor, roles))
	}
	return out, nil
}
