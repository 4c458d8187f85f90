package resolve

import (
	"fmt"

	"github.com/roach88/oplens/internal/activity"
)

// ResolveSiblings reconciles stream operations starting from each terminal
// (close) activity:
//
//  1. collect unconsumed data-role siblings of the close initialized before it
//  2. take the oldest of them as the first data step
//  3. collect unconsumed anchor siblings of that step
//  4. choose the anchor initialized immediately before it
//  5. attach the closest tick sibling of the close, consumed or not
//
// The anchor and data steps are then consumed for this kind.
func ResolveSiblings(in Input) (*Outcome, error) {
	k := in.Kind
	out := &Outcome{Kind: k.Name}
	used := consumed{}

	unconsumed := func(role string) func(int64, *activity.Activity) bool {
		is := in.isRole(role)
		return func(id int64, a *activity.Activity) bool {
			return !used[id] && is(id, a)
		}
	}

	s := in.Index.Store()
	for _, closeID := range in.Classes.IDs(k.Name, k.Terminal) {
		data := beforeClose(s, closeID, in.Index.AllSiblings(closeID, unconsumed(k.DataRole)))
		if len(data) == 0 {
			out.Dropped = append(out.Dropped, Drop{Candidate: closeID, Reason: ReasonNoData})
			continue
		}
		first, ok := in.Index.OldestID(data)
		if !ok {
			out.Dropped = append(out.Dropped, Drop{Candidate: closeID, Reason: ReasonNoData})
			continue
		}

		anchors := in.Index.AllSiblings(first, unconsumed(k.Anchor))
		if len(anchors) == 0 {
			out.Dropped = append(out.Dropped, Drop{Candidate: closeID, Reason: ReasonNoAnchor})
			continue
		}
		anchor, ok, err := in.Index.ImmediatelyBeforeID(anchors, first)
		if err != nil {
			return nil, fmt.Errorf("kind %s: close %d: %w", k.Name, closeID, err)
		}
		if !ok {
			out.Dropped = append(out.Dropped, Drop{Candidate: closeID, Reason: ReasonNoAnchorPrev})
			continue
		}

		roles := make(map[int64]string, len(data)+3)
		for _, id := range data {
			roles[id] = k.DataRole
		}
		roles[anchor] = k.Anchor
		roles[closeID] = k.Terminal
		if k.TickRole != "" {
			if tick, ok := in.Index.ClosestSibling(closeID, in.isRole(k.TickRole)); ok {
				if _, taken := roles[tick]; !taken {
					roles[tick] = k.TickRole
				}
			}
		}

		used.claim(anchor)
		used.claim(data...)
		out.Groups = append(out.Groups, newGroup(anchor, roles))
	}
	return out, nil
}

// beforeClose drops data steps initialized after the close. When the close
// has no init timestamp nothing is dropped.
func beforeClose(s *activity.Store, closeID int64, ids []int64) []int64 {
	c, ok := s.Get(closeID)
	if !ok {
		return ids
	}
	closeInit, ok := c.FirstInit()
	if !ok {
		return ids
	}
	out := ids[:0:0]
	for _, id := range ids {
		a, _ := s.Get(id)
		if ns, ok := a.FirstInit(); ok && ns > closeInit {
			continue
		}
		out = append(out, id)
	}
	return out
}
