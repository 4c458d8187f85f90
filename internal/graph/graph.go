package graph

import (
	"errors"
	"fmt"

	"github.com/roach88/oplens/internal/activity"
)

// ErrUnknownActivity is returned when a query's reference id is not in the
// store. It signals a caller bug, not a data-quality issue.
var ErrUnknownActivity = errors.New("unknown activity")

// Predicate selects activities during graph queries.
type Predicate func(id int64, a *activity.Activity) bool

// Index answers descendant, ancestor and sibling queries over one store.
type Index struct {
	store    *activity.Store
	children map[int64][]int64 // trigger id -> child ids in store order
}

// New builds the trigger adjacency for s.
func New(s *activity.Store) *Index {
	idx := &Index{
		store:    s,
		children: make(map[int64][]int64),
	}
	for _, a := range s.All() {
		idx.children[a.TriggerID] = append(idx.children[a.TriggerID], a.ID)
	}
	return idx
}

// Store returns the indexed store.
func (idx *Index) Store() *activity.Store {
	return idx.store
}

// Children returns the direct children of id in store order.
func (idx *Index) Children(id int64) []int64 {
	kids := idx.children[id]
	out := make([]int64, len(kids))
	copy(out, kids)
	return out
}

// DescendantsUntil returns rootID followed by every activity transitively
// triggered by it, in store order. The walk ends after the first collected
// activity for which stop returns true; that activity is included.
//
// Activities must be ordered by creation time. A child stored before its
// trigger is missed.
func (idx *Index) DescendantsUntil(rootID int64, stop Predicate) []int64 {
	start := idx.store.Index(rootID)
	if start < 0 {
		return nil
	}

	ids := idx.store.IDs()
	collected := map[int64]bool{rootID: true}
	out := []int64{rootID}
	for _, id := range ids[start+1:] {
		a, _ := idx.store.Get(id)
		if !collected[a.TriggerID] {
			continue
		}
		collected[id] = true
		out = append(out, id)
		if stop != nil && stop(id, a) {
			break
		}
	}
	return out
}

// Ancestors returns the trigger chain of id, nearest first. The last element
// is the outermost trigger; it is not part of the store when the chain ends
// at a virtual root.
func (idx *Index) Ancestors(id int64) []int64 {
	a, ok := idx.store.Get(id)
	if !ok {
		return nil
	}

	var chain []int64
	visited := map[int64]bool{id: true}
	parent := a.TriggerID
	for !visited[parent] {
		visited[parent] = true
		chain = append(chain, parent)
		pa, ok := idx.store.Get(parent)
		if !ok {
			break
		}
		parent = pa.TriggerID
	}
	return chain
}

// Depth returns the number of ancestors of id, counting a virtual root.
func (idx *Index) Depth(id int64) int {
	return len(idx.Ancestors(id))
}

// subtree returns every descendant of id with its distance from id, in
// breadth-first order. id itself is not included.
func (idx *Index) subtree(id int64) ([]int64, map[int64]int) {
	dist := map[int64]int{id: 0}
	var out []int64
	queue := []int64{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range idx.children[cur] {
			if _, seen := dist[child]; seen {
				continue
			}
			dist[child] = dist[cur] + 1
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out, dist
}

// AllSiblings returns every activity other than anchorID that shares an
// ancestor with it and satisfies match, in store order.
//
// Used when two causally related activities are not linked by a trigger
// chain but descend from a common ancestor.
func (idx *Index) AllSiblings(anchorID int64, match Predicate) []int64 {
	chain := idx.Ancestors(anchorID)
	if len(chain) == 0 {
		return nil
	}
	members, _ := idx.subtree(chain[len(chain)-1])
	inTree := make(map[int64]bool, len(members))
	for _, id := range members {
		inTree[id] = true
	}

	var out []int64
	for _, a := range idx.store.All() {
		if a.ID == anchorID || !inTree[a.ID] {
			continue
		}
		if match == nil || match(a.ID, a) {
			out = append(out, a.ID)
		}
	}
	return out
}

// ClosestSibling returns the match whose nearest common ancestor with
// anchorID is closest to the anchor. Among matches under the same ancestor
// the one fewest levels below that ancestor wins, then the smallest id.
func (idx *Index) ClosestSibling(anchorID int64, match Predicate) (int64, bool) {
	for _, ancestor := range idx.Ancestors(anchorID) {
		members, dist := idx.subtree(ancestor)

		var (
			best      int64
			bestDepth int
			found     bool
		)
		for _, id := range members {
			if id == anchorID {
				continue
			}
			a, _ := idx.store.Get(id)
			if match != nil && !match(id, a) {
				continue
			}
			d := dist[id]
			if !found || d < bestDepth || (d == bestDepth && id < best) {
				best, bestDepth, found = id, d, true
			}
		}
		if found {
			return best, true
		}
	}
	return 0, false
}

// OldestID returns the candidate with the smallest init timestamp. Unknown
// ids and activities without init are ignored; ties go to the smaller id.
func (idx *Index) OldestID(ids []int64) (int64, bool) {
	var (
		best     int64
		bestInit int64
		found    bool
	)
	for _, id := range ids {
		a, ok := idx.store.Get(id)
		if !ok {
			continue
		}
		ns, ok := a.FirstInit()
		if !ok {
			continue
		}
		if !found || ns < bestInit || (ns == bestInit && id < best) {
			best, bestInit, found = id, ns, true
		}
	}
	return best, found
}

// ImmediatelyBeforeID returns the candidate initialized most recently before
// referenceID, i.e. the largest init strictly less than the reference's.
// Ties go to the smaller id.
//
// The reference must be in the store; otherwise ErrUnknownActivity is
// returned. A reference without init timestamps yields no match.
func (idx *Index) ImmediatelyBeforeID(ids []int64, referenceID int64) (int64, bool, error) {
	ref, ok := idx.store.Get(referenceID)
	if !ok {
		return 0, false, fmt.Errorf("reference %d: %w", referenceID, ErrUnknownActivity)
	}
	refInit, ok := ref.FirstInit()
	if !ok {
		return 0, false, nil
	}

	var (
		best     int64
		bestInit int64
		found    bool
	)
	for _, id := range ids {
		if id == referenceID {
			continue
		}
		a, ok := idx.store.Get(id)
		if !ok {
			continue
		}
		ns, ok := a.FirstInit()
		if !ok || ns >= refInit {
			continue
		}
		if !found || ns > bestInit || (ns == bestInit && id < best) {
			best, bestInit, found = id, ns, true
		}
	}
	return best, found, nil
}
