package resolve

import (
	"fmt"
	"sort"

	"github.com/roach88/oplens/internal/activity"
	"github.com/roach88/oplens/internal/classify"
	"github.com/roach88/oplens/internal/graph"
	"github.com/roach88/oplens/internal/signature"
)

// Input is everything a resolver reads. Nothing in it is mutated.
type Input struct {
	Kind    *signature.Kind
	Index   *graph.Index
	Classes *classify.Classification
}

// Group is one resolved operation instance.
type Group struct {
	Anchor  int64            `json:"anchor"`
	Members []int64          `json:"members"` // ascending
	Roles   map[int64]string `json:"roles"`   // member id -> role
}

// IDsOf returns the members playing role, in ascending order.
func (g *Group) IDsOf(role string) []int64 {
	var out []int64
	for _, id := range g.Members {
		if g.Roles[id] == role {
			out = append(out, id)
		}
	}
	return out
}

// Drop records a candidate that did not become a group. Drops are normal:
// the batch may simply not contain that operation.
type Drop struct {
	Candidate int64  `json:"candidate"`
	Reason    string `json:"reason"`
}

// Outcome is the result of resolving one kind.
type Outcome struct {
	Kind    string  `json:"kind"`
	Groups  []Group `json:"groups"` // discovery order
	Dropped []Drop  `json:"dropped,omitempty"`
}

// Group returns the group anchored at id.
func (o *Outcome) Group(anchor int64) (*Group, bool) {
	for i := range o.Groups {
		if o.Groups[i].Anchor == anchor {
			return &o.Groups[i], true
		}
	}
	return nil, false
}

// Claimed returns every member id, excluding members playing shared roles.
func (o *Outcome) Claimed(k *signature.Kind) map[int64]bool {
	claimed := make(map[int64]bool)
	for _, g := range o.Groups {
		for _, id := range g.Members {
			if !k.IsShared(g.Roles[id]) {
				claimed[id] = true
			}
		}
	}
	return claimed
}

// Func resolves one kind.
type Func func(in Input) (*Outcome, error)

var strategies = map[signature.Strategy]Func{
	signature.StrategyCount:    ResolveCount,
	signature.StrategyChain:    ResolveChain,
	signature.StrategySiblings: ResolveSiblings,
}

// Resolve dispatches to the kind's strategy.
func Resolve(in Input) (*Outcome, error) {
	fn, ok := strategies[in.Kind.Strategy]
	if !ok {
		return nil, fmt.Errorf("kind %s: unknown strategy %q", in.Kind.Name, in.Kind.Strategy)
	}
	return fn(in)
}

// consumed is the kind-scoped exclusivity set of one resolver run.
type consumed map[int64]bool

func (c consumed) any(ids []int64) bool {
	for _, id := range ids {
		if c[id] {
			return true
		}
	}
	return false
}

func (c consumed) claim(ids ...int64) {
	for _, id := range ids {
		c[id] = true
	}
}

func (in Input) isRole(role string) graph.Predicate {
	return func(id int64, _ *activity.Activity) bool {
		return in.Classes.Has(id, in.Kind.Name, role)
	}
}

// newGroup sorts members and records their roles.
func newGroup(anchor int64, roles map[int64]string) Group {
	members := make([]int64, 0, len(roles))
	for id := range roles {
		members = append(members, id)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return Group{Anchor: anchor, Members: members, Roles: roles}
}

// sortByInit orders ids by first init timestamp. Ids without init sort last,
// ties and missing values fall back to id order.
func sortByInit(s *activity.Store, ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	initOf := func(id int64) (int64, bool) {
		a, ok := s.Get(id)
		if !ok {
			return 0, false
		}
		return a.FirstInit()
	}
	sort.SliceStable(out, func(i, j int) bool {
		ni, oki := initOf(out[i])
		nj, okj := initOf(out[j])
		switch {
		case oki && okj && ni != nj:
			return ni < nj
		case oki != okj:
			return oki
		default:
			return out[i] < out[j]
		}
	})
	return out
}
