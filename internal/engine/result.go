package engine

import (
	"github.com/roach88/oplens/internal/activity"
	"github.com/roach88/oplens/internal/assemble"
	"github.com/roach88/oplens/internal/resolve"
	"github.com/roach88/oplens/internal/signature"
)

// KindResult is the outcome of one kind.
type KindResult struct {
	Kind       string                        `json:"kind"`
	Steps      int                           `json:"steps"`
	Groups     map[int64][]int64             `json:"groups"`     // anchor -> members
	Operations map[int64]*assemble.Operation `json:"operations"` // anchor -> operation
	Dropped    []resolve.Drop                `json:"dropped,omitempty"`
}

func newKindResult(k *signature.Kind, out *resolve.Outcome) *KindResult {
	kr := &KindResult{
		Kind:       k.Name,
		Steps:      k.Steps,
		Groups:     make(map[int64][]int64, len(out.Groups)),
		Operations: make(map[int64]*assemble.Operation, len(out.Groups)),
		Dropped:    out.Dropped,
	}
	for _, g := range out.Groups {
		members := make([]int64, len(g.Members))
		copy(members, g.Members)
		kr.Groups[g.Anchor] = members
	}
	return kr
}

// Entry is one operation in the flat result list.
type Entry struct {
	Kind      string              `json:"kind"`
	Steps     int                 `json:"steps"`
	Anchor    int64               `json:"anchor"`
	Operation *assemble.Operation `json:"operation"`
}

// Result is the outcome of one processing run.
type Result struct {
	// Kinds in run order.
	Kinds []*KindResult `json:"kinds"`

	// Entries lists every operation: kinds in run order, groups in
	// discovery order.
	Entries []Entry `json:"entries"`

	// OrderViolation is set when the batch was not ordered by init time.
	OrderViolation *activity.OrderViolation `json:"orderViolation,omitempty"`
}

// Kind returns the result for the named kind.
func (r *Result) Kind(name string) (*KindResult, bool) {
	for _, kr := range r.Kinds {
		if kr.Kind == name {
			return kr, true
		}
	}
	return nil, false
}

// Operations returns the operations of every entry, in entry order.
func (r *Result) Operations() []*assemble.Operation {
	ops := make([]*assemble.Operation, len(r.Entries))
	for i, e := range r.Entries {
		ops[i] = e.Operation
	}
	return ops
}

// Count returns the number of operations per kind.
func (r *Result) Count() map[string]int {
	counts := make(map[string]int, len(r.Kinds))
	for _, kr := range r.Kinds {
		counts[kr.Kind] = len(kr.Operations)
	}
	return counts
}
