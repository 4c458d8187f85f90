package activity

import (
	"errors"
	"fmt"
)

// Activity is one recorded asynchronous resource.
//
// Timestamps are nanoseconds. Each timestamp slice holds one entry per
// occurrence (before/after may fire several times). InitStack frame 0 is the
// innermost call site.
type Activity struct {
	ID        int64          `json:"id" yaml:"id"`
	TriggerID int64          `json:"triggerId" yaml:"triggerId"`
	Type      string         `json:"type" yaml:"type"`
	InitStack []string       `json:"initStack,omitempty" yaml:"initStack,omitempty"`
	Init      []int64        `json:"init,omitempty" yaml:"init,omitempty"`
	Before    []int64        `json:"before,omitempty" yaml:"before,omitempty"`
	After     []int64        `json:"after,omitempty" yaml:"after,omitempty"`
	Destroy   []int64        `json:"destroy,omitempty" yaml:"destroy,omitempty"`
	Resource  map[string]any `json:"resource,omitempty" yaml:"resource,omitempty"`
}

// FirstInit returns the first init timestamp.
// ok is false when the activity has no init timestamps.
func (a *Activity) FirstInit() (ns int64, ok bool) {
	if len(a.Init) == 0 {
		return 0, false
	}
	return a.Init[0], true
}

// FirstDestroy returns the first destroy timestamp.
func (a *Activity) FirstDestroy() (ns int64, ok bool) {
	if len(a.Destroy) == 0 {
		return 0, false
	}
	return a.Destroy[0], true
}

// Frame returns the call-site signature at depth, or "" when the stack is
// absent or shorter than depth+1.
func (a *Activity) Frame(depth int) string {
	if depth < 0 || depth >= len(a.InitStack) {
		return ""
	}
	return a.InitStack[depth]
}

// ErrDuplicateID is returned when a batch contains the same id twice.
var ErrDuplicateID = errors.New("duplicate activity id")

// Store is an immutable, ordered mapping from activity id to Activity.
//
// The Store never mutates the records it holds. Callers must treat activities
// returned by Get and All as read-only.
type Store struct {
	order []int64
	pos   map[int64]int
	byID  map[int64]*Activity
}

// NewStore builds a Store from activities in the given order.
// The slice is copied; later changes to it do not affect the Store.
func NewStore(activities []Activity) (*Store, error) {
	s := &Store{
		order: make([]int64, 0, len(activities)),
		pos:   make(map[int64]int, len(activities)),
		byID:  make(map[int64]*Activity, len(activities)),
	}
	for i := range activities {
		a := activities[i]
		if _, exists := s.byID[a.ID]; exists {
			return nil, fmt.Errorf("activity %d: %w", a.ID, ErrDuplicateID)
		}
		s.pos[a.ID] = len(s.order)
		s.order = append(s.order, a.ID)
		s.byID[a.ID] = &a
	}
	return s, nil
}

// MustNewStore is NewStore for fixtures; it panics on error.
func MustNewStore(activities []Activity) *Store {
	s, err := NewStore(activities)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of activities.
func (s *Store) Len() int {
	return len(s.order)
}

// Get returns the activity with the given id.
func (s *Store) Get(id int64) (*Activity, bool) {
	a, ok := s.byID[id]
	return a, ok
}

// Has reports whether id is in the store.
func (s *Store) Has(id int64) bool {
	_, ok := s.byID[id]
	return ok
}

// IDs returns activity ids in store order. The returned slice is a copy.
func (s *Store) IDs() []int64 {
	out := make([]int64, len(s.order))
	copy(out, s.order)
	return out
}

// All returns activities in store order.
func (s *Store) All() []*Activity {
	out := make([]*Activity, len(s.order))
	for i, id := range s.order {
		out[i] = s.byID[id]
	}
	return out
}

// Index returns the position of id in store order, or -1.
func (s *Store) Index(id int64) int {
	if i, ok := s.pos[id]; ok {
		return i
	}
	return -1
}

// OrderViolation describes an activity initialized before its predecessor.
type OrderViolation struct {
	ID         int64
	PreviousID int64
}

func (v *OrderViolation) Error() string {
	return fmt.Sprintf("activity %d initialized before preceding activity %d", v.ID, v.PreviousID)
}

// CheckOrder verifies that init timestamps are non-decreasing in store order.
// Activities without an init timestamp are skipped. Returns the first
// violation found, or nil.
func (s *Store) CheckOrder() *OrderViolation {
	var (
		prevID   int64
		prevInit int64
		seen     bool
	)
	for _, id := range s.order {
		ns, ok := s.byID[id].FirstInit()
		if !ok {
			continue
		}
		if seen && ns < prevInit {
			return &OrderViolation{ID: id, PreviousID: prevID}
		}
		prevID, prevInit, seen = id, ns, true
	}
	return nil
}
