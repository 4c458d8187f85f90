package engine

import (
	"log/slog"
	"sort"

	"github.com/roach88/oplens/internal/activity"
	"github.com/roach88/oplens/internal/assemble"
	"github.com/roach88/oplens/internal/classify"
	"github.com/roach88/oplens/internal/graph"
	"github.com/roach88/oplens/internal/resolve"
	"github.com/roach88/oplens/internal/signature"
)

// Engine holds the configuration of processing runs. It keeps no state
// between runs and is safe for concurrent use.
type Engine struct {
	table     *signature.Table
	assembly  assemble.Options
	crossKind bool
	logger    *slog.Logger
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithTable sets the signature table. Default: signature.Default().
func WithTable(t *signature.Table) EngineOption {
	return func(e *Engine) {
		e.table = t
	}
}

// WithActivities embeds the raw activity in every role record.
//
// Default: false
func WithActivities(include bool) EngineOption {
	return func(e *Engine) {
		e.assembly.IncludeActivities = include
	}
}

// WithSeparateFunctions lifts callbacks out of role records into the
// operation's user function list.
//
// Default: true
func WithSeparateFunctions(separate bool) EngineOption {
	return func(e *Engine) {
		e.assembly.SeparateFunctions = separate
	}
}

// WithMergeFunctions collapses lifted callbacks by source location. It has
// no effect unless functions are separated.
//
// Default: true
func WithMergeFunctions(merge bool) EngineOption {
	return func(e *Engine) {
		e.assembly.MergeFunctions = merge
	}
}

// WithCrossKindExclusivity hides ids claimed by an earlier kind from later
// kinds. Ids tagged with a shared role (tick) stay visible.
//
// With the option on, the kind order feeds back into later kinds: ids grouped
// by a longer kind are not offered to shorter ones. Passing false gives
// ordering-only behaviour, where each kind sees the whole batch and an id may
// appear under several kinds.
//
// Default: true
func WithCrossKindExclusivity(enabled bool) EngineOption {
	return func(e *Engine) {
		e.crossKind = enabled
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		assembly:  assemble.DefaultOptions(),
		crossKind: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.table == nil {
		e.table = signature.Default()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Table returns the signature table in use.
func (e *Engine) Table() *signature.Table {
	return e.table
}

// Process runs every kind against s with a fresh Engine built from opts.
func Process(s *activity.Store, opts ...EngineOption) (*Result, error) {
	return New(opts...).Process(s)
}

// Process runs every kind of the table against s.
func (e *Engine) Process(s *activity.Store) (*Result, error) {
	if s == nil {
		return nil, &ProcessError{Code: ErrCodeNilStore, Message: "activity store is nil"}
	}
	if len(e.table.Kinds) == 0 {
		return nil, &ProcessError{Code: ErrCodeNoTable, Message: "signature table has no kinds"}
	}

	res := &Result{}
	if v := s.CheckOrder(); v != nil {
		res.OrderViolation = v
		e.logger.Warn("activities are not ordered by init time; trigger walks may be incomplete",
			"id", v.ID,
			"previous", v.PreviousID,
		)
	}

	idx := graph.New(s)
	classes := classify.Classify(s, e.table)
	asm := assemble.New(e.table, e.assembly)
	claimed := make(map[int64]bool)

	for _, k := range e.kindOrder() {
		view := classes
		if e.crossKind && len(claimed) > 0 {
			view = classes.Without(claimed, e.isSharedTag)
		}

		out, err := resolve.Resolve(resolve.Input{Kind: k, Index: idx, Classes: view})
		if err != nil {
			return nil, newResolveError(k.Name, err)
		}

		kr := newKindResult(k, out)
		for _, g := range out.Groups {
			op := asm.Assemble(k, s, g)
			kr.Operations[g.Anchor] = op
			res.Entries = append(res.Entries, Entry{
				Kind:      k.Name,
				Steps:     k.Steps,
				Anchor:    g.Anchor,
				Operation: op,
			})
		}
		res.Kinds = append(res.Kinds, kr)

		for id := range out.Claimed(k) {
			claimed[id] = true
		}

		e.logger.Debug("kind resolved",
			"kind", k.Name,
			"strategy", k.Strategy,
			"candidates", view.Count(k.Name),
			"groups", len(out.Groups),
			"dropped", len(out.Dropped),
		)
	}

	return res, nil
}

// kindOrder returns the table's kinds by descending step count, keeping
// table order among equals.
func (e *Engine) kindOrder() []*signature.Kind {
	kinds := make([]*signature.Kind, len(e.table.Kinds))
	for i := range e.table.Kinds {
		kinds[i] = &e.table.Kinds[i]
	}
	sort.SliceStable(kinds, func(i, j int) bool {
		return kinds[i].Steps > kinds[j].Steps
	})
	return kinds
}

func (e *Engine) isSharedTag(tag classify.Tag) bool {
	k, ok := e.table.Kind(tag.Kind)
	return ok && k.IsShared(tag.Role)
}
