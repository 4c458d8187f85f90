package assemble

import (
	"sort"

	"github.com/roach88/oplens/internal/activity"
	"github.com/roach88/oplens/internal/resolve"
	"github.com/roach88/oplens/internal/signature"
)

// Lifecycle is the time span of an operation.
type Lifecycle struct {
	Created   Duration `json:"created"`
	Destroyed Duration `json:"destroyed"`
	TimeAlive Duration `json:"timeAlive"`
}

// RoleRecord is one member of an operation.
type RoleRecord struct {
	Role          string             `json:"role"`
	ID            int64              `json:"id"`
	TriggerID     int64              `json:"triggerId"`
	Activity      *activity.Activity `json:"activity,omitempty"`
	UserFunctions []FunctionInfo     `json:"userFunctions,omitempty"`
}

// Operation is the assembled report for one group.
type Operation struct {
	Kind          string         `json:"kind"`
	Anchor        int64          `json:"anchor"`
	Lifecycle     Lifecycle      `json:"lifecycle"`
	CalledBy      string         `json:"calledBy"`
	Roles         []RoleRecord   `json:"roles"`
	Config        map[string]any `json:"config,omitempty"`
	UserFunctions []FunctionInfo `json:"userFunctions,omitempty"`
}

// Role returns the first record playing role.
func (op *Operation) Role(role string) (*RoleRecord, bool) {
	for i := range op.Roles {
		if op.Roles[i].Role == role {
			return &op.Roles[i], true
		}
	}
	return nil, false
}

// RolesOf returns every record playing role, in id order.
func (op *Operation) RolesOf(role string) []RoleRecord {
	var out []RoleRecord
	for _, rec := range op.Roles {
		if rec.Role == role {
			out = append(out, rec)
		}
	}
	return out
}

// Options controls optional parts of assembly.
type Options struct {
	// IncludeActivities embeds the raw activity in each role record.
	IncludeActivities bool
	// SeparateFunctions lifts callbacks into Operation.UserFunctions.
	SeparateFunctions bool
	// MergeFunctions collapses callbacks by location. Only applies when
	// SeparateFunctions is set.
	MergeFunctions bool
}

// DefaultOptions separates and merges callbacks and omits raw activities.
func DefaultOptions() Options {
	return Options{SeparateFunctions: true, MergeFunctions: true}
}

// Assembler builds operations for one signature table.
type Assembler struct {
	table *signature.Table
	opts  Options
}

// New creates an Assembler.
func New(table *signature.Table, opts Options) *Assembler {
	return &Assembler{table: table, opts: opts}
}

// Assemble builds the Operation for group g of kind k.
func (as *Assembler) Assemble(k *signature.Kind, s *activity.Store, g resolve.Group) *Operation {
	op := &Operation{
		Kind:     k.Name,
		Anchor:   g.Anchor,
		CalledBy: Unavailable,
	}

	op.Roles = as.roleRecords(k, s, g)
	op.Lifecycle = lifecycle(k, s, g)
	if anchor, ok := s.Get(g.Anchor); ok {
		op.CalledBy = as.calledBy(anchor)
	}
	op.Config = config(k, s, g)

	if as.opts.SeparateFunctions {
		Separate(op)
		if as.opts.MergeFunctions {
			op.UserFunctions = Merge(op.UserFunctions)
		}
	}
	return op
}

// roleRecords orders records by the kind's role declaration order, then id.
func (as *Assembler) roleRecords(k *signature.Kind, s *activity.Store, g resolve.Group) []RoleRecord {
	rank := make(map[string]int, len(k.Roles))
	for i, r := range k.Roles {
		rank[r.Name] = i
	}

	records := make([]RoleRecord, 0, len(g.Members))
	for _, id := range g.Members {
		a, ok := s.Get(id)
		if !ok {
			continue
		}
		rec := RoleRecord{
			Role:          g.Roles[id],
			ID:            id,
			TriggerID:     a.TriggerID,
			UserFunctions: ExtractFunctions(as.table, a.Resource),
		}
		if as.opts.IncludeActivities {
			rec.Activity = a
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		ri, rj := rank[records[i].Role], rank[records[j].Role]
		if ri != rj {
			return ri < rj
		}
		return records[i].ID < records[j].ID
	})
	return records
}

// lifecycle takes created from the anchor's first init and destroyed from
// the terminal's first destroy.
func lifecycle(k *signature.Kind, s *activity.Store, g resolve.Group) Lifecycle {
	created := UnavailableDuration()
	if a, ok := s.Get(g.Anchor); ok {
		if ns, ok := a.FirstInit(); ok {
			created = NewDuration(ns)
		}
	}

	destroyed := UnavailableDuration()
	if ids := g.IDsOf(k.Terminal); len(ids) > 0 {
		if a, ok := s.Get(ids[0]); ok {
			if ns, ok := a.FirstDestroy(); ok {
				destroyed = NewDuration(ns)
			}
		}
	}

	return Lifecycle{
		Created:   created,
		Destroyed: destroyed,
		TimeAlive: destroyed.Sub(created),
	}
}

// calledBy is the innermost frame of the anchor's stack that is not library
// code.
func (as *Assembler) calledBy(a *activity.Activity) string {
	for _, frame := range a.InitStack {
		if !as.table.IsLibrary(signature.FrameLocation(frame)) {
			return frame
		}
	}
	return Unavailable
}

func config(k *signature.Kind, s *activity.Store, g resolve.Group) map[string]any {
	if len(k.Config) == 0 {
		return nil
	}
	cfg := make(map[string]any)
	for _, field := range k.Config {
		ids := g.IDsOf(field.Role)
		if len(ids) == 0 {
			continue
		}
		a, ok := s.Get(ids[0])
		if !ok {
			continue
		}
		if v, ok := activity.Lookup(a.Resource, field.Path); ok && v != nil {
			cfg[field.Name] = v
		}
	}
	if len(cfg) == 0 {
		return nil
	}
	return cfg
}
