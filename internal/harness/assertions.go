package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/oplens/internal/assemble"
	"github.com/roach88/oplens/internal/engine"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

func evaluate(report *engine.Result, a Assertion) error {
	if a.Type == AssertExclusive {
		return assertExclusive(report, a)
	}

	kr, ok := report.Kind(a.Kind)
	if !ok {
		return &AssertionError{Type: a.Type, Expected: "kind " + a.Kind, Actual: "kind not in signature table"}
	}

	switch a.Type {
	case AssertGroupCount:
		if len(kr.Groups) != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d group(s) of %s", a.Count, a.Kind),
				Actual:   fmt.Sprintf("%d", len(kr.Groups)),
			}
		}
	case AssertGroup:
		members, ok := kr.Groups[a.Anchor]
		if !ok {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("group anchored at %d", a.Anchor), Actual: anchors(kr)}
		}
		if !slices.Equal(members, a.Members) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.Members), Actual: fmt.Sprint(members)}
		}
	case AssertRole:
		op, err := operation(kr, a)
		if err != nil {
			return err
		}
		for _, rec := range op.RolesOf(a.Role) {
			if rec.ID == a.ID {
				return nil
			}
		}
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s played by %d", a.Role, a.ID), Actual: rolesOf(op)}
	case AssertDropped:
		for _, d := range kr.Dropped {
			if d.Candidate == a.Candidate && strings.Contains(d.Reason, a.Reason) {
				return nil
			}
		}
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("candidate %d dropped (%s)", a.Candidate, a.Reason), Actual: fmt.Sprint(kr.Dropped)}
	case AssertCalledBy:
		op, err := operation(kr, a)
		if err != nil {
			return err
		}
		if op.CalledBy != a.Expect {
			return &AssertionError{Type: a.Type, Expected: a.Expect, Actual: op.CalledBy}
		}
	case AssertUserFunctions:
		op, err := operation(kr, a)
		if err != nil {
			return err
		}
		if len(op.UserFunctions) != a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%d user function(s)", a.Count), Actual: fmt.Sprintf("%d", len(op.UserFunctions))}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func assertExclusive(report *engine.Result, a Assertion) error {
	for _, kr := range report.Kinds {
		if a.Kind != "" && kr.Kind != a.Kind {
			continue
		}
		owner := make(map[int64]int64)
		for anchor, members := range kr.Groups {
			for _, id := range members {
				if prev, dup := owner[id]; dup {
					return &AssertionError{
						Type:     a.Type,
						Expected: fmt.Sprintf("id %d in one %s group", id, kr.Kind),
						Actual:   fmt.Sprintf("groups %d and %d", min(prev, anchor), max(prev, anchor)),
					}
				}
				owner[id] = anchor
			}
		}
	}
	return nil
}

func operation(kr *engine.KindResult, a Assertion) (*assemble.Operation, error) {
	op, ok := kr.Operations[a.Anchor]
	if !ok {
		return nil, &AssertionError{Type: a.Type, Expected: fmt.Sprintf("operation anchored at %d", a.Anchor), Actual: anchors(kr)}
	}
	return op, nil
}

func anchors(kr *engine.KindResult) string {
	ids := make([]int64, 0, len(kr.Groups))
	for anchor := range kr.Groups {
		ids = append(ids, anchor)
	}
	slices.Sort(ids)
	return fmt.Sprintf("anchors %v", ids)
}

func rolesOf(op *assemble.Operation) string {
	parts := make([]string, len(op.Roles))
	for i, rec := range op.Roles {
		parts[i] = fmt.Sprintf("%s:%d", rec.Role, rec.ID)
	}
	return strings.Join(parts, ",")
}
