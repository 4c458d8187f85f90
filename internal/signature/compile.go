package signature

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed default.cue
var defaultCUE string

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the embedded signature table. It panics if the embedded
// table fails to compile, which is caught by the package tests.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := CompileString("default.cue", defaultCUE)
		if err != nil {
			panic(fmt.Sprintf("signature: embedded table: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

// DefaultSource returns the CUE source of the embedded table.
func DefaultSource() string {
	return defaultCUE
}

// LoadFile compiles the CUE table at path.
func LoadFile(path string) (*Table, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signature table: %w", err)
	}
	return CompileString(path, string(src))
}

// CompileString compiles CUE source into a Table.
func CompileString(filename, src string) (*Table, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return Compile(v)
}

// CompileError reports an invalid table entry with its CUE position.
type CompileError struct {
	Kind    string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	where := e.Field
	if e.Kind != "" {
		where = e.Kind + "." + e.Field
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			where, e.Message)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}

// Compile converts a CUE value into a validated Table.
func Compile(v cue.Value) (*Table, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	t := &Table{}

	version, err := lookupString(v, "version", true)
	if err != nil {
		return nil, err
	}
	t.Version = version

	libs, err := lookupStrings(v, "libraryLocations")
	if err != nil {
		return nil, err
	}
	for _, src := range libs {
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, &CompileError{Field: "libraryLocations", Message: err.Error(), Pos: v.Pos()}
		}
		t.LibraryLocations = append(t.LibraryLocations, re)
	}

	kindsVal := v.LookupPath(cue.ParsePath("kinds"))
	if !kindsVal.Exists() {
		return nil, &CompileError{Field: "kinds", Message: "kinds is required", Pos: v.Pos()}
	}
	iter, err := kindsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		kind, err := compileKind(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		t.Kinds = append(t.Kinds, *kind)
	}
	if len(t.Kinds) == 0 {
		return nil, &CompileError{Field: "kinds", Message: "at least one kind is required", Pos: kindsVal.Pos()}
	}

	return t, nil
}

func compileKind(name string, v cue.Value) (*Kind, error) {
	k := &Kind{Name: name}
	fail := func(field, msg string) error {
		return &CompileError{Kind: name, Field: field, Message: msg, Pos: v.Pos()}
	}

	steps, err := lookupInt(v, "steps")
	if err != nil {
		return nil, err
	}
	if steps <= 0 {
		return nil, fail("steps", "must be positive")
	}
	k.Steps = int(steps)

	strategy, err := lookupString(v, "strategy", true)
	if err != nil {
		return nil, err
	}
	k.Strategy = Strategy(strategy)
	if !ValidStrategies[k.Strategy] {
		return nil, fail("strategy", fmt.Sprintf("unknown strategy %q", strategy))
	}

	if k.Anchor, err = lookupString(v, "anchor", true); err != nil {
		return nil, err
	}
	if k.Terminal, err = lookupString(v, "terminal", true); err != nil {
		return nil, err
	}
	if k.Sequence, err = lookupStrings(v, "sequence"); err != nil {
		return nil, err
	}
	if k.CorrelationKey, err = lookupString(v, "correlationKey", false); err != nil {
		return nil, err
	}
	if k.DataRole, err = lookupString(v, "dataRole", false); err != nil {
		return nil, err
	}
	if k.TickRole, err = lookupString(v, "tickRole", false); err != nil {
		return nil, err
	}
	if k.Shared, err = lookupStrings(v, "shared"); err != nil {
		return nil, err
	}
	if mv := v.LookupPath(cue.ParsePath("minChain")); mv.Exists() {
		n, err := mv.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		k.MinChain = int(n)
	}

	rolesVal := v.LookupPath(cue.ParsePath("roles"))
	if !rolesVal.Exists() {
		return nil, fail("roles", "roles is required")
	}
	iter, err := rolesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		role, err := compileRole(name, iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		k.Roles = append(k.Roles, *role)
	}

	if cv := v.LookupPath(cue.ParsePath("config")); cv.Exists() {
		list, err := cv.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for list.Next() {
			var cf ConfigField
			item := list.Value()
			if cf.Name, err = lookupString(item, "name", true); err != nil {
				return nil, err
			}
			if cf.Role, err = lookupString(item, "role", true); err != nil {
				return nil, err
			}
			if cf.Path, err = lookupString(item, "path", true); err != nil {
				return nil, err
			}
			k.Config = append(k.Config, cf)
		}
	}

	if err := validateKind(k); err != nil {
		return nil, &CompileError{Kind: name, Field: err.field, Message: err.msg, Pos: v.Pos()}
	}
	return k, nil
}

func compileRole(kind, name string, v cue.Value) (*Role, error) {
	r := &Role{Name: name}
	var err error

	if r.Type, err = lookupString(v, "type", true); err != nil {
		return nil, err
	}
	if r.RequirePaths, err = lookupStrings(v, "requirePaths"); err != nil {
		return nil, err
	}

	if fv := v.LookupPath(cue.ParsePath("frames")); fv.Exists() {
		list, err := fv.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for list.Next() {
			item := list.Value()
			depth, err := lookupInt(item, "depth")
			if err != nil {
				return nil, err
			}
			src, err := lookupString(item, "pattern", true)
			if err != nil {
				return nil, err
			}
			re, err := regexp.Compile(src)
			if err != nil {
				return nil, &CompileError{Kind: kind, Field: "roles." + name + ".frames", Message: err.Error(), Pos: item.Pos()}
			}
			if depth < 0 {
				return nil, &CompileError{Kind: kind, Field: "roles." + name + ".frames", Message: "depth must not be negative", Pos: item.Pos()}
			}
			r.Frames = append(r.Frames, FramePattern{Depth: int(depth), Pattern: re})
		}
	}

	if fv := v.LookupPath(cue.ParsePath("flags")); fv.Exists() {
		list, err := fv.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for list.Next() {
			item := list.Value()
			path, err := lookupString(item, "path", true)
			if err != nil {
				return nil, err
			}
			bv := item.LookupPath(cue.ParsePath("value"))
			value := true
			if bv.Exists() {
				if value, err = bv.Bool(); err != nil {
					return nil, formatCUEError(err)
				}
			}
			r.Flags = append(r.Flags, Flag{Path: path, Value: value})
		}
	}

	if len(r.Frames) == 0 && !r.Structural() {
		return nil, &CompileError{Kind: kind, Field: "roles." + name, Message: "role needs frames or structural checks", Pos: v.Pos()}
	}
	return r, nil
}

type validationError struct {
	field string
	msg   string
}

// validateKind checks cross-references between a kind's fields and roles.
func validateKind(k *Kind) *validationError {
	has := func(role string) bool {
		_, ok := k.Role(role)
		return ok
	}
	if !has(k.Anchor) {
		return &validationError{"anchor", fmt.Sprintf("role %q is not declared", k.Anchor)}
	}
	if !has(k.Terminal) {
		return &validationError{"terminal", fmt.Sprintf("role %q is not declared", k.Terminal)}
	}
	for _, r := range k.Sequence {
		if !has(r) {
			return &validationError{"sequence", fmt.Sprintf("role %q is not declared", r)}
		}
	}
	for _, r := range k.Shared {
		if !has(r) {
			return &validationError{"shared", fmt.Sprintf("role %q is not declared", r)}
		}
	}
	for _, cf := range k.Config {
		if !has(cf.Role) {
			return &validationError{"config", fmt.Sprintf("role %q is not declared", cf.Role)}
		}
	}

	switch k.Strategy {
	case StrategyCount:
		if len(k.Sequence) != k.Steps {
			return &validationError{"sequence", fmt.Sprintf("count strategy needs %d sequence entries, got %d", k.Steps, len(k.Sequence))}
		}
	case StrategyChain:
		if k.MinChain <= 0 {
			return &validationError{"minChain", "chain strategy needs a positive minChain"}
		}
	case StrategySiblings:
		if !has(k.DataRole) {
			return &validationError{"dataRole", fmt.Sprintf("role %q is not declared", k.DataRole)}
		}
		if k.TickRole != "" && !has(k.TickRole) {
			return &validationError{"tickRole", fmt.Sprintf("role %q is not declared", k.TickRole)}
		}
	}
	return nil
}

func lookupString(v cue.Value, field string, required bool) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		if required {
			return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
		}
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func lookupInt(v cue.Value, field string) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

func lookupStrings(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	list, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}
