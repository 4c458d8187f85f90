package signature

import (
	"regexp"
	"strings"
)

// Strategy names the reconciliation algorithm a kind uses.
type Strategy string

const (
	// StrategyCount walks the trigger chain from each anchor, keeps members
	// sharing the anchor's correlation key, and validates member count and
	// role order.
	StrategyCount Strategy = "count"

	// StrategyChain walks the trigger chain from each anchor and only checks
	// that it ends in the terminal role and is long enough.
	StrategyChain Strategy = "chain"

	// StrategySiblings reconciles roles that descend independently from a
	// shared ancestor (stream operations).
	StrategySiblings Strategy = "siblings"
)

// ValidStrategies lists the strategies a table may name.
var ValidStrategies = map[Strategy]bool{
	StrategyCount:    true,
	StrategyChain:    true,
	StrategySiblings: true,
}

// Table is a compiled signature table.
type Table struct {
	Version          string
	LibraryLocations []*regexp.Regexp
	Kinds            []Kind // declaration order
}

// Kind describes one operation kind.
type Kind struct {
	Name     string
	Steps    int
	Strategy Strategy

	Anchor   string   // role whose id keys a group, typically "open"
	Terminal string   // role that ends a trigger walk, typically "close"
	Sequence []string // expected role order (count strategy)
	MinChain int      // inclusive minimum of classified walk members (chain strategy)

	// CorrelationKey is a resource path shared by all members of one
	// operation (count strategy). Empty disables key filtering.
	CorrelationKey string

	DataRole string // read/write role (siblings strategy)
	TickRole string // structural role (siblings strategy)

	Roles  []Role        // declaration order
	Shared []string      // roles exempt from exclusivity
	Config []ConfigField // values copied into the assembled operation
}

// Role is the signature of one role within a kind.
type Role struct {
	Name         string
	Type         string
	Frames       []FramePattern
	RequirePaths []string
	Flags        []Flag
}

// FramePattern requires the stack frame at Depth to match Pattern.
type FramePattern struct {
	Depth   int
	Pattern *regexp.Regexp
}

// Flag requires a boolean resource path to hold Value.
type Flag struct {
	Path  string
	Value bool
}

// ConfigField copies the value at Path on the given role's resource into the
// operation's config under Name.
type ConfigField struct {
	Name string
	Role string
	Path string
}

// Structural reports whether the role inspects the resource payload.
func (r *Role) Structural() bool {
	return len(r.RequirePaths) > 0 || len(r.Flags) > 0
}

// Kind returns the kind with the given name.
func (t *Table) Kind(name string) (*Kind, bool) {
	for i := range t.Kinds {
		if t.Kinds[i].Name == name {
			return &t.Kinds[i], true
		}
	}
	return nil, false
}

// Role returns the role with the given name.
func (k *Kind) Role(name string) (*Role, bool) {
	for i := range k.Roles {
		if k.Roles[i].Name == name {
			return &k.Roles[i], true
		}
	}
	return nil, false
}

// IsShared reports whether role is exempt from exclusivity.
func (k *Kind) IsShared(role string) bool {
	for _, r := range k.Shared {
		if r == role {
			return true
		}
	}
	return false
}

// IsLibrary reports whether a source location belongs to runtime or library
// code rather than the caller's own code.
func (t *Table) IsLibrary(location string) bool {
	for _, re := range t.LibraryLocations {
		if re.MatchString(location) {
			return true
		}
	}
	return false
}

// FrameLocation extracts the source location from a frame signature:
// "at open (fs.js:10:3)" yields "fs.js:10:3", "at /app/x.js:4:1" yields
// "/app/x.js:4:1".
func FrameLocation(frame string) string {
	frame = strings.TrimSpace(frame)
	if open := strings.LastIndex(frame, "("); open >= 0 && strings.HasSuffix(frame, ")") {
		return frame[open+1 : len(frame)-1]
	}
	return strings.TrimSpace(strings.TrimPrefix(frame, "at "))
}
