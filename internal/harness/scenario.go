package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/oplens/internal/activity"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Signatures is an optional CUE signature table. Relative paths are
	// resolved against the scenario file's directory. Empty means the
	// embedded default table.
	Signatures string `yaml:"signatures,omitempty"`

	// Options overrides engine options. Unset fields keep engine defaults.
	Options Options `yaml:"options,omitempty"`

	// Activities is the batch, in capture order.
	Activities []activity.Activity `yaml:"activities"`

	// Assertions validate the processed result.
	Assertions []Assertion `yaml:"assertions"`
}

// Options mirrors the engine options a scenario may set.
type Options struct {
	IncludeActivities    *bool `yaml:"include_activities,omitempty"`
	SeparateFunctions    *bool `yaml:"separate_functions,omitempty"`
	MergeFunctions       *bool `yaml:"merge_functions,omitempty"`
	CrossKindExclusivity *bool `yaml:"cross_kind_exclusivity,omitempty"`
}

// Assertion validates the processed result.
type Assertion struct {
	// Type specifies the assertion type (see package documentation).
	Type string `yaml:"type"`

	// Kind is the operation kind (all types except exclusive, where it is
	// optional).
	Kind string `yaml:"kind,omitempty"`

	// Anchor selects the group (group, role, called_by, user_functions).
	Anchor int64 `yaml:"anchor,omitempty"`

	// Count is the expected count (group_count, user_functions).
	Count int `yaml:"count,omitempty"`

	// Members are the expected group members in ascending order (group).
	Members []int64 `yaml:"members,omitempty"`

	// Role and ID select a role record (role).
	Role string `yaml:"role,omitempty"`
	ID   int64  `yaml:"id,omitempty"`

	// Candidate and Reason select a drop (dropped). Reason is a substring.
	Candidate int64  `yaml:"candidate,omitempty"`
	Reason    string `yaml:"reason,omitempty"`

	// Expect is the expected call site (called_by).
	Expect string `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertGroupCount    = "group_count"
	AssertGroup         = "group"
	AssertRole          = "role"
	AssertDropped       = "dropped"
	AssertCalledBy      = "called_by"
	AssertUserFunctions = "user_functions"
	AssertExclusive     = "exclusive"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Signatures != "" && !filepath.IsAbs(scenario.Signatures) {
		scenario.Signatures = filepath.Join(filepath.Dir(path), scenario.Signatures)
	}
	if scenario.Signatures != "" {
		if _, err := os.Stat(scenario.Signatures); err != nil {
			return nil, fmt.Errorf("invalid scenario: signatures file not found: %s", scenario.Signatures)
		}
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML. Signature paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// KnownFields catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Activities) == 0 {
		return fmt.Errorf("activities list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	seen := make(map[int64]bool, len(s.Activities))
	for i, a := range s.Activities {
		if seen[a.ID] {
			return fmt.Errorf("activities[%d]: duplicate id %d", i, a.ID)
		}
		seen[a.ID] = true
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Type != AssertExclusive && a.Kind == "" {
		return fmt.Errorf("assertions[%d]: kind is required for %s", index, a.Type)
	}

	switch a.Type {
	case AssertGroupCount, AssertUserFunctions:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertGroup:
		if len(a.Members) == 0 {
			return fmt.Errorf("assertions[%d]: members list is required for group", index)
		}
	case AssertRole:
		if a.Role == "" {
			return fmt.Errorf("assertions[%d]: role is required for role", index)
		}
	case AssertDropped:
		if a.Candidate == 0 {
			return fmt.Errorf("assertions[%d]: candidate is required for dropped", index)
		}
	case AssertCalledBy:
		if a.Expect == "" {
			return fmt.Errorf("assertions[%d]: expect is required for called_by", index)
		}
	case AssertExclusive:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
