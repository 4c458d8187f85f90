package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_StoresReport(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "readfile_single.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, "00000000-0000-7000-8000-000000000001", result.CaptureID)
	require.Len(t, result.Stored, 1)
	assert.Equal(t, "fs.readFile", result.Stored[0].Kind)
	assert.Equal(t, int64(10), result.Stored[0].Anchor)
	assert.NotEmpty(t, result.Stored[0].Digest)
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "writestream_siblings.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, Summary(first.Report), Summary(second.Report))
	require.Len(t, first.Stored, 1)
	require.Len(t, second.Stored, 1)
	assert.Equal(t, first.Stored[0].Digest, second.Stored[0].Digest)
}

func TestRun_FailingAssertions(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: failing
description: every assertion is wrong
activities:
  - id: 10
    triggerId: 1
    type: FSREQWRAP
    initStack: ["at Object.fs.readFile (fs.js:296:11)"]
    init: [1000]
assertions:
  - type: group_count
    kind: fs.readFile
    count: 1
  - type: group
    kind: fs.readFile
    anchor: 10
    members: [10]
  - type: dropped
    kind: fs.readFile
    candidate: 99
    reason: anything
  - type: group_count
    kind: no.such.kind
    count: 0
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "assertions[0]: group_count")
	assert.Contains(t, result.Errors[1], "group anchored at 10")
	assert.Contains(t, result.Errors[2], "candidate 99 dropped")
	assert.Contains(t, result.Errors[3], "kind not in signature table")
}

func TestRun_CustomSignatures(t *testing.T) {
	dir := t.TempDir()
	table := `
version: "custom"
kinds: {
	"x.pair": {
		steps: 2
		strategy: "chain"
		minChain: 2
		anchor: "open"
		terminal: "close"
		roles: {
			open: {type: "OPEN", frames: [{depth: 0, pattern: "^at open"}]}
			close: {type: "CLOSE", frames: [{depth: 0, pattern: "^at close"}]}
		}
	}
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pair.cue"), []byte(table), 0o644))
	scenarioYAML := `
name: custom
description: a custom signature table is loaded next to the scenario
signatures: pair.cue
options:
  cross_kind_exclusivity: false
activities:
  - {id: 1, triggerId: 0, type: OPEN, initStack: ["at open (/app/x.js:1:1)"], init: [1000]}
  - {id: 2, triggerId: 1, type: CLOSE, initStack: ["at close (/app/x.js:2:1)"], init: [2000]}
assertions:
  - type: group
    kind: x.pair
    anchor: 1
    members: [1, 2]
`
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioYAML), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "pair.cue"), scenario.Signatures)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "x.pair anchor=1 members=1,2 roles=open:1,close:2\n", string(Summary(result.Report)))
}

func TestAssertExclusive_DetectsSharedMember(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "readfile_single.yaml"))
	require.NoError(t, err)
	result, err := Run(scenario)
	require.NoError(t, err)

	kr, ok := result.Report.Kind("fs.readFile")
	require.True(t, ok)
	kr.Groups[99] = []int64{12}

	err = evaluate(result.Report, Assertion{Type: AssertExclusive})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "groups 10 and 99", ae.Actual)
}
