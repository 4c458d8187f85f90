package harness

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/oplens/internal/engine"
)

// Summary renders a processed result as stable text: per kind in run
// order, one line per operation then one line per drop.
//
//	fs.readFile anchor=10 members=10,11,12,13 roles=open:10,stat:11,read:12,close:13
//	drop fs.writeFile candidate=20 reason=no terminal
func Summary(report *engine.Result) []byte {
	var buf bytes.Buffer
	for _, kr := range report.Kinds {
		for _, e := range report.Entries {
			if e.Kind != kr.Kind {
				continue
			}
			fmt.Fprintf(&buf, "%s anchor=%d members=%s roles=%s\n",
				e.Kind, e.Anchor, joinIDs(kr.Groups[e.Anchor]), rolesOf(e.Operation))
		}
		for _, d := range kr.Dropped {
			fmt.Fprintf(&buf, "drop %s candidate=%d reason=%s\n", kr.Kind, d.Candidate, d.Reason)
		}
	}
	return buf.Bytes()
}

// RunWithGolden executes a scenario, fails t on assertion errors and
// compares its Summary with testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Errors {
		t.Errorf("%s: %s", scenario.Name, msg)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Summary(result.Report))

	return result, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
