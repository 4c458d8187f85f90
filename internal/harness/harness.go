package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/oplens/internal/activity"
	"github.com/roach88/oplens/internal/engine"
	"github.com/roach88/oplens/internal/signature"
	"github.com/roach88/oplens/internal/store"
	"github.com/roach88/oplens/internal/testutil"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// CaptureID is the id the batch was stored under.
	CaptureID string `json:"captureId"`

	// Report is the processed result.
	Report *engine.Result `json:"report"`

	// Stored is the report as read back from the store.
	Stored []store.ReportEntry `json:"stored"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Create a fresh in-memory store with fixed capture ids
//  2. Save the batch and load it back
//  3. Process it with the scenario's table and options
//  4. Save the report and load it back
//  5. Evaluate assertions
//
// An error means the scenario could not run; failed assertions are
// reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewFixedIDGenerator("")))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	table := signature.Default()
	if scenario.Signatures != "" {
		if table, err = signature.LoadFile(scenario.Signatures); err != nil {
			return nil, fmt.Errorf("failed to load signatures: %w", err)
		}
	}

	batch, err := activity.NewStore(scenario.Activities)
	if err != nil {
		return nil, fmt.Errorf("invalid activities: %w", err)
	}

	capture, err := st.SaveCapture(ctx, scenario.Name, batch)
	if err != nil {
		return nil, err
	}
	loaded, _, err := st.LoadCapture(ctx, capture.ID)
	if err != nil {
		return nil, err
	}

	opts := append(scenario.Options.engineOptions(),
		engine.WithTable(table),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	report, err := engine.Process(loaded, opts...)
	if err != nil {
		return nil, fmt.Errorf("process: %w", err)
	}

	if err := st.SaveReport(ctx, capture.ID, table.Version, report); err != nil {
		return nil, err
	}
	stored, err := st.LoadReport(ctx, capture.ID)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.CaptureID = capture.ID
	result.Report = report
	result.Stored = stored

	checkStored(report, stored, result)
	for i, assertion := range scenario.Assertions {
		if err := evaluate(report, assertion); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	return result, nil
}

func (o Options) engineOptions() []engine.EngineOption {
	var opts []engine.EngineOption
	if o.IncludeActivities != nil {
		opts = append(opts, engine.WithActivities(*o.IncludeActivities))
	}
	if o.SeparateFunctions != nil {
		opts = append(opts, engine.WithSeparateFunctions(*o.SeparateFunctions))
	}
	if o.MergeFunctions != nil {
		opts = append(opts, engine.WithMergeFunctions(*o.MergeFunctions))
	}
	if o.CrossKindExclusivity != nil {
		opts = append(opts, engine.WithCrossKindExclusivity(*o.CrossKindExclusivity))
	}
	return opts
}

// checkStored verifies the stored report lists the same entries.
func checkStored(report *engine.Result, stored []store.ReportEntry, result *Result) {
	if len(stored) != len(report.Entries) {
		result.AddError(fmt.Sprintf("stored report has %d entries, processed %d", len(stored), len(report.Entries)))
		return
	}
	for i, e := range report.Entries {
		if stored[i].Kind != e.Kind || stored[i].Anchor != e.Anchor {
			result.AddError(fmt.Sprintf("stored entry %d is %s/%d, processed %s/%d",
				i, stored[i].Kind, stored[i].Anchor, e.Kind, e.Anchor))
		}
	}
}
