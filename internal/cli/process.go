package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/oplens/internal/activity"
	"github.com/roach88/oplens/internal/assemble"
	"github.com/roach88/oplens/internal/classify"
	"github.com/roach88/oplens/internal/engine"
	"github.com/roach88/oplens/internal/signature"
	"github.com/roach88/oplens/internal/store"
)

// ProcessOptions holds flags for the process command.
type ProcessOptions struct {
	*RootOptions
	Database          string
	Capture           string
	Signatures        string
	Label             string
	Save              bool
	IncludeActivities bool
	SeparateFunctions bool
	MergeFunctions    bool
	CrossKind         bool
}

// ProcessOutput is the JSON payload of the process command.
type ProcessOutput struct {
	CaptureID      string                   `json:"captureId,omitempty"`
	TableVersion   string                   `json:"tableVersion"`
	Activities     int                      `json:"activities"`
	Counts         map[string]int           `json:"counts"`
	Operations     []engine.Entry           `json:"operations"`
	OrderViolation *activity.OrderViolation `json:"orderViolation,omitempty"`
}

// NewProcessCommand creates the process command.
func NewProcessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProcessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "process [batch-file]",
		Short: "Reconstruct operations from an activity batch",
		Long: `Group the activities of a captured batch into fs operations.

The batch is read from a JSON or YAML file, or from a capture stored in a
database with --db and --capture. With --save the report is written to the
database; a file batch is imported first.

Examples:
  oplens process ./capture.json
  oplens process ./capture.yaml --format json --include-activities
  oplens process --db ./oplens.db --capture 0192...
  oplens process ./capture.json --db ./oplens.db --save --label nightly`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Capture, "capture", "", "stored capture id to process (requires --db)")
	cmd.Flags().StringVar(&opts.Signatures, "signatures", "", "CUE signature table (default: embedded table)")
	cmd.Flags().StringVar(&opts.Label, "label", "", "capture label when saving a file batch (default: file name)")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "store the report in the database (requires --db)")
	cmd.Flags().BoolVar(&opts.IncludeActivities, "include-activities", false, "embed raw activities in role records")
	cmd.Flags().BoolVar(&opts.SeparateFunctions, "separate-functions", true, "lift user callbacks to the operation")
	cmd.Flags().BoolVar(&opts.MergeFunctions, "merge-functions", true, "merge lifted callbacks by location")
	cmd.Flags().BoolVar(&opts.CrossKind, "cross-kind-exclusivity", true, "hide ids claimed by earlier kinds")

	return cmd
}

func runProcess(ctx context.Context, opts *ProcessOptions, args []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if len(args) == 1 && opts.Capture != "" {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, "give either a batch file or --capture, not both")
	}
	if len(args) == 0 && opts.Capture == "" {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, "a batch file or --db with --capture is required")
	}
	if (opts.Capture != "" || opts.Save) && opts.Database == "" {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, "--capture and --save require --db")
	}

	table, err := LoadTable(opts.Signatures)
	if err != nil {
		le := asLoadError(err)
		return formatter.fail(ExitCommandError, le.Code, le.Error())
	}

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeLoadFailed, err.Error())
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
	}

	var (
		batch     *activity.Store
		captureID = opts.Capture
	)
	if captureID != "" {
		batch, _, err = st.LoadCapture(ctx, captureID)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeNotFound, err.Error())
		}
	} else {
		batch, err = LoadBatch(args[0])
		if err != nil {
			le := asLoadError(err)
			return formatter.fail(ExitCommandError, le.Code, le.Error())
		}
	}
	slog.Debug("batch loaded", "activities", batch.Len(), "table", table.Version)

	if opts.Verbose {
		logClassification(batch, table)
	}

	eng := engine.New(
		engine.WithTable(table),
		engine.WithActivities(opts.IncludeActivities),
		engine.WithSeparateFunctions(opts.SeparateFunctions),
		engine.WithMergeFunctions(opts.MergeFunctions),
		engine.WithCrossKindExclusivity(opts.CrossKind),
		engine.WithLogger(slog.Default()),
	)
	res, err := eng.Process(batch)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeBuildFailed, err.Error())
	}

	if opts.Save {
		if captureID == "" {
			label := opts.Label
			if label == "" {
				label = filepath.Base(args[0])
			}
			capture, err := st.SaveCapture(ctx, label, batch)
			if err != nil {
				return formatter.fail(ExitCommandError, ErrCodeWriteFailed, err.Error())
			}
			captureID = capture.ID
		}
		if err := st.SaveReport(ctx, captureID, table.Version, res); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeWriteFailed, err.Error())
		}
		slog.Info("report saved", "capture", captureID, "operations", len(res.Entries))
	}

	out := ProcessOutput{
		CaptureID:      captureID,
		TableVersion:   table.Version,
		Activities:     batch.Len(),
		Counts:         res.Count(),
		Operations:     res.Entries,
		OrderViolation: res.OrderViolation,
	}
	if out.Operations == nil {
		out.Operations = []engine.Entry{}
	}

	if opts.Format == "json" {
		return formatter.Success(out)
	}
	printProcessText(cmd.OutOrStdout(), res, out)
	return nil
}

// logClassification logs the tags of every classified activity at debug level.
func logClassification(batch *activity.Store, table *signature.Table) {
	c := classify.Classify(batch, table)
	for _, id := range batch.IDs() {
		tags := c.TagsOf(id)
		if len(tags) == 0 {
			continue
		}
		parts := make([]string, len(tags))
		for i, tag := range tags {
			parts[i] = tag.Kind + "/" + tag.Role
		}
		slog.Debug("activity classified", "id", id, "tags", strings.Join(parts, ","))
	}
}

func printProcessText(w io.Writer, res *engine.Result, out ProcessOutput) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	if out.CaptureID != "" {
		fmt.Fprintf(w, "Capture %s\n", out.CaptureID)
	}
	fmt.Fprintf(w, "%d activities, table %s\n", out.Activities, out.TableVersion)
	if res.OrderViolation != nil {
		fmt.Fprintf(w, "%s activity %d was initialized before %d; results may be incomplete\n",
			color.YellowString("warning:"), res.OrderViolation.ID, res.OrderViolation.PreviousID)
	}
	fmt.Fprintln(w)

	for _, kr := range res.Kinds {
		fmt.Fprintf(w, "%-16s %d\n", kr.Kind, len(kr.Operations))
	}

	for _, e := range res.Entries {
		op := e.Operation
		fmt.Fprintln(w)
		bold.Fprintf(w, "%s #%d", e.Kind, e.Anchor)
		fmt.Fprintf(w, "  alive %s\n", op.Lifecycle.TimeAlive.Pretty)
		fmt.Fprintf(w, "  called by %s\n", op.CalledBy)
		fmt.Fprintf(w, "  roles     %s\n", formatRoles(op))
		if len(op.Config) > 0 {
			fmt.Fprintf(w, "  config    %s\n", formatConfig(op.Config))
		}
		for _, fn := range op.UserFunctions {
			faint.Fprintf(w, "  fn        %s\n", formatFunction(fn))
		}
	}
}

func formatRoles(op *assemble.Operation) string {
	parts := make([]string, len(op.Roles))
	for i, rec := range op.Roles {
		parts[i] = fmt.Sprintf("%s:%d", rec.Role, rec.ID)
	}
	return strings.Join(parts, " ")
}

func formatConfig(cfg map[string]any) string {
	data, err := assemble.Canonical(cfg)
	if err != nil {
		return fmt.Sprint(cfg)
	}
	return string(data)
}

func formatFunction(fn assemble.FunctionInfo) string {
	name := fn.Name
	if name == "" {
		name = "(anonymous)"
	}
	paths := fn.PropertyPaths
	if len(paths) == 0 && fn.PropertyPath != "" {
		paths = []string{fn.PropertyPath}
	}
	return fmt.Sprintf("%s %s [%s]", name, fn.Location, strings.Join(paths, ", "))
}
