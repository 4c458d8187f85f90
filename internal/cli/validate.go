package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/oplens/internal/signature"
)

// ValidationError is one problem found in a signature table.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Version string            `json:"version,omitempty"`
	Kinds   []KindSummary     `json:"kinds,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

// KindSummary describes one kind of a valid table.
type KindSummary struct {
	Name     string   `json:"name"`
	Steps    int      `json:"steps"`
	Strategy string   `json:"strategy"`
	Roles    []string `json:"roles"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [table.cue]",
		Short: "Validate a signature table",
		Long: `Compile a CUE signature table and report problems with their line.

Without an argument the embedded default table is validated and
summarized.

Examples:
  oplens validate ./signatures.cue
  oplens validate --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	table, err := LoadTable(path)
	if err != nil {
		le := asLoadError(err)
		if le.Code == ErrCodeNotFound {
			return formatter.fail(ExitCommandError, le.Code, le.Message)
		}
		return outputValidationErrors(formatter, []ValidationError{{
			Code:    le.Code,
			Message: le.Message,
			Line:    le.Line(),
		}})
	}

	formatter.VerboseLog("Compiled %d kind(s) from %s", len(table.Kinds), displayPath(path))
	return outputValidateSuccess(formatter, table)
}

func displayPath(path string) string {
	if path == "" {
		return "embedded table"
	}
	return path
}

func summarize(table *signature.Table) []KindSummary {
	kinds := make([]KindSummary, 0, len(table.Kinds))
	for _, k := range table.Kinds {
		roles := make([]string, len(k.Roles))
		for i, r := range k.Roles {
			roles[i] = r.Name
		}
		kinds = append(kinds, KindSummary{Name: k.Name, Steps: k.Steps, Strategy: string(k.Strategy), Roles: roles})
	}
	sort.SliceStable(kinds, func(i, j int) bool { return kinds[i].Name < kinds[j].Name })
	return kinds
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, table *signature.Table) error {
	result := ValidationResult{Valid: true, Version: table.Version, Kinds: summarize(table)}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s Signature table valid (version %s)\n", mark(true), table.Version)
	for _, k := range result.Kinds {
		fmt.Fprintf(w, "  %-16s %d steps, %s, roles %v\n", k.Name, k.Steps, k.Strategy, k.Roles)
	}
	return nil
}

// outputValidationErrors outputs validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintf(formatter.Writer, "%s Validation failed\n\n", mark(false))
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
