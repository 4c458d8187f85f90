package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/oplens/internal/store"
)

// CapturesOptions holds flags shared by the captures subcommands.
type CapturesOptions struct {
	*RootOptions
	Database string
}

// CaptureReport is the JSON payload of "captures show".
type CaptureReport struct {
	Capture store.Capture       `json:"capture"`
	Entries []store.ReportEntry `json:"entries"`
}

// NewCapturesCommand creates the captures command group.
func NewCapturesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CapturesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "captures",
		Short: "Inspect stored captures and reports",
		Long: `List, show, search and delete captures stored with "oplens import" or
"oplens process --save".

Examples:
  oplens captures list --db ./oplens.db
  oplens captures show --db ./oplens.db 0192...
  oplens captures find --db ./oplens.db 3f5a...`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newCapturesListCommand(opts))
	cmd.AddCommand(newCapturesShowCommand(opts))
	cmd.AddCommand(newCapturesFindCommand(opts))
	cmd.AddCommand(newCapturesDeleteCommand(opts))

	return cmd
}

// withStore opens the database for the duration of fn.
func withStore(opts *CapturesOptions, formatter *OutputFormatter, fn func(st *store.Store) error) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeLoadFailed, err.Error())
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	return fn(st)
}

func newCapturesListCommand(opts *CapturesOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List stored captures",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return withStore(opts, formatter, func(st *store.Store) error {
				captures, err := st.ListCaptures(cmd.Context())
				if err != nil {
					return formatter.fail(ExitCommandError, ErrCodeLoadFailed, err.Error())
				}
				if opts.Format == "json" {
					return formatter.Success(captures)
				}

				w := cmd.OutOrStdout()
				if len(captures) == 0 {
					fmt.Fprintln(w, "No captures stored.")
					return nil
				}
				for _, c := range captures {
					fmt.Fprintf(w, "%s  %5d activities  %s\n", color.CyanString(c.ID), c.ActivityCount, c.Label)
				}
				return nil
			})
		},
	}
}

func newCapturesShowCommand(opts *CapturesOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <capture-id>",
		Short:         "Show the stored report of a capture",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return withStore(opts, formatter, func(st *store.Store) error {
				capture, err := st.ReadCapture(cmd.Context(), args[0])
				if err != nil {
					return notFoundOr(formatter, err)
				}
				entries, err := st.LoadReport(cmd.Context(), capture.ID)
				if err != nil {
					return formatter.fail(ExitCommandError, ErrCodeLoadFailed, err.Error())
				}
				if opts.Format == "json" {
					return formatter.Success(CaptureReport{Capture: capture, Entries: entries})
				}

				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Capture %s (%s), %d activities\n", capture.ID, capture.Label, capture.ActivityCount)
				if len(entries) == 0 {
					fmt.Fprintln(w, "No report stored. Run: oplens process --save --capture", capture.ID)
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(w, "%-16s #%-6d %s  %s\n", e.Kind, e.Anchor, e.Digest[:12], formatRoles(e.Operation))
				}
				return nil
			})
		},
	}
}

func newCapturesFindCommand(opts *CapturesOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "find <digest>",
		Short:         "Find captures containing an operation digest",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return withStore(opts, formatter, func(st *store.Store) error {
				ids, err := st.FindByDigest(cmd.Context(), args[0])
				if err != nil {
					return formatter.fail(ExitCommandError, ErrCodeLoadFailed, err.Error())
				}
				if ids == nil {
					ids = []string{}
				}
				if opts.Format == "json" {
					return formatter.Success(ids)
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
}

func newCapturesDeleteCommand(opts *CapturesOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <capture-id>",
		Short:         "Delete a capture and its report",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return withStore(opts, formatter, func(st *store.Store) error {
				if err := st.DeleteCapture(cmd.Context(), args[0]); err != nil {
					return notFoundOr(formatter, err)
				}
				if opts.Format == "json" {
					return formatter.Success(map[string]string{"deleted": args[0]})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s deleted %s\n", mark(true), args[0])
				return nil
			})
		},
	}
}

func notFoundOr(formatter *OutputFormatter, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, err.Error())
	}
	return formatter.fail(ExitCommandError, ErrCodeLoadFailed, err.Error())
}
