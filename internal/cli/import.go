package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/oplens/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
	Label    string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <batch-file>",
		Short: "Store an activity batch as a capture",
		Long: `Store a captured activity batch in a SQLite database so it can be
processed later with "oplens process --capture".

Example:
  oplens import --db ./oplens.db ./capture.json --label "before upgrade"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

			batch, err := LoadBatch(args[0])
			if err != nil {
				le := asLoadError(err)
				return formatter.fail(ExitCommandError, le.Code, le.Error())
			}

			st, err := store.Open(opts.Database)
			if err != nil {
				return formatter.fail(ExitCommandError, ErrCodeLoadFailed, err.Error())
			}
			defer func() {
				if closeErr := st.Close(); closeErr != nil {
					slog.Error("error closing database", "error", closeErr)
				}
			}()

			label := opts.Label
			if label == "" {
				label = filepath.Base(args[0])
			}
			capture, err := st.SaveCapture(cmd.Context(), label, batch)
			if err != nil {
				return formatter.fail(ExitCommandError, ErrCodeWriteFailed, err.Error())
			}
			slog.Debug("capture saved", "id", capture.ID, "activities", capture.ActivityCount)

			if opts.Format == "json" {
				return formatter.Success(capture)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s imported %d activities as %s\n", mark(true), capture.ActivityCount, capture.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Label, "label", "", "capture label (default: file name)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}
