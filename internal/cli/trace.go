package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mkoski/fieldtrail/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Page int64 // restrict to one subject, 0 for all
}

// TraceRow is one audit log entry in trace output.
type TraceRow struct {
	Page     int64  `json:"page"`
	Field    int64  `json:"field"`
	User     int64  `json:"user"`
	Username string `json:"username"`
	Property string `json:"property"`
	Value    string `json:"value"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <db-path>",
		Short: "Dump the audit log of a revision database",
		Long: `Dump the joined audit log of a persisted revision database.

Rows are printed in insertion order, the order checkpoints compare
against. Use --page to restrict output to one subject.

Examples:
  fieldtrail trace ./revisions.db
  fieldtrail trace ./revisions.db --page 1001 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Page, "page", 0, "restrict to one page id")

	return cmd
}

func runTrace(opts *TraceOptions, dbPath string, cmd *cobra.Command) error {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", dbPath))
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	installed, err := st.SchemaInstalled(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to inspect database", err)
	}
	if !installed {
		return NewExitError(ExitCommandError, fmt.Sprintf("no revision schema in %s", dbPath))
	}

	var rows []store.Row
	if opts.Page != 0 {
		rows, err = st.ReadRowsForPage(ctx, opts.Page)
	} else {
		rows, err = st.ReadRows(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read audit log", err)
	}

	out := make([]TraceRow, len(rows))
	for i, r := range rows {
		out[i] = TraceRow{
			Page:     r.PageID,
			Field:    r.FieldID,
			User:     r.UserID,
			Username: r.UserName,
			Property: r.Property,
			Value:    r.Value,
		}
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	return outputTraceText(formatter, out)
}

// outputTraceText renders the audit log as an aligned table.
func outputTraceText(formatter *OutputFormatter, rows []TraceRow) error {
	if len(rows) == 0 {
		fmt.Fprintln(formatter.Writer, "Audit log is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tFIELD\tUSER\tUSERNAME\tPROPERTY\tVALUE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\t%s\n",
			r.Page, r.Field, r.User, r.Username, r.Property, r.Value)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(formatter.Writer, "\n%d row(s)\n", len(rows))
	return nil
}
