package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/wardbook/internal/view"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Rerun bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Run ad-hoc SQL against the store",
		Long: `Run free-text SQL verbatim against the embedded store.

Results are post-processed the way the console renders them: a derived age
column when a date_of_birth column is present, and title-cased header
labels. The query, its results, and a bounded history are persisted so the
next mounted console restores them.

With --last and no argument, the previously persisted query is re-run.

Example:
  wardbook --db ward.db query 'SELECT first_name, gender, date_of_birth FROM patients'
  wardbook --db ward.db query --last`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlText := ""
			if len(args) == 1 {
				sqlText = args[0]
			}
			return runQuery(opts, sqlText, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Rerun, "last", false, "re-run the last persisted query")

	return cmd
}

func runQuery(opts *QueryOptions, sqlText string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	console := view.NewConsole(st, newBus())
	if err := console.Mount(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to mount console", err)
	}
	defer console.Unmount()

	if sqlText == "" {
		if !opts.Rerun {
			return NewExitError(ExitCommandError, "no SQL given (pass a statement or --last)")
		}
		sqlText = console.View().Query
		if sqlText == "" {
			return NewExitError(ExitCommandError, "no persisted query to re-run")
		}
	}

	v, err := console.Run(ctx, sqlText)
	if err != nil {
		_ = out.Error(ErrCodeBadSQL, err.Error(), nil)
		return WrapExitError(ExitFailure, "query failed", err)
	}

	if opts.Format == "json" {
		return out.Success(v)
	}
	renderTable(cmd, v)
	return nil
}

// renderTable prints a result set as an aligned text table.
func renderTable(cmd *cobra.Command, v view.ConsoleView) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(v.Headers, "\t"))
	for _, row := range v.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "(%d row(s))\n", v.RowCount)
}
