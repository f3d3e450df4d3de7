package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/wardbook/internal/view"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the persisted SQL history",
		Long: `Show the console's persisted SQL history, oldest first.

History holds at most ` + fmt.Sprint(view.HistoryLimit) + ` distinct entries; re-running an
identical statement does not add a duplicate.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, cmd)
		},
	}

	return cmd
}

func runHistory(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := openStore(opts)
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

	history := console.View().History
	if opts.Format == "json" {
		return out.Success(history)
	}

	if len(history) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no history")
		return nil
	}
	for i, q := range history {
		fmt.Fprintf(cmd.OutOrStdout(), "%2d  %s\n", i+1, q)
	}
	return nil
}
