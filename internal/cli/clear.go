package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/wardbook/internal/view"
)

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear (results|form)",
		Short: "Clear persisted console results or the form draft",
		Long: `Clear persisted state and notify other views.

  clear results  wipes the last query/results (history is kept)
  clear form     deletes the registration-form draft`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runClear(opts *RootOptions, target string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if target != "results" && target != "form" {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown clear target %q (want results or form)", target))
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

	b := newBus()
	switch target {
	case "results":
		console := view.NewConsole(st, b)
		if err := console.Mount(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to mount console", err)
		}
		defer console.Unmount()
		if err := console.Clear(ctx); err != nil {
			_ = out.Error(ErrCodeStoreWrite, err.Error(), nil)
			return WrapExitError(ExitFailure, "clear failed", err)
		}
		return out.Success("results cleared")
	default: // form
		form := view.NewForm(st, b)
		if err := form.Mount(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to mount form", err)
		}
		defer form.Unmount()
		if err := form.Clear(ctx); err != nil {
			_ = out.Error(ErrCodeStoreWrite, err.Error(), nil)
			return WrapExitError(ExitFailure, "clear failed", err)
		}
		return out.Success("form draft cleared")
	}
}
