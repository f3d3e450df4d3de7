package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/wardbook/internal/view"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard aggregates",
		Long: `Show the dashboard view: total patients, patients added today, and the
most recently registered records.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, cmd)
		},
	}

	return cmd
}

func runStats(opts *RootOptions, cmd *cobra.Command) error {
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

	dash := view.NewDashboard(st, newBus())
	if err := dash.Mount(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to mount dashboard", err)
	}
	defer dash.Unmount()

	v := dash.View()
	if opts.Format == "json" {
		return out.Success(v)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "patients:     %d\n", v.TotalPatients)
	fmt.Fprintf(w, "added today:  %d\n", v.AddedToday)
	if len(v.Recent) > 0 {
		fmt.Fprintln(w, "recent:")
		for _, p := range v.Recent {
			fmt.Fprintf(w, "  %s  %s %s (born %s)\n", p.ID, p.FirstName, p.LastName, p.DateOfBirth)
		}
	}
	return nil
}
