package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/wardbook/internal/record"
	"github.com/roach88/wardbook/internal/view"
)

// RegisterOptions holds flags for the register command.
type RegisterOptions struct {
	*RootOptions
	Input record.PatientInput
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegisterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new patient",
		Long: `Register a new patient record.

The record is validated, inserted with a client-generated UUIDv7 id, and a
patient-added notification is published so other mounted views refresh.

Example:
  wardbook --db ward.db register --first-name Ada --last-name Lovelace --dob 1815-12-10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(opts, cmd)
		},
	}

	in := &opts.Input
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name (required)")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name (required)")
	cmd.Flags().StringVar(&in.DateOfBirth, "dob", "", "date of birth, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&in.Gender, "gender", "", "gender (female|male|other)")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&in.Address, "address", "", "postal address")
	cmd.Flags().StringVar(&in.InsuranceProvider, "insurance-provider", "", "insurance provider")
	cmd.Flags().StringVar(&in.InsuranceNumber, "insurance-number", "", "insurance number")
	cmd.Flags().StringVar(&in.MedicalConditions, "conditions", "", "medical conditions (free text)")
	cmd.Flags().StringVar(&in.Medications, "medications", "", "medications (free text)")
	cmd.Flags().StringVar(&in.Allergies, "allergies", "", "allergies (free text)")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")
	_ = cmd.MarkFlagRequired("dob")

	return cmd
}

func runRegister(opts *RegisterOptions, cmd *cobra.Command) error {
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

	form := view.NewForm(st, newBus())
	if err := form.Mount(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to mount form", err)
	}
	defer form.Unmount()

	form.SetInput(opts.Input)
	p, err := form.Submit(ctx)
	if err != nil {
		_ = out.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitFailure, "registration failed", err)
	}

	if opts.Format == "json" {
		return out.Success(p)
	}
	return out.Success(fmt.Sprintf("registered %s %s (%s)", p.FirstName, p.LastName, p.ID))
}
