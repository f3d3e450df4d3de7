package cli

import (
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/wardbook/internal/record"
	"github.com/roach88/wardbook/internal/view"
)

// intakeSchema constrains intake documents before any row touches the
// database. Field shapes mirror record.PatientInput.Validate, but the CUE
// pass rejects a whole malformed batch up front with positions intact.
const intakeSchema = `
#Patient: {
	first_name:          string & !=""
	last_name:           string & !=""
	date_of_birth:       string & =~"^[0-9]{4}-[0-9]{2}-[0-9]{2}$"
	gender?:             "female" | "male" | "other"
	email?:              string & =~"@"
	phone?:              string
	address?:            string
	insurance_provider?: string
	insurance_number?:   string
	medical_conditions?: string
	medications?:        string
	allergies?:          string
}

patients: [...#Patient]
`

// intakeDoc is the YAML shape of an intake file.
type intakeDoc struct {
	Patients []record.PatientInput `yaml:"patients"`
}

// IntakeOptions holds flags for the intake command.
type IntakeOptions struct {
	*RootOptions
	DryRun bool
}

// NewIntakeCommand creates the intake command.
func NewIntakeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IntakeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "intake <file.yaml>",
		Short: "Register patients from a YAML intake file",
		Long: `Register a batch of patients from a YAML intake file.

The file is validated against an embedded CUE schema before any record is
written; a single invalid entry rejects the whole batch.

Example:
  wardbook --db ward.db intake ./admissions.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntake(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "validate only, write nothing")

	return cmd
}

func runIntake(opts *IntakeOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	doc, err := loadIntake(path)
	if err != nil {
		_ = out.Error(ErrCodeBadIntake, err.Error(), nil)
		return WrapExitError(ExitFailure, "intake validation failed", err)
	}
	out.VerboseLog("intake file valid: %d patient(s)", len(doc.Patients))

	if opts.DryRun {
		return out.Success(fmt.Sprintf("%d patient(s) valid, nothing written", len(doc.Patients)))
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

	ids := make([]string, 0, len(doc.Patients))
	for i, in := range doc.Patients {
		form.SetInput(in)
		p, err := form.Submit(ctx)
		if err != nil {
			_ = out.Error(ErrCodeStoreWrite, fmt.Sprintf("patient %d: %v", i, err), nil)
			return WrapExitError(ExitFailure, "intake aborted", err)
		}
		ids = append(ids, p.ID)
	}

	if opts.Format == "json" {
		return out.Success(map[string]any{"registered": len(ids), "ids": ids})
	}
	return out.Success(fmt.Sprintf("registered %d patient(s)", len(ids)))
}

// loadIntake reads, parses, and CUE-validates an intake file.
func loadIntake(path string) (*intakeDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read intake file: %w", err)
	}

	// Validate the generic document against the schema first, so errors
	// point at the offending field rather than a half-decoded struct.
	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("parse intake file: %w", err)
	}

	cctx := cuecontext.New()
	schema := cctx.CompileString(intakeSchema)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile intake schema: %w", err)
	}

	unified := schema.Unify(cctx.Encode(generic))
	if err := unified.Err(); err != nil {
		return nil, fmt.Errorf("intake file does not match schema: %w", err)
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("intake file does not match schema: %w", err)
	}

	var doc intakeDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode intake file: %w", err)
	}

	return &doc, nil
}
