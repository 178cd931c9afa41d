package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mkoski/fieldtrail/internal/harness"
)

// FileValidation holds the validation result for one scenario file.
type FileValidation struct {
	File  string `json:"file"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results for a whole run.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file-or-dir>",
		Short: "Validate scenarios without running them",
		Long: `Validate scenario files without executing them.

Checks YAML syntax, the scenario schema (unknown fields, operation
vocabulary, required keys), and structural coherence: tracked fields
must be declared, page handles must be introduced before use, variants
need the multi-language capability.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	files, err := findScenarioFiles(path, "")
	if err != nil {
		_ = formatter.Error("E_PATH", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	if len(files) == 0 {
		_ = formatter.Error("E_NO_SCENARIOS", fmt.Sprintf("no scenario files found in %s", path), nil)
		return NewExitError(ExitCommandError, "no scenario files found")
	}

	result := ValidationResult{Valid: true}
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)
		fv := FileValidation{File: file, Valid: true}
		if _, err := harness.LoadScenario(file); err != nil {
			fv.Valid = false
			fv.Error = err.Error()
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if result.Valid {
		return outputValidateSuccess(formatter, result)
	}
	return outputValidateErrors(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %d scenario(s) valid\n", len(result.Files))
	return nil
}

// outputValidateErrors outputs per-file validation failures.
func outputValidateErrors(formatter *OutputFormatter, result ValidationResult) error {
	invalid := 0
	for _, f := range result.Files {
		if !f.Valid {
			invalid++
		}
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    "E_INVALID_SCENARIO",
				Message: fmt.Sprintf("%d scenario file(s) invalid", invalid),
			},
		}
		if err := formatter.WriteJSON(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario file(s) invalid", invalid))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, f := range result.Files {
		if f.Valid {
			continue
		}
		fmt.Fprintf(formatter.Writer, "%s\n", filepath.Base(f.File))
		fmt.Fprintf(formatter.Writer, "  %s\n\n", f.Error)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d scenario file(s) invalid", invalid))
}
