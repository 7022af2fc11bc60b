package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/thrustmig/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Source    string                     `json:"source"`
	Functions int                        `json:"functions"`
	Valid     bool                       `json:"valid"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [rules-dir]",
		Short: "Validate a rule table",
		Long: `Compile a CUE rule table and check it for consistency.

Reports every problem found: duplicate (args, policy) selection keys,
invalid argument or pointer counts, empty targets and unknown features.
Without a directory the built-in table is validated.

Examples:
  thrustmig validate
  thrustmig validate ./rules --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(rootOpts, dir, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := LoadRules(dir)
	if err != nil {
		code, message := loadErrorParts(err)
		_ = formatter.Error(code, message, nil)
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}

	formatter.VerboseLog("Loaded %d function(s) from %s (%d file(s))", len(loaded.Functions), loaded.Source, loaded.FileCount)

	result := ValidationResult{
		Source:    loaded.Source,
		Functions: len(loaded.Functions),
		Errors:    compiler.Validate(loaded.Functions),
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Rule table valid (%s, %d functions)\n", result.Source, result.Functions)
	return nil
}

// outputValidationErrors outputs every validation error.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.JSON() {
		first := result.Errors[0]
		if err := formatter.Encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: first.Code, Message: first.Message},
		}); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range result.Errors {
		fmt.Fprintf(formatter.Writer, "%s\n  %s: %s\n\n", e.Field, e.Code, e.Message)
	}
	return failure
}
