package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/runcost/internal/compiler"
)

// FileValidationError is a validation error tagged with its source file.
type FileValidationError struct {
	File string `json:"file"`
	compiler.ValidationError
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                  `json:"valid"`
	Files  int                   `json:"files"`
	Series int                   `json:"series"`
	Errors []FileValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file-or-dir>",
		Short: "Validate series definitions without computing them",
		Long: `Validate CUE or YAML series definitions without computing them.

Checks syntax, required fields, component kinds and units, periods, rates,
amounts and windows. Every file under a directory is checked and all errors
are reported.

Exit codes:
  0 - All definitions valid
  1 - One or more validation errors
  2 - Command error (path not found, no definition files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadDefinitions(path, LoadModeCollectAll)

	// Handle load errors (path not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d definition file(s) in %s", loadResult.FileCount, path)

	result := ValidationResult{Files: loadResult.FileCount}
	result.Errors = validateAll(loadResult, opts.location(), formatter)

	// Add compile failures as validation errors
	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			result.Errors = append(result.Errors, FileValidationError{
				File: loadErr.File,
				ValidationError: compiler.ValidationError{
					Field:   "file",
					Message: loadErr.Message,
					Code:    loadErr.Code,
					Line:    loadErr.Line,
				},
			})
		}
	}

	for _, f := range loadResult.Files {
		result.Series += len(f.Series)
	}

	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}

	result.Valid = true
	return outputValidateSuccess(formatter, result)
}

// validateAll validates every series and window in the loaded files.
func validateAll(loaded *LoadResult, loc *time.Location, formatter *OutputFormatter) []FileValidationError {
	var all []FileValidationError
	for _, f := range loaded.Files {
		formatter.VerboseLog("Validating %s: %d series", f.Path, len(f.Series))
		for _, ve := range compiler.ValidateFile(f, loc) {
			all = append(all, FileValidationError{File: f.Path, ValidationError: ve})
		}
	}
	return all
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All definitions valid (%d series in %d file(s))\n", result.Series, result.Files)
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	// Command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.JSON() {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", err.File, err.Line)
		} else {
			fmt.Fprintln(formatter.Writer, err.File)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
