package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/internal/querydoc"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError describes one rejected document.
type ValidationError struct {
	File    string `json:"file"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <query-file>...",
		Short: "Check query documents against the schema",
		Long: `Check query documents against the query schema without compiling them.

Every file is checked and all failures are reported together.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	_, formatter, err := setup(opts, cmd)
	if err != nil {
		return err
	}

	var errs []ValidationError
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		if verr := validateFile(path); verr != nil {
			errs = append(errs, *verr)
		}
	}

	if len(errs) > 0 {
		return outputValidationErrors(formatter, len(paths), errs)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Files: len(paths)})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d query document(s) valid\n", len(paths))
	return nil
}

func validateFile(path string) *ValidationError {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ValidationError{File: path, Code: ErrCodeReadFailed, Message: err.Error()}
	}
	if _, err := querydoc.Parse(path, data); err != nil {
		verr := &ValidationError{File: path, Code: ErrCodeInvalidDoc, Message: err.Error()}
		var docErr *querydoc.Error
		if errors.As(err, &docErr) {
			verr.Message = docErr.Message
			if docErr.Pos.IsValid() {
				verr.Line = docErr.Pos.Line()
			}
		}
		return verr
	}
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, files int, errs []ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Files: files, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, e := range errs {
		if e.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", e.File, e.Line)
		} else {
			fmt.Fprintln(formatter.Writer, e.File)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", e.Code, e.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
