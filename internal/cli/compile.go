package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/datasource/recorder"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Terminal string
	Output   string // transcript file path
}

// CompilationResult is the JSON payload of compile.
type CompilationResult struct {
	File     string   `json:"file"`
	Table    string   `json:"table"`
	Terminal string   `json:"terminal"`
	Calls    []string `json:"calls"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query-file>",
		Short: "Print the backend calls a query document compiles to",
		Long: `Compile a query document without touching a database.

The query runs against a recording data source and the builder calls it
issued are printed one per line, in the order the backend receives them.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Terminal, "terminal", "t", TerminalMany, "terminal operation (many|one|first)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the call transcript to a file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	cfg, formatter, err := setup(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	if err := checkTerminal(formatter, opts.Terminal); err != nil {
		return err
	}

	doc, err := loadDocument(formatter, path)
	if err != nil {
		return err
	}

	rec := recorder.New()
	q := buildQuery(doc, rec, cfg, newLogger(opts.RootOptions, cmd))
	if _, err := runTerminal(cmd.Context(), q, opts.Terminal); err != nil {
		return queryFailure(formatter, err)
	}

	transcript := rec.Transcript()
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(transcript), 0644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "writing transcript", err)
		}
	}

	result := CompilationResult{
		File:     path,
		Table:    doc.Table,
		Terminal: opts.Terminal,
		Calls:    recorder.Lines(rec.Last().Calls),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprint(formatter.Writer, transcript)
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "Wrote transcript to %s\n", opts.Output)
	}
	return nil
}
