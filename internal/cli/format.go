package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhath/ezspanner/internal/format"
)

// FormatOptions holds options for the format command.
type FormatOptions struct {
	Multiline bool
}

// NewFormatCommand creates the format command.
func NewFormatCommand() *cobra.Command {
	opts := &FormatOptions{}

	cmd := &cobra.Command{
		Use:   "format [file]",
		Short: "Format SQL from a file or stdin",
		Long: `Rewrite SQL into the console's layout: reserved words upper-cased,
whitespace collapsed and, with --multiline, each major clause on its own line.`,
		Example: `  # Format a file
  ezspanner format query.sql

  # Format stdin on a single line
  echo "select * from t where a = 1" | ezspanner format --multiline=false`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("multiline") {
				opts.Multiline = mustEnv(cmd).cfg.MultilineFormat
			}
			return runFormat(cmd.InOrStdin(), cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Multiline, "multiline", "m", true, "place each major clause on its own line")
	return cmd
}

func runFormat(in io.Reader, out io.Writer, args []string, opts *FormatOptions) error {
	text, err := readInput(in, args)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, format.Format(text, format.Settings{Multiline: opts.Multiline}))
	return err
}

// readInput returns the contents of the file named by args, or all of in.
func readInput(in io.Reader, args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read %s: %w", args[0], err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
