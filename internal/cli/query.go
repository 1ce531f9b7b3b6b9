package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhath/ezspanner/internal/session"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Yes    bool
	Output string
	File   string
}

// ErrCancelled is returned when the user declines to run a query.
var ErrCancelled = errors.New("query cancelled")

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run one query and print its results",
		Long: `Run a query against the configured connection. The query goes through
the same session as the console: with confirm_execution on, you are asked
before it runs unless --yes is given. Successful queries are journaled when
history persistence is on. When the SQL comes from stdin there is nothing
left to answer the prompt with, so pass --yes.`,
		Example: `  ezspanner query -p my-project -i my-instance -d my-db "SELECT 1"
  ezspanner query --yes --output json -f report.sql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), mustEnv(cmd), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "run without asking for confirmation")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", OutputTable, "output format: table, json")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read SQL from file")
	return cmd
}

func runQuery(ctx context.Context, e *env, in io.Reader, out, errOut io.Writer, args []string, opts *QueryOptions) error {
	reader := bufio.NewReader(in)

	sql := strings.Join(args, " ")
	if opts.File != "" || sql == "" {
		var fileArgs []string
		if opts.File != "" {
			fileArgs = []string{opts.File}
		}
		text, err := readInput(reader, fileArgs)
		if err != nil {
			return err
		}
		sql = text
	}
	if strings.TrimSpace(sql) == "" {
		return errors.New("no query given")
	}

	mgr, closeSession, err := e.openSession()
	if err != nil {
		return err
	}
	defer func() { _ = closeSession() }()

	mgr.SetQuery(sql)
	st, outcome := mgr.Execute(ctx)
	if st == session.AwaitingConfirmation {
		if !opts.Yes {
			ok, err := confirm(reader, errOut, mgr.State().Pending)
			if err != nil || !ok {
				_ = mgr.Cancel()
				if err != nil {
					return err
				}
				return ErrCancelled
			}
		}
		outcome, err = mgr.ConfirmAndRun(ctx)
		if err != nil {
			return err
		}
	}
	if outcome == nil {
		return fmt.Errorf("query not started: session is %s", st)
	}
	if outcome.Err != nil {
		return outcome.Err
	}
	return renderResult(out, outcome.Result, opts.Output)
}

// confirm shows query and reads a y/N answer.
func confirm(r *bufio.Reader, w io.Writer, query string) (bool, error) {
	_, _ = fmt.Fprintf(w, "%s\n\nExecute this query? [y/N] ", query)
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
