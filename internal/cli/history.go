package cli

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/nhath/ezspanner/internal/history"
)

// ErrHistoryNotPersisted is returned by the history command when the
// journal is switched off.
var ErrHistoryNotPersisted = errors.New("history is not persisted; set persist = true under [history]")

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Output string
	Last   int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print journaled query history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(mustEnv(cmd), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", OutputTable, "output format: table, json")
	cmd.Flags().IntVarP(&opts.Last, "last", "n", 0, "only the most recent n entries")
	return cmd
}

func runHistory(e *env, out io.Writer, opts *HistoryOptions) error {
	if !e.cfg.History.Persist {
		return ErrHistoryNotPersisted
	}
	j, err := history.OpenJournal(e.cfg.History.Path)
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.Entries()
	if err != nil {
		return err
	}
	if opts.Last > 0 && len(entries) > opts.Last {
		entries = entries[len(entries)-opts.Last:]
	}
	return renderEntries(out, entries, opts.Output)
}
