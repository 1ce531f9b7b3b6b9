package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/nhath/ezspanner/internal/gateway"
	"github.com/nhath/ezspanner/internal/history"
)

// Output formats accepted by --output.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

func renderResult(w io.Writer, res gateway.QueryResult, output string) error {
	switch output {
	case OutputJSON:
		return renderJSON(w, res)
	case OutputTable, "":
		return renderTable(w, res)
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", output, OutputTable, OutputJSON)
	}
}

// newTable returns a writer that prints headers as given. Column names
// are case sensitive, so the style's upper-casing is turned off.
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	return t
}

func renderTable(w io.Writer, res gateway.QueryResult) error {
	if len(res.Columns) > 0 {
		t := newTable(w)

		header := make(table.Row, len(res.Columns))
		for i, col := range res.Columns {
			header[i] = col
		}
		t.AppendHeader(header)

		for _, cells := range res.Strings() {
			row := make(table.Row, len(cells))
			for i, c := range cells {
				row[i] = c
			}
			t.AppendRow(row)
		}
		t.Render()
	}
	_, _ = fmt.Fprintln(w, rowsReturned(res.Len()))
	return nil
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func rowsReturned(n int) string {
	if n == 1 {
		return "1 row returned"
	}
	return fmt.Sprintf("%d rows returned", n)
}

func renderEntries(w io.Writer, entries []history.Entry, output string) error {
	switch output {
	case OutputJSON:
		if entries == nil {
			entries = []history.Entry{}
		}
		return renderJSON(w, entries)
	case OutputTable, "":
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", output, OutputTable, OutputJSON)
	}

	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "No history yet.")
		return nil
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Executed", "Query", "Rows"})
	for i, e := range entries {
		t.AppendRow(table.Row{
			i + 1,
			e.ExecutedAt.Local().Format("2006-01-02 15:04:05"),
			e.QueryPreview(60),
			e.RowCount(),
		})
	}
	t.Render()
	return nil
}
