// Package table builds bubble-table models for query results.
package table

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	bbtable "github.com/evertras/bubble-table/table"

	"github.com/nhath/ezspanner/internal/config"
	"github.com/nhath/ezspanner/internal/gateway"
)

// MaxColumnWidth caps the width of a single column.
const MaxColumnWidth = 40

// Palette colors cells by value kind.
type Palette struct {
	Foreground lipgloss.Color
	Header     lipgloss.Color
	Highlight  lipgloss.Color
	Null       lipgloss.Color
	Number     lipgloss.Color
	Bool       lipgloss.Color
	Text       lipgloss.Color
}

// Nord colors, used until Init is called.
var palette = Palette{
	Foreground: "#D8DEE9",
	Header:     "#8FBCBB",
	Highlight:  "#A3BE8C",
	Null:       "#B48EAD",
	Number:     "#B48EAD",
	Bool:       "#D08770",
	Text:       "#EBCB8B",
}

// Init derives the palette from the configured theme.
func Init(theme config.Theme) {
	palette = Palette{
		Foreground: lipgloss.Color(theme.TextPrimary),
		Header:     lipgloss.Color(theme.Highlight),
		Highlight:  lipgloss.Color(theme.Success),
		Null:       lipgloss.Color(theme.TextFaint),
		Number:     lipgloss.Color(theme.TextSecondary),
		Bool:       lipgloss.Color(theme.Warning),
		Text:       lipgloss.Color(theme.Accent),
	}
}

// New creates a bubble-table with the current palette.
func New(cols []bbtable.Column) bbtable.Model {
	return bbtable.New(cols).
		WithBaseStyle(lipgloss.NewStyle().
			Foreground(palette.Foreground)).
		HeaderStyle(lipgloss.NewStyle().
			Foreground(palette.Header).
			Bold(true)).
		HighlightStyle(lipgloss.NewStyle().
			Foreground(palette.Highlight).
			Bold(true)).
		Focused(true).
		BorderRounded()
}

// columnKey keys column i. Result columns may repeat a name, so titles are
// never used as keys.
func columnKey(i int) string {
	return "c" + strconv.Itoa(i)
}

// FromQueryResult builds a paged table for res.
func FromQueryResult(res gateway.QueryResult, pageSize int) bbtable.Model {
	if len(res.Columns) == 0 {
		return New(nil)
	}

	cells := res.Strings()
	widths := calculateColumnWidths(res.Columns, cells)

	cols := make([]bbtable.Column, len(res.Columns))
	for i, c := range res.Columns {
		cols[i] = bbtable.NewColumn(columnKey(i), c, min(widths[i], MaxColumnWidth))
	}

	rows := make([]bbtable.Row, len(cells))
	for r, row := range cells {
		data := bbtable.RowData{}
		for i, val := range row {
			if i < len(cols) {
				data[columnKey(i)] = bbtable.NewStyledCell(val, GetValueStyle(res.Rows[r][i]))
			}
		}
		rows[r] = bbtable.NewRow(data)
	}

	if pageSize <= 0 {
		pageSize = 20
	}
	return New(cols).
		WithRows(rows).
		WithPageSize(pageSize)
}

func calculateColumnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, val := range row {
			if i < len(widths) {
				if w := lipgloss.Width(val); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}

	// Padding
	for i := range widths {
		widths[i] += 2
	}
	return widths
}

// GetValueStyle returns a style based on the kind of v.
func GetValueStyle(v any) lipgloss.Style {
	switch val := v.(type) {
	case nil:
		return lipgloss.NewStyle().Foreground(palette.Null).Italic(true)
	case bool:
		return lipgloss.NewStyle().Foreground(palette.Bool)
	case int, int32, int64, uint, uint32, uint64, float32, float64, json.Number:
		return lipgloss.NewStyle().Foreground(palette.Number)
	case fmt.Stringer:
		return lipgloss.NewStyle().Foreground(palette.Text)
	case string:
		lower := strings.ToLower(val)
		if lower == "true" || lower == "false" {
			return lipgloss.NewStyle().Foreground(palette.Bool)
		}
		return lipgloss.NewStyle().Foreground(palette.Text)
	default:
		return lipgloss.NewStyle().Foreground(palette.Text)
	}
}
