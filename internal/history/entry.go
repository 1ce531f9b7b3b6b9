// internal/history/entry.go
package history

import (
	"strings"
	"time"

	"github.com/nhath/ezspanner/internal/gateway"
)

// Entry is an immutable snapshot of one successful execution.
type Entry struct {
	ID         string              `json:"id"`
	Query      string              `json:"query"`
	Results    gateway.QueryResult `json:"results"`
	ExecutedAt time.Time           `json:"timestamp"`
}

// QueryPreview returns the query on a single line, truncated to maxLen runes.
func (e Entry) QueryPreview(maxLen int) string {
	q := strings.Join(strings.Fields(e.Query), " ")
	r := []rune(q)
	if maxLen > 3 && len(r) > maxLen {
		return string(r[:maxLen-3]) + "..."
	}
	return q
}

// RowCount returns the number of result rows captured by the entry.
func (e Entry) RowCount() int {
	return e.Results.Len()
}
