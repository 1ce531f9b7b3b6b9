package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AffectedRowsColumn names the single column returned for statements that
// modify rows instead of reading them.
const AffectedRowsColumn = "affected_rows"

// QueryResult is an ordered sequence of rows. Every row maps the names in
// Columns to the value at the same position.
type QueryResult struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (r QueryResult) Len() int {
	return len(r.Rows)
}

// Empty reports whether the result has no rows.
func (r QueryResult) Empty() bool {
	return len(r.Rows) == 0
}

// Record returns row i as a column name to value mapping.
func (r QueryResult) Record(i int) map[string]any {
	rec := make(map[string]any, len(r.Columns))
	for j, col := range r.Columns {
		if j < len(r.Rows[i]) {
			rec[col] = r.Rows[i][j]
		}
	}
	return rec
}

// Strings renders every cell for display.
func (r QueryResult) Strings() [][]string {
	out := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = FormatValue(v)
		}
		out[i] = cells
	}
	return out
}

// Clone returns a copy that shares no slices with r.
func (r QueryResult) Clone() QueryResult {
	c := QueryResult{}
	if r.Columns != nil {
		c.Columns = append([]string(nil), r.Columns...)
	}
	if r.Rows != nil {
		c.Rows = make([][]any, len(r.Rows))
		for i, row := range r.Rows {
			c.Rows[i] = append([]any(nil), row...)
		}
	}
	return c
}

// MarshalJSON encodes the result as an array of objects whose keys follow
// column order.
func (r QueryResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range r.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, col := range r.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(col)
			if err != nil {
				return nil, err
			}
			var v any
			if j < len(row) {
				v = row[j]
			}
			val, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an array of objects. Column order is taken from the
// first object; keys first seen in later objects are appended.
func (r *QueryResult) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return err
	}

	var (
		columns []string
		index   = map[string]int{}
		records []map[string]any
	)
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return err
		}
		rec := map[string]any{}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			key, ok := tok.(string)
			if !ok {
				return fmt.Errorf("query result: expected object key, got %v", tok)
			}
			var v any
			if err := dec.Decode(&v); err != nil {
				return err
			}
			if _, seen := index[key]; !seen {
				index[key] = len(columns)
				columns = append(columns, key)
			}
			rec[key] = v
		}
		if err := expectDelim(dec, '}'); err != nil {
			return err
		}
		records = append(records, rec)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return err
	}

	r.Columns = columns
	r.Rows = make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(columns))
		for key, v := range rec {
			row[index[key]] = v
		}
		r.Rows[i] = row
	}
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("query result: expected %q, got %v", want, tok)
	}
	return nil
}

// FormatValue converts a cell value to a string for display.
func FormatValue(v any) string {
	if v == nil {
		return "NULL"
	}

	switch val := v.(type) {
	case []byte:
		return string(val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", v)
	}
}
