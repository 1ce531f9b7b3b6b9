// Package highlight colors SQL for display.
package highlight

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// ANSI foreground color codes (no background, no reset issues)
const (
	fgCyan   = "\x1b[38;5;110m" // Keywords - light cyan
	fgPurple = "\x1b[38;5;183m" // Numbers - purple
	fgGreen  = "\x1b[38;5;150m" // Strings - green
	fgOrange = "\x1b[38;5;209m" // Operators and wildcards - orange
	fgFaint  = "\x1b[38;5;243m" // Comments - gray
	fgGray   = "\x1b[38;5;253m" // Default - light gray
	fgReset  = "\x1b[39m"       // Reset foreground only (not all attributes)
)

var lexer = chroma.Coalesce(sqlLexer())

func sqlLexer() chroma.Lexer {
	if l := lexers.Get("sql"); l != nil {
		return l
	}
	return lexers.Fallback
}

// SQL returns sql with foreground-only ANSI colors. The visible text is
// unchanged.
func SQL(sql string) string {
	it, err := lexer.Tokenise(nil, sql)
	if err != nil {
		return sql
	}

	var b strings.Builder
	for tok := it(); tok != chroma.EOF; tok = it() {
		color := colorFor(tok.Type)
		if color == "" || strings.TrimSpace(tok.Value) == "" {
			b.WriteString(tok.Value)
			continue
		}
		b.WriteString(color)
		b.WriteString(tok.Value)
		b.WriteString(fgReset)
	}
	return b.String()
}

func colorFor(t chroma.TokenType) string {
	switch {
	case t.InCategory(chroma.Keyword), t == chroma.NameBuiltin:
		return fgCyan
	case t.InSubCategory(chroma.LiteralString):
		return fgGreen
	case t.InSubCategory(chroma.LiteralNumber):
		return fgPurple
	case t.InCategory(chroma.Comment):
		return fgFaint
	case t.InCategory(chroma.Operator):
		return fgOrange
	case t.InCategory(chroma.Text):
		return ""
	default:
		return fgGray
	}
}
