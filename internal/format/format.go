// Package format rewrites SQL text into a normalized layout.
//
// The formatter is lexical only: it does not parse SQL and has no notion of
// string literals, quoted identifiers or comments. A reserved word that
// appears inside a literal is upper-cased like any other occurrence.
package format

import (
	"regexp"
	"strings"
)

// Settings controls the layout produced by Format.
type Settings struct {
	// Multiline places each major clause on its own line.
	Multiline bool `toml:"multiline_format"`
}

// ReservedWords lists the clause words whose casing is normalized.
var ReservedWords = []string{
	"SELECT", "FROM", "WHERE", "AND", "OR",
	"ORDER BY", "GROUP BY", "HAVING", "LIMIT",
	"JOIN", "LEFT JOIN", "RIGHT JOIN", "INNER JOIN", "OUTER JOIN",
	"ON", "AS",
	"INSERT", "UPDATE", "DELETE", "CREATE", "ALTER", "DROP",
	"TABLE", "INDEX", "VIEW",
}

// MajorClauses lists the reserved words that start a new line in multiline layout.
var MajorClauses = []string{
	"SELECT", "FROM", "WHERE", "AND", "OR",
	"ORDER BY", "GROUP BY", "HAVING", "LIMIT",
}

var (
	reservedPattern = compileWords(ReservedWords, true)
	majorPattern    = compileWords(MajorClauses, false)
	spacePattern    = regexp.MustCompile(`\s+`)
	punctPattern    = regexp.MustCompile(`\s*([(),])\s*`)
)

// compileWords builds a whole-word alternation. Multi-word entries accept any
// run of whitespace between their parts so that "order\n  by" is still found.
func compileWords(words []string, foldCase bool) *regexp.Regexp {
	alts := make([]string, len(words))
	for i, w := range words {
		parts := strings.Fields(w)
		for j, p := range parts {
			parts[j] = regexp.QuoteMeta(p)
		}
		alts[i] = strings.Join(parts, `\s+`)
	}
	expr := `\b(?:` + strings.Join(alts, "|") + `)\b`
	if foldCase {
		expr = `(?i)` + expr
	}
	return regexp.MustCompile(expr)
}

// Format normalizes keyword casing and whitespace of text.
// The result is stable: formatting it again with the same settings returns it unchanged.
func Format(text string, s Settings) string {
	out := UppercaseKeywords(text)
	out = collapse(out)
	if !s.Multiline {
		return out
	}
	out = punctPattern.ReplaceAllString(out, "$1 ")
	return strings.TrimSpace(breakClauses(out))
}

// UppercaseKeywords replaces every whole-word occurrence of a reserved word
// with its canonical upper-case spelling and leaves the rest of text untouched.
func UppercaseKeywords(text string) string {
	return reservedPattern.ReplaceAllStringFunc(text, canonical)
}

func canonical(match string) string {
	return strings.ToUpper(strings.Join(strings.Fields(match), " "))
}

func collapse(text string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

// breakClauses emits each major clause word at the start of a line followed
// by the fragment that trails it.
func breakClauses(text string) string {
	locs := majorPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}

	var lines []string
	if lead := strings.TrimSpace(text[:locs[0][0]]); lead != "" {
		lines = append(lines, lead)
	}
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		line := text[loc[0]:loc[1]]
		if frag := strings.TrimSpace(text[loc[1]:end]); frag != "" {
			line += " " + frag
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
