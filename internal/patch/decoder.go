package patch

import (
	"encoding/json"
	"strconv"
	"strings"
)

// escapeMarkers are the sequences that betray a patch returned as an escaped
// string literal instead of plain source text.
var escapeMarkers = []string{`\n`, `\t`, `\"`}

// Decode undoes accidental string escaping of an oracle patch. It is best
// effort: a text that cannot be parsed as a string literal is returned as is,
// and already-plain text is never changed.
func Decode(text string) string {
	out := text

	if hasEscapes(out) {
		if v, ok := unquote(out); ok {
			out = v
		}
	} else if isWrapped(out) {
		if v, ok := unquote(out); ok {
			out = v
		}
	}

	// One extra pass absorbs double escaping.
	if hasEscapes(out) {
		if v, ok := unquote(out); ok {
			out = v
		}
	}

	return out
}

func hasEscapes(s string) bool {
	for _, m := range escapeMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// isWrapped reports whether s is enclosed in one matching pair of quotes
// spanning its full length.
func isWrapped(s string) bool {
	if len(s) < 2 {
		return false
	}
	q := s[0]
	return (q == '"' || q == '\'') && s[len(s)-1] == q
}

// unquote parses s as the body of a quoted string literal, or as a complete
// literal when it is already wrapped in quotes.
func unquote(s string) (string, bool) {
	inner := s
	quote := byte('"')
	if isWrapped(s) {
		inner = s[1 : len(s)-1]
		quote = s[0]
	}
	if quote == '\'' {
		inner = requoteSingle(inner)
	}

	literal := `"` + inner + `"`

	var v string
	if err := json.Unmarshal([]byte(literal), &v); err == nil {
		return v, true
	}
	if v, err := strconv.Unquote(literal); err == nil {
		return v, true
	}
	return "", false
}

// requoteSingle rewrites the body of a single-quoted literal so it parses as
// a double-quoted one: \' becomes ' and bare " is escaped.
func requoteSingle(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			if s[i+1] == '\'' {
				b.WriteByte('\'')
			} else {
				b.WriteByte(c)
				b.WriteByte(s[i+1])
			}
			i++
		case c == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
