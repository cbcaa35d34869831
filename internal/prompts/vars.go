package prompts

import (
	"regexp"
	"strings"
)

// Placeholder is a single {{VAR:...}} occurrence with its parsed options.
type Placeholder struct {
	Raw     string
	Name    string
	Options map[string]string // default, trim
}

var (
	// {{VAR:name|key=value|key2="quoted value"}}
	varPattern = regexp.MustCompile(`\{\{VAR:([a-zA-Z0-9_\-]+)((?:\|[^}]+)?)}}`)
	optPattern = regexp.MustCompile(`\|([^=|]+)=([^|]+)`)
)

// ParsePlaceholders returns all placeholder occurrences in order of appearance.
func ParsePlaceholders(body string) []Placeholder {
	matches := varPattern.FindAllStringSubmatchIndex(body, -1)
	out := make([]Placeholder, 0, len(matches))
	for _, idx := range matches {
		optsRaw := ""
		if len(idx) >= 6 && idx[4] != -1 {
			optsRaw = body[idx[4]:idx[5]]
		}
		out = append(out, Placeholder{
			Raw:     body[idx[0]:idx[1]],
			Name:    body[idx[2]:idx[3]],
			Options: parseOptions(optsRaw),
		})
	}
	return out
}

func parseOptions(raw string) map[string]string {
	opts := map[string]string{}
	if raw == "" {
		return opts
	}
	for _, seg := range optPattern.FindAllStringSubmatch(raw, -1) {
		key := strings.TrimSpace(seg[1])
		val := strings.TrimSpace(seg[2])
		if len(val) >= 2 && ((val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'')) {
			val = val[1 : len(val)-1]
		}
		opts[strings.ToLower(key)] = decodeEscapes(val)
	}
	return opts
}

// Render substitutes every placeholder in body. A variable that is missing or
// empty takes the placeholder's default option; "trim=true" strips surrounding
// whitespace from the value. Unknown variables without a default render empty.
func Render(body string, vars map[string]string) string {
	matches := varPattern.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return body
	}

	var b strings.Builder
	b.Grow(len(body))
	last := 0
	for _, m := range matches {
		b.WriteString(body[last:m[0]])

		name := body[m[2]:m[3]]
		optsRaw := ""
		if len(m) >= 6 && m[4] != -1 {
			optsRaw = body[m[4]:m[5]]
		}
		opts := parseOptions(optsRaw)

		val := vars[name]
		if strings.EqualFold(opts["trim"], "true") {
			val = strings.TrimSpace(val)
		}
		if val == "" {
			val = opts["default"]
		}
		b.WriteString(val)
		last = m[1]
	}
	b.WriteString(body[last:])
	return b.String()
}

func decodeEscapes(s string) string {
	// \n, \t, \r, \\ only
	b := strings.Builder{}
	b.Grow(len(s))
	esc := false
	for _, r := range s {
		if !esc {
			if r == '\\' {
				esc = true
				continue
			}
			b.WriteRune(r)
			continue
		}
		switch r {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
		esc = false
	}
	if esc {
		b.WriteByte('\\')
	}
	return b.String()
}
