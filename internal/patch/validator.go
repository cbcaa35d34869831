package patch

import (
	"fmt"
	"regexp"
	"strings"
)

// defPattern matches a top-level function definition line and captures its name.
var defPattern = regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// Verdict is the outcome of structural validation of a patch.
type Verdict struct {
	Valid        bool
	FunctionName string
	Reason       string
}

func (v Verdict) String() string {
	if v.Valid {
		return fmt.Sprintf("Valid(%s)", v.FunctionName)
	}
	return fmt.Sprintf("Rejected(%s)", v.Reason)
}

func valid(name string) Verdict {
	return Verdict{Valid: true, FunctionName: name}
}

func rejected(format string, args ...interface{}) Verdict {
	return Verdict{Reason: fmt.Sprintf(format, args...)}
}

// definitionName returns the function name when line is a top-level definition.
func definitionName(line string) (string, bool) {
	m := defPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Validate checks that text consists of exactly one function definition. The
// first non-blank line must open the definition; later non-blank lines must
// be indented body lines, or top-level comments and decorators.
func Validate(text string) Verdict {
	lines := strings.Split(text, "\n")

	name := ""
	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineNo := i + 1

		if name == "" {
			n, ok := definitionName(line)
			if !ok {
				return rejected("line %d: patch must start with a function definition, got %q", lineNo, strings.TrimSpace(line))
			}
			name = n
			continue
		}

		if line[0] == ' ' || line[0] == '\t' {
			continue
		}

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "@") {
			continue
		}

		if other, ok := definitionName(line); ok {
			return rejected("line %d: patch defines a second function %q after %q", lineNo, other, name)
		}

		return rejected("line %d: top-level statement outside function %q: %q", lineNo, name, trimmed)
	}

	if name == "" {
		return rejected("patch is empty")
	}

	return valid(name)
}
