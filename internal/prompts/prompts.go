package prompts

import (
	"fmt"
	"os"
)

// Set is the pair of templates used to build one oracle request.
type Set struct {
	System string
	User   string
}

// Defaults returns the built-in templates.
func Defaults() Set {
	return Set{System: DefaultSystemContext, User: DefaultUserTemplate}
}

// Load returns the built-in templates with either part replaced by the
// content of the given file. Empty paths keep the default.
func Load(contextFile, promptFile string) (Set, error) {
	set := Defaults()

	if contextFile != "" {
		data, err := os.ReadFile(contextFile)
		if err != nil {
			return Set{}, fmt.Errorf("failed to read context file: %w", err)
		}
		set.System = string(data)
	}

	if promptFile != "" {
		data, err := os.ReadFile(promptFile)
		if err != nil {
			return Set{}, fmt.Errorf("failed to read prompt file: %w", err)
		}
		set.User = string(data)
	}

	return set, nil
}

// Build renders the system and user messages for the given source and diagnostic.
func (s Set) Build(code, diagnostic string) (system, user string) {
	vars := map[string]string{
		"code":  code,
		"error": diagnostic,
	}
	return Render(s.System, vars), Render(s.User, vars)
}
