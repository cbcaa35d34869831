package redact

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zricethezav/gitleaks/v8/detect"
)

// Placeholder replaces every detected secret.
const Placeholder = "REDACTED"

// Redactor masks credentials in text before it leaves the machine.
type Redactor struct {
	detector *detect.Detector
}

// New builds a Redactor using the default gitleaks rule set.
func New() (*Redactor, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load secret detection rules: %w", err)
	}
	return &Redactor{detector: detector}, nil
}

// String returns content with every detected secret replaced by Placeholder,
// and the number of distinct secrets masked.
func (r *Redactor) String(content string) (string, int) {
	if r == nil || content == "" {
		return content, 0
	}

	findings := r.detector.DetectString(content)
	if len(findings) == 0 {
		return content, 0
	}

	secrets := make([]string, 0, len(findings))
	seen := map[string]bool{}
	for _, f := range findings {
		if f.Secret == "" || seen[f.Secret] {
			continue
		}
		seen[f.Secret] = true
		secrets = append(secrets, f.Secret)
		log.Debug().Str("rule", f.RuleID).Int("line", f.StartLine).Msg("Masking detected secret")
	}

	// longest first so a secret containing another is replaced whole
	sort.Slice(secrets, func(i, j int) bool { return len(secrets[i]) > len(secrets[j]) })
	for _, s := range secrets {
		content = strings.ReplaceAll(content, s, Placeholder)
	}
	return content, len(secrets)
}
