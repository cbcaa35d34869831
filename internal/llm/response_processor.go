package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// ProcessorResult contains the result of LLM response processing
type ProcessorResult struct {
	RepairStats  JsonRepairStats `json:"repair_stats"`
	ExtractedRaw string          `json:"-"`
	RepairedJSON string          `json:"-"`
	Success      bool            `json:"success"`
	Error        string          `json:"error,omitempty"`
}

// ProcessLLMResponse extracts the JSON document from a raw model response,
// repairs it when needed and unmarshals it into target.
func ProcessLLMResponse(raw string, target interface{}) (ProcessorResult, error) {
	result := ProcessorResult{}

	log.Debug().Int("bytes", len(raw)).Msg("Processing LLM response")

	jsonStr := ExtractJSON(raw)
	if jsonStr == "" {
		result.Error = "no JSON found in LLM response"
		log.Debug().Str("response", truncateForLog(raw, 200)).Msg("No JSON found in LLM response")
		return result, fmt.Errorf("no JSON found in response")
	}
	result.ExtractedRaw = jsonStr

	repairedJSON, repairStats, err := RepairJSON(jsonStr)
	result.RepairStats = repairStats
	result.RepairedJSON = repairedJSON

	if repairStats.WasRepaired {
		log.Debug().
			Strs("strategies", repairStats.RepairStrategies).
			Int("errors_fixed", repairStats.ErrorsFixed).
			Dur("repair_time", repairStats.RepairTime).
			Msg("JSON repair applied")
	}

	if err != nil {
		result.Error = fmt.Sprintf("JSON repair failed: %v", err)
		log.Debug().Err(err).Str("json", truncateForLog(jsonStr, 500)).Msg("JSON repair failed")
		return result, err
	}

	if err := json.Unmarshal([]byte(repairedJSON), target); err != nil {
		result.Error = fmt.Sprintf("JSON parsing failed after repair: %v", err)
		log.Debug().Err(err).Str("json", truncateForLog(repairedJSON, 500)).Msg("JSON parsing failed after repair")
		return result, err
	}

	result.Success = true
	return result, nil
}

// ExtractJSON extracts JSON content from mixed text/JSON responses
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
		return raw
	}

	// Look for JSON blocks marked with ```json or ```
	if strings.Contains(raw, "```") {
		lines := strings.Split(raw, "\n")
		var jsonLines []string
		inCodeBlock := false

		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				if inCodeBlock {
					break
				}
				inCodeBlock = true
				continue
			}
			if inCodeBlock {
				jsonLines = append(jsonLines, line)
			}
		}

		if block := strings.TrimSpace(strings.Join(jsonLines, "\n")); strings.HasPrefix(block, "{") || strings.HasPrefix(block, "[") {
			return block
		}
	}

	startIdx := strings.IndexAny(raw, "{[")
	if startIdx == -1 {
		return ""
	}

	if end := matchingClose(raw, startIdx); end != -1 {
		return raw[startIdx : end+1]
	}

	// If we couldn't find a complete JSON structure, return from start to end
	return raw[startIdx:]
}

// matchingClose returns the index of the bracket closing raw[start], skipping
// string literals, or -1 when it is never closed.
func matchingClose(raw string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// truncateForLog truncates text for logging purposes
func truncateForLog(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
