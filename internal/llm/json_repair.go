package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
)

// JsonRepairStats tracks statistics about JSON repair operations
type JsonRepairStats struct {
	OriginalBytes    int           `json:"original_bytes"`
	RepairedBytes    int           `json:"repaired_bytes"`
	ErrorsFixed      int           `json:"errors_fixed"`
	RepairTime       time.Duration `json:"repair_time"`
	RepairStrategies []string      `json:"repair_strategies"`
	WasRepaired      bool          `json:"was_repaired"`
	// Truncated is set when the input ended inside a string, object or array.
	// Repair still closes it, but the closed document has lost content.
	Truncated bool `json:"truncated"`
}

// RepairJSON attempts to repair malformed JSON from a model response.
//
// Oracle payloads carry source code inside string values, so only
// string-aware strategies are applied, in order:
// 1. jsonrepair library
// 2. Close truncated objects/arrays, then jsonrepair again
func RepairJSON(raw string) (repaired string, stats JsonRepairStats, err error) {
	startTime := time.Now()
	stats.OriginalBytes = len(raw)

	if json.Valid([]byte(raw)) {
		stats.RepairedBytes = len(raw)
		stats.RepairTime = time.Since(startTime)
		return raw, stats, nil
	}

	stats.WasRepaired = true
	stats.Truncated = needsCompletion(raw)
	repaired = raw

	if libraryRepaired, libraryErr := jsonrepair.JSONRepair(repaired); libraryErr == nil && json.Valid([]byte(libraryRepaired)) {
		stats.RepairStrategies = append(stats.RepairStrategies, "jsonrepair_library")
		stats.ErrorsFixed++
		return finish(libraryRepaired, &stats, startTime), stats, nil
	}

	if needsCompletion(repaired) {
		repaired = completeJSON(repaired)
		stats.RepairStrategies = append(stats.RepairStrategies, "completion")
		stats.ErrorsFixed++
		if json.Valid([]byte(repaired)) {
			return finish(repaired, &stats, startTime), stats, nil
		}
		if libraryRepaired, libraryErr := jsonrepair.JSONRepair(repaired); libraryErr == nil && json.Valid([]byte(libraryRepaired)) {
			stats.RepairStrategies = append(stats.RepairStrategies, "jsonrepair_library")
			stats.ErrorsFixed++
			return finish(libraryRepaired, &stats, startTime), stats, nil
		}
	}

	stats.RepairedBytes = len(repaired)
	stats.RepairTime = time.Since(startTime)
	return repaired, stats, fmt.Errorf("JSON repair failed after %d strategies", len(stats.RepairStrategies))
}

func finish(repaired string, stats *JsonRepairStats, startTime time.Time) string {
	stats.RepairedBytes = len(repaired)
	stats.RepairTime = time.Since(startTime)
	return repaired
}

// openStack walks s outside of string literals and returns the closers still owed.
func openStack(s string) []byte {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
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
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if inString {
		stack = append(stack, '"')
	}
	return stack
}

// needsCompletion checks if JSON objects, arrays or a string were left open
func needsCompletion(s string) bool {
	return len(openStack(strings.TrimSpace(s))) > 0
}

// completeJSON adds missing closers in the correct order
func completeJSON(s string) string {
	s = strings.TrimSpace(s)
	stack := openStack(s)

	var b strings.Builder
	b.WriteString(s)
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}
