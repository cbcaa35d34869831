package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/repairloop/internal/llm"
)

// Oracle proposes a correction for failing code. It returns the raw response
// text; interpreting it is left to DecodeResponse.
type Oracle interface {
	RequestPatch(ctx context.Context, code, diagnostic string) (string, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, code, diagnostic string) (string, error)

// RequestPatch calls f.
func (f Func) RequestPatch(ctx context.Context, code, diagnostic string) (string, error) {
	return f(ctx, code, diagnostic)
}

// Kind tags the outcome of decoding a response.
type Kind int

const (
	// OK means a patch string was found.
	OK Kind = iota
	// Malformed means no parseable JSON object was found.
	Malformed
	// MissingPatch means the object had no string "patch" field.
	MissingPatch
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case Malformed:
		return "malformed"
	case MissingPatch:
		return "missing_patch"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrInvalidResponse is wrapped by Result.Err for every non-OK result.
var ErrInvalidResponse = errors.New("invalid oracle response")

// Result is the decoded oracle response. Patch and Diagnostic are only
// meaningful when Kind is OK; Reason explains any other kind.
type Result struct {
	Kind       Kind
	Patch      string
	Diagnostic string
	Reason     string
	Repaired   bool
}

// Err returns nil for OK results and an error wrapping ErrInvalidResponse otherwise.
func (r Result) Err() error {
	if r.Kind == OK {
		return nil
	}
	return fmt.Errorf("%w (%s): %s", ErrInvalidResponse, r.Kind, r.Reason)
}

// DecodeResponse extracts the structured {"patch", "diagnostic"} object from
// raw. Fenced or prose-wrapped JSON and lossless syntax slips such as trailing
// commas are accepted. A response cut off inside a string, object or array is
// Malformed even though it could be closed, since the patch would be partial.
func DecodeResponse(raw string) Result {
	var doc interface{}
	processed, err := llm.ProcessLLMResponse(raw, &doc)
	if processed.RepairStats.Truncated {
		return Result{Kind: Malformed, Reason: "response is truncated", Repaired: true}
	}
	if err != nil {
		reason := processed.Error
		if reason == "" {
			reason = err.Error()
		}
		return Result{Kind: Malformed, Reason: reason}
	}

	obj, ok := doc.(map[string]interface{})
	if !ok {
		return Result{Kind: Malformed, Reason: "response is not a JSON object", Repaired: processed.RepairStats.WasRepaired}
	}

	value, present := obj["patch"]
	if !present {
		return Result{Kind: MissingPatch, Reason: `response has no "patch" field`, Repaired: processed.RepairStats.WasRepaired}
	}
	patch, ok := value.(string)
	if !ok {
		return Result{Kind: MissingPatch, Reason: fmt.Sprintf(`"patch" field is %T, not a string`, value), Repaired: processed.RepairStats.WasRepaired}
	}

	result := Result{Kind: OK, Patch: patch, Repaired: processed.RepairStats.WasRepaired}
	if d, ok := obj["diagnostic"].(string); ok {
		result.Diagnostic = d
	}
	return result
}
