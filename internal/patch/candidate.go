package patch

// Candidate is one patch proposed by the oracle, from raw text to verdict.
type Candidate struct {
	Raw          string
	Decoded      string
	FunctionName string
	Verdict      Verdict
}

// NewCandidate decodes and validates raw.
func NewCandidate(raw string) *Candidate {
	decoded := Decode(raw)
	verdict := Validate(decoded)
	return &Candidate{
		Raw:          raw,
		Decoded:      decoded,
		FunctionName: verdict.FunctionName,
		Verdict:      verdict,
	}
}
