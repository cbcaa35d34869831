package repair

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Confirmer decides whether a validated patch may be merged.
type Confirmer interface {
	Confirm(ctx context.Context, s *Session) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, s *Session) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, s *Session) (bool, error) {
	return f(ctx, s)
}

// PromptConfirmer shows the patch and asks a y/N question on a terminal.
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer
}

// Confirm accepts "y" or "yes"; anything else, including end of input, declines.
func (p *PromptConfirmer) Confirm(ctx context.Context, s *Session) (bool, error) {
	fmt.Fprintf(p.Out, "\nProposed replacement for %s in %s:\n", s.Candidate.FunctionName, s.Target)
	fmt.Fprintln(p.Out, strings.Repeat("-", 60))
	fmt.Fprint(p.Out, s.Candidate.Decoded)
	if !strings.HasSuffix(s.Candidate.Decoded, "\n") {
		fmt.Fprintln(p.Out)
	}
	fmt.Fprintln(p.Out, strings.Repeat("-", 60))
	if s.Response.Diagnostic != "" {
		fmt.Fprintf(p.Out, "Diagnosis: %s\n", s.Response.Diagnostic)
	}
	fmt.Fprintf(p.Out, "Apply this patch to %s? [y/N]: ", s.Target)

	answer, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
