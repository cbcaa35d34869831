package repair

import (
	"fmt"
	"io"
	"strings"
)

// WriteReport prints a human-readable summary of a finished session.
func WriteReport(w io.Writer, s *Session) {
	fmt.Fprintf(w, "Session %s: %s\n", s.ID, s.Outcome)

	switch s.Outcome {
	case NoErrorFound:
		fmt.Fprintf(w, "%s ran without errors.\n", s.Script)
		writeOutput(w, "Output", s.Initial.Stdout)
	case TargetMissing, OracleInvalid, PatchRejected:
		if s.Err != nil {
			fmt.Fprintf(w, "%v\n", s.Err)
		}
		if s.Outcome == OracleInvalid && s.RawResponse != "" {
			fmt.Fprintln(w, "The raw oracle response was kept for inspection.")
		}
	case Cancelled:
		fmt.Fprintln(w, "Patch declined; no files were changed.")
	case NoChange:
		fmt.Fprintln(w, "The patch contained no function definition; no files were changed.")
	case Merged, Appended:
		verb := "Replaced"
		if s.Outcome == Appended {
			verb = "Appended"
		}
		fmt.Fprintf(w, "%s %s in %s\n", verb, s.Merge.FunctionName, s.Target)
		if s.Backup != nil {
			fmt.Fprintf(w, "Backup: %s\n", s.Backup.Path)
		}
		if s.Final != nil {
			if s.Final.Failed() {
				fmt.Fprintln(w, "The program still reports errors after the patch.")
			} else {
				fmt.Fprintln(w, "The program now runs without errors.")
			}
			writeOutput(w, "Post-patch stdout", s.Final.Stdout)
			writeOutput(w, "Post-patch stderr", s.Final.Stderr)
		}
	}
}

func writeOutput(w io.Writer, label, text string) {
	if text == "" {
		return
	}
	fmt.Fprintf(w, "%s:\n%s", label, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(w)
	}
}
