package repair

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/repairloop/internal/audit"
	"github.com/repairloop/internal/backup"
	"github.com/repairloop/internal/executor"
	"github.com/repairloop/internal/faultlocator"
	"github.com/repairloop/internal/logging"
	"github.com/repairloop/internal/oracle"
	"github.com/repairloop/internal/patch"
)

// Loop drives sessions through run, diagnose, patch, merge and reverify.
type Loop struct {
	Interpreter string
	Runner      executor.Runner
	Locator     *faultlocator.Locator
	Oracle      oracle.Oracle
	Backups     *backup.Manager
	// Confirmer gates the merge; nil applies patches without asking.
	Confirmer Confirmer
	// AuditPath receives every raw oracle response; empty disables the artifact.
	AuditPath string
	Logger    *logging.SessionLogger
}

// Run steps s until it is Done. A returned error is a failure of the loop
// itself (process start, oracle transport, backup or write); failing
// outcomes are reported through s.Outcome and s.Err instead.
func (l *Loop) Run(ctx context.Context, s *Session) error {
	l.Logger.LogSection(fmt.Sprintf("REPAIR SESSION %s", s.ID))
	l.Logger.Log("Script: %s", s.Script)

	for !s.Finished() {
		if err := l.Step(ctx, s); err != nil {
			l.Logger.LogError(s.State.String(), err)
			return err
		}
	}

	l.Logger.Log("Outcome: %s", s.Outcome)
	return nil
}

// Step performs the work of the session's current state and moves it to the next.
func (l *Loop) Step(ctx context.Context, s *Session) error {
	switch s.State {
	case Running:
		return l.run(ctx, s)
	case Diagnosing:
		return l.diagnose(s)
	case RequestingPatch:
		return l.requestPatch(ctx, s)
	case Validating:
		return l.validate(s)
	case ConfirmPending:
		return l.confirm(ctx, s)
	case Merging:
		return l.merge(s)
	case Reverifying:
		return l.reverify(ctx, s)
	case Done:
		return ErrSessionDone
	default:
		return fmt.Errorf("unknown state %s", s.State)
	}
}

func (l *Loop) transition(s *Session, to State) {
	l.Logger.LogTransition(s.State.String(), to.String())
	log.Debug().Str("session", s.ID).Stringer("from", s.State).Stringer("to", to).Msg("Repair state transition")
	s.State = to
}

func (l *Loop) finish(s *Session, outcome Outcome, err error) {
	s.Outcome = outcome
	s.Err = err
	l.transition(s, Done)
}

func (l *Loop) run(ctx context.Context, s *Session) error {
	if info, err := os.Stat(s.Script); err != nil || info.IsDir() {
		l.finish(s, TargetMissing, fmt.Errorf("%w: %s", faultlocator.ErrTargetMissing, s.Script))
		return nil
	}

	result, err := l.Runner.Run(ctx, l.Interpreter, s.Script)
	if err != nil {
		return err
	}
	s.Initial = result

	if !result.Failed() {
		l.finish(s, NoErrorFound, nil)
		return nil
	}

	l.Logger.LogBlock("STDERR", result.Stderr)
	l.transition(s, Diagnosing)
	return nil
}

func (l *Loop) diagnose(s *Session) error {
	s.Diagnostic = faultlocator.Parse(s.Initial.Stderr)

	target, err := l.Locator.Locate(s.Diagnostic, s.Script)
	if err != nil {
		s.Target = target
		if errors.Is(err, faultlocator.ErrTargetMissing) {
			l.finish(s, TargetMissing, err)
			return nil
		}
		return err
	}

	s.Target = target
	l.Logger.Log("Fault file: %s (%d frame(s))", target, len(s.Diagnostic.Frames))
	l.transition(s, RequestingPatch)
	return nil
}

func (l *Loop) requestPatch(ctx context.Context, s *Session) error {
	data, err := os.ReadFile(s.Target)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.Target, err)
	}
	s.Source = string(data)

	raw, err := l.Oracle.RequestPatch(ctx, s.Source, s.Diagnostic.Text)
	if err != nil {
		return fmt.Errorf("oracle request failed: %w", err)
	}
	s.RawResponse = raw

	if l.AuditPath != "" {
		if err := audit.Write(l.AuditPath, raw); err != nil {
			return err
		}
	}

	s.Response = oracle.DecodeResponse(raw)
	if s.Response.Repaired {
		l.Logger.Log("Oracle response needed JSON repair")
	}
	if err := s.Response.Err(); err != nil {
		l.finish(s, OracleInvalid, err)
		return nil
	}

	if s.Response.Diagnostic != "" {
		l.Logger.Log("Oracle diagnostic: %s", s.Response.Diagnostic)
	}
	l.transition(s, Validating)
	return nil
}

func (l *Loop) validate(s *Session) error {
	s.Candidate = patch.NewCandidate(s.Response.Patch)
	l.Logger.Log("Patch verdict: %s", s.Candidate.Verdict)

	if !s.Candidate.Verdict.Valid {
		l.finish(s, PatchRejected, fmt.Errorf("%w: %s", ErrPatchRejected, s.Candidate.Verdict.Reason))
		return nil
	}

	l.transition(s, ConfirmPending)
	return nil
}

func (l *Loop) confirm(ctx context.Context, s *Session) error {
	if l.Confirmer != nil {
		ok, err := l.Confirmer.Confirm(ctx, s)
		if err != nil {
			return fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			l.finish(s, Cancelled, nil)
			return nil
		}
	}

	l.transition(s, Merging)
	return nil
}

func (l *Loop) merge(s *Session) error {
	result, bk, err := Apply(l.Backups, s.Target, s.Candidate)
	s.Merge = result
	s.Backup = bk
	if err != nil {
		return err
	}

	if result.Mode == patch.Unchanged {
		l.finish(s, NoChange, nil)
		return nil
	}

	l.Logger.Log("%s %s in %s, lines [%d, %d) -> %d line(s)", result.Mode, result.FunctionName, s.Target, result.Start, result.End, len(result.Block))
	log.Info().
		Str("target", s.Target).
		Str("function", result.FunctionName).
		Stringer("mode", result.Mode).
		Str("backup", bk.Path).
		Msg("Patch merged")

	l.transition(s, Reverifying)
	return nil
}

func (l *Loop) reverify(ctx context.Context, s *Session) error {
	result, err := l.Runner.Run(ctx, l.Interpreter, s.Script)
	if err != nil {
		return err
	}
	s.Final = result

	l.Logger.LogBlock("POST-PATCH STDOUT", result.Stdout)
	l.Logger.LogBlock("POST-PATCH STDERR", result.Stderr)

	if s.Merge.Mode == patch.Appended {
		l.finish(s, Appended, nil)
	} else {
		l.finish(s, Merged, nil)
	}
	return nil
}
