package repair

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/repairloop/internal/backup"
	"github.com/repairloop/internal/executor"
	"github.com/repairloop/internal/faultlocator"
	"github.com/repairloop/internal/oracle"
	"github.com/repairloop/internal/patch"
)

var (
	// ErrOracleInvalid marks a response without a usable patch.
	ErrOracleInvalid = oracle.ErrInvalidResponse
	// ErrPatchRejected marks a patch that failed structural validation.
	ErrPatchRejected = errors.New("patch rejected")
	// ErrSessionDone is returned when stepping a finished session.
	ErrSessionDone = errors.New("session already finished")
)

// State is a position in the repair state machine.
type State int

const (
	Running State = iota
	Diagnosing
	RequestingPatch
	Validating
	ConfirmPending
	Merging
	Reverifying
	Done
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Diagnosing:
		return "Diagnosing"
	case RequestingPatch:
		return "RequestingPatch"
	case Validating:
		return "Validating"
	case ConfirmPending:
		return "ConfirmPending"
	case Merging:
		return "Merging"
	case Reverifying:
		return "Reverifying"
	case Done:
		return "Done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome is the reported result of a finished session.
type Outcome int

const (
	// Pending means the session has not finished.
	Pending Outcome = iota
	NoErrorFound
	TargetMissing
	OracleInvalid
	PatchRejected
	Cancelled
	Merged
	Appended
	NoChange
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "Pending"
	case NoErrorFound:
		return "NoErrorFound"
	case TargetMissing:
		return "TargetMissing"
	case OracleInvalid:
		return "OracleInvalid"
	case PatchRejected:
		return "PatchRejected"
	case Cancelled:
		return "Cancelled"
	case Merged:
		return "Merged"
	case Appended:
		return "Appended"
	case NoChange:
		return "NoChange"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Failure reports whether the outcome should make the process exit non-zero.
func (o Outcome) Failure() bool {
	switch o {
	case TargetMissing, OracleInvalid, PatchRejected:
		return true
	}
	return false
}

// Session is the state of one repair attempt.
type Session struct {
	ID     string
	Script string
	State  State

	Initial    *executor.Result
	Diagnostic faultlocator.Diagnostic
	Target     string
	Source     string

	RawResponse string
	Response    oracle.Result
	Candidate   *patch.Candidate

	Merge  patch.MergeResult
	Backup *backup.Backup
	Final  *executor.Result

	Outcome Outcome
	// Err explains a failing outcome. It is nil for every other outcome.
	Err error
}

// NewSession starts a session for the given script.
func NewSession(script string) *Session {
	return &Session{
		ID:     uuid.NewString(),
		Script: script,
		State:  Running,
	}
}

// Finished reports whether the session reached Done.
func (s *Session) Finished() bool {
	return s.State == Done
}
