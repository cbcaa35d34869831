package repair

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairloop/internal/backup"
	"github.com/repairloop/internal/executor"
	"github.com/repairloop/internal/faultlocator"
	"github.com/repairloop/internal/logging"
	"github.com/repairloop/internal/oracle"
)

const addMainSource = "def add(a, b):\n    return a + b\n\ndef main():\n    print(add(1, \"2\"))\n"

// scriptedRunner replays one result per call.
type scriptedRunner struct {
	results []*executor.Result
	err     error
	calls   int
	scripts []string
}

func (r *scriptedRunner) Run(ctx context.Context, interpreter, script string) (*executor.Result, error) {
	r.scripts = append(r.scripts, script)
	if r.err != nil {
		return nil, r.err
	}
	i := r.calls
	r.calls++
	if i >= len(r.results) {
		return &executor.Result{}, nil
	}
	return r.results[i], nil
}

// stubOracle returns a fixed response and records what it was asked.
type stubOracle struct {
	response   string
	err        error
	calls      int
	code       string
	diagnostic string
}

func (o *stubOracle) RequestPatch(ctx context.Context, code, diagnostic string) (string, error) {
	o.calls++
	o.code, o.diagnostic = code, diagnostic
	return o.response, o.err
}

type fixture struct {
	root   string
	script string
	audit  string
	runner *scriptedRunner
	oracle *stubOracle
	loop   *Loop
}

func newFixture(t *testing.T, source string) *fixture {
	t.Helper()
	root := t.TempDir()
	script := filepath.Join(root, "scripts", "script_a.py")
	require.NoError(t, os.MkdirAll(filepath.Dir(script), 0755))
	require.NoError(t, os.WriteFile(script, []byte(source), 0644))

	f := &fixture{
		root:   root,
		script: script,
		audit:  filepath.Join(root, "agent", "last_patch.json"),
		runner: &scriptedRunner{},
		oracle: &stubOracle{},
	}
	f.loop = &Loop{
		Interpreter: "python",
		Runner:      f.runner,
		Locator:     faultlocator.New(root),
		Oracle:      f.oracle,
		Backups:     &backup.Manager{Mode: backup.Sibling, Suffix: ".bak", Root: root},
		AuditPath:   f.audit,
	}
	return f
}

func traceback(path string) string {
	return "Traceback (most recent call last):\n" +
		"  File \"" + path + "\", line 7, in <module>\n    main()\n" +
		"  File \"" + path + "\", line 5, in main\n    print(add(1, \"2\"))\n" +
		"  File \"" + path + "\", line 2, in add\n    return a + b\n" +
		"TypeError: unsupported operand type(s) for +: 'int' and 'str'\n"
}

func patchResponse(patch, diagnostic string) string {
	return `{"patch": ` + quote(patch) + `, "diagnostic": ` + quote(diagnostic) + `}`
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestLoop_EndToEndAddMain(t *testing.T) {
	f := newFixture(t, addMainSource)
	f.runner.results = []*executor.Result{
		{Stderr: traceback("scripts/script_a.py"), ExitCode: 1},
		{Stdout: "3\n"},
	}
	patchText := "def add(a, b):\n    return a + int(b)\n"
	f.oracle.response = patchResponse(patchText, "b is a string")

	var confirmed *Session
	f.loop.Confirmer = ConfirmFunc(func(ctx context.Context, s *Session) (bool, error) {
		confirmed = s
		return true, nil
	})

	s := NewSession(f.script)
	require.NoError(t, f.loop.Run(context.Background(), s))

	assert.Equal(t, Done, s.State)
	assert.Equal(t, Merged, s.Outcome)
	assert.NoError(t, s.Err)
	assert.Same(t, s, confirmed)

	merged := readFile(t, f.script)
	assert.Equal(t, "def add(a, b):\n    return a + int(b)\n\ndef main():\n    print(add(1, \"2\"))\n", merged)
	assert.True(t, strings.HasSuffix(merged, "\ndef main():\n    print(add(1, \"2\"))\n"), "main must be byte-identical")

	assert.Equal(t, addMainSource, readFile(t, f.script+".bak"))
	assert.Equal(t, f.oracle.response, readFile(t, f.audit))

	assert.Equal(t, addMainSource, f.oracle.code)
	assert.Contains(t, f.oracle.diagnostic, "TypeError")
	assert.Equal(t, []string{f.script, f.script}, f.runner.scripts)

	require.NotNil(t, s.Final)
	assert.Equal(t, "3\n", s.Final.Stdout)
	assert.Equal(t, "b is a string", s.Response.Diagnostic)
	assert.Equal(t, "add", s.Merge.FunctionName)
	assert.Equal(t, 0, s.Merge.Start)
	assert.Equal(t, 2, s.Merge.End)
}

func TestLoop_NoErrorFound(t *testing.T) {
	f := newFixture(t, addMainSource)
	f.runner.results = []*executor.Result{{Stdout: "ok\n", ExitCode: 3}}

	s := NewSession(f.script)
	require.NoError(t, f.loop.Run(context.Background(), s))

	assert.Equal(t, NoErrorFound, s.Outcome)
	assert.False(t, s.Outcome.Failure())
	assert.Equal(t, 0, f.oracle.calls)
	assert.Equal(t, addMainSource, readFile(t, f.script))
	assert.NoFileExists(t, f.script+".bak")
	assert.NoFileExists(t, f.audit)
}

func TestLoop_ScriptMissing(t *testing.T) {
	f := newFixture(t, addMainSource)

	s := NewSession(filepath.Join(f.root, "scripts", "nope.py"))
	require.NoError(t, f.loop.Run(context.Background(), s))

	assert.Equal(t, TargetMissing, s.Outcome)
	assert.ErrorIs(t, s.Err, faultlocator.ErrTargetMissing)
	assert.Equal(t, 0, f.runner.calls)
}

func TestLoop_FaultFileMissing(t *testing.T) {
	f := newFixture(t, addMainSource)
	f.runner.results = []*executor.Result{{Stderr: traceback("lib/gone.py")}}

	s := NewSession(f.script)
	require.NoError(t, f.loop.Run(context.Background(), s))

	assert.Equal(t, TargetMissing, s.Outcome)
	assert.True(t, s.Outcome.Failure())
	assert.ErrorIs(t, s.Err, faultlocator.ErrTargetMissing)
	assert.Equal(t, filepath.Join(f.root, "lib", "gone.py"), s.Target)
	assert.Equal(t, 0, f.oracle.calls)
}

func TestLoop_OracleInvalidKeepsAudit(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "prose", response: "Sorry, I can't help with that."},
		{name: "missing patch", response: `{"diagnostic": "it is broken"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, addMainSource)
			f.runner.results = []*executor.Result{{Stderr: traceback(f.script)}}
			f.oracle.response = tt.response

			s := NewSession(f.script)
			require.NoError(t, f.loop.Run(context.Background(), s))

			assert.Equal(t, OracleInvalid, s.Outcome)
			assert.ErrorIs(t, s.Err, ErrOracleInvalid)
			assert.Equal(t, tt.response, readFile(t, f.audit))
			assert.Equal(t, addMainSource, readFile(t, f.script))
			assert.NoFileExists(t, f.script+".bak")
		})
	}
}

func TestLoop_TruncatedResponseIsOracleInvalid(t *testing.T) {
	f := newFixture(t, addMainSource)
	f.runner.results = []*executor.Result{{Stderr: traceback(f.script)}}
	f.oracle.response = `{"patch": "def add(a, b):\n    return int(a) + in`

	s := NewSession(f.script)
	logger, err := logging.StartSessionLogging(filepath.Join(f.root, "repair_logs"), s.ID)
	require.NoError(t, err)
	f.loop.Logger = logger

	require.NoError(t, f.loop.Run(context.Background(), s))
	logger.Close()

	assert.Equal(t, OracleInvalid, s.Outcome)
	assert.ErrorIs(t, s.Err, ErrOracleInvalid)
	assert.Contains(t, s.Err.Error(), "truncated")
	assert.True(t, s.Response.Repaired)
	assert.Equal(t, f.oracle.response, readFile(t, f.audit))
	assert.Equal(t, addMainSource, readFile(t, f.script))
	assert.NoFileExists(t, f.script+".bak")
	assert.Equal(t, 1, f.runner.calls)
	assert.Contains(t, readFile(t, logger.Path()), "Oracle response needed JSON repair")
}

func TestLoop_PatchRejectedLeavesFileUntouched(t *testing.T) {
	f := newFixture(t, addMainSource)
	f.runner.results = []*executor.Result{{Stderr: traceback(f.script)}}
	f.oracle.response = patchResponse("x = 1\ndef add(a, b):\n    return 0\n", "")

	s := NewSession(f.script)
	require.NoError(t, f.loop.Run(context.Background(), s))

	assert.Equal(t, PatchRejected, s.Outcome)
	assert.ErrorIs(t, s.Err, ErrPatchRejected)
	assert.Contains(t, s.Err.Error(), "must start with a function definition")
	assert.Equal(t, addMainSource, readFile(t, f.script))
	assert.NoFileExists(t, f.script+".bak")
	assert.Equal(t, 1, f.runner.calls)
}

func TestLoop_DeclinedConfirmation(t *testing.T) {
	f := newFixture(t, addMainSource)
	f.runner.results = []*executor.Result{{Stderr: traceback(f.script)}}
	f.oracle.response = patchResponse("def add(a, b):\n    return a + int(b)\n", "")
	f.loop.Confirmer = &PromptConfirmer{In: strings.NewReader("n\n"), Out: &bytes.Buffer{}}

	s := NewSession(f.script)
	require.NoError(t, f.loop.Run(context.Background(), s))

	assert.Equal(t, Cancelled, s.Outcome)
	assert.False(t, s.Outcome.Failure())
	assert.Equal(t, addMainSource, readFile(t, f.script))
	assert.NoFileExists(t, f.script+".bak")
	assert.Equal(t, 1, f.runner.calls)
}

func TestLoop_AppendsUnknownFunction(t *testing.T) {
	f := newFixture(t, addMainSource)
	f.runner.results = []*executor.Result{{Stderr: traceback(f.script)}, {Stderr: "still failing\n"}}
	f.oracle.response = patchResponse("def to_int(x):\n    return int(x)", "")

	s := NewSession(f.script)
	require.NoError(t, f.loop.Run(context.Background(), s))

	assert.Equal(t, Appended, s.Outcome)
	assert.Equal(t, addMainSource+"\ndef to_int(x):\n    return int(x)\n", readFile(t, f.script))
	assert.Equal(t, addMainSource, readFile(t, f.script+".bak"))
	assert.True(t, s.Final.Failed())
}

func TestLoop_StepByStep(t *testing.T) {
	f := newFixture(t, addMainSource)
	f.runner.results = []*executor.Result{{Stderr: traceback(f.script)}, {}}
	f.oracle.response = patchResponse("def add(a, b):\n    return a + int(b)\n", "")

	s := NewSession(f.script)
	want := []State{Diagnosing, RequestingPatch, Validating, ConfirmPending, Merging, Reverifying, Done}
	for _, next := range want {
		require.NoError(t, f.loop.Step(context.Background(), s))
		assert.Equal(t, next, s.State)
	}
	assert.Equal(t, Merged, s.Outcome)
	assert.ErrorIs(t, f.loop.Step(context.Background(), s), ErrSessionDone)
}

func TestLoop_OracleTransportErrorIsFatal(t *testing.T) {
	f := newFixture(t, addMainSource)
	f.runner.results = []*executor.Result{{Stderr: traceback(f.script)}}
	f.oracle.err = errors.New("connection refused")

	s := NewSession(f.script)
	err := f.loop.Run(context.Background(), s)

	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, RequestingPatch, s.State)
	assert.NoFileExists(t, f.audit)
	assert.Equal(t, addMainSource, readFile(t, f.script))
}

func TestLoop_BackupFailureAbortsBeforeWrite(t *testing.T) {
	f := newFixture(t, addMainSource)
	f.runner.results = []*executor.Result{{Stderr: traceback(f.script)}}
	f.oracle.response = patchResponse("def add(a, b):\n    return a + int(b)\n", "")

	blocker := filepath.Join(f.root, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file"), 0644))
	f.loop.Backups = &backup.Manager{Mode: backup.Directory, Suffix: ".bak", Dir: filepath.Join(blocker, "backups"), Root: f.root}

	s := NewSession(f.script)
	err := f.loop.Run(context.Background(), s)

	assert.ErrorContains(t, err, "backup failed")
	assert.Equal(t, Merging, s.State)
	assert.Equal(t, addMainSource, readFile(t, f.script))
}

func TestLoop_RunnerStartFailure(t *testing.T) {
	f := newFixture(t, addMainSource)
	f.runner.err = errors.New(`exec: "python": executable file not found in $PATH`)

	s := NewSession(f.script)
	err := f.loop.Run(context.Background(), s)

	assert.ErrorContains(t, err, "executable file not found")
	assert.Equal(t, Running, s.State)
}

func TestLoop_WritesSessionLog(t *testing.T) {
	f := newFixture(t, addMainSource)
	f.runner.results = []*executor.Result{{Stderr: traceback(f.script)}, {}}
	f.oracle.response = patchResponse("def add(a, b):\n    return a + int(b)\n", "")

	s := NewSession(f.script)
	logger, err := logging.StartSessionLogging(filepath.Join(f.root, "repair_logs"), s.ID)
	require.NoError(t, err)
	f.loop.Logger = logger

	require.NoError(t, f.loop.Run(context.Background(), s))
	logger.Close()

	text := readFile(t, logger.Path())
	assert.Contains(t, text, "state Running -> Diagnosing")
	assert.Contains(t, text, "state Reverifying -> Done")
	assert.Contains(t, text, "Outcome: Merged")
}

func TestSessionDefaults(t *testing.T) {
	a := NewSession("a.py")
	b := NewSession("a.py")

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, Running, a.State)
	assert.Equal(t, Pending, a.Outcome)
	assert.False(t, a.Finished())
}

var _ oracle.Oracle = (*stubOracle)(nil)
