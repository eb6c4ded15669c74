package sandbox

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	starlarkjson "go.starlark.net/lib/json"
	starlarkmath "go.starlark.net/lib/math"
	starlarktime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/openclaw/skillforge/internal/skill"
)

// Entry points every skill module must define.
const (
	VerifyFunc = "verify"
	ActionFunc = "action"
)

// Verdict is the inner-side outcome of loading a skill and invoking its
// verification routine.
type Verdict struct {
	OK     bool
	Reason string
	Detail string
}

// Predeclared returns the restricted global environment a skill module
// executes in: the safe std modules plus struct, nothing else.
func Predeclared() starlark.StringDict {
	return starlark.StringDict{
		"json":   starlarkjson.Module,
		"math":   starlarkmath.Module,
		"time":   starlarktime.Module,
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
	}
}

// NewThread returns a skill execution thread with module loading
// disabled. The static scan already enforces the load allowlist; inside
// the boundary nothing beyond the predeclared environment is reachable.
func NewThread(name string) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Load: func(_ *starlark.Thread, module string) (starlark.StringDict, error) {
			return nil, fmt.Errorf("load(%q) is not available in the sandbox", module)
		},
	}
}

// LoadModule executes a skill module and returns its globals. Any panic
// escaping the interpreter is converted into an error: untrusted code
// must never take the harness down.
func LoadModule(thread *starlark.Thread, path string) (globals starlark.StringDict, err error) {
	defer func() {
		if r := recover(); r != nil {
			globals, err = nil, fmt.Errorf("module load panicked: %v", r)
		}
	}()

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading skill module: %w", err)
	}
	return starlark.ExecFile(thread, filepath.Base(path), src, Predeclared())
}

// Verify loads the skill module in dir and invokes its verification
// routine under the given budget. All abnormal termination paths are
// caught and mapped to a failure verdict; Verify itself never panics.
func Verify(dir string, budget time.Duration) Verdict {
	thread := NewThread("verify")

	if budget > 0 {
		timer := time.AfterFunc(budget, func() { thread.Cancel("verification budget exceeded") })
		defer timer.Stop()
	}

	globals, err := LoadModule(thread, filepath.Join(dir, skill.CodeFile))
	if err != nil {
		if isCancelled(err) {
			return Verdict{Reason: ReasonTimeout, Detail: err.Error()}
		}
		return Verdict{Reason: ReasonVerifyException, Detail: err.Error()}
	}

	verifyFn, ok := globals[VerifyFunc].(starlark.Callable)
	if !ok {
		return Verdict{Reason: ReasonMissingEntrypoint, Detail: "missing verify() function"}
	}
	if _, ok := globals[ActionFunc].(starlark.Callable); !ok {
		return Verdict{Reason: ReasonMissingEntrypoint, Detail: "missing action() function"}
	}

	result, err := Call(thread, verifyFn, nil, nil)
	if err != nil {
		if isCancelled(err) {
			return Verdict{Reason: ReasonTimeout, Detail: err.Error()}
		}
		return Verdict{Reason: ReasonVerifyException, Detail: err.Error()}
	}

	return classifyVerifyResult(result)
}

// classifyVerifyResult maps the verification return value onto the
// failure taxonomy. Only the exact boolean True passes.
func classifyVerifyResult(result starlark.Value) Verdict {
	switch v := result.(type) {
	case starlark.Bool:
		if v == starlark.True {
			return Verdict{OK: true}
		}
		return Verdict{Reason: ReasonVerifyFalse, Detail: "verify() returned False"}
	case starlark.NoneType:
		return Verdict{Reason: ReasonVerifyNone, Detail: "verify() returned None"}
	default:
		detail := fmt.Sprintf("verify() returned %s, expected True", result.String())
		if bool(result.Truth()) {
			return Verdict{Reason: ReasonVerifyTruthy, Detail: detail}
		}
		return Verdict{Reason: ReasonVerifyFalse, Detail: detail}
	}
}

// Call invokes a skill callable, converting panics to errors.
func Call(thread *starlark.Thread, fn starlark.Callable, args starlark.Tuple, kwargs []starlark.Tuple) (v starlark.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("skill call panicked: %v", r)
		}
	}()
	return starlark.Call(thread, fn, args, kwargs)
}

// isCancelled reports whether err is the interpreter's own cancellation
// (thread.Cancel on budget expiry). The message prefix is checked, not a
// substring: a skill calling fail() with "cancelled" in its text is an
// ordinary exception, not a timeout.
func isCancelled(err error) bool {
	if err == nil {
		return false
	}
	var evalErr *starlark.EvalError
	msg := err.Error()
	if errors.As(err, &evalErr) {
		msg = evalErr.Msg
	}
	return strings.HasPrefix(msg, "Starlark computation cancelled")
}

// RunHarness is the in-container entry point. It verifies the skill at
// dir, emits exactly one protocol marker line to out, and returns the
// process exit code (0 pass, 1 fail).
func RunHarness(dir string, budget time.Duration, out, diag io.Writer) int {
	verdict := Verify(dir, budget)
	if verdict.OK {
		fmt.Fprintln(out, SuccessMarker())
		return 0
	}
	if verdict.Detail != "" {
		fmt.Fprintln(diag, verdict.Detail)
	}
	fmt.Fprintln(out, FailureMarker(verdict.Reason))
	return 1
}
