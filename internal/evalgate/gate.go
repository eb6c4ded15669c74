// Package evalgate runs the three promotion case suites against a
// staged candidate: replay (originally-observed failing scenarios),
// regression (previously-working behavior), and redteam (adversarial
// security cases). Gate execution never panics; every failure is
// expressed in the report.
package evalgate

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"go.starlark.net/starlark"
	"k8s.io/klog/v2"

	"github.com/openclaw/skillforge/internal/sandbox"
	"github.com/openclaw/skillforge/internal/skill"
)

// Gate categories and their pass-rate thresholds. Replay and redteam
// are zero tolerance; regression alone carries a small flake allowance.
const (
	GateReplay     = "replay"
	GateRegression = "regression"
	GateRedteam    = "redteam"
)

var thresholds = map[string]float64{
	GateReplay:     1.0,
	GateRegression: 0.99,
	GateRedteam:    1.0,
}

// Gates returns the gate categories in canonical execution order.
func Gates() []string {
	return []string{GateReplay, GateRegression, GateRedteam}
}

// Threshold returns the pass-rate threshold for a gate category.
func Threshold(gate string) (float64, error) {
	t, ok := thresholds[gate]
	if !ok {
		return 0, fmt.Errorf("unknown gate category: %s", gate)
	}
	return t, nil
}

// CaseResult is the retained per-case detail.
type CaseResult struct {
	CaseID     string  `json:"case_id"`
	Passed     bool    `json:"passed"`
	Output     string  `json:"output,omitempty"`
	Error      string  `json:"error,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// GateReport is the outcome of one gate category run.
type GateReport struct {
	Gate        string       `json:"gate"`
	Passed      bool         `json:"passed"`
	PassedCount int          `json:"passed_count"`
	Total       int          `json:"total"`
	PassRate    float64      `json:"pass_rate"`
	Threshold   float64      `json:"threshold"`
	Cases       []CaseResult `json:"cases,omitempty"`
}

// Evaluator executes gate case suites from an eval data directory.
type Evaluator struct {
	evalDir string
}

// New creates an evaluator reading cases from evalDir.
func New(evalDir string) *Evaluator {
	return &Evaluator{evalDir: evalDir}
}

// RunGate runs every case of one gate category against the skill
// package in skillDir. An empty case set passes. The returned error is
// operational only (unreadable case files); case failures live in the
// report.
func (e *Evaluator) RunGate(gate, skillName, skillDir string) (GateReport, error) {
	threshold, err := Threshold(gate)
	if err != nil {
		return GateReport{}, err
	}

	cases, err := LoadCases(e.evalDir, gate, skillName)
	if err != nil {
		return GateReport{}, err
	}

	report := GateReport{Gate: gate, Threshold: threshold}
	for _, c := range cases {
		result := e.runCase(c, skillDir)
		if result.Passed {
			report.PassedCount++
		}
		report.Cases = append(report.Cases, result)
	}

	report.Total = len(report.Cases)
	report.PassRate = 1.0
	if report.Total > 0 {
		report.PassRate = float64(report.PassedCount) / float64(report.Total)
	}
	report.Passed = report.PassRate >= threshold

	klog.V(2).Infof("gate %s for %s: %d/%d passed (threshold %.2f)",
		gate, skillName, report.PassedCount, report.Total, threshold)
	return report, nil
}

// RunAll runs every gate category in order and reports whether all of
// them met their threshold.
func (e *Evaluator) RunAll(skillName, skillDir string) (map[string]GateReport, bool, error) {
	reports := make(map[string]GateReport, len(thresholds))
	allPassed := true
	for _, gate := range Gates() {
		report, err := e.RunGate(gate, skillName, skillDir)
		if err != nil {
			return nil, false, err
		}
		reports[gate] = report
		if !report.Passed {
			allPassed = false
		}
	}
	return reports, allPassed, nil
}

// runCase loads the skill fresh and invokes its action entry point with
// the case input under the case's time budget.
func (e *Evaluator) runCase(c Case, skillDir string) CaseResult {
	timeoutMS := c.TimeoutMS
	if timeoutMS <= 0 {
		timeoutMS = defaultCaseTimeoutMS
	}

	start := time.Now()
	result := CaseResult{CaseID: c.ID}

	finish := func(value any, errText string) CaseResult {
		result.DurationMS = float64(time.Since(start)) / float64(time.Millisecond)
		result.Error = errText
		if errText == "" {
			result.Output = stringify(value)
		}
		result.Passed = matchExpected(c.Expected, value, errText, result.DurationMS)
		return result
	}

	thread := sandbox.NewThread("evalgate:" + c.ID)
	timer := time.AfterFunc(time.Duration(timeoutMS)*time.Millisecond, func() {
		thread.Cancel("case budget exceeded")
	})
	defer timer.Stop()

	globals, err := sandbox.LoadModule(thread, filepath.Join(skillDir, skill.CodeFile))
	if err != nil {
		return finish(nil, fmt.Sprintf("loading skill: %v", err))
	}

	action, ok := globals[sandbox.ActionFunc].(starlark.Callable)
	if !ok {
		return finish(nil, "skill has no action() function")
	}

	kwargs, err := inputKwargs(c.Input)
	if err != nil {
		return finish(nil, fmt.Sprintf("building input: %v", err))
	}

	value, err := sandbox.Call(thread, action, nil, kwargs)
	if err != nil {
		return finish(nil, err.Error())
	}

	goValue, err := fromStarlark(value)
	if err != nil {
		return finish(nil, fmt.Sprintf("converting result: %v", err))
	}
	return finish(goValue, "")
}

// inputKwargs turns a case input map into keyword arguments, sorted for
// determinism.
func inputKwargs(input map[string]any) ([]starlark.Tuple, error) {
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kwargs := make([]starlark.Tuple, 0, len(keys))
	for _, k := range keys {
		v, err := toStarlark(input[k])
		if err != nil {
			return nil, err
		}
		kwargs = append(kwargs, starlark.Tuple{starlark.String(k), v})
	}
	return kwargs, nil
}
