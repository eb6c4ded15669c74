package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/skillforge/internal/evalgate"
	"github.com/openclaw/skillforge/internal/generator"
	"github.com/openclaw/skillforge/internal/queue"
	"github.com/openclaw/skillforge/internal/registry"
	"github.com/openclaw/skillforge/internal/sandbox"
	"github.com/openclaw/skillforge/internal/scanner"
	"github.com/openclaw/skillforge/internal/skill"
)

// stageEcho runs the coordinator once so text_echo sits in staging.
func stageEcho(t *testing.T) (*registry.Registry, string, string) {
	t.Helper()
	dir := t.TempDir()
	reg := registry.New(filepath.Join(dir, "registry.json"),
		registry.NewAuditLogger(filepath.Join(dir, "audit.log")))
	c := &Coordinator{
		Provider:      &generator.Mock{},
		Scanner:       scanner.New(),
		Runner:        &fakeRunner{result: sandbox.Result{Passed: true}},
		Registry:      reg,
		StagingDir:    filepath.Join(dir, "staging"),
		MaxConcurrent: 1,
	}
	queuePath := filepath.Join(dir, "queue.json")
	require.NoError(t, queue.Save(queuePath, &queue.Queue{Items: []*queue.Item{queue.NewItem("echo text", "")}}))
	summary, err := c.NightEvolve(context.Background(), queuePath)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Succeeded)
	return reg, c.StagingDir, dir
}

func writeGateCase(t *testing.T, evalDir, gate string, c evalgate.Case) {
	t.Helper()
	dir := filepath.Join(evalDir, gate)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, c.ID+".json"), raw, 0o644))
}

func TestPromoteSkillAllGatesPass(t *testing.T) {
	reg, stagingDir, dir := stageEcho(t)
	evalDir := filepath.Join(dir, "eval")
	writeGateCase(t, evalDir, evalgate.GateReplay, evalgate.Case{
		ID:       "upper",
		Skill:    "text_echo",
		Input:    map[string]any{"text": "hi"},
		Expected: evalgate.Expected{Type: evalgate.ExpectExact, Value: "HI"},
	})

	p := &Promoter{
		Registry:   reg,
		Evaluator:  evalgate.New(evalDir),
		StagingDir: stagingDir,
		ProdDir:    filepath.Join(dir, "prod"),
	}
	require.NoError(t, p.PromoteSkill("text_echo"))

	entry, err := reg.Entry("text_echo")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", entry.CurrentProd)
	assert.Empty(t, entry.CurrentStaging)
	sv := entry.Versions["1.0.0"]
	assert.Equal(t, registry.StatusProd, sv.Status)
	assert.True(t, sv.Validation.Gates[evalgate.GateReplay].Passed)

	// The package was copied into the production tree.
	_, err = os.Stat(filepath.Join(p.ProdDir, "text_echo", "1.0.0", skill.CodeFile))
	assert.NoError(t, err)
}

func TestPromoteSkillGateFailureRejects(t *testing.T) {
	reg, stagingDir, dir := stageEcho(t)
	evalDir := filepath.Join(dir, "eval")
	writeGateCase(t, evalDir, evalgate.GateReplay, evalgate.Case{
		ID:       "wrong",
		Skill:    "text_echo",
		Input:    map[string]any{"text": "hi"},
		Expected: evalgate.Expected{Type: evalgate.ExpectExact, Value: "nope"},
	})

	p := &Promoter{
		Registry:   reg,
		Evaluator:  evalgate.New(evalDir),
		StagingDir: stagingDir,
		ProdDir:    filepath.Join(dir, "prod"),
	}
	err := p.PromoteSkill("text_echo")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGatesFailed)
	assert.Contains(t, err.Error(), "gates failed")

	entry, regErr := reg.Entry("text_echo")
	require.NoError(t, regErr)
	assert.Empty(t, entry.CurrentProd)
	assert.Empty(t, entry.CurrentStaging)
	sv := entry.Versions["1.0.0"]
	assert.Equal(t, registry.StatusRejected, sv.Status)
	assert.Contains(t, sv.RejectedReason, evalgate.GateReplay)
	// Per-case detail is retained on the rejected version.
	require.Contains(t, sv.Validation.Gates, evalgate.GateReplay)
	assert.False(t, sv.Validation.Gates[evalgate.GateReplay].Passed)

	// Nothing was copied to prod.
	_, statErr := os.Stat(filepath.Join(p.ProdDir, "text_echo"))
	assert.True(t, os.IsNotExist(statErr))

	trail, readErr := os.ReadFile(filepath.Join(dir, "audit.log"))
	require.NoError(t, readErr)
	assert.Contains(t, string(trail), "[PROMOTE_FAILED] skill=text_echo version=1.0.0 failed_gates=replay")
}

func TestPromoteSkillNoStagingVersion(t *testing.T) {
	reg := registry.New(filepath.Join(t.TempDir(), "registry.json"), nil)
	p := &Promoter{Registry: reg, Evaluator: evalgate.New(t.TempDir())}

	err := p.PromoteSkill("absent")
	assert.ErrorIs(t, err, registry.ErrVersionNotFound)
}

func TestPromoteSkillEmptyGatesPromote(t *testing.T) {
	// No case files at all: every gate passes vacuously.
	reg, stagingDir, dir := stageEcho(t)
	p := &Promoter{
		Registry:   reg,
		Evaluator:  evalgate.New(filepath.Join(dir, "eval")),
		StagingDir: stagingDir,
		ProdDir:    filepath.Join(dir, "prod"),
	}
	require.NoError(t, p.PromoteSkill("text_echo"))

	entry, err := reg.Entry("text_echo")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", entry.CurrentProd)
}

func TestPromoteAllGateVerdictTalliedAsFailure(t *testing.T) {
	reg, stagingDir, dir := stageEcho(t)
	evalDir := filepath.Join(dir, "eval")
	writeGateCase(t, evalDir, evalgate.GateReplay, evalgate.Case{
		ID:       "wrong",
		Skill:    "text_echo",
		Input:    map[string]any{"text": "hi"},
		Expected: evalgate.Expected{Type: evalgate.ExpectExact, Value: "nope"},
	})

	p := &Promoter{
		Registry:   reg,
		Evaluator:  evalgate.New(evalDir),
		StagingDir: stagingDir,
		ProdDir:    filepath.Join(dir, "prod"),
	}
	result, err := p.PromoteAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"text_echo"}, result.Failed)
	assert.Empty(t, result.Promoted)
}

func TestPromoteAllOperationalFaultAborts(t *testing.T) {
	reg, stagingDir, dir := stageEcho(t)
	// An unreadable case file is an infrastructure fault, not a verdict:
	// the run aborts and the candidate is not tallied against.
	evalDir := filepath.Join(dir, "eval")
	caseDir := filepath.Join(evalDir, evalgate.GateReplay)
	require.NoError(t, os.MkdirAll(caseDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(caseDir, "broken.json"), []byte("{not json"), 0o644))

	p := &Promoter{
		Registry:   reg,
		Evaluator:  evalgate.New(evalDir),
		StagingDir: stagingDir,
		ProdDir:    filepath.Join(dir, "prod"),
	}
	result, err := p.PromoteAll()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrGatesFailed)
	assert.Empty(t, result.Failed)
	assert.Empty(t, result.Promoted)

	// The candidate is untouched, still promotable once the fault clears.
	entry, regErr := reg.Entry("text_echo")
	require.NoError(t, regErr)
	assert.Equal(t, "1.0.0", entry.CurrentStaging)
}

func TestPromoteAll(t *testing.T) {
	reg, stagingDir, dir := stageEcho(t)
	// A second skill with no staging pointer is skipped.
	require.NoError(t, reg.AddStaging("other_skill", "1.0.0", "c", "m", registry.ValidationRecord{}))
	require.NoError(t, reg.Promote("other_skill", "1.0.0", nil))

	p := &Promoter{
		Registry:   reg,
		Evaluator:  evalgate.New(filepath.Join(dir, "eval")),
		StagingDir: stagingDir,
		ProdDir:    filepath.Join(dir, "prod"),
	}
	result, err := p.PromoteAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"text_echo"}, result.Promoted)
	assert.Equal(t, []string{"other_skill"}, result.Skipped)
	assert.Empty(t, result.Failed)
}
