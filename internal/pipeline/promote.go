package pipeline

import (
	"errors"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/openclaw/skillforge/internal/evalgate"
	"github.com/openclaw/skillforge/internal/registry"
	"github.com/openclaw/skillforge/internal/skill"
)

// ErrGatesFailed marks a promotion rejected by gate verdict rather than
// by an infrastructure fault.
var ErrGatesFailed = errors.New("gate thresholds not met")

// Promoter runs the three promotion gates against staged candidates and
// owns the promotion decision: all gates at threshold or the candidate
// stays out of prod. No partial promotion exists.
type Promoter struct {
	Registry   *registry.Registry
	Evaluator  *evalgate.Evaluator
	StagingDir string
	ProdDir    string
}

// PromoteResult summarizes a promote-all run.
type PromoteResult struct {
	Promoted []string
	Failed   []string
	Skipped  []string
}

// PromoteSkill gates and, on success, promotes the current staging
// version of one skill. Gate failures reject the candidate terminally
// with full per-case detail retained in the registry.
func (p *Promoter) PromoteSkill(name string) error {
	entry, err := p.Registry.Entry(name)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("skill %s: %w", name, registry.ErrVersionNotFound)
	}
	version := entry.CurrentStaging
	if version == "" {
		return fmt.Errorf("skill %s has no staging version", name)
	}

	stagingDir := skill.Dir(p.StagingDir, name, version)

	reports, allPassed, err := p.Evaluator.RunAll(name, stagingDir)
	if err != nil {
		return fmt.Errorf("running gates for %s@%s: %w", name, version, err)
	}

	if !allPassed {
		failing := gateNames(reports, false)
		p.Registry.Audit().Log(registry.OpPromoteFailed,
			registry.F("skill", name),
			registry.F("version", version),
			registry.F("failed_gates", failing))
		if err := p.Registry.RecordGates(name, version, reports); err != nil {
			klog.Errorf("recording gate results for %s@%s: %v", name, version, err)
		}
		if err := p.Registry.Reject(name, version, "gate threshold not met: "+failing); err != nil {
			return err
		}
		return fmt.Errorf("promotion of %s@%s rejected: gates failed: %s: %w", name, version, failing, ErrGatesFailed)
	}

	if err := p.Registry.Promote(name, version, reports); err != nil {
		return err
	}

	// Materialize the promoted package in the production tree. The
	// registry promotion above already holds the audit record; a copy
	// failure here surfaces as an operational error.
	if err := skill.CopyDir(stagingDir, skill.Dir(p.ProdDir, name, version)); err != nil {
		return fmt.Errorf("copying %s@%s to prod: %w", name, version, err)
	}

	klog.Infof("promoted %s@%s (replay %.2f regression %.2f redteam %.2f)",
		name, version,
		reports[evalgate.GateReplay].PassRate,
		reports[evalgate.GateRegression].PassRate,
		reports[evalgate.GateRedteam].PassRate)
	return nil
}

// PromoteAll attempts promotion for every skill with a staging pointer.
func (p *Promoter) PromoteAll() (*PromoteResult, error) {
	names, err := p.Registry.List()
	if err != nil {
		return nil, err
	}

	result := &PromoteResult{}
	for _, name := range names {
		entry, err := p.Registry.Entry(name)
		if err != nil {
			return result, err
		}
		if entry == nil || entry.CurrentStaging == "" {
			result.Skipped = append(result.Skipped, name)
			continue
		}
		if err := p.PromoteSkill(name); err != nil {
			if isOperational(err) {
				return result, err
			}
			klog.Warningf("promotion failed for %s: %v", name, err)
			result.Failed = append(result.Failed, name)
			continue
		}
		result.Promoted = append(result.Promoted, name)
	}
	return result, nil
}

// isOperational distinguishes infrastructure faults from gate verdicts.
// Only a gate-verdict rejection counts against the candidate; anything
// else (corrupt snapshot, unreadable case files, stale pointer) aborts
// the run.
func isOperational(err error) bool {
	return !errors.Is(err, ErrGatesFailed)
}
