// Package pipeline sequences the validation stages for candidate
// skills: manifest acceptance, policy scan, sandbox verification,
// registry staging, and the promotion gates. The pipeline halts at the
// first failing stage per candidate and records the reason; operational
// faults abort the run instead of becoming verdicts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/openclaw/skillforge/internal/evalgate"
	"github.com/openclaw/skillforge/internal/generator"
	"github.com/openclaw/skillforge/internal/queue"
	"github.com/openclaw/skillforge/internal/registry"
	"github.com/openclaw/skillforge/internal/sandbox"
	"github.com/openclaw/skillforge/internal/scanner"
	"github.com/openclaw/skillforge/internal/skill"
)

// IsolationRunner is the execution substrate contract the coordinator
// depends on. *sandbox.Runner is the real implementation.
type IsolationRunner interface {
	Available(ctx context.Context) error
	Run(ctx context.Context, packageDir, outputDir string) sandbox.Result
}

// Coordinator wires the pipeline stages together.
type Coordinator struct {
	Provider      generator.Provider
	Scanner       *scanner.Scanner
	Runner        IsolationRunner
	Registry      *registry.Registry
	StagingDir    string
	MaxConcurrent int
	SkipSandbox   bool
}

// Summary reports the outcome of one night-evolve run.
type Summary struct {
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
}

// casRetries bounds the explicit stale-pointer retry when candidates
// for distinct skills race on the shared snapshot.
const casRetries = 3

// NightEvolve processes every pending queue item: generate, validate
// manifest, scan, stage, sandbox, and record in the registry.
// Different candidates run concurrently, bounded by MaxConcurrent to
// cap the number of live isolation environments.
func (c *Coordinator) NightEvolve(ctx context.Context, queuePath string) (*Summary, error) {
	q, err := queue.Load(queuePath)
	if err != nil {
		return nil, err
	}

	if !c.SkipSandbox {
		if err := c.Runner.Available(ctx); err != nil {
			// Substrate down is an operational error, not a verdict.
			return nil, fmt.Errorf("isolation substrate unavailable: %w", err)
		}
	}

	runID := uuid.NewString()[:8]
	klog.Infof("night-evolve run %s: %d queued items", runID, len(q.Items))

	summary := &Summary{}
	var mu sync.Mutex
	sem := make(chan struct{}, c.MaxConcurrent)
	var wg sync.WaitGroup

	for _, item := range q.Items {
		if item.Status != queue.StatusPending {
			summary.Skipped++
			continue
		}
		summary.Processed++
		item.Status = queue.StatusProcessing

		wg.Add(1)
		go func(item *queue.Item) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			ok := c.processItem(ctx, item)

			mu.Lock()
			defer mu.Unlock()
			if ok {
				item.Status = queue.StatusCompleted
				summary.Succeeded++
			} else {
				item.Status = queue.StatusFailed
				summary.Failed++
			}
		}(item)
	}

	wg.Wait()

	if err := queue.Save(queuePath, q); err != nil {
		return summary, err
	}

	klog.Infof("night-evolve run %s: processed=%d succeeded=%d failed=%d skipped=%d",
		runID, summary.Processed, summary.Succeeded, summary.Failed, summary.Skipped)
	return summary, nil
}

// processItem runs one candidate through generation and validation.
// Returns true when the candidate reached staging.
func (c *Coordinator) processItem(ctx context.Context, item *queue.Item) bool {
	audit := c.Registry.Audit()

	audit.Log(registry.OpGenerate,
		registry.F("capability", item.Capability), registry.F("item", item.ID))

	pkg, err := c.Provider.GenerateSkill(item.Capability, item.Context)
	if err != nil {
		klog.Warningf("generation failed for %q: %v", item.Capability, err)
		return false
	}

	validation := registry.ValidationRecord{}

	// Stage 1: manifest acceptance. The manifest contract is the single
	// source of truth; violations reject before the code is even scanned.
	if errs := pkg.Manifest.Validate(skill.ValidateOptions{}); len(errs) > 0 {
		audit.Log(registry.OpManifest,
			registry.F("skill", pkg.Name),
			registry.F("errors", fmt.Sprintf("%v", errs)))
		klog.Infof("manifest rejected %s: %v", pkg.Name, errs)
		return false
	}

	// Stage 2: static policy scan. A scan failure skips everything
	// after it; the candidate never reaches an execution environment.
	scanResult := c.Scanner.Check(pkg.Code)
	validation.Scan = &scanResult
	audit.Log(registry.OpScan,
		registry.F("skill", pkg.Name),
		registry.F("passed", scanResult.Passed),
		registry.F("violations", len(scanResult.Violations)))
	if !scanResult.Passed {
		klog.Infof("scan rejected %s: %d violations", pkg.Name, len(scanResult.Violations))
		return false
	}

	// Stage 3: write to staging.
	version := pkg.Manifest.Version
	stagingDir, err := pkg.WriteDir(c.StagingDir, version)
	if err != nil {
		klog.Errorf("staging write failed for %s: %v", pkg.Name, err)
		return false
	}

	// Stage 4: sandbox verification. One attempt; a caller wanting a
	// retry starts over with a fresh scan.
	if c.SkipSandbox {
		validation.SandboxSkipped = true
		audit.Log(registry.OpSandbox, registry.F("skill", pkg.Name), registry.F("skipped", true))
	} else {
		result := c.Runner.Run(ctx, stagingDir, "")
		validation.Sandbox = &result
		audit.Log(registry.OpSandbox,
			registry.F("skill", pkg.Name),
			registry.F("passed", result.Passed),
			registry.F("reason", result.Reason),
			registry.F("duration_ms", result.Metrics.Duration.Milliseconds()))
		if !result.Passed {
			klog.Infof("sandbox rejected %s: %s", pkg.Name, result.Reason)
			return false
		}
	}

	// Stage 5: record the version in staging.
	manifestHash, err := skill.HashManifest(pkg.Manifest)
	if err != nil {
		klog.Errorf("hashing manifest for %s: %v", pkg.Name, err)
		return false
	}
	codeHash := skill.HashContent(pkg.Code)

	for attempt := 0; ; attempt++ {
		err = c.Registry.AddStaging(pkg.Name, version, codeHash, manifestHash, validation)
		if err == nil {
			return true
		}
		if errors.Is(err, registry.ErrStalePointer) && attempt < casRetries {
			continue
		}
		klog.Errorf("registry staging failed for %s@%s: %v", pkg.Name, version, err)
		return false
	}
}

// gateNames formats the failing gates of a report set for audit lines.
func gateNames(reports map[string]evalgate.GateReport, passed bool) string {
	var names []string
	for _, gate := range evalgate.Gates() {
		if r, ok := reports[gate]; ok && r.Passed == passed {
			names = append(names, gate)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	out := names[0]
	for _, n := range names[1:] {
		out += "," + n
	}
	return out
}
