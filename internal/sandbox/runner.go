// Package sandbox launches ephemeral, resource-capped, network-disabled
// docker containers to run a candidate skill's verification routine, and
// implements the in-container harness those containers execute.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// cmdRunner builds exec commands; injectable so tests can fake docker.
type cmdRunner func(ctx context.Context, name string, args ...string) *exec.Cmd

// Runner is the outer side of the isolation boundary. One Run call
// performs exactly one execution attempt; callers wanting a retry issue
// a fresh call (including a fresh policy scan).
type Runner struct {
	image    string
	timeout  time.Duration
	security *SecurityOptions
	runCmd   cmdRunner
}

// Option configures a Runner.
type Option func(*Runner)

// WithSecurityOptions overrides the container hardening settings.
func WithSecurityOptions(opts *SecurityOptions) Option {
	return func(r *Runner) { r.security = opts }
}

// WithCommandRunner overrides command construction (tests only).
func WithCommandRunner(run cmdRunner) Option {
	return func(r *Runner) { r.runCmd = run }
}

// NewRunner creates a sandbox runner for the given image and per-run
// deadline.
func NewRunner(image string, timeout time.Duration, opts ...Option) *Runner {
	r := &Runner{
		image:    image,
		timeout:  timeout,
		security: DefaultSecurityOptions(),
		runCmd:   exec.CommandContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Available reports whether the docker substrate and the sandbox image
// are usable. Total unavailability is an operational error for callers,
// never a rejection verdict.
func (r *Runner) Available(ctx context.Context) error {
	if out, err := r.runCmd(ctx, "docker", "version", "--format", "{{.Server.Version}}").CombinedOutput(); err != nil {
		return fmt.Errorf("docker daemon unavailable: %v (%s)", err, bytes.TrimSpace(out))
	}
	if out, err := r.runCmd(ctx, "docker", "image", "inspect", r.image).CombinedOutput(); err != nil {
		return fmt.Errorf("sandbox image %s not found: %v (%s)", r.image, err, bytes.TrimSpace(out))
	}
	return nil
}

// Run executes the candidate package's verification inside an isolated
// container. The package directory is mounted read-only; outputDir, if
// non-empty, is mounted read-write at /output. Pass requires both exit
// code 0 and the success marker; any disagreement between the two is an
// ambiguous-result failure. Teardown is guaranteed on every exit path
// and logs are captured before it.
func (r *Runner) Run(ctx context.Context, packageDir, outputDir string) Result {
	name := "skillforge-sbx-" + uuid.NewString()[:8]

	args := []string{"run", "--rm", "--name", name}
	args = append(args, r.security.ToDockerArgs()...)
	args = append(args, "-v", packageDir+":/skill:ro")
	if outputDir != "" {
		args = append(args, "-v", outputDir+":/output:rw")
	}
	args = append(args, r.image, "skillforge", "harness", "/skill")

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// Teardown runs unconditionally: --rm handles the normal path, the
	// forced removal covers kills and daemon hiccups.
	defer r.teardown(name)

	var stdout, stderr bytes.Buffer
	cmd := r.runCmd(runCtx, "docker", args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	klog.V(2).Infof("sandbox %s: docker %v", name, args)

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	logs := stdout.String()
	if stderr.Len() > 0 {
		logs += "\n" + stderr.String()
	}

	metrics := Metrics{ExitCode: -1, Duration: duration}
	if cmd.ProcessState != nil {
		metrics.ExitCode = cmd.ProcessState.ExitCode()
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		metrics.TimedOut = true
		klog.Warningf("sandbox %s: killed after %s deadline", name, r.timeout)
		return Result{Reason: ReasonTimeout, Logs: logs, Metrics: metrics}
	}

	verdict := parseMarkers(logs)

	if err == nil && metrics.ExitCode == 0 && verdict.success() {
		return Result{Passed: true, Logs: logs, Metrics: metrics}
	}

	reason := ReasonAmbiguous
	switch {
	case verdict.failSeen && metrics.ExitCode != 0:
		// Both signals agree on failure; report the harness reason.
		reason = verdict.failReason
		if reason == "" {
			reason = ReasonVerifyException
		}
	case verdict.success() && metrics.ExitCode != 0:
		// Marker says pass, exit code disagrees.
		reason = ReasonAmbiguous
	case metrics.ExitCode == 0 && !verdict.success():
		// Exit code says pass, marker missing or contradictory.
		reason = ReasonAmbiguous
	}

	klog.V(2).Infof("sandbox %s: failed reason=%s exit=%d", name, reason, metrics.ExitCode)
	return Result{Reason: reason, Logs: logs, Metrics: metrics}
}

// teardown force-removes the container. Best effort: the container is
// usually gone already via --rm.
func (r *Runner) teardown(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if out, err := r.runCmd(ctx, "docker", "rm", "-f", name).CombinedOutput(); err != nil {
		klog.V(4).Infof("sandbox teardown %s: %v (%s)", name, err, bytes.TrimSpace(out))
	}
}
