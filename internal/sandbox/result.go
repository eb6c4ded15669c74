package sandbox

import "time"

// Failure reason codes for sandbox verification.
const (
	ReasonMissingEntrypoint = "missing-entrypoint"
	ReasonVerifyFalse       = "verification-false"
	ReasonVerifyNone        = "verification-none"
	ReasonVerifyTruthy      = "verification-truthy-not-true"
	ReasonVerifyException   = "verification-exception"
	ReasonAmbiguous         = "ambiguous-result"
	ReasonTimeout           = "timeout"
)

// Metrics captures the observable execution facts of one sandbox run.
type Metrics struct {
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out,omitempty"`
}

// Result is the outcome of one isolated verification attempt. A failed
// result carries the reason code; Logs are always captured before the
// container is torn down.
type Result struct {
	Passed  bool    `json:"passed"`
	Reason  string  `json:"reason,omitempty"`
	Logs    string  `json:"logs,omitempty"`
	Metrics Metrics `json:"metrics"`
}
