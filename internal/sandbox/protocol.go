package sandbox

import (
	"fmt"
	"strings"
)

// The harness reports its verdict over a versioned one-line protocol on
// stdout. The outer runner requires both this marker and a zero exit
// code; neither signal is trusted alone.
const (
	markerPrefix  = "SKILLFORGE-VERIFY/1"
	markerPass    = markerPrefix + " PASS"
	markerFailPfx = markerPrefix + " FAIL"
)

// SuccessMarker returns the canonical pass line.
func SuccessMarker() string {
	return markerPass
}

// FailureMarker returns the canonical fail line for a reason code.
func FailureMarker(reason string) string {
	return fmt.Sprintf("%s %s", markerFailPfx, reason)
}

// markerVerdict is the parsed state of the marker protocol in a log
// stream.
type markerVerdict struct {
	passSeen   bool
	failSeen   bool
	failReason string
}

// success reports whether the stream carries an unambiguous pass marker.
func (v markerVerdict) success() bool {
	return v.passSeen && !v.failSeen
}

// parseMarkers scans captured logs for protocol lines. Untrusted code
// shares the stream, so only exact marker lines count and a stream
// carrying both verdicts is never a success.
func parseMarkers(logs string) markerVerdict {
	var v markerVerdict
	for _, line := range strings.Split(logs, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case line == markerPass:
			v.passSeen = true
		case strings.HasPrefix(line, markerFailPfx):
			v.failSeen = true
			if v.failReason == "" {
				v.failReason = strings.TrimSpace(strings.TrimPrefix(line, markerFailPfx))
			}
		}
	}
	return v
}
