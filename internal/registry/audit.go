package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"
)

// Audit operation tags.
const (
	OpGenerate      = "GENERATE"
	OpScan          = "SCAN"
	OpManifest      = "MANIFEST_INVALID"
	OpStaging       = "STAGING"
	OpSandbox       = "SANDBOX"
	OpPromote       = "PROMOTE"
	OpPromoteFailed = "PROMOTE_FAILED"
	OpGates         = "GATES"
	OpReject        = "REJECT"
	OpRollback      = "ROLLBACK"
	OpDisable       = "DISABLE"
)

// Field is one key=value pair of an audit record. Order is preserved.
type Field struct {
	Key   string
	Value any
}

// F builds an audit field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// AuditLogger appends structured lifecycle records to an append-only
// trail, one line per event:
//
//	2026-02-01T10:00:00Z [ROLLBACK] skill=text_echo from=1.0.0 to=0.9.0
//
// A nil logger is valid and discards events; callers never have to
// guard their audit calls.
type AuditLogger struct {
	mu   sync.Mutex
	path string
}

// NewAuditLogger creates an audit logger writing to path.
func NewAuditLogger(path string) *AuditLogger {
	return &AuditLogger{path: path}
}

// Log appends one audit record. Failures to write are surfaced to the
// operational log but never interrupt the calling operation: the trail
// is best effort only in the face of a broken disk, never skipped by
// control flow.
func (l *AuditLogger) Log(op string, fields ...Field) {
	if l == nil {
		return
	}

	ts := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	var b strings.Builder
	b.WriteString(ts)
	b.WriteString(" [")
	b.WriteString(op)
	b.WriteString("]")
	for _, f := range fields {
		v := fmt.Sprintf("%v", f.Value)
		if strings.ContainsAny(v, " \t") {
			v = fmt.Sprintf("%q", v)
		}
		b.WriteString(" ")
		b.WriteString(f.Key)
		b.WriteString("=")
		b.WriteString(v)
	}
	b.WriteString("\n")

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		klog.Errorf("audit: creating log dir: %v", err)
		return
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		klog.Errorf("audit: opening %s: %v", l.path, err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(b.String()); err != nil {
		klog.Errorf("audit: writing %s: %v", l.path, err)
	}
}
