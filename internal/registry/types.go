package registry

import (
	"errors"
	"time"

	"github.com/openclaw/skillforge/internal/evalgate"
	"github.com/openclaw/skillforge/internal/sandbox"
	"github.com/openclaw/skillforge/internal/scanner"
)

// Lifecycle statuses of a skill version.
const (
	StatusStaging  = "staging"
	StatusProd     = "prod"
	StatusDisabled = "disabled"
	StatusRejected = "rejected"
)

// Sentinel errors for registry operations.
var (
	ErrVersionNotFound  = errors.New("version not found")
	ErrDuplicateVersion = errors.New("duplicate version")
	ErrStalePointer     = errors.New("stale pointer: registry changed underneath, reload and retry")
	ErrHashMismatch     = errors.New("content hash mismatch")
	ErrNotStaging       = errors.New("version is not the current staging version")
	ErrRejectedVersion  = errors.New("version is terminally rejected")
)

// ValidationRecord is the full audit record of how a version was
// validated: static scan, sandbox verification, and promotion gates.
type ValidationRecord struct {
	Scan           *scanner.Result                `json:"scan,omitempty"`
	Sandbox        *sandbox.Result                `json:"sandbox,omitempty"`
	SandboxSkipped bool                           `json:"sandbox_skipped,omitempty"`
	Gates          map[string]evalgate.GateReport `json:"gates,omitempty"`
}

// SkillVersion is one immutable version of a skill. Versions are never
// removed from an entry, only transitioned between statuses.
type SkillVersion struct {
	Version        string           `json:"version"`
	CodeHash       string           `json:"code_hash"`
	ManifestHash   string           `json:"manifest_hash"`
	CreatedAt      time.Time        `json:"created_at"`
	Status         string           `json:"status"`
	Validation     ValidationRecord `json:"validation"`
	PromotedAt     *time.Time       `json:"promoted_at,omitempty"`
	DisabledAt     *time.Time       `json:"disabled_at,omitempty"`
	DisabledReason string           `json:"disabled_reason,omitempty"`
	RejectedReason string           `json:"rejected_reason,omitempty"`
}

// SkillEntry tracks every version of one skill plus the prod and
// staging pointers. At most one of each pointer exists at a time.
type SkillEntry struct {
	Name           string                   `json:"name"`
	CurrentProd    string                   `json:"current_prod,omitempty"`
	CurrentStaging string                   `json:"current_staging,omitempty"`
	Versions       map[string]*SkillVersion `json:"versions"`
}

// Snapshot is the whole persisted registry state. Revision is the
// compare-and-swap tag: a save only succeeds if the on-disk revision
// still matches the one that was loaded.
type Snapshot struct {
	Skills    map[string]*SkillEntry `json:"skills"`
	Revision  int64                  `json:"revision"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// NewSnapshot returns an empty registry snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{Skills: make(map[string]*SkillEntry)}
}

func (s *Snapshot) entry(name string) *SkillEntry {
	if e, ok := s.Skills[name]; ok {
		return e
	}
	e := &SkillEntry{Name: name, Versions: make(map[string]*SkillVersion)}
	s.Skills[name] = e
	return e
}
