// Package registry is the durable, versioned store of skill lifecycle
// state: per-skill version history, staging/prod pointers, validation
// records, and the append-only audit trail. Entries are mutated only
// through Registry operations; the snapshot is persisted whole, with a
// revision tag acting as a compare-and-swap guard.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/openclaw/skillforge/internal/evalgate"
)

// Registry manages the persisted snapshot at a fixed path. Mutations on
// the same skill name are serialized through per-skill locks; mutations
// on distinct skills proceed independently and rely on the revision CAS
// to detect lost updates.
type Registry struct {
	path  string
	audit *AuditLogger

	mu      sync.Mutex
	skillMu map[string]*sync.Mutex

	// saveMu serializes the load-compare-write in save so the revision
	// check and the write are one atomic step for all callers.
	saveMu sync.Mutex
}

// New creates a registry backed by the snapshot file at path. audit may
// be nil.
func New(path string, audit *AuditLogger) *Registry {
	return &Registry{
		path:    path,
		audit:   audit,
		skillMu: make(map[string]*sync.Mutex),
	}
}

// Audit exposes the audit trail so pipeline stages can record their own
// events on the same trail.
func (r *Registry) Audit() *AuditLogger {
	return r.audit
}

func (r *Registry) lockSkill(name string) func() {
	r.mu.Lock()
	m, ok := r.skillMu[name]
	if !ok {
		m = &sync.Mutex{}
		r.skillMu[name] = m
	}
	r.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Load reads the current snapshot. A missing file is an empty registry;
// a corrupt file is an operational error, not a verdict.
func (r *Registry) Load() (*Snapshot, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("corrupt registry snapshot %s: %w", r.path, err)
	}
	if snap.Skills == nil {
		snap.Skills = make(map[string]*SkillEntry)
	}
	return &snap, nil
}

// save persists the snapshot if and only if the on-disk revision still
// matches the revision the snapshot was loaded at. The compare and the
// write happen under saveMu, so concurrent mutators on distinct skills
// cannot both pass the check; the write itself is atomic (temp file +
// rename).
func (r *Registry) save(snap *Snapshot) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	current, err := r.Load()
	if err != nil {
		return err
	}
	if current.Revision != snap.Revision {
		return fmt.Errorf("revision %d on disk, had %d: %w", current.Revision, snap.Revision, ErrStalePointer)
	}

	snap.Revision++
	snap.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("creating registry dir: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing registry snapshot: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replacing registry snapshot: %w", err)
	}
	return nil
}

// AddStaging records a freshly validated candidate version in staging
// and moves the staging pointer to it. Fails if the version already
// exists for the skill.
func (r *Registry) AddStaging(name, version, codeHash, manifestHash string, validation ValidationRecord) (err error) {
	unlock := r.lockSkill(name)
	defer unlock()

	defer func() {
		r.audit.Log(OpStaging, F("skill", name), F("version", version), F("outcome", outcome(err)))
	}()

	snap, err := r.Load()
	if err != nil {
		return err
	}

	entry := snap.entry(name)
	if _, exists := entry.Versions[version]; exists {
		return fmt.Errorf("skill %s version %s: %w", name, version, ErrDuplicateVersion)
	}

	entry.Versions[version] = &SkillVersion{
		Version:      version,
		CodeHash:     codeHash,
		ManifestHash: manifestHash,
		CreatedAt:    time.Now().UTC(),
		Status:       StatusStaging,
		Validation:   validation,
	}
	entry.CurrentStaging = version

	return r.save(snap)
}

// Promote transitions the current staging version to prod, stores the
// gate results on its validation record, and displaces any previously
// active prod version to disabled. The version must exist, be in
// staging status, and be the current staging pointer.
func (r *Registry) Promote(name, version string, gates map[string]evalgate.GateReport) (err error) {
	unlock := r.lockSkill(name)
	defer unlock()

	defer func() {
		r.audit.Log(OpPromote, F("skill", name), F("version", version), F("outcome", outcome(err)))
	}()

	snap, err := r.Load()
	if err != nil {
		return err
	}

	entry, ok := snap.Skills[name]
	if !ok {
		return fmt.Errorf("skill %s: %w", name, ErrVersionNotFound)
	}
	sv, ok := entry.Versions[version]
	if !ok {
		return fmt.Errorf("skill %s version %s: %w", name, version, ErrVersionNotFound)
	}
	if sv.Status != StatusStaging || entry.CurrentStaging != version {
		return fmt.Errorf("skill %s version %s has status %s: %w", name, version, sv.Status, ErrNotStaging)
	}

	if old := entry.CurrentProd; old != "" && old != version {
		if prev, ok := entry.Versions[old]; ok {
			now := time.Now().UTC()
			prev.Status = StatusDisabled
			prev.DisabledAt = &now
			prev.DisabledReason = fmt.Sprintf("superseded by %s", version)
		}
	}

	now := time.Now().UTC()
	sv.Status = StatusProd
	sv.PromotedAt = &now
	sv.Validation.Gates = gates
	entry.CurrentProd = version
	entry.CurrentStaging = ""

	return r.save(snap)
}

// Reject marks a staging version as terminally rejected. Rejection is
// final for the attempt: no further transitions exist from rejected.
func (r *Registry) Reject(name, version, reason string) (err error) {
	unlock := r.lockSkill(name)
	defer unlock()

	defer func() {
		r.audit.Log(OpReject, F("skill", name), F("version", version),
			F("reason", reason), F("outcome", outcome(err)))
	}()

	snap, err := r.Load()
	if err != nil {
		return err
	}

	entry, ok := snap.Skills[name]
	if !ok {
		return fmt.Errorf("skill %s: %w", name, ErrVersionNotFound)
	}
	sv, ok := entry.Versions[version]
	if !ok {
		return fmt.Errorf("skill %s version %s: %w", name, version, ErrVersionNotFound)
	}
	if sv.Status != StatusStaging {
		return fmt.Errorf("skill %s version %s has status %s: %w", name, version, sv.Status, ErrNotStaging)
	}

	sv.Status = StatusRejected
	sv.RejectedReason = reason
	if entry.CurrentStaging == version {
		entry.CurrentStaging = ""
	}

	return r.save(snap)
}

// RecordGates stores gate results on a version's validation record
// without changing its status. Used when gates fail and the candidate
// is kept with full per-case detail.
func (r *Registry) RecordGates(name, version string, gates map[string]evalgate.GateReport) (err error) {
	unlock := r.lockSkill(name)
	defer unlock()

	defer func() {
		r.audit.Log(OpGates, F("skill", name), F("version", version),
			F("gates", len(gates)), F("outcome", outcome(err)))
	}()

	snap, err := r.Load()
	if err != nil {
		return err
	}
	entry, ok := snap.Skills[name]
	if !ok {
		return fmt.Errorf("skill %s: %w", name, ErrVersionNotFound)
	}
	sv, ok := entry.Versions[version]
	if !ok {
		return fmt.Errorf("skill %s version %s: %w", name, version, ErrVersionNotFound)
	}
	sv.Validation.Gates = gates
	return r.save(snap)
}

// Rollback points prod back at targetVersion. The target must exist and
// must not be terminally rejected; rejected code never becomes active.
// The currently active prod version is disabled with the rollback
// recorded as its reason; the staging pointer is left untouched.
// Rolling back to the already-active version is a logged no-op.
func (r *Registry) Rollback(name, targetVersion string) (err error) {
	unlock := r.lockSkill(name)
	defer unlock()

	from := "none"
	defer func() {
		r.audit.Log(OpRollback, F("skill", name), F("from", from),
			F("to", targetVersion), F("outcome", outcome(err)))
	}()

	snap, err := r.Load()
	if err != nil {
		return err
	}

	entry, ok := snap.Skills[name]
	if !ok {
		return fmt.Errorf("skill %s: %w", name, ErrVersionNotFound)
	}
	if entry.CurrentProd != "" {
		from = entry.CurrentProd
	}

	target, ok := entry.Versions[targetVersion]
	if !ok {
		return fmt.Errorf("skill %s version %s: %w", name, targetVersion, ErrVersionNotFound)
	}
	if target.Status == StatusRejected {
		return fmt.Errorf("skill %s version %s: %w", name, targetVersion, ErrRejectedVersion)
	}

	if entry.CurrentProd == targetVersion {
		// Already active; succeed without touching state.
		return nil
	}

	if entry.CurrentProd != "" {
		if current, ok := entry.Versions[entry.CurrentProd]; ok {
			now := time.Now().UTC()
			current.Status = StatusDisabled
			current.DisabledAt = &now
			current.DisabledReason = fmt.Sprintf("rollback to %s", targetVersion)
			r.audit.Log(OpDisable, F("skill", name), F("version", entry.CurrentProd),
				F("reason", current.DisabledReason))
		}
	}

	target.Status = StatusProd
	entry.CurrentProd = targetVersion

	return r.save(snap)
}

// Entry returns the skill entry for name, or nil if unknown.
func (r *Registry) Entry(name string) (*SkillEntry, error) {
	snap, err := r.Load()
	if err != nil {
		return nil, err
	}
	return snap.Skills[name], nil
}

// List returns all skill names in the registry, sorted.
func (r *Registry) List() ([]string, error) {
	snap, err := r.Load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(snap.Skills))
	for name := range snap.Skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// CheckHashes compares freshly computed content digests against the
// digests stored when the version entered staging. A divergence means
// the package was tampered with between stages.
func (r *Registry) CheckHashes(name, version, codeHash, manifestHash string) error {
	snap, err := r.Load()
	if err != nil {
		return err
	}
	entry, ok := snap.Skills[name]
	if !ok {
		return fmt.Errorf("skill %s: %w", name, ErrVersionNotFound)
	}
	sv, ok := entry.Versions[version]
	if !ok {
		return fmt.Errorf("skill %s version %s: %w", name, version, ErrVersionNotFound)
	}
	if sv.CodeHash != codeHash {
		return fmt.Errorf("skill %s version %s code digest: %w", name, version, ErrHashMismatch)
	}
	if sv.ManifestHash != manifestHash {
		return fmt.Errorf("skill %s version %s manifest digest: %w", name, version, ErrHashMismatch)
	}
	return nil
}

func outcome(err error) string {
	if err != nil {
		klog.V(2).Infof("registry operation failed: %v", err)
		return "failed"
	}
	return "ok"
}
