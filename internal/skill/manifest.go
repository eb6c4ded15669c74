// Package skill defines the skill package model: manifest contract,
// on-disk package layout, content digests, and the production loader.
package skill

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Filesystem permission levels a skill may declare.
const (
	FilesystemNone         = "none"
	FilesystemReadWorkdir  = "read_workdir"
	FilesystemWriteWorkdir = "write_workdir"
)

var (
	namePattern    = regexp.MustCompile(`^[a-z][a-z0-9_]{2,63}$`)
	versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
)

// Permissions declares what a skill is allowed to touch at runtime.
// At MVP scope Network and Subprocess must both be false.
type Permissions struct {
	Filesystem string `json:"filesystem"`
	Network    bool   `json:"network"`
	Subprocess bool   `json:"subprocess"`
}

// Dependency is a declared package dependency of a skill.
type Dependency struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Manifest is the metadata contract every skill ships as skill.json.
type Manifest struct {
	Name          string         `json:"name"`
	Version       string         `json:"version"`
	Description   string         `json:"description"`
	Author        string         `json:"author,omitempty"`
	InputsSchema  map[string]any `json:"inputs_schema"`
	OutputsSchema map[string]any `json:"outputs_schema"`
	Permissions   Permissions    `json:"permissions"`
	Dependencies  []Dependency   `json:"dependencies"`
	Tags          []string       `json:"tags,omitempty"`
}

// ValidateOptions controls manifest acceptance.
type ValidateOptions struct {
	// AllowElevated permits network/subprocess permissions. Off by default;
	// the MVP pipeline rejects elevated manifests outright.
	AllowElevated bool
}

// Validate checks a manifest against the contract and returns every
// violation found. An empty slice means the manifest is acceptable.
func (m *Manifest) Validate(opts ValidateOptions) []string {
	var errs []string

	if !namePattern.MatchString(m.Name) {
		errs = append(errs, fmt.Sprintf("name %q does not match %s", m.Name, namePattern))
	}
	if !versionPattern.MatchString(m.Version) {
		errs = append(errs, fmt.Sprintf("version %q does not match %s", m.Version, versionPattern))
	}
	if n := len(m.Description); n < 10 || n > 500 {
		errs = append(errs, fmt.Sprintf("description length %d outside 10-500", n))
	}

	errs = append(errs, m.validateSchemas()...)

	switch m.Permissions.Filesystem {
	case FilesystemNone, FilesystemReadWorkdir, FilesystemWriteWorkdir:
	default:
		errs = append(errs, fmt.Sprintf("permissions.filesystem %q is not one of none|read_workdir|write_workdir", m.Permissions.Filesystem))
	}

	if !opts.AllowElevated {
		if m.Permissions.Network {
			errs = append(errs, "permissions.network must be false")
		}
		if m.Permissions.Subprocess {
			errs = append(errs, "permissions.subprocess must be false")
		}
	}

	return errs
}

// validateSchemas checks the declared I/O schemas: inputs must be an
// object schema with properties, outputs must declare a type, and both
// must compile as JSON Schema.
func (m *Manifest) validateSchemas() []string {
	var errs []string

	if m.InputsSchema == nil {
		errs = append(errs, "inputs_schema is required")
	} else {
		if t, _ := m.InputsSchema["type"].(string); t != "object" {
			errs = append(errs, `inputs_schema.type must be "object"`)
		}
		if _, ok := m.InputsSchema["properties"]; !ok {
			errs = append(errs, "inputs_schema.properties is required")
		}
		if err := compileSchema(m.InputsSchema); err != nil {
			errs = append(errs, fmt.Sprintf("inputs_schema is not a valid schema: %v", err))
		}
	}

	if m.OutputsSchema == nil {
		errs = append(errs, "outputs_schema is required")
	} else {
		if t, _ := m.OutputsSchema["type"].(string); t == "" {
			errs = append(errs, "outputs_schema.type is required")
		}
		if err := compileSchema(m.OutputsSchema); err != nil {
			errs = append(errs, fmt.Sprintf("outputs_schema is not a valid schema: %v", err))
		}
	}

	return errs
}

func compileSchema(schema map[string]any) error {
	raw, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	_, err = jsonschema.CompileString("manifest://schema", string(raw))
	return err
}

// ParseManifest decodes and returns a manifest from raw JSON bytes.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return &m, nil
}
