// Package generator defines the pluggable skill generation backend: a
// single-operation contract the pipeline consumes without caring how a
// candidate was synthesized. Mock and real providers are interchangeable
// variants behind the same interface.
package generator

import (
	"github.com/openclaw/skillforge/internal/skill"
)

// Provider produces a candidate skill package for a capability request.
type Provider interface {
	// Name returns the provider's registry name.
	Name() string

	// GenerateSkill produces a candidate package for the described
	// capability. context carries whatever surrounding detail the
	// requester captured. The package is untrusted output.
	GenerateSkill(capability, context string) (*skill.Package, error)
}
