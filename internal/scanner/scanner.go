// Package scanner implements the static policy scan run on every
// candidate skill before it is allowed anywhere near an execution
// environment. The scan is deterministic and pure: identical source
// always yields an identical result, and the scanner never fails with
// an error of its own.
package scanner

import (
	"fmt"
	"strings"

	"go.starlark.net/syntax"
)

// Violation categories.
const (
	CategorySuspiciousPattern    = "suspicious-pattern"
	CategorySyntaxError          = "syntax-error"
	CategoryDisallowedImport     = "disallowed-import"
	CategoryDisallowedCall       = "disallowed-call"
	CategoryDisallowedAttribute  = "disallowed-attribute"
)

// Violation is a single policy finding.
type Violation struct {
	Category string `json:"category"`
	Detail   string `json:"detail"`
}

// Result is the outcome of a policy scan. Passed is true iff the
// violation list is empty.
type Result struct {
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations"`
}

// Scanner performs the three-phase static check: raw-text pattern scan,
// structural parse, and syntax-tree walk against the policy lists.
type Scanner struct{}

// New returns a policy scanner.
func New() *Scanner {
	return &Scanner{}
}

// Check scans candidate source and reports every violation found.
// A parse failure yields a sole syntax-error violation; the pattern scan
// that precedes parsing never short-circuits the later phases.
func (s *Scanner) Check(source string) Result {
	violations := s.checkPatterns(source)

	file, err := syntax.Parse(CodeFilename, source, 0)
	if err != nil {
		return Result{
			Passed:     false,
			Violations: []Violation{{Category: CategorySyntaxError, Detail: err.Error()}},
		}
	}

	for _, stmt := range file.Stmts {
		syntax.Walk(stmt, func(n syntax.Node) bool {
			switch node := n.(type) {
			case *syntax.LoadStmt:
				violations = append(violations, s.checkLoad(node)...)
			case *syntax.CallExpr:
				violations = append(violations, s.checkCall(node)...)
			case *syntax.DotExpr:
				violations = append(violations, s.checkAttribute(node)...)
			}
			return true
		})
	}

	return Result{Passed: len(violations) == 0, Violations: violations}
}

// CodeFilename is the name reported in parse diagnostics.
const CodeFilename = "skill.star"

func (s *Scanner) checkPatterns(source string) []Violation {
	var violations []Violation
	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(source) {
			violations = append(violations, Violation{
				Category: CategorySuspiciousPattern,
				Detail:   fmt.Sprintf("suspicious pattern detected: %s", pattern.String()),
			})
		}
	}
	return violations
}

func (s *Scanner) checkLoad(node *syntax.LoadStmt) []Violation {
	module, ok := node.Module.Value.(string)
	if !ok {
		return nil
	}
	// Top-level module name: "urllib.parse" -> "urllib".
	top := strings.SplitN(module, ".", 2)[0]
	top = strings.TrimSuffix(top, ".star")
	if !allowedModules[top] {
		return []Violation{{
			Category: CategoryDisallowedImport,
			Detail:   fmt.Sprintf("forbidden import: %s", module),
		}}
	}
	return nil
}

func (s *Scanner) checkCall(node *syntax.CallExpr) []Violation {
	var name string
	switch fn := node.Fn.(type) {
	case *syntax.Ident:
		name = fn.Name
	case *syntax.DotExpr:
		name = fn.Name.Name
	default:
		return nil
	}
	if forbiddenCalls[name] {
		return []Violation{{
			Category: CategoryDisallowedCall,
			Detail:   fmt.Sprintf("forbidden call: %s", name),
		}}
	}
	return nil
}

func (s *Scanner) checkAttribute(node *syntax.DotExpr) []Violation {
	if forbiddenAttributes[node.Name.Name] {
		return []Violation{{
			Category: CategoryDisallowedAttribute,
			Detail:   fmt.Sprintf("forbidden attribute access: %s", node.Name.Name),
		}}
	}
	return nil
}
