package evalgate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Expected describes the acceptable outcome of a case. Type selects the
// matcher; the remaining fields feed whichever matcher is selected.
type Expected struct {
	Type string `json:"type" yaml:"type"`

	// exact
	Value any `json:"value,omitempty" yaml:"value,omitempty"`

	// contains: a substring of a string result, or values that must all
	// be present (in order when Ordered is set).
	Substring string `json:"substring,omitempty" yaml:"substring,omitempty"`
	Values    []any  `json:"values,omitempty" yaml:"values,omitempty"`
	Ordered   bool   `json:"ordered,omitempty" yaml:"ordered,omitempty"`

	// pattern
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// schema
	Schema map[string]any `json:"schema,omitempty" yaml:"schema,omitempty"`

	// no_forbidden_patterns
	Forbidden []string `json:"forbidden,omitempty" yaml:"forbidden,omitempty"`

	// timeout_or_error
	MaxDurationMS int `json:"max_duration_ms,omitempty" yaml:"max_duration_ms,omitempty"`
}

// Case is a single gate evaluation case.
type Case struct {
	ID        string         `json:"id" yaml:"id"`
	Skill     string         `json:"skill" yaml:"skill"`
	Input     map[string]any `json:"input" yaml:"input"`
	Expected  Expected       `json:"expected" yaml:"expected"`
	TimeoutMS int            `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// defaultCaseTimeoutMS bounds a case when the case file does not.
const defaultCaseTimeoutMS = 5000

// LoadCases reads every case file under <evalDir>/<gate>/ and returns
// the ones addressed to skillName, in stable filename order. Case files
// may be JSON or YAML. A missing gate directory yields no cases.
func LoadCases(evalDir, gate, skillName string) ([]Case, error) {
	dir := filepath.Join(evalDir, gate)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading case dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".json", ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var cases []Case
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading case file %s: %w", path, err)
		}

		var c Case
		if filepath.Ext(name) == ".json" {
			err = json.Unmarshal(data, &c)
		} else {
			err = yaml.Unmarshal(data, &c)
		}
		if err != nil {
			return nil, fmt.Errorf("decoding case file %s: %w", path, err)
		}

		if c.Skill == skillName {
			cases = append(cases, c)
		}
	}
	return cases, nil
}
