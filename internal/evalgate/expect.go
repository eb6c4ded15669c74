package evalgate

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Expected matcher types.
const (
	ExpectExact        = "exact"
	ExpectContains     = "contains"
	ExpectPattern      = "pattern"
	ExpectSchema       = "schema"
	ExpectNoForbidden  = "no_forbidden_patterns"
	ExpectTimeoutOrErr = "timeout_or_error"
)

// matchExpected evaluates an action outcome against the expected
// descriptor. result is the plain-Go form of the skill's return value,
// errText is non-empty when the action erred or was cancelled.
func matchExpected(exp Expected, result any, errText string, durationMS float64) bool {
	expType := exp.Type
	if expType == "" {
		expType = ExpectExact
	}

	if expType == ExpectTimeoutOrErr {
		if errText != "" {
			return true
		}
		max := exp.MaxDurationMS
		if max == 0 {
			max = defaultCaseTimeoutMS
		}
		return durationMS >= float64(max)
	}

	// Every other matcher requires a result to inspect.
	if errText != "" {
		return false
	}

	switch expType {
	case ExpectExact:
		return reflect.DeepEqual(normalize(result), normalize(exp.Value))

	case ExpectContains:
		return matchContains(exp, result)

	case ExpectPattern:
		re, err := regexp.Compile(exp.Pattern)
		if err != nil {
			return false
		}
		return re.MatchString(stringify(result))

	case ExpectSchema:
		return matchSchema(exp.Schema, result)

	case ExpectNoForbidden:
		text := stringify(result)
		for _, p := range exp.Forbidden {
			if strings.Contains(text, p) {
				return false
			}
		}
		return true

	default:
		// Unknown matcher types fail closed.
		return false
	}
}

// matchContains handles substring containment for string results and
// ordered/unordered value containment for list results. Non-list
// results fall back to string containment of each value's text form.
func matchContains(exp Expected, result any) bool {
	if exp.Substring != "" {
		s, ok := result.(string)
		return ok && strings.Contains(s, exp.Substring)
	}
	if len(exp.Values) == 0 {
		return false
	}

	if list, ok := result.([]any); ok {
		want := make([]any, len(exp.Values))
		for i, v := range exp.Values {
			want[i] = normalize(v)
		}
		got := normalize(list).([]any)

		if exp.Ordered {
			// Subsequence containment.
			i := 0
			for _, g := range got {
				if i < len(want) && reflect.DeepEqual(g, want[i]) {
					i++
				}
			}
			return i == len(want)
		}
		for _, w := range want {
			found := false
			for _, g := range got {
				if reflect.DeepEqual(g, w) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}

	text := stringify(result)
	for _, v := range exp.Values {
		if !strings.Contains(text, stringify(v)) {
			return false
		}
	}
	return true
}

func matchSchema(schema map[string]any, result any) bool {
	if schema == nil {
		return false
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return false
	}
	compiled, err := jsonschema.CompileString("case://expected", string(raw))
	if err != nil {
		return false
	}
	// Round-trip the result through JSON so schema validation sees the
	// same value shapes a decoded document would have.
	encoded, err := json.Marshal(result)
	if err != nil {
		return false
	}
	var doc any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return false
	}
	return compiled.Validate(doc) == nil
}

// stringify renders a result for textual matching: strings stay as-is,
// everything else becomes its JSON form.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
