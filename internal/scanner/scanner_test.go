package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanSource = `def action(text, format = "upper"):
    if format == "upper":
        return text.upper()
    return text.lower()

def verify():
    if action("hi") != "HI":
        return False
    return True
`

func TestCheckCleanSourcePasses(t *testing.T) {
	result := New().Check(cleanSource)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Violations)
}

func TestCheckIsIdempotent(t *testing.T) {
	s := New()
	first := s.Check(cleanSource)
	second := s.Check(cleanSource)
	assert.Equal(t, first, second)
}

func TestCheckSyntaxErrorIsSoleViolation(t *testing.T) {
	result := New().Check("def broken(:\n")
	require.False(t, result.Passed)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, CategorySyntaxError, result.Violations[0].Category)
}

func TestCheckForbiddenCalls(t *testing.T) {
	sources := map[string]string{
		"eval":       "def action():\n    return eval(\"1+1\")\n",
		"exec":       "def action(code):\n    return exec(code)\n",
		"getattr":    "def action(obj):\n    return getattr(obj, \"x\")\n",
		"open":       "def action(path):\n    return open(path)\n",
		"breakpoint": "def action():\n    breakpoint()\n    return None\n",
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			result := New().Check(src)
			require.False(t, result.Passed)
			require.NotEmpty(t, result.Violations)
			assert.Equal(t, CategoryDisallowedCall, result.Violations[0].Category)
			assert.Contains(t, result.Violations[0].Detail, name)
		})
	}
}

func TestCheckForbiddenCallViaAttribute(t *testing.T) {
	result := New().Check("def action(mod):\n    return mod.eval(\"x\")\n")
	require.False(t, result.Passed)
	assert.Equal(t, CategoryDisallowedCall, result.Violations[0].Category)
}

func TestCheckForbiddenAttributes(t *testing.T) {
	result := New().Check("def action(x):\n    return x.__subclasses__\n")
	require.False(t, result.Passed)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, CategoryDisallowedAttribute, result.Violations[0].Category)
	assert.Contains(t, result.Violations[0].Detail, "__subclasses__")
}

func TestCheckDisallowedImport(t *testing.T) {
	result := New().Check("load(\"socket\", \"connect\")\n\ndef action():\n    return None\n")
	require.False(t, result.Passed)
	assert.Equal(t, CategoryDisallowedImport, result.Violations[0].Category)
}

func TestCheckAllowedImport(t *testing.T) {
	result := New().Check("load(\"json\", \"decode\")\n\ndef action(s):\n    return decode(s)\n")
	assert.True(t, result.Passed)
}

func TestCheckAllowedImportWithSubmodule(t *testing.T) {
	result := New().Check("load(\"urllib.parse\", \"quote\")\n\ndef action(s):\n    return quote(s)\n")
	assert.True(t, result.Passed)
}

func TestCheckSuspiciousPatterns(t *testing.T) {
	sources := map[string]string{
		"traversal": "def action():\n    return \"../secret\"\n",
		"etc":       "def action():\n    return \"/etc/passwd\"\n",
		"proc":      "def action():\n    return \"/proc/self/environ\"\n",
		"home":      "def action():\n    return \"~/private\"\n",
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			result := New().Check(src)
			require.False(t, result.Passed)
			assert.Equal(t, CategorySuspiciousPattern, result.Violations[0].Category)
		})
	}
}

func TestCheckPatternScanDoesNotShortCircuit(t *testing.T) {
	// A suspicious literal plus a forbidden call: both must be reported.
	src := "def action():\n    return eval(\"/etc/passwd\")\n"
	result := New().Check(src)
	require.False(t, result.Passed)
	require.Len(t, result.Violations, 2)
	assert.Equal(t, CategorySuspiciousPattern, result.Violations[0].Category)
	assert.Equal(t, CategoryDisallowedCall, result.Violations[1].Category)
}

func TestCheckNeverPanicsOnMalformedInput(t *testing.T) {
	for _, src := range []string{"", "\x00\x01\x02", "))((", "def f(:"} {
		result := New().Check(src)
		if src == "" {
			assert.True(t, result.Passed)
			continue
		}
		assert.False(t, result.Passed)
		assert.NotEmpty(t, result.Violations)
	}
}
