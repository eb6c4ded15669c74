package evalgate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchExact(t *testing.T) {
	assert.True(t, matchExpected(Expected{Type: ExpectExact, Value: "HI"}, "HI", "", 1))
	assert.False(t, matchExpected(Expected{Type: ExpectExact, Value: "HI"}, "hi", "", 1))

	// Missing type defaults to exact.
	assert.True(t, matchExpected(Expected{Value: "HI"}, "HI", "", 1))

	// Integer results and JSON-decoded numbers compare equal.
	assert.True(t, matchExpected(Expected{Type: ExpectExact, Value: float64(3)}, int64(3), "", 1))
}

func TestMatchExactFailsOnError(t *testing.T) {
	assert.False(t, matchExpected(Expected{Type: ExpectExact, Value: "HI"}, nil, "boom", 1))
}

func TestMatchContainsSubstring(t *testing.T) {
	exp := Expected{Type: ExpectContains, Substring: "ell"}
	assert.True(t, matchExpected(exp, "hello", "", 1))
	assert.False(t, matchExpected(exp, "world", "", 1))
	assert.False(t, matchExpected(exp, int64(7), "", 1))
}

func TestMatchContainsUnordered(t *testing.T) {
	exp := Expected{Type: ExpectContains, Values: []any{"b", "a"}}
	assert.True(t, matchExpected(exp, []any{"a", "c", "b"}, "", 1))
	assert.False(t, matchExpected(exp, []any{"a", "c"}, "", 1))
}

func TestMatchContainsOrdered(t *testing.T) {
	exp := Expected{Type: ExpectContains, Values: []any{"a", "b"}, Ordered: true}
	assert.True(t, matchExpected(exp, []any{"a", "x", "b"}, "", 1))
	assert.False(t, matchExpected(exp, []any{"b", "x", "a"}, "", 1))
}

func TestMatchContainsEmptyDescriptorFails(t *testing.T) {
	assert.False(t, matchExpected(Expected{Type: ExpectContains}, []any{"a"}, "", 1))
}

func TestMatchPattern(t *testing.T) {
	exp := Expected{Type: ExpectPattern, Pattern: `^\d{4}-\d{2}-\d{2}$`}
	assert.True(t, matchExpected(exp, "2026-08-29", "", 1))
	assert.False(t, matchExpected(exp, "yesterday", "", 1))

	bad := Expected{Type: ExpectPattern, Pattern: "("}
	assert.False(t, matchExpected(bad, "anything", "", 1))
}

func TestMatchSchema(t *testing.T) {
	exp := Expected{Type: ExpectSchema, Schema: map[string]any{
		"type":     "object",
		"required": []any{"count"},
		"properties": map[string]any{
			"count": map[string]any{"type": "integer"},
		},
	}}
	assert.True(t, matchExpected(exp, map[string]any{"count": int64(3)}, "", 1))
	assert.False(t, matchExpected(exp, map[string]any{"count": "three"}, "", 1))
	assert.False(t, matchExpected(Expected{Type: ExpectSchema}, map[string]any{}, "", 1))
}

func TestMatchNoForbiddenPatterns(t *testing.T) {
	exp := Expected{Type: ExpectNoForbidden, Forbidden: []string{"/etc/", "secret"}}
	assert.True(t, matchExpected(exp, "all clear", "", 1))
	assert.False(t, matchExpected(exp, "leaked /etc/passwd", "", 1))
}

func TestMatchTimeoutOrError(t *testing.T) {
	exp := Expected{Type: ExpectTimeoutOrErr, MaxDurationMS: 100}
	assert.True(t, matchExpected(exp, nil, "cancelled", 5))
	assert.True(t, matchExpected(exp, "done", "", 150))
	assert.False(t, matchExpected(exp, "done", "", 5))
}

func TestMatchUnknownTypeFailsClosed(t *testing.T) {
	assert.False(t, matchExpected(Expected{Type: "telepathy"}, "anything", "", 1))
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "plain", stringify("plain"))
	assert.Equal(t, "", stringify(nil))
	assert.Equal(t, `[1,2]`, stringify([]any{int64(1), int64(2)}))
}
