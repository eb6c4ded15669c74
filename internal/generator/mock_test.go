package generator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/skillforge/internal/sandbox"
	"github.com/openclaw/skillforge/internal/scanner"
	"github.com/openclaw/skillforge/internal/skill"
)

func TestGetMockProvider(t *testing.T) {
	p, err := Get(MockName)
	require.NoError(t, err)
	assert.Equal(t, MockName, p.Name())
}

func TestGetUnknownProvider(t *testing.T) {
	_, err := Get("gpt9000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestListIncludesMock(t *testing.T) {
	assert.Contains(t, List(), MockName)
}

func TestMockGenerateTextEcho(t *testing.T) {
	pkg, err := (&Mock{}).GenerateSkill("convert text to uppercase", "")
	require.NoError(t, err)
	assert.Equal(t, "text_echo", pkg.Name)
	assert.Equal(t, "text_echo", pkg.Manifest.Name)
}

func TestMockGenerateFilename(t *testing.T) {
	pkg, err := (&Mock{}).GenerateSkill("sanitize a filename", "")
	require.NoError(t, err)
	assert.Equal(t, "safe_filename_normalize", pkg.Name)
}

func TestMockUnknownCapability(t *testing.T) {
	_, err := (&Mock{}).GenerateSkill("fold proteins", "")
	assert.Error(t, err)
}

func TestMockOutputSurvivesOwnPipeline(t *testing.T) {
	// Everything the mock emits must pass the scan, validate its
	// manifest, and verify successfully.
	for _, capability := range []string{"echo text", "normalize filename"} {
		pkg, err := (&Mock{}).GenerateSkill(capability, "")
		require.NoError(t, err, capability)

		result := scanner.New().Check(pkg.Code)
		assert.True(t, result.Passed, "%s: %v", capability, result.Violations)

		assert.Empty(t, pkg.Manifest.Validate(skill.ValidateOptions{}), capability)

		dir, err := pkg.WriteDir(t.TempDir(), pkg.Manifest.Version)
		require.NoError(t, err)
		verdict := sandbox.Verify(dir, 5*time.Second)
		assert.True(t, verdict.OK, "%s: %s %s", capability, verdict.Reason, verdict.Detail)
	}
}
