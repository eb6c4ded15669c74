package skill

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDirReadDirRoundTrip(t *testing.T) {
	root := t.TempDir()
	pkg := &Package{
		Name:     "text_echo",
		Code:     "def action(text):\n    return text\n",
		Manifest: validManifest(),
		Tests:    map[string]string{"cases.json": "[]"},
	}

	dir, err := pkg.WriteDir(root, "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "text_echo", "1.0.0"), dir)

	loaded, err := ReadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, pkg.Code, loaded.Code)
	assert.Equal(t, pkg.Manifest.Name, loaded.Manifest.Name)
	assert.Equal(t, pkg.Manifest.Version, loaded.Manifest.Version)

	data, err := os.ReadFile(filepath.Join(dir, "cases.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestReadDirMissing(t *testing.T) {
	_, err := ReadDir(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestCopyDirReplacesDestination(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, os.WriteFile(filepath.Join(src, CodeFile), []byte("def action():\n    return None\n"), 0o644))

	require.NoError(t, os.MkdirAll(dst, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "stale.txt"), []byte("old"), 0o644))

	require.NoError(t, CopyDir(src, dst))

	_, err := os.Stat(filepath.Join(dst, "stale.txt"))
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(filepath.Join(dst, CodeFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "def action")
}
