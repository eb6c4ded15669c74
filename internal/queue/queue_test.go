package queue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	q, err := Load(filepath.Join(t.TempDir(), "queue.json"))
	require.NoError(t, err)
	assert.Empty(t, q.Items)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	require.NoError(t, os.WriteFile(path, []byte("[oops"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	q := &Queue{Items: []*Item{NewItem("echo text", "nightly run")}}
	require.NoError(t, Save(path, q))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	item := loaded.Items[0]
	assert.Equal(t, "echo text", item.Capability)
	assert.Equal(t, "nightly run", item.Context)
	assert.Equal(t, StatusPending, item.Status)
	assert.Equal(t, 1, item.Occurrences)
	assert.NotEmpty(t, item.ID)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestPending(t *testing.T) {
	q := &Queue{Items: []*Item{
		{ID: "a", Status: StatusPending},
		{ID: "b", Status: StatusCompleted},
		{ID: "c", Status: StatusPending},
		{ID: "d", Status: StatusFailed},
	}}
	pending := q.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].ID)
	assert.Equal(t, "c", pending[1].ID)
}
