package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *LocalArtifactStore {
	t.Helper()
	store, err := NewLocalArtifactStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestSaveAndLoad(t *testing.T) {
	store := newTestStore(t)

	content := []byte("%PDF-1.7 artifact")
	require.NoError(t, store.Save("dept-1/bill-1.pdf", content))

	loaded, err := store.Load("dept-1/bill-1.pdf")
	require.NoError(t, err)
	assert.Equal(t, content, loaded)
}

func TestSave_Overwrite(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save("ref.pdf", []byte("v1")))
	require.NoError(t, store.Save("ref.pdf", []byte("v2")))

	loaded, err := store.Load("ref.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), loaded)
}

func TestLoad_Missing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("never-saved.pdf")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save("ref.pdf", []byte("content")))
	require.NoError(t, store.Delete("ref.pdf"))

	_, err := store.Load("ref.pdf")
	assert.Error(t, err)

	// Deleting an already-absent artifact is not an error
	assert.NoError(t, store.Delete("ref.pdf"))
}

func TestPath(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save("dept-1/bill-1.pdf", []byte("x")))

	path, err := store.Path("dept-1/bill-1.pdf")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "bill-1.pdf", filepath.Base(path))
}

func TestResolve_RejectsEscapes(t *testing.T) {
	store := newTestStore(t)

	refs := []string{
		"",
		"../outside.pdf",
		"a/../../outside.pdf",
		"..",
	}

	for _, ref := range refs {
		t.Run(ref, func(t *testing.T) {
			if err := store.Save(ref, []byte("x")); err == nil {
				t.Errorf("Save(%q) should reject the reference", ref)
			}
			if _, err := store.Load(ref); err == nil {
				t.Errorf("Load(%q) should reject the reference", ref)
			}
		})
	}
}
