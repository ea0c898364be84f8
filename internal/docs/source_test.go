package docs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestListFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.PDF", "notes.txt", "c.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	s := NewDirSource(dir, zap.NewNop())
	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.PDF", "b.pdf", "c.pdf"}, names)
}

func TestListMissingDir(t *testing.T) {
	s := NewDirSource(filepath.Join(t.TempDir(), "absent"), zap.NewNop())
	_, err := s.List()
	assert.Error(t, err)
}

func TestReadRejectsNonPDF(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fake.pdf"), []byte("not a pdf"), 0o644))

	s := NewDirSource(dir, zap.NewNop())
	_, err := s.Read("fake.pdf")
	assert.Error(t, err)
}

func TestReadStripsPathTraversal(t *testing.T) {
	s := NewDirSource(t.TempDir(), zap.NewNop())
	// Base name only: a traversal attempt resolves inside the directory and
	// simply fails to open.
	_, err := s.Read("../../etc/passwd")
	assert.Error(t, err)
}
