package template

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"resumetex/internal/errors"
	"resumetex/internal/latex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const overrideTeX = "\\documentclass{article}\n\\begin{document}\nOverride\n\\end{document}\n"

func TestEmbeddedDefault(t *testing.T) {
	content := Embedded()
	assert.True(t, latex.HasDocumentClass(content))
	assert.Contains(t, content, `\end{document}`)
	assert.Equal(t, "pdflatex", string(latex.InferEngine(content)))
}

func TestStore_Embedded(t *testing.T) {
	store, err := NewStore("", errors.NewNopLogger())
	require.NoError(t, err)

	content, err := store.Default()
	require.NoError(t, err)
	assert.Equal(t, Embedded(), content)
	assert.Equal(t, "embedded", store.Stats()["source"])
	assert.NoError(t, store.Watch())
	assert.NoError(t, store.Close())
}

func TestStore_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.tex")
	require.NoError(t, os.WriteFile(path, []byte(overrideTeX), 0o600))

	store, err := NewStore(path, errors.NewNopLogger())
	require.NoError(t, err)

	content, err := store.Default()
	require.NoError(t, err)
	assert.Equal(t, overrideTeX, content)
	assert.Equal(t, path, store.Stats()["source"])
}

func TestStore_InvalidOverride(t *testing.T) {
	dir := t.TempDir()

	_, err := NewStore(filepath.Join(dir, "missing.tex"), errors.NewNopLogger())
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	path := filepath.Join(dir, "notes.tex")
	require.NoError(t, os.WriteFile(path, []byte("just some notes"), 0o600))
	_, err = NewStore(path, errors.NewNopLogger())
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeNotLaTeX, appErr.Code)
}

func TestStore_ReloadKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.tex")
	require.NoError(t, os.WriteFile(path, []byte(overrideTeX), 0o600))

	store, err := NewStore(path, errors.NewNopLogger())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("broken"), 0o600))
	assert.Error(t, store.Reload())

	content, err := store.Default()
	require.NoError(t, err)
	assert.Equal(t, overrideTeX, content)
}

func TestStore_WatchPicksUpChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.tex")
	require.NoError(t, os.WriteFile(path, []byte(overrideTeX), 0o600))

	store, err := NewStore(path, errors.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, store.Watch())
	defer store.Close()

	updated := "\\documentclass{article}\n\\begin{document}\nUpdated\n\\end{document}\n"
	// Ensure a distinct modification time on coarse-grained filesystems.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))
	require.NoError(t, os.Chtimes(path, future, future))

	assert.Eventually(t, func() bool {
		content, _ := store.Default()
		return content == updated
	}, 5*time.Second, 50*time.Millisecond)
}
