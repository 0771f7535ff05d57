package common

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"resumetex/internal/errors"
	"resumetex/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunCommand_WritesFormattedOutput(t *testing.T) {
	resume := writeTemp(t, "resume.tex", "\\documentclass{article}")
	job := writeTemp(t, "job.txt", "Senior Go engineer")
	out := filepath.Join(t.TempDir(), "out", "tailored.tex")

	var gotInput []string
	err := RunCommand(context.Background(), errors.NewNopLogger(),
		CommandConfig{OutputFile: out, OutputFormat: "tex"},
		[]string{resume, job},
		func(contents []string) ([]string, error) { return contents, nil },
		func(_ context.Context, in []string) (*types.TailorResult, error) {
			gotInput = in
			return &types.TailorResult{LaTeX: "\\documentclass{article}\n% tailored"}, nil
		},
		nil,
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"\\documentclass{article}", "Senior Go engineer"}, gotInput)
	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "\\documentclass{article}\n% tailored\n", string(written))
}

func TestRunCommand_MissingFile(t *testing.T) {
	called := false
	err := RunCommand(context.Background(), errors.NewNopLogger(),
		CommandConfig{OutputFormat: "json"},
		[]string{filepath.Join(t.TempDir(), "missing.tex")},
		func(contents []string) (string, error) { return contents[0], nil },
		func(context.Context, string) (string, error) {
			called = true
			return "", nil
		},
		nil,
	)

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeIO, appErr.Type)
	assert.Equal(t, errors.ErrCodeFileNotFound, appErr.Code)
	assert.False(t, called)
}

func TestFileProcessor_RejectsDirectories(t *testing.T) {
	fp := NewFileProcessor(errors.NewNopLogger())
	dir := t.TempDir()

	_, err := fp.ValidateAndReadFiles(dir)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = fp.ValidateAndReadFiles("")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	assert.True(t, errors.IsType(fp.ValidateOutputFile(dir), errors.ErrorTypeValidation))
}

func TestFileProcessor_ValidateOutputFileCreatesDirectory(t *testing.T) {
	fp := NewFileProcessor(errors.NewNopLogger())
	target := filepath.Join(t.TempDir(), "out", "nested", "resume.pdf")

	require.NoError(t, fp.ValidateOutputFile(target))
	info, err := os.Stat(filepath.Dir(target))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.NoError(t, fp.ValidateOutputFile(""))
}

func TestOutputHandler_Binary(t *testing.T) {
	var stdout bytes.Buffer
	handler := NewOutputHandler(errors.NewNopLogger())
	handler.stdout = &stdout

	require.NoError(t, handler.HandleBinary([]byte("%PDF-1.5"), CommandConfig{}))
	assert.Equal(t, "%PDF-1.5", stdout.String())

	target := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, handler.HandleBinary([]byte("%PDF-1.5"), CommandConfig{OutputFile: target}))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.5", string(data))
}

func TestOutputHandler_UnknownFormat(t *testing.T) {
	handler := NewOutputHandler(errors.NewNopLogger())
	handler.stdout = &bytes.Buffer{}

	err := handler.HandleOutput(&types.TailorResult{LaTeX: "x"}, CommandConfig{OutputFormat: "markdown"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}
