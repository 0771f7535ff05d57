package formatters

import (
	"encoding/json"
	"testing"

	"resumetex/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tex = "\\documentclass{article}\n\\begin{document}\nHi\n\\end{document}"

func TestFormat_TailorResult(t *testing.T) {
	registry := NewFormatterRegistry()
	result := &types.TailorResult{LaTeX: tex, Model: "gemini-2.5-flash", Attempted: []string{"a", "b"}}

	out, err := registry.Format(result, "tex")
	require.NoError(t, err)
	assert.Equal(t, tex+"\n", out)

	out, err = registry.Format(result, "json")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, tex, decoded["latex"])
	assert.NotContains(t, decoded, "Attempted")
}

func TestFormat_ModelList(t *testing.T) {
	registry := NewFormatterRegistry()
	models := []types.ModelInfo{
		{Name: "models/gemini-2.5-flash", DisplayName: "Gemini 2.5 Flash", Actions: []string{"generateContent", "countTokens"}},
	}

	out, err := registry.Format(models, "text")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "gemini-2.5-flash")
	assert.NotContains(t, out, "models/")
	assert.Contains(t, out, "generateContent,countTokens")
}

func TestFormat_JobDescription(t *testing.T) {
	registry := NewFormatterRegistry()

	out, err := registry.Format(&types.JobDescription{Title: "Go Engineer", Text: "Build things"}, "text")
	require.NoError(t, err)
	assert.Equal(t, "Go Engineer\n\nBuild things\n", out)
}

func TestFormat_Unsupported(t *testing.T) {
	registry := NewFormatterRegistry()

	_, err := registry.Format(types.ModelInfo{Name: "x"}, "tex")
	assert.Error(t, err)
	assert.Equal(t, []string{"json", "tex", "text"}, registry.GetSupportedFormats())
}
