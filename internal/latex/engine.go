// Package latex compiles LaTeX sources to PDF through a hosted compilation
// service.
package latex

import (
	"regexp"
	"slices"

	"resumetex/internal/types"
)

var (
	documentClassPattern = regexp.MustCompile(`\\documentclass\s*(\[[^\]]*\])?\s*\{`)
	scriptPattern        = regexp.MustCompile(`\\directlua\b`)
	unicodePattern       = regexp.MustCompile(`\\usepackage\s*(\[[^\]]*\])?\s*\{[^}]*\b(fontspec|polyglossia|unicode-math)\b[^}]*\}|\\set(main|sans|mono)font\b|\\newfontfamily\b`)
)

// HasDocumentClass reports whether source declares a document class
func HasDocumentClass(source string) bool {
	return documentClassPattern.MatchString(source)
}

// InferEngine picks the engine a source needs. Lua code wins over font
// selection, which wins over plain.
func InferEngine(source string) types.Engine {
	switch {
	case scriptPattern.MatchString(source):
		return types.EngineScript
	case unicodePattern.MatchString(source):
		return types.EngineUnicode
	default:
		return types.EnginePlain
	}
}

// TrialOrder returns the engines to try, starting with initial.
func TrialOrder(initial types.Engine) []types.Engine {
	order := make([]types.Engine, 0, 4)
	for _, engine := range []types.Engine{initial, types.EngineUnicode, types.EngineScript, types.EnginePlain} {
		if !slices.Contains(order, engine) {
			order = append(order, engine)
		}
	}
	return order
}
