package ai

import (
	"slices"
	"strings"
)

// nonTextMarkers identify embedding and legacy PaLM models that cannot
// generate documents.
var nonTextMarkers = []string{"embedding", "gecko"}

// IsTextModel reports whether a model id can be used for text generation
func IsTextModel(model string) bool {
	lower := strings.ToLower(model)
	for _, marker := range nonTextMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

// BuildCandidateList orders the models to try: the requested model, then the
// server default, then the static fallbacks. Duplicates keep their first
// position.
func BuildCandidateList(requested, serverDefault string, fallbacks []string) []string {
	all := append([]string{requested, serverDefault}, fallbacks...)

	candidates := make([]string, 0, len(all))
	for _, model := range all {
		model = strings.TrimSpace(model)
		if model == "" || !IsTextModel(model) || slices.Contains(candidates, model) {
			continue
		}
		candidates = append(candidates, model)
	}
	return candidates
}
