package services

import (
	"strings"

	"github.com/campuskb/poliq/internal/core/domain"
)

// greetings are complete messages treated as social openers rather than
// policy questions.
var greetings = map[string]struct{}{
	"hi":                {},
	"hello":             {},
	"hey":               {},
	"yo":                {},
	"yo there":          {},
	"how are you":       {},
	"how are you doing": {},
	"what's up":         {},
	"good morning":      {},
	"good afternoon":    {},
	"good evening":      {},
}

// catalogPrompts are complete messages that ask what the assistant has
// indexed.
var catalogPrompts = map[string]struct{}{
	"what documents do you have": {},
	"what policies do you have":  {},
	"which documents":            {},
	"which policies":             {},
	"what documents exist":       {},
	"what policies exist":        {},
}

// policyTokens mark a message as substantive even when it is short.
var policyTokens = []string{
	"policy",
	"document",
	"handbook",
	"scholarship",
	"curriculum",
	"registration",
	"attendance",
	"grade",
	"tuition",
	"requirement",
}

// ClassifyIntent routes a message to the catalog path or the retrieval
// path using heuristics only. The catalog path must stay free of
// embedding and generation calls, so no model is consulted here:
// ambiguous messages default to Substantive.
func ClassifyIntent(message string) domain.Intent {
	lowered := strings.ToLower(strings.TrimSpace(message))
	if lowered == "" {
		return domain.IntentCatalog
	}

	if _, ok := greetings[lowered]; ok {
		return domain.IntentCatalog
	}

	if strings.Contains(lowered, "how many") && containsAny(lowered, "doc", "document", "policy", "policies") {
		return domain.IntentCatalog
	}

	if strings.HasPrefix(lowered, "list") && containsAny(lowered, "doc", "policy") {
		return domain.IntentCatalog
	}

	if _, ok := catalogPrompts[lowered]; ok {
		return domain.IntentCatalog
	}

	// Very short phrases with no policy vocabulary are social noise;
	// showing the catalog is more useful than retrieving against them.
	if len(strings.Fields(lowered)) <= 4 && !containsAny(lowered, policyTokens...) {
		return domain.IntentCatalog
	}

	return domain.IntentSubstantive
}

// containsAny reports whether s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
