// Package budget provides token budget estimation for prompts sent to the
// summarization model. Because several LLM backends with different
// tokenizers are supported, it uses a conservative character-based
// heuristic: 1 token ≈ 4 characters of English prose.
package budget

import (
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// messageOverhead is the per-message token cost most chat APIs add.
	messageOverhead = 4

	// DefaultSummaryTokens is the default prompt budget for one summary
	// request. Large enough for whole documents on long-context models.
	// Override via SUMMARY_MAX_TOKENS.
	DefaultSummaryTokens = 100_000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += messageOverhead
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// Truncate shortens s so that Estimate(s) <= maxTokens, cutting on a rune
// boundary. It reports whether anything was removed. maxTokens <= 0 yields "".
func Truncate(s string, maxTokens int) (string, bool) {
	if maxTokens <= 0 {
		return "", s != ""
	}
	limit := maxTokens * charsPerToken
	if len(s) <= limit {
		return s, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}

// FitDocument truncates doc so that fixed plus one user message carrying doc
// stays within maxTokens. fixed holds messages that are never shortened
// (system prompt, instructions). If fixed alone exceeds the budget the
// returned document is empty.
func FitDocument(fixed []*schema.Message, doc string, maxTokens int) (string, bool) {
	remaining := maxTokens - EstimateMessages(fixed) - messageOverhead - Estimate(string(schema.User))
	return Truncate(doc, remaining)
}
