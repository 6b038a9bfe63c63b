// Package textsplit provides the token estimator and mechanical splitter
// shared by ingestion, retrieval, memory, and the webpage tool. Every
// budget in the system is expressed in these estimated tokens, so all
// callers must use the same estimate.
package textsplit

import "strings"

// punctuation characters treated as token separators by the estimator.
const punctuation = ".,/#!$%^&*;:{}=-_`~()"

// EstimateTokens approximates the token count of a text: punctuation is
// treated as whitespace, runs of whitespace collapse, and the remaining
// space-separated words are counted. It is deliberately cheap; it runs on
// every message and every stored chunk.
func EstimateTokens(text string) int {
	normalized := strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return ' '
		}
		return r
	}, text)
	return len(strings.Fields(normalized))
}

// Split breaks text into spans of at most maxTokens estimated tokens each.
// Boundaries fall on whitespace, never inside a word. Interior whitespace
// runs collapse to single spaces in the output spans.
func Split(text string, maxTokens int) []string {
	if maxTokens <= 0 {
		return nil
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}

	var (
		spans   []string
		current []string
		count   int
	)
	flush := func() {
		if len(current) > 0 {
			spans = append(spans, strings.Join(current, " "))
			current = nil
			count = 0
		}
	}

	for _, f := range fields {
		cost := EstimateTokens(f)
		if cost == 0 {
			// Pure punctuation still occupies space in the span.
			cost = 1
		}
		if count+cost > maxTokens && len(current) > 0 {
			flush()
		}
		current = append(current, f)
		count += cost
	}
	flush()

	return spans
}
