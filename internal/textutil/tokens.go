package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// tokenSplitPattern matches runs of characters that are neither letters nor digits.
var tokenSplitPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Tokenize splits text into lowercase tokens, filtering tokens of 2 runes or fewer.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	raw := tokenSplitPattern.Split(lowered, -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if utf8.RuneCountInString(token) < 3 {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// DistinctTerms returns Tokenize's output with duplicates removed, keeping
// first-occurrence order.
func DistinctTerms(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	terms := tokens[:0]
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		terms = append(terms, token)
	}
	return terms
}

// Truncate caps text at limit runes. A limit of zero or less disables the cap.
func Truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit])
}

// Snippet collapses whitespace and caps the result at limit runes, cutting at
// a word boundary and appending an ellipsis when shortened.
func Snippet(text string, limit int) string {
	clean := strings.Join(strings.Fields(text), " ")
	if limit <= 0 || utf8.RuneCountInString(clean) <= limit {
		return clean
	}
	cut := string([]rune(clean)[:limit])
	if idx := strings.LastIndex(cut, " "); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ,;:.") + "..."
}
