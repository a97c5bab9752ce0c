package backend

import (
	"slices"
	"strings"
)

// DefaultPersonality is the host tone used when none is requested.
const DefaultPersonality = "balanced"

var personalities = map[string]string{
	"balanced":     "Warm and curious. Alex explains, Sam asks sharp follow-up questions, both stay even-handed.",
	"enthusiastic": "High energy and playful. Both hosts are visibly excited and celebrate surprising details.",
	"skeptical":    "Sam plays devil's advocate and challenges weak claims; Alex defends what the sources support.",
	"academic":     "Precise and structured. Hosts define terms, cite the sources by title, and avoid slang.",
	"casual":       "Relaxed, conversational, lots of everyday analogies and light humour.",
}

// ParsePersonality normalizes p and reports whether it is a known tone. An
// empty value resolves to DefaultPersonality.
func ParsePersonality(p string) (string, bool) {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return DefaultPersonality, true
	}
	_, ok := personalities[p]
	return p, ok
}

// Personalities lists the known tones in sorted order.
func Personalities() []string {
	names := make([]string, 0, len(personalities))
	for name := range personalities {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func personalityBrief(p string) string {
	if brief, ok := personalities[p]; ok {
		return brief
	}
	return personalities[DefaultPersonality]
}
