// Package grounding selects the notebook sources most relevant to a query and
// renders them as a prompt block.
//
// Relevance is the number of distinct query terms (lowercase, longer than 2
// runes) found as substrings of a source's lowercased content. Small notebooks
// are always included whole, ranked; larger notebooks with no match yield
// NoRelevantSource so the model answers from general knowledge.
package grounding

import (
	"fmt"
	"sort"
	"strings"

	"vaultcast/internal/notebook"
	"vaultcast/internal/textutil"
)

const (
	// DefaultTopK is the number of sources returned when k is not positive.
	DefaultTopK = 3
	// DefaultMaxSourceChars caps each rendered source.
	DefaultMaxSourceChars = 6000
	// smallNotebook is the source count at or below which every source is
	// included whatever its score.
	smallNotebook = 2
)

// NoRelevantSource is returned when a notebook has more than two sources and
// none of them matches the query.
const NoRelevantSource = "NO RELEVANT SOURCE: none of the notebook's sources covers this topic. Speak from general knowledge and say so briefly."

// Selector renders grounding blocks with fixed limits.
type Selector struct {
	TopK           int
	MaxSourceChars int
}

// New returns a selector, substituting defaults for non-positive limits.
func New(topK, maxSourceChars int) Selector {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if maxSourceChars <= 0 {
		maxSourceChars = DefaultMaxSourceChars
	}
	return Selector{TopK: topK, MaxSourceChars: maxSourceChars}
}

// Select is Selector.Select with default per-source limits and top k.
func Select(sources []notebook.Source, query string, k int) string {
	return New(k, DefaultMaxSourceChars).Select(sources, query)
}

type scored struct {
	index  int
	score  int
	source notebook.Source
}

// Select returns up to TopK sources ranked by score (ties keep notebook
// order), formatted as numbered SOURCE blocks separated by blank lines. A
// notebook of two sources or fewer is rendered whole in ranked order.
func (s Selector) Select(sources []notebook.Source, query string) string {
	if len(sources) == 0 {
		return ""
	}
	s = New(s.TopK, s.MaxSourceChars)
	terms := textutil.DistinctTerms(query)

	ranked := make([]scored, 0, len(sources))
	for i, src := range sources {
		ranked = append(ranked, scored{index: i, score: score(src.Content, terms), source: src})
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	if len(sources) <= smallNotebook {
		all := make([]notebook.Source, 0, len(ranked))
		for _, entry := range ranked {
			all = append(all, entry.source)
		}
		return s.render(all)
	}
	if ranked[0].score == 0 {
		return NoRelevantSource
	}

	picked := make([]notebook.Source, 0, s.TopK)
	for _, entry := range ranked {
		if entry.score == 0 || len(picked) == s.TopK {
			break
		}
		picked = append(picked, entry.source)
	}
	return s.render(picked)
}

func score(content string, terms []string) int {
	if len(terms) == 0 {
		return 0
	}
	lowered := strings.ToLower(content)
	matches := 0
	for _, term := range terms {
		if strings.Contains(lowered, term) {
			matches++
		}
	}
	return matches
}

func (s Selector) render(sources []notebook.Source) string {
	blocks := make([]string, 0, len(sources))
	for i, src := range sources {
		title := strings.TrimSpace(src.Title)
		if title == "" {
			title = "untitled"
		}
		content := textutil.Truncate(strings.TrimSpace(src.Content), s.MaxSourceChars)
		blocks = append(blocks, fmt.Sprintf("SOURCE %d (%s):\n%s", i+1, title, content))
	}
	return strings.Join(blocks, "\n\n")
}

// OutlineQuery builds the outline grounding query from the notebook title and
// its source titles.
func OutlineQuery(nb notebook.Notebook) string {
	parts := append([]string{nb.Title}, nb.SourceTitles()...)
	return strings.Join(parts, " ")
}
