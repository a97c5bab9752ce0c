package backend

import (
	"fmt"
	"strings"

	"vaultcast/internal/jobs"
	"vaultcast/internal/notebook"
)

const outlineSystemPrompt = `You plan long-form two-host audio episodes.
Return JSON only: {"segments":[{"title":"...","topics":["..."]}]}
Rules:
- 3 to 6 segments, in listening order.
- Each segment has a short title and 1 to 3 topic phrases.
- Topics must come from the provided sources; never invent facts.`

const scriptSystemPrompt = `You write dialogue for a two-host audio episode.
The hosts are exactly "Alex" and "Sam". No other speaker may appear.
Return JSON only:
{"script":"Alex: ...\nSam: ...","transcript":[{"speaker":"Alex","text":"...","startMs":0,"endMs":4000}]}
Rules:
- transcript lists every line of script in order, alternating naturally between the hosts.
- startMs/endMs are relative to the start of this segment and must not overlap.
- Stay within the grounding material; if it says no source is relevant, say so briefly and keep the discussion general.
- Do not greet listeners again after the first segment; do not sign off before the last one.`

const summarySystemPrompt = `You summarise research notebooks.
Return JSON only: {"summary":"..."}
Write 3 to 5 sentences covering the main themes of the sources. No bullet points.`

const chatSystemPrompt = `You answer questions about a research notebook.
Return JSON only: {"answer":"..."}
Answer from the provided sources and name the source titles you relied on.
If the sources do not cover the question, say so and answer briefly from general knowledge.`

const searchSystemPrompt = `You search the web for material relevant to a research notebook.
Return JSON only: {"results":[{"title":"...","url":"https://...","snippet":"..."}]}
Return at most 8 results with working absolute URLs.`

func outlineUserPrompt(nb notebook.Notebook, grounding string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Notebook title: %s\n", nb.Title)
	if titles := nb.SourceTitles(); len(titles) > 0 {
		fmt.Fprintf(&b, "Source titles: %s\n", strings.Join(titles, "; "))
	}
	b.WriteString("\nGrounding:\n")
	b.WriteString(grounding)
	return b.String()
}

func scriptUserPrompt(req ScriptRequest) string {
	segment := req.Outline[req.SegmentIndex]
	var b strings.Builder
	fmt.Fprintf(&b, "Episode: %s\n", req.Notebook.Title)
	fmt.Fprintf(&b, "Host tone: %s\n", personalityBrief(req.Personality))
	fmt.Fprintf(&b, "Segment %d of %d", req.SegmentIndex+1, len(req.Outline))
	if segment.Title != "" {
		fmt.Fprintf(&b, ": %s", segment.Title)
	}
	fmt.Fprintf(&b, "\nTopics: %s\n", strings.Join(segment.Topics, "; "))
	if req.SegmentIndex == 0 {
		b.WriteString("This is the opening segment: welcome listeners and introduce the episode.\n")
	}
	if req.SegmentIndex == len(req.Outline)-1 {
		b.WriteString("This is the closing segment: wrap up and thank listeners.\n")
	}
	b.WriteString("\nFull outline:\n")
	for _, s := range req.Outline {
		fmt.Fprintf(&b, "%d. %s\n", s.Index+1, strings.Join(s.Topics, "; "))
	}
	b.WriteString("\nGrounding:\n")
	b.WriteString(req.Grounding)
	return b.String()
}

func summaryUserPrompt(nb notebook.Notebook, grounding string) string {
	return fmt.Sprintf("Notebook title: %s\n\nSources:\n%s", nb.Title, grounding)
}

func chatUserPrompt(nb notebook.Notebook, question, grounding string) string {
	return fmt.Sprintf("Notebook title: %s\nQuestion: %s\n\nSources:\n%s", nb.Title, question, grounding)
}

func artworkPrompt(nb notebook.Notebook) string {
	subject := nb.Title
	if titles := nb.SourceTitles(); len(titles) > 0 {
		subject = fmt.Sprintf("%s (covering %s)", nb.Title, strings.Join(titles[:min(len(titles), 3)], ", "))
	}
	return fmt.Sprintf("Square podcast cover art for an episode about %s. Bold, modern, abstract illustration with no text or lettering.", subject)
}

func outlineTopics(outline jobs.Outline, index int) string {
	if index < 0 || index >= len(outline) {
		return ""
	}
	return strings.Join(outline[index].Topics, " ")
}
