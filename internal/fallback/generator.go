package fallback

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vaultcast/internal/backend"
	"vaultcast/internal/config"
	"vaultcast/internal/jobs"
	"vaultcast/internal/notebook"
	"vaultcast/internal/textutil"
)

const (
	snippetRunes  = 180
	untitled      = "This Notebook"
	untitledTitle = "untitled source"
)

// Generator expands catalog templates into outlines and scripts. It is safe
// for concurrent use.
type Generator struct {
	catalog Catalog
	window  time.Duration
}

// New returns a generator over catalog whose segments span window each.
func New(catalog Catalog, window time.Duration) *Generator {
	if window <= 0 {
		window = time.Minute
	}
	return &Generator{catalog: catalog, window: window}
}

// NewFromConfig loads generation.template_catalog when set, or the embedded
// catalog otherwise.
func NewFromConfig(cfg *config.Config) (*Generator, error) {
	catalog := DefaultCatalog()
	if path := strings.TrimSpace(cfg.Generation.TemplateCatalog); path != "" {
		loaded, err := LoadCatalog(path)
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}
	return New(catalog, cfg.SegmentWindow()), nil
}

// Outline returns the catalog outline with the notebook title filled in.
func (g *Generator) Outline(nb notebook.Notebook) jobs.Outline {
	fill := strings.NewReplacer("{title}", displayTitle(nb))
	outline := make(jobs.Outline, 0, len(g.catalog.Outline))
	for i, segment := range g.catalog.Outline {
		topics := make([]string, 0, len(segment.Topics))
		for _, topic := range segment.Topics {
			topics = append(topics, fill.Replace(topic))
		}
		outline = append(outline, jobs.OutlineSegment{
			Index:  i,
			Title:  fill.Replace(segment.Title),
			Topics: topics,
		})
	}
	return outline
}

// ScriptChunk builds the dialogue for segment index. The opening lines lead the
// first segment and the closing lines end the last one. Transcript lines are
// spaced evenly across the segment's window on the episode timeline.
func (g *Generator) ScriptChunk(nb notebook.Notebook, outline jobs.Outline, index int) backend.Script {
	title := displayTitle(nb)
	topic := title
	if index >= 0 && index < len(outline) && len(outline[index].Topics) > 0 {
		topic = strings.Join(outline[index].Topics, " and ")
	}
	sourceTitle, snippet := g.citation(nb, index)
	fill := strings.NewReplacer(
		"{title}", title,
		"{topic}", topic,
		"{source}", sourceTitle,
		"{snippet}", snippet,
	)

	var templates []LineTemplate
	if index == 0 {
		templates = append(templates, g.catalog.Opening...)
	}
	templates = append(templates, g.catalog.Dialogues[positive(index)%len(g.catalog.Dialogues)]...)
	if index == len(outline)-1 {
		templates = append(templates, g.catalog.Closing...)
	}

	lines := make([]jobs.TranscriptLine, 0, len(templates))
	for _, tmpl := range templates {
		lines = append(lines, jobs.TranscriptLine{
			Speaker: tmpl.Speaker,
			Text:    fill.Replace(tmpl.Text),
		})
	}
	script := backend.Script{Transcript: backend.SpaceEvenly(lines, positive(index), g.window)}
	script.Script = script.Speakable()
	return script
}

func (g *Generator) citation(nb notebook.Notebook, index int) (string, string) {
	if len(nb.Sources) == 0 {
		return g.catalog.Filler.Source, g.catalog.Filler.Snippet
	}
	src := nb.Sources[positive(index)%len(nb.Sources)]
	title := strings.TrimSpace(src.Title)
	if title == "" {
		title = untitledTitle
	}
	snippet := textutil.Snippet(src.Content, snippetRunes)
	if snippet == "" {
		snippet = g.catalog.Filler.Snippet
	}
	return title, snippet
}

func displayTitle(nb notebook.Notebook) string {
	title := strings.TrimSpace(nb.Title)
	if title == "" {
		return untitled
	}
	return cases.Title(language.Und).String(title)
}

func positive(i int) int {
	if i < 0 {
		return 0
	}
	return i
}
