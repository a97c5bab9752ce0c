package fallback

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"vaultcast/internal/jobs"
	"vaultcast/internal/services"
)

//go:embed templates.yaml
var defaultCatalog []byte

const (
	minOutlineSegments = 3
	maxOutlineSegments = 6
	maxSegmentTopics   = 3
)

// SegmentTemplate is one outline entry before placeholder expansion.
type SegmentTemplate struct {
	Title  string   `yaml:"title"`
	Topics []string `yaml:"topics"`
}

// LineTemplate is one host turn before placeholder expansion.
type LineTemplate struct {
	Speaker string `yaml:"speaker"`
	Text    string `yaml:"text"`
}

// Filler replaces source placeholders when a notebook has no sources.
type Filler struct {
	Source  string `yaml:"source"`
	Snippet string `yaml:"snippet"`
}

// Catalog is the full set of offline templates.
type Catalog struct {
	Outline   []SegmentTemplate `yaml:"outline"`
	Opening   []LineTemplate    `yaml:"opening"`
	Closing   []LineTemplate    `yaml:"closing"`
	Dialogues [][]LineTemplate  `yaml:"dialogues"`
	Filler    Filler            `yaml:"filler"`
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() Catalog {
	catalog, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("fallback: embedded catalog invalid: %v", err))
	}
	return catalog
}

// LoadCatalog reads and validates a catalog file.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("%w: read template catalog %s: %w", services.ErrConfiguration, path, err)
	}
	catalog, err := ParseCatalog(data)
	if err != nil {
		return Catalog{}, fmt.Errorf("template catalog %s: %w", path, err)
	}
	return catalog, nil
}

// ParseCatalog decodes and validates YAML catalog data.
func ParseCatalog(data []byte) (Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return Catalog{}, fmt.Errorf("%w: decode template catalog: %w", services.ErrConfiguration, err)
	}
	if err := catalog.Validate(); err != nil {
		return Catalog{}, err
	}
	return catalog, nil
}

// Validate checks the catalog can drive a complete episode.
func (c Catalog) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: template catalog: %s", services.ErrConfiguration, fmt.Sprintf(format, args...))
	}
	if n := len(c.Outline); n < minOutlineSegments || n > maxOutlineSegments {
		return invalid("outline has %d segments, want %d-%d", n, minOutlineSegments, maxOutlineSegments)
	}
	for i, segment := range c.Outline {
		if n := len(segment.Topics); n == 0 || n > maxSegmentTopics {
			return invalid("outline segment %d has %d topics, want 1-%d", i, n, maxSegmentTopics)
		}
		for _, topic := range segment.Topics {
			if strings.TrimSpace(topic) == "" {
				return invalid("outline segment %d has a blank topic", i)
			}
		}
	}
	if len(c.Dialogues) == 0 {
		return invalid("no dialogues")
	}
	for i, dialogue := range c.Dialogues {
		if len(dialogue) == 0 {
			return invalid("dialogue %d is empty", i)
		}
		if err := validateLines(dialogue); err != nil {
			return invalid("dialogue %d: %v", i, err)
		}
	}
	if err := validateLines(c.Opening); err != nil {
		return invalid("opening: %v", err)
	}
	if err := validateLines(c.Closing); err != nil {
		return invalid("closing: %v", err)
	}
	if strings.TrimSpace(c.Filler.Source) == "" || strings.TrimSpace(c.Filler.Snippet) == "" {
		return invalid("filler source and snippet are required")
	}
	return nil
}

func validateLines(lines []LineTemplate) error {
	for i, line := range lines {
		if !jobs.IsHost(line.Speaker) {
			return fmt.Errorf("line %d speaker %q is not %s or %s", i, line.Speaker, jobs.HostA, jobs.HostB)
		}
		if strings.TrimSpace(line.Text) == "" {
			return fmt.Errorf("line %d has no text", i)
		}
	}
	return nil
}
