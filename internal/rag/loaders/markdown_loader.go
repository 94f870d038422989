package loaders

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"crewpilot/internal/rag/interfaces"
	"crewpilot/internal/rag/schema"

	"github.com/google/uuid"
)

// MarkdownLoader implements the Loader interface for reading Markdown (.md) files.
type MarkdownLoader struct{}

// NewMarkdownLoader creates a new MarkdownLoader.
func NewMarkdownLoader() *MarkdownLoader {
	return &MarkdownLoader{}
}

// headingRegex matches the first level-1 heading, used as the document name.
var headingRegex = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// sectionRegex matches legal section references such as "§ 34" or "§34a".
var sectionRegex = regexp.MustCompile(`§\s?\d+[a-z]?`)

// Load reads a Markdown file and derives document_name and section
// references from its content.
func (l *MarkdownLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	textContent := string(content)

	metadata := map[string]interface{}{
		schema.MetadataKeyFileName: filepath.Base(path),
	}

	if m := headingRegex.FindStringSubmatch(textContent); len(m) == 2 {
		metadata[schema.MetadataKeyDocumentName] = strings.TrimSpace(m[1])
	}

	if sections := uniqueMatches(sectionRegex, textContent); len(sections) > 0 {
		metadata[schema.MetadataKeySections] = sections
	}

	doc := &schema.Document{
		ID:       uuid.New().String(),
		Text:     textContent,
		Source:   path,
		Metadata: metadata,
	}
	attachModTime(doc, path)

	return []*schema.Document{doc}, nil
}

// uniqueMatches returns the distinct matches of re in text, in order of
// first appearance.
func uniqueMatches(re *regexp.Regexp, text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range re.FindAllString(text, -1) {
		m = strings.ReplaceAll(m, " ", "")
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// compile-time check to ensure MarkdownLoader implements the Loader interface
var _ interfaces.Loader = (*MarkdownLoader)(nil)
