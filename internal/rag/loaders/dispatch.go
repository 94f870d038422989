package loaders

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"crewpilot/internal/rag/interfaces"
	"crewpilot/internal/rag/schema"

	"github.com/djherbis/times"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gobwas/glob"
)

// ForFile picks the loader matching the file's content type. The file
// extension is the primary signal; content sniffing via mimetype breaks
// ties for extensionless files.
func ForFile(path string) (interfaces.Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return NewMarkdownLoader(), nil
	case ".txt":
		return NewTxtLoader(), nil
	case ".pdf":
		return NewPdfLoader(), nil
	case ".xlsx":
		return NewXlsxLoader(), nil
	}

	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect content type of %s: %w", path, err)
	}

	switch {
	case mime.Is("application/pdf"):
		return NewPdfLoader(), nil
	case mime.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"):
		return NewXlsxLoader(), nil
	case mime.Is("text/markdown"):
		return NewMarkdownLoader(), nil
	case strings.HasPrefix(mime.String(), "text/"):
		return NewTxtLoader(), nil
	default:
		return nil, fmt.Errorf("unsupported content type %s for %s", mime.String(), path)
	}
}

// Matcher reports whether a file path matches any of a set of glob
// patterns (e.g. "*.md", "reports/**.pdf").
type Matcher struct {
	globs []glob.Glob
}

// NewMatcher compiles the given patterns. An empty pattern list matches
// everything.
func NewMatcher(patterns []string) (*Matcher, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return &Matcher{globs: globs}, nil
}

// Match reports whether path matches any compiled pattern. Patterns are
// tested against both the full path and the base name.
func (m *Matcher) Match(path string) bool {
	if len(m.globs) == 0 {
		return true
	}
	base := filepath.Base(path)
	for _, g := range m.globs {
		if g.Match(path) || g.Match(base) {
			return true
		}
	}
	return false
}

// attachModTime records the source file's modification time in the
// document metadata. Missing timestamps are not an error.
func attachModTime(doc *schema.Document, path string) {
	t, err := times.Stat(path)
	if err != nil {
		return
	}
	doc.Metadata[schema.MetadataKeyModTime] = t.ModTime().UTC().Format(time.RFC3339)
}
