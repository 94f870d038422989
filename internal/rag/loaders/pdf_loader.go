package loaders

import (
	"context"
	"fmt"
	"path/filepath"

	"crewpilot/internal/rag/interfaces"
	"crewpilot/internal/rag/schema"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
)

// PdfLoader implements the Loader interface for reading PDF files.
type PdfLoader struct{}

// NewPdfLoader creates a new PdfLoader.
func NewPdfLoader() *PdfLoader {
	return &PdfLoader{}
}

// Load reads a PDF file, extracts text from each page, and returns a
// Document per page with the page number in metadata.
func (l *PdfLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	var documents []*schema.Document
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages with unsupported encodings are skipped rather than
			// failing the whole file.
			continue
		}
		if text == "" {
			continue
		}

		doc := &schema.Document{
			ID:     uuid.New().String(),
			Text:   text,
			Source: path,
			Metadata: map[string]interface{}{
				schema.MetadataKeyFileName:   filepath.Base(path),
				schema.MetadataKeyPageNumber: fmt.Sprintf("%d", i),
			},
		}
		attachModTime(doc, path)
		documents = append(documents, doc)
	}

	return documents, nil
}

// compile-time check to ensure PdfLoader implements the Loader interface
var _ interfaces.Loader = (*PdfLoader)(nil)
