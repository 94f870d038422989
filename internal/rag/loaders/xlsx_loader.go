package loaders

import (
	"context"
	"path/filepath"
	"strings"

	"crewpilot/internal/rag/interfaces"
	"crewpilot/internal/rag/schema"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// XlsxLoader implements the Loader interface for reading Excel (.xlsx) files.
type XlsxLoader struct{}

// NewXlsxLoader creates a new XlsxLoader.
func NewXlsxLoader() *XlsxLoader {
	return &XlsxLoader{}
}

// Load reads an .xlsx file, converting each sheet to a Markdown table.
// It returns a Document for each sheet.
func (l *XlsxLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var documents []*schema.Document
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			// Skip sheet if rows can't be read
			continue
		}

		// Convert sheet data to Markdown table
		var mdBuilder strings.Builder
		if len(rows) > 0 {
			mdBuilder.WriteString("| " + strings.Join(rows[0], " | ") + " |\n")
			mdBuilder.WriteString("|" + strings.Repeat("---|", len(rows[0])) + "\n")
			for _, row := range rows[1:] {
				mdBuilder.WriteString("| " + strings.Join(row, " | ") + " |\n")
			}
		}

		doc := &schema.Document{
			ID:     uuid.New().String(),
			Text:   mdBuilder.String(),
			Source: path,
			Metadata: map[string]interface{}{
				schema.MetadataKeyFileName:  filepath.Base(path),
				schema.MetadataKeySheetName: sheetName,
			},
		}
		attachModTime(doc, path)
		documents = append(documents, doc)
	}

	return documents, nil
}

// compile-time check to ensure XlsxLoader implements the Loader interface
var _ interfaces.Loader = (*XlsxLoader)(nil)
