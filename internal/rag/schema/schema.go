package schema

import (
	"fmt"
	"strings"
)

const (
	// MetadataKeyFileName is the key for the source file name.
	MetadataKeyFileName = "file_name"
	// MetadataKeyPageNumber is the key for the page number from the source document.
	MetadataKeyPageNumber = "page_number"
	// MetadataKeyDocumentType is the key for the document category (e.g. "Regulation", "Form").
	MetadataKeyDocumentType = "document_type"
	// MetadataKeyDocumentName is the key for the human-readable document title.
	MetadataKeyDocumentName = "document_name"
	// MetadataKeySections is the key for legal section references found in the chunk.
	MetadataKeySections = "sections"
	// MetadataKeyFormNumbers is the key for official form numbers referenced in the chunk.
	MetadataKeyFormNumbers = "form_numbers"
	// MetadataKeyOfficialIDs is the key for official identifiers referenced in the chunk.
	MetadataKeyOfficialIDs = "official_ids"
	// MetadataKeyDistrictSpecific is the key for district-scoped information.
	// The value is a map with "mentioned_districts" ([]string) and
	// "specific_rules" ([]map with "district" and "rule" keys).
	MetadataKeyDistrictSpecific = "district_specific"
	// MetadataKeySourceURL is the key for the source URL of web content.
	MetadataKeySourceURL = "source_url"
	// MetadataKeySheetName is the key for the spreadsheet sheet name.
	MetadataKeySheetName = "sheet_name"
	// MetadataKeyModTime is the key for the source file modification time (RFC 3339).
	MetadataKeyModTime = "mod_time"
)

// Document is the central data structure representing a piece of text and its associated data.
// It is the primary data carrier throughout the RAG pipeline.
type Document struct {
	// ID is the unique identifier for this document chunk.
	ID string `json:"document_id"`

	// Text is the string content of the document chunk.
	Text string `json:"content"`

	// Embedding is the vector representation of the text.
	Embedding []float32 `json:"embedding,omitempty"`

	// Source names where the chunk came from (file path or URL).
	Source string `json:"source,omitempty"`

	// Citation is a short pre-built citation string, if the ingested
	// corpus carried one.
	Citation string `json:"citation,omitempty"`

	// Metadata holds arbitrary data about the document, e.g. file_name,
	// page_number, document_type, sections.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SearchResult pairs a retrieved document with its similarity score.
type SearchResult struct {
	Document *Document `json:"document"`
	Score    float32   `json:"score"`
}

// DetailedCitation builds a citation string from all available metadata,
// of the form "Type: Name | Page N | Section(s): ... | Form(s): ... | ID(s): ...".
func (r *SearchResult) DetailedCitation() string {
	md := r.Document.Metadata

	docType := stringValue(md, MetadataKeyDocumentType)
	if docType == "" {
		docType = "Document"
	}
	docName := stringValue(md, MetadataKeyDocumentName)
	if docName == "" {
		docName = "Unknown"
	}

	parts := []string{fmt.Sprintf("%s: %s", docType, docName)}

	if page := stringValue(md, MetadataKeyPageNumber); page != "" {
		parts = append(parts, fmt.Sprintf("Page %s", page))
	}

	if sections := stringSlice(md, MetadataKeySections); len(sections) > 0 {
		parts = append(parts, fmt.Sprintf("Section(s): %s", strings.Join(truncate(sections, 3), ", ")))
	}

	if forms := stringSlice(md, MetadataKeyFormNumbers); len(forms) > 0 {
		parts = append(parts, fmt.Sprintf("Form(s): %s", strings.Join(truncate(forms, 2), ", ")))
	}

	if ids := stringSlice(md, MetadataKeyOfficialIDs); len(ids) > 0 {
		parts = append(parts, fmt.Sprintf("ID(s): %s", strings.Join(truncate(ids, 2), ", ")))
	}

	return strings.Join(parts, " | ")
}

// DistrictRule is a single district-scoped rule extracted from metadata.
type DistrictRule struct {
	District string
	Rule     string
}

// MentionedDistricts returns the districts named in the chunk's metadata.
func (r *SearchResult) MentionedDistricts() []string {
	info := mapValue(r.Document.Metadata, MetadataKeyDistrictSpecific)
	return stringSlice(info, "mentioned_districts")
}

// DistrictRules returns the district-specific rules carried in the chunk's metadata.
func (r *SearchResult) DistrictRules() []DistrictRule {
	info := mapValue(r.Document.Metadata, MetadataKeyDistrictSpecific)
	raw, ok := info["specific_rules"].([]interface{})
	if !ok {
		return nil
	}

	var rules []DistrictRule
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		rules = append(rules, DistrictRule{
			District: stringValue(m, "district"),
			Rule:     stringValue(m, "rule"),
		})
	}
	return rules
}

func stringValue(md map[string]interface{}, key string) string {
	if md == nil {
		return ""
	}
	switch v := md[key].(type) {
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; page numbers are integral.
		return fmt.Sprintf("%d", int64(v))
	case int:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}

// stringSlice tolerates both []string (in-process values) and
// []interface{} (values decoded from JSON).
func stringSlice(md map[string]interface{}, key string) []string {
	if md == nil {
		return nil
	}
	switch v := md[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func mapValue(md map[string]interface{}, key string) map[string]interface{} {
	if md == nil {
		return nil
	}
	if m, ok := md[key].(map[string]interface{}); ok {
		return m
	}
	return nil
}

func truncate(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
