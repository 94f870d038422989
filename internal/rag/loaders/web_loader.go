package loaders

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"crewpilot/internal/rag/interfaces"
	"crewpilot/internal/rag/schema"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// WebLoader implements the Loader interface for fetching and parsing web pages.
type WebLoader struct {
	client *http.Client
}

// NewWebLoader creates a new WebLoader.
func NewWebLoader() *WebLoader {
	return &WebLoader{client: http.DefaultClient}
}

// Load fetches content from a URL, converts the HTML to Markdown, and
// returns it as a single Document. If the conversion fails, the raw text
// extracted from the HTML is used instead.
func (l *WebLoader) Load(ctx context.Context, url string) ([]*schema.Document, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status fetching %s: %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	text, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		text, err = extractText(strings.NewReader(string(body)))
		if err != nil {
			return nil, err
		}
	}

	doc := &schema.Document{
		ID:     uuid.New().String(),
		Text:   text,
		Source: url,
		Metadata: map[string]interface{}{
			schema.MetadataKeySourceURL: url,
		},
	}

	return []*schema.Document{doc}, nil
}

// extractText parses an HTML document and extracts all human-readable text,
// stripping away tags and scripts.
func extractText(body io.Reader) (string, error) {
	z := html.NewTokenizer(body)
	var sb strings.Builder
	var inScript, inStyle bool

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return sb.String(), nil
			}
			return "", z.Err()
		case html.StartTagToken, html.EndTagToken:
			tn, _ := z.TagName()
			tag := string(tn)
			if tag == "script" {
				inScript = (tt == html.StartTagToken)
			} else if tag == "style" {
				inStyle = (tt == html.StartTagToken)
			}
		case html.TextToken:
			if !inScript && !inStyle {
				text := strings.TrimSpace(string(z.Text()))
				if len(text) > 0 {
					sb.WriteString(text)
					sb.WriteString(" ")
				}
			}
		}
	}
}

// compile-time check to ensure WebLoader implements the Loader interface
var _ interfaces.Loader = (*WebLoader)(nil)
