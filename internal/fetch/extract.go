// Package fetch provides page fetch sessions and article extraction.
package fetch

import (
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/newsroomlab/harvester/internal/harvest"
)

// Selectors describes where a source keeps its article fields. The
// orchestration core never sees these; each source ships its own set.
type Selectors struct {
	Title     string
	Body      string
	Author    string
	Published string
	// PublishedAttr names an attribute holding the timestamp (e.g.
	// "datetime" on a <time> element). Empty means use the text.
	PublishedAttr string
	// PublishedLayouts are tried in order when parsing the timestamp.
	PublishedLayouts []string
	Image            string
	ImageAttr        string
	Tags             string
	Categories       string
}

// Extract pulls article fields out of rendered HTML using the source's
// selectors. The body is converted from HTML to markdown-ish plain text
// so downstream cleaning works on prose, not markup.
func Extract(html string, sel Selectors, converter *md.Converter) (harvest.RawFields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return harvest.RawFields{}, fmt.Errorf("parse document: %w", err)
	}

	fields := harvest.RawFields{
		Title:  strings.TrimSpace(doc.Find(sel.Title).First().Text()),
		Author: strings.TrimSpace(doc.Find(sel.Author).First().Text()),
	}

	if sel.Body != "" {
		if bodyHTML, err := doc.Find(sel.Body).First().Html(); err == nil {
			fields.Content = toText(bodyHTML, converter)
		}
	}

	if sel.Published != "" {
		fields.PublishedAt = parsePublished(doc, sel)
	}

	if sel.Image != "" {
		attr := sel.ImageAttr
		if attr == "" {
			attr = "src"
		}
		if v, ok := doc.Find(sel.Image).First().Attr(attr); ok {
			fields.Image = strings.TrimSpace(v)
		}
	}

	fields.Tags = collectText(doc, sel.Tags)
	fields.Categories = collectText(doc, sel.Categories)
	return fields, nil
}

func toText(bodyHTML string, converter *md.Converter) string {
	if converter == nil {
		converter = md.NewConverter("", true, nil)
	}
	text, err := converter.ConvertString(bodyHTML)
	if err != nil {
		// Fall back to the raw text nodes.
		doc, derr := goquery.NewDocumentFromReader(strings.NewReader(bodyHTML))
		if derr != nil {
			return ""
		}
		return strings.TrimSpace(doc.Text())
	}
	return strings.TrimSpace(text)
}

func parsePublished(doc *goquery.Document, sel Selectors) *time.Time {
	node := doc.Find(sel.Published).First()
	raw := ""
	if sel.PublishedAttr != "" {
		raw, _ = node.Attr(sel.PublishedAttr)
	} else {
		raw = node.Text()
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	layouts := sel.PublishedLayouts
	if len(layouts) == 0 {
		layouts = []string{time.RFC3339, "2006-01-02T15:04:05-07:00", "2006-01-02"}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

func collectText(doc *goquery.Document, selector string) []string {
	if selector == "" {
		return nil
	}
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v := strings.TrimSpace(s.Text()); v != "" {
			out = append(out, v)
		}
	})
	return out
}
