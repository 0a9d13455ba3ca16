package clean

import (
	"encoding/json"
	"fmt"
)

// Transformed is the cleaned article shape written to the
// transformed_articles tree. Summary, keywords, and entities start
// empty; the enrichment pass fills them in its own output tree.
type Transformed struct {
	ArticleID  string     `json:"article_id"`
	SourceInfo SourceInfo `json:"source_info"`
	Metadata   Metadata   `json:"metadata"`
	Content    Content    `json:"content"`
	Entities   Entities   `json:"entities"`
}

type SourceInfo struct {
	SourceName  string `json:"source_name"`
	SourceLink  string `json:"source_link"`
	RetrievedAt string `json:"retrieved_at"`
}

type Metadata struct {
	Title              string   `json:"title"`
	Author             string   `json:"author"`
	DatePublished      string   `json:"date_published"`
	ImageURL           string   `json:"image_url"`
	Categories         []string `json:"categories"`
	WordCount          int      `json:"word_count"`
	ReadingTimeMinutes int      `json:"reading_time_minutes"`
}

type Content struct {
	ArticleBody string   `json:"article_body"`
	Summary     string   `json:"summary"`
	Keywords    []string `json:"keywords"`
}

type Entities struct {
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
	Locations     []string `json:"locations"`
}

// inputArticle accepts both the flat harvested record and an
// already-nested transformed file, so re-running the pass over mixed
// trees stays safe.
type inputArticle struct {
	Source        string          `json:"source"`
	Link          string          `json:"link"`
	RetrievedAt   string          `json:"retrievedAt"`
	Title         *string         `json:"title"`
	Author        string          `json:"author"`
	Content       json.RawMessage `json:"content"`
	DatePublished string          `json:"date_published"`
	Image         string          `json:"image"`
	Categories    []string        `json:"categories"`

	SourceInfo *SourceInfo `json:"source_info"`
	Metadata   *Metadata   `json:"metadata"`
}

func (in *inputArticle) body() string {
	if len(in.Content) == 0 {
		return ""
	}
	// Flat records carry content as a (possibly null) string; nested
	// ones wrap it in an object.
	var s *string
	if err := json.Unmarshal(in.Content, &s); err == nil {
		if s == nil {
			return ""
		}
		return *s
	}
	var nested struct {
		ArticleBody string `json:"article_body"`
	}
	if err := json.Unmarshal(in.Content, &nested); err == nil {
		return nested.ArticleBody
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Transform cleans one raw article document into the transformed shape.
// articleID is the source filename stem.
func Transform(articleID string, raw []byte) (Transformed, error) {
	var in inputArticle
	if err := json.Unmarshal(raw, &in); err != nil {
		return Transformed{}, fmt.Errorf("decode article %s: %w", articleID, err)
	}

	body := ToASCII(CleanText(in.body()))
	words := WordCount(body)

	title := ""
	if in.Title != nil {
		title = *in.Title
	}

	var nested SourceInfo
	if in.SourceInfo != nil {
		nested = *in.SourceInfo
	}
	var nestedMeta Metadata
	if in.Metadata != nil {
		nestedMeta = *in.Metadata
	}
	if title == "" {
		title = nestedMeta.Title
	}

	categories := in.Categories
	if len(categories) == 0 {
		categories = nestedMeta.Categories
	}
	if categories == nil {
		categories = []string{}
	}
	cleanedCategories := make([]string, len(categories))
	for i, c := range categories {
		cleanedCategories[i] = CleanText(c)
	}

	return Transformed{
		ArticleID: articleID,
		SourceInfo: SourceInfo{
			SourceName:  CleanText(firstNonEmpty(in.Source, nested.SourceName)),
			SourceLink:  CleanText(firstNonEmpty(in.Link, nested.SourceLink)),
			RetrievedAt: CleanText(firstNonEmpty(in.RetrievedAt, nested.RetrievedAt)),
		},
		Metadata: Metadata{
			Title:              CleanText(title),
			Author:             CleanText(firstNonEmpty(in.Author, nestedMeta.Author)),
			DatePublished:      CleanText(firstNonEmpty(in.DatePublished, nestedMeta.DatePublished)),
			ImageURL:           CleanText(firstNonEmpty(in.Image, nestedMeta.ImageURL)),
			Categories:         cleanedCategories,
			WordCount:          words,
			ReadingTimeMinutes: ReadingTime(words),
		},
		Content: Content{
			ArticleBody: body,
			Summary:     "",
			Keywords:    []string{},
		},
		Entities: Entities{
			People:        []string{},
			Organizations: []string{},
			Locations:     []string{},
		},
	}, nil
}
