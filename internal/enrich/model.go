// Package enrich runs the NLP annotation pass over transformed
// articles: a model produces a summary, keywords, and linked named
// entities for each article body.
package enrich

import "context"

// Entity is one named entity with its WikiData link. WikidataID is the
// literal string "null" when the model could not resolve one.
type Entity struct {
	Text       string `json:"text"`
	Label      string `json:"label"`
	WikidataID string `json:"wikidata_id"`
}

// Annotation is what the model returns for one article.
type Annotation struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
	Entities []Entity `json:"entities"`
}

// Model produces annotations. articleJSON is the full transformed
// article document; implementations instruct the model to read only the
// article body.
type Model interface {
	Annotate(ctx context.Context, articleJSON []byte) (Annotation, error)
	Close() error
}
