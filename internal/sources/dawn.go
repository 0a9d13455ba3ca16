package sources

import (
	"fmt"

	"github.com/newsroomlab/harvester/internal/fetch"
	"github.com/newsroomlab/harvester/internal/harvest"
)

func init() {
	register(&Source{
		Name:     "dawn",
		Headless: false,
		Selectors: fetch.Selectors{
			Title:         "h2.story__title a.story__link, h1.story__title",
			Body:          "div.story__content",
			Author:        "span.story__byline a",
			Published:     "span.story__time span.timestamp--time",
			PublishedAttr: "title",
			PublishedLayouts: []string{
				"2006-01-02T15:04:05-07:00",
				"2006-01-02T15:04:05Z07:00",
			},
			Image:      "figure.media picture img",
			ImageAttr:  "src",
			Tags:       "div.tags__item a",
			Categories: "div.template__header a.badge",
		},
		ArchiveURL: func(day harvest.Day) string {
			return fmt.Sprintf("https://www.dawn.com/archive/%s", day)
		},
		ArchiveLink: "article.story h2.story__title a.story__link",
	})
}
