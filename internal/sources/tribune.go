package sources

import (
	"fmt"

	"github.com/newsroomlab/harvester/internal/fetch"
	"github.com/newsroomlab/harvester/internal/harvest"
)

func init() {
	// tribune builds its story pages client-side, so it runs through
	// the browser fetcher.
	register(&Source{
		Name:     "tribune",
		Headless: true,
		Selectors: fetch.Selectors{
			Title:         "div.story-detail h1",
			Body:          "div.story-text",
			Author:        "div.author-box a.author-name",
			Published:     "div.story-detail span.left-authorbox meta[itemprop=datePublished]",
			PublishedAttr: "content",
			PublishedLayouts: []string{
				"2006-01-02T15:04:05-07:00",
				"2006-01-02",
			},
			Image:      "div.story-detail div.featured-image img",
			ImageAttr:  "src",
			Tags:       "div.tags-box a",
			Categories: "ol.breadcrumb li a",
		},
		ArchiveURL: func(day harvest.Day) string {
			t := day.Time()
			return fmt.Sprintf("https://tribune.com.pk/archives/%04d-%02d-%02d",
				t.Year(), int(t.Month()), t.Day())
		},
		ArchiveLink: "div.horiz-news3-caption a.title-heading, ul.tedit-shortnews li a",
	})
}
