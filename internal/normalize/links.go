package normalize

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// resolveLinks extracts hrefs in document order, resolving relative URLs
// against the page URL and skipping fragments.
func resolveLinks(doc *goquery.Document, pageURL string) []string {
	base, _ := url.Parse(pageURL)

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" || strings.HasPrefix(href, "#") {
			return
		}

		linkURL, err := url.Parse(href)
		if err != nil {
			return
		}
		if !linkURL.IsAbs() && base != nil {
			linkURL = base.ResolveReference(linkURL)
		}
		links = append(links, linkURL.String())
	})
	return links
}
