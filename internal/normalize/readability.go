package normalize

import (
	"bytes"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/yosssi/gohtml"
	"golang.org/x/net/html"
)

// mainContent runs a Readability pass over the page, stripping navigation
// and boilerplate while keeping the article body. Returns false when no
// confident main content was found, in which case the caller keeps the full
// page.
func mainContent(htmlContent, pageURL string) (string, bool) {
	var base *url.URL
	if pageURL != "" {
		if parsed, err := url.Parse(pageURL); err == nil {
			base = parsed
		}
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(htmlContent), base)
	if err != nil || article.Node == nil {
		return "", false
	}

	var buf bytes.Buffer
	if err := article.RenderHTML(&buf); err != nil {
		// Fall back to rendering the node directly.
		var nodeBuf bytes.Buffer
		if err := html.Render(&nodeBuf, article.Node); err != nil {
			return "", false
		}
		return gohtml.Format(nodeBuf.String()), true
	}
	if buf.Len() == 0 {
		return "", false
	}
	return gohtml.Format(buf.String()), true
}
