package normalize

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// toMarkdown converts HTML to markdown, preserving headings, lists, links,
// and emphasis. Unsupported constructs degrade to their text content; if
// conversion fails entirely, the plain text stands in.
func toMarkdown(html, plainText string) string {
	out, err := md.ConvertString(html)
	if err != nil {
		return plainText
	}
	return tightenBlankLines(out)
}

// tightenBlankLines collapses runs of blank lines so the output never has
// more than one in a row.
func tightenBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var result []string
	blank := 0

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank++
			if blank <= 1 {
				result = append(result, "")
			}
			continue
		}
		blank = 0
		result = append(result, line)
	}

	return strings.TrimSpace(strings.Join(result, "\n"))
}
