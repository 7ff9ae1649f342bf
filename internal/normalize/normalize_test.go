package normalize

import (
	"reflect"
	"strings"
	"testing"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Pool Sizing Guide</title>
  <link rel="canonical" href="https://example.com/guides/pools">
</head>
<body>
  <nav><a href="/">Home</a></nav>
  <h1>Pool Sizing</h1>
  <p>Pick a size that matches your workload, then measure.</p>
  <ul>
    <li>Start small</li>
    <li>Watch contention</li>
  </ul>
  <pre>pool.New(cfg)</pre>
  <table>
    <tr><th>Size</th><th>Latency</th></tr>
    <tr><td>2</td><td>high</td></tr>
  </table>
  <script>trackPageView()</script>
  <footer>Copyright</footer>
</body>
</html>`

func normalizeHTML(t *testing.T, html string, cfg Config) *ExtractedDocument {
	t.Helper()
	return New(cfg).Normalize(Source{
		URL:         "https://example.com/guides/pools?ref=x",
		FinalURL:    "https://example.com/guides/pools?ref=x",
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(html),
	})
}

func TestNormalize_Article(t *testing.T) {
	doc := normalizeHTML(t, articleHTML, Config{})

	if doc.Title != "Pool Sizing Guide" {
		t.Errorf("Title = %q, want %q", doc.Title, "Pool Sizing Guide")
	}
	if doc.CanonicalURL != "https://example.com/guides/pools" {
		t.Errorf("CanonicalURL = %q, want the rel=canonical link", doc.CanonicalURL)
	}
	if doc.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", doc.StatusCode)
	}

	if !strings.Contains(doc.PlainText, "Pick a size that matches your workload") {
		t.Errorf("PlainText missing paragraph text: %q", doc.PlainText)
	}
	if strings.Contains(doc.PlainText, "trackPageView") {
		t.Errorf("PlainText contains script text: %q", doc.PlainText)
	}
	if strings.Contains(doc.PlainText, "Copyright") {
		t.Errorf("PlainText contains footer chrome: %q", doc.PlainText)
	}
}

func TestNormalize_Blocks(t *testing.T) {
	doc := normalizeHTML(t, articleHTML, Config{})

	want := []Block{
		{Kind: BlockHeading, Content: "Pool Sizing"},
		{Kind: BlockParagraph, Content: "Pick a size that matches your workload, then measure."},
		{Kind: BlockList, Content: "- Start small\n- Watch contention"},
		{Kind: BlockCode, Content: "pool.New(cfg)"},
		{Kind: BlockTable, Content: "Size | Latency\n2 | high"},
	}
	if !reflect.DeepEqual(doc.Blocks, want) {
		t.Errorf("Blocks mismatch:\n got  %#v\n want %#v", doc.Blocks, want)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	first := normalizeHTML(t, articleHTML, Config{})
	second := normalizeHTML(t, articleHTML, Config{})
	if !reflect.DeepEqual(first, second) {
		t.Error("Normalize() is not deterministic for identical input")
	}
}

func TestNormalize_TitleFallsBackToHeading(t *testing.T) {
	doc := normalizeHTML(t, "<html><body><h1>Only Heading</h1><p>text</p></body></html>", Config{})
	if doc.Title != "Only Heading" {
		t.Errorf("Title = %q, want first heading", doc.Title)
	}
}

func TestNormalize_NoTitleAnywhere(t *testing.T) {
	doc := normalizeHTML(t, "<html><body><p>anonymous page</p></body></html>", Config{})
	if doc.Title != "" {
		t.Errorf("Title = %q, want empty", doc.Title)
	}
}

func TestNormalize_NestedBlocksNotDuplicated(t *testing.T) {
	html := `<html><body><table><tr><td><p>cell paragraph</p></td></tr></table></body></html>`
	doc := normalizeHTML(t, html, Config{})

	if len(doc.Blocks) != 1 {
		t.Fatalf("got %d blocks, want 1 (nested <p> belongs to the table): %#v", len(doc.Blocks), doc.Blocks)
	}
	if doc.Blocks[0].Kind != BlockTable {
		t.Errorf("Kind = %q, want table", doc.Blocks[0].Kind)
	}
}

func TestNormalize_ResolvesRelativeLinks(t *testing.T) {
	html := `<html><body>
		<a href="/about">About</a>
		<a href="deep/page">Deep</a>
		<a href="#section">Anchor</a>
		<a href="https://other.example.net/x">External</a>
	</body></html>`
	doc := New(Config{}).Normalize(Source{
		URL:        "https://example.com/guides/pools",
		StatusCode: 200,
		Body:       []byte(html),
	})

	want := []string{
		"https://example.com/about",
		"https://example.com/guides/deep/page",
		"https://other.example.net/x",
	}
	if !reflect.DeepEqual(doc.Links, want) {
		t.Errorf("Links = %v, want %v", doc.Links, want)
	}
}

func TestNormalize_MalformedInputDoesNotPanic(t *testing.T) {
	inputs := map[string][]byte{
		"empty":           nil,
		"binary":          {0x89, 0x50, 0x4e, 0x47, 0x00, 0x01, 0x02},
		"truncated_tag":   []byte("<html><body><p>unclosed"),
		"not_html_at_all": []byte("just some plain text with no markup"),
		"invalid_utf8":    {0xff, 0xfe, 0xfd, '<', 'p', '>'},
	}

	n := New(Config{})
	for name, body := range inputs {
		t.Run(name, func(t *testing.T) {
			doc := n.Normalize(Source{URL: "https://example.com/", StatusCode: 200, Body: body})
			if doc == nil {
				t.Fatal("Normalize() returned nil")
			}
			if doc.StatusCode != 200 {
				t.Errorf("StatusCode = %d, want 200", doc.StatusCode)
			}
		})
	}
}

func TestNormalize_PlainTextInputSurvives(t *testing.T) {
	doc := New(Config{}).Normalize(Source{
		URL:        "https://example.com/robots.txt",
		StatusCode: 200,
		Body:       []byte("User-agent: *\nDisallow: /private"),
	})
	if !strings.Contains(doc.PlainText, "Disallow: /private") {
		t.Errorf("PlainText = %q, want raw text preserved", doc.PlainText)
	}
}

func TestNormalize_Markdown(t *testing.T) {
	doc := normalizeHTML(t, articleHTML, Config{})

	if !strings.Contains(doc.Markdown, "# Pool Sizing") {
		t.Errorf("Markdown missing heading:\n%s", doc.Markdown)
	}
	if !strings.Contains(doc.Markdown, "Start small") {
		t.Errorf("Markdown missing list item:\n%s", doc.Markdown)
	}
}

func TestNormalize_CanonicalFallsBackToFinalURL(t *testing.T) {
	doc := New(Config{}).Normalize(Source{
		URL:        "https://example.com/a",
		FinalURL:   "https://example.com/b",
		StatusCode: 200,
		Body:       []byte("<html><body><p>moved</p></body></html>"),
	})
	if doc.CanonicalURL != "https://example.com/b" {
		t.Errorf("CanonicalURL = %q, want the post-redirect URL", doc.CanonicalURL)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	got := collapseWhitespace("  a\n\n\t b \r\n c  ")
	if got != "a b c" {
		t.Errorf("collapseWhitespace() = %q, want %q", got, "a b c")
	}
}
