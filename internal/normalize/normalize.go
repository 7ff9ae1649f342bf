// Package normalize converts raw retrieved documents into a canonical
// extracted representation: title, plain text, markdown, and structured
// blocks. Normalization is pure and total: the same input always yields the
// same output, and malformed input degrades instead of failing.
package normalize

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// Source is the raw material for normalization, decoupled from how it was
// fetched.
type Source struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
}

// BlockKind tags a structured block by semantic role.
type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockList      BlockKind = "list"
	BlockCode      BlockKind = "code"
	BlockTable     BlockKind = "table"
)

// Block is one content segment in document order.
type Block struct {
	Kind    BlockKind `json:"kind" yaml:"kind"`
	Content string    `json:"content" yaml:"content"`
}

// ExtractedDocument is the normalized, engine-agnostic representation of a
// page used by all downstream consumers.
type ExtractedDocument struct {
	CanonicalURL string  `json:"canonical_url" yaml:"canonical_url"`
	Title        string  `json:"title" yaml:"title"`
	PlainText    string  `json:"plain_text" yaml:"plain_text"`
	Markdown     string  `json:"markdown" yaml:"markdown"`
	Blocks       []Block `json:"blocks" yaml:"blocks"`
	Links        []string `json:"links,omitempty" yaml:"links,omitempty"`
	StatusCode   int     `json:"status_code" yaml:"status_code"`
	RawHTML      string  `json:"-" yaml:"-"`
}

// Config controls normalization.
type Config struct {
	// Readability runs a boilerplate-removal pass over article-like pages
	// before deriving plain text and markdown.
	Readability bool
}

// Normalizer derives ExtractedDocuments from raw pages. Stateless; safe for
// concurrent use.
type Normalizer struct {
	cfg Config
}

// New creates a normalizer.
func New(cfg Config) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// boilerplateSelector matches elements excluded from text extraction: code
// carriers and navigation chrome.
const boilerplateSelector = "script, style, noscript, iframe, svg, nav, header, footer, aside"

// Normalize converts a source into an extracted document. It never fails:
// unparseable input yields best-effort plain text and no blocks.
func (n *Normalizer) Normalize(src Source) *ExtractedDocument {
	out := &ExtractedDocument{
		CanonicalURL: canonicalBase(src),
		StatusCode:   src.StatusCode,
		RawHTML:      string(src.Body),
	}

	htmlStr, ok := decode(src.Body, src.ContentType)
	if !ok {
		return out
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		out.PlainText = collapseWhitespace(htmlStr)
		return out
	}

	if canonical := strings.TrimSpace(doc.Find(`link[rel="canonical"]`).First().AttrOr("href", "")); canonical != "" {
		out.CanonicalURL = canonical
	}
	out.Title = extractTitle(doc)
	out.Links = resolveLinks(doc, out.CanonicalURL)

	content := htmlStr
	if n.cfg.Readability {
		if main, ok := mainContent(htmlStr, out.CanonicalURL); ok {
			content = main
			if contentDoc, err := goquery.NewDocumentFromReader(strings.NewReader(main)); err == nil {
				doc = contentDoc
			}
		}
	}

	doc.Find(boilerplateSelector).Remove()

	out.PlainText = extractText(doc)
	out.Blocks = extractBlocks(doc)
	out.Markdown = toMarkdown(content, out.PlainText)

	return out
}

// canonicalBase picks the pre-parse canonical URL: post-redirect location
// when known, the requested URL otherwise.
func canonicalBase(src Source) string {
	if src.FinalURL != "" {
		return src.FinalURL
	}
	return src.URL
}

// decode converts the body to UTF-8 using the declared or sniffed encoding.
// Returns false for input that is clearly not text.
func decode(body []byte, contentType string) (string, bool) {
	if len(body) == 0 {
		return "", false
	}
	if bytes.IndexByte(body[:min(len(body), 1024)], 0x00) >= 0 {
		// NUL bytes mean binary content; there is no text to extract.
		return "", false
	}

	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		if utf8.Valid(body) {
			return string(body), true
		}
		return "", false
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return string(body), true
	}
	return buf.String(), true
}

// extractTitle reads the document title, falling back to the first heading.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return ""
}

// extractText walks the body and joins visible text with normalized
// whitespace.
func extractText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		return collapseWhitespace(doc.Text())
	}

	var parts []string
	body.Each(func(_ int, s *goquery.Selection) {
		if text := collapseWhitespace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n")
}

// blockSelector enumerates the elements that become structured blocks.
const blockSelector = "h1, h2, h3, h4, h5, h6, p, ul, ol, pre, table"

// extractBlocks segments content by semantic role in document order.
func extractBlocks(doc *goquery.Document) []Block {
	var blocks []Block

	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		// Elements nested inside another block element are part of that
		// block's content, not blocks of their own.
		if s.ParentsFiltered(blockSelector).Length() > 0 {
			return
		}

		node := goquery.NodeName(s)
		switch node {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			if text := collapseWhitespace(s.Text()); text != "" {
				blocks = append(blocks, Block{Kind: BlockHeading, Content: text})
			}
		case "p":
			if text := collapseWhitespace(s.Text()); text != "" {
				blocks = append(blocks, Block{Kind: BlockParagraph, Content: text})
			}
		case "ul", "ol":
			if items := listItems(s); items != "" {
				blocks = append(blocks, Block{Kind: BlockList, Content: items})
			}
		case "pre":
			if text := strings.TrimSpace(s.Text()); text != "" {
				blocks = append(blocks, Block{Kind: BlockCode, Content: text})
			}
		case "table":
			if rows := tableRows(s); rows != "" {
				blocks = append(blocks, Block{Kind: BlockTable, Content: rows})
			}
		}
	})

	return blocks
}

func listItems(s *goquery.Selection) string {
	var items []string
	s.Find("li").Each(func(_ int, li *goquery.Selection) {
		if text := collapseWhitespace(li.Text()); text != "" {
			items = append(items, "- "+text)
		}
	})
	return strings.Join(items, "\n")
}

func tableRows(s *goquery.Selection) string {
	var rows []string
	s.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, collapseWhitespace(cell.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, strings.Join(cells, " | "))
		}
	})
	return strings.Join(rows, "\n")
}

// collapseWhitespace normalizes runs of whitespace to single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
