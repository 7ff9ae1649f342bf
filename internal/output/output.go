// Package output renders extracted documents to the supported formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/grabsome/grabsome/internal/normalize"
)

// Format represents output format types.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat validates a format string.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON, FormatYAML, FormatText, FormatMarkdown, FormatHTML:
		return Format(strings.ToLower(s)), nil
	case "":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown output format: %q (use json, yaml, text, markdown, or html)", s)
	}
}

// Extension returns the file extension for a format.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	case FormatText:
		return ".txt"
	case FormatHTML:
		return ".html"
	default:
		return ".md"
	}
}

// Render writes a document to w in the given format.
func Render(w io.Writer, doc *normalize.ExtractedDocument, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(doc)
	case FormatText:
		_, err := io.WriteString(w, doc.PlainText+"\n")
		return err
	case FormatHTML:
		_, err := io.WriteString(w, doc.RawHTML)
		return err
	case FormatMarkdown:
		_, err := io.WriteString(w, doc.Markdown+"\n")
		return err
	default:
		return fmt.Errorf("unknown output format: %q", format)
	}
}

// WriteFile renders a document to a file, appending the format's extension
// when the path has none. Returns the path written.
func WriteFile(path string, doc *normalize.ExtractedDocument, format Format) (string, error) {
	if filepath.Ext(path) == "" {
		path += format.Extension()
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	if err := Render(f, doc, format); err != nil {
		return "", fmt.Errorf("writing output file: %w", err)
	}
	return path, nil
}
