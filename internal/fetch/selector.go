package fetch

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EscalationTrigger says when a plan may upgrade from static to dynamic
// retrieval.
type EscalationTrigger string

const (
	EscalateNever        EscalationTrigger = "none"
	EscalateInsufficient EscalationTrigger = "insufficient_content"
)

// Plan is the selector's decision for a request. Escalation happens at most
// once per request.
type Plan struct {
	Primary    Mode
	EscalateOn EscalationTrigger
}

// Decide picks the retrieval plan for a request. Explicit mode hints are
// honored exactly; auto starts with the cheaper static path and escalates
// when the result looks insufficient. Pure function, no I/O.
func Decide(req Request) Plan {
	switch req.Mode {
	case ModeStatic:
		return Plan{Primary: ModeStatic, EscalateOn: EscalateNever}
	case ModeDynamic:
		return Plan{Primary: ModeDynamic, EscalateOn: EscalateNever}
	default:
		return Plan{Primary: ModeStatic, EscalateOn: EscalateInsufficient}
	}
}

// spaMarkers are root-element shells left by client-side frameworks before
// hydration.
var spaMarkers = []string{
	`<div id="root"></div>`,     // React
	`<div id="app"></div>`,      // Vue
	`<app-root></app-root>`,     // Angular
	`<div id="__next"></div>`,   // Next.js
	`<div id="__nuxt"></div>`,   // Nuxt.js
	`<div data-reactroot`,       // React (SSR placeholder)
	`ng-app`,                    // Angular
	`v-cloak`,                   // Vue
}

// noscriptHints indicate the noscript fallback is warning about required
// JavaScript rather than carrying real content.
var noscriptHints = []string{"javascript", "enable", "required", "browser"}

// InsufficientContent reports whether a static result is too thin to accept
// and should be re-fetched through the renderer. It considers the visible
// text length against minLength, SPA shell markers, noscript warnings, and
// a 403 block (sites that reject plain HTTP clients often serve real pages
// to a browser). Pure function over the document.
func InsufficientContent(doc *RawDocument, minLength int) bool {
	if doc == nil {
		return true
	}
	if doc.StatusCode == http.StatusForbidden {
		return true
	}

	html := strings.ToLower(string(doc.Body))
	for _, marker := range spaMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}

	if idx := strings.Index(html, "<noscript>"); idx >= 0 {
		if end := strings.Index(html[idx:], "</noscript>"); end > 0 {
			inner := html[idx+len("<noscript>") : idx+end]
			for _, hint := range noscriptHints {
				if strings.Contains(inner, hint) {
					return true
				}
			}
		}
	}

	return visibleTextLength(doc.Body) < minLength
}

// visibleTextLength measures the page's human-visible text, skipping script,
// style, and embedded non-content elements.
func visibleTextLength(body []byte) int {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return len(strings.TrimSpace(string(body)))
	}
	doc.Find("script, style, noscript, iframe, svg").Remove()
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	return len(text)
}
