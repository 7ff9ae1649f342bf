package fetch

import "time"

// RawDocument is the result of one successful retrieval attempt. It is
// produced exactly once and never mutated afterwards; the normalizer derives
// everything else from it.
type RawDocument struct {
	// SourceURL is the URL as requested.
	SourceURL string

	// FinalURL is the URL after redirects. Equal to SourceURL when no
	// redirect occurred.
	FinalURL string

	// StatusCode is the HTTP status of the main document. Codes >= 400
	// are data, not failures.
	StatusCode int

	// Body is the raw response body or rendered DOM serialization.
	Body []byte

	// ContentType is the declared Content-Type header, when known.
	ContentType string

	// ModeUsed records which retrieval path produced this document.
	ModeUsed Mode

	// Elapsed is the wall time of the successful attempt.
	Elapsed time.Duration
}
