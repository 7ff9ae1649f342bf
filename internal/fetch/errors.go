package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure. HTTP status codes are never a Kind: a
// 4xx/5xx response is surfaced as data on the RawDocument so callers can
// still attempt extraction or escalate.
type Kind int

const (
	// KindBadRequest means the request was rejected before any I/O
	// (malformed URL, unsupported scheme).
	KindBadRequest Kind = iota

	// KindNetwork is a connection-level transport failure (refused,
	// reset, DNS). Retryable.
	KindNetwork

	// KindTimeout means a request or attempt deadline was exceeded.
	// Retryable at attempt level, terminal at request level.
	KindTimeout

	// KindTransport is a non-retryable transport fault such as a TLS
	// handshake or certificate failure.
	KindTransport

	// KindRenderTimeout means the dynamic wait condition was never
	// satisfied. Retryable once with a fresh browser context.
	KindRenderTimeout

	// KindBrowserCrash means the underlying render process died. The
	// context is disposed; not retryable on that context.
	KindBrowserCrash

	// KindPoolExhausted means resource acquisition timed out. Signals
	// backpressure; not retryable within the request.
	KindPoolExhausted
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	case KindRenderTimeout:
		return "render_timeout"
	case KindBrowserCrash:
		return "browser_crash"
	case KindPoolExhausted:
		return "pool_exhausted"
	default:
		return "unknown"
	}
}

// Retryable reports whether another attempt within the same fetcher may
// succeed.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindTimeout, KindRenderTimeout:
		return true
	default:
		return false
	}
}

// Error is the terminal failure of a fetch request. Attempts records how
// many fetch attempts were made before giving up, for diagnosis without
// re-running.
type Error struct {
	Kind     Kind
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch failed (%s, %d attempts)", e.Kind, e.Attempts)
	}
	return fmt.Sprintf("fetch failed (%s, %d attempts): %v", e.Kind, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// newError wraps err with a kind and attempt count.
func newError(kind Kind, attempts int, err error) *Error {
	return &Error{Kind: kind, Attempts: attempts, Err: err}
}

// KindOf extracts the failure kind from an error chain. The second return
// is false when the error did not originate from this package.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}
