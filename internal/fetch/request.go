// Package fetch implements the adaptive retrieval engine: mode selection,
// static HTTP fetching, browser rendering, and the orchestration between
// them.
package fetch

import (
	"fmt"
	"net/url"
	"time"
)

// Mode determines how a page is retrieved.
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeStatic  Mode = "static"
	ModeDynamic Mode = "dynamic"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAuto, ModeStatic, ModeDynamic:
		return Mode(s), nil
	case "":
		return ModeAuto, nil
	default:
		return "", fmt.Errorf("unknown fetch mode: %q (use auto, static, or dynamic)", s)
	}
}

// WaitCondition describes when a rendered page is considered ready.
type WaitCondition struct {
	// Selector is a CSS selector to wait for. Empty means "body".
	Selector string

	// Idle is an additional settle period after the selector is ready,
	// covering late-firing scripts and XHR-driven content.
	Idle time.Duration
}

// Request describes one retrieval. It is built once and never mutated.
type Request struct {
	URL              string
	Mode             Mode
	Timeout          time.Duration // request-level deadline
	MaxRetries       int           // attempt retries within a fetcher
	MinContentLength int           // auto mode: minimum plain-text length before escalating
	Wait             WaitCondition
	Headers          map[string]string
	UserAgent        string
}

// Default request parameters. The content threshold matches the point below
// which a static result is assumed to be a script-rendered shell.
const (
	DefaultTimeout          = 30 * time.Second
	DefaultMaxRetries       = 3
	DefaultMinContentLength = 200
	DefaultWaitIdle         = 500 * time.Millisecond
)

// Chrome user agent for better compatibility with bot-protected sites.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// defaultUserAgents is the rotation list for static fetching. A 403 moves
// the next attempt to the next agent.
var defaultUserAgents = []string{
	DefaultUserAgent,
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
}

// userAgentFor picks the agent for a given attempt, honoring an explicit
// request override.
func userAgentFor(req Request, attempt int) string {
	if req.UserAgent != "" {
		return req.UserAgent
	}
	return defaultUserAgents[attempt%len(defaultUserAgents)]
}

// NewRequest builds a validated request with defaults applied.
func NewRequest(rawURL string) (Request, error) {
	req := Request{
		URL:              rawURL,
		Mode:             ModeAuto,
		Timeout:          DefaultTimeout,
		MaxRetries:       DefaultMaxRetries,
		MinContentLength: DefaultMinContentLength,
		Wait:             WaitCondition{Idle: DefaultWaitIdle},
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate rejects requests that should never reach I/O.
func (r Request) Validate() error {
	u, err := url.Parse(r.URL)
	if err != nil {
		return newError(KindBadRequest, 0, fmt.Errorf("invalid URL %q: %w", r.URL, err))
	}
	if !u.IsAbs() {
		return newError(KindBadRequest, 0, fmt.Errorf("URL must be absolute: %q", r.URL))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return newError(KindBadRequest, 0, fmt.Errorf("unsupported scheme %q in %q", u.Scheme, r.URL))
	}
	if u.Host == "" {
		return newError(KindBadRequest, 0, fmt.Errorf("URL has no host: %q", r.URL))
	}
	if _, err := ParseMode(string(r.Mode)); err != nil {
		return newError(KindBadRequest, 0, err)
	}
	return nil
}

// withDefaults fills zero-valued fields so fetchers can rely on them.
func (r Request) withDefaults() Request {
	if r.Mode == "" {
		r.Mode = ModeAuto
	}
	if r.Timeout <= 0 {
		r.Timeout = DefaultTimeout
	}
	if r.MaxRetries < 0 {
		r.MaxRetries = 0
	}
	if r.MinContentLength <= 0 {
		r.MinContentLength = DefaultMinContentLength
	}
	if r.Wait.Idle < 0 {
		r.Wait.Idle = 0
	}
	return r
}
