// Package grabsome provides the public API for adaptive web content
// acquisition: fetch a URL over plain HTTP or through a headless browser,
// escalating automatically, and get back a normalized extracted document.
package grabsome

import (
	"log/slog"
	"time"

	"github.com/grabsome/grabsome/internal/fetch"
)

// Config holds all client configuration.
type Config struct {
	// Request defaults
	Mode             fetch.Mode
	Timeout          time.Duration
	MaxRetries       int
	MinContentLength int
	UserAgent        string
	Headers          map[string]string
	WaitSelector     string
	WaitIdle         time.Duration

	// Resource limits
	HTTPPoolSize    int
	BrowserPoolSize int
	AcquireTimeout  time.Duration
	MaxBodySize     int64

	// Normalization
	Readability bool

	// DisableRendering runs the client static-only; no browser is ever
	// started and auto-mode requests never escalate.
	DisableRendering bool

	// ChromePath overrides the browser binary location.
	ChromePath string

	// Logger routes engine logs through an existing slog setup.
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode:             fetch.ModeAuto,
		Timeout:          fetch.DefaultTimeout,
		MaxRetries:       fetch.DefaultMaxRetries,
		MinContentLength: fetch.DefaultMinContentLength,
		WaitIdle:         fetch.DefaultWaitIdle,
		HTTPPoolSize:     8,
		BrowserPoolSize:  2,
		AcquireTimeout:   15 * time.Second,
		MaxBodySize:      10 << 20,
	}
}

// Option configures the client.
type Option func(*Config)

// WithMode sets the default fetch mode (auto, static, dynamic).
func WithMode(mode fetch.Mode) Option {
	return func(c *Config) { c.Mode = mode }
}

// WithTimeout sets the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithMaxRetries sets how many times transient fetch failures are retried.
func WithMaxRetries(n int) Option {
	return func(c *Config) { c.MaxRetries = n }
}

// WithMinContentLength sets the plain-text length below which an auto-mode
// static result escalates to the renderer.
func WithMinContentLength(n int) Option {
	return func(c *Config) { c.MinContentLength = n }
}

// WithUserAgent pins the user agent instead of rotating the built-in list.
func WithUserAgent(ua string) Option {
	return func(c *Config) { c.UserAgent = ua }
}

// WithHeaders sets default request headers, e.g. auth headers supplied by
// the embedding application. Values are passed through opaquely.
func WithHeaders(headers map[string]string) Option {
	return func(c *Config) { c.Headers = headers }
}

// WithWaitSelector sets the CSS selector the renderer waits for.
func WithWaitSelector(selector string) Option {
	return func(c *Config) { c.WaitSelector = selector }
}

// WithWaitIdle sets the settle period after the wait selector is ready.
func WithWaitIdle(d time.Duration) Option {
	return func(c *Config) { c.WaitIdle = d }
}

// WithHTTPPoolSize bounds the pooled HTTP clients.
func WithHTTPPoolSize(n int) Option {
	return func(c *Config) { c.HTTPPoolSize = n }
}

// WithBrowserPoolSize bounds concurrent browser contexts.
func WithBrowserPoolSize(n int) Option {
	return func(c *Config) { c.BrowserPoolSize = n }
}

// WithAcquireTimeout bounds how long a request waits for a pooled resource.
func WithAcquireTimeout(d time.Duration) Option {
	return func(c *Config) { c.AcquireTimeout = d }
}

// WithMaxBodySize caps response body reads.
func WithMaxBodySize(n int64) Option {
	return func(c *Config) { c.MaxBodySize = n }
}

// WithReadability enables the boilerplate-removal pass during
// normalization.
func WithReadability(enabled bool) Option {
	return func(c *Config) { c.Readability = enabled }
}

// WithoutRendering disables the browser entirely. Static-only.
func WithoutRendering() Option {
	return func(c *Config) { c.DisableRendering = true }
}

// WithChromePath overrides the browser binary location.
func WithChromePath(path string) Option {
	return func(c *Config) { c.ChromePath = path }
}

// WithLogger routes engine logs through the given logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// RequestOption overrides client defaults for a single request.
type RequestOption func(*fetch.Request)

// Mode overrides the fetch mode for this request.
func Mode(mode fetch.Mode) RequestOption {
	return func(r *fetch.Request) { r.Mode = mode }
}

// Timeout overrides the request-level deadline.
func Timeout(d time.Duration) RequestOption {
	return func(r *fetch.Request) { r.Timeout = d }
}

// MaxRetries overrides the retry budget.
func MaxRetries(n int) RequestOption {
	return func(r *fetch.Request) { r.MaxRetries = n }
}

// MinContentLength overrides the escalation threshold.
func MinContentLength(n int) RequestOption {
	return func(r *fetch.Request) { r.MinContentLength = n }
}

// WaitFor sets the renderer's wait condition for this request.
func WaitFor(selector string, idle time.Duration) RequestOption {
	return func(r *fetch.Request) {
		r.Wait = fetch.WaitCondition{Selector: selector, Idle: idle}
	}
}

// Header adds a request header.
func Header(key, value string) RequestOption {
	return func(r *fetch.Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}
		r.Headers[key] = value
	}
}

// UserAgent pins the user agent for this request.
func UserAgent(ua string) RequestOption {
	return func(r *fetch.Request) { r.UserAgent = ua }
}
