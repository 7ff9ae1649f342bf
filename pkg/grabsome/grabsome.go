package grabsome

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/grabsome/grabsome/internal/fetch"
	"github.com/grabsome/grabsome/internal/logger"
	"github.com/grabsome/grabsome/internal/normalize"
	"github.com/grabsome/grabsome/internal/pool"
)

// Re-exported types so callers rarely need the internal packages directly.
type (
	// ExtractedDocument is the normalized result of a fetch.
	ExtractedDocument = normalize.ExtractedDocument

	// Block is one structured content segment.
	Block = normalize.Block

	// FetchError is the typed failure of a request. Check with errors.As
	// and inspect Kind and Attempts.
	FetchError = fetch.Error

	// ErrorKind classifies a failure.
	ErrorKind = fetch.Kind
)

// Fetch modes.
const (
	ModeAuto    = fetch.ModeAuto
	ModeStatic  = fetch.ModeStatic
	ModeDynamic = fetch.ModeDynamic
)

// Failure kinds.
const (
	KindBadRequest    = fetch.KindBadRequest
	KindNetwork       = fetch.KindNetwork
	KindTimeout       = fetch.KindTimeout
	KindTransport     = fetch.KindTransport
	KindRenderTimeout = fetch.KindRenderTimeout
	KindBrowserCrash  = fetch.KindBrowserCrash
	KindPoolExhausted = fetch.KindPoolExhausted
)

// Version returns the module version consumers pulled via go get.
// Returns "(devel)" when built from source without version info.
func Version() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.Main.Version
	}
	return "(unknown)"
}

// Client is the main entry point. It owns the resource pools and must be
// closed when done; one client is intended to serve many concurrent
// requests.
type Client struct {
	cfg          Config
	static       *fetch.StaticFetcher
	dynamic      *fetch.DynamicRenderer
	orchestrator *fetch.Orchestrator
}

// New creates a client. The browser starts lazily with the first request
// that needs rendering.
func New(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Logger != nil {
		logger.SetLogger(cfg.Logger)
	}

	static, err := fetch.NewStatic(fetch.StaticConfig{
		MaxBodySize:    cfg.MaxBodySize,
		PoolSize:       cfg.HTTPPoolSize,
		AcquireTimeout: cfg.AcquireTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating static fetcher: %w", err)
	}

	var dynamic *fetch.DynamicRenderer
	if !cfg.DisableRendering {
		dynamic, err = fetch.NewDynamic(fetch.DynamicConfig{
			PoolSize:       cfg.BrowserPoolSize,
			AcquireTimeout: cfg.AcquireTimeout,
			UserAgent:      cfg.UserAgent,
			ExecPath:       cfg.ChromePath,
		})
		if err != nil {
			static.Close()
			return nil, fmt.Errorf("creating dynamic renderer: %w", err)
		}
	}

	normalizer := normalize.New(normalize.Config{Readability: cfg.Readability})

	return &Client{
		cfg:          cfg,
		static:       static,
		dynamic:      dynamic,
		orchestrator: newOrchestrator(static, dynamic, normalizer),
	}, nil
}

// newOrchestrator avoids handing the orchestrator a typed-nil renderer.
func newOrchestrator(static *fetch.StaticFetcher, dynamic *fetch.DynamicRenderer, n *normalize.Normalizer) *fetch.Orchestrator {
	if dynamic == nil {
		return fetch.NewOrchestrator(static, nil, n)
	}
	return fetch.NewOrchestrator(static, dynamic, n)
}

// Fetch retrieves and extracts a single URL. On failure the returned error
// is a *FetchError carrying the kind, message, and attempts made.
func (c *Client) Fetch(ctx context.Context, url string, opts ...RequestOption) (*ExtractedDocument, error) {
	req := fetch.Request{
		URL:              url,
		Mode:             c.cfg.Mode,
		Timeout:          c.cfg.Timeout,
		MaxRetries:       c.cfg.MaxRetries,
		MinContentLength: c.cfg.MinContentLength,
		UserAgent:        c.cfg.UserAgent,
		Wait: fetch.WaitCondition{
			Selector: c.cfg.WaitSelector,
			Idle:     c.cfg.WaitIdle,
		},
	}
	if len(c.cfg.Headers) > 0 {
		req.Headers = make(map[string]string, len(c.cfg.Headers))
		for k, v := range c.cfg.Headers {
			req.Headers[k] = v
		}
	}
	for _, opt := range opts {
		opt(&req)
	}

	return c.orchestrator.Run(ctx, req)
}

// PoolStats reports current resource pool occupancy.
type PoolStats struct {
	HTTP    pool.Stats
	Browser pool.Stats
}

// Stats returns a snapshot of the client's resource pools.
func (c *Client) Stats() PoolStats {
	stats := PoolStats{HTTP: c.static.Pool().Stats()}
	if c.dynamic != nil {
		stats.Browser = c.dynamic.Pool().Stats()
	}
	return stats
}

// Close releases all pooled resources, including any running browser.
func (c *Client) Close() error {
	c.static.Close()
	if c.dynamic != nil {
		c.dynamic.Close()
	}
	return nil
}

// Fetch is a convenience for one-shot use: it creates a client, fetches the
// URL, and tears everything down. Prefer a long-lived Client for batches.
func Fetch(ctx context.Context, url string, opts ...Option) (*ExtractedDocument, error) {
	client, err := New(opts...)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return client.Fetch(ctx, url)
}
