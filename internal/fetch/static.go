package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/grabsome/grabsome/internal/logger"
	"github.com/grabsome/grabsome/internal/pool"
)

// StaticConfig holds configuration for the static fetcher.
type StaticConfig struct {
	// MaxBodySize caps how many response bytes are read. Zero means the
	// default of 10 MiB.
	MaxBodySize int64

	// PoolSize bounds the number of pooled HTTP clients. Clients are
	// cheap, so this can be larger than the browser pool.
	PoolSize int

	// AcquireTimeout bounds waiting for a pooled client.
	AcquireTimeout time.Duration

	// Backoff parameters for retrying transient failures.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// DefaultStaticConfig returns sensible defaults.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		MaxBodySize:    10 << 20,
		PoolSize:       8,
		AcquireTimeout: 15 * time.Second,
		BackoffInitial: 500 * time.Millisecond,
		BackoffMax:     5 * time.Second,
	}
}

// errForbidden marks a 403 attempt so the retry loop rotates user agents
// before surfacing the response as data.
var errForbidden = errors.New("403 forbidden")

// StaticFetcher retrieves pages over plain HTTP with connection reuse,
// per-attempt retry, and exponential backoff with jitter. HTTP status codes
// >= 400 are returned as data on the RawDocument, never as errors.
type StaticFetcher struct {
	cfg     StaticConfig
	clients *pool.Pool[*http.Client]
}

// NewStatic creates a static fetcher backed by a pool of HTTP clients.
func NewStatic(cfg StaticConfig) (*StaticFetcher, error) {
	def := DefaultStaticConfig()
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = def.MaxBodySize
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = def.PoolSize
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = def.AcquireTimeout
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = def.BackoffInitial
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = def.BackoffMax
	}

	poolCfg := pool.DefaultConfig("http")
	poolCfg.MaxSize = cfg.PoolSize
	poolCfg.AcquireTimeout = cfg.AcquireTimeout

	clients, err := pool.New(poolCfg,
		func(_ context.Context) (*http.Client, error) {
			return &http.Client{
				Transport: &http.Transport{
					Proxy:               http.ProxyFromEnvironment,
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 10,
					IdleConnTimeout:     90 * time.Second,
				},
			}, nil
		},
		func(_ *http.Client) error { return nil },
		func(c *http.Client) { c.CloseIdleConnections() },
	)
	if err != nil {
		return nil, err
	}

	return &StaticFetcher{cfg: cfg, clients: clients}, nil
}

// Fetch retrieves the request's URL, retrying transient failures up to
// req.MaxRetries times with exponential backoff and jitter.
func (f *StaticFetcher) Fetch(ctx context.Context, req Request) (*RawDocument, error) {
	req = req.withDefaults()

	res, err := f.clients.Acquire(ctx)
	if err != nil {
		if errors.Is(err, pool.ErrExhausted) {
			return nil, newError(KindPoolExhausted, 0, err)
		}
		return nil, newError(KindNetwork, 0, err)
	}
	healthy := true
	defer func() { f.clients.Release(res, healthy) }()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.cfg.BackoffInitial
	b.MaxInterval = f.cfg.BackoffMax
	bo := backoff.WithContext(backoff.WithMaxRetries(b, uint64(req.MaxRetries)), ctx)

	var (
		doc       *RawDocument
		forbidden *RawDocument
		attempts  int
	)

	op := func() error {
		attempt := attempts
		attempts++

		d, err := f.attempt(ctx, res.Value(), req, attempt)
		if err != nil {
			kind := classifyTransportError(err)
			logger.Debug("static fetch attempt failed",
				"url", req.URL, "attempt", attempts, "kind", kind.String(), "error", err)
			if kind == KindTransport {
				healthy = false
			}
			if kind.Retryable() {
				return err
			}
			return backoff.Permanent(err)
		}

		if d.StatusCode == http.StatusForbidden && attempts <= req.MaxRetries {
			// Rotate to the next user agent before accepting the block.
			forbidden = d
			return errForbidden
		}

		doc = d
		return nil
	}

	err = backoff.Retry(op, bo)
	if err != nil {
		if forbidden != nil {
			// Every agent was refused; the 403 response is still data.
			return forbidden, nil
		}
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		kind := classifyTransportError(err)
		return nil, newError(kind, attempts, err)
	}

	logger.Debug("static fetch complete",
		"url", req.URL, "status", doc.StatusCode, "bytes", len(doc.Body),
		"attempts", attempts, "elapsed", doc.Elapsed)
	return doc, nil
}

// attempt performs a single HTTP GET.
func (f *StaticFetcher) attempt(ctx context.Context, client *http.Client, req Request, attempt int) (*RawDocument, error) {
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("building request: %w", err))
	}
	httpReq.Header.Set("User-Agent", userAgentFor(req, attempt))
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &RawDocument{
		SourceURL:   req.URL,
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		ModeUsed:    ModeStatic,
		Elapsed:     time.Since(start),
	}, nil
}

// Pool exposes the client pool for introspection.
func (f *StaticFetcher) Pool() *pool.Pool[*http.Client] { return f.clients }

// Close disposes the client pool.
func (f *StaticFetcher) Close() {
	f.clients.Close()
}

// classifyTransportError maps a transport-level error onto the failure
// taxonomy. HTTP statuses never reach here.
func classifyTransportError(err error) Kind {
	if err == nil {
		return KindNetwork
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var (
		certErr     *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
	)
	if errors.As(err, &certErr) || errors.As(err, &recordErr) ||
		errors.As(err, &unknownAuth) || errors.As(err, &hostErr) {
		return KindTransport
	}

	return KindNetwork
}
