package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/grabsome/grabsome/internal/logger"
	"github.com/grabsome/grabsome/internal/pool"
)

// DynamicConfig holds configuration for the browser-based renderer.
type DynamicConfig struct {
	// PoolSize bounds concurrent browser tabs. Browser contexts are the
	// dominant resource cost, so keep this small.
	PoolSize int

	// AcquireTimeout bounds waiting for a free tab.
	AcquireTimeout time.Duration

	// UserAgent is applied at the browser level.
	UserAgent string

	// ExecPath overrides the Chrome binary location.
	ExecPath string

	// SweepInterval and IdleThreshold control disposal of long-idle tabs.
	SweepInterval time.Duration
	IdleThreshold time.Duration
}

// DefaultDynamicConfig returns sensible defaults.
func DefaultDynamicConfig() DynamicConfig {
	return DynamicConfig{
		PoolSize:       2,
		AcquireTimeout: 15 * time.Second,
		UserAgent:      DefaultUserAgent,
		SweepInterval:  30 * time.Second,
		IdleThreshold:  2 * time.Minute,
	}
}

// browserTab is one pooled browser execution context.
type browserTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// DynamicRenderer loads pages in a headless browser so script-driven content
// materializes before capture. Tabs are borrowed from a bounded pool and
// always returned, marked unhealthy when their session state is suspect.
type DynamicRenderer struct {
	cfg         DynamicConfig
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	tabs        *pool.Pool[*browserTab]
}

// NewDynamic creates a renderer with a shared browser process allocator.
// The browser itself starts lazily with the first pooled tab.
func NewDynamic(cfg DynamicConfig) (*DynamicRenderer, error) {
	def := DefaultDynamicConfig()
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = def.PoolSize
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = def.AcquireTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.IdleThreshold <= 0 {
		cfg.IdleThreshold = def.IdleThreshold
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	r := &DynamicRenderer{
		cfg:         cfg,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
	}

	poolCfg := pool.Config{
		Name:           "browser",
		MaxSize:        cfg.PoolSize,
		AcquireTimeout: cfg.AcquireTimeout,
		SweepInterval:  cfg.SweepInterval,
		IdleThreshold:  cfg.IdleThreshold,
	}
	tabs, err := pool.New(poolCfg, r.newTab, probeTab, disposeTab)
	if err != nil {
		cancelAlloc()
		return nil, err
	}
	r.tabs = tabs

	logger.Debug("dynamic renderer created",
		"pool_size", cfg.PoolSize, "user_agent", cfg.UserAgent)
	return r, nil
}

// newTab opens a fresh browser tab and verifies the browser started.
func (r *DynamicRenderer) newTab(_ context.Context) (*browserTab, error) {
	ctx, cancel := chromedp.NewContext(r.allocCtx)
	// An empty Run starts the browser and surfaces launch failures here
	// instead of mid-navigation.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}
	return &browserTab{ctx: ctx, cancel: cancel}, nil
}

func probeTab(t *browserTab) error {
	return t.ctx.Err()
}

func disposeTab(t *browserTab) {
	t.cancel()
}

// Render loads the request's URL, waits for the readiness condition, and
// captures the rendered DOM. A navigation timeout is retried once with a
// fresh tab; the timed-out tab is returned unhealthy so the pool disposes it.
func (r *DynamicRenderer) Render(ctx context.Context, req Request) (*RawDocument, error) {
	req = req.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		res, err := r.tabs.Acquire(ctx)
		if err != nil {
			if errors.Is(err, pool.ErrExhausted) {
				return nil, newError(KindPoolExhausted, attempt-1, err)
			}
			if errors.Is(err, pool.ErrClosed) {
				return nil, newError(KindBrowserCrash, attempt-1, err)
			}
			// Factory failure: the browser could not start.
			return nil, newError(KindBrowserCrash, attempt-1, err)
		}

		doc, healthy, err := r.renderOnce(ctx, res.Value(), req)
		r.tabs.Release(res, healthy)
		if err == nil {
			logger.Debug("dynamic render complete",
				"url", req.URL, "status", doc.StatusCode,
				"bytes", len(doc.Body), "attempt", attempt, "elapsed", doc.Elapsed)
			return doc, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, newError(KindTimeout, attempt, ctx.Err())
		}

		kind := classifyRenderError(err)
		logger.Debug("dynamic render attempt failed",
			"url", req.URL, "attempt", attempt, "kind", kind.String(), "error", err)
		if kind == KindRenderTimeout && attempt == 1 {
			continue
		}
		return nil, newError(kind, attempt, err)
	}

	return nil, newError(KindRenderTimeout, 2, lastErr)
}

// renderOnce runs one navigation on a borrowed tab. The healthy return says
// whether the tab may go back to the idle set.
func (r *DynamicRenderer) renderOnce(ctx context.Context, tab *browserTab, req Request) (*RawDocument, bool, error) {
	start := time.Now()

	tabCtx, cancel := context.WithTimeout(tab.ctx, req.Timeout)
	defer cancel()

	// Propagate caller cancellation into the browser context so an aborted
	// request does not keep navigating.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var status int
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if resp, ok := ev.(*network.EventResponseReceived); ok &&
			resp.Type == network.ResourceTypeDocument {
			status = int(resp.Response.Status)
		}
	})

	actions := []chromedp.Action{network.Enable()}

	if len(req.Headers) > 0 {
		headers := make(network.Headers, len(req.Headers))
		for k, v := range req.Headers {
			headers[k] = v
		}
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}

	actions = append(actions, chromedp.Navigate(req.URL))

	selector := req.Wait.Selector
	if selector == "" {
		// WaitVisible has a bug causing infinite polling; WaitReady is safe.
		selector = "body"
	}
	actions = append(actions, chromedp.WaitReady(selector))

	if req.Wait.Idle > 0 {
		actions = append(actions, chromedp.Sleep(req.Wait.Idle))
	}

	var html, location string
	actions = append(actions,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html),
	)

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if tab.ctx.Err() != nil {
			return nil, false, fmt.Errorf("browser context died: %w", err)
		}
		// A tab interrupted mid-navigation carries unknown page state.
		return nil, false, err
	}

	if status == 0 {
		status = 200
	}
	if location == "" {
		location = req.URL
	}

	return &RawDocument{
		SourceURL:   req.URL,
		FinalURL:    location,
		StatusCode:  status,
		Body:        []byte(html),
		ContentType: "text/html; charset=utf-8",
		ModeUsed:    ModeDynamic,
		Elapsed:     time.Since(start),
	}, true, nil
}

// Pool exposes the tab pool for introspection.
func (r *DynamicRenderer) Pool() *pool.Pool[*browserTab] { return r.tabs }

// Close disposes all tabs and shuts the browser down.
func (r *DynamicRenderer) Close() {
	r.tabs.Close()
	r.cancelAlloc()
}

// classifyRenderError maps a chromedp failure onto the taxonomy.
func classifyRenderError(err error) Kind {
	if err == nil {
		return KindBrowserCrash
	}
	if strings.Contains(err.Error(), "browser context died") {
		return KindBrowserCrash
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindRenderTimeout
	}
	if strings.Contains(err.Error(), "net::ERR") {
		return KindNetwork
	}
	return KindBrowserCrash
}
