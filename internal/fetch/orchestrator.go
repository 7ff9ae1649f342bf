package fetch

import (
	"context"
	"errors"

	"github.com/grabsome/grabsome/internal/logger"
	"github.com/grabsome/grabsome/internal/normalize"
)

// staticFetcher and dynamicRenderer are the orchestrator's view of the two
// retrieval paths, narrowed for testability.
type staticFetcher interface {
	Fetch(ctx context.Context, req Request) (*RawDocument, error)
}

type dynamicRenderer interface {
	Render(ctx context.Context, req Request) (*RawDocument, error)
}

// Orchestrator composes selection, fetching, escalation, and normalization.
// Every request yields exactly one outcome: an extracted document or a typed
// *Error.
type Orchestrator struct {
	static     staticFetcher
	dynamic    dynamicRenderer // nil when rendering is unavailable
	normalizer *normalize.Normalizer
}

// NewOrchestrator wires the retrieval paths to a normalizer. The renderer
// may be nil; auto-mode requests then stay on the static path and
// dynamic-mode requests fail up front.
func NewOrchestrator(static staticFetcher, dynamic dynamicRenderer, n *normalize.Normalizer) *Orchestrator {
	o := &Orchestrator{static: static, normalizer: n}
	if dynamic != nil {
		o.dynamic = dynamic
	}
	return o
}

// Run drives one request through planning, fetching, at most one
// escalation, and normalization.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*normalize.ExtractedDocument, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.withDefaults()

	// Request-level deadline, distinct from per-attempt timeouts inside the
	// fetchers.
	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	plan := Decide(req)
	logger.Debug("request planned",
		"url", req.URL, "mode", plan.Primary, "escalate_on", plan.EscalateOn)

	raw, err := o.fetch(ctx, plan.Primary, req)
	if err != nil {
		return nil, o.failure(ctx, err)
	}

	if plan.EscalateOn == EscalateInsufficient && InsufficientContent(raw, req.MinContentLength) {
		if o.dynamic == nil {
			logger.Warn("content looks insufficient but rendering is unavailable; keeping static result",
				"url", req.URL, "status", raw.StatusCode)
		} else {
			logger.Debug("escalating to dynamic render",
				"url", req.URL, "status", raw.StatusCode, "min_content", req.MinContentLength)
			escalated, rerr := o.dynamic.Render(ctx, req)
			if rerr != nil {
				return nil, o.failure(ctx, rerr)
			}
			raw = escalated
		}
	}

	doc := o.normalizer.Normalize(normalize.Source{
		URL:         raw.SourceURL,
		FinalURL:    raw.FinalURL,
		StatusCode:  raw.StatusCode,
		ContentType: raw.ContentType,
		Body:        raw.Body,
	})

	logger.Debug("request complete",
		"url", req.URL, "mode_used", raw.ModeUsed, "status", raw.StatusCode,
		"text_len", len(doc.PlainText), "blocks", len(doc.Blocks))
	return doc, nil
}

// fetch dispatches to the planned retrieval path.
func (o *Orchestrator) fetch(ctx context.Context, mode Mode, req Request) (*RawDocument, error) {
	switch mode {
	case ModeDynamic:
		if o.dynamic == nil {
			return nil, newError(KindBrowserCrash, 0,
				errors.New("dynamic rendering requested but no renderer is configured"))
		}
		return o.dynamic.Render(ctx, req)
	default:
		return o.static.Fetch(ctx, req)
	}
}

// failure finalizes an error, mapping request-level cancellation to a
// timeout outcome regardless of what the aborted attempt reported.
func (o *Orchestrator) failure(ctx context.Context, err error) error {
	var fe *Error
	if errors.As(err, &fe) {
		if ctx.Err() != nil && fe.Kind != KindTimeout {
			return newError(KindTimeout, fe.Attempts, err)
		}
		return fe
	}
	if ctx.Err() != nil {
		return newError(KindTimeout, 0, err)
	}
	return newError(KindNetwork, 0, err)
}
