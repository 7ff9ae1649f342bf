// Package pool manages bounded sets of expensive, reusable resources such as
// browser contexts and HTTP clients. Callers borrow a resource with Acquire
// and must hand it back with Release on every exit path; resources released
// as unhealthy are torn down and replaced lazily on later demand.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/grabsome/grabsome/internal/logger"
)

var (
	// ErrExhausted is returned when no resource becomes available within the
	// acquisition timeout. It signals backpressure: the caller should retry
	// later rather than immediately.
	ErrExhausted = errors.New("resource pool exhausted")

	// ErrClosed is returned for operations on a closed pool.
	ErrClosed = errors.New("resource pool closed")
)

// State describes a resource's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateInUse
	StateUnhealthy
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInUse:
		return "in_use"
	case StateUnhealthy:
		return "unhealthy"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Resource wraps a pooled value with its lifecycle metadata.
type Resource[T any] struct {
	id       uint64
	value    T
	state    State
	lastUsed time.Time
}

// ID returns the resource's unique identifier within its pool.
func (r *Resource[T]) ID() uint64 { return r.id }

// Value returns the underlying resource value.
func (r *Resource[T]) Value() T { return r.value }

// Factory creates a new resource value.
type Factory[T any] func(ctx context.Context) (T, error)

// Probe checks whether an idle resource is still usable.
type Probe[T any] func(T) error

// Disposer tears down a resource value.
type Disposer[T any] func(T)

// Config controls pool sizing and lifecycle behavior.
type Config struct {
	// Name identifies the pool in logs (e.g. "browser", "http").
	Name string

	// MaxSize is the maximum number of concurrently live resources.
	MaxSize int

	// AcquireTimeout bounds how long Acquire blocks waiting for a slot.
	AcquireTimeout time.Duration

	// SweepInterval is how often the background health sweep runs.
	// Zero disables the sweep.
	SweepInterval time.Duration

	// IdleThreshold is the idle age beyond which the sweep probes a resource.
	IdleThreshold time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(name string) Config {
	return Config{
		Name:           name,
		MaxSize:        4,
		AcquireTimeout: 15 * time.Second,
		SweepInterval:  30 * time.Second,
		IdleThreshold:  2 * time.Minute,
	}
}

// Pool is a bounded pool of resources of a single kind. All mutation of pool
// state happens under one mutex; no resource is ever handed to two callers.
type Pool[T any] struct {
	cfg     Config
	create  Factory[T]
	probe   Probe[T]
	dispose Disposer[T]

	// slots caps the number of concurrent checkouts. A resource is only ever
	// created while holding a slot, which also bounds the live total.
	slots chan struct{}

	mu     sync.Mutex
	idle   []*Resource[T]
	total  int
	nextID uint64
	closed bool

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a pool. The probe and dispose functions may be nil.
func New[T any](cfg Config, create Factory[T], probe Probe[T], dispose Disposer[T]) (*Pool[T], error) {
	if cfg.MaxSize <= 0 {
		return nil, fmt.Errorf("pool %q: max size must be positive, got %d", cfg.Name, cfg.MaxSize)
	}
	if create == nil {
		return nil, fmt.Errorf("pool %q: factory is required", cfg.Name)
	}

	p := &Pool[T]{
		cfg:     cfg,
		create:  create,
		probe:   probe,
		dispose: dispose,
		slots:   make(chan struct{}, cfg.MaxSize),
		done:    make(chan struct{}),
	}

	if cfg.SweepInterval > 0 {
		p.wg.Add(1)
		go p.sweepLoop()
	}

	return p, nil
}

// Acquire checks out a resource, blocking up to the acquisition timeout (or
// the caller's context deadline, whichever is sooner) for a free slot. An
// idle resource is reused when available; otherwise a fresh one is created.
func (p *Pool[T]) Acquire(ctx context.Context) (*Resource[T], error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.mu.Unlock()

	if p.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
	}

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: pool %q at capacity %d: %v",
			ErrExhausted, p.cfg.Name, p.cfg.MaxSize, ctx.Err())
	case <-p.done:
		return nil, ErrClosed
	}

	// Slot held from here on; give it back on any failure path.
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.slots
		return nil, ErrClosed
	}
	if n := len(p.idle); n > 0 {
		res := p.idle[n-1]
		p.idle = p.idle[:n-1]
		res.state = StateInUse
		p.mu.Unlock()
		logger.Debug("pool resource reused", "pool", p.cfg.Name, "id", res.id)
		return res, nil
	}
	p.nextID++
	id := p.nextID
	p.total++
	p.mu.Unlock()

	value, err := p.create(ctx)
	if err != nil {
		p.mu.Lock()
		p.total--
		p.mu.Unlock()
		<-p.slots
		return nil, fmt.Errorf("pool %q: creating resource: %w", p.cfg.Name, err)
	}

	logger.Debug("pool resource created", "pool", p.cfg.Name, "id", id)
	return &Resource[T]{id: id, value: value, state: StateInUse}, nil
}

// Release checks a resource back in. Healthy resources return to the idle
// set; unhealthy ones are disposed and never reused. Release is safe to call
// exactly once per successful Acquire, including after cancellation.
func (p *Pool[T]) Release(res *Resource[T], healthy bool) {
	if res == nil {
		return
	}

	p.mu.Lock()
	if res.state != StateInUse {
		p.mu.Unlock()
		return
	}
	if healthy && !p.closed {
		res.state = StateIdle
		res.lastUsed = time.Now()
		p.idle = append(p.idle, res)
		p.mu.Unlock()
		<-p.slots
		return
	}
	res.state = StateUnhealthy
	p.total--
	p.mu.Unlock()

	p.disposeResource(res)
	<-p.slots
	logger.Debug("pool resource disposed", "pool", p.cfg.Name, "id", res.id)
}

// Stats reports current pool occupancy.
type Stats struct {
	Total int // live resources (idle + in use)
	Idle  int
	InUse int
}

// Stats returns a snapshot of pool occupancy.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Total: p.total,
		Idle:  len(p.idle),
		InUse: p.total - len(p.idle),
	}
}

// Close disposes all idle resources and stops the health sweep. In-use
// resources are disposed as they are released.
func (p *Pool[T]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.total -= len(idle)
	p.mu.Unlock()

	close(p.done)
	p.wg.Wait()

	for _, res := range idle {
		p.disposeResource(res)
	}
}

func (p *Pool[T]) disposeResource(res *Resource[T]) {
	res.state = StateDisposed
	if p.dispose != nil {
		p.dispose(res.value)
	}
}

// sweepLoop periodically probes idle resources past the staleness threshold
// so long-idle browser contexts do not accumulate stale state.
func (p *Pool[T]) sweepLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.sweep()
		case <-p.done:
			return
		}
	}
}

func (p *Pool[T]) sweep() {
	if p.probe == nil {
		return
	}

	cutoff := time.Now().Add(-p.cfg.IdleThreshold)

	p.mu.Lock()
	var keep, stale []*Resource[T]
	for _, res := range p.idle {
		if res.lastUsed.Before(cutoff) {
			stale = append(stale, res)
		} else {
			keep = append(keep, res)
		}
	}
	p.idle = keep
	p.mu.Unlock()

	for _, res := range stale {
		if err := p.probe(res.value); err != nil {
			logger.Debug("pool sweep disposing stale resource",
				"pool", p.cfg.Name, "id", res.id, "error", err)
			p.mu.Lock()
			p.total--
			p.mu.Unlock()
			p.disposeResource(res)
			continue
		}
		p.mu.Lock()
		if p.closed {
			p.total--
			p.mu.Unlock()
			p.disposeResource(res)
			continue
		}
		p.idle = append(p.idle, res)
		p.mu.Unlock()
	}
}
