package embedding

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"briefing/internal/domain"
)

// State is the lifecycle of the process-wide embedding provider.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// InitFunc constructs the embedder. It is called at most once per Provider.
type InitFunc func(ctx context.Context) (domain.Embedder, error)

// Provider lazily initializes a shared embedder. Failed is terminal: a
// failed initialization is never retried for the lifetime of the Provider.
type Provider struct {
	init   InitFunc
	logger *log.Logger

	mu       sync.Mutex
	state    State
	embedder domain.Embedder
	err      error
	attempts int
	done     chan struct{}
}

func NewProvider(init InitFunc, logger *log.Logger) *Provider {
	if logger == nil {
		logger = log.Default()
	}
	return &Provider{init: init, logger: logger, done: make(chan struct{})}
}

// Get returns the embedder, initializing it on first use. Callers arriving
// while initialization is in flight wait for its outcome or their context.
// Any error wraps domain.ErrDependencyUnavailable.
func (p *Provider) Get(ctx context.Context) (domain.Embedder, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: no embedding provider", domain.ErrDependencyUnavailable)
	}
	p.mu.Lock()
	switch p.state {
	case StateReady:
		emb := p.embedder
		p.mu.Unlock()
		return emb, nil
	case StateFailed:
		err := p.err
		p.mu.Unlock()
		return nil, err
	case StateLoading:
		p.mu.Unlock()
		select {
		case <-p.done:
			return p.result()
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrDependencyUnavailable, ctx.Err())
		}
	}
	p.state = StateLoading
	p.attempts++
	p.mu.Unlock()

	// Detached from the caller so one cancelled request cannot fail the
	// provider for everyone.
	emb, err := p.safeInit(context.WithoutCancel(ctx))

	p.mu.Lock()
	if err != nil {
		p.state = StateFailed
		p.err = fmt.Errorf("%w: embeddings: %v", domain.ErrDependencyUnavailable, err)
		p.logger.Printf("embedding provider failed to initialize, retrieval disabled: %v", err)
	} else {
		p.state = StateReady
		p.embedder = emb
		p.logger.Printf("embedding provider ready (%s, %d dims)", emb.Name(), emb.Dimension())
	}
	close(p.done)
	p.mu.Unlock()
	return p.result()
}

func (p *Provider) safeInit(ctx context.Context) (emb domain.Embedder, err error) {
	defer func() {
		if r := recover(); r != nil {
			emb, err = nil, fmt.Errorf("init panicked: %v", r)
		}
	}()
	if p.init == nil {
		return nil, errors.New("no embedder configured")
	}
	emb, err = p.init(ctx)
	if err == nil && emb == nil {
		err = errors.New("init returned no embedder")
	}
	return emb, err
}

func (p *Provider) result() (domain.Embedder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateReady {
		return p.embedder, nil
	}
	return nil, p.err
}

// State reports the current lifecycle state.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Attempts reports how many times initialization has been started.
func (p *Provider) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}
