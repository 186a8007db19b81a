package storage

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker open")

type ProtectedStoreConfig struct {
	Timeout          time.Duration // hard timeout per call
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // allow N trial calls in half-open
}

const (
	stateClosed   = "closed"
	stateOpen     = "open"
	stateHalfOpen = "half_open"
)

// ProtectedStore wraps a Store with a per-call timeout and a circuit breaker so
// a dead backend fails uploads fast instead of pinning request goroutines.
type ProtectedStore struct {
	inner Store
	cfg   ProtectedStoreConfig
	mu    sync.Mutex

	state string

	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int

	now func() time.Time
}

func NewProtectedStore(inner Store, cfg ProtectedStoreConfig) *ProtectedStore {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &ProtectedStore{
		inner: inner,
		cfg:   cfg,
		state: stateClosed,
		now:   time.Now,
	}
}

func (p *ProtectedStore) Put(ctx context.Context, name string, data []byte, contentType string) error {
	return p.call(ctx, func(ctx context.Context) error {
		return p.inner.Put(ctx, name, data, contentType)
	})
}

func (p *ProtectedStore) Delete(ctx context.Context, name string) error {
	return p.call(ctx, func(ctx context.Context) error {
		return p.inner.Delete(ctx, name)
	})
}

func (p *ProtectedStore) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *ProtectedStore) call(ctx context.Context, fn func(context.Context) error) error {
	if !p.allowRequest() {
		return ErrCircuitOpen
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	err := fn(callCtx)

	p.afterRequest(err)

	return err
}

func (p *ProtectedStore) allowRequest() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case stateOpen:
		if p.now().Sub(p.openedAt) >= p.cfg.Cooldown {
			p.state = stateHalfOpen
			p.halfOpenInFlight = 1
			return true
		}
		return false
	case stateHalfOpen:
		if p.halfOpenInFlight >= p.cfg.HalfOpenMaxCalls {
			return false
		}
		p.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (p *ProtectedStore) afterRequest(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateHalfOpen && p.halfOpenInFlight > 0 {
		p.halfOpenInFlight--
	}

	if err == nil {
		p.consecutiveFailures = 0
		p.state = stateClosed
		return
	}

	p.consecutiveFailures++

	// a failed trial call reopens immediately
	if p.state == stateHalfOpen {
		p.state = stateOpen
		p.openedAt = p.now()
		return
	}

	if p.consecutiveFailures >= p.cfg.FailureThreshold {
		p.state = stateOpen
		p.openedAt = p.now()
	}
}
