// Package breaker implements a named circuit breaker per upstream dependency
// (an LLM provider, an MCP server): CLOSED → OPEN on repeated failure,
// OPEN → HALF_OPEN after a cooldown, HALF_OPEN → CLOSED on a trial success
// or back to OPEN on a trial failure.
package breaker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
)

// State is the circuit breaker's state machine position.
type State int32

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrOpen is returned by Allow/Do when the breaker is OPEN and the cooldown
// has not yet elapsed.
var ErrOpen = errors.New("circuit breaker open")

// Config configures a single breaker's thresholds.
type Config struct {
	// FailureThreshold is the number of consecutive failures in CLOSED state
	// that trips the breaker to OPEN.
	FailureThreshold int
	// ResetTimeout is how long the breaker stays OPEN before allowing a
	// single trial call (transition to HALF_OPEN happens lazily, on the
	// first Allow() call after the timeout has elapsed).
	ResetTimeout time.Duration
	// HalfOpenMaxCalls bounds how many concurrent trial calls are admitted
	// while HALF_OPEN.
	HalfOpenMaxCalls int
}

// DefaultConfig returns conservative breaker defaults.
func DefaultConfig() Config {
	return Config{FailureThreshold: 5, ResetTimeout: 30 * time.Second, HalfOpenMaxCalls: 1}
}

// EventSink receives state transition events as they happen. Implemented by
// the metric writer's publish path; nil is a valid no-op sink.
type EventSink interface {
	Publish(corekit.MetricEvent)
}

// Breaker is a single named circuit breaker. All fields besides name/cfg/sink
// are accessed only via atomics or under mu, so a Breaker is safe for
// concurrent use by many goroutines guarding the same upstream dependency.
type Breaker struct {
	name string
	cfg  Config
	sink EventSink

	state           atomic.Int32
	consecutiveFail atomic.Int64
	lastFailureNs   atomic.Int64
	halfOpenInFlight atomic.Int64

	mu sync.Mutex // serializes state transitions only
}

// New constructs a Breaker in the CLOSED state.
func New(name string, cfg Config, sink EventSink) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultConfig().ResetTimeout
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = DefaultConfig().HalfOpenMaxCalls
	}
	b := &Breaker{name: name, cfg: cfg, sink: sink}
	b.state.Store(int32(Closed))
	return b
}

// Name returns the breaker's identifying name (provider or server id).
func (b *Breaker) Name() string { return b.name }

// State returns the breaker's current state, resolving a lazy OPEN→HALF_OPEN
// transition if the reset timeout has elapsed.
func (b *Breaker) State() State {
	b.maybeTransitionToHalfOpen()
	return State(b.state.Load())
}

func (b *Breaker) maybeTransitionToHalfOpen() {
	if State(b.state.Load()) != Open {
		return
	}
	lastFail := time.Unix(0, b.lastFailureNs.Load())
	if time.Since(lastFail) < b.cfg.ResetTimeout {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if State(b.state.Load()) != Open {
		return
	}
	if time.Since(lastFail) < b.cfg.ResetTimeout {
		return
	}
	b.transition(Open, HalfOpen)
	b.halfOpenInFlight.Store(0)
}

// Allow reports whether a call may proceed right now, and reserves a trial
// slot if the breaker is HALF_OPEN. Callers that get true must eventually
// call OnSuccess or OnFailure exactly once.
func (b *Breaker) Allow() bool {
	switch b.State() {
	case Closed:
		return true
	case Open:
		return false
	case HalfOpen:
		if b.halfOpenInFlight.Add(1) <= int64(b.cfg.HalfOpenMaxCalls) {
			return true
		}
		b.halfOpenInFlight.Add(-1)
		return false
	default:
		return false
	}
}

// OnSuccess records a successful call. In HALF_OPEN, a single success closes
// the breaker; in CLOSED it resets the consecutive-failure counter.
func (b *Breaker) OnSuccess() {
	switch State(b.state.Load()) {
	case HalfOpen:
		b.mu.Lock()
		if State(b.state.Load()) == HalfOpen {
			b.transition(HalfOpen, Closed)
			b.consecutiveFail.Store(0)
			b.halfOpenInFlight.Store(0)
		}
		b.mu.Unlock()
	case Closed:
		b.consecutiveFail.Store(0)
	}
}

// OnFailure records a failed call. In CLOSED, it trips the breaker once
// FailureThreshold consecutive failures accumulate; in HALF_OPEN, a single
// trial failure reopens it immediately.
func (b *Breaker) OnFailure() {
	now := time.Now().UnixNano()
	b.lastFailureNs.Store(now)

	switch State(b.state.Load()) {
	case HalfOpen:
		b.mu.Lock()
		if State(b.state.Load()) == HalfOpen {
			b.transition(HalfOpen, Open)
			b.halfOpenInFlight.Store(0)
		}
		b.mu.Unlock()
	case Closed:
		n := b.consecutiveFail.Add(1)
		if n >= int64(b.cfg.FailureThreshold) {
			b.mu.Lock()
			if State(b.state.Load()) == Closed {
				b.transition(Closed, Open)
			}
			b.mu.Unlock()
		}
	}
}

// transition must be called with mu held; it performs the state store and
// emits the transition event. from is the expected prior state, used only
// for the event payload (the actual store is unconditional — callers already
// re-checked the state under the lock).
func (b *Breaker) transition(from, to State) {
	b.state.Store(int32(to))
	if b.sink != nil {
		b.sink.Publish(corekit.CircuitBreakerTransitionEvent{
			Time: time.Now(),
			Name: b.name,
			From: from.String(),
			To:   to.String(),
		})
	}
}

// Do runs fn guarded by the breaker: it returns ErrOpen without calling fn if
// the breaker refuses the call, and records the outcome otherwise.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if !b.Allow() {
		return ErrOpen
	}
	err := fn(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		b.OnFailure()
		return err
	}
	b.OnSuccess()
	return nil
}

// Registry is a concurrency-safe collection of named breakers, one per
// upstream dependency, created lazily on first use.
type Registry struct {
	cfg  Config
	sink EventSink

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewRegistry builds a Registry that creates breakers with cfg on demand.
func NewRegistry(cfg Config, sink EventSink) *Registry {
	return &Registry{cfg: cfg, sink: sink, breakers: make(map[string]*Breaker)}
}

// Get returns the named breaker, creating it with the registry's default
// Config if it doesn't exist yet.
func (r *Registry) Get(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b = New(name, r.cfg, r.sink)
	r.breakers[name] = b
	return b
}

// Snapshot returns the current state of every known breaker, keyed by name.
func (r *Registry) Snapshot() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]State, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.State()
	}
	return out
}
