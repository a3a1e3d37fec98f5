// Package breaker implements a three-state (closed/open/half-open) circuit
// breaker used to isolate failures in each independent enrichment step, so a
// struggling collaborator (summarizer, tagger, embedder, ...) degrades that
// one step instead of cascading through the whole enrichment DAG.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Execute when the breaker is rejecting calls.
var ErrOpen = errors.New("breaker: circuit is open")

// State is one of the three breaker states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config tunes a single breaker instance.
type Config struct {
	// FailureThreshold is the number of consecutive failures in the closed
	// state that trips the breaker open.
	FailureThreshold int
	// ResetTimeout is how long the breaker stays open before allowing a
	// half-open probe.
	ResetTimeout time.Duration
	// HalfOpenMaxCalls is the number of consecutive successful probe calls
	// required, while half-open, before the breaker closes again. A single
	// failure while half-open immediately reopens it.
	HalfOpenMaxCalls int
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	if c.HalfOpenMaxCalls <= 0 {
		c.HalfOpenMaxCalls = 1
	}
	return c
}

// Breaker guards a single named dependency (e.g. one enrichment step).
type Breaker struct {
	name string
	cfg  Config

	mu             sync.Mutex
	state          State
	failures       int
	halfOpenOK     int
	openedAt       time.Time
	halfOpenInFlight bool
}

// New creates a breaker named for the dependency it protects.
func New(name string, cfg Config) *Breaker {
	return &Breaker{name: name, cfg: cfg.withDefaults(), state: Closed}
}

// Name returns the breaker's name.
func (b *Breaker) Name() string { return b.name }

// State returns the current externally-visible state, resolving an open
// breaker whose reset timeout has elapsed into half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState()
}

// currentState must be called with the lock held.
func (b *Breaker) currentState() State {
	if b.state == Open && time.Since(b.openedAt) >= b.cfg.ResetTimeout {
		return HalfOpen
	}
	return b.state
}

// Allow reports whether a call should be attempted right now. In the
// half-open state only one probe is allowed in flight at a time.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.currentState() {
	case Closed:
		return true
	case HalfOpen:
		if b.halfOpenInFlight {
			return false
		}
		return true
	default: // Open
		return false
	}
}

// Execute runs fn if the breaker allows it, recording the outcome. It
// returns ErrOpen without calling fn when the breaker is tripped.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	state := b.currentState()
	if state == Open {
		b.mu.Unlock()
		return ErrOpen
	}
	if state == HalfOpen {
		if b.halfOpenInFlight {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state = HalfOpen
		b.halfOpenInFlight = true
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.halfOpenInFlight = false
	if err != nil {
		b.recordFailureLocked()
		return err
	}
	b.recordSuccessLocked()
	return nil
}

func (b *Breaker) recordFailureLocked() {
	switch b.state {
	case HalfOpen:
		// Any probe failure reopens immediately and resets the probe counter.
		b.state = Open
		b.openedAt = time.Now()
		b.halfOpenOK = 0
		b.failures = b.cfg.FailureThreshold
	default:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.state = Open
			b.openedAt = time.Now()
		}
	}
}

func (b *Breaker) recordSuccessLocked() {
	switch b.state {
	case HalfOpen:
		b.halfOpenOK++
		if b.halfOpenOK >= b.cfg.HalfOpenMaxCalls {
			b.state = Closed
			b.failures = 0
			b.halfOpenOK = 0
		}
	default:
		b.failures = 0
	}
}

// Registry holds one Breaker per named enrichment step, created lazily with
// a shared default config unless a per-step override was registered.
type Registry struct {
	mu       sync.Mutex
	defaults Config
	overrides map[string]Config
	breakers  map[string]*Breaker
}

// NewRegistry builds a registry using defaultCfg unless an override for a
// given step name is supplied via WithStep.
func NewRegistry(defaultCfg Config) *Registry {
	return &Registry{
		defaults:  defaultCfg,
		overrides: make(map[string]Config),
		breakers:  make(map[string]*Breaker),
	}
}

// WithStep registers a per-step config override, returning the registry for chaining.
func (r *Registry) WithStep(name string, cfg Config) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[name] = cfg
	return r
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	cfg := r.defaults
	if o, ok := r.overrides[name]; ok {
		cfg = o
	}
	b := New(name, cfg)
	r.breakers[name] = b
	return b
}
