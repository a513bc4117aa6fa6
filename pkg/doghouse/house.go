package doghouse

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalidConfiguration is returned by Adopt when the watchdog policy
// cannot be determined from the supplied options.
var ErrInvalidConfiguration = errors.New("invalid watchdog configuration")

// RecoverFunc is invoked with the starved watchdog when Check finds
// one. The House does not interpret its behaviour; a panic inside it
// propagates to the Check caller.
type RecoverFunc func(Watchdog)

// House owns a set of named watchdogs. Names are case-insensitive:
// "Fido" and "fido" are the same dog. The House exclusively owns the
// dogs it holds; callers get transient references back, nothing more.
type House struct {
	mu        sync.Mutex
	dogs      map[string]Watchdog
	order     []string
	recoverFn RecoverFunc
	log       zerolog.Logger
	clock     func() time.Time
}

// Option configures a House.
type Option func(*House)

// WithLogger sets the logging sink. Without it the House is silent.
func WithLogger(log zerolog.Logger) Option {
	return func(h *House) {
		h.log = log.With().Str("component", "doghouse").Logger()
	}
}

// WithClock substitutes the time source used for sweeps and for feeding
// time-based dogs. Meant for tests and simulated time.
func WithClock(clock func() time.Time) Option {
	return func(h *House) { h.clock = clock }
}

// NewHouse returns an empty House. recoverFn may be nil; dogs are then
// still swept and logged, but nothing is done about a starved one.
func NewHouse(recoverFn RecoverFunc, opts ...Option) *House {
	h := &House{
		dogs:      make(map[string]Watchdog),
		recoverFn: recoverFn,
		log:       zerolog.Nop(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func keyOf(name string) string { return strings.ToLower(name) }

// AdoptOption selects the policy for a watchdog being adopted.
type AdoptOption func(*adoptConfig)

type adoptConfig struct {
	timeout    time.Duration
	hasTimeout bool
	maxEvents  int
	hasMax     bool
}

// WithTimeout adopts a time-based watchdog with the given feed deadline.
func WithTimeout(timeout time.Duration) AdoptOption {
	return func(c *adoptConfig) {
		c.timeout = timeout
		c.hasTimeout = true
	}
}

// WithMaxEvents adopts an event-based watchdog with the given failure
// budget.
func WithMaxEvents(maxEvents int) AdoptOption {
	return func(c *adoptConfig) {
		c.maxEvents = maxEvents
		c.hasMax = true
	}
}

// Adopt registers a new watchdog under name and returns it, inactive.
// Exactly one of WithTimeout or WithMaxEvents must be given. Adopting a
// name that already exists is a no-op returning the existing dog, so
// initialization code that runs twice stays harmless.
func (h *House) Adopt(name string, opts ...AdoptOption) (Watchdog, error) {
	var cfg adoptConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.hasTimeout && cfg.hasMax {
		return nil, fmt.Errorf("%w: %s: both timeout and max events given", ErrInvalidConfiguration, name)
	}
	if !cfg.hasTimeout && !cfg.hasMax {
		return nil, fmt.Errorf("%w: %s: must supply a timeout or a max event count", ErrInvalidConfiguration, name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.recoverFn == nil {
		h.log.Warn().Str("dog", name).Msg("no recovery function is set")
	}
	key := keyOf(name)
	if existing, ok := h.dogs[key]; ok {
		h.log.Debug().Str("dog", name).Msg("attempted to adopt the same watchdog twice")
		return existing, nil
	}

	var d Watchdog
	if cfg.hasTimeout {
		d = newTimeDog(name, cfg.timeout, h.clock)
		h.log.Debug().Str("dog", name).Dur("timeout", cfg.timeout).Msg("adopted time watchdog")
	} else {
		d = NewEventDog(name, cfg.maxEvents)
		h.log.Debug().Str("dog", name).Int("max_events", cfg.maxEvents).Msg("adopted event watchdog")
	}
	h.insertLocked(key, d)
	return d, nil
}

// Get returns the watchdog registered under name.
func (h *House) Get(name string) (Watchdog, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.dogs[keyOf(name)]
	return d, ok
}

// Set inserts an arbitrary watchdog under name, replacing any existing
// entry. Adopt is the recommended way in; Set exists for callers that
// bring their own Watchdog implementation.
func (h *House) Set(name string, d Watchdog) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.log.Warn().Str("dog", name).Msg("we recommend adopting a dog instead")
	h.insertLocked(keyOf(name), d)
}

// Delete removes the watchdog registered under name, ending its
// supervision. Unknown names are ignored.
func (h *House) Delete(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := keyOf(name)
	if _, ok := h.dogs[key]; !ok {
		return
	}
	delete(h.dogs, key)
	for i, k := range h.order {
		if k == key {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of registered watchdogs.
func (h *House) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.dogs)
}

// Names returns the normalized names in insertion order.
func (h *House) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, len(h.order))
	copy(names, h.order)
	return names
}

// Range calls fn for each watchdog in insertion order until fn returns
// false. fn must not mutate the House.
func (h *House) Range(fn func(name string, d Watchdog) bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, key := range h.order {
		if !fn(key, h.dogs[key]) {
			return
		}
	}
}

// Pair is a name/watchdog pair for UpdatePairs.
type Pair struct {
	Name string
	Dog  Watchdog
}

// Update inserts every entry of other, replacing existing names.
func (h *House) Update(other map[string]Watchdog) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for name, d := range other {
		h.insertLocked(keyOf(name), d)
	}
}

// UpdatePairs inserts the given pairs in order, replacing existing
// names.
func (h *House) UpdatePairs(pairs ...Pair) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range pairs {
		h.insertLocked(keyOf(p.Name), p.Dog)
	}
}

// insertLocked stores d under key, maintaining insertion order.
// Replacing an existing key keeps its original position.
func (h *House) insertLocked(key string, d Watchdog) {
	if _, ok := h.dogs[key]; !ok {
		h.order = append(h.order, key)
	}
	h.dogs[key] = d
}

// Check sweeps all watchdogs once, in insertion order, against a single
// timestamp captured at the start of the sweep. The first dog found
// barking is logged, handed to the recovery function if one is set, and
// returned; the rest of the sweep is skipped so only one fault is acted
// on per pass. Returns nil when every dog is quiet.
func (h *House) Check() Watchdog {
	h.mu.Lock()
	now := h.clock()
	var barking Watchdog
	for _, key := range h.order {
		if d := h.dogs[key]; d.ShouldBark(now) {
			barking = d
			break
		}
	}
	recoverFn := h.recoverFn
	h.mu.Unlock()

	if barking == nil {
		return nil
	}
	h.log.Error().Str("dog", barking.Name()).Msg("watchdog has starved")
	if recoverFn != nil {
		recoverFn(barking)
	}
	return barking
}
