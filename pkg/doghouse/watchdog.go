// Package doghouse is a liveness-supervision primitive: named watchdogs
// that track whether some monitored activity has gone silent (TimeDog)
// or blown a fault budget (EventDog), plus a House registry that owns
// them and sweeps them for the first unhealthy one.
//
// The package does not schedule anything itself. An external loop feeds
// and starves the dogs as activity is observed and periodically calls
// House.Check.
package doghouse

import (
	"sync"
	"time"
)

// Watchdog is the shared capability set of all watchdog kinds.
type Watchdog interface {
	// Name returns the identifying name given at construction.
	Name() string
	// Active reports whether the watchdog is currently being supervised.
	Active() bool
	// Activate feeds the watchdog and then marks it active. Feeding first
	// means a dog that sat inactive past its deadline does not bark the
	// moment it is switched on.
	Activate()
	// Deactivate marks the watchdog inactive. Inactive dogs never bark.
	Deactivate()
	// Feed records a healthy signal, resetting the staleness or failure
	// accumulator.
	Feed()
	// Starve records a failure event. Only event-based dogs accumulate
	// these; time-based dogs ignore them.
	Starve()
	// ShouldBark reports whether the watchdog considers itself starved at
	// the given instant. It never mutates state.
	ShouldBark(now time.Time) bool
}

// dog carries the state common to every watchdog kind.
type dog struct {
	name string

	mu     sync.Mutex
	active bool
}

func (d *dog) Name() string { return d.name }

func (d *dog) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *dog) Deactivate() {
	d.mu.Lock()
	d.active = false
	d.mu.Unlock()
}

// TimeDog barks when too much wall-clock time passes between feeds.
type TimeDog struct {
	dog
	timeout  time.Duration
	clock    func() time.Time
	lastFeed time.Time
}

// NewTimeDog returns an inactive TimeDog that barks once more than
// timeout elapses since its last feed.
func NewTimeDog(name string, timeout time.Duration) *TimeDog {
	return newTimeDog(name, timeout, time.Now)
}

func newTimeDog(name string, timeout time.Duration, clock func() time.Time) *TimeDog {
	return &TimeDog{
		dog:      dog{name: name},
		timeout:  timeout,
		clock:    clock,
		lastFeed: clock(),
	}
}

// Timeout returns the feed deadline fixed at construction.
func (d *TimeDog) Timeout() time.Duration { return d.timeout }

func (d *TimeDog) Activate() {
	d.mu.Lock()
	d.lastFeed = d.clock()
	d.active = true
	d.mu.Unlock()
}

func (d *TimeDog) Feed() {
	d.mu.Lock()
	d.lastFeed = d.clock()
	d.mu.Unlock()
}

// Starve is a no-op: a TimeDog starves only by elapsed time.
func (d *TimeDog) Starve() {}

func (d *TimeDog) ShouldBark(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active && now.Sub(d.lastFeed) > d.timeout
}

// EventDog barks when more than maxEvents failures accumulate between
// feeds.
type EventDog struct {
	dog
	maxEvents int
	events    int
}

// NewEventDog returns an inactive EventDog that tolerates up to
// maxEvents starves before barking.
func NewEventDog(name string, maxEvents int) *EventDog {
	return &EventDog{dog: dog{name: name}, maxEvents: maxEvents}
}

// MaxEvents returns the failure budget fixed at construction.
func (d *EventDog) MaxEvents() int { return d.maxEvents }

func (d *EventDog) Activate() {
	d.mu.Lock()
	d.events = 0
	d.active = true
	d.mu.Unlock()
}

func (d *EventDog) Feed() {
	d.mu.Lock()
	d.events = 0
	d.mu.Unlock()
}

func (d *EventDog) Starve() {
	d.mu.Lock()
	d.events++
	d.mu.Unlock()
}

// ShouldBark is true only once the budget is exceeded; hitting it
// exactly is still healthy.
func (d *EventDog) ShouldBark(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active && d.events > d.maxEvents
}
