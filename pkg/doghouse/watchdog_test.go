package doghouse

import (
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct{ now time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestTimeDogBarksStrictlyAfterTimeout(t *testing.T) {
	clock := newFakeClock()
	d := newTimeDog("heartbeat", 10*time.Second, clock.Now)
	d.Activate()

	clock.Advance(10 * time.Second)
	if d.ShouldBark(clock.Now()) {
		t.Error("dog barked at exactly the timeout; threshold must be strict")
	}
	clock.Advance(time.Millisecond)
	if !d.ShouldBark(clock.Now()) {
		t.Error("dog did not bark past the timeout")
	}
}

func TestTimeDogFeedResetsDeadline(t *testing.T) {
	clock := newFakeClock()
	d := newTimeDog("heartbeat", 5*time.Second, clock.Now)
	d.Activate()

	clock.Advance(4 * time.Second)
	d.Feed()
	clock.Advance(4 * time.Second)
	if d.ShouldBark(clock.Now()) {
		t.Error("dog barked 4s after a feed with a 5s timeout")
	}
	clock.Advance(2 * time.Second)
	if !d.ShouldBark(clock.Now()) {
		t.Error("dog did not bark 6s after its last feed")
	}
}

func TestTimeDogStarveIsNoop(t *testing.T) {
	clock := newFakeClock()
	d := newTimeDog("heartbeat", time.Minute, clock.Now)
	d.Activate()
	for i := 0; i < 100; i++ {
		d.Starve()
	}
	if d.ShouldBark(clock.Now()) {
		t.Error("starve must not affect a time-based dog")
	}
}

func TestEventDogBudgetIsStrict(t *testing.T) {
	for _, max := range []int{0, 1, 3, 10} {
		d := NewEventDog("errors", max)
		d.Activate()
		for i := 0; i < max; i++ {
			d.Starve()
		}
		if d.ShouldBark(time.Now()) {
			t.Errorf("max=%d: barked after exactly %d starves", max, max)
		}
		d.Starve()
		if !d.ShouldBark(time.Now()) {
			t.Errorf("max=%d: did not bark after %d starves", max, max+1)
		}
	}
}

func TestEventDogFeedResetsCounter(t *testing.T) {
	d := NewEventDog("errors", 2)
	d.Activate()
	d.Starve()
	d.Starve()
	d.Starve()
	if !d.ShouldBark(time.Now()) {
		t.Fatal("dog should be barking over budget")
	}
	d.Feed()
	if d.ShouldBark(time.Now()) {
		t.Error("feed did not reset the event counter")
	}
	d.Starve()
	d.Starve()
	if d.ShouldBark(time.Now()) {
		t.Error("barked within budget after a feed")
	}
}

func TestInactiveDogsNeverBark(t *testing.T) {
	clock := newFakeClock()
	td := newTimeDog("t", time.Second, clock.Now)
	ed := NewEventDog("e", 0)

	// Never activated: pile on staleness and failures.
	clock.Advance(time.Hour)
	ed.Starve()
	ed.Starve()
	if td.ShouldBark(clock.Now()) || ed.ShouldBark(clock.Now()) {
		t.Fatal("inactive dogs must not bark")
	}

	// Activated then deactivated.
	td.Activate()
	ed.Activate()
	td.Deactivate()
	ed.Deactivate()
	clock.Advance(time.Hour)
	ed.Starve()
	ed.Starve()
	if td.ShouldBark(clock.Now()) || ed.ShouldBark(clock.Now()) {
		t.Error("deactivated dogs must not bark")
	}
}

func TestActivateFeedsFirst(t *testing.T) {
	clock := newFakeClock()
	d := newTimeDog("stale", time.Second, clock.Now)

	// Long past the timeout while inactive.
	clock.Advance(time.Hour)
	d.Activate()
	if d.ShouldBark(clock.Now()) {
		t.Error("activation must feed the dog so it does not bark immediately")
	}

	ed := NewEventDog("e", 1)
	ed.Starve()
	ed.Starve()
	ed.Starve()
	ed.Activate()
	if ed.ShouldBark(clock.Now()) {
		t.Error("activation must reset the event counter")
	}
}

func TestReactivationRequiresActivate(t *testing.T) {
	d := NewEventDog("e", 0)
	d.Activate()
	d.Starve()
	if !d.ShouldBark(time.Now()) {
		t.Fatal("expected barking dog")
	}
	d.Deactivate()
	d.Starve()
	d.Starve()
	if d.ShouldBark(time.Now()) {
		t.Fatal("deactivated dog barked")
	}
	d.Activate()
	if d.ShouldBark(time.Now()) {
		t.Error("reactivation fed the dog; it must start healthy")
	}
	d.Starve()
	if !d.ShouldBark(time.Now()) {
		t.Error("reactivated dog must bark again once over budget")
	}
}
