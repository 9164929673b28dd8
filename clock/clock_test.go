package clock

import (
	"testing"
	"time"
)

// fakeNow lets a test drive the clock's notion of elapsed time without
// sleeping, matching the teacher's preference for deterministic mock
// collaborators (protocol/frame_test.go, transport/transport_test.go)
// over real timers.
func fakeNow(base time.Time, elapsed *time.Duration) func() time.Time {
	return func() time.Time { return base.Add(*elapsed) }
}

func TestMakeDeadlineAndHasDecayed(t *testing.T) {
	var elapsed time.Duration
	base := time.Now()
	c := New(100)
	c.now = fakeNow(base, &elapsed)
	c.origin = base

	d := c.MakeDeadline(50)
	if c.HasDecayed(&d) {
		t.Fatal("deadline decayed before elapsing")
	}

	elapsed = 49 * time.Millisecond
	if c.HasDecayed(&d) {
		t.Fatal("deadline decayed one ms early")
	}

	elapsed = 50 * time.Millisecond
	if !c.HasDecayed(&d) {
		t.Fatal("deadline did not decay at exact boundary")
	}
}

func TestEpochResetMigratesHeldDeadline(t *testing.T) {
	var elapsed time.Duration
	base := time.Now()
	// retryTimeout of 60000 pulls the reset margin up to 60000ms, so the
	// reset itself fires at a small elapsed value (0xFFFF-60000 = 5535ms)
	// rather than near the full 16-bit range, which keeps every value in
	// the test small. HasDecayed compares Now16 and the deadline as plain
	// 16-bit values, so the migrated deadline reads correctly as long as
	// it was still in the future at the moment of the reset.
	c := New(60000)
	c.now = fakeNow(base, &elapsed)
	c.origin = base

	var gotDelta uint16
	c.OnEpochReset(func(delta uint16) { gotDelta = delta })

	elapsed = 3000 * time.Millisecond
	d := c.MakeDeadline(4000) // due at Now16 7000, after the reset below

	elapsed = 6000 * time.Millisecond // crosses the 5535ms reset margin
	c.CheckEpoch()

	if gotDelta != 6000 {
		t.Fatalf("unexpected epoch delta: got %d, want 6000", gotDelta)
	}

	// d was created before the reset and isn't due yet (7000 - 6000 =
	// 1000ms remaining); HasDecayed must migrate it using the same delta
	// the listener observed and keep reporting "not yet" rather than
	// silently losing or misreading it.
	if c.HasDecayed(&d) {
		t.Fatal("migrated deadline reported decayed before its due time")
	}

	elapsed = 7000 * time.Millisecond // 1000ms past the new origin
	if !c.HasDecayed(&d) {
		t.Fatalf("migrated deadline did not decay at its due time, delta=%d", gotDelta)
	}
}

func TestCheckEpochNoopBeforeMargin(t *testing.T) {
	var elapsed time.Duration
	base := time.Now()
	c := New(1000)
	c.now = fakeNow(base, &elapsed)
	c.origin = base

	originalOrigin := c.origin
	elapsed = 1000 * time.Millisecond
	c.CheckEpoch()

	if c.origin != originalOrigin {
		t.Fatal("clock reset epoch well before the wraparound margin")
	}
}
