// Package clock implements the wrap-safe 16-bit millisecond clock used by
// the connection engine to stamp and decay retry deadlines without storing
// a full-width timestamp per pending frame.
package clock

import "time"

// EpochResetFunc is notified whenever the clock's 16-bit origin shifts.
// delta is the elapsed value at the moment of the shift; subscribers that
// hold their own Deadline outside the retry queue (e.g. TDMACoordinator's
// lastRxDeadline) use it to migrate those deadlines in the same call.
type EpochResetFunc func(delta uint16)

// Deadline is a tagged absolute millisecond value. The sign bit records
// which clock epoch it was created under; HasDecayed reconciles it with
// the clock's current epoch lazily, on first inspection after a reset,
// rather than rewriting every live deadline when the origin shifts.
type Deadline struct {
	value uint16
	sign  bool
}

// Clock is a monotonic 16-bit millisecond counter. It is not safe for
// concurrent use; per spec.md §5 each engine owns exactly one Clock and
// drives it from its own tick().
type Clock struct {
	origin       time.Time
	currentSign  bool
	delta        uint16
	retryTimeout uint16
	listeners    []EpochResetFunc
	now          func() time.Time
}

// New returns a Clock whose epoch-reset margin is sized against
// retryTimeout: the clock resets before the 16-bit counter could overflow
// mid-retry-cycle for this connection's configured timeout.
func New(retryTimeout uint16) *Clock {
	return &Clock{
		origin:       time.Now(),
		retryTimeout: retryTimeout,
		now:          time.Now,
	}
}

// Now16 returns native elapsed milliseconds since the clock's current
// origin, truncated to 16 bits. Callers that need a decay check should
// use HasDecayed instead; Now16 is exposed for MakeDeadline and for
// components (TDMACoordinator) that compute their own derived deadlines.
func (c *Clock) Now16() uint16 {
	return uint16(c.now().Sub(c.origin).Milliseconds())
}

// OnEpochReset registers a subscriber invoked synchronously on every
// epoch reset with the delta the subscriber must apply to any Deadline it
// holds outside the Clock itself.
func (c *Clock) OnEpochReset(f EpochResetFunc) {
	c.listeners = append(c.listeners, f)
}

// CheckEpoch performs the wraparound check described in spec.md §4.1. It
// must be called once per tick, before any MakeDeadline/HasDecayed calls
// for that tick, so Now16 never observes a value past the safe range.
func (c *Clock) CheckEpoch() {
	margin := int64(c.retryTimeout)
	if margin < 5000 {
		margin = 5000
	}
	elapsed := c.now().Sub(c.origin).Milliseconds()
	if elapsed <= 0xFFFF-margin {
		return
	}
	old := uint16(elapsed)
	c.delta = old
	c.origin = c.now()
	c.currentSign = !c.currentSign
	for _, l := range c.listeners {
		l(c.delta)
	}
}

// MakeDeadline returns a Deadline delta milliseconds in the future,
// stamped with the clock's current epoch parity.
func (c *Clock) MakeDeadline(delta uint16) Deadline {
	return Deadline{value: c.Now16() + delta, sign: c.currentSign}
}

// HasDecayed reconciles d against the clock's current epoch (a one-shot
// migration if the epoch has flipped since d was created) and reports
// whether its deadline has passed.
func (c *Clock) HasDecayed(d *Deadline) bool {
	c.reconcile(d)
	diff := int32(c.Now16()) - int32(d.value)
	return diff >= 0
}

// Reconcile is the exported form of the lazy-migration step used by
// components, such as TDMACoordinator, that keep their own Deadline
// fields outside a RetryQueue buffer and need to apply the same
// reconciliation Clock.HasDecayed performs internally.
func (c *Clock) Reconcile(d *Deadline) {
	c.reconcile(d)
}

func (c *Clock) reconcile(d *Deadline) {
	if d.sign != c.currentSign {
		d.value -= c.delta
		d.sign = c.currentSign
	}
}

// Value exposes the raw 16-bit timestamp carried by a Deadline, for
// components that need to reason about it directly (TDMACoordinator's
// round-trip latency estimate in spec.md §4.5).
func (d Deadline) Value() uint16 { return d.value }

// Sign exposes the epoch parity bit carried by a Deadline.
func (d Deadline) Sign() bool { return d.sign }

// FromParts reconstructs a Deadline from its raw value/sign pair, used by
// RetryQueue when it decodes a deadline it had previously encoded inline
// in its outbound buffer.
func FromParts(value uint16, sign bool) Deadline {
	return Deadline{value: value, sign: sign}
}

// Shift advances d by delta milliseconds in place.
func (d *Deadline) Shift(delta uint16) { d.value += delta }
