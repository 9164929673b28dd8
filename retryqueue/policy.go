package retryqueue

import (
	"github.com/fenwicklabs/linkproto/clock"
	"github.com/fenwicklabs/linkproto/wire"
)

// DefaultPolicy implements spec.md §4.3's default transmit policy: ACKs
// and SYNCs fire once and are never retried (spec.md §4.5's "write policy
// override" for SYNC is the same rule applied to a second type); everything
// else is retried on retryTimeout up to retryCount attempts, after which it
// is disposed silently.
func DefaultPolicy(clk *clock.Clock, retryCount byte, retryTimeout uint16) TransmitPolicy {
	return func(pf *PendingFrame) (emit, dispose bool) {
		if pf.Info.Type == wire.TypeAck || pf.Info.Type == wire.TypeSync {
			return true, true
		}
		if !clk.HasDecayed(&pf.Deadline) {
			return false, false
		}
		pf.Deadline = clk.MakeDeadline(retryTimeout)
		emit = pf.Retries < retryCount
		pf.Retries++
		dispose = pf.Retries > retryCount
		return emit, dispose
	}
}

// StatelessPolicy implements the Stateless variant's fire-and-forget
// behaviour: every frame is emitted and disposed as soon as the
// transport accepts it, whether or not it is delivered. A frame whose
// write is Refused stays in the queue, and Walk emits it again.
func StatelessPolicy() TransmitPolicy {
	return func(pf *PendingFrame) (emit, dispose bool) {
		return true, true
	}
}
