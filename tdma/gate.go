package tdma

import "github.com/fenwicklabs/linkproto/transport"

// tokenGate wraps a Transport so that WriteFrame refuses every attempt
// made while the coordinator does not hold the transmit token (spec.md
// §4.5 "A peer is permitted to emit iff it holds the token; transport
// layer consults canWrite() ... and returns Refused otherwise"). Reads
// pass through unconditionally — every peer listens to the shared medium
// regardless of whose turn it is to talk.
//
// This applies uniformly to application sends, ACKs, and SYNCs. A refused
// ACK or SYNC is not lost: RetryQueue's refusal handling resets its
// deadline to "now" and leaves it in the queue, so it fires again on the
// very next Walk and keeps retrying until the token comes back around.
type tokenGate struct {
	inner      transport.Transport
	holdsToken func() bool
}

func (g *tokenGate) ReadAvailable(dst []byte) (int, error) {
	return g.inner.ReadAvailable(dst)
}

func (g *tokenGate) WriteFrame(frame []byte) transport.Result {
	if !g.holdsToken() {
		return transport.Refused
	}
	return g.inner.WriteFrame(frame)
}
