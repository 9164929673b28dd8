// Package memory provides an in-memory shared-medium transport fabric,
// the host-testable stand-in for a UART pair or a LoRa radio's shared
// air interface. It plays the same role driver/stub's ring-buffer mock
// radio driver played in the teacher repo, generalised from a two-party
// Tx/Rx pair to an N-party broadcast bus so TDMACoordinator tests can run
// against it directly.
package memory

import (
	"sync"

	"github.com/fenwicklabs/linkproto/transport"
)

// Endpoint is one peer's view of a Bus: writes broadcast to every other
// endpoint's inbox, reads drain this endpoint's own inbox.
type Endpoint struct {
	mu    sync.Mutex
	inbox []byte
	peers []*Endpoint
}

var _ transport.Transport = (*Endpoint)(nil)

// NewBus wires n endpoints into a fully-connected broadcast fabric: a
// WriteFrame on any one endpoint is delivered to every other endpoint's
// inbox, matching a shared-medium radio link where every transmission is
// heard by every peer.
func NewBus(n int) []*Endpoint {
	eps := make([]*Endpoint, n)
	for i := range eps {
		eps[i] = &Endpoint{}
	}
	for i, e := range eps {
		for j, p := range eps {
			if i != j {
				e.peers = append(e.peers, p)
			}
		}
	}
	return eps
}

// NewLoopbackPair returns two endpoints wired point-to-point, the
// two-party special case of NewBus used by the PointToPoint and
// Stateless engine tests.
func NewLoopbackPair() (a, b *Endpoint) {
	eps := NewBus(2)
	return eps[0], eps[1]
}

func (e *Endpoint) ReadAvailable(dst []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := copy(dst, e.inbox)
	e.inbox = e.inbox[n:]
	return n, nil
}

func (e *Endpoint) WriteFrame(frame []byte) transport.Result {
	for _, p := range e.peers {
		p.mu.Lock()
		p.inbox = append(p.inbox, frame...)
		p.mu.Unlock()
	}
	return transport.Accepted
}

// Pending reports how many unread bytes are queued for this endpoint,
// useful for tests asserting an ingress buffer drained to empty.
func (e *Endpoint) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inbox)
}
