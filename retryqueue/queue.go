// Package retryqueue implements the outbound frame queue described in
// spec.md §4.3: pending frames live contiguously in a single byte buffer,
// each prefixed by a transient retry counter and deadline that never go
// on the wire. Enqueue, Walk, and DisposeFirstMatch all walk this buffer
// in place, splicing out disposed frames as an O(tail) shift rather than
// maintaining a separate index.
package retryqueue

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/fenwicklabs/linkproto/clock"
	"github.com/fenwicklabs/linkproto/transport"
	"github.com/fenwicklabs/linkproto/wire"
)

// ErrQueueFull is returned by Enqueue when MaxSize is set and the new
// frame would push the buffer past it. Per spec.md §7 this is a bounded,
// observable back-pressure signal, not a panic.
var ErrQueueFull = errors.New("retryqueue: buffer at max size")

// transientLen is the width of the in-memory (never transmitted) prefix:
// retries(1) + deadline value(2, big-endian) + deadline sign(1).
const transientLen = 4

// PendingFrame is the view a TransmitPolicy receives of one frame sitting
// in the queue: its wire header plus the transient retry bookkeeping
// spec.md §3 calls TransientInfo.
type PendingFrame struct {
	Info     wire.Info
	Retries  byte
	Deadline clock.Deadline
}

// TransmitPolicy decides, for a single pending frame, whether to attempt
// transmission this pass (emit) and whether to remove it from the queue
// afterwards (dispose). Policies that decide to retry later mutate pf.
// Deadline/pf.Retries in place; the queue persists whatever the policy
// left behind.
type TransmitPolicy func(pf *PendingFrame) (emit, dispose bool)

// Queue is the per-connection outbound buffer. It is not safe for
// concurrent use — spec.md §5 gives each engine exclusive ownership of
// its own queue.
type Queue struct {
	buf         []byte
	packetCount byte
	clk         *clock.Clock
	codec       wire.HeaderCodec
	maxSize     int // 0 means unbounded
}

// New returns an empty Queue. maxSize of 0 means unbounded.
func New(clk *clock.Clock, codec wire.HeaderCodec, maxSize int) *Queue {
	return &Queue{clk: clk, codec: codec, maxSize: maxSize}
}

// Len reports the current size of the outbound buffer in bytes.
func (q *Queue) Len() int { return len(q.buf) }

// Enqueue appends a new outbound frame (spec.md §4.3 "enqueue"). It
// assigns info.ID from the connection's monotonically increasing,
// mod-256 packet counter, writes payload via writePayload, and then
// attempts one immediate transmission through policy before the frame
// ever reaches Walk.
func (q *Queue) Enqueue(info wire.Info, writePayload func(*bytes.Buffer), policy TransmitPolicy, tr transport.Transport) (wire.Info, error) {
	var payload bytes.Buffer
	writePayload(&payload)
	if payload.Len() > 255 {
		payload.Truncate(255)
	}
	info.Size = byte(payload.Len())
	info.ID = q.packetCount
	q.packetCount++

	frame := wire.EncodeFrame(q.codec, info, payload.Bytes())
	required := transientLen + len(frame)
	if q.maxSize > 0 && len(q.buf)+required > q.maxSize {
		return wire.Info{}, ErrQueueFull
	}

	pf := &PendingFrame{Info: info, Retries: 0, Deadline: q.clk.MakeDeadline(0)}
	emit, dispose := policy(pf)
	if emit {
		dispose = q.attempt(pf, frame, tr, dispose)
	}
	if !dispose {
		q.appendPending(pf, frame)
	}
	return pf.Info, nil
}

// Walk iterates every pending frame in buffer order, asking policy what
// to do with each (spec.md §4.3 "walk"). Disposed frames are spliced out
// in place; survivors have their transient retry state rewritten in
// place to reflect whatever the policy mutated.
func (q *Queue) Walk(policy TransmitPolicy, tr transport.Transport) {
	q.walkFrames(func(pf *PendingFrame, frameWire []byte) bool {
		q.clk.Reconcile(&pf.Deadline)
		emit, dispose := policy(pf)
		if emit {
			dispose = q.attempt(pf, frameWire, tr, dispose)
		}
		return dispose
	})
}

// DisposeFirstMatch removes the first pending frame for which match
// returns true, leaving all others untouched, and reports whether a
// match was found. It implements the ACK-match policy of spec.md §4.3,
// which disposes at most one frame per received ACK.
func (q *Queue) DisposeFirstMatch(match func(wire.Info) bool) bool {
	found := false
	q.walkFrames(func(pf *PendingFrame, _ []byte) bool {
		if !found && match(pf.Info) {
			found = true
			return true
		}
		return false
	})
	return found
}

// Pending returns a snapshot of every frame currently in the queue, in
// buffer order, for introspection and tests. It does not mutate the
// queue.
func (q *Queue) Pending() []PendingFrame {
	var out []PendingFrame
	q.walkFrames(func(pf *PendingFrame, _ []byte) bool {
		out = append(out, *pf)
		return false
	})
	return out
}

// attempt transmits frameWire through tr. If it was refused, the refusal
// handling of spec.md §4.3 applies: the attempt does not count, and the
// frame becomes immediately eligible for retry.
func (q *Queue) attempt(pf *PendingFrame, frameWire []byte, tr transport.Transport, dispose bool) bool {
	if tr.WriteFrame(frameWire) == transport.Refused {
		if pf.Retries > 0 {
			pf.Retries--
		}
		pf.Deadline = q.clk.MakeDeadline(0)
		return false
	}
	return dispose
}

// appendPending writes the transient prefix followed by frameWire (the
// already-encoded magic/header/payload/tail bytes) to the end of the
// buffer.
func (q *Queue) appendPending(pf *PendingFrame, frameWire []byte) {
	var transient [transientLen]byte
	transient[0] = pf.Retries
	binary.BigEndian.PutUint16(transient[1:3], pf.Deadline.Value())
	if pf.Deadline.Sign() {
		transient[3] = 1
	}
	q.buf = append(q.buf, transient[:]...)
	q.buf = append(q.buf, frameWire...)
}

// walkFrames is the shared traversal used by Walk, DisposeFirstMatch,
// and Pending. action receives the parsed pending frame and its encoded
// wire bytes (magic through tail, transient prefix excluded) and returns
// whether to splice the frame out of the buffer. Non-disposed frames have
// their transient bytes rewritten from whatever action left in pf.
func (q *Queue) walkFrames(action func(pf *PendingFrame, frameWire []byte) (dispose bool)) {
	hlen := q.codec.HeaderLen()
	pos := 0
	for pos < len(q.buf) {
		retries := q.buf[pos]
		dVal := binary.BigEndian.Uint16(q.buf[pos+1 : pos+3])
		dSign := q.buf[pos+3] != 0

		frameStart := pos + transientLen
		headerStart := frameStart + wire.MagicSize
		info := q.codec.DecodeHeader(q.buf[headerStart : headerStart+hlen])
		bodyStart := headerStart + hlen
		frameEnd := bodyStart + int(info.Size) + 1 // + trailer byte

		pf := &PendingFrame{
			Info:     info,
			Retries:  retries,
			Deadline: clock.FromParts(dVal, dSign),
		}

		if action(pf, q.buf[frameStart:frameEnd]) {
			q.buf = append(q.buf[:pos], q.buf[frameEnd:]...)
			continue
		}

		q.buf[pos] = pf.Retries
		binary.BigEndian.PutUint16(q.buf[pos+1:pos+3], pf.Deadline.Value())
		if pf.Deadline.Sign() {
			q.buf[pos+3] = 1
		} else {
			q.buf[pos+3] = 0
		}
		pos = frameEnd
	}
}
