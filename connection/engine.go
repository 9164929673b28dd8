// Package connection implements the ConnectionEngine of spec.md §4.4: a
// single orchestrator type whose behaviour is selected by a small set of
// fields and hooks rather than a virtual class hierarchy (spec.md §9
// "Polymorphism" — HeaderCodec, TransmitPolicy, and the ingress dispatch
// rules below are the "small trait/interface set" it calls for).
// PointToPoint, Addressed, and Stateless are thin constructors over the
// same Engine; tdma.Coordinator wraps an Addressed Engine and drives its
// exported hooks.
package connection

import (
	"bytes"

	"github.com/rs/zerolog"

	"github.com/fenwicklabs/linkproto/clock"
	"github.com/fenwicklabs/linkproto/metrics"
	"github.com/fenwicklabs/linkproto/retryqueue"
	"github.com/fenwicklabs/linkproto/transport"
	"github.com/fenwicklabs/linkproto/wire"
)

// ingressChunk bounds a single tick's read from the transport. tick()
// performs one drain, not a loop to exhaustion, per spec.md §4.4.
const ingressChunk = 4096

// Engine is the connection engine described by spec.md §4.4. Construct one
// via PointToPoint, Addressed, or Stateless rather than the zero value —
// they fill in the codec, policy, and dispatch flags a working Engine
// needs.
type Engine struct {
	Clock     *clock.Clock
	Codec     wire.HeaderCodec
	Queue     *retryqueue.Queue
	Transport transport.Transport
	Policy    retryqueue.TransmitPolicy

	// SelfID is this engine's endpoint identifier. Unused (and left zero)
	// for PointToPoint and Stateless engines.
	SelfID byte
	// Addressed selects the §6 addressed wire layout and the §4.4
	// addressed-only drop rule. Mutually exclusive in practice with
	// Stateless, though nothing enforces that here.
	Addressed bool
	// Stateless bypasses ACK/SYNC handling entirely: every decoded frame
	// is surfaced as-is, and a sent frame is dropped as soon as the
	// transport accepts it, without waiting for an ACK (spec.md's StableConnection
	// supplement, §3 of SPEC_FULL.md).
	Stateless bool
	// MaxInboundSize bounds the inbound buffer; 0 means unbounded. Mirrors
	// RetryQueue's own MaxSize bound on the outbound side.
	MaxInboundSize int

	inbound []byte

	// OnPacketReceived delivers every application frame accepted by the
	// ingress dispatch rules. Nil is a valid "discard" sink.
	OnPacketReceived func(info wire.Info, payload []byte)
	// OnPacketCorrupted delivers every trailer-mismatch frame.
	OnPacketCorrupted func(info wire.Info)
	// OnFrameDecoded, if set, is invoked for every frame Scan delivers,
	// before any dispatch logic runs — including frames the addressed
	// drop rule will go on to discard. tdma.Coordinator uses it to track
	// which peer currently holds the token purely by overhearing traffic
	// on the shared medium, regardless of who the frame was addressed to.
	OnFrameDecoded func(info wire.Info)
	// SyncHandler is invoked for every decoded SYNC frame before the
	// automatic ACK is sent back. nil for plain PointToPoint/Addressed
	// engines; tdma.Coordinator sets it to drive token-advance and
	// lastRxId bookkeeping (spec.md §4.5 "Sync receipt").
	SyncHandler func(info wire.Info, payload []byte)
	// OnAckReceived is invoked for every decoded ACK frame, after the
	// ACK-match policy has run, regardless of whether a match was found.
	// tdma.Coordinator uses it to estimate round-trip latency when the
	// acked type is 254 (spec.md §4.5 "Latency estimation").
	OnAckReceived func(info wire.Info, ackedType byte)

	Logger zerolog.Logger
	// Metrics is nil until a caller assigns one via metrics.NewSet; every
	// call site on a nil *metrics.Set is a no-op, so attaching one is
	// optional.
	Metrics *metrics.Set
}

// Tick performs the single external entry point of spec.md §4.4: one
// epoch check, one ingress drain, one outbound walk.
func (e *Engine) Tick() {
	e.Clock.CheckEpoch()
	e.ingressDrain()
	e.outboundWalk()
	e.Metrics.SetQueueDepth(e.Queue.Len())
}

func (e *Engine) ingressDrain() {
	if e.MaxInboundSize <= 0 || len(e.inbound) < e.MaxInboundSize {
		var tmp [ingressChunk]byte
		n, _ := e.Transport.ReadAvailable(tmp[:])
		if n > 0 {
			e.inbound = append(e.inbound, tmp[:n]...)
		}
	}
	consumed := wire.Scan(e.inbound, e.Codec, e.onFrame, e.onCorrupted)
	e.inbound = e.inbound[consumed:]
}

func (e *Engine) outboundWalk() {
	e.Queue.Walk(e.observePolicy, e.Transport)
}

// observePolicy wraps e.Policy so the engine can record a frame's retry
// count transitions as metrics without threading *metrics.Set down into
// retryqueue itself: a retries increment that still emits is a retry
// attempt beyond the frame's first; one that disposes without emitting is
// a drop at retry-budget exhaustion. StatelessPolicy never touches
// pf.Retries, so neither counter fires for a Stateless engine.
func (e *Engine) observePolicy(pf *retryqueue.PendingFrame) (emit, dispose bool) {
	before := pf.Retries
	emit, dispose = e.Policy(pf)
	if pf.Retries == before {
		return emit, dispose
	}
	if dispose {
		e.Metrics.FrameDropped()
	} else if emit {
		e.Metrics.FrameRetried()
	}
	return emit, dispose
}

func (e *Engine) onCorrupted(info wire.Info) {
	e.Metrics.FrameCorrupted()
	e.Logger.Debug().Uint8("type", info.Type).Uint8("id", info.ID).Msg("frame corrupted")
	if e.OnPacketCorrupted != nil {
		e.OnPacketCorrupted(info)
	}
}

// onFrame implements spec.md §4.4's ingress dispatch, in the exact bullet
// order given there: Stateless short-circuits everything else; SYNC and
// ACK are handled by the engine itself and never surfaced; only then does
// the addressed-only drop rule apply, followed by the default
// surface-then-ACK path.
func (e *Engine) onFrame(info wire.Info, payload []byte) {
	if e.OnFrameDecoded != nil {
		e.OnFrameDecoded(info)
	}

	if e.Stateless {
		if e.OnPacketReceived != nil {
			e.OnPacketReceived(info, payload)
		}
		return
	}

	switch info.Type {
	case wire.TypeSync:
		if e.SyncHandler != nil {
			e.SyncHandler(info, payload)
		}
		e.sendAck(info.From, wire.TypeSync)
		return
	case wire.TypeAck:
		if len(payload) < 1 {
			return
		}
		acked := payload[0]
		e.Queue.DisposeFirstMatch(func(candidate wire.Info) bool {
			if e.Addressed {
				return candidate.To == info.From && candidate.Type == acked
			}
			return candidate.Type == acked
		})
		if e.OnAckReceived != nil {
			e.OnAckReceived(info, acked)
		}
		return
	}

	if e.Addressed && info.To != e.SelfID {
		return
	}
	if e.OnPacketReceived != nil {
		e.OnPacketReceived(info, payload)
	}
	e.sendAck(info.From, info.Type)
}

func (e *Engine) sendAck(to byte, ackedType byte) {
	if _, err := e.SendRawTo(wire.TypeAck, to, []byte{ackedType}); err != nil {
		e.Logger.Warn().Err(err).Msg("failed to enqueue ack")
	}
}

// Send encodes a payload via writePayload into a new outbound frame of the
// given application type and enqueues it (spec.md §4.4 "send"). On an
// Addressed engine the frame is addressed to peer 0.
func (e *Engine) Send(typ byte, writePayload func(*bytes.Buffer)) (wire.Info, error) {
	return e.SendTo(typ, 0, writePayload)
}

// SendTo is Send's addressed form. to is ignored unless the engine is
// Addressed.
func (e *Engine) SendTo(typ, to byte, writePayload func(*bytes.Buffer)) (wire.Info, error) {
	info := wire.Info{Type: typ}
	if e.Addressed {
		info.From = e.SelfID
		info.To = to
	}
	out, err := e.Queue.Enqueue(info, writePayload, e.Policy, e.Transport)
	if err == nil {
		e.Metrics.FrameSent()
	}
	return out, err
}

// SendRaw is Send with a pre-encoded payload (spec.md §4.4 "sendRaw").
func (e *Engine) SendRaw(typ byte, payload []byte) (wire.Info, error) {
	return e.Send(typ, func(b *bytes.Buffer) { b.Write(payload) })
}

// SendRawTo is SendRaw's addressed form.
func (e *Engine) SendRawTo(typ, to byte, payload []byte) (wire.Info, error) {
	return e.SendTo(typ, to, func(b *bytes.Buffer) { b.Write(payload) })
}
