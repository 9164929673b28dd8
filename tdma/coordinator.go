// Package tdma implements the TDMACoordinator of spec.md §4.5: a
// round-robin transmit-slot election and periodic clock-sync layer built
// on top of an Addressed connection.Engine. Coordinator owns the engine
// and drives its SyncHandler/OnAckReceived/OnFrameDecoded hooks rather
// than duplicating ingress dispatch; all framing, retry, and ACK-matching
// behaviour is inherited unchanged from connection.Engine.
package tdma

import (
	"math"

	"github.com/fenwicklabs/linkproto/clock"
	"github.com/fenwicklabs/linkproto/connection"
	"github.com/fenwicklabs/linkproto/transport"
	"github.com/fenwicklabs/linkproto/wire"
)

// Config configures a Coordinator. RetryCount/RetryTimeout-per-app-frame
// is derived automatically (spec.md §4.5: retryTimeout = ceil(nodeTimeout
// · deviceCount · 1.25)); callers only choose RetryCount.
type Config struct {
	SelfID       byte
	DeviceCount  byte
	NodeTimeout  uint16
	SyncInterval uint16
	RetryCount   byte
	MaxQueueSize int
	MaxInbound   int

	// LatencyCompensation opts into the shift SimpleConnection.hpp's
	// TDMAMultiConnection::Fire left commented out: when true, token
	// deadlines are extended by the current estimatedLatency, not just
	// nodeTimeout. Sync deadlines always use syncInterval alone. Off by
	// default, matching the
	// original's own decision to leave it disabled.
	LatencyCompensation bool
}

// Coordinator is an addressed ConnectionEngine plus the token-election,
// token-timeout, and clock-sync state of spec.md §4.5.
type Coordinator struct {
	*connection.Engine

	deviceCount  byte
	nodeTimeout  uint16
	syncInterval uint16

	lastRxId         byte
	lastRxDeadline   clock.Deadline
	lastSyncDeadline clock.Deadline
	estimatedLatency uint16

	LatencyCompensation bool
}

// New wires a Coordinator around tr: every write from the underlying
// engine (application sends, ACKs, SYNCs alike) passes through a
// token-checking gate before it reaches tr.
func New(tr transport.Transport, cfg Config) (*Coordinator, error) {
	c := &Coordinator{
		deviceCount:         cfg.DeviceCount,
		nodeTimeout:         cfg.NodeTimeout,
		syncInterval:        cfg.SyncInterval,
		estimatedLatency:    20, // spec.md §4.5 default
		LatencyCompensation: cfg.LatencyCompensation,
		// lastRxId starts one behind peer 0 so the token begins there,
		// a fixed, documented choice — spec.md §8's liveness property
		// holds "for any initial lastRxId".
		lastRxId: (cfg.DeviceCount - 1) % cfg.DeviceCount,
	}

	gate := &tokenGate{inner: tr, holdsToken: c.holdsToken}
	retryTimeout := retryTimeoutFor(cfg.NodeTimeout, cfg.DeviceCount)

	eng, err := connection.Addressed(gate, connection.AddressedConfig{
		SelfID:       cfg.SelfID,
		RetryCount:   cfg.RetryCount,
		RetryTimeout: retryTimeout,
		MaxQueueSize: cfg.MaxQueueSize,
		MaxInbound:   cfg.MaxInbound,
	})
	if err != nil {
		return nil, err
	}
	c.Engine = eng

	c.lastRxDeadline = eng.Clock.MakeDeadline(c.tokenTimeoutDelta())
	c.lastSyncDeadline = eng.Clock.MakeDeadline(cfg.SyncInterval)

	eng.OnFrameDecoded = c.onFrameDecoded
	eng.SyncHandler = c.onSync
	eng.OnAckReceived = c.onAck
	eng.Clock.OnEpochReset(c.onEpochReset)

	return c, nil
}

// retryTimeoutFor implements spec.md §4.5's retryTimeout derivation.
func retryTimeoutFor(nodeTimeout uint16, deviceCount byte) uint16 {
	return uint16(math.Ceil(float64(nodeTimeout) * float64(deviceCount) * 1.25))
}

// Tick runs the base engine tick and then the TDMA-specific steps that
// are not part of any single connection.Engine: token-timeout advance and
// periodic clock-sync broadcast.
func (c *Coordinator) Tick() {
	c.Engine.Tick()
	c.checkTokenTimeout()
	c.checkSyncBroadcast()
	c.Metrics.SetTokenHolder(c.TokenHolder())
	c.Metrics.SetEstimatedLatency(c.estimatedLatency)
}

// holdsToken implements spec.md §4.5's token-election rule: peer k holds
// the token iff lastRxId+1 ≡ k (mod N).
func (c *Coordinator) holdsToken() bool {
	return (c.lastRxId+1)%c.deviceCount == c.SelfID
}

func (c *Coordinator) tokenTimeoutDelta() uint16 {
	if c.LatencyCompensation {
		return c.nodeTimeout + c.estimatedLatency
	}
	return c.nodeTimeout
}

// onFrameDecoded implements the "token advance on receipt" half of
// spec.md §4.5: any frame heard from peer p, addressed to this node or
// not, confirms p currently holds the token.
func (c *Coordinator) onFrameDecoded(info wire.Info) {
	c.lastRxId = info.From
	c.lastRxDeadline = c.Clock.MakeDeadline(c.tokenTimeoutDelta())
}

// checkTokenTimeout implements the "token advance on timeout" half:
// advance lastRxId by one slot once the current holder has gone silent
// for nodeTimeout.
func (c *Coordinator) checkTokenTimeout() {
	if !c.Clock.HasDecayed(&c.lastRxDeadline) {
		return
	}
	c.lastRxId = (c.lastRxId + 1) % c.deviceCount
	c.lastRxDeadline = c.Clock.MakeDeadline(c.tokenTimeoutDelta())
}

// checkSyncBroadcast implements spec.md §4.5 "Clock sync": periodically
// tell every other peer this node's view of lastRxId.
func (c *Coordinator) checkSyncBroadcast() {
	if c.syncInterval == 0 || !c.Clock.HasDecayed(&c.lastSyncDeadline) {
		return
	}
	for i := byte(0); i < c.deviceCount; i++ {
		if i == c.SelfID {
			continue
		}
		if _, err := c.SendRawTo(wire.TypeSync, i, []byte{c.lastRxId}); err != nil {
			c.Logger.Warn().Err(err).Msg("failed to enqueue sync")
		}
	}
	c.lastSyncDeadline = c.Clock.MakeDeadline(c.syncInterval)
}

// onSync implements spec.md §4.5 "Sync receipt": adopt the sender's view
// of lastRxId and force an immediate token-advance evaluation, which
// checkTokenTimeout performs later in the same Tick. The automatic type-254 ACK back to the sender is handled
// unconditionally by connection.Engine itself, not here.
func (c *Coordinator) onSync(info wire.Info, payload []byte) {
	if len(payload) < 1 {
		return
	}
	c.lastRxId = payload[0]
	c.lastRxDeadline = c.Clock.MakeDeadline(0)
}

// onAck implements spec.md §4.5 "Latency estimation": an ACK whose acked
// type is 254 is the round-trip leg of the most recent SYNC broadcast.
func (c *Coordinator) onAck(_ wire.Info, ackedType byte) {
	if ackedType != wire.TypeSync {
		return
	}
	c.Clock.Reconcile(&c.lastSyncDeadline)
	rtt := int32(c.Clock.Now16()) - int32(c.lastSyncDeadline.Value()) + int32(c.syncInterval)
	if rtt < 0 {
		rtt = 0
	}
	c.estimatedLatency = uint16(rtt / 2)
}

// onEpochReset implements spec.md §4.5's epoch-reset hook. Both held
// deadlines are migrated through the same lazy-reconciliation path
// clock.Clock already exposes for exactly this purpose — by the time this
// callback runs, the clock's origin and currentSign have already flipped,
// so Reconcile performs the "subtract delta, flip sign" spec.md asks for.
func (c *Coordinator) onEpochReset(_ uint16) {
	c.Clock.Reconcile(&c.lastRxDeadline)
	c.Clock.Reconcile(&c.lastSyncDeadline)
}

// EstimatedLatency reports the current round-trip latency estimate.
func (c *Coordinator) EstimatedLatency() uint16 { return c.estimatedLatency }

// TokenHolder reports which peer currently holds the transmit token.
func (c *Coordinator) TokenHolder() byte { return (c.lastRxId + 1) % c.deviceCount }
