package connection

import (
	"github.com/rs/zerolog"

	"github.com/fenwicklabs/linkproto/clock"
	"github.com/fenwicklabs/linkproto/retryqueue"
	"github.com/fenwicklabs/linkproto/transport"
	"github.com/fenwicklabs/linkproto/wire"
)

// StatelessConfig configures a fire-and-forget Engine (SPEC_FULL.md §3,
// grounded on original_source/SimpleConnection.hpp's StableConnection).
type StatelessConfig struct {
	MaxQueueSize int // 0 means unbounded
	MaxInbound   int // 0 means unbounded
}

// Stateless returns an Engine with no ACKs and no retries: every Send is
// emitted until the transport accepts it once (a Refused write is tried
// again on the next Tick), delivered or not, and every decoded frame is surfaced
// immediately without engine-side SYNC/ACK interception. Intended for
// reliable transports where retry/ack overhead buys nothing.
func Stateless(tr transport.Transport, cfg StatelessConfig) (*Engine, error) {
	if err := wire.CheckByteOrder(); err != nil {
		return nil, err
	}
	clk := clock.New(0)
	codec := wire.PointToPointCodec{}
	return &Engine{
		Clock:     clk,
		Codec:     codec,
		Queue:     retryqueue.New(clk, codec, cfg.MaxQueueSize),
		Transport: tr,
		Policy:    retryqueue.StatelessPolicy(),

		Stateless:      true,
		MaxInboundSize: cfg.MaxInbound,
		Logger:         zerolog.Nop(),
	}, nil
}
