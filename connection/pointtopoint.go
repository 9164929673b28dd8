package connection

import (
	"github.com/rs/zerolog"

	"github.com/fenwicklabs/linkproto/clock"
	"github.com/fenwicklabs/linkproto/retryqueue"
	"github.com/fenwicklabs/linkproto/transport"
	"github.com/fenwicklabs/linkproto/wire"
)

// PointToPointConfig configures a two-peer Engine (spec.md §6).
type PointToPointConfig struct {
	RetryCount   byte
	RetryTimeout uint16
	MaxQueueSize int // 0 means unbounded
	MaxInbound   int // 0 means unbounded
}

// PointToPoint returns an Engine using the two-peer wire header (size,
// type, id — no from/to) and the default retry/ACK transmit policy. It
// runs wire.CheckByteOrder() once, per spec.md §7's startup sanity check,
// and refuses construction if the host fails it.
func PointToPoint(tr transport.Transport, cfg PointToPointConfig) (*Engine, error) {
	if err := wire.CheckByteOrder(); err != nil {
		return nil, err
	}
	clk := clock.New(cfg.RetryTimeout)
	codec := wire.PointToPointCodec{}
	return &Engine{
		Clock:     clk,
		Codec:     codec,
		Queue:     retryqueue.New(clk, codec, cfg.MaxQueueSize),
		Transport: tr,
		Policy:    retryqueue.DefaultPolicy(clk, cfg.RetryCount, cfg.RetryTimeout),

		MaxInboundSize: cfg.MaxInbound,
		Logger:         zerolog.Nop(),
	}, nil
}
