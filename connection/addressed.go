package connection

import (
	"github.com/rs/zerolog"

	"github.com/fenwicklabs/linkproto/clock"
	"github.com/fenwicklabs/linkproto/retryqueue"
	"github.com/fenwicklabs/linkproto/transport"
	"github.com/fenwicklabs/linkproto/wire"
)

// AddressedConfig configures a multi-endpoint Engine (spec.md §6).
type AddressedConfig struct {
	SelfID       byte
	RetryCount   byte
	RetryTimeout uint16
	MaxQueueSize int // 0 means unbounded
	MaxInbound   int // 0 means unbounded
}

// Addressed returns an Engine using the five-field addressed wire header
// (size, type, id, from, to), with the §4.4 addressed-only drop rule and
// default retry/ACK transmit policy. tdma.Coordinator builds one of these
// and drives its SyncHandler/OnAckReceived hooks rather than reimplementing
// ingress dispatch.
func Addressed(tr transport.Transport, cfg AddressedConfig) (*Engine, error) {
	if err := wire.CheckByteOrder(); err != nil {
		return nil, err
	}
	clk := clock.New(cfg.RetryTimeout)
	codec := wire.AddressedCodec{}
	return &Engine{
		Clock:     clk,
		Codec:     codec,
		Queue:     retryqueue.New(clk, codec, cfg.MaxQueueSize),
		Transport: tr,
		Policy:    retryqueue.DefaultPolicy(clk, cfg.RetryCount, cfg.RetryTimeout),

		SelfID:         cfg.SelfID,
		Addressed:      true,
		MaxInboundSize: cfg.MaxInbound,
		Logger:         zerolog.Nop(),
	}, nil
}
