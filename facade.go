// Package linkproto provides a façade over the connection engine, TDMA
// coordinator, and wire types that make up the rest of this module.
package linkproto

import (
	"github.com/fenwicklabs/linkproto/connection"
	"github.com/fenwicklabs/linkproto/tdma"
	"github.com/fenwicklabs/linkproto/wire"
)

// The actual implementations live in their own packages:
// - wire/       frame encoding, decoding, the magic-search scanner
// - clock/      the wrap-safe millisecond clock and Deadline16
// - retryqueue/ the inline-buffer outbound queue and transmit policies
// - connection/ PointToPoint, Addressed, and Stateless engine variants
// - tdma/       the round-robin token coordinator built on Addressed

// Re-export the engine variants and their configs at the package root.
type (
	Engine              = connection.Engine
	PointToPointConfig  = connection.PointToPointConfig
	AddressedConfig     = connection.AddressedConfig
	StatelessConfig     = connection.StatelessConfig
	Coordinator         = tdma.Coordinator
	TDMAConfig          = tdma.Config
)

var (
	PointToPoint = connection.PointToPoint
	Addressed    = connection.Addressed
	Stateless    = connection.Stateless
	NewTDMA      = tdma.New
)

// Re-export the wire-level types callers need to build sendRaw payloads
// and inspect delivered frames.
type Info = wire.Info

// Reserved application types (spec.md §6).
const (
	TypeSync = wire.TypeSync
	TypeAck  = wire.TypeAck
)

// Error constants exposed at the package root.
var ErrBadByteOrder = wire.ErrBadByteOrder
