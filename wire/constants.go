// Package wire implements the on-the-wire frame format shared by every
// ConnectionEngine variant: magic-number framing, header encode/decode for
// the point-to-point and addressed header layouts, and the magic-search
// decoder that locates frame boundaries in (and resynchronises against) a
// lossy byte stream.
package wire

// Magic is transmitted big-endian as the four bytes DE AD BE EF and marks
// the start of every frame, transient prefix excluded.
const Magic uint32 = 0xDEADBEEF

// Tail is the weak corruption sentinel appended after every frame's
// payload. It is not a cryptographic check (spec.md §1 Non-goals).
const Tail byte = 0xEE

// Reserved application types. Values 254 and 255 never carry application
// payload upward through Engine.OnPacketReceived, except on a Stateless
// Engine, which surfaces every decoded frame as-is.
const (
	TypeSync byte = 254
	TypeAck  byte = 255
)

// MagicSize is the byte width of the on-wire magic number.
const MagicSize = 4
