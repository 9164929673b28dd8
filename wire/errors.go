package wire

import "errors"

var (
	// ErrBadByteOrder is returned by CheckByteOrder when the host cannot
	// round-trip Magic through big-endian encoding. Per spec.md §7,
	// callers must abort construction rather than proceed.
	ErrBadByteOrder = errors.New("wire: host cannot represent big-endian magic number")
)
