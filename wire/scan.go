package wire

import "encoding/binary"

// OnFrame is invoked once per well-formed frame found by Scan. payload
// aliases the scanned buffer and is only valid for the duration of the
// call; a callback that needs to retain it must copy.
type OnFrame func(info Info, payload []byte)

// OnCorrupted is invoked once per frame whose trailer byte does not match
// Tail. info reflects the header as parsed; payload is not delivered.
type OnCorrupted func(info Info)

// Scan implements the framer's magic-search decode loop (spec.md §4.2)
// over data, calling onFrame for each delivered frame and onCorrupted for
// each trailer mismatch. It returns the number of leading bytes that were
// fully consumed (frames delivered/rejected, or single bytes skipped
// while searching for magic) — the caller discards that prefix from its
// inbound buffer and keeps the remainder for the next ingress cycle.
func Scan(data []byte, codec HeaderCodec, onFrame OnFrame, onCorrupted OnCorrupted) int {
	hlen := codec.HeaderLen()
	pos := 0
	for {
		if len(data)-pos < MagicSize {
			break
		}
		if binary.BigEndian.Uint32(data[pos:pos+MagicSize]) != Magic {
			pos++ // resync contract: advance by one byte, not four
			continue
		}

		headerStart := pos + MagicSize
		if len(data)-headerStart < hlen {
			break // header incomplete; wait for more bytes next cycle
		}
		info := codec.DecodeHeader(data[headerStart : headerStart+hlen])

		bodyStart := headerStart + hlen
		need := int(info.Size) + 1 // payload + trailer
		if len(data)-bodyStart < need {
			break // payload/trailer incomplete; wait for more bytes
		}

		tailPos := bodyStart + int(info.Size)
		if data[tailPos] != Tail {
			onCorrupted(info)
			// Resume scanning from the byte after MAGIC, not after the
			// presumed frame end, so a magic sequence embedded in what
			// looked like payload can still resync.
			pos += MagicSize
			continue
		}

		onFrame(info, data[bodyStart:tailPos])
		pos = tailPos + 1
	}
	return pos
}
