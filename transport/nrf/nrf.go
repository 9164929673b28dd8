//go:build tinygo || baremetal

// Package nrf implements transport.Transport over the nRF24-family radio
// peripheral on an embedded target. The register-level sequencing —
// StartHFCLK, ConfigureRadio's PCNF0/PCNF1 setup, the busy-wait Tx/Rx
// loops — is carried over unchanged from the teacher's
// driver/nrf/nrf_driver.go and radio.go; what changes is the shape it's
// wrapped in: where the teacher exposed a RadioDriver consumed by a
// pairing/heartbeat state machine, this exposes ReadAvailable/WriteFrame
// directly, matching the transport.Transport contract every
// ConnectionEngine variant in this module drives.
package nrf

import (
	"errors"
	"time"
	"unsafe"

	"device/nrf"

	"github.com/fenwicklabs/linkproto/transport"
)

// maxFrameSize is the nRF24 hardware payload ceiling (PCNF1.MAXLEN); one
// byte short of it is reserved the same way the teacher's packet format
// reserved a length-prefix byte, here used to length-prefix the frame so
// Rx knows how much of the fixed-size radio buffer to return.
const maxFrameSize = 64

var (
	ErrInvalidChannel = errors.New("nrf: invalid channel (valid range 0-125)")
	ErrTimeout         = errors.New("nrf: rx timed out")
)

// Radio is a transport.Transport backed by the real NRF24 peripheral.
// It is not safe for concurrent use — like every Transport in this
// module, spec.md §5 gives its owning ConnectionEngine exclusive access.
type Radio struct {
	buffer    [maxFrameSize]byte
	rxTimeout time.Duration
}

// New configures the radio on address/prefix/channel and returns a Radio
// ready to be handed to connection.PointToPoint, connection.Addressed, or
// tdma.New. rxTimeout bounds how long ReadAvailable's underlying Rx waits
// for a packet before reporting "nothing available" rather than blocking
// the caller's tick() indefinitely.
func New(address uint32, prefix byte, channel uint8, rxTimeout time.Duration) (*Radio, error) {
	if channel > 125 {
		return nil, ErrInvalidChannel
	}
	startHFCLK()
	if err := configureRadio(address, prefix, channel); err != nil {
		return nil, err
	}
	return &Radio{rxTimeout: rxTimeout}, nil
}

// ReadAvailable drains at most one radio packet into dst. A timed-out Rx
// is reported as "nothing available right now" rather than an error, so
// ConnectionEngine's ingress drain treats a quiet radio the same way it
// treats a quiet in-memory transport.
func (r *Radio) ReadAvailable(dst []byte) (int, error) {
	data, err := r.rx(r.rxTimeout)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return 0, nil
		}
		return 0, err
	}
	return copy(dst, data), nil
}

// WriteFrame transmits frame as a single radio packet. The nRF24
// peripheral has no notion of "refused" at this layer (unlike
// tdma.tokenGate, which wraps this same Transport to add one), so every
// call that reaches the hardware without error returns Accepted.
func (r *Radio) WriteFrame(frame []byte) transport.Result {
	if len(frame) > maxFrameSize-1 {
		frame = frame[:maxFrameSize-1]
	}
	if err := r.tx(frame); err != nil {
		return transport.Refused
	}
	return transport.Accepted
}

func startHFCLK() {
	nrf.CLOCK.EVENTS_HFCLKSTARTED.Set(0)
	nrf.CLOCK.TASKS_HFCLKSTART.Set(1)
	for nrf.CLOCK.EVENTS_HFCLKSTARTED.Get() == 0 {
	}
}

func configureRadio(address uint32, prefix byte, channel uint8) error {
	if channel > 125 {
		return ErrInvalidChannel
	}

	nrf.RADIO.POWER.Set(1)
	nrf.RADIO.MODE.Set(nrf.RADIO_MODE_MODE_Nrf_1Mbit)
	nrf.RADIO.TXPOWER.Set(nrf.RADIO_TXPOWER_TXPOWER_0dBm)
	nrf.RADIO.FREQUENCY.Set(uint32(channel))

	nrf.RADIO.BASE0.Set(address)
	nrf.RADIO.PREFIX0.Set(uint32(prefix))
	nrf.RADIO.TXADDRESS.Set(0)
	nrf.RADIO.RXADDRESSES.Set(1)

	nrf.RADIO.PCNF0.Set(
		(8 << nrf.RADIO_PCNF0_LFLEN_Pos) |
			(0 << nrf.RADIO_PCNF0_S0LEN_Pos) |
			(0 << nrf.RADIO_PCNF0_S1LEN_Pos))

	nrf.RADIO.PCNF1.Set(
		(maxFrameSize << nrf.RADIO_PCNF1_MAXLEN_Pos) |
			(0 << nrf.RADIO_PCNF1_STATLEN_Pos) |
			(3 << nrf.RADIO_PCNF1_BALEN_Pos) |
			(nrf.RADIO_PCNF1_ENDIAN_Little << nrf.RADIO_PCNF1_ENDIAN_Pos))

	nrf.RADIO.CRCCNF.Set(1)
	nrf.RADIO.CRCINIT.Set(0xFF)
	nrf.RADIO.CRCPOLY.Set(0x107)

	return nil
}

func (r *Radio) tx(data []byte) error {
	r.buffer[0] = byte(len(data))
	copy(r.buffer[1:], data)
	nrf.RADIO.PACKETPTR.Set(uint32(uintptr(unsafe.Pointer(&r.buffer[0]))))
	nrf.RADIO.EVENTS_READY.Set(0)
	nrf.RADIO.EVENTS_END.Set(0)
	nrf.RADIO.TASKS_TXEN.Set(1)
	for nrf.RADIO.EVENTS_READY.Get() == 0 {
	}
	nrf.RADIO.TASKS_START.Set(1)
	for nrf.RADIO.EVENTS_END.Get() == 0 {
	}
	nrf.RADIO.TASKS_DISABLE.Set(1)
	for nrf.RADIO.STATE.Get() != nrf.RADIO_STATE_STATE_Disabled {
	}
	return nil
}

func (r *Radio) rx(timeout time.Duration) ([]byte, error) {
	nrf.RADIO.PACKETPTR.Set(uint32(uintptr(unsafe.Pointer(&r.buffer[0]))))
	nrf.RADIO.EVENTS_READY.Set(0)
	nrf.RADIO.EVENTS_END.Set(0)
	nrf.RADIO.TASKS_RXEN.Set(1)
	for nrf.RADIO.EVENTS_READY.Get() == 0 {
	}
	nrf.RADIO.TASKS_START.Set(1)
	start := time.Now()
	for nrf.RADIO.EVENTS_END.Get() == 0 {
		if time.Since(start) > timeout {
			nrf.RADIO.TASKS_DISABLE.Set(1)
			for nrf.RADIO.STATE.Get() != nrf.RADIO_STATE_STATE_Disabled {
			}
			return nil, ErrTimeout
		}
	}
	nrf.RADIO.TASKS_DISABLE.Set(1)
	for nrf.RADIO.STATE.Get() != nrf.RADIO_STATE_STATE_Disabled {
	}

	n := int(r.buffer[0])
	if n > maxFrameSize-1 {
		n = maxFrameSize - 1
	}
	out := make([]byte, n)
	copy(out, r.buffer[1:1+n])
	return out, nil
}
