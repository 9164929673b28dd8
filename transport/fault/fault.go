// Package fault provides Transport wrappers used to exercise the retry
// and resynchronisation properties spec.md §8 requires: a transport that
// refuses a bounded number of writes before accepting, a black hole that
// accepts forever without ever delivering, and a recorder that mirrors
// the teacher's MockDriver.GetTxLog for assertions against what was
// actually transmitted.
package fault

import "github.com/fenwicklabs/linkproto/transport"

// Refusing wraps a Transport and returns transport.Refused for the first
// Remaining calls to WriteFrame, then delegates to Inner.
type Refusing struct {
	Inner     transport.Transport
	Remaining int
}

func (r *Refusing) ReadAvailable(dst []byte) (int, error) { return r.Inner.ReadAvailable(dst) }

func (r *Refusing) WriteFrame(frame []byte) transport.Result {
	if r.Remaining > 0 {
		r.Remaining--
		return transport.Refused
	}
	return r.Inner.WriteFrame(frame)
}

// BlackHole accepts every write and delivers nothing, modelling an
// unreachable peer for retry-exhaustion tests (spec.md §8 scenario 4).
type BlackHole struct{}

func (BlackHole) ReadAvailable([]byte) (int, error)  { return 0, nil }
func (BlackHole) WriteFrame([]byte) transport.Result { return transport.Accepted }

// Recorder wraps a Transport and keeps a copy of every frame passed to
// WriteFrame, regardless of whether Inner accepted or refused it.
type Recorder struct {
	Inner   transport.Transport
	Written [][]byte
}

func (r *Recorder) ReadAvailable(dst []byte) (int, error) { return r.Inner.ReadAvailable(dst) }

func (r *Recorder) WriteFrame(frame []byte) transport.Result {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	r.Written = append(r.Written, cp)
	return r.Inner.WriteFrame(frame)
}
