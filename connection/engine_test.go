package connection

import (
	"bytes"
	"testing"
	"time"

	"github.com/fenwicklabs/linkproto/transport/fault"
	"github.com/fenwicklabs/linkproto/transport/memory"
	"github.com/fenwicklabs/linkproto/wire"
)

// TestSingleByteRoundTrip is spec.md §8 scenario 1: A.send(type=7,
// [0x42]) over a memory-loop transport delivers exactly once to B and
// produces the exact wire bytes named in the spec for both the frame and
// its ACK.
func TestSingleByteRoundTrip(t *testing.T) {
	a, b := memory.NewLoopbackPair()
	recA := &fault.Recorder{Inner: a}
	recB := &fault.Recorder{Inner: b}

	engA, err := PointToPoint(recA, PointToPointConfig{RetryCount: 3, RetryTimeout: 100})
	if err != nil {
		t.Fatalf("PointToPoint(A) error = %v", err)
	}
	engB, err := PointToPoint(recB, PointToPointConfig{RetryCount: 3, RetryTimeout: 100})
	if err != nil {
		t.Fatalf("PointToPoint(B) error = %v", err)
	}

	var received []byte
	receivedCount := 0
	engB.OnPacketReceived = func(info wire.Info, payload []byte) {
		receivedCount++
		received = append([]byte{}, payload...)
		if info.Type != 7 {
			t.Fatalf("received type = %d, want 7", info.Type)
		}
	}
	corrupted := 0
	engA.OnPacketCorrupted = func(wire.Info) { corrupted++ }

	if _, err := engA.SendRaw(7, []byte{0x42}); err != nil {
		t.Fatalf("SendRaw() error = %v", err)
	}

	for i := 0; i < 4; i++ {
		engA.Tick()
		engB.Tick()
	}

	if receivedCount != 1 {
		t.Fatalf("receivedCount = %d, want 1", receivedCount)
	}
	if !bytes.Equal(received, []byte{0x42}) {
		t.Fatalf("received payload = %v, want [0x42]", received)
	}
	if corrupted != 0 {
		t.Fatalf("corrupted = %d, want 0", corrupted)
	}

	if len(recA.Written) < 1 {
		t.Fatal("A never wrote a frame")
	}
	wantDataFrame := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x07, 0x00, 0x42, 0xEE}
	if !bytes.Equal(recA.Written[0], wantDataFrame) {
		t.Fatalf("A's first frame = % X, want % X", recA.Written[0], wantDataFrame)
	}

	if len(recB.Written) < 1 {
		t.Fatal("B never wrote an ack")
	}
	wantAckFrame := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0xFF, 0x00, 0x07, 0xEE}
	if !bytes.Equal(recB.Written[0], wantAckFrame) {
		t.Fatalf("B's ack frame = % X, want % X", recB.Written[0], wantAckFrame)
	}

	if engA.Queue.Len() != 0 {
		t.Fatalf("A's outbound queue len = %d, want 0 (acked)", engA.Queue.Len())
	}
}

// TestSendOrderPreservedAcrossMultipleFrames exercises spec.md §8's
// send-order delivery invariant under a lossless transport.
func TestSendOrderPreservedAcrossMultipleFrames(t *testing.T) {
	a, b := memory.NewLoopbackPair()
	engA, _ := PointToPoint(a, PointToPointConfig{RetryCount: 3, RetryTimeout: 100})
	engB, _ := PointToPoint(b, PointToPointConfig{RetryCount: 3, RetryTimeout: 100})

	var seen []byte
	engB.OnPacketReceived = func(info wire.Info, payload []byte) {
		seen = append(seen, payload[0])
	}

	for i := byte(0); i < 5; i++ {
		if _, err := engA.SendRaw(9, []byte{i}); err != nil {
			t.Fatalf("SendRaw(%d) error = %v", i, err)
		}
	}

	for i := 0; i < 6; i++ {
		engA.Tick()
		engB.Tick()
	}

	want := []byte{0, 1, 2, 3, 4}
	if !bytes.Equal(seen, want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
}

// TestCorruptionCallbackFiresOnBadTrailer is spec.md §8 scenario 3.
func TestCorruptionCallbackFiresOnBadTrailer(t *testing.T) {
	a, b := memory.NewLoopbackPair()
	engB, _ := PointToPoint(b, PointToPointConfig{RetryCount: 3, RetryTimeout: 100})

	var got wire.Info
	corrupted := 0
	engB.OnPacketCorrupted = func(info wire.Info) {
		corrupted++
		got = info
	}

	bad := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x07, 0x02, 0x99, 0x00}
	a.WriteFrame(bad)

	engB.Tick()

	if corrupted != 1 {
		t.Fatalf("corrupted = %d, want 1", corrupted)
	}
	if got.Size != 1 || got.Type != 7 || got.ID != 2 {
		t.Fatalf("corrupted info = %+v, want {Size:1 Type:7 ID:2}", got)
	}
}

// TestResyncAfterFalseMagicPrefix is spec.md §8 scenario 2.
func TestResyncAfterFalseMagicPrefix(t *testing.T) {
	a, b := memory.NewLoopbackPair()
	engB, _ := PointToPoint(b, PointToPointConfig{RetryCount: 3, RetryTimeout: 100})

	delivered := 0
	corrupted := 0
	engB.OnPacketReceived = func(wire.Info, []byte) { delivered++ }
	engB.OnPacketCorrupted = func(wire.Info) { corrupted++ }

	noise := []byte{0xDE, 0xAD, 0xBE, 0xEE}
	valid := wire.EncodeFrame(wire.PointToPointCodec{}, wire.Info{Size: 1, Type: 3, ID: 0}, []byte{0x01})
	a.WriteFrame(append(noise, valid...))

	engB.Tick()

	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}
	if corrupted != 0 {
		t.Fatalf("corrupted = %d, want 0 (false magic fails at byte 4, before a header is ever parsed)", corrupted)
	}
}

// TestRetryExhaustionDropsSilently is spec.md §8 scenario 4.
func TestRetryExhaustionDropsSilently(t *testing.T) {
	bh := fault.BlackHole{}
	rec := &fault.Recorder{Inner: bh}
	eng, _ := PointToPoint(rec, PointToPointConfig{RetryCount: 3, RetryTimeout: 10})

	if _, err := eng.SendRaw(5, []byte{0x01}); err != nil {
		t.Fatalf("SendRaw() error = %v", err)
	}

	for i := 0; i < 6; i++ {
		time.Sleep(12 * time.Millisecond)
		eng.Tick()
	}

	if len(rec.Written) != 3 {
		t.Fatalf("writeFrame calls = %d, want 3 (retryCount)", len(rec.Written))
	}
	if eng.Queue.Len() != 0 {
		t.Fatalf("queue len = %d, want 0 after exhaustion", eng.Queue.Len())
	}
}

// TestAddressedDropsFramesNotForSelf exercises the addressed-only drop
// rule of spec.md §4.4.
func TestAddressedDropsFramesNotForSelf(t *testing.T) {
	eps := memory.NewBus(3)
	eng1, _ := Addressed(eps[1], AddressedConfig{SelfID: 1, RetryCount: 3, RetryTimeout: 100})

	delivered := 0
	eng1.OnPacketReceived = func(wire.Info, []byte) { delivered++ }

	notForMe := wire.EncodeFrame(wire.AddressedCodec{}, wire.Info{Size: 1, Type: 9, ID: 0, From: 0, To: 2}, []byte{0x01})
	eps[0].WriteFrame(notForMe)
	eng1.Tick()
	if delivered != 0 {
		t.Fatalf("delivered = %d, want 0 (addressed to peer 2)", delivered)
	}

	forMe := wire.EncodeFrame(wire.AddressedCodec{}, wire.Info{Size: 1, Type: 9, ID: 1, From: 0, To: 1}, []byte{0x02})
	eps[0].WriteFrame(forMe)
	eng1.Tick()
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1 (addressed to self)", delivered)
	}
}

// TestStatelessNeverAcksOrRetries verifies the Stateless variant's
// short-circuit: frames surface immediately and a black-holed send is
// never retried.
func TestStatelessNeverAcksOrRetries(t *testing.T) {
	a, b := memory.NewLoopbackPair()
	recA := &fault.Recorder{Inner: a}
	engA, _ := Stateless(recA, StatelessConfig{})
	engB, _ := Stateless(b, StatelessConfig{})

	delivered := 0
	engB.OnPacketReceived = func(info wire.Info, payload []byte) {
		delivered++
		if info.Type != 4 {
			t.Fatalf("type = %d, want 4", info.Type)
		}
	}

	if _, err := engA.SendRaw(4, []byte{0x07}); err != nil {
		t.Fatalf("SendRaw() error = %v", err)
	}
	engA.Tick()
	engB.Tick()

	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}
	if a.Pending() != 0 {
		t.Fatalf("bytes written back to A = %d, want 0 (no ack)", a.Pending())
	}
	if len(recA.Written) != 1 {
		t.Fatalf("writes = %d, want 1 (no retry)", len(recA.Written))
	}
	if engA.Queue.Len() != 0 {
		t.Fatalf("queue len = %d, want 0 (fire-and-forget disposes immediately)", engA.Queue.Len())
	}
}
