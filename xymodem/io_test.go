package xymodem

import (
	"errors"
	"testing"
	"time"
)

// queuePort is a synchronous, single-threaded IOPort for tests: ReadByte
// pops from a pre-loaded queue (or times out when it's empty), WriteByte
// appends to a captured output slice.
type queuePort struct {
	in  []byte
	out []byte
}

func (p *queuePort) ReadByte(timeout time.Duration) (byte, error) {
	if len(p.in) == 0 {
		return 0, ErrTimeoutSentinel
	}
	b := p.in[0]
	p.in = p.in[1:]
	return b, nil
}

func (p *queuePort) WriteByte(b byte) error {
	p.out = append(p.out, b)
	return nil
}

func TestPushbackPortReturnsPushedByteFirst(t *testing.T) {
	base := &queuePort{in: []byte{0xAA}}
	pb := newPushbackPort(base)
	pb.push(0x42)

	b, err := pb.ReadByte(time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b != 0x42 {
		t.Fatalf("ReadByte = %#02x, want the pushed byte %#02x", b, 0x42)
	}

	b, err = pb.ReadByte(time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b != 0xAA {
		t.Fatalf("ReadByte = %#02x, want the underlying port's byte %#02x", b, 0xAA)
	}
}

func TestPushbackPortPassesThroughWithNoPush(t *testing.T) {
	base := &queuePort{in: []byte{0x01, 0x02}}
	pb := newPushbackPort(base)
	b, _ := pb.ReadByte(time.Second)
	if b != 0x01 {
		t.Fatalf("ReadByte = %#02x, want 0x01", b)
	}
}

func TestDrainStopsAtTimeout(t *testing.T) {
	base := &queuePort{in: []byte{1, 2, 3}}
	drain(base, time.Second)
	if len(base.in) != 0 {
		t.Fatalf("drain left %d bytes unconsumed", len(base.in))
	}
}

// cancelPort raises a user-cancel on its first read, to confirm drain
// swallows it rather than panicking or propagating.
type cancelPort struct{ reads int }

func (p *cancelPort) ReadByte(timeout time.Duration) (byte, error) {
	p.reads++
	return 0, ErrUserCancelSentinel
}
func (p *cancelPort) WriteByte(b byte) error { return nil }

func TestDrainSwallowsUserCancel(t *testing.T) {
	p := &cancelPort{}
	drain(p, time.Second)
	if p.reads != 1 {
		t.Fatalf("drain should stop after the first read, got %d reads", p.reads)
	}
}

func TestWriteBytesStopsOnFirstError(t *testing.T) {
	errPort := &erroringPort{failAfter: 2}
	err := writeBytes(errPort, []byte{1, 2, 3, 4})
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(errPort.written) != 2 {
		t.Fatalf("wrote %d bytes, want 2 before the failure", len(errPort.written))
	}
}

type erroringPort struct {
	written   []byte
	failAfter int
}

func (p *erroringPort) ReadByte(timeout time.Duration) (byte, error) {
	return 0, ErrTimeoutSentinel
}

func (p *erroringPort) WriteByte(b byte) error {
	if len(p.written) >= p.failAfter {
		return errors.New("write failed")
	}
	p.written = append(p.written, b)
	return nil
}
