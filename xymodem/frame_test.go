package xymodem

import (
	"testing"
	"time"
)

func newTestFramer(crc bool, in []byte) (*Framer, *queuePort) {
	port := &queuePort{in: in}
	pb := newPushbackPort(port)
	detector := NewProtocolDetector(nil)
	detector.SetCRC(crc)
	return newFramer(pb, detector, time.Second, time.Second), port
}

func soh128ChecksumBlock(blk byte, payload []byte) []byte {
	full := make([]byte, 128)
	copy(full, payload)
	for i := len(payload); i < 128; i++ {
		full[i] = EOF
	}
	out := []byte{SOH, blk, 0xFF - blk}
	out = append(out, full...)
	out = append(out, checksum8(full))
	return out
}

func soh128CRCBlock(blk byte, payload []byte) []byte {
	full := make([]byte, 128)
	copy(full, payload)
	for i := len(payload); i < 128; i++ {
		full[i] = EOF
	}
	crc := crc16XModem(full)
	out := []byte{SOH, blk, 0xFF - blk}
	out = append(out, full...)
	out = append(out, byte(crc>>8), byte(crc))
	return out
}

func TestFramerReadsChecksumBlock(t *testing.T) {
	wire := soh128ChecksumBlock(1, []byte("hello"))
	f, _ := newTestFramer(false, wire)
	kind, blk, isSTX, payload, err := f.ReadBlock()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != FrameData || blk != 1 || isSTX {
		t.Fatalf("kind=%v blk=%d isSTX=%v", kind, blk, isSTX)
	}
	if len(payload) != 128 || string(payload[:5]) != "hello" {
		t.Fatalf("payload mismatch: %q", payload[:5])
	}
}

func TestFramerReadsCRCBlock(t *testing.T) {
	wire := soh128CRCBlock(2, []byte("world"))
	f, _ := newTestFramer(true, wire)
	kind, blk, _, payload, err := f.ReadBlock()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != FrameData || blk != 2 {
		t.Fatalf("kind=%v blk=%d", kind, blk)
	}
	if string(payload[:5]) != "world" {
		t.Fatalf("payload mismatch: %q", payload[:5])
	}
}

func TestFramerReads1KBlock(t *testing.T) {
	full := make([]byte, 1024)
	copy(full, []byte("big block"))
	for i := len("big block"); i < 1024; i++ {
		full[i] = EOF
	}
	crc := crc16XModem(full)
	wire := []byte{STX, 1, 0xFE}
	wire = append(wire, full...)
	wire = append(wire, byte(crc>>8), byte(crc))

	f, _ := newTestFramer(true, wire)
	kind, _, isSTX, payload, err := f.ReadBlock()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != FrameData || !isSTX || len(payload) != 1024 {
		t.Fatalf("kind=%v isSTX=%v len=%d", kind, isSTX, len(payload))
	}
}

func TestFramerDetectsEOT(t *testing.T) {
	f, _ := newTestFramer(false, []byte{EOT})
	kind, _, _, _, err := f.ReadBlock()
	if err != nil || kind != FrameEOT {
		t.Fatalf("kind=%v err=%v", kind, err)
	}
}

func TestFramerDetectsCancel(t *testing.T) {
	f, _ := newTestFramer(false, []byte{CAN, CAN})
	kind, _, _, _, err := f.ReadBlock()
	if err != nil || kind != FrameCancel {
		t.Fatalf("kind=%v err=%v", kind, err)
	}
}

func TestFramerRejectsBadComplement(t *testing.T) {
	wire := soh128ChecksumBlock(1, []byte("x"))
	wire[2] = 0x00 // corrupt the complement byte
	f, _ := newTestFramer(false, wire)
	_, _, _, _, err := f.ReadBlock()
	if !IsFramingError(err) {
		t.Fatalf("expected a framing error, got %v", err)
	}
}

func TestFramerRejectsBadChecksum(t *testing.T) {
	wire := soh128ChecksumBlock(1, []byte("x"))
	wire[len(wire)-1] ^= 0xFF // flip the checksum byte
	f, _ := newTestFramer(false, wire)
	_, _, _, _, err := f.ReadBlock()
	if !IsFramingError(err) {
		t.Fatalf("expected a framing error, got %v", err)
	}
}

func TestFramerRejectsBadCRC(t *testing.T) {
	wire := soh128CRCBlock(1, []byte("x"))
	wire[len(wire)-1] ^= 0xFF
	f, _ := newTestFramer(true, wire)
	_, _, _, _, err := f.ReadBlock()
	if !IsFramingError(err) {
		t.Fatalf("expected a framing error, got %v", err)
	}
}

func TestFramerRejectsUnrecognizedHeader(t *testing.T) {
	f, _ := newTestFramer(false, []byte{0x7F})
	_, _, _, _, err := f.ReadBlock()
	if !IsFramingError(err) {
		t.Fatalf("expected a framing error, got %v", err)
	}
}
