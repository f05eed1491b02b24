package xymodem

import "time"

// FrameKind classifies what Framer.ReadBlock found.
type FrameKind int

const (
	// FrameData is an ordinary SOH/STX data block.
	FrameData FrameKind = iota
	// FrameEOT is an EOT or EOF header byte (no body follows).
	FrameEOT
	// FrameCancel is two consecutive CAN bytes: sender-initiated abort.
	FrameCancel
)

// Framer reads one transmission block at a time from a pushback-wrapped
// IOPort, applying the per-block timeouts and integrity check a receiver
// needs to validate one SOH/STX transmission block.
// It holds no block-sequencing state of its own — the session controller
// owns prevBlockNum and the retry budget.
type Framer struct {
	port          *pushbackPort
	detector      *ProtocolDetector
	headerTimeout time.Duration
	byteTimeout   time.Duration
}

func newFramer(port *pushbackPort, detector *ProtocolDetector, headerTimeout, byteTimeout time.Duration) *Framer {
	return &Framer{port: port, detector: detector, headerTimeout: headerTimeout, byteTimeout: byteTimeout}
}

// ReadBlock reads one block. On success it returns a FrameKind and, for
// FrameData, the block number, whether the header byte was STX (1024-byte
// block) rather than SOH, and the payload. A non-nil error is always a
// framing error (timeout, bad complement, bad integrity, or an
// unrecognized header byte) or a propagated user-cancel — the caller
// decides whether to NAK-and-retry or abort based on dialect.
func (f *Framer) ReadBlock() (FrameKind, byte, bool, []byte, error) {
	header, err := f.port.ReadByte(f.headerTimeout)
	if err != nil {
		return 0, 0, false, nil, asFramingError(err)
	}

	switch header {
	case EOT, EOF:
		return FrameEOT, 0, false, nil, nil

	case CAN:
		next, err := f.port.ReadByte(f.byteTimeout)
		if err != nil {
			return 0, 0, false, nil, asFramingError(err)
		}
		if next == CAN {
			return FrameCancel, 0, false, nil, nil
		}
		return 0, 0, false, nil, NewError(ErrFraming, "single CAN not followed by CAN")
	}

	var size int
	var isSTX bool
	switch header {
	case SOH:
		size = 128
	case STX:
		size = 1024
		isSTX = true
	default:
		return 0, 0, false, nil, NewError(ErrFraming, "unrecognized header byte")
	}

	blk, err := f.port.ReadByte(f.byteTimeout)
	if err != nil {
		return 0, 0, false, nil, asFramingError(err)
	}
	comp, err := f.port.ReadByte(f.byteTimeout)
	if err != nil {
		return 0, 0, false, nil, asFramingError(err)
	}
	if byte(blk+comp) != 0xFF {
		return 0, 0, false, nil, NewError(ErrFraming, "bad block number complement")
	}

	payload := make([]byte, size)
	for i := range payload {
		b, err := f.port.ReadByte(f.byteTimeout)
		if err != nil {
			return 0, 0, false, nil, asFramingError(err)
		}
		payload[i] = b
	}

	if f.detector.IsCRC() {
		hi, err := f.port.ReadByte(f.byteTimeout)
		if err != nil {
			return 0, 0, false, nil, asFramingError(err)
		}
		lo, err := f.port.ReadByte(f.byteTimeout)
		if err != nil {
			return 0, 0, false, nil, asFramingError(err)
		}
		got := uint16(hi)<<8 | uint16(lo)
		if got != crc16XModem(payload) {
			return 0, 0, false, nil, NewError(ErrFraming, "CRC mismatch")
		}
	} else {
		sum, err := f.port.ReadByte(f.byteTimeout)
		if err != nil {
			return 0, 0, false, nil, asFramingError(err)
		}
		if sum != checksum8(payload) {
			return 0, 0, false, nil, NewError(ErrFraming, "checksum mismatch")
		}
	}

	return FrameData, blk, isSTX, payload, nil
}

// asFramingError turns a lower-level error (typically a timeout or a
// user-cancel propagated through the IOPort) into the error the framer
// promises to return: user-cancel is propagated as-is so the controller
// can distinguish it from an ordinary framing error, anything else
// becomes a framing error carrying the original timeout/IO failure as
// context.
func asFramingError(err error) error {
	if IsUserCancel(err) {
		return err
	}
	if IsTimeout(err) {
		return NewError(ErrFraming, "timed out waiting for a byte")
	}
	return WrapError(ErrFraming, "I/O error", err)
}
