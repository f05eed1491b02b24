package xymodem

// zrqinitSequence is the literal 21-byte ZMODEM request-init frame a
// ZMODEM sender transmits to wake a receiver:
//
//	* * ZDLE 'B' '0'*14 CR LF XON
//
// Recognizing it lets a host decline the ZMODEM session (by simply running
// the XMODEM/YMODEM handshake ladder instead of answering with ZRINIT),
// which causes a capable sender to fall back to XMODEM/YMODEM.
var zrqinitSequence = []byte{
	'*', '*', 0x18, 'B',
	'0', '0', '0', '0', '0', '0', '0', '0', '0', '0', '0', '0', '0', '0',
	0x0D, 0x0A, 0x11,
}

// ZRQINITDetector is a byte-at-a-time matcher for zrqinitSequence. It is
// an independent pre-session consumer of inbound bytes: a host feeds it
// every byte seen on the wire before a session starts, and Feed reports
// true exactly when the full sequence has just been matched.
//
// On a mismatch the index resets to zero unconditionally — this is a
// strict prefix match from the start on any mismatch, not a KMP-style
// partial backtrack, matching the source's intended behavior.
type ZRQINITDetector struct {
	idx int
}

// NewZRQINITDetector returns a detector ready to scan from the beginning
// of the sequence.
func NewZRQINITDetector() *ZRQINITDetector {
	return &ZRQINITDetector{}
}

// Feed advances the matcher by one byte. It returns true on (and only on)
// the byte that completes the 21-byte sequence. After a complete match or
// a mismatching byte the internal state is reset, so a fresh match begins
// on the very next call.
func (d *ZRQINITDetector) Feed(b byte) bool {
	if b == zrqinitSequence[d.idx] {
		d.idx++
		if d.idx == len(zrqinitSequence) {
			d.idx = 0
			return true
		}
		return false
	}
	d.idx = 0
	return false
}

// Reset returns the detector to its initial state.
func (d *ZRQINITDetector) Reset() {
	d.idx = 0
}
