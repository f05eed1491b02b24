package xymodem

import "time"

// Download holds per-file metadata and the sink handle for one file
// received within a session. A Download is created when the first
// payload-bearing block of a file is framed (block 1 in XMODEM, or a
// non-empty block 0 in YMODEM). It is destroyed (the file deleted) if the
// file's transfer aborts, or finalized (file closed, mtime set) and
// surfaced to the host's Callbacks.Received on successful EOT.
type Download struct {
	// Name is the original pathname as supplied by the sender (YMODEM
	// only), already normalized to a bare, collision-resolved file name.
	// Empty when the receiver chose a synthetic name (plain XMODEM).
	Name string
	// Length is the declared byte count; 0 means "unknown" (XMODEM, or an
	// omitted YMODEM length field).
	Length int64
	// MTime is the sender-supplied modification time; the zero Time means
	// "leave the file's mtime as created."
	MTime time.Time
	// Mode is the sender-supplied file mode (octal in the wire format); 0
	// if absent.
	Mode uint32
	// Serial is the sender-supplied serial number; 0 if absent.
	Serial uint32
	// ParseFailed flags, in [length, mtime, mode] order, whether the
	// corresponding numeric block-0 field failed to parse (as opposed to
	// being genuinely absent or legitimately zero). Always false outside
	// YMODEM batch transfers. See the block-0 parser's "silent zeros vs.
	// absent fields" note.
	ParseFailed [3]bool

	sink SinkFile
	// BytesWritten is the number of payload bytes written so far.
	BytesWritten int64
}
