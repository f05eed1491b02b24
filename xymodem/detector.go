package xymodem

// ProtocolDetector tracks which of the five XMODEM/YMODEM dialects remain
// plausible for the current session. Removal is monotonic: once a dialect
// is removed it is never re-added. When the candidate set narrows to
// exactly one, the detector logs a single "Detected protocol" event and
// never logs again.
type ProtocolDetector struct {
	candidates map[Dialect]struct{}
	announced  bool
	logger     Logger

	isCRC       bool
	isBatch     bool
	isStreaming bool
}

// NewProtocolDetector returns a detector with all five dialects still
// plausible.
func NewProtocolDetector(logger Logger) *ProtocolDetector {
	if logger == nil {
		logger = NoopLogger{}
	}
	d := &ProtocolDetector{
		candidates: map[Dialect]struct{}{
			DialectXModemChecksum: {},
			DialectXModemCRC:      {},
			DialectXModem1K:       {},
			DialectYModemBatch:    {},
			DialectYModemG:        {},
		},
		logger: logger,
	}
	return d
}

func (d *ProtocolDetector) remove(dialects ...Dialect) {
	for _, dl := range dialects {
		delete(d.candidates, dl)
	}
	d.maybeAnnounce()
}

func (d *ProtocolDetector) maybeAnnounce() {
	if d.announced || len(d.candidates) != 1 {
		return
	}
	d.announced = true
	for dl := range d.candidates {
		d.logger.Info("Detected protocol: %s", dl)
	}
}

// SetCRC records whether the handshake used CRC mode ('C'/'G') rather than
// plain checksum (NAK).
func (d *ProtocolDetector) SetCRC(crc bool) {
	d.isCRC = d.isCRC || crc
	if crc {
		d.remove(DialectXModemChecksum)
	} else {
		d.remove(DialectXModemCRC, DialectXModem1K, DialectYModemBatch, DialectYModemG)
	}
}

// SetStreaming records whether the sender settled on YMODEM-G ('G')
// streaming. Settling on streaming always implies CRC mode.
func (d *ProtocolDetector) SetStreaming(streaming bool) {
	if streaming {
		d.isCRC = true
		d.isStreaming = true
		d.remove(DialectXModemChecksum, DialectXModemCRC, DialectXModem1K, DialectYModemBatch)
	} else {
		d.remove(DialectYModemG)
	}
}

// SetBatch records whether block 0 (YMODEM metadata) was seen.
func (d *ProtocolDetector) SetBatch(batch bool) {
	d.isBatch = d.isBatch || batch
	if batch {
		d.remove(DialectXModemChecksum, DialectXModemCRC, DialectXModem1K)
	} else {
		d.remove(DialectYModemBatch, DialectYModemG)
	}
}

// Set1K records whether the first data block arrived as STX (1024 bytes)
// rather than SOH (128 bytes).
func (d *ProtocolDetector) Set1K(is1K bool) {
	if is1K {
		d.remove(DialectXModemChecksum, DialectXModemCRC)
	} else {
		d.remove(DialectXModem1K, DialectYModemBatch, DialectYModemG)
	}
}

// IsCRC reports whether the session uses CRC-16 (rather than an 8-bit
// checksum) for block integrity.
func (d *ProtocolDetector) IsCRC() bool { return d.isCRC }

// IsBatch reports whether the session is a YMODEM batch (block 0 metadata
// seen).
func (d *ProtocolDetector) IsBatch() bool { return d.isBatch }

// IsStreaming reports whether the session is YMODEM-G (no per-block ACK).
func (d *ProtocolDetector) IsStreaming() bool { return d.isStreaming }

// Candidates returns the current candidate set's size, for tests asserting
// monotone narrowing.
func (d *ProtocolDetector) Candidates() int { return len(d.candidates) }

// candidateSet exposes a snapshot for tests without letting callers mutate
// detector state.
func (d *ProtocolDetector) candidateSet() map[Dialect]struct{} {
	cp := make(map[Dialect]struct{}, len(d.candidates))
	for k := range d.candidates {
		cp[k] = struct{}{}
	}
	return cp
}
