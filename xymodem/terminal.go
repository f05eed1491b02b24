package xymodem

import "io"

// TransferWatcher wraps a live byte stream (e.g. an SSH session's stdout)
// and scans it for the ZMODEM ZRQINIT request-init sequence without
// buffering or otherwise disturbing the data a terminal would display.
// The host keeps copying TransferWatcher's output to a terminal exactly
// as before, and gets a callback the moment a ZMODEM sender announces
// itself, with no need to pre-scan or hold back bytes.
//
// On detection, a host's typical response is to decline the ZMODEM
// session (most senders configured for feature detection fall back to
// YMODEM or XMODEM when ZRQINIT goes unanswered) and hand the stream to a
// Receiver.
type TransferWatcher struct {
	reader     io.Reader
	logger     Logger
	detector   *ZRQINITDetector
	onDetected func()
	fired      bool
}

// NewTransferWatcher wraps reader. onDetected (may be nil) is invoked
// exactly once per detection; the detector resets itself afterward so a
// later ZRQINIT in the same stream can be noticed again.
func NewTransferWatcher(reader io.Reader, logger Logger, onDetected func()) *TransferWatcher {
	if logger == nil {
		logger = NoopLogger{}
	}
	return &TransferWatcher{
		reader:     reader,
		logger:     logger,
		detector:   NewZRQINITDetector(),
		onDetected: onDetected,
	}
}

// Read implements io.Reader, passing every byte through unchanged while
// feeding it to the ZRQINIT detector.
func (w *TransferWatcher) Read(p []byte) (int, error) {
	n, err := w.reader.Read(p)
	for i := 0; i < n; i++ {
		if w.detector.Feed(p[i]) {
			w.logger.Info("ZRQINIT detected, incoming stream is ZMODEM")
			if w.onDetected != nil {
				w.onDetected()
			}
		}
	}
	return n, err
}
