package xymodem

import "testing"

// countingLogger counts Info calls so tests can assert the detector
// announces a settled protocol exactly once.
type countingLogger struct {
	infoCalls int
	last      string
}

func (c *countingLogger) Debug(format string, args ...interface{}) {}
func (c *countingLogger) Error(format string, args ...interface{}) {}
func (c *countingLogger) Info(format string, args ...interface{}) {
	c.infoCalls++
	c.last = format
}

func TestDetectorStartsWithAllFiveCandidates(t *testing.T) {
	d := NewProtocolDetector(nil)
	if got := d.Candidates(); got != 5 {
		t.Fatalf("Candidates() = %d, want 5", got)
	}
}

func TestDetectorNarrowsMonotonically(t *testing.T) {
	d := NewProtocolDetector(nil)
	prev := d.Candidates()
	d.SetBatch(true)
	if got := d.Candidates(); got > prev {
		t.Fatalf("candidate set grew after SetBatch(true): %d -> %d", prev, got)
	}
	prev = d.Candidates()
	d.Set1K(true)
	if got := d.Candidates(); got > prev {
		t.Fatalf("candidate set grew after Set1K(true): %d -> %d", prev, got)
	}
}

func TestDetectorStreamingSettlesToYModemG(t *testing.T) {
	log := &countingLogger{}
	d := NewProtocolDetector(log)
	d.SetStreaming(true)
	if !d.IsCRC() {
		t.Fatal("SetStreaming(true) must imply CRC mode")
	}
	if got := d.Candidates(); got != 1 {
		t.Fatalf("Candidates() = %d, want 1 after settling on streaming", got)
	}
	if log.infoCalls != 1 {
		t.Fatalf("expected exactly one announcement, got %d", log.infoCalls)
	}
}

func TestDetectorAnnouncesOnlyOnce(t *testing.T) {
	log := &countingLogger{}
	d := NewProtocolDetector(log)
	d.SetCRC(false) // narrows straight to XModemChecksum
	if log.infoCalls != 1 {
		t.Fatalf("expected one announcement, got %d", log.infoCalls)
	}
	// Further calls must never re-announce, even if they're no-ops.
	d.SetBatch(false)
	d.Set1K(false)
	if log.infoCalls != 1 {
		t.Fatalf("expected announcement count to stay 1, got %d", log.infoCalls)
	}
}

func TestDetectorNAKSettlesToXModemChecksum(t *testing.T) {
	d := NewProtocolDetector(nil)
	d.SetCRC(false)
	if d.IsCRC() {
		t.Fatal("IsCRC() must be false after settling on a non-CRC handshake")
	}
	if got := d.Candidates(); got != 1 {
		t.Fatalf("Candidates() = %d, want 1", got)
	}
}

func TestDetectorBatchThenNotStreamingSettlesYModemBatch(t *testing.T) {
	d := NewProtocolDetector(nil)
	d.SetCRC(true)
	d.SetBatch(true)
	if got := d.Candidates(); got != 2 {
		t.Fatalf("Candidates() = %d, want 2 (YModem-Batch and YModem-G still both plausible)", got)
	}
	d.SetStreaming(false)
	if got := d.Candidates(); got != 1 {
		t.Fatalf("Candidates() = %d, want 1 once streaming is ruled out", got)
	}
	if d.IsBatch() != true || d.IsStreaming() != false {
		t.Fatalf("IsBatch()=%v IsStreaming()=%v, want true/false", d.IsBatch(), d.IsStreaming())
	}
}
