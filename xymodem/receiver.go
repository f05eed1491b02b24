package xymodem

import (
	"context"
	"fmt"
	"time"
)

// Config tunes the session controller's timeouts and policy knobs. The
// zero value is not usable; call DefaultConfig and override individual
// fields.
type Config struct {
	// OverrunPolicy controls what happens when a YMODEM file writes more
	// bytes than block 0 declared.
	OverrunPolicy OverrunPolicy

	// DrainTimeout bounds each read while purging stale bytes before a
	// handshake probe or a graceful abort.
	DrainTimeout time.Duration
	// HeaderTimeout bounds the wait for the next block's header byte.
	HeaderTimeout time.Duration
	// ByteTimeout bounds the wait for each byte within a block once its
	// header has arrived.
	ByteTimeout time.Duration
	// HandshakeReuseTimeout bounds each wait for a response when resending
	// an already-settled handshake byte for a subsequent file in a batch.
	HandshakeReuseTimeout time.Duration
	// LadderProbeTimeout bounds each wait for a response during the
	// G/C/NAK handshake ladder.
	LadderProbeTimeout time.Duration

	// MaxHandshakeReuseAttempts is how many times the settled handshake
	// byte is resent before giving up.
	MaxHandshakeReuseAttempts int
	// MaxGProbes, MaxCProbes, MaxNAKProbes are the per-rung retry counts
	// in the first-file handshake ladder.
	MaxGProbes   int
	MaxCProbes   int
	MaxNAKProbes int
	// MaxBlockRetries is the per-block retry budget for non-streaming
	// dialects before the session aborts.
	MaxBlockRetries int
}

// DefaultConfig returns conservative timeouts and retry counts suitable
// for a typical serial or SSH-tunneled link.
func DefaultConfig() Config {
	return Config{
		OverrunPolicy:             OverrunIgnore,
		DrainTimeout:              time.Second,
		HeaderTimeout:             10 * time.Second,
		ByteTimeout:               time.Second,
		HandshakeReuseTimeout:     10 * time.Second,
		LadderProbeTimeout:        2 * time.Second,
		MaxHandshakeReuseAttempts: 10,
		MaxGProbes:                3,
		MaxCProbes:                3,
		MaxNAKProbes:              4,
		MaxBlockRetries:           10,
	}
}

// Receiver drives one XMODEM/YMODEM receive session end to end: handshake
// ladder, per-file block loop, overrun policy, and graceful abort. A
// Receiver is single-use — construct a fresh one per transfer.
type Receiver struct {
	port      *pushbackPort
	sink      FileSink
	callbacks *Callbacks
	logger    Logger
	config    Config
	detector  *ProtocolDetector
	framer    *Framer

	handshake Handshake

	// per-file state, reset at the top of each file
	prev               int // -1 means "no block received yet this file"
	possibleLastPacket bool

	xmodemFileCount int
}

// NewReceiver builds a Receiver. port is the raw byte transport; sink
// creates output files; callbacks (may be nil) receives progress and
// completion notifications; logger (may be nil) receives wire-level and
// protocol-decision tracing.
func NewReceiver(port IOPort, sink FileSink, callbacks *Callbacks, logger Logger, config Config) *Receiver {
	if logger == nil {
		logger = NoopLogger{}
	}
	pb := newPushbackPort(port)
	detector := NewProtocolDetector(logger)
	return &Receiver{
		port:      pb,
		sink:      sink,
		callbacks: mergeCallbacks(callbacks),
		logger:    logger,
		config:    config,
		detector:  detector,
		framer:    newFramer(pb, detector, config.HeaderTimeout, config.ByteTimeout),
		prev:      -1,
	}
}

// ReceiveAll runs the session until the batch is exhausted (YMODEM), a
// single file completes (plain XMODEM), or a fatal error aborts the
// transfer. On any fatal error it emits the graceful abort sequence
// before returning.
func (r *Receiver) ReceiveAll(ctx context.Context) error {
	for {
		if err := r.runHandshake(ctx); err != nil {
			r.gracefulAbort(err)
			return err
		}

		done, dl, err := r.receiveOneFile(ctx)
		if err != nil {
			if dl != nil {
				dl.sink.Close()
				dl.sink.Delete()
			}
			r.gracefulAbort(err)
			return err
		}
		if dl != nil {
			r.callbacks.Received(*dl)
		}
		if done {
			return nil
		}
	}
}

// runHandshake drains stale input, then either reuses an already-settled
// handshake byte (subsequent files in a batch) or runs the G → C → NAK
// probe ladder (the first file).
func (r *Receiver) runHandshake(ctx context.Context) error {
	drain(r.port, r.config.DrainTimeout)

	if r.handshake != HandshakeNone {
		for i := 0; i < r.config.MaxHandshakeReuseAttempts; i++ {
			if err := ctx.Err(); err != nil {
				return NewError(ErrUserCancel, "context cancelled")
			}
			if err := r.port.WriteByte(byte(r.handshake)); err != nil {
				return WrapError(ErrHandshakeTimeout, "failed to resend handshake byte", err)
			}
			b, err := r.port.ReadByte(r.config.HandshakeReuseTimeout)
			if err == nil {
				r.port.push(b)
				return nil
			}
			if IsUserCancel(err) {
				return err
			}
		}
		return NewError(ErrHandshakeTimeout, "handshake timed out")
	}

	if ok, err := r.probe(ctx, GRQ, r.config.MaxGProbes); err != nil {
		return err
	} else if ok {
		r.handshake = HandshakeG
		r.detector.SetStreaming(true)
		return nil
	}

	if ok, err := r.probe(ctx, CRQ, r.config.MaxCProbes); err != nil {
		return err
	} else if ok {
		r.handshake = HandshakeC
		r.detector.SetCRC(true)
		return nil
	}

	if ok, err := r.probe(ctx, NAK, r.config.MaxNAKProbes); err != nil {
		return err
	} else if ok {
		r.handshake = HandshakeNAK
		r.detector.SetCRC(false)
		return nil
	}

	return NewError(ErrHandshakeTimeout, "handshake timed out")
}

// probe sends b up to attempts times, waiting config.LadderProbeTimeout
// for a response each time. It returns ok=true the first time any byte
// arrives (stashed for the next ReadByte), ok=false if every attempt
// timed out, and a non-nil error only for a propagated user-cancel.
func (r *Receiver) probe(ctx context.Context, b byte, attempts int) (bool, error) {
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return false, NewError(ErrUserCancel, "context cancelled")
		}
		if err := r.port.WriteByte(b); err != nil {
			return false, WrapError(ErrHandshakeTimeout, "failed to send handshake probe", err)
		}
		got, err := r.port.ReadByte(r.config.LadderProbeTimeout)
		if err == nil {
			r.port.push(got)
			return true, nil
		}
		if IsUserCancel(err) {
			return false, err
		}
	}
	return false, nil
}

// receiveOneFile runs the WAIT_HEADER / HAVE_BLOCK / DELIVER loop for one
// file. It returns done=true when the session is over
// (a YMODEM batch-terminator block 0, or a completed plain-XMODEM
// transfer), along with the Download delivered (nil for a batch
// terminator) and any fatal error.
func (r *Receiver) receiveOneFile(ctx context.Context) (done bool, dl *Download, err error) {
	r.prev = -1
	r.possibleLastPacket = false
	endOfFile := false
	retries := 0

	for {
		if err := ctx.Err(); err != nil {
			return false, dl, NewError(ErrUserCancel, "context cancelled")
		}

		kind, blk, isSTX, payload, ferr := r.framer.ReadBlock()
		if ferr != nil {
			if IsUserCancel(ferr) {
				return false, dl, ferr
			}
			if r.detector.IsStreaming() {
				return false, dl, ferr
			}
			retries++
			if retries > r.config.MaxBlockRetries {
				return false, dl, NewError(ErrTooManyErrors, "too many errors")
			}
			r.nak()
			continue
		}

		switch kind {
		case FrameCancel:
			return false, dl, NewError(ErrSenderCancel, "cancel received from sender")

		case FrameEOT:
			if r.detector.IsStreaming() || endOfFile {
				if ferr := r.finalize(dl); ferr != nil {
					return false, dl, ferr
				}
				r.ack()
				return !r.detector.IsBatch(), dl, nil
			}
			endOfFile = true
			r.nak()
			continue

		case FrameData:
			valid, dup := validateBlockNum(r.prev, blk)
			if !valid {
				return false, dl, NewError(ErrDesync, "out of sequence block number")
			}
			if dup {
				if !r.detector.IsStreaming() {
					r.ack()
				}
				retries = 0
				continue
			}

			if r.prev == -1 && blk == 0 {
				r.detector.SetBatch(true)
				meta, empty := parseBlock0(payload, r.sink.Exists)
				if empty {
					if !r.detector.IsStreaming() {
						r.ack()
					}
					return true, nil, nil
				}
				sinkFile, serr := r.sink.Create(meta.Name)
				if serr != nil {
					return false, nil, WrapError(ErrSink, "failed to create output file", serr)
				}
				meta.sink = sinkFile
				dl = meta
				r.callbacks.Progress(0, dl.Length)
				if !r.detector.IsStreaming() {
					r.ack()
				}
				if werr := r.port.WriteByte(byte(r.handshake)); werr != nil {
					return false, dl, WrapError(ErrSink, "failed to request next block", werr)
				}
				r.prev = 0
				retries = 0
				continue
			}

			if r.prev == -1 && blk == 1 {
				r.detector.SetBatch(false)
				r.detector.Set1K(isSTX)
				sinkFile, serr := r.sink.Create(r.syntheticName())
				if serr != nil {
					return false, nil, WrapError(ErrSink, "failed to create output file", serr)
				}
				dl = &Download{sink: sinkFile}
			}

			if werr := r.writeData(dl, payload); werr != nil {
				return false, dl, werr
			}
			r.prev = int(blk)
			retries = 0
			r.callbacks.Progress(dl.BytesWritten, dl.Length)
			if !r.detector.IsStreaming() {
				r.ack()
			}
			continue
		}
	}
}

// validateBlockNum checks a just-read block number against prev (-1 if
// none received yet this file) and reports whether it's acceptable (the
// expected next block or an exact repeat of prev), and whether it's that
// repeat (a duplicate caused by the sender missing our ACK).
func validateBlockNum(prev int, blk byte) (valid, dup bool) {
	if prev == -1 {
		return blk == 0 || blk == 1, false
	}
	if int(blk) == prev {
		return true, true
	}
	if int(blk) == (prev+1)&0xFF {
		return true, false
	}
	return false, false
}

// writeData appends payload to dl's sink, tracking byte counts and the
// possibleLastPacket flag the overrun policy consults at finalize time.
func (r *Receiver) writeData(dl *Download, payload []byte) error {
	before := dl.BytesWritten
	if _, err := dl.sink.Write(payload); err != nil {
		return WrapError(ErrSink, "write failed", err)
	}
	dl.BytesWritten += int64(len(payload))

	if dl.Length > 0 {
		switch {
		case before < dl.Length && dl.BytesWritten >= dl.Length:
			r.possibleLastPacket = true
		case before >= dl.Length:
			r.possibleLastPacket = false
		}
	}
	return nil
}

// finalize applies the overrun policy, closes the sink, and restores the
// sender-supplied mtime, once an EOT has been accepted for dl. dl may be
// nil (an XMODEM session that ended with no data ever written — nothing
// to finalize).
func (r *Receiver) finalize(dl *Download) error {
	if dl == nil {
		return nil
	}
	if dl.Length > 0 {
		overrun := dl.BytesWritten - dl.Length
		switch {
		case overrun < 0:
			r.logger.Info("file shorter than declared length (%d of %d bytes)", dl.BytesWritten, dl.Length)
		case overrun > 0:
			if r.possibleLastPacket {
				if r.config.OverrunPolicy != OverrunAccept {
					if err := dl.sink.Truncate(dl.Length); err != nil {
						return WrapError(ErrSink, "truncate failed", err)
					}
					dl.BytesWritten = dl.Length
				}
			} else {
				switch r.config.OverrunPolicy {
				case OverrunError:
					return NewError(ErrSink, fmt.Sprintf("file exceeded declared length by %d bytes", overrun))
				case OverrunIgnore:
					if err := dl.sink.Truncate(dl.Length); err != nil {
						return WrapError(ErrSink, "truncate failed", err)
					}
					dl.BytesWritten = dl.Length
				default:
					r.logger.Info("file exceeded declared length by %d bytes, keeping all of it", overrun)
				}
			}
		}
	}
	if err := dl.sink.Close(); err != nil {
		return WrapError(ErrSink, "close failed", err)
	}
	if !dl.MTime.IsZero() {
		if err := dl.sink.SetModTime(dl.MTime); err != nil {
			return WrapError(ErrSink, "set mtime failed", err)
		}
	}
	return nil
}

func (r *Receiver) ack() { r.port.WriteByte(ACK) }

// nak purges whatever the sender has already put on the wire before
// emitting NAK, so a retransmit triggered by this NAK doesn't collide
// with bytes already in flight from the failed attempt.
func (r *Receiver) nak() {
	drain(r.port, r.config.DrainTimeout)
	r.port.WriteByte(NAK)
}

// syntheticName names a file received over plain XMODEM, which carries no
// pathname of its own.
func (r *Receiver) syntheticName() string {
	r.xmodemFileCount++
	return fmt.Sprintf("xmodem.%03d", r.xmodemFileCount)
}

// gracefulAbort emits the receiver-side abort sequence: for streaming
// dialects, two CANs (to force the sender to stop) before
// draining and six more after; otherwise a drain followed by eight CANs,
// in all cases followed by eight BS bytes.
func (r *Receiver) gracefulAbort(cause error) {
	r.logger.Error("aborting session: %v", cause)
	r.callbacks.Log(cause.Error())

	can8 := []byte{CAN, CAN, CAN, CAN, CAN, CAN, CAN, CAN}
	bs8 := []byte{BS, BS, BS, BS, BS, BS, BS, BS}

	if r.detector.IsStreaming() {
		writeBytes(r.port, can8[:2])
		drain(r.port, r.config.DrainTimeout)
		writeBytes(r.port, can8[:6])
	} else {
		drain(r.port, r.config.DrainTimeout)
		writeBytes(r.port, can8)
	}
	writeBytes(r.port, bs8)
}
