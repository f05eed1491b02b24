package xymodem

import (
	"io"
	"time"

	"golang.org/x/crypto/ssh"
)

// sshByte is one byte read from an SSH session's stdout pipe, or the error
// that ended the read.
type sshByte struct {
	b   byte
	err error
}

// SSHSource adapts an *ssh.Session's stdin/stdout pipes to IOPort. SSH
// stdio pipes have no SetReadDeadline the way a net.Conn does, so ReadByte
// is backed by a single background goroutine that reads continuously and
// delivers each byte over a channel; a timed-out caller simply stops
// waiting on that channel; the goroutine's next byte (or the session's
// eventual close) is picked up by whichever later ReadByte call is
// waiting.
type SSHSource struct {
	session   *ssh.Session
	stdinPipe io.WriteCloser
	stdin     io.Writer
	bytes     chan sshByte
}

// NewSSHSource starts sess (it must not already be started) and wires up
// an IOPort over its stdio. cmd is the remote sending command to run
// (e.g. "sb file.bin" or "sx file.bin"); the caller is responsible for waiting on sess after
// the transfer completes. logger (may be nil) receives a byte-level trace
// of everything read from and written to the session's stdio.
func NewSSHSource(sess *ssh.Session, cmd string, logger Logger) (*SSHSource, error) {
	if logger == nil {
		logger = NoopLogger{}
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := sess.Start(cmd); err != nil {
		return nil, err
	}

	s := &SSHSource{
		session:   sess,
		stdinPipe: stdin,
		stdin:     NewLoggingWriter(stdin, logger, "ssh stdin"),
		bytes:     make(chan sshByte),
	}
	go s.pump(NewLoggingReader(stdout, logger, "ssh stdout"))
	return s, nil
}

func (s *SSHSource) pump(r io.Reader) {
	var buf [1]byte
	for {
		n, err := r.Read(buf[:])
		if n > 0 {
			s.bytes <- sshByte{b: buf[0], err: nil}
		}
		if err != nil {
			s.bytes <- sshByte{err: err}
			return
		}
	}
}

// ReadByte implements IOPort. It waits up to timeout for the next byte the
// background pump goroutine delivers.
func (s *SSHSource) ReadByte(timeout time.Duration) (byte, error) {
	select {
	case sb := <-s.bytes:
		if sb.err != nil {
			return 0, WrapError(ErrTimeout, "ssh stdout closed", sb.err)
		}
		return sb.b, nil
	case <-time.After(timeout):
		return 0, ErrTimeoutSentinel
	}
}

// WriteByte implements IOPort.
func (s *SSHSource) WriteByte(b byte) error {
	_, err := s.stdin.Write([]byte{b})
	return err
}

// Close closes the stdin pipe, signaling end of input to the remote
// command, and closes the underlying SSH session.
func (s *SSHSource) Close() error {
	s.stdinPipe.Close()
	return s.session.Close()
}
