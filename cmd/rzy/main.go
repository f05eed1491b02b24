// Command rzy receives files over XMODEM or YMODEM on stdin/stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drunlade/go-xyrecv/xymodem"
)

var (
	verbose   = flag.Bool("v", false, "verbose mode")
	quiet     = flag.Bool("q", false, "quiet mode")
	overwrite = flag.Bool("y", false, "overwrite existing files")
	protect   = flag.Bool("p", false, "protect existing files (fail the transfer rather than overwrite)")
	dir       = flag.String("dir", ".", "directory to write received files into")
	overrun   = flag.String("overrun", "ignore", "overrun policy: ignore, error, accept, mixed")
	logPath   = flag.String("log", "", "protocol trace log file (for debugging)")
	help      = flag.Bool("h", false, "show help")
	version   = flag.Bool("version", false, "show version")
)

const versionString = "rzy version 0.1.0"

func main() {
	flag.Parse()

	if *help {
		showUsage(0)
	}
	if *version {
		fmt.Println(versionString)
		os.Exit(0)
	}

	policy, err := parseOverrunPolicy(*overrun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := signalContext(sigChan)
	defer cancel()

	var logger xymodem.Logger = xymodem.NoopLogger{}
	if *logPath != "" {
		fl, err := xymodem.NewFileLogger(*logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer fl.Close()
		logger = fl
	}

	config := xymodem.DefaultConfig()
	config.OverrunPolicy = policy

	progress := xymodem.NewProgressTracker(func(filename string, bytesSoFar, total int64, bytesPerSecond float64) {
		if total > 0 {
			fmt.Fprintf(os.Stderr, "\r%.1f%% (%d/%d bytes, %.0f B/s)", float64(bytesSoFar)/float64(total)*100, bytesSoFar, total, bytesPerSecond)
		} else {
			fmt.Fprintf(os.Stderr, "\r%d bytes (%.0f B/s)", bytesSoFar, bytesPerSecond)
		}
	}, 200*time.Millisecond)
	var lastBytes int64 = -1

	callbacks := &xymodem.Callbacks{
		Log: func(message string) {
			if !*quiet {
				fmt.Fprintf(os.Stderr, "%s\n", message)
			}
		},
		Progress: func(bytesSoFar, total int64) {
			if *quiet || !*verbose {
				return
			}
			if lastBytes < 0 || bytesSoFar < lastBytes {
				progress.Start("", total)
			}
			lastBytes = bytesSoFar
			progress.Update(bytesSoFar)
		},
		Received: func(dl xymodem.Download) {
			if *quiet {
				return
			}
			name := dl.Name
			if name == "" {
				name = "(unnamed)"
			}
			if *verbose {
				fmt.Fprintf(os.Stderr, "\nreceived %s (%d bytes)\n", name, dl.BytesWritten)
			} else {
				fmt.Fprintf(os.Stderr, "%s\n", name)
			}
		},
	}

	sink := &guardedSink{base: xymodem.NewDefaultFileSink(*dir), overwrite: *overwrite, protect: *protect}
	port := &stdioPort{
		in:  xymodem.NewLoggingReader(os.Stdin, logger, "stdin"),
		out: xymodem.NewLoggingWriter(os.Stdout, logger, "stdout"),
	}

	session := xymodem.NewSession(port, sink,
		xymodem.WithConfig(config),
		xymodem.WithCallbacks(callbacks),
		xymodem.WithContext(ctx),
		xymodem.WithLogger(logger),
	)

	if err := session.Run(); err != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func parseOverrunPolicy(s string) (xymodem.OverrunPolicy, error) {
	switch s {
	case "ignore":
		return xymodem.OverrunIgnore, nil
	case "error":
		return xymodem.OverrunError, nil
	case "accept":
		return xymodem.OverrunAccept, nil
	case "mixed":
		return xymodem.OverrunMixed, nil
	default:
		return 0, fmt.Errorf("unknown -overrun value %q (want ignore, error, accept, or mixed)", s)
	}
}

// guardedSink applies -y/-p collision policy on top of DefaultFileSink.
type guardedSink struct {
	base      *xymodem.DefaultFileSink
	overwrite bool
	protect   bool
}

func (g *guardedSink) Exists(name string) bool {
	if g.overwrite {
		return false
	}
	return g.base.Exists(name)
}

func (g *guardedSink) Create(name string) (xymodem.SinkFile, error) {
	if g.protect && g.base.Exists(name) {
		return nil, fmt.Errorf("refusing to overwrite existing file %q (-p)", name)
	}
	return g.base.Create(name)
}

// stdioPort adapts os.Stdin/os.Stdout to IOPort. Neither supports a native
// read deadline, so each ReadByte spawns a one-shot goroutine and races it
// against time.After (sshpipe.go instead keeps one long-lived reader
// goroutine for SSH stdio).
type stdioPort struct {
	in  io.Reader
	out io.Writer
}

type stdioByte struct {
	b   byte
	err error
}

func (p *stdioPort) ReadByte(timeout time.Duration) (byte, error) {
	result := make(chan stdioByte, 1)
	go func() {
		var buf [1]byte
		n, err := p.in.Read(buf[:])
		if n > 0 {
			result <- stdioByte{b: buf[0]}
			return
		}
		result <- stdioByte{err: err}
	}()

	select {
	case r := <-result:
		if r.err != nil {
			return 0, xymodem.WrapError(xymodem.ErrTimeout, "stdin closed", r.err)
		}
		return r.b, nil
	case <-time.After(timeout):
		return 0, xymodem.ErrTimeoutSentinel
	}
}

func (p *stdioPort) WriteByte(b byte) error {
	_, err := p.out.Write([]byte{b})
	return err
}

func signalContext(sigChan chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx, cancel
}

func showUsage(exitcode int) {
	fmt.Fprintf(os.Stderr, `%s - receive files with XMODEM/YMODEM protocol

Usage: %s [options]

Options:
  -dir string      directory to write received files into (default ".")
  -h               show this help message
  -log string      protocol trace log file (for debugging)
  -overrun string  overrun policy: ignore, error, accept, mixed (default "ignore")
  -p               protect existing files (fail the transfer rather than overwrite)
  -q               quiet mode, minimal output
  -v               verbose mode
  -y               overwrite existing files
  --version        show version

`, versionString, os.Args[0])
	os.Exit(exitcode)
}
