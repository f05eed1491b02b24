package xymodem

import (
	"os"
	"time"
)

// SinkFile is a single output file under construction. The session
// controller owns it exclusively for the lifetime of one incoming file.
type SinkFile interface {
	// Write appends bytes to the file.
	Write(p []byte) (int, error)
	// Truncate shrinks (never grows) the file to size bytes, used by the
	// overrun policy.
	Truncate(size int64) error
	// SetModTime sets the file's modification time, used when the sender
	// supplied a non-zero mtime.
	SetModTime(t time.Time) error
	// Close finalizes the file.
	Close() error
	// Delete removes the file; called when a transfer aborts mid-file.
	Delete() error
	// Name returns the path the sink chose (it may differ from the
	// requested name after collision resolution).
	Name() string
}

// FileSink creates output files. A host supplies one; DefaultFileSink is
// provided for the common case of writing into a real directory.
type FileSink interface {
	// Create opens a new file named name (already collision-resolved by
	// the caller) for writing, truncating any existing content.
	Create(name string) (SinkFile, error)
	// Exists reports whether name already exists in the sink's target
	// location, used to resolve YMODEM block-0 pathname collisions.
	Exists(name string) bool
}

// DefaultFileSink creates files in a single host-chosen directory using
// the os package directly.
type DefaultFileSink struct {
	Dir string
}

// NewDefaultFileSink returns a FileSink rooted at dir.
func NewDefaultFileSink(dir string) *DefaultFileSink {
	return &DefaultFileSink{Dir: dir}
}

func (s *DefaultFileSink) path(name string) string {
	if s.Dir == "" {
		return name
	}
	return s.Dir + string(os.PathSeparator) + name
}

func (s *DefaultFileSink) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

func (s *DefaultFileSink) Create(name string) (SinkFile, error) {
	path := s.path(name)
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &osSinkFile{file: f, name: path}, nil
}

type osSinkFile struct {
	file *os.File
	name string
}

func (f *osSinkFile) Write(p []byte) (int, error) { return f.file.Write(p) }
func (f *osSinkFile) Truncate(size int64) error   { return f.file.Truncate(size) }
func (f *osSinkFile) Close() error                { return f.file.Close() }
func (f *osSinkFile) Name() string                { return f.name }

func (f *osSinkFile) SetModTime(t time.Time) error {
	return os.Chtimes(f.name, t, t)
}

func (f *osSinkFile) Delete() error {
	return os.Remove(f.name)
}
