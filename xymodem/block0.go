package xymodem

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// block0Fields is the maximum number of space-separated numeric fields
// following the pathname: length, mtime, mode, serial.
const block0Fields = 4

// parseBlock0 parses the payload of YMODEM's block 0 (metadata block).
// Layout: pathname\0 length SPACE mtime SPACE mode SPACE serial\0 <NULs>.
//
// If the first byte is NUL, the batch is over and parseBlock0 returns
// empty=true. Otherwise it returns a Download populated from whichever
// leading fields are present; fields are positional and cannot be skipped
// — once a field is missing, every field after it is treated as absent
// too. A field that is present but fails to parse is silently left at its
// zero value (see Download.ParseFailed) rather than aborting the parse of
// later fields.
//
// exists is consulted to resolve pathname collisions in the target
// directory by appending "-<n>" before the extension.
func parseBlock0(payload []byte, exists func(string) bool) (dl *Download, empty bool) {
	if len(payload) == 0 || payload[0] == 0 {
		return nil, true
	}

	nul := bytes.IndexByte(payload, 0)
	var pathname string
	var rest []byte
	if nul < 0 {
		pathname = string(payload)
		rest = nil
	} else {
		pathname = string(payload[:nul])
		rest = payload[nul+1:]
		if end := bytes.IndexByte(rest, 0); end >= 0 {
			rest = rest[:end]
		}
	}

	dl = &Download{Name: resolveName(normalizeName(pathname), exists)}

	fields := strings.Split(string(rest), " ")
	if len(fields) >= 1 && fields[0] != "" {
		if v, err := strconv.ParseInt(fields[0], 10, 64); err == nil {
			dl.Length = v
		} else {
			dl.ParseFailed[0] = true
		}
	} else {
		return dl, false
	}
	if len(fields) >= 2 && fields[1] != "" {
		if v, err := strconv.ParseInt(fields[1], 8, 64); err == nil {
			// 0 means "no mtime sent" per the field's own convention; leave
			// dl.MTime at its zero value so finalize leaves the file's
			// created mtime alone instead of setting it to the Unix epoch.
			if v != 0 {
				dl.MTime = time.Unix(v, 0)
			}
		} else {
			dl.ParseFailed[1] = true
		}
	} else {
		return dl, false
	}
	if len(fields) >= 3 && fields[2] != "" {
		if v, err := strconv.ParseUint(fields[2], 8, 32); err == nil {
			dl.Mode = uint32(v)
		} else {
			dl.ParseFailed[2] = true
		}
	} else {
		return dl, false
	}
	if len(fields) >= 4 && fields[3] != "" {
		if v, err := strconv.ParseUint(fields[3], 8, 32); err == nil {
			dl.Serial = uint32(v)
		}
		// Serial has no diagnostic slot; it is the least load-bearing field.
	}

	return dl, false
}

// normalizeName takes the substring after the last '/' in pathname, so a
// sender-supplied path never escapes the target directory.
func normalizeName(pathname string) string {
	if i := strings.LastIndexByte(pathname, '/'); i >= 0 {
		return pathname[i+1:]
	}
	return pathname
}

// resolveName appends "-<n>" before the extension until exists reports no
// collision. A nil exists means collisions are never checked (the caller
// doesn't care, e.g. in tests).
func resolveName(name string, exists func(string) bool) string {
	if exists == nil || !exists(name) {
		return name
	}
	base, ext := splitExt(name)
	for n := 1; ; n++ {
		candidate := base + "-" + strconv.Itoa(n) + ext
		if !exists(candidate) {
			return candidate
		}
	}
}

// splitExt splits name into a base and an extension (the substring from
// the last '.' onward), preserving the extension unless the last '.' is
// the first character (a dotfile like ".bashrc" has no extension in this
// scheme).
func splitExt(name string) (base, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return name, ""
	}
	return name[:i], name[i:]
}
