package sse

import (
	"bytes"
	"strconv"
	"strings"
)

const (
	bom = "\uFEFF"

	// MaxLineSize bounds a single line. Bytes of a longer line are dropped
	// until its terminator arrives, and the line is then skipped.
	MaxLineSize = 1024 * 1024
)

// Decoder incrementally parses an SSE byte stream.
//
// ┌────────────────┐
// │ network chunks │
// └────────────────┘
// │
// ▼
// ┌────────────────┐   ┌──────────────────────┐
// │ Decoder.Feed() │──▶│ buffered partial line│
// └────────────────┘   └──────────────────────┘
// │
// ▼
// ┌────────────────┐
// │  emit(Event)   │
// └────────────────┘
//
// Chunk boundaries are irrelevant to the result: feeding a stream in one call
// or split at arbitrary byte offsets yields the same events in the same order.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	// buf holds the bytes of a line whose terminator has not arrived yet.
	buf []byte

	// skipLF is set after a '\r' so that an immediately following '\n',
	// possibly in the next chunk, is treated as part of the same terminator.
	skipLF bool

	// overflow is set while discarding the remainder of an oversized line.
	overflow bool

	// sawFirstLine is set once the first line has been processed; a UTF-8
	// byte order mark is only stripped from that line.
	sawFirstLine bool

	// current accumulates fields for the event being built.
	current Event
	data    strings.Builder
	hasData bool
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed decodes chunk and calls emit once per complete event, in stream
// order. Undecoded trailing bytes are kept for the next call. Malformed lines
// are skipped; Feed never fails.
func (d *Decoder) Feed(chunk []byte, emit func(Event)) {
	d.buf = append(d.buf, chunk...)
	rest := d.buf

	for len(rest) > 0 {
		if d.skipLF {
			d.skipLF = false
			if rest[0] == '\n' {
				rest = rest[1:]
				continue
			}
		}

		i := bytes.IndexAny(rest, "\r\n")
		if i < 0 {
			if len(rest) > MaxLineSize {
				d.overflow = true
				rest = rest[:0]
			}
			break
		}

		line := rest[:i]
		if rest[i] == '\r' {
			d.skipLF = true
		}
		rest = rest[i+1:]

		if d.overflow || len(line) > MaxLineSize {
			d.overflow = false
			continue
		}
		d.processLine(line, emit)
	}

	// Keep only the unterminated tail. copy handles the overlap.
	n := copy(d.buf, rest)
	d.buf = d.buf[:n]
}

// Reset discards any buffered bytes and partially built event.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.skipLF = false
	d.overflow = false
	d.sawFirstLine = false
	d.reset()
}

// processLine handles a single line with its terminator removed.
func (d *Decoder) processLine(raw []byte, emit func(Event)) {
	line := strings.ToValidUTF8(string(raw), "\uFFFD")
	if !d.sawFirstLine {
		d.sawFirstLine = true
		line = strings.TrimPrefix(line, bom)
	}

	// A blank line signals the end of the current event.
	if line == "" {
		d.dispatch(emit)
		return
	}

	// Lines starting with ':' are comments (often keep-alives).
	if strings.HasPrefix(line, ":") {
		return
	}

	d.parseLine(line)
}

// parseLine processes a single non-empty, non-comment SSE line and
// accumulates the field into the current event.
//
// A line has the form "field:value" where the first
// space after the colon is optional and stripped if present.
func (d *Decoder) parseLine(line string) {
	field, value, ok := strings.Cut(line, ":")
	if ok {
		value = strings.TrimPrefix(value, " ")
	}

	switch field {
	case "data":
		if d.hasData {
			d.data.WriteByte('\n')
		}
		d.data.WriteString(value)
		d.hasData = true
	case "event":
		d.current.Type = value
	case "id":
		// IDs containing NUL are ignored.
		if !strings.ContainsRune(value, 0) {
			d.current.ID = value
		}
	case "retry":
		if !isDigits(value) {
			return
		}
		if ms, err := strconv.Atoi(value); err == nil {
			d.current.Retry = ms
		}
	default:
		// Unknown fields are ignored per the WHATWG rules.
	}
}

// dispatch emits the current event if it carried at least one data line.
// Events with no data are discarded, per the SSE dispatch rules.
func (d *Decoder) dispatch(emit func(Event)) {
	if !d.hasData {
		d.reset()
		return
	}

	ev := d.current
	ev.Data = d.data.String()
	d.reset()
	emit(ev)
}

// reset clears the accumulated event state for the next event.
func (d *Decoder) reset() {
	d.current = Event{}
	d.data.Reset()
	d.hasData = false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
