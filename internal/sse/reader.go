// Package sse reads and writes server-sent event streams.
package sse

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// maxLineSize bounds one data line. Terminal events echo the whole response,
// so it is kept above the largest non-streaming body accepted.
const (
	initialBufferSize = 64 * 1024
	maxLineSize       = 16 * 1024 * 1024
)

var doneMarker = []byte("[DONE]")

// Event is one dispatched server-sent event
type Event struct {
	Name string
	Data []byte
}

// Reader splits a server-sent event stream into events. Multi-line data
// fields are joined with a newline. Comments and unknown fields are skipped.
type Reader struct {
	scanner *bufio.Scanner
	done    bool
}

// NewReader creates a Reader over r
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, initialBufferSize), maxLineSize)
	return &Reader{scanner: scanner}
}

// Next returns the next event. It returns io.EOF when the stream ends or a
// [DONE] sentinel arrives.
func (r *Reader) Next() (Event, error) {
	if r.done {
		return Event{}, io.EOF
	}

	var (
		name    string
		data    [][]byte
		hasData bool
	)

	for r.scanner.Scan() {
		line := r.scanner.Bytes()

		if len(line) == 0 {
			if !hasData {
				name = ""
				continue
			}
			return r.dispatch(name, data)
		}
		if line[0] == ':' {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "event":
			name = string(value)
		case "data":
			// the scanner reuses its buffer
			data = append(data, bytes.Clone(value))
			hasData = true
		}
	}

	if err := r.scanner.Err(); err != nil {
		r.done = true
		return Event{}, fmt.Errorf("read sse stream: %w", err)
	}

	// a final event without its trailing blank line still counts
	if hasData {
		return r.dispatch(name, data)
	}
	r.done = true
	return Event{}, io.EOF
}

func (r *Reader) dispatch(name string, data [][]byte) (Event, error) {
	payload := bytes.Join(data, []byte("\n"))
	if bytes.Equal(payload, doneMarker) {
		r.done = true
		return Event{}, io.EOF
	}
	return Event{Name: name, Data: payload}, nil
}

// splitField parses "field: value". Both "data: x" and "data:x" are accepted.
func splitField(line []byte) (string, []byte) {
	i := bytes.IndexByte(line, ':')
	if i < 0 {
		return string(line), nil
	}
	value := line[i+1:]
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	return string(line[:i]), value
}
