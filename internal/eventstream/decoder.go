// Package eventstream decodes and encodes the blank-line-delimited
// event framing used by the analysis backend's progress stream.
package eventstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultEvent is the event name used when a block carries no event field
const DefaultEvent = "message"

// DefaultMaxBufferSize bounds how much undelimited data the decoder will hold
const DefaultMaxBufferSize = 4 << 20

const readChunkSize = 4096

// ErrBufferOverflow is returned when a single block grows past the buffer limit
var ErrBufferOverflow = errors.New("event stream block exceeds buffer limit")

// Message is one decoded event block
type Message struct {
	Event string
	Data  string
}

// Decoder incrementally splits raw bytes into messages.
// It accepts LF, CRLF and bare CR line endings, including a CRLF pair
// split across two Feed calls. A Decoder is not safe for concurrent use.
type Decoder struct {
	// MaxBufferSize caps buffered bytes; zero means DefaultMaxBufferSize
	MaxBufferSize int

	buf    []byte
	lastCR bool
}

// NewDecoder returns a decoder with the default buffer limit
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a chunk and returns every message completed by it.
// Incomplete trailing data stays buffered for the next call.
func (d *Decoder) Feed(chunk []byte) ([]Message, error) {
	d.appendNormalized(chunk)

	var messages []Message
	for {
		idx := bytes.Index(d.buf, []byte("\n\n"))
		if idx < 0 {
			break
		}
		block := d.buf[:idx]
		d.buf = d.buf[idx+2:]
		if msg, ok := parseBlock(block); ok {
			messages = append(messages, msg)
		}
	}

	if len(d.buf) > d.maxBufferSize() {
		d.buf = nil
		return messages, ErrBufferOverflow
	}
	return messages, nil
}

// Flush decodes whatever is left in the buffer as a final block.
// Servers that close the connection without a terminating blank line
// still have their last event delivered.
func (d *Decoder) Flush() (Message, bool) {
	block := bytes.TrimRight(d.buf, "\n")
	d.buf = nil
	d.lastCR = false
	if len(block) == 0 {
		return Message{}, false
	}
	return parseBlock(block)
}

// Buffered returns the number of bytes waiting for a block delimiter
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Stream reads r until EOF, calling handle for each message in order.
// It stops early, without error, once handle returns false. A clean EOF
// flushes any unterminated trailing block before returning nil.
func (d *Decoder) Stream(r io.Reader, handle func(Message) bool) error {
	chunk := make([]byte, readChunkSize)
	for {
		n, readErr := r.Read(chunk)
		if n > 0 {
			messages, err := d.Feed(chunk[:n])
			for _, msg := range messages {
				if !handle(msg) {
					return nil
				}
			}
			if err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			if msg, ok := d.Flush(); ok {
				handle(msg)
			}
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("failed to read event stream: %w", readErr)
		}
	}
}

func (d *Decoder) maxBufferSize() int {
	if d.MaxBufferSize > 0 {
		return d.MaxBufferSize
	}
	return DefaultMaxBufferSize
}

// appendNormalized rewrites CRLF and CR to LF while appending
func (d *Decoder) appendNormalized(chunk []byte) {
	for _, b := range chunk {
		switch b {
		case '\r':
			d.buf = append(d.buf, '\n')
			d.lastCR = true
		case '\n':
			if d.lastCR {
				d.lastCR = false
				continue
			}
			d.buf = append(d.buf, '\n')
		default:
			d.lastCR = false
			d.buf = append(d.buf, b)
		}
	}
}

// parseBlock extracts the event name and joined data lines from one block.
// Blocks with no data field produce no message.
func parseBlock(block []byte) (Message, bool) {
	event := ""
	var data []string
	hasData := false

	for _, line := range strings.Split(string(block), "\n") {
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}
		switch field {
		case "event":
			event = value
		case "data":
			data = append(data, value)
			hasData = true
		case "id", "retry":
			// reconnection hints are not used
		}
	}

	if !hasData {
		return Message{}, false
	}
	if event == "" {
		event = DefaultEvent
	}
	return Message{Event: event, Data: strings.Join(data, "\n")}, true
}
