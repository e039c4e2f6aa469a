// Package stream decodes the newline-delimited "data: <json>" frames the
// chat backend emits on its text/event-stream responses.
package stream

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
)

// EventKind classifies one decoded frame.
type EventKind int

const (
	// EventDelta carries an incremental text fragment of the in-progress
	// assistant message.
	EventDelta EventKind = iota
	// EventError carries a server-signaled error description. The stream
	// may continue after it.
	EventError
	// EventComplete is the server's logical end-of-stream signal. The
	// authoritative end remains the transport-level close.
	EventComplete
)

// Event is one decoded frame, in arrival order.
type Event struct {
	Kind EventKind
	Text string // fragment for EventDelta, description for EventError
}

const dataPrefix = "data: "

// frame is the JSON payload of a single data line.
type frame struct {
	Text     string `json:"text"`
	Error    string `json:"error"`
	Complete bool   `json:"complete"`
}

// Decoder turns raw byte chunks from a streaming response body into
// Events. It buffers the unterminated tail line across chunk boundaries,
// so UTF-8 sequences split between reads are never decoded in isolation.
// One Decoder serves exactly one response; construct a fresh one per
// stream.
type Decoder struct {
	buf []byte
	log *slog.Logger
}

func NewDecoder(log *slog.Logger) *Decoder {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Decoder{log: log}
}

// Feed appends a chunk and returns the events decoded from every complete
// line now available. The last, possibly partial, line stays buffered.
// Lines without the "data: " prefix and data lines with malformed JSON
// are skipped; one bad line never aborts the stream.
func (d *Decoder) Feed(chunk []byte) []Event {
	d.buf = append(d.buf, chunk...)

	var events []Event
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		line := d.buf[:idx]
		d.buf = d.buf[idx+1:]

		ev, ok := d.decodeLine(line)
		if ok {
			events = append(events, ev...)
		}
	}
	return events
}

// Finish flushes the decoder at transport end-of-stream. Whatever remains
// buffered is an incomplete line and is discarded.
func (d *Decoder) Finish() {
	if len(d.buf) > 0 {
		d.log.Debug("discarding partial line at end of stream", "bytes", len(d.buf))
		d.buf = nil
	}
}

func (d *Decoder) decodeLine(line []byte) ([]Event, bool) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return nil, false
	}

	var f frame
	if err := json.Unmarshal(line[len(dataPrefix):], &f); err != nil {
		d.log.Debug("skipping malformed frame", "line", string(line), "err", err)
		return nil, false
	}

	// A single frame can legally carry more than one field; emit in a
	// stable text, error, complete order.
	var events []Event
	if f.Text != "" {
		events = append(events, Event{Kind: EventDelta, Text: f.Text})
	}
	if f.Error != "" {
		events = append(events, Event{Kind: EventError, Text: f.Error})
	}
	if f.Complete {
		events = append(events, Event{Kind: EventComplete})
	}
	return events, len(events) > 0
}
