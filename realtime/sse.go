// Package realtime streams server-sent events to the browser.
package realtime

import (
	"bufio"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("sse stream closed")

// ErrNoFlush is returned when the response cannot be flushed per event.
var ErrNoFlush = errors.New("response writer does not support flushing")

// Event is one server-sent event. Multi-line Data is split across data
// fields; Retry asks the browser to wait that long before reconnecting.
type Event struct {
	Name  string
	ID    string
	Data  string
	Retry time.Duration
}

// Stream writes events to one open response. Writes are serialized.
type Stream struct {
	mu      sync.Mutex
	out     *bufio.Writer
	flusher http.Flusher
	closed  bool
}

// Open sends the event-stream headers, plus any in extra, and returns the
// stream.
func Open(w http.ResponseWriter, extra http.Header) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrNoFlush
	}

	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("X-Accel-Buffering", "no")
	for key, values := range extra {
		headers[key] = values
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Stream{out: bufio.NewWriter(w), flusher: flusher}, nil
}

// Send writes ev and flushes it to the client.
func (s *Stream) Send(ev Event) error {
	return s.write(func(out *bufio.Writer) {
		if ev.Retry > 0 {
			field(out, "retry", strconv.FormatInt(ev.Retry.Milliseconds(), 10))
		}
		if ev.ID != "" {
			field(out, "id", ev.ID)
		}
		if ev.Name != "" {
			field(out, "event", ev.Name)
		}
		for _, line := range strings.Split(ev.Data, "\n") {
			field(out, "data", line)
		}
		out.WriteByte('\n')
	})
}

// SendJSON sends v, JSON encoded, as the data of event name.
func (s *Stream) SendJSON(name, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Send(Event{Name: name, ID: id, Data: string(data)})
}

// Ping writes a comment line so idle proxies keep the connection open.
func (s *Stream) Ping() error {
	return s.write(func(out *bufio.Writer) {
		out.WriteString(": ping\n\n")
	})
}

// Close makes later writes fail with ErrClosed.
func (s *Stream) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Stream) write(fill func(*bufio.Writer)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	fill(s.out)
	if err := s.out.Flush(); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func field(out *bufio.Writer, name, value string) {
	out.WriteString(name)
	out.WriteString(": ")
	out.WriteString(value)
	out.WriteByte('\n')
}
