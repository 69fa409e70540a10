// Package stream turns a streamed Cortex run response into a lazy sequence of
// run events.
//
// ┌─────────────────────┐
// │ http.Response.Body  │
// └─────────────────────┘
// │ one chunk per pull
// ▼
// ┌─────────────────────┐   ┌──────────────────────┐
// │ sse.Decoder         │──▶│ runevent.Classify     │──▶ RunID (first run_id)
// └─────────────────────┘   └──────────────────────┘
// │
// ▼
// ┌─────────────────────┐
// │ Stream.Events()     │ iter.Seq[runevent.Event]
// └─────────────────────┘
//
// The consumer's pull rate drives the network reads: a chunk is only read
// once every event decoded from the previous chunk has been yielded.
package stream

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/papercomputeco/cortex/pkg/logger"
	"github.com/papercomputeco/cortex/pkg/runevent"
	"github.com/papercomputeco/cortex/pkg/sse"
)

const (
	// CodeStreamError is the code of the synthetic error event yielded when
	// reading the body fails mid-stream.
	CodeStreamError = "stream_error"

	defaultChunkSize = 32 * 1024
)

// StatusError is returned by Consume when the response cannot be streamed.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Error running streamed app: status_code=%d", e.StatusCode)
}

// Option configures a Stream.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	observer  func(runevent.Event)
	tee       io.Writer
	chunkSize int
}

// WithLogger sets the logger used for dropped frames and read failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver registers fn to be called with every event just before it is
// yielded to the consumer.
func WithObserver(fn func(runevent.Event)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// WithTee copies every raw byte read from the body to w before decoding.
// Write failures on w are logged and otherwise ignored.
func WithTee(w io.Writer) Option {
	return func(o *options) {
		o.tee = w
	}
}

// WithChunkSize sets the size of the read buffer. Values <= 0 keep the default.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// Stream is a single-pass sequence of run events read from one response body.
// The body is released exactly once: when iteration ends for any reason, or
// when Close is called, whichever happens first.
type Stream struct {
	body  io.ReadCloser
	opts  options
	runID *RunID

	started atomic.Bool
	closed  atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// Consume wraps an already-issued streaming response. A non-2xx status or a
// missing body yields a *StatusError and the body, if any, is closed.
func Consume(resp *http.Response, opts ...Option) (*Stream, error) {
	if resp == nil {
		return nil, &StatusError{}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	o := options{
		logger:    logger.Nop(),
		chunkSize: defaultChunkSize,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Stream{
		body:  resp.Body,
		opts:  o,
		runID: newRunID(),
	}, nil
}

// RunID returns the run id cell for this stream.
func (s *Stream) RunID() *RunID {
	return s.runID
}

// Events returns the event sequence. Only the first iteration reads the body;
// later iterations, or iterations after Close, yield nothing.
//
// A read failure other than io.EOF yields one *runevent.Error with code
// CodeStreamError and ends the sequence. Breaking out of the range loop
// releases the body.
func (s *Stream) Events() iter.Seq[runevent.Event] {
	return func(yield func(runevent.Event) bool) {
		if !s.started.CompareAndSwap(false, true) {
			return
		}
		defer s.finish()

		if s.closed.Load() {
			return
		}

		dec := sse.NewDecoder()
		buf := make([]byte, s.opts.chunkSize)
		var pending []runevent.Event

		emit := func(frame sse.Event) {
			res := runevent.Classify(frame.Data)
			if res.RunID != "" && s.runID.resolve(res.RunID) {
				s.opts.logger.Debug("resolved run id", "run_id", res.RunID)
			}
			if res.Event == nil {
				s.opts.logger.Debug("dropped run stream frame",
					"reason", res.Dropped,
					"sse_event", frame.Type,
					"error", res.Err,
				)
				return
			}
			pending = append(pending, res.Event)
		}

		for {
			n, err := s.body.Read(buf)
			if n > 0 {
				s.teeChunk(buf[:n])
				dec.Feed(buf[:n], emit)

				for _, ev := range pending {
					if !s.deliver(ev, yield) {
						return
					}
				}
				clear(pending)
				pending = pending[:0]
			}

			if err == nil {
				continue
			}

			if errors.Is(err, io.EOF) {
				s.opts.logger.Debug("run stream finished")
				return
			}

			// A read failing because the consumer closed the stream is not
			// a stream error.
			if s.closed.Load() {
				return
			}

			s.opts.logger.Warn("error reading run stream", "error", err)
			s.deliver(&runevent.Error{
				Code:    CodeStreamError,
				Message: "Error streaming chunks",
			}, yield)
			return
		}
	}
}

// Close releases the response body. It is safe to call more than once and
// concurrently with iteration; only the first call closes the body.
func (s *Stream) Close() error {
	s.closed.Store(true)
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	s.runID.reject(ErrNoRunID)
	return s.closeErr
}

func (s *Stream) deliver(ev runevent.Event, yield func(runevent.Event) bool) bool {
	if s.opts.observer != nil {
		s.opts.observer(ev)
	}
	return yield(ev)
}

func (s *Stream) teeChunk(chunk []byte) {
	if s.opts.tee == nil {
		return
	}
	if _, err := s.opts.tee.Write(chunk); err != nil {
		s.opts.logger.Debug("failed to tee run stream chunk", "error", err)
	}
}

// finish runs on every exit path of Events.
func (s *Stream) finish() {
	if err := s.Close(); err != nil {
		s.opts.logger.Debug("closing run stream body", "error", err)
	}
}
