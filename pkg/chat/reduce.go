package chat

import (
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/cortex/pkg/logger"
	"github.com/papercomputeco/cortex/pkg/runevent"
)

// Block names the reducer reacts to.
const (
	BlockRetrievals   = "RETRIEVALS"
	BlockOutputStream = "OUTPUT_STREAM"
	BlockOutput       = "OUTPUT"
)

// Completion is the result of a successful chat turn.
type Completion struct {
	// Messages is the transcript passed to Reduce, extended with any
	// OUTPUT block results.
	Messages []Message

	// Response is the assistant reply accumulated from the stream.
	Response Message
}

// ReduceError aborts a chat turn. Event is the run event that caused it.
type ReduceError struct {
	Reason string
	Event  runevent.Event
}

func (e *ReduceError) Error() string {
	return e.Reason
}

// Option configures Reduce.
type Option func(*reducer)

type reducer struct {
	now      func() time.Time
	observer func(runevent.Event)
	logger   *slog.Logger
}

// WithClock overrides the time source for the reply's UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(r *reducer) {
		if now != nil {
			r.now = now
		}
	}
}

// WithObserver registers fn to see every event before the reducer acts on it,
// including block_status and final events the reducer itself ignores.
func WithObserver(fn func(runevent.Event)) Option {
	return func(r *reducer) {
		r.observer = fn
	}
}

// WithLogger sets the logger used for undecodable block values.
func WithLogger(l *slog.Logger) Option {
	return func(r *reducer) {
		if l != nil {
			r.logger = l
		}
	}
}

// Reduce drives events to completion and folds them into an assistant reply.
//
//   - tokens: text is appended to the reply, across all blocks, in order.
//   - error: the turn fails with a *ReduceError; nothing accumulated is returned.
//   - run_status "errored": consumption stops and what was accumulated so far
//     is returned without error.
//   - block_execution: only execution[0][0] is inspected. A successful
//     RETRIEVALS result becomes the reply's retrievals, a failed OUTPUT_STREAM
//     result fails the turn, and a successful OUTPUT result is appended to
//     the transcript as a message.
//
// transcript is copied before use and never modified.
func Reduce(events iter.Seq[runevent.Event], transcript []Message, opts ...Option) (*Completion, error) {
	r := &reducer{
		now:    time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	messages := Clone(transcript)
	updatedAt := r.now()
	response := Message{
		Role:      RoleAssistant,
		UpdatedAt: &updatedAt,
	}

	var content strings.Builder

loop:
	for ev := range events {
		if r.observer != nil {
			r.observer(ev)
		}

		switch e := ev.(type) {
		case *runevent.Tokens:
			content.WriteString(e.Tokens.Text)

		case *runevent.Error:
			return nil, &ReduceError{
				Reason: fmt.Sprintf("Error running event: ERROR event %s: %s", e.Code, e.Message),
				Event:  e,
			}

		case *runevent.RunStatus:
			if e.Status == runevent.StatusErrored {
				r.logger.Debug("run errored, stopping", "run_id", e.RunID)
				break loop
			}

		case *runevent.BlockExecution:
			first, ok := e.First()
			if !ok {
				continue
			}

			switch e.BlockName {
			case BlockRetrievals:
				if first.HasError() {
					continue
				}
				docs, err := decodeRetrievals(first)
				if err != nil {
					r.logger.Debug("undecodable retrievals", "error", err)
					continue
				}
				response.Retrievals = docs

			case BlockOutputStream:
				if first.HasError() {
					return nil, &ReduceError{
						Reason: fmt.Sprintf("MODEL event with error: ERROR event %s", first.ErrorText()),
						Event:  e,
					}
				}

			case BlockOutput:
				if first.HasError() || !first.HasValue() {
					continue
				}
				var m Message
				if err := json.Unmarshal(first.Value, &m); err != nil {
					r.logger.Debug("undecodable output message", "error", err)
					continue
				}
				messages = append(messages, m)
			}
		}
	}

	response.Content = content.String()

	return &Completion{
		Messages: messages,
		Response: response,
	}, nil
}

// decodeRetrievals reads a RETRIEVALS value. A null value clears retrievals.
func decodeRetrievals(t runevent.ExecutionTrace) ([]RetrievedDocument, error) {
	if !t.HasValue() {
		return nil, nil
	}

	var docs []RetrievedDocument
	if err := json.Unmarshal(t.Value, &docs); err != nil {
		return nil, fmt.Errorf("decoding retrievals: %w", err)
	}
	return docs, nil
}
