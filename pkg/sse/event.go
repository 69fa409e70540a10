// Package sse provides a minimal, purpose-built SSE (Server-Sent Events)
// decoder for consuming Cortex run streams. Bytes are fed in the order they
// arrive from the transport, in chunks of any size, and complete events are
// handed to a callback as soon as their terminating blank line is seen.
//
// It only decodes. There is no writer and no reconnection handling.
//
// Framing follows the WHATWG event stream format:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event represents a single parsed SSE event, delimited by a blank line
// in the upstream byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type per the WHATWG rules.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n".
	Data string

	// ID is the event ID from the "id:" field, if present on this event.
	ID string

	// Retry is the reconnection time in milliseconds from the "retry:" field.
	// Zero when the event did not carry a valid retry field.
	Retry int
}
