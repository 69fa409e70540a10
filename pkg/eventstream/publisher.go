package eventstream

import "context"

// Publisher publishes run events to an event stream backend.
type Publisher interface {
	PublishRunEvent(ctx context.Context, event *RunEventEnvelope) error
	Close() error
}
