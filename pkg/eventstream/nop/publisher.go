// Package nop provides the publisher used when events.provider is "none".
package nop

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/papercomputeco/cortex/pkg/eventstream"
	"github.com/papercomputeco/cortex/pkg/logger"
)

// Publisher drops run events. Each dropped envelope is logged at debug level,
// so "--debug" still shows what a run emitted without a broker.
type Publisher struct {
	logger  *slog.Logger
	dropped atomic.Int64
}

// NewPublisher returns a Publisher logging to log. A nil log discards.
func NewPublisher(log *slog.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{logger: log}
}

// PublishRunEvent drops event.
func (p *Publisher) PublishRunEvent(ctx context.Context, event *eventstream.RunEventEnvelope) error {
	if event == nil {
		return eventstream.ErrNilRunEvent
	}

	p.dropped.Add(1)
	p.logger.DebugContext(ctx, "run event",
		"kind", event.Kind,
		"run_id", event.RunID,
		"source", event.Source.Target+"/"+event.Source.ID,
	)
	return nil
}

// Dropped returns how many envelopes have been dropped so far.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Publisher) Close() error {
	p.logger.Debug("run event publisher closed", "dropped", p.Dropped())
	return nil
}
