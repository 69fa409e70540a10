package cortex

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/papercomputeco/cortex/pkg/eventstream"
	"github.com/papercomputeco/cortex/pkg/runevent"
	"github.com/papercomputeco/cortex/pkg/stream"
)

// RunCallable runs a callable and waits for the run to finish.
func (c *Client) RunCallable(ctx context.Context, callableID string, params CallableParams) (*RunResponse, error) {
	params.Stream = false

	var out RunResponse
	if err := c.doJSON(ctx, http.MethodPost, c.projectURL("a", callableID, "r"), params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunCallableStream runs a callable and returns its event stream. The caller
// must either range over Events or call Close.
func (c *Client) RunCallableStream(ctx context.Context, callableID string, params CallableParams) (*stream.Stream, error) {
	params.Stream = true

	source := eventstream.EventSource{Target: "callable", ID: callableID, Version: string(params.Version)}
	return c.postStream(ctx, c.projectURL("a", callableID, "r"), params, source)
}

// postStream issues a streaming POST and hands the response to stream.Consume.
// The request is not bound by the client timeout; ctx governs its lifetime.
func (c *Client) postStream(ctx context.Context, target string, body any, source eventstream.EventSource, opts ...stream.Option) (*stream.Stream, error) {
	req, err := c.newRequest(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, &APIError{Type: TypeAPIError, Code: CodeRequestError, Message: err.Error(), Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{
			Type:    TypeAPIError,
			Code:    CodeRequestError,
			Message: fmt.Sprintf("sending streaming request: %v", err),
			Err:     err,
		}
	}

	c.logger.Debug("cortex stream opened",
		"path", req.URL.Path,
		"status", resp.StatusCode,
	)

	var s *stream.Stream
	streamOpts := []stream.Option{stream.WithLogger(c.logger)}
	if c.publisher != nil {
		streamOpts = append(streamOpts, stream.WithObserver(func(ev runevent.Event) {
			runID, _ := s.RunID().Peek()
			c.publish(ctx, source, runID, ev)
		}))
	}
	streamOpts = append(streamOpts, opts...)

	s, err = stream.Consume(resp, streamOpts...)
	if err != nil {
		apiErr := &APIError{
			Type:    TypeRunnerAPIError,
			Code:    CodeStreamedRunError,
			Message: err.Error(),
			Err:     err,
		}
		var statusErr *stream.StatusError
		if errors.As(err, &statusErr) {
			apiErr.Status = statusErr.StatusCode
		}
		return nil, apiErr
	}

	return s, nil
}

// publish forwards ev to the configured publisher. Failures are logged and
// never interrupt the stream.
func (c *Client) publish(ctx context.Context, source eventstream.EventSource, runID string, ev runevent.Event) {
	env, err := eventstream.NewRunEventEnvelope(source, runID, ev, c.now())
	if err != nil {
		c.logger.Warn("failed to build run event envelope", "error", err)
		return
	}
	if err := c.publisher.PublishRunEvent(ctx, env); err != nil {
		c.logger.Warn("failed to publish run event",
			"kind", ev.Kind(),
			"error", err,
		)
	}
}
