package cortex

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/papercomputeco/cortex/pkg/chat"
	"github.com/papercomputeco/cortex/pkg/eventstream"
	"github.com/papercomputeco/cortex/pkg/runevent"
	"github.com/papercomputeco/cortex/pkg/stream"
)

// Block names configured on every chat copilot request.
const (
	blockOutputStream = chat.BlockOutputStream
	blockRetrievals   = chat.BlockRetrievals
)

// ChatInput is the single input of a copilot run.
type ChatInput struct {
	Messages []chat.Message `json:"messages"`
}

// KnowledgeRef points a RETRIEVALS block at a knowledge base.
type KnowledgeRef struct {
	ProjectID    string `json:"project_id"`
	DataSourceID string `json:"data_source_id"`
}

// CreateChatInput returns the copilot inputs for transcript followed by a new
// user message. transcript is not modified.
func (c *Client) CreateChatInput(transcript []chat.Message, input string) []any {
	messages := append(chat.Clone(transcript), chat.NewUserMessage(input, c.now()))
	return []any{ChatInput{Messages: messages}}
}

// CreateChatConfig enables token streaming on the output block and points
// retrieval at the given knowledge base.
func (c *Client) CreateChatConfig(projectID, knowledge string) BlockConfig {
	return BlockConfig{
		blockOutputStream: map[string]any{"use_stream": true},
		blockRetrievals: map[string]any{
			"knowledge": []KnowledgeRef{{ProjectID: projectID, DataSourceID: knowledge}},
		},
	}
}

// CreateChatParams builds a complete copilot request.
func (c *Client) CreateChatParams(version Version, transcript []chat.Message, input, projectID, knowledge string) ChatParams {
	return ChatParams{
		Version: version,
		Config:  c.CreateChatConfig(projectID, knowledge),
		Inputs:  c.CreateChatInput(transcript, input),
	}
}

// RunChatCopilot starts a copilot run and returns its event stream.
func (c *Client) RunChatCopilot(ctx context.Context, copilotID string, params ChatParams, opts ...stream.Option) (*stream.Stream, error) {
	target := c.copilotURL + "/copilot/" + url.PathEscape(copilotID)
	source := eventstream.EventSource{Target: "copilot", ID: copilotID, Version: string(params.Version)}
	return c.postStream(ctx, target, params, source, opts...)
}

// ChatCompletionRequest is one chat turn.
type ChatCompletionRequest struct {
	Version   Version
	Messages  []chat.Message
	Input     string
	ProjectID string
	Knowledge string
	CopilotID string

	// OnEvent, if set, sees every event of the turn as it arrives.
	OnEvent func(runevent.Event)
}

// RunChatCompletion runs one chat turn and folds the copilot's stream into an
// assistant reply. The returned transcript is req.Messages followed by the
// new user message and any OUTPUT block messages; req.Messages itself is not
// modified. The reply is not appended to the transcript.
func (c *Client) RunChatCompletion(ctx context.Context, req ChatCompletionRequest) (*chat.Completion, error) {
	transcript := append(chat.Clone(req.Messages), chat.NewUserMessage(req.Input, c.now()))

	params := c.CreateChatParams(req.Version, req.Messages, req.Input, req.ProjectID, req.Knowledge)
	s, err := c.RunChatCopilot(ctx, req.CopilotID, params)
	if err != nil {
		msg := err.Error()
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.Message
		}
		return nil, &APIError{
			Type:    TypeAPIError,
			Code:    CodeRunChatCopilot,
			Message: fmt.Sprintf("Error running runChatCopilot: %s", msg),
			Status:  statusOf(err),
			Err:     err,
		}
	}
	defer s.Close()

	reduceOpts := []chat.Option{
		chat.WithClock(c.now),
		chat.WithLogger(c.logger),
	}
	if req.OnEvent != nil {
		reduceOpts = append(reduceOpts, chat.WithObserver(req.OnEvent))
	}

	completion, err := chat.Reduce(s.Events(), transcript, reduceOpts...)
	if err != nil {
		apiErr := &APIError{
			Type:    TypeEventStreamError,
			Code:    CodeRunChatCompletion,
			Message: err.Error(),
			Err:     err,
		}
		var reduceErr *chat.ReduceError
		if errors.As(err, &reduceErr) {
			apiErr.Event = reduceErr.Event
		}
		return nil, apiErr
	}

	if runID, ok := s.RunID().Peek(); ok {
		c.logger.Debug("chat completion finished", "run_id", runID, "copilot", req.CopilotID)
	}

	return completion, nil
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
