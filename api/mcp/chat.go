package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/cortex/pkg/chat"
	"github.com/papercomputeco/cortex/pkg/cortex"
)

var (
	chatToolName    = "chat"
	chatDescription = "Ask a Cortex copilot a question. The copilot answers from its knowledge base and returns the documents it retrieved."
)

// ChatInput represents the input arguments for the chat tool.
type ChatInput struct {
	Message   string `json:"message" jsonschema:"the user message"`
	History   []Turn `json:"history,omitempty" jsonschema:"earlier turns of the conversation, oldest first"`
	CopilotID string `json:"copilot_id,omitempty" jsonschema:"the copilot id (defaults to the configured copilot)"`
	Knowledge string `json:"knowledge,omitempty" jsonschema:"the knowledge base to retrieve from (defaults to the configured knowledge base)"`
}

// Turn is one earlier message of the conversation.
type Turn struct {
	Role    string `json:"role" jsonschema:"user or assistant"`
	Content string `json:"content" jsonschema:"the message text"`
}

// Source is a document the copilot retrieved while answering.
type Source struct {
	DocumentID string `json:"document_id"`
	SourceURL  string `json:"source_url,omitempty"`
	Chunks     int    `json:"chunks"`
}

// ChatOutput represents the output of the chat tool.
type ChatOutput struct {
	Response string   `json:"response"`
	Sources  []Source `json:"sources,omitempty"`
}

func (s *Server) handleChat(ctx context.Context, _ *mcp.CallToolRequest, input ChatInput) (*mcp.CallToolResult, ChatOutput, error) {
	d := s.config.Defaults

	copilotID := input.CopilotID
	if copilotID == "" {
		copilotID = d.CopilotID
	}
	if input.Message == "" || copilotID == "" {
		return errorResult("message and copilot_id are required"), ChatOutput{}, nil
	}

	version := d.Version
	if version == "" {
		version = "latest"
	}

	s.config.Logger.Debug("MCP chat", "copilot", copilotID, "history", len(input.History))

	completion, err := s.config.Client.RunChatCompletion(ctx, cortex.ChatCompletionRequest{
		Version:   version,
		Messages:  toTranscript(input.History),
		Input:     input.Message,
		ProjectID: d.ProjectID,
		Knowledge: s.knowledge(input.Knowledge),
		CopilotID: copilotID,
	})
	if err != nil {
		return errorResult("Chat failed: %v", err), ChatOutput{}, nil
	}

	output := ChatOutput{Response: completion.Response.Content}
	for _, doc := range completion.Response.Retrievals {
		output.Sources = append(output.Sources, Source{
			DocumentID: doc.DocumentID,
			SourceURL:  doc.SourceURL,
			Chunks:     len(doc.Chunks),
		})
	}

	return jsonResult(output), output, nil
}

func toTranscript(turns []Turn) []chat.Message {
	messages := make([]chat.Message, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, chat.Message{
			Role:       chat.Role(t.Role),
			Content:    t.Content,
			Retrievals: []chat.RetrievedDocument{},
		})
	}
	return messages
}
