// Package chat holds the conversation model exchanged with a Cortex copilot
// and the reducer that folds a copilot run stream into an assistant reply.
package chat

import (
	"slices"
	"time"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

// Chunk is one retrieved passage of a document.
type Chunk struct {
	Text string `json:"text"`
}

// RetrievedDocument is a knowledge base document returned by a retrieval block.
type RetrievedDocument struct {
	SourceURL  string  `json:"source_url"`
	DocumentID string  `json:"document_id"`
	Chunks     []Chunk `json:"chunks"`
}

// Message is one entry of a conversation transcript.
// A nil Retrievals encodes as JSON null; user messages carry an empty list.
type Message struct {
	Role       Role                `json:"role"`
	Content    string              `json:"content"`
	Retrievals []RetrievedDocument `json:"retrievals"`
	UpdatedAt  *time.Time          `json:"updatedAt,omitempty"`
}

// NewUserMessage returns the transcript entry for user input.
func NewUserMessage(input string, now time.Time) Message {
	return Message{
		Role:       RoleUser,
		Content:    input,
		Retrievals: []RetrievedDocument{},
		UpdatedAt:  &now,
	}
}

// Clone returns a copy of transcript that shares no slices with it.
func Clone(transcript []Message) []Message {
	if transcript == nil {
		return []Message{}
	}

	out := make([]Message, len(transcript))
	for i, m := range transcript {
		out[i] = m
		if m.Retrievals != nil {
			out[i].Retrievals = make([]RetrievedDocument, len(m.Retrievals))
			for j, doc := range m.Retrievals {
				doc.Chunks = slices.Clone(doc.Chunks)
				out[i].Retrievals[j] = doc
			}
		}
		if m.UpdatedAt != nil {
			t := *m.UpdatedAt
			out[i].UpdatedAt = &t
		}
	}
	return out
}
