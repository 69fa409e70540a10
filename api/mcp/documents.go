package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/cortex/pkg/cortex"
)

var (
	getDocumentToolName    = "get_document"
	getDocumentDescription = "Fetch a document from a Cortex knowledge base by id, including its text when available."

	uploadDocumentToolName    = "upload_document"
	uploadDocumentDescription = "Create or replace a document in a Cortex knowledge base. The text is chunked and indexed for retrieval."

	deleteDocumentToolName    = "delete_document"
	deleteDocumentDescription = "Delete a document from a Cortex knowledge base."
)

// DocumentInput identifies a document.
type DocumentInput struct {
	Knowledge  string `json:"knowledge,omitempty" jsonschema:"the knowledge base name (defaults to the configured knowledge base)"`
	DocumentID string `json:"document_id" jsonschema:"the document id"`
}

// UploadDocumentInput represents the input arguments for the upload_document tool.
type UploadDocumentInput struct {
	Knowledge  string   `json:"knowledge,omitempty" jsonschema:"the knowledge base name (defaults to the configured knowledge base)"`
	DocumentID string   `json:"document_id" jsonschema:"the document id"`
	Text       string   `json:"text" jsonschema:"the document text"`
	SourceURL  string   `json:"source_url,omitempty" jsonschema:"where the text came from"`
	Tags       []string `json:"tags,omitempty" jsonschema:"tags to attach to the document"`
}

// DocumentOutput is a flattened view of a knowledge base document.
type DocumentOutput struct {
	DocumentID   string   `json:"document_id"`
	DataSourceID string   `json:"data_source_id"`
	Hash         string   `json:"hash"`
	TextSize     int      `json:"text_size"`
	ChunkCount   int      `json:"chunk_count"`
	Tags         []string `json:"tags,omitempty"`
	SourceURL    string   `json:"source_url,omitempty"`
	Text         string   `json:"text,omitempty"`
}

func toDocumentOutput(d cortex.Document) DocumentOutput {
	out := DocumentOutput{
		DocumentID:   d.DocumentID,
		DataSourceID: d.DataSourceID,
		Hash:         d.Hash,
		TextSize:     d.TextSize,
		ChunkCount:   d.ChunkCount,
		Tags:         d.Tags,
	}
	if d.SourceURL != nil {
		out.SourceURL = *d.SourceURL
	}
	if d.Text != nil {
		out.Text = *d.Text
	}
	return out
}

func (s *Server) knowledge(k string) string {
	if k != "" {
		return k
	}
	return s.config.Defaults.Knowledge
}

func (s *Server) handleGetDocument(ctx context.Context, _ *mcp.CallToolRequest, input DocumentInput) (*mcp.CallToolResult, DocumentOutput, error) {
	knowledge := s.knowledge(input.Knowledge)
	if knowledge == "" || input.DocumentID == "" {
		return errorResult("knowledge and document_id are required"), DocumentOutput{}, nil
	}

	s.config.Logger.Debug("MCP get_document", "knowledge", knowledge, "document_id", input.DocumentID)

	resp, err := s.config.Client.GetDocument(ctx, knowledge, input.DocumentID)
	if err != nil {
		return errorResult("Failed to get document: %v", err), DocumentOutput{}, nil
	}

	output := toDocumentOutput(resp.Document)
	return jsonResult(output), output, nil
}

func (s *Server) handleUploadDocument(ctx context.Context, _ *mcp.CallToolRequest, input UploadDocumentInput) (*mcp.CallToolResult, DocumentOutput, error) {
	knowledge := s.knowledge(input.Knowledge)
	if knowledge == "" || input.DocumentID == "" {
		return errorResult("knowledge and document_id are required"), DocumentOutput{}, nil
	}

	s.config.Logger.Debug("MCP upload_document",
		"knowledge", knowledge,
		"document_id", input.DocumentID,
		"text_size", len(input.Text),
	)

	resp, err := s.config.Client.UploadDocument(ctx, knowledge, input.DocumentID, cortex.CreateDocument{
		Timestamp: time.Now().UnixMilli(),
		Tags:      input.Tags,
		Text:      input.Text,
		SourceURL: input.SourceURL,
	})
	if err != nil {
		return errorResult("Failed to upload document: %v", err), DocumentOutput{}, nil
	}

	output := toDocumentOutput(resp.Document)
	return jsonResult(output), output, nil
}

func (s *Server) handleDeleteDocument(ctx context.Context, _ *mcp.CallToolRequest, input DocumentInput) (*mcp.CallToolResult, DocumentOutput, error) {
	knowledge := s.knowledge(input.Knowledge)
	if knowledge == "" || input.DocumentID == "" {
		return errorResult("knowledge and document_id are required"), DocumentOutput{}, nil
	}

	s.config.Logger.Debug("MCP delete_document", "knowledge", knowledge, "document_id", input.DocumentID)

	resp, err := s.config.Client.DeleteDocument(ctx, knowledge, input.DocumentID)
	if err != nil {
		return errorResult("Failed to delete document: %v", err), DocumentOutput{}, nil
	}

	output := toDocumentOutput(resp.Document)
	return jsonResult(output), output, nil
}
