package cortex

import (
	"context"
	"net/http"
)

// GetDocument fetches one document from a knowledge base.
func (c *Client) GetDocument(ctx context.Context, knowledge, documentID string) (*DocumentResponse, error) {
	var out DocumentResponse
	if err := c.doJSON(ctx, http.MethodGet, c.projectURL("knowledge", knowledge, "d", documentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadDocument creates or replaces a document in a knowledge base.
func (c *Client) UploadDocument(ctx context.Context, knowledge, documentID string, doc CreateDocument) (*UploadDocumentResponse, error) {
	var out UploadDocumentResponse
	if err := c.doJSON(ctx, http.MethodPost, c.projectURL("knowledge", knowledge, "d", documentID), doc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDocument removes a document from a knowledge base and returns it.
func (c *Client) DeleteDocument(ctx context.Context, knowledge, documentID string) (*DocumentResponse, error) {
	var out DocumentResponse
	if err := c.doJSON(ctx, http.MethodDelete, c.projectURL("knowledge", knowledge, "d", documentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
