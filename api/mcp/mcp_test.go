package mcp_test

import (
	"context"
	"encoding/json"
	"errors"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/cortex/api/mcp"
	"github.com/papercomputeco/cortex/pkg/chat"
	"github.com/papercomputeco/cortex/pkg/cortex"
	cortexlogger "github.com/papercomputeco/cortex/pkg/logger"
	"github.com/papercomputeco/cortex/pkg/runevent"
)

type fakeClient struct {
	err error

	knowledge  string
	documentID string
	uploaded   cortex.CreateDocument
	callable   cortex.CallableParams
	chatReq    cortex.ChatCompletionRequest
}

func (f *fakeClient) document() *cortex.DocumentResponse {
	text := "hello"
	return &cortex.DocumentResponse{Document: cortex.Document{
		DocumentID: f.documentID,
		Hash:       "h",
		ChunkCount: 1,
		Text:       &text,
	}}
}

func (f *fakeClient) GetDocument(_ context.Context, knowledge, id string) (*cortex.DocumentResponse, error) {
	f.knowledge, f.documentID = knowledge, id
	if f.err != nil {
		return nil, f.err
	}
	return f.document(), nil
}

func (f *fakeClient) UploadDocument(_ context.Context, knowledge, id string, doc cortex.CreateDocument) (*cortex.UploadDocumentResponse, error) {
	f.knowledge, f.documentID, f.uploaded = knowledge, id, doc
	if f.err != nil {
		return nil, f.err
	}
	return &cortex.UploadDocumentResponse{Document: f.document().Document}, nil
}

func (f *fakeClient) DeleteDocument(_ context.Context, knowledge, id string) (*cortex.DocumentResponse, error) {
	f.knowledge, f.documentID = knowledge, id
	if f.err != nil {
		return nil, f.err
	}
	return f.document(), nil
}

func (f *fakeClient) RunCallable(_ context.Context, id string, params cortex.CallableParams) (*cortex.RunResponse, error) {
	f.documentID, f.callable = id, params
	if f.err != nil {
		return nil, f.err
	}
	return &cortex.RunResponse{Run: cortex.Run{
		RunID:  "run-1",
		Status: cortex.RunState{Run: runevent.StatusSucceeded},
		Traces: []cortex.BlockTrace{
			{
				BlockType: "llm",
				BlockName: "MODEL",
				Execution: [][]runevent.ExecutionTrace{{{Value: json.RawMessage(`{"text":"4"}`)}}},
			},
			{BlockType: "code", BlockName: "EMPTY"},
		},
	}}, nil
}

func (f *fakeClient) RunChatCompletion(_ context.Context, req cortex.ChatCompletionRequest) (*chat.Completion, error) {
	f.chatReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &chat.Completion{Response: chat.Message{
		Role:    chat.RoleAssistant,
		Content: "Paris",
		Retrievals: []chat.RetrievedDocument{
			{DocumentID: "d1", SourceURL: "https://x", Chunks: []chat.Chunk{{Text: "a"}, {Text: "b"}}},
		},
	}}, nil
}

func textOf(res *sdk.CallToolResult) string {
	Expect(res.Content).NotTo(BeEmpty())
	tc, ok := res.Content[0].(*sdk.TextContent)
	Expect(ok).To(BeTrue())
	return tc.Text
}

var _ = Describe("MCP Server", func() {
	var (
		client  *fakeClient
		server  *mcp.Server
		session *sdk.ClientSession
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = &fakeClient{}

		var err error
		server, err = mcp.NewServer(mcp.Config{
			Client: client,
			Defaults: mcp.ChatDefaults{
				Version:   "3",
				ProjectID: "proj",
				Knowledge: "default-kb",
				CopilotID: "cp",
			},
			Logger: cortexlogger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		ct, st := sdk.NewInMemoryTransports()
		_, err = server.MCPServer().Connect(ctx, st, nil)
		Expect(err).NotTo(HaveOccurred())

		c := sdk.NewClient(&sdk.Implementation{Name: "test", Version: "v0"}, nil)
		session, err = c.Connect(ctx, ct, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if session != nil {
			session.Close()
		}
	})

	call := func(name string, args map[string]any) *sdk.CallToolResult {
		res, err := session.CallTool(ctx, &sdk.CallToolParams{Name: name, Arguments: args})
		Expect(err).NotTo(HaveOccurred())
		return res
	}

	Describe("NewServer", func() {
		It("returns an error when the client is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Logger: cortexlogger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("cortex client is required")))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Client: client})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("allows an empty noop server", func() {
			s, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Handler()).NotTo(BeNil())
		})

		It("registers every tool", func() {
			res, err := session.ListTools(ctx, nil)
			Expect(err).NotTo(HaveOccurred())

			var names []string
			for _, t := range res.Tools {
				names = append(names, t.Name)
			}
			Expect(names).To(ConsistOf("get_document", "upload_document", "delete_document", "run_callable", "chat"))
		})
	})

	Describe("document tools", func() {
		It("falls back to the default knowledge base", func() {
			res := call("get_document", map[string]any{"document_id": "doc-1"})
			Expect(res.IsError).To(BeFalse())
			Expect(client.knowledge).To(Equal("default-kb"))

			var out mcp.DocumentOutput
			Expect(json.Unmarshal([]byte(textOf(res)), &out)).To(Succeed())
			Expect(out.DocumentID).To(Equal("doc-1"))
			Expect(out.Text).To(Equal("hello"))
		})

		It("uploads text with tags", func() {
			res := call("upload_document", map[string]any{
				"knowledge":   "kb",
				"document_id": "doc-2",
				"text":        "body",
				"tags":        []string{"a"},
			})
			Expect(res.IsError).To(BeFalse())
			Expect(client.knowledge).To(Equal("kb"))
			Expect(client.uploaded.Text).To(Equal("body"))
			Expect(client.uploaded.Tags).To(Equal([]string{"a"}))
			Expect(client.uploaded.Timestamp).NotTo(BeZero())
		})

		It("deletes documents", func() {
			res := call("delete_document", map[string]any{"document_id": "doc-3"})
			Expect(res.IsError).To(BeFalse())
			Expect(client.documentID).To(Equal("doc-3"))
		})

		It("reports client failures as tool errors", func() {
			client.err = &cortex.APIError{Type: cortex.TypeAPIError, Code: cortex.CodeHTTPError, Message: "status 404: nope", Status: 404}
			res := call("get_document", map[string]any{"document_id": "doc-1"})
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).To(ContainSubstring("status 404"))
		})
	})

	Describe("run_callable", func() {
		It("rejects a missing callable id", func() {
			res, err := session.CallTool(ctx, &sdk.CallToolParams{Name: "run_callable", Arguments: map[string]any{}})
			if err == nil {
				Expect(res.IsError).To(BeTrue())
			}
			Expect(client.callable.Version).To(BeEmpty())
		})

		It("runs blocking with the latest version by default", func() {
			res := call("run_callable", map[string]any{"callable_id": "app"})
			Expect(res.IsError).To(BeFalse())
			Expect(client.callable.Blocking).To(BeTrue())
			Expect(client.callable.Version).To(Equal(cortex.Version("latest")))
			Expect(client.callable.Inputs).NotTo(BeNil())

			var out mcp.RunCallableOutput
			Expect(json.Unmarshal([]byte(textOf(res)), &out)).To(Succeed())
			Expect(out.RunID).To(Equal("run-1"))
			Expect(out.Status).To(Equal("succeeded"))
			Expect(out.Blocks).To(HaveLen(2))
			Expect(out.Blocks[0].Value).To(Equal(map[string]any{"text": "4"}))
			Expect(out.Blocks[1].Value).To(BeNil())
		})
	})

	Describe("chat", func() {
		It("uses the configured copilot and returns sources", func() {
			res := call("chat", map[string]any{
				"message": "capital of France?",
				"history": []map[string]any{{"role": "user", "content": "hi"}},
			})
			Expect(res.IsError).To(BeFalse())

			Expect(client.chatReq.CopilotID).To(Equal("cp"))
			Expect(client.chatReq.Version).To(Equal(cortex.Version("3")))
			Expect(client.chatReq.ProjectID).To(Equal("proj"))
			Expect(client.chatReq.Knowledge).To(Equal("default-kb"))
			Expect(client.chatReq.Messages).To(HaveLen(1))
			Expect(client.chatReq.Messages[0].Role).To(Equal(chat.RoleUser))

			var out mcp.ChatOutput
			Expect(json.Unmarshal([]byte(textOf(res)), &out)).To(Succeed())
			Expect(out.Response).To(Equal("Paris"))
			Expect(out.Sources).To(Equal([]mcp.Source{{DocumentID: "d1", SourceURL: "https://x", Chunks: 2}}))
		})

		It("reports chat failures as tool errors", func() {
			client.err = errors.New("stream broke")
			res := call("chat", map[string]any{"message": "hi"})
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).To(ContainSubstring("stream broke"))
		})
	})
})
