package cortex_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/cortex/pkg/cortex"
	"github.com/papercomputeco/cortex/pkg/runevent"
)

// recorded is one request seen by the fake server.
type recorded struct {
	Method string
	Path   string
	Auth   string
	Body   []byte
}

type fakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recorded
	handler  http.HandlerFunc
}

func newFakeServer() *fakeServer {
	f := &fakeServer{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recorded{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Auth:   r.Header.Get("Authorization"),
			Body:   body,
		})
		h := f.handler
		f.mu.Unlock()
		h(w, r)
	}))
	return f
}

func (f *fakeServer) handle(h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

func (f *fakeServer) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	Expect(f.requests).NotTo(BeEmpty())
	return f.requests[len(f.requests)-1]
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

var _ = Describe("Client", func() {
	var (
		srv    *fakeServer
		client *cortex.Client
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		srv = newFakeServer()
		DeferCleanup(srv.Close)

		var err error
		client, err = cortex.New(
			cortex.WithAPIKey("sk-test"),
			cortex.WithUserID("user_1"),
			cortex.WithBaseURL(srv.URL+"/api/sdk/"),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("New", func() {
		It("requires an API key and a user id", func() {
			_, err := cortex.New(cortex.WithUserID("u"))
			Expect(err).To(MatchError(ContainSubstring("API key")))

			_, err = cortex.New(cortex.WithAPIKey("k"))
			Expect(err).To(MatchError(ContainSubstring("user id")))
		})
	})

	Describe("documents", func() {
		It("gets a document from the project path with a bearer token", func() {
			srv.handle(jsonHandler(http.StatusOK, `{"document":{"document_id":"intro","data_source_id":"kb","chunk_count":2,"chunks":[{"text":"a","hash":"h","offset":0}]}}`))

			resp, err := client.GetDocument(ctx, "kb", "intro")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Document.DocumentID).To(Equal("intro"))
			Expect(resp.Document.Chunks).To(HaveLen(1))

			req := srv.last()
			Expect(req.Method).To(Equal(http.MethodGet))
			Expect(req.Path).To(Equal("/api/sdk/p/user_1/knowledge/kb/d/intro"))
			Expect(req.Auth).To(Equal("Bearer sk-test"))
		})

		It("escapes path segments", func() {
			srv.handle(jsonHandler(http.StatusOK, `{"document":{}}`))

			_, err := client.DeleteDocument(ctx, "my kb", "docs/a b")
			Expect(err).NotTo(HaveOccurred())

			req := srv.last()
			Expect(req.Method).To(Equal(http.MethodDelete))
			Expect(req.Path).To(Equal("/api/sdk/p/user_1/knowledge/my%20kb/d/docs%2Fa%20b"))
		})

		It("uploads a document body", func() {
			srv.handle(jsonHandler(http.StatusOK, `{"document":{"document_id":"intro"},"knowledge":{"name":"kb","visibility":"private","runnerProjectId":"p1","hub":null}}`))

			resp, err := client.UploadDocument(ctx, "kb", "intro", cortex.CreateDocument{
				Text:      "hello",
				SourceURL: "file:///intro.md",
				Tags:      []string{"docs"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Knowledge.RunnerProjectID).To(Equal("p1"))
			Expect(resp.Knowledge.Hub).To(BeNil())

			req := srv.last()
			Expect(req.Method).To(Equal(http.MethodPost))
			Expect(req.Body).To(MatchJSON(`{"text":"hello","source_url":"file:///intro.md","tags":["docs"]}`))
		})

		It("returns structured API errors", func() {
			srv.handle(jsonHandler(http.StatusNotFound, `{"error":{"type":"document_not_found","code":"not_found","message":"no such document"}}`))

			_, err := client.GetDocument(ctx, "kb", "missing")

			var apiErr *cortex.APIError
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.Type).To(Equal("document_not_found"))
			Expect(apiErr.Message).To(Equal("no such document"))
			Expect(apiErr.Status).To(Equal(http.StatusNotFound))
		})

		It("falls back to an http_error for unstructured failures", func() {
			srv.handle(jsonHandler(http.StatusInternalServerError, `upstream exploded`))

			_, err := client.GetDocument(ctx, "kb", "x")
			Expect(errors.Is(err, cortex.ErrAPI)).To(BeTrue())

			var apiErr *cortex.APIError
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.Code).To(Equal(cortex.CodeHTTPError))
			Expect(apiErr.Message).To(ContainSubstring("upstream exploded"))
		})

		It("reports undecodable bodies", func() {
			srv.handle(jsonHandler(http.StatusOK, `{"document":`))

			_, err := client.GetDocument(ctx, "kb", "x")
			Expect(errors.Is(err, &cortex.APIError{Type: cortex.TypeAPIError, Code: cortex.CodeDecodeError})).To(BeTrue())
		})

		It("reports transport failures as request errors", func() {
			srv.Close()

			_, err := client.GetDocument(ctx, "kb", "x")
			Expect(errors.Is(err, &cortex.APIError{Type: cortex.TypeAPIError, Code: cortex.CodeRequestError})).To(BeTrue())
		})
	})

	Describe("RunCallable", func() {
		It("posts params and decodes the run", func() {
			srv.handle(jsonHandler(http.StatusOK, `{"run":{
				"run_id":"r1","created":1700000000,"run_type":"deploy",
				"config":{"blocks":{}},
				"status":{"run":"succeeded","blocks":[{"block_type":"code","name":"OUTPUT","status":"succeeded","success_count":1,"error_count":0}]},
				"traces":[[["code","OUTPUT"],[[{"value":42}]]]]
			}}`))

			resp, err := client.RunCallable(ctx, "app_1", cortex.CallableParams{
				Version: "3",
				Config:  cortex.BlockConfig{},
				Inputs:  []any{map[string]any{"q": "hi"}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Run.RunID).To(Equal("r1"))
			Expect(resp.Run.Status.Run).To(Equal(runevent.StatusSucceeded))
			Expect(resp.Run.Traces).To(HaveLen(1))
			Expect(resp.Run.Traces[0].BlockType).To(Equal(cortex.BlockCode))
			Expect(resp.Run.Traces[0].BlockName).To(Equal("OUTPUT"))
			Expect(string(resp.Run.Traces[0].Execution[0][0].Value)).To(Equal("42"))

			req := srv.last()
			Expect(req.Path).To(Equal("/api/sdk/p/user_1/a/app_1/r"))
			Expect(req.Body).To(MatchJSON(`{"version":3,"config":{},"inputs":[{"q":"hi"}]}`))
		})
	})

	Describe("Version", func() {
		It("sends numeric versions as numbers and others as strings", func() {
			raw, err := json.Marshal(cortex.Version("7"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(Equal("7"))

			raw, err = json.Marshal(cortex.Version("latest"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(Equal(`"latest"`))

			var v cortex.Version
			Expect(json.Unmarshal([]byte("12"), &v)).To(Succeed())
			Expect(v).To(Equal(cortex.Version("12")))
		})
	})
})
