package cortex

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/papercomputeco/cortex/pkg/runevent"
)

// BlockType is the kind of a callable block.
type BlockType string

const (
	BlockInput     BlockType = "input"
	BlockData      BlockType = "data"
	BlockKnowledge BlockType = "knowledge"
	BlockCode      BlockType = "code"
	BlockModel     BlockType = "model"
	BlockChat      BlockType = "chat"
	BlockMap       BlockType = "map"
	BlockReduce    BlockType = "reduce"
	BlockLoop      BlockType = "loop"
	BlockUntil     BlockType = "until"
	BlockSearch    BlockType = "search"
	BlockCurl      BlockType = "curl"
	BlockBrowser   BlockType = "browser"
)

// RunRunType is how a run was started.
type RunRunType string

const (
	RunDeploy  RunRunType = "deploy"
	RunLocal   RunRunType = "local"
	RunExecute RunRunType = "execute"
	RunAll     RunRunType = "all"
)

// SharedVisibility controls who can see a knowledge base.
type SharedVisibility string

const (
	VisibilityPrivate  SharedVisibility = "private"
	VisibilityPublic   SharedVisibility = "public"
	VisibilityUnlisted SharedVisibility = "unlisted"
	VisibilityDeleted  SharedVisibility = "deleted"
)

// HubProvider is the upstream source a knowledge base is synced from.
type HubProvider string

const (
	HubSlack  HubProvider = "slack"
	HubNotion HubProvider = "notion"
	HubWeb    HubProvider = "web"
	HubMedium HubProvider = "medium"
)

// Version is a callable version. Numeric versions are sent as JSON numbers,
// anything else (e.g. "latest") as a string.
type Version string

func (v Version) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseUint(string(v), 10, 64); err == nil {
		return []byte(v), nil
	}
	return json.Marshal(string(v))
}

func (v *Version) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Version(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("version must be a string or number: %w", err)
	}
	*v = Version(n.String())
	return nil
}

// BlockConfig holds per-block run configuration keyed by block name.
type BlockConfig map[string]any

// CallableParams is the body of a callable run request.
type CallableParams struct {
	Version     Version     `json:"version"`
	Config      BlockConfig `json:"config"`
	Inputs      []any       `json:"inputs"`
	Blocking    bool        `json:"blocking,omitempty"`
	BlockFilter []any       `json:"block_filter,omitempty"`

	// Stream is set by RunCallableStream.
	Stream bool `json:"stream,omitempty"`
}

// ChatParams is the body of a copilot request.
type ChatParams struct {
	Version Version     `json:"version"`
	Config  BlockConfig `json:"config"`
	Inputs  []any       `json:"inputs"`
}

// DocumentChunk is one indexed slice of a document.
type DocumentChunk struct {
	Text   string    `json:"text"`
	Hash   string    `json:"hash"`
	Offset int       `json:"offset"`
	Vector []float64 `json:"vector,omitempty"`
	Score  *float64  `json:"score,omitempty"`
}

// Document is a knowledge base document as stored by Cortex.
type Document struct {
	DataSourceID string          `json:"data_source_id"`
	Created      int64           `json:"created"`
	DocumentID   string          `json:"document_id"`
	Timestamp    int64           `json:"timestamp"`
	Tags         []string        `json:"tags"`
	Hash         string          `json:"hash"`
	TextSize     int             `json:"text_size"`
	ChunkCount   int             `json:"chunk_count"`
	Chunks       []DocumentChunk `json:"chunks"`
	Text         *string         `json:"text,omitempty"`
	SourceURL    *string         `json:"source_url,omitempty"`
}

// CreateDocument is the body of a document upload.
type CreateDocument struct {
	Timestamp int64    `json:"timestamp,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Text      string   `json:"text,omitempty"`
	SourceURL string   `json:"source_url,omitempty"`
}

// KnowledgeHub links a knowledge base to its upstream provider.
type KnowledgeHub struct {
	ID       string      `json:"id"`
	Provider HubProvider `json:"provider"`
}

// Knowledge is a knowledge base.
type Knowledge struct {
	Name            string           `json:"name"`
	Description     string           `json:"description,omitempty"`
	Visibility      SharedVisibility `json:"visibility"`
	Config          string           `json:"config,omitempty"`
	RunnerProjectID string           `json:"runnerProjectId"`
	LastUpdatedAt   string           `json:"lastUpdatedAt,omitempty"`
	Hub             *KnowledgeHub    `json:"hub"`
}

// DocumentResponse is returned by GetDocument and DeleteDocument.
type DocumentResponse struct {
	Document Document `json:"document"`
}

// UploadDocumentResponse is returned by UploadDocument.
type UploadDocumentResponse struct {
	Document  Document  `json:"document"`
	Knowledge Knowledge `json:"knowledge"`
}

// RunConfig is the configuration a run executed with.
type RunConfig struct {
	Blocks BlockConfig `json:"blocks"`
}

// RunState is the overall and per-block status of a run.
type RunState struct {
	Run    runevent.Status        `json:"run"`
	Blocks []runevent.BlockStatus `json:"blocks"`
}

// BlockTrace is the execution trace of one block. On the wire it is the
// tuple [[block_type, block_name], execution].
type BlockTrace struct {
	BlockType BlockType
	BlockName string
	Execution [][]runevent.ExecutionTrace
}

func (t BlockTrace) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{
		[]string{string(t.BlockType), t.BlockName},
		t.Execution,
	})
}

func (t *BlockTrace) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("decoding block trace: %w", err)
	}
	if len(tuple) != 2 {
		return errors.New("decoding block trace: expected [[type, name], execution]")
	}

	var head []string
	if err := json.Unmarshal(tuple[0], &head); err != nil {
		return fmt.Errorf("decoding block trace header: %w", err)
	}
	if len(head) != 2 {
		return errors.New("decoding block trace header: expected [type, name]")
	}

	var exec [][]runevent.ExecutionTrace
	if err := json.Unmarshal(tuple[1], &exec); err != nil {
		return fmt.Errorf("decoding block trace execution: %w", err)
	}

	t.BlockType = BlockType(head[0])
	t.BlockName = head[1]
	t.Execution = exec
	return nil
}

// Run is one execution of a callable.
type Run struct {
	RunID             string                      `json:"run_id"`
	Created           int64                       `json:"created"`
	RunType           RunRunType                  `json:"run_type"`
	AppHash           *string                     `json:"app_hash,omitempty"`
	SpecificationHash *string                     `json:"specification_hash,omitempty"`
	Config            RunConfig                   `json:"config"`
	Status            RunState                    `json:"status"`
	Traces            []BlockTrace                `json:"traces"`
	Version           *int                        `json:"version,omitempty"`
	Results           [][]runevent.ExecutionTrace `json:"results,omitempty"`
}

// RunResponse is returned by RunCallable.
type RunResponse struct {
	Run Run `json:"run"`
}
