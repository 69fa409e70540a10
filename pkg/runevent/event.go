// Package runevent defines the typed events of a Cortex run stream and the
// classifier that turns SSE data payloads into them.
//
// Every SSE "data:" payload on a run stream is a JSON object of the form
//
//	{"type": "<kind>", "content": {...}}
//
// where kind is one of the Kind constants. Payloads that are not JSON, carry
// an unknown kind, or fail the per-kind schema are dropped rather than
// surfaced as errors. Error reports are exempt from the schema and always
// produce an *Error.
package runevent

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind discriminates the RunEvent variants.
type Kind string

const (
	KindError          Kind = "error"
	KindRunStatus      Kind = "run_status"
	KindBlockStatus    Kind = "block_status"
	KindBlockExecution Kind = "block_execution"
	KindTokens         Kind = "tokens"
	KindFinal          Kind = "final"
)

// Status is the lifecycle state of a run or a block.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusErrored   Status = "errored"
)

// Event is one decoded run stream event. The set of implementations is closed:
// *Error, *RunStatus, *BlockStatus, *BlockExecution, *Tokens and *Final.
type Event interface {
	Kind() Kind
	runEvent()
}

// Error is an upstream or synthetic error report.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RunStatus reports the overall state of the run.
type RunStatus struct {
	Status Status `json:"status"`
	RunID  string `json:"run_id"`
}

// BlockStatus reports progress of one block of the callable.
type BlockStatus struct {
	BlockType    string `json:"block_type"`
	Name         string `json:"name"`
	Status       Status `json:"status"`
	SuccessCount int    `json:"success_count"`
	ErrorCount   int    `json:"error_count"`
}

// ExecutionTrace is one value/error pair produced by a block execution.
// Error is kept raw: upstream sends strings, but any JSON value is accepted.
type ExecutionTrace struct {
	Value json.RawMessage `json:"value"`
	Error json.RawMessage `json:"error,omitempty"`
}

// HasError reports whether Error is truthy. Missing, null, false, 0 and ""
// mean no error.
func (t ExecutionTrace) HasError() bool {
	switch strings.TrimSpace(string(t.Error)) {
	case "", "null", "false", `""`:
		return false
	}
	if n, err := strconv.ParseFloat(string(t.Error), 64); err == nil {
		return n != 0
	}
	return true
}

// ErrorText renders Error for display. String errors are unquoted; any
// other JSON value is returned as is.
func (t ExecutionTrace) ErrorText() string {
	var s string
	if err := json.Unmarshal(t.Error, &s); err == nil {
		return s
	}
	return string(t.Error)
}

// HasValue reports whether the trace carries a non-null value.
func (t ExecutionTrace) HasValue() bool {
	return len(t.Value) > 0 && string(t.Value) != "null"
}

// BlockExecution carries the results of one block, grouped per input.
type BlockExecution struct {
	BlockType string             `json:"block_type"`
	BlockName string             `json:"block_name"`
	Execution [][]ExecutionTrace `json:"execution"`
}

// First returns execution[0][0], the only result the chat reducer looks at.
func (b *BlockExecution) First() (ExecutionTrace, bool) {
	if len(b.Execution) == 0 || len(b.Execution[0]) == 0 {
		return ExecutionTrace{}, false
	}
	return b.Execution[0][0], true
}

// MapInfo locates a token stream inside a map block iteration.
type MapInfo struct {
	Name      string `json:"name"`
	Iteration int    `json:"iteration"`
}

// TokenChunk is the incremental text produced by a model block.
type TokenChunk struct {
	Text     string    `json:"text"`
	Tokens   []string  `json:"tokens,omitempty"`
	Logprobs []float64 `json:"logprobs,omitempty"`
}

// Tokens is a streamed fragment of model output.
type Tokens struct {
	BlockType  string     `json:"block_type"`
	BlockName  string     `json:"block_name"`
	InputIndex int        `json:"input_index"`
	Map        *MapInfo   `json:"map"`
	Tokens     TokenChunk `json:"tokens"`
}

// Final marks the end of the run. It has no payload.
type Final struct{}

func (*Error) Kind() Kind          { return KindError }
func (*RunStatus) Kind() Kind      { return KindRunStatus }
func (*BlockStatus) Kind() Kind    { return KindBlockStatus }
func (*BlockExecution) Kind() Kind { return KindBlockExecution }
func (*Tokens) Kind() Kind         { return KindTokens }
func (*Final) Kind() Kind          { return KindFinal }

func (*Error) runEvent()          {}
func (*RunStatus) runEvent()      {}
func (*BlockStatus) runEvent()    {}
func (*BlockExecution) runEvent() {}
func (*Tokens) runEvent()         {}
func (*Final) runEvent()          {}

// wireEvent is the JSON shape of a run stream payload.
type wireEvent struct {
	Type    Kind  `json:"type"`
	Content Event `json:"content,omitempty"`
}

// Encode renders ev in its wire form, {"type": ..., "content": ...}.
// Final events are encoded without content.
func Encode(ev Event) ([]byte, error) {
	w := wireEvent{Type: ev.Kind()}
	if ev.Kind() != KindFinal {
		w.Content = ev
	}
	return json.Marshal(w)
}
