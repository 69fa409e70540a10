package cortex

import (
	"fmt"

	"github.com/papercomputeco/cortex/pkg/runevent"
)

// Error types.
const (
	TypeRunnerAPIError   = "runner_api_error"
	TypeAPIError         = "api_error"
	TypeEventStreamError = "eventStream_error"
)

// Error codes.
const (
	CodeStreamedRunError  = "streamed_run_error"
	CodeRunChatCopilot    = "runChatCopilot"
	CodeRunChatCompletion = "runChatCompletion"
	CodeHTTPError         = "http_error"
	CodeDecodeError       = "decode_error"
	CodeRequestError      = "request_error"
)

// Sentinels for errors.Is. They match any *APIError of the same Type.
var (
	ErrStreamedRun = &APIError{Type: TypeRunnerAPIError}
	ErrAPI         = &APIError{Type: TypeAPIError}
	ErrEventStream = &APIError{Type: TypeEventStreamError}
)

// APIError is the error returned by every Client operation.
type APIError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`

	// Status is the HTTP status code, when the failure came from a response.
	Status int `json:"-"`

	// Event is the run event that aborted a chat completion, if any.
	Event runevent.Event `json:"-"`

	// Err is the underlying cause.
	Err error `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s/%s", e.Type, e.Code)
	}
	return fmt.Sprintf("%s/%s: %s", e.Type, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches target when it is an *APIError with the same Type and either
// the same Code or no Code at all.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Code == "" || t.Code == e.Code)
}
