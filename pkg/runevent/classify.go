package runevent

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tidwall/gjson"
)

// DropReason explains why a payload produced no event.
type DropReason string

const (
	DropEmpty       DropReason = "empty"
	DropNotJSON     DropReason = "not_json"
	DropUnknownType DropReason = "unknown_type"
	DropInvalid     DropReason = "invalid_content"
)

// Result is the outcome of classifying one SSE data payload.
type Result struct {
	// Event is the decoded event, or nil when the payload was dropped.
	Event Event

	// RunID is the payload's content.run_id when present and truthy,
	// regardless of whether an event was produced.
	RunID string

	// Dropped is set when Event is nil.
	Dropped DropReason

	// Err holds the decode or validation failure behind DropInvalid.
	Err error
}

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[Kind]*jsonschema.Schema
)

// contentSchemas compiles the embedded per-kind content schemas once.
// The schemas ship with the binary, so a compile failure is a programming
// error and panics.
func contentSchemas() map[Kind]*jsonschema.Schema {
	schemasOnce.Do(func() {
		kinds := []Kind{KindRunStatus, KindBlockStatus, KindBlockExecution, KindTokens}
		c := jsonschema.NewCompiler()
		for _, k := range kinds {
			name := string(k) + ".json"
			raw, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				panic(fmt.Sprintf("runevent: reading schema %s: %v", name, err))
			}
			doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
			if err != nil {
				panic(fmt.Sprintf("runevent: parsing schema %s: %v", name, err))
			}
			if err := c.AddResource(name, doc); err != nil {
				panic(fmt.Sprintf("runevent: adding schema %s: %v", name, err))
			}
		}

		schemas = make(map[Kind]*jsonschema.Schema, len(kinds))
		for _, k := range kinds {
			schemas[k] = c.MustCompile(string(k) + ".json")
		}
	})
	return schemas
}

// Classify turns one SSE data payload into an Event. It never fails: payloads
// that cannot be turned into an event are reported through Result.Dropped.
func Classify(data string) Result {
	if data == "" {
		return Result{Dropped: DropEmpty}
	}
	if !gjson.Valid(data) {
		return Result{Dropped: DropNotJSON}
	}

	res := Result{RunID: truthyString(gjson.Get(data, "content.run_id"))}

	typ := gjson.Get(data, "type")
	if typ.Type != gjson.String {
		res.Dropped = DropUnknownType
		return res
	}

	kind := Kind(typ.Str)
	switch kind {
	case KindFinal:
		res.Event = &Final{}
		return res
	case KindError:
		// Error reports are never dropped, whatever their shape.
		res.Event = &Error{
			Code:    gjson.Get(data, "content.code").String(),
			Message: gjson.Get(data, "content.message").String(),
		}
		return res
	}

	var ev Event
	switch kind {
	case KindRunStatus:
		ev = &RunStatus{}
	case KindBlockStatus:
		ev = &BlockStatus{}
	case KindBlockExecution:
		ev = &BlockExecution{}
	case KindTokens:
		ev = &Tokens{}
	default:
		res.Dropped = DropUnknownType
		return res
	}

	content := gjson.Get(data, "content")
	if err := validateContent(kind, content.Raw); err != nil {
		res.Dropped = DropInvalid
		res.Err = err
		return res
	}

	if err := json.Unmarshal([]byte(content.Raw), ev); err != nil {
		res.Dropped = DropInvalid
		res.Err = fmt.Errorf("decoding %s content: %w", kind, err)
		return res
	}

	res.Event = ev
	return res
}

// validateContent checks a raw content object against the schema for kind.
func validateContent(kind Kind, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s event has no content", kind)
	}

	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parsing %s content: %w", kind, err)
	}

	if err := contentSchemas()[kind].Validate(inst); err != nil {
		return fmt.Errorf("validating %s content: %w", kind, err)
	}

	return nil
}

// truthyString mirrors a loose truthiness check: missing, null, false, zero
// and empty values yield "".
func truthyString(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		if r.Num == 0 {
			return ""
		}
		return r.Raw
	case gjson.True:
		return r.Raw
	case gjson.JSON:
		return r.Raw
	default:
		return ""
	}
}
