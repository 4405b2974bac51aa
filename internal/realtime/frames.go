package realtime

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/bdu-chat/campus-chat/internal/apperr"
	"github.com/kaptinlin/jsonschema"
)

// Inbound frame types
const (
	FrameJoinFaculty        = "join-faculty"
	FrameJoinPrivate        = "join-private"
	FrameSendMessage        = "send-message"
	FrameSendPrivateMessage = "send-private-message"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Frame is one inbound client frame
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type joinFacultyData struct {
	Faculty string `json:"faculty"`
}

type sendMessageData struct {
	Faculty string `json:"faculty"`
	Message string `json:"message"`
}

type sendPrivateMessageData struct {
	ReceiverID uint   `json:"receiver_id"`
	Message    string `json:"message"`
}

// Validator checks inbound frames against the embedded JSON Schemas
type Validator struct {
	frame *jsonschema.Schema
	data  map[string]*jsonschema.Schema
}

// NewValidator compiles the embedded schemas.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	frame, err := compileFile(compiler, "frame.json")
	if err != nil {
		return nil, err
	}

	v := &Validator{frame: frame, data: make(map[string]*jsonschema.Schema)}
	for _, t := range []string{FrameJoinFaculty, FrameJoinPrivate, FrameSendMessage, FrameSendPrivateMessage} {
		schema, err := compileFile(compiler, t+".json")
		if err != nil {
			return nil, err
		}
		v.data[t] = schema
	}
	return v, nil
}

func compileFile(compiler *jsonschema.Compiler, name string) (*jsonschema.Schema, error) {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", name, err)
	}
	schema, err := compiler.Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}
	return schema, nil
}

// Parse decodes and validates a raw frame. Invalid frames yield a
// VALIDATION error describing every violation.
func (v *Validator) Parse(raw []byte) (Frame, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Frame{}, apperr.Validation("frame is not valid JSON")
	}
	if err := check(v.frame, doc, "frame"); err != nil {
		return Frame{}, err
	}

	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, apperr.Validation("frame is malformed")
	}
	if len(f.Data) == 0 || string(f.Data) == "null" {
		f.Data = json.RawMessage(`{}`)
	}

	var data any
	if err := json.Unmarshal(f.Data, &data); err != nil {
		return Frame{}, apperr.Validation("frame data is malformed")
	}
	if err := check(v.data[f.Type], data, f.Type); err != nil {
		return Frame{}, err
	}
	return f, nil
}

func check(schema *jsonschema.Schema, doc any, what string) error {
	result := schema.Validate(doc)
	if result.IsValid() {
		return nil
	}

	// Collect all validation errors
	var messages []string
	for field, evalErr := range result.Errors {
		messages = append(messages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
	}
	sort.Strings(messages)
	return apperr.Validation("invalid %s: %s", what, strings.Join(messages, "; "))
}
