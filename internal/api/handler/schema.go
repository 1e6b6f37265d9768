package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const maxJSONBody = 1 << 20

const loginSchemaJSON = `{
  "type": "object",
  "properties": {
    "email":    {"type": "string", "maxLength": 320},
    "password": {"type": "string", "maxLength": 1024}
  }
}`

const createJobSchemaJSON = `{
  "type": "object",
  "required": ["preset_id", "files"],
  "properties": {
    "preset_id": {"type": "string", "minLength": 1},
    "files": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "size"],
        "properties": {
          "name": {"type": "string", "minLength": 1, "maxLength": 255},
          "size": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

const decisionSchemaJSON = `{
  "type": "object",
  "required": ["status"],
  "properties": {
    "status": {"type": "string", "enum": ["accept", "reject"]}
  }
}`

const feedbackSchemaJSON = `{
  "type": "object",
  "required": ["reason"],
  "properties": {
    "reason": {"type": "string", "minLength": 1},
    "notes":  {"type": "string", "maxLength": 2000}
  }
}`

var (
	loginSchema     = mustCompile("login.json", loginSchemaJSON)
	createJobSchema = mustCompile("create_job.json", createJobSchemaJSON)
	decisionSchema  = mustCompile("decision.json", decisionSchemaJSON)
	feedbackSchema  = mustCompile("feedback.json", feedbackSchemaJSON)
)

func mustCompile(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

// errInvalidBody carries the per-field problems found by schema validation.
type errInvalidBody struct {
	message string
	details map[string][]string
}

func (e *errInvalidBody) Error() string { return e.message }

// decodeJSON reads the request body, validates it against schema and decodes
// it into dst. An empty body is treated as an empty object.
func decodeJSON(r *http.Request, schema *jsonschema.Schema, dst any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	if err != nil {
		return &errInvalidBody{message: "Could not read request body"}
	}
	if len(raw) > maxJSONBody {
		return &errInvalidBody{message: "Request body too large"}
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		raw = []byte("{}")
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &errInvalidBody{message: "Invalid JSON body"}
	}
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &errInvalidBody{message: "Request body failed validation", details: validationDetails(ve)}
		}
		return &errInvalidBody{message: "Request body failed validation"}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &errInvalidBody{message: "Invalid JSON body"}
	}
	return nil
}

// validationDetails flattens the leaf causes into instance path -> messages.
func validationDetails(ve *jsonschema.ValidationError) map[string][]string {
	out := map[string][]string{}
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			field := strings.TrimPrefix(e.InstanceLocation, "/")
			if field == "" {
				field = "body"
			}
			out[field] = append(out[field], e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}
