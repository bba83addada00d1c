// Package validate implements the per-route payload validator. Each route
// declares a JSON Schema; the schema runs before the handler body, and a
// failure short-circuits with field-level diagnostics so handlers never
// observe invalid input.
package validate

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/piyushkb/WhastapWeb/errors"
)

// Schema is one compiled route schema.
type Schema struct {
	name     string
	compiled *gojsonschema.Schema
}

// MustCompile compiles a schema document and panics on error. Route
// schemas are package-level constants; a compile failure is a programming
// error caught by any test run.
func MustCompile(name, doc string) *Schema {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		panic(fmt.Sprintf("validate: compile schema %s: %v", name, err))
	}
	return &Schema{name: name, compiled: compiled}
}

// Validate checks a raw JSON document against the schema. An empty body is
// validated as an empty object so "required" violations report per field
// rather than as a parse failure.
func (s *Schema) Validate(doc []byte) error {
	if len(doc) == 0 {
		doc = []byte("{}")
	}

	result, err := s.compiled.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return errors.Validation("validate", s.name, "Request body must be valid JSON")
	}
	if result.Valid() {
		return nil
	}

	fields := make([]errors.FieldError, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		field := resultErr.Field()
		if prop, ok := resultErr.Details()["property"].(string); ok && field == "(root)" {
			field = prop
		}
		fields = append(fields, errors.FieldError{
			Field:       field,
			Description: resultErr.Description(),
		})
	}
	return errors.Validation("validate", s.name, "Validation failed", fields...)
}

// sendBase is shared by all four send routes.
const sendBase = `
		"session": {"type": "string", "minLength": 1},
		"to": {"type": "string", "minLength": 1},
		"message": {"type": "string"}`

// Route schemas. Shapes follow the HTTP contract: session start takes a
// session name, the send routes take session/to/message plus per-kind
// attachment fields.
var (
	StartSession = MustCompile("start-session", `{
		"type": "object",
		"properties": {
			"session": {"type": "string", "minLength": 1}
		},
		"required": ["session"]
	}`)

	SendText = MustCompile("send-text", `{
		"type": "object",
		"properties": {
			"session": {"type": "string", "minLength": 1},
			"to": {"type": "string", "minLength": 1},
			"message": {"type": "string", "minLength": 1}
		},
		"required": ["session", "to", "message"]
	}`)

	SendImage = MustCompile("send-image", `{
		"type": "object",
		"properties": {`+sendBase+`,
			"image": {"type": "string", "format": "uri"}
		},
		"required": ["session", "to", "image"]
	}`)

	SendDocument = MustCompile("send-document", `{
		"type": "object",
		"properties": {`+sendBase+`,
			"document": {"type": "string", "format": "uri"},
			"document_name": {"type": "string", "minLength": 1}
		},
		"required": ["session", "to", "document", "document_name"]
	}`)

	SendVideo = MustCompile("send-video", `{
		"type": "object",
		"properties": {`+sendBase+`,
			"video": {"type": "string", "format": "uri"}
		},
		"required": ["session", "to", "video"]
	}`)
)
