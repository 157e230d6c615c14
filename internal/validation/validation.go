// Package validation defines the expected shape of request payloads
// and checks raw bodies against them. It performs no I/O; failures
// are reported as apierr validation errors carrying per-field
// violations.
package validation

import (
	"encoding/json"
	"fmt"

	"github.com/mrshanahan/notes-service/internal/apierr"
	"github.com/mrshanahan/notes-service/pkg/notes"
)

type FieldSchema struct {
	Name       string
	Type       string
	IsOptional bool
}

type Schema struct {
	Name   string
	Fields []*FieldSchema
}

// NoteSchema describes the body accepted by both create and update:
// a single required, non-empty "name" string.
var NoteSchema = &Schema{
	Name: "note",
	Fields: []*FieldSchema{
		{Name: "name", Type: "string"},
	},
}

// Validate checks raw against schema and returns the validated
// payload narrowed to the schema's fields. Unknown fields are
// dropped, not rejected.
func Validate(schema *Schema, raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, apierr.NewValidation("missing request body")
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, apierr.NewValidation("request body is not valid JSON")
	}

	var violations []notes.FieldViolation
	validated := map[string]any{}
	for _, field := range schema.Fields {
		value, ok := payload[field.Name]
		if !ok || value == nil {
			if !field.IsOptional {
				violations = append(violations, requiredViolation(field))
			}
			continue
		}

		switch field.Type {
		case "string":
			s, ok := value.(string)
			if !ok {
				violations = append(violations, notes.FieldViolation{
					Field:   field.Name,
					Message: fmt.Sprintf("%s must be a string", field.Name),
				})
				continue
			}
			if s == "" {
				violations = append(violations, requiredViolation(field))
				continue
			}
			validated[field.Name] = s
		default:
			validated[field.Name] = value
		}
	}

	if len(violations) > 0 {
		return nil, apierr.NewValidation("Request validation failed", violations...)
	}
	return validated, nil
}

func requiredViolation(field *FieldSchema) notes.FieldViolation {
	return notes.FieldViolation{
		Field:   field.Name,
		Message: fmt.Sprintf("%s is required", capitalize(field.Name)),
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}

// NoteRequest is the validated create/update payload.
type NoteRequest struct {
	Name string
}

// ParseNoteRequest validates raw against NoteSchema and narrows it to
// the typed request.
func ParseNoteRequest(raw []byte) (*NoteRequest, error) {
	data, err := Validate(NoteSchema, raw)
	if err != nil {
		return nil, err
	}
	return &NoteRequest{Name: data["name"].(string)}, nil
}
