package events

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// envelopeSchema is the JSON schema for a raw event envelope. Strict
// ingestion validates every envelope against it before decoding.
const envelopeSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Commit event envelope",
  "type": "object",
  "required": ["type", "data"],
  "properties": {
    "type": {"type": "string", "minLength": 1},
    "data": {
      "type": "object",
      "properties": {
        "Author": {"type": "string"},
        "message": {"type": "string"},
        "files": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["path"],
            "properties": {
              "path": {"type": "string"},
              "added": {"type": ["integer", "string"]},
              "removed": {"type": ["integer", "string"]}
            }
          }
        }
      }
    }
  }
}`

// ErrSchemaViolation indicates an envelope failed strict schema validation.
var ErrSchemaViolation = errors.New("events: envelope violates schema")

// Validator checks raw envelopes against the embedded envelope schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles the embedded envelope schema.
func NewValidator() (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(envelopeSchema))
	if err != nil {
		return nil, fmt.Errorf("compile envelope schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// Validate checks one raw envelope document. The returned error lists
// every violated schema constraint.
func (v *Validator) Validate(raw []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validate envelope: %w", err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		details = append(details, verr.String())
	}

	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(details, "; "))
}
