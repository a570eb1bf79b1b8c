// Package validation checks API request bodies against JSON schemas before
// any business rule runs.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	stderrors "jobtrack/internal/common/errors"
)

// Schema names accepted by Check.
const (
	StatusChangeRequest  = "status-change"
	VacancyRequest       = "vacancy"
	VacancyStatusRequest = "vacancy-status"
	EmployeeRequest      = "employee"
)

var schemaSources = map[string]string{
	StatusChangeRequest: `{
		"type": "object",
		"required": ["status"],
		"additionalProperties": false,
		"properties": {
			"status": {
				"type": "string",
				"enum": ["applied", "reviewed", "interview", "hired", "rejected"]
			}
		}
	}`,
	VacancyRequest: `{
		"type": "object",
		"required": ["title", "type"],
		"additionalProperties": false,
		"properties": {
			"title":       {"type": "string", "minLength": 1, "maxLength": 200},
			"description": {"type": "string", "maxLength": 5000},
			"location":    {"type": "string", "maxLength": 200},
			"type": {
				"type": "string",
				"enum": ["full-time", "part-time", "contract", "internship"]
			}
		}
	}`,
	VacancyStatusRequest: `{
		"type": "object",
		"required": ["status"],
		"additionalProperties": false,
		"properties": {
			"status": {"type": "string", "enum": ["open", "closed"]}
		}
	}`,
	EmployeeRequest: `{
		"type": "object",
		"required": ["name", "email"],
		"additionalProperties": false,
		"properties": {
			"name":  {"type": "string", "minLength": 1, "maxLength": 200},
			"email": {"type": "string", "format": "email", "maxLength": 320}
		}
	}`,
}

var schemas = map[string]*gojsonschema.Schema{}

func init() {
	for name, src := range schemaSources {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			panic(fmt.Sprintf("invalid schema %q: %v", name, err))
		}
		schemas[name] = schema
	}
}

// Check validates a raw JSON body against the named schema.
func Check(name string, document []byte) error {
	schema, ok := schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return stderrors.NewValidationFailedError("request body is not valid JSON")
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return stderrors.NewValidationFailedError(strings.Join(errs, "; "))
	}
	return nil
}
