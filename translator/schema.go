package translator

import (
	"github.com/xeipuuv/gojsonschema"
)

// requestSchemaJSON describes the JSON body accepted by FromJSON.
const requestSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "from":       {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
    "to":         {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
    "time_start": {"type": "string", "pattern": "^\\d{2}:\\d{2}(:\\d{2})?$"},
    "time_end":   {"type": "string", "pattern": "^\\d{2}:\\d{2}(:\\d{2})?$"},
    "status":     {"type": "array", "items": {"type": "string", "minLength": 1}},
    "error":      {"type": "array", "items": {"type": "string"}},
    "param":      {"type": "array", "items": {"type": "string", "minLength": 1}},
    "window":     {"type": "integer", "minimum": 0, "maximum": 1000},
    "day":        {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
    "day_start":  {"type": "string", "pattern": "^\\d{2}:\\d{2}(:\\d{2})?$"},
    "day_end":    {"type": "string", "pattern": "^\\d{2}:\\d{2}(:\\d{2})?$"},
    "corr":       {"type": "array", "items": {"type": "string", "minLength": 1}}
  }
}`

var requestSchema = mustCompileSchema(requestSchemaJSON)

func mustCompileSchema(s string) *gojsonschema.Schema {
	sch, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic("translator: invalid request schema: " + err.Error())
	}
	return sch
}

// RequestSchema returns the JSON schema for request bodies.
func RequestSchema() string { return requestSchemaJSON }
