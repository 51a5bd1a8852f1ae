package wsproto

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// The four schema documents below are a direct Go transcription of
// wotpy/protocols/ws/schemas.py's SCHEMA_REQUEST/SCHEMA_RESPONSE/
// SCHEMA_ERROR/SCHEMA_EMITTED_ITEM, compiled once at package init with
// santhosh-tekuri/jsonschema/v5 rather than the Python jsonschema
// package the original validates against.
const (
	schemaRequestJSON = `{
		"type": "object",
		"required": ["jsonrpc", "method"],
		"properties": {
			"jsonrpc": {"const": "2.0"},
			"method": {"type": "string", "minLength": 1},
			"params": {},
			"id": {"type": ["string", "number", "null"]}
		}
	}`

	schemaResponseJSON = `{
		"type": "object",
		"required": ["jsonrpc", "result"],
		"properties": {
			"jsonrpc": {"const": "2.0"},
			"result": {},
			"id": {"type": ["string", "number", "null"]}
		}
	}`

	schemaErrorJSON = `{
		"type": "object",
		"required": ["jsonrpc", "error"],
		"properties": {
			"jsonrpc": {"const": "2.0"},
			"error": {
				"type": "object",
				"required": ["code", "message"],
				"properties": {
					"code": {"type": "integer"},
					"message": {"type": "string"},
					"data": {}
				}
			},
			"id": {"type": ["string", "number", "null"]}
		}
	}`

	schemaEmittedItemJSON = `{
		"type": "object",
		"required": ["subscription", "name"],
		"properties": {
			"subscription": {"type": "string", "minLength": 1},
			"name": {"type": "string", "minLength": 1},
			"data": {},
			"lost": {"type": "boolean"}
		}
	}`
)

var (
	requestSchema     = mustCompile("request.json", schemaRequestJSON)
	responseSchema    = mustCompile("response.json", schemaResponseJSON)
	errorSchema       = mustCompile("error.json", schemaErrorJSON)
	emittedItemSchema = mustCompile("emitted_item.json", schemaEmittedItemJSON)
)

func mustCompile(name, doc string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(doc)); err != nil {
		panic(fmt.Sprintf("wsproto: invalid embedded schema %s: %s", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("wsproto: failed to compile embedded schema %s: %s", name, err))
	}
	return schema
}

func validateAgainst(schema *jsonschema.Schema, v interface{}) error {
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	return nil
}
