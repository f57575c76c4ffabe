package mcp

import (
	"encoding/json"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// inputSchema converts the tool input schema, which arrives as an untyped
// value, into a jsonschema.Schema.
func inputSchema(t *mcp.Tool) (*jsonschema.Schema, error) {
	if t.InputSchema == nil {
		return nil, goerr.New("tool has no input schema", goerr.V("tool", t.Name))
	}

	schemaJSON, err := json.Marshal(t.InputSchema)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal input schema", goerr.V("tool", t.Name))
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(schemaJSON, &schema); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal input schema", goerr.V("tool", t.Name))
	}
	return &schema, nil
}

// requireStringArgument checks that the tool accepts a string argument
// named arg. Only the argument itself may be required: the store passes
// nothing else.
func requireStringArgument(t *mcp.Tool, arg string, optional ...string) error {
	schema, err := inputSchema(t)
	if err != nil {
		return err
	}

	prop, ok := schema.Properties[arg]
	if !ok {
		return goerr.New("tool does not accept argument",
			goerr.V("tool", t.Name),
			goerr.V("argument", arg))
	}
	if prop.Type != "" && prop.Type != "string" {
		return goerr.New("tool argument is not a string",
			goerr.V("tool", t.Name),
			goerr.V("argument", arg),
			goerr.V("type", prop.Type))
	}

	for _, req := range schema.Required {
		if req != arg && !slices.Contains(optional, req) {
			return goerr.New("tool requires an argument the store cannot provide",
				goerr.V("tool", t.Name),
				goerr.V("argument", req))
		}
	}
	return nil
}
