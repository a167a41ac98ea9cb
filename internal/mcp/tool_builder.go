package mcp

// Parameter types accepted by AddParam. TypeAny produces an unconstrained
// schema for parameters that take any JSON value.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeAny     = "any"
)

// ToolBuilder provides a fluent API for declaring a tool and its JSON
// Schema.
type ToolBuilder struct {
	name         string
	description  string
	params       []paramDef
	outputParams []paramDef
}

type paramDef struct {
	name        string
	paramType   string
	description string
	required    bool
}

func NewTool(name, description string) *ToolBuilder {
	return &ToolBuilder{
		name:        name,
		description: description,
	}
}

func (t *ToolBuilder) AddParam(name, paramType, description string, required bool) *ToolBuilder {
	t.params = append(t.params, paramDef{
		name:        name,
		paramType:   paramType,
		description: description,
		required:    required,
	})
	return t
}

func (t *ToolBuilder) AddOutputParam(name, paramType, description string, required bool) *ToolBuilder {
	t.outputParams = append(t.outputParams, paramDef{
		name:        name,
		paramType:   paramType,
		description: description,
		required:    required,
	})
	return t
}

// Name returns the tool's name.
func (t *ToolBuilder) Name() string {
	return t.name
}

func (t *ToolBuilder) buildSchema() map[string]interface{} {
	return buildSchemaFromParams(t.params)
}

func (t *ToolBuilder) buildOutputSchema() map[string]interface{} {
	if len(t.outputParams) == 0 {
		return nil
	}
	return buildSchemaFromParams(t.outputParams)
}

func buildSchemaFromParams(params []paramDef) map[string]interface{} {
	properties := make(map[string]interface{})
	var required []string

	for _, param := range params {
		prop := map[string]interface{}{}
		if param.paramType != TypeAny {
			prop["type"] = param.paramType
		}
		if param.description != "" {
			prop["description"] = param.description
		}
		properties[param.name] = prop
		if param.required {
			required = append(required, param.name)
		}
	}

	schema := map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
