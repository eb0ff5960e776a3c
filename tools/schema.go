package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/interfaces-to/interfaces-to/errors"
)

// Schema is the JSON Schema subset used to declare tool parameters.
//
// A schema read with ParseSchema also keeps its source document, which Map
// and validation use as is, so keywords outside the subset (anyOf, format,
// additionalProperties, ...) survive.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []interface{}      `json:"enum,omitempty"`

	raw json.RawMessage
}

// Object declares an object schema with the given properties.
func Object(properties map[string]*Schema, required ...string) *Schema {
	if properties == nil {
		properties = map[string]*Schema{}
	}
	return &Schema{Type: "object", Properties: properties, Required: required}
}

func String(description string) *Schema {
	return &Schema{Type: "string", Description: description}
}

func Integer(description string) *Schema {
	return &Schema{Type: "integer", Description: description}
}

func Array(description string, items *Schema) *Schema {
	return &Schema{Type: "array", Description: description, Items: items}
}

// Map returns the schema as generic JSON, the form provider SDKs accept.
func (s *Schema) Map() map[string]interface{} {
	out := map[string]interface{}{}
	if s == nil {
		return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
	}
	data := []byte(s.raw)
	if len(data) == 0 {
		var err error
		if data, err = json.Marshal(s); err != nil {
			return out
		}
	}
	_ = json.Unmarshal(data, &out)
	if _, ok := out["type"]; !ok && s.Type != "" {
		out["type"] = s.Type
	}
	if out["type"] == "object" {
		if _, ok := out["properties"]; !ok {
			out["properties"] = map[string]interface{}{}
		}
	}
	return out
}

// PropertyNames returns the property names in a stable order.
func (s *Schema) PropertyNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseSchema decodes a JSON schema document, keeping the document itself
// for Map and validation.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(err, "failed to parse schema")
	}
	s.raw = append(json.RawMessage(nil), data...)
	return &s, nil
}

// checkDeclaration enforces the tool declaration contract: a description,
// an object parameter schema, and a type plus a description for every
// parameter.
func checkDeclaration(name, description string, params *Schema) error {
	var problems []string
	if name == "" {
		problems = append(problems, "empty name")
	}
	if strings.TrimSpace(description) == "" {
		problems = append(problems, "empty description")
	}
	if params == nil || params.Type != "object" {
		problems = append(problems, "parameters must be an object schema")
	} else {
		for _, pname := range params.PropertyNames() {
			p := params.Properties[pname]
			if p == nil || p.Type == "" {
				problems = append(problems, fmt.Sprintf("parameter %q has no type", pname))
			}
			if p == nil || strings.TrimSpace(p.Description) == "" {
				problems = append(problems, fmt.Sprintf("parameter %q has no description", pname))
			}
		}
		for _, req := range params.Required {
			if _, ok := params.Properties[req]; !ok {
				problems = append(problems, fmt.Sprintf("required parameter %q is not declared", req))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s: %s", errors.ErrInvalidSchema, name, strings.Join(problems, "; "))
	}
	return nil
}

// compileSchema compiles params for argument validation.
func compileSchema(name string, params *Schema) (*jsonschema.Schema, error) {
	data, err := json.Marshal(params.Map())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidSchema, name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidSchema, name, err)
	}

	c := jsonschema.NewCompiler()
	url := name + ".json"
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: add schema resource: %v", errors.ErrInvalidSchema, name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: compile schema: %v", errors.ErrInvalidSchema, name, err)
	}
	return compiled, nil
}

func unmarshalInstance(arguments string) (any, error) {
	return jsonschema.UnmarshalJSON(strings.NewReader(arguments))
}
