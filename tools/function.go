package tools

import (
	"context"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Handler implements a tool function.
type Handler func(ctx context.Context, args Args) (*Result, error)

// Spec is one entry of a tool set's registration table.
type Spec struct {
	Name        string
	Description string
	Parameters  *Schema
	Handler     Handler
}

// Function is a tool descriptor: a declared schema bound to its handler.
type Function struct {
	spec      Spec
	validator *jsonschema.Schema
}

// NewFunction checks the declaration of spec and compiles its parameter
// schema. An incomplete declaration fails with errors.ErrInvalidSchema.
func NewFunction(spec Spec) (*Function, error) {
	return newFunction(spec, true)
}

func newFunction(spec Spec, strict bool) (*Function, error) {
	if spec.Parameters == nil {
		spec.Parameters = Object(nil)
	}
	if strict {
		if err := checkDeclaration(spec.Name, spec.Description, spec.Parameters); err != nil {
			return nil, err
		}
	}
	compiled, err := compileSchema(spec.Name, spec.Parameters)
	if err != nil {
		return nil, err
	}
	return &Function{spec: spec, validator: compiled}, nil
}

func (f *Function) Name() string        { return f.spec.Name }
func (f *Function) Description() string { return f.spec.Description }
func (f *Function) Parameters() *Schema { return f.spec.Parameters }

// Validate checks a decoded JSON instance against the parameter schema.
func (f *Function) Validate(instance any) error {
	return f.validator.Validate(instance)
}

func (f *Function) Execute(ctx context.Context, args Args) (*Result, error) {
	return f.spec.Handler(ctx, args)
}
