package functions

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Declaration describes a function to the agent.
type Declaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

var emptyParameters = json.RawMessage(`{"type":"object","properties":{}}`)

// Registry maps function names to implementations. It is immutable after
// construction and safe to share between sessions.
type Registry struct {
	fns     map[string]Function
	order   []string
	schemas map[string]*gojsonschema.Schema
}

// NewRegistry compiles the parameter schema of every function.
func NewRegistry(fns ...Function) (*Registry, error) {
	r := &Registry{
		fns:     make(map[string]Function, len(fns)),
		schemas: make(map[string]*gojsonschema.Schema, len(fns)),
	}
	for _, fn := range fns {
		name := fn.Name()
		if _, exists := r.fns[name]; exists {
			return nil, fmt.Errorf("duplicate function %q", name)
		}
		if params := fn.Parameters(); len(params) > 0 {
			schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(params))
			if err != nil {
				return nil, fmt.Errorf("invalid parameter schema for %s: %w", name, err)
			}
			r.schemas[name] = schema
		}
		r.fns[name] = fn
		r.order = append(r.order, name)
	}
	return r, nil
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (Function, bool) {
	fn, ok := r.fns[name]
	return fn, ok
}

// Names lists registered functions in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Validate checks raw JSON arguments against the function's schema.
func (r *Registry) Validate(name string, args []byte) error {
	schema, ok := r.schemas[name]
	if !ok {
		return nil
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return &CallError{Kind: ErrInvalidArguments, Name: name, Err: err}
	}
	if !result.Valid() {
		details := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			details[i] = desc.String()
		}
		return &CallError{
			Kind: ErrInvalidArguments,
			Name: name,
			Err:  fmt.Errorf("%s", strings.Join(details, "; ")),
		}
	}
	return nil
}

// Declarations returns every function in registration order.
func (r *Registry) Declarations() []Declaration {
	decls := make([]Declaration, 0, len(r.order))
	for _, name := range r.order {
		fn := r.fns[name]
		params := fn.Parameters()
		if len(params) == 0 {
			params = emptyParameters
		}
		decls = append(decls, Declaration{
			Name:        name,
			Description: fn.Description(),
			Parameters:  params,
		})
	}
	return decls
}
