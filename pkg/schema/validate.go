package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Version is the wire version of the embedded schemas.
const Version = "v1"

const (
	PlanSchema     = "plan.json"
	DecisionSchema = "decision.json"
)

//go:embed v1/*.json
var files embed.FS

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

func compile() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		out := make(map[string]*jsonschema.Schema)
		for _, name := range []string{PlanSchema, DecisionSchema} {
			data, err := files.ReadFile(Version + "/" + name)
			if err != nil {
				compileErr = fmt.Errorf("read schema %s: %w", name, err)
				return
			}
			if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
				compileErr = fmt.Errorf("add schema resource %s: %w", name, err)
				return
			}
		}
		for _, name := range []string{PlanSchema, DecisionSchema} {
			s, err := compiler.Compile(name)
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			out[name] = s
		}
		compiled = out
	})
	return compiled, compileErr
}

// Raw returns the schema document for name, for embedding in prompts or docs.
func Raw(name string) ([]byte, error) {
	return files.ReadFile(Version + "/" + name)
}

// Validate checks data against the named schema.
func Validate(name string, data []byte) error {
	schemas, err := compile()
	if err != nil {
		return err
	}
	s, ok := schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return &ValidationError{Payload: name, Version: Version, Reason: "not valid JSON", Cause: err}
	}
	if err := s.Validate(doc); err != nil {
		return &ValidationError{Payload: name, Version: Version, Reason: "does not match schema", Cause: err}
	}
	return nil
}

// ValidatePlan checks a plan payload.
func ValidatePlan(data []byte) error {
	return Validate(PlanSchema, data)
}

// ValidateDecision checks a decision payload.
func ValidateDecision(data []byte) error {
	return Validate(DecisionSchema, data)
}
