package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"kairos/internal/application/port/output"
	"kairos/internal/domain/entity"
)

var _ output.ToolPort = (*Tool)(nil)

// paramTypes maps advertised parameter types onto the types the validator
// enforces. Anything missing from the table is treated as a string.
var paramTypes = map[entity.ParamType]entity.ParamType{
	entity.ParamString:  entity.ParamString,
	entity.ParamNumber:  entity.ParamNumber,
	entity.ParamInteger: entity.ParamInteger,
	entity.ParamBoolean: entity.ParamBoolean,
	entity.ParamArray:   entity.ParamArray,
	entity.ParamObject:  entity.ParamObject,
}

func mapParamType(t entity.ParamType) entity.ParamType {
	if mapped, ok := paramTypes[entity.ParamType(strings.ToLower(strings.TrimSpace(string(t))))]; ok {
		return mapped
	}
	return entity.ParamString
}

// Tool is a provider tool bound to one session slot. Its validator is
// compiled once, when the catalog is built.
type Tool struct {
	descriptor entity.ToolDescriptor
	parameters map[string]interface{}
	validator  *jsonschema.Schema
	provider   output.ToolProvider
	slot       int
	normalizer *Normalizer
	maxChars   int
}

func NewTool(desc entity.ToolDescriptor, provider output.ToolProvider, slot int, normalizer *Normalizer, maxChars int) (*Tool, error) {
	if strings.TrimSpace(desc.Name) == "" {
		return nil, errors.New("tool descriptor without a name")
	}

	params := parametersSchema(desc.Parameters)
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode schema for %s: %w", desc.Name, err)
	}
	validator, err := jsonschema.CompileString(url.PathEscape(desc.Name)+".schema.json", string(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", desc.Name, err)
	}

	return &Tool{
		descriptor: desc,
		parameters: params,
		validator:  validator,
		provider:   provider,
		slot:       slot,
		normalizer: normalizer,
		maxChars:   maxChars,
	}, nil
}

func (t *Tool) Name() entity.ToolName { return entity.ToolName(t.descriptor.Name) }

func (t *Tool) Description() string {
	if doc := strings.TrimSpace(t.descriptor.Documentation); doc != "" {
		return doc
	}
	return "Browser automation tool " + t.descriptor.Name + "."
}

func (t *Tool) Parameters() map[string]interface{} { return t.parameters }

// Validate drops undeclared fields and checks the rest against the schema.
func (t *Tool) Validate(args map[string]any) (map[string]any, error) {
	filtered := make(map[string]any, len(args))
	for name, value := range args {
		if _, declared := t.descriptor.Parameters[name]; declared {
			filtered[name] = value
		}
	}

	if err := t.validator.Validate(map[string]any(filtered)); err != nil {
		return nil, &entity.ValidationError{Tool: t.descriptor.Name, Issues: validationIssues(err)}
	}
	return filtered, nil
}

// Invoke validates args, calls the provider and renders the result.
func (t *Tool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	valid, err := t.Validate(args)
	if err != nil {
		return "", err
	}

	res, err := t.provider.Invoke(ctx, t.descriptor.Name, valid)
	if err != nil {
		return "", &entity.ToolInvocationError{Tool: t.descriptor.Name, Slot: t.slot, Message: err.Error()}
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "provider reported failure without a message"
		}
		return "", &entity.ToolInvocationError{Tool: t.descriptor.Name, Slot: t.slot, Message: msg}
	}

	return t.normalizer.Render(res.Content, t.maxChars), nil
}

// Execute takes the raw JSON arguments produced by the model.
func (t *Tool) Execute(ctx context.Context, arguments string) (string, error) {
	args := map[string]any{}
	if strings.TrimSpace(arguments) != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", &entity.ValidationError{
				Tool:   t.descriptor.Name,
				Issues: []string{"arguments are not a JSON object: " + err.Error()},
			}
		}
	}
	return t.Invoke(ctx, args)
}

// BuildCatalog converts a provider's descriptors into a registry of tools
// bound to the given slot.
func BuildCatalog(descs []entity.ToolDescriptor, provider output.ToolProvider, slot int, normalizer *Normalizer, maxChars int) (*ToolRegistryImpl, error) {
	registry := NewToolRegistry()
	for _, desc := range descs {
		tool, err := NewTool(desc, provider, slot, normalizer, maxChars)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func parametersSchema(params map[string]entity.ParamSchema) map[string]interface{} {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	properties := make(map[string]interface{}, len(params))
	required := []string{}
	for _, name := range names {
		p := params[name]
		typ := mapParamType(p.Type)
		prop := map[string]interface{}{"type": string(typ)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if typ == entity.ParamArray {
			prop["items"] = map[string]interface{}{}
		}
		properties[name] = prop
		if p.Required {
			required = append(required, name)
		}
	}

	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func validationIssues(err error) []string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}

	var issues []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			issues = append(issues, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return issues
}
