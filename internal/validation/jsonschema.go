package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rendis/drawio-mcp/pkg/schema"
)

var printer = message.NewPrinter(language.English)

// ArgValidator checks tool arguments against the JSON Schema of each tool.
// Schemas are compiled once; the validator is safe for concurrent use.
type ArgValidator struct {
	schemas map[string]*jsonschema.Schema
}

// NewArgValidator compiles one schema per tool name.
func NewArgValidator(toolSchemas map[string]json.RawMessage) (*ArgValidator, error) {
	v := &ArgValidator{schemas: make(map[string]*jsonschema.Schema, len(toolSchemas))}

	c := jsonschema.NewCompiler()
	c.AssertFormat()

	for name, raw := range toolSchemas {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("unmarshal schema for %s: %w", name, err)
		}

		url := "drawio://schemas/" + name + ".json"
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add schema resource for %s: %w", name, err)
		}

		compiled, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", name, err)
		}
		v.schemas[name] = compiled
	}
	return v, nil
}

// Validate checks args for tool. The returned error names every violation.
func (v *ArgValidator) Validate(tool string, args map[string]any) error {
	compiled, ok := v.schemas[tool]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "tool %q not found", tool)
	}
	if args == nil {
		args = map[string]any{}
	}

	doc, err := toJSONValue(args)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "arguments are not valid JSON").WithCause(err)
	}

	if err := compiled.Validate(doc); err != nil {
		return toValidationResult(err).ToError()
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON so numbers become
// json.Number, as the jsonschema library expects.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

func toValidationResult(err error) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		result.AddError("/", schema.ErrCodeValidation, err.Error())
		return result
	}

	collectViolations(verr, result)
	if result.Valid() {
		result.AddError("/", schema.ErrCodeValidation, verr.Error())
	}
	return result
}

// collectViolations walks a ValidationError tree and records every leaf with
// its instance location.
func collectViolations(verr *jsonschema.ValidationError, result *schema.ValidationResult) {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		msg := verr.Error()
		if verr.ErrorKind != nil {
			msg = verr.ErrorKind.LocalizedString(printer)
		}
		result.AddError(loc, schema.ErrCodeValidation, msg)
		return
	}

	for _, cause := range verr.Causes {
		collectViolations(cause, result)
	}
}
