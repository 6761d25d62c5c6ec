package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/llm"
	"github.com/yungbote/fitcoach-backend/internal/platform/validate"
)

const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
)

// Param describes one tool argument. Items is the element type of an array;
// Properties describes object fields, or the fields of array elements when
// Items is TypeObject.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Enum        []string
	Min         *float64
	Max         *float64
	Items       string
	Properties  []Param
}

// ToolEnv is what a tool sees of the turn that invoked it.
type ToolEnv struct {
	User  UserContext
	Query string
	Voice bool
}

type ToolFunc func(ctx context.Context, env ToolEnv, args map[string]any) ToolResult

type Tool struct {
	Name        string
	Description string
	Params      []Param
	Run         ToolFunc
}

// Def renders the tool as a JSON-schema tool definition.
func (t Tool) Def() llm.ToolDef {
	return llm.ToolDef{Name: t.Name, Description: t.Description, Parameters: objectSchema(t.Params)}
}

func objectSchema(params []Param) map[string]any {
	props := map[string]any{}
	required := []string{}
	for _, p := range params {
		props[p.Name] = paramSchema(p)
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":                 TypeObject,
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func paramSchema(p Param) map[string]any {
	s := map[string]any{"type": p.Type}
	if p.Description != "" {
		s["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		s["enum"] = p.Enum
	}
	if p.Min != nil {
		s["minimum"] = *p.Min
	}
	if p.Max != nil {
		s["maximum"] = *p.Max
	}
	switch p.Type {
	case TypeArray:
		if p.Items == TypeObject {
			s["items"] = objectSchema(p.Properties)
		} else {
			s["items"] = map[string]any{"type": p.Items}
		}
	case TypeObject:
		if len(p.Properties) > 0 {
			for k, v := range objectSchema(p.Properties) {
				s[k] = v
			}
		}
	}
	return s
}

func num(v float64) *float64 { return &v }

// ValidateArgs checks args against params and returns a normalized copy:
// unknown keys are dropped and whole-number floats become ints for integer
// params. Failures are validation errors naming the offending field.
func ValidateArgs(params []Param, args map[string]any) (map[string]any, error) {
	return validateObject(params, args, "")
}

func validateObject(params []Param, args map[string]any, prefix string) (map[string]any, error) {
	out := make(map[string]any, len(params))
	for _, p := range params {
		path := p.Name
		if prefix != "" {
			path = prefix + "." + p.Name
		}
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.Required {
				return nil, apierr.Validation(path, "%s is required", path)
			}
			continue
		}
		nv, err := validateValue(p, v, path)
		if err != nil {
			return nil, err
		}
		out[p.Name] = nv
	}
	return out, nil
}

func validateValue(p Param, v any, path string) (any, error) {
	switch p.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, apierr.Validation(path, "%s must be a string", path)
		}
		s = strings.TrimSpace(s)
		if len(p.Enum) > 0 {
			s = strings.ToLower(s)
		}
		if err := validate.Var(path, s, constraintTag(p)); err != nil {
			return nil, err
		}
		return s, nil
	case TypeInteger, TypeNumber:
		f, ok := toFloat(v)
		if !ok {
			return nil, apierr.Validation(path, "%s must be a number", path)
		}
		if p.Type == TypeInteger && f != math.Trunc(f) {
			return nil, apierr.Validation(path, "%s must be an integer", path)
		}
		if err := validate.Var(path, f, constraintTag(p)); err != nil {
			return nil, err
		}
		if p.Type == TypeInteger {
			return int(f), nil
		}
		return f, nil
	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, apierr.Validation(path, "%s must be a boolean", path)
		}
		return b, nil
	case TypeArray:
		items, ok := v.([]any)
		if !ok {
			if ss, isStrings := v.([]string); isStrings {
				for _, s := range ss {
					items = append(items, s)
				}
			} else {
				return nil, apierr.Validation(path, "%s must be an array", path)
			}
		}
		if err := validate.Var(path, items, constraintTag(p)); err != nil {
			return nil, err
		}
		elem := Param{Type: p.Items, Enum: p.Enum, Properties: p.Properties}
		out := make([]any, 0, len(items))
		for i, it := range items {
			nv, err := validateValue(elem, it, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			if s, isString := nv.(string); isString && s == "" {
				continue
			}
			out = append(out, nv)
		}
		return out, nil
	case TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, apierr.Validation(path, "%s must be an object", path)
		}
		if len(p.Properties) == 0 {
			return cloneMap(obj), nil
		}
		return validateObject(p.Properties, obj, path)
	}
	return v, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// constraintTag renders p's bounds and enum as validator tags. Bounds on an
// array apply to its length; the enum of an array applies to its elements.
func constraintTag(p Param) string {
	var tags []string
	if p.Type == TypeString && p.Required {
		tags = append(tags, "required")
	}
	lo, hi := "gte", "lte"
	if p.Type == TypeArray {
		lo, hi = "min", "max"
	}
	if p.Min != nil {
		tags = append(tags, lo+"="+strconv.FormatFloat(*p.Min, 'f', -1, 64))
	}
	if p.Max != nil {
		tags = append(tags, hi+"="+strconv.FormatFloat(*p.Max, 'f', -1, 64))
	}
	if len(p.Enum) > 0 && p.Type == TypeString {
		enum := make([]string, len(p.Enum))
		for i, e := range p.Enum {
			enum[i] = strings.ToLower(e)
		}
		tags = append(tags, "oneof="+strings.Join(enum, " "))
	}
	return strings.Join(tags, ",")
}

// ToolResult is what the model reads back after a tool call.
type ToolResult struct {
	Success   bool           `json:"success"`
	Data      any            `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorCode string         `json:"error_code,omitempty"`
	Field     string         `json:"field,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func OK(data any) ToolResult { return ToolResult{Success: true, Data: data} }

// Fail converts err into a failed result, keeping the code and field of
// application errors.
func Fail(err error) ToolResult {
	if err == nil {
		return ToolResult{Error: "unknown error"}
	}
	if ae, ok := apierr.As(err); ok {
		return ToolResult{Error: ae.Detail(), ErrorCode: ae.Code, Field: ae.Field}
	}
	return ToolResult{Error: err.Error(), ErrorCode: apierr.CodeUnexpected}
}

func (r ToolResult) WithMetadata(k string, v any) ToolResult {
	md := make(map[string]any, len(r.Metadata)+1)
	for key, val := range r.Metadata {
		md[key] = val
	}
	md[k] = v
	r.Metadata = md
	return r
}

func (r ToolResult) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		return `{"success":false,"error":"unencodable tool result"}`
	}
	return string(b)
}

func argString(args map[string]any, k string) string {
	s, _ := args[k].(string)
	return s
}

func argInt(args map[string]any, k string) (int, bool) {
	n, ok := args[k].(int)
	return n, ok
}

func argFloat(args map[string]any, k string) (float64, bool) {
	f, ok := toFloat(args[k])
	return f, ok
}

func argBool(args map[string]any, k string) (bool, bool) {
	b, ok := args[k].(bool)
	return b, ok
}

func argStrings(args map[string]any, k string) []string {
	items, _ := args[k].([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
