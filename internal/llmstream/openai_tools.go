package llmstream

import (
	"sort"
	"strings"

	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"github.com/pkg/errors"
)

// OpenAIToolParams converts tools into OpenAI Responses tool parameters. Function tools are declared strict: every property is listed as required,
// and optional ones accept null instead.
func OpenAIToolParams(tools []Tool) ([]responses.ToolUnionParam, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	out := make([]responses.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		info := tool.Info()
		if info.Name == "" {
			return nil, errors.New("tool name is required")
		}

		var (
			union responses.ToolUnionParam
			err   error
		)
		switch info.Kind {
		case ToolKindFunction, "":
			union = openAIFunctionToolParam(info)
		case ToolKindCustom:
			union, err = openAICustomToolParam(info)
		default:
			err = errors.Errorf("tool %q: unsupported tool kind %q", info.Name, info.Kind)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, union)
	}
	return out, nil
}

// FunctionSchema returns the strict JSON schema of a function tool's input object.
func FunctionSchema(info ToolInfo) map[string]any {
	required := make(map[string]bool, len(info.Required))
	for _, r := range info.Required {
		required[r] = true
	}

	props := make(map[string]any, len(info.Parameters))
	keys := make([]string, 0, len(info.Parameters))
	for name, raw := range info.Parameters {
		keys = append(keys, name)
		prop, ok := raw.(map[string]any)
		if !ok {
			props[name] = raw
			continue
		}
		copied := make(map[string]any, len(prop))
		for k, v := range prop {
			copied[k] = v
		}
		if !required[name] {
			if t, ok := copied["type"]; ok {
				copied["type"] = withNullType(t)
			}
		}
		props[name] = copied
	}
	sort.Strings(keys)

	schema := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
	if len(keys) > 0 {
		schema["required"] = keys
	}
	return schema
}

// withNullType adds "null" to a JSON schema "type" value.
func withNullType(t any) any {
	var types []any
	switch tv := t.(type) {
	case string:
		if tv == "null" {
			return tv
		}
		return []any{tv, "null"}
	case []string:
		for _, s := range tv {
			types = append(types, s)
		}
	case []any:
		types = append(types, tv...)
	default:
		return t
	}
	for _, x := range types {
		if s, ok := x.(string); ok && s == "null" {
			return types
		}
	}
	return append(types, "null")
}

func openAIFunctionToolParam(info ToolInfo) responses.ToolUnionParam {
	fn := responses.FunctionToolParam{
		Name:       info.Name,
		Parameters: FunctionSchema(info),
		Strict:     param.NewOpt(true),
		Type:       "function",
	}
	if info.Description != "" {
		fn.Description = param.NewOpt(info.Description)
	}
	return responses.ToolUnionParam{OfFunction: &fn}
}

func openAICustomToolParam(info ToolInfo) (responses.ToolUnionParam, error) {
	custom := responses.CustomToolParam{
		Name: info.Name,
		Type: "custom",
	}
	if info.Description != "" {
		custom.Description = param.NewOpt(info.Description)
	}
	if info.Grammar == nil {
		return responses.ToolUnionParam{OfCustom: &custom}, nil
	}

	definition := strings.TrimSpace(info.Grammar.Definition)
	if definition == "" {
		return responses.ToolUnionParam{}, errors.Errorf("tool %q: grammar definition is required", info.Name)
	}
	syntax := ToolGrammarSyntax(strings.ToLower(strings.TrimSpace(string(info.Grammar.Syntax))))
	if syntax != ToolGrammarSyntaxLark && syntax != ToolGrammarSyntaxRegex {
		return responses.ToolUnionParam{}, errors.Errorf("tool %q: unsupported grammar syntax %q", info.Name, info.Grammar.Syntax)
	}
	grammar := shared.CustomToolInputFormatGrammarParam{
		Definition: definition,
		Syntax:     string(syntax),
		Type:       "grammar",
	}
	custom.Format = shared.CustomToolInputFormatUnionParam{OfGrammar: &grammar}
	return responses.ToolUnionParam{OfCustom: &custom}, nil
}
