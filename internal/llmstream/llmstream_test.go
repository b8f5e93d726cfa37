package llmstream

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/openai/openai-go/v3/responses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct{ info ToolInfo }

func (s stubTool) Info() ToolInfo { return s.info }
func (s stubTool) Name() string   { return s.info.Name }
func (s stubTool) Run(ctx context.Context, call ToolCall) ToolResult {
	return ToolResult{CallID: call.CallID, Name: call.Name, Type: call.Type, Result: "ok"}
}

func TestFunctionSchema(t *testing.T) {
	schema := FunctionSchema(ToolInfo{
		Name: "replace_in_file",
		Parameters: map[string]any{
			"path":    map[string]any{"type": "string"},
			"diff":    map[string]any{"type": "string"},
			"dry_run": map[string]any{"type": "boolean"},
			"tags":    map[string]any{"type": []string{"array"}},
		},
		Required: []string{"path", "diff"},
	})

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.Equal(t, []string{"diff", "dry_run", "path", "tags"}, schema["required"])

	props := schema["properties"].(map[string]any)
	assert.Equal(t, "string", props["path"].(map[string]any)["type"])
	assert.Equal(t, []any{"boolean", "null"}, props["dry_run"].(map[string]any)["type"])
	assert.Equal(t, []any{"array", "null"}, props["tags"].(map[string]any)["type"])
}

func TestFunctionSchemaNoParameters(t *testing.T) {
	schema := FunctionSchema(ToolInfo{Name: "noop"})
	assert.Equal(t, map[string]any{}, schema["properties"])
	assert.NotContains(t, schema, "required")
}

func TestWithNullType(t *testing.T) {
	assert.Equal(t, "null", withNullType("null"))
	assert.Equal(t, []any{"string", "null"}, withNullType([]any{"string", "null"}))
	assert.Equal(t, []any{"string", "null"}, withNullType([]string{"string"}))
	assert.Equal(t, 3, withNullType(3))
}

func TestOpenAIToolParams(t *testing.T) {
	params, err := OpenAIToolParams(nil)
	require.NoError(t, err)
	assert.Nil(t, params)

	params, err = OpenAIToolParams([]Tool{
		stubTool{ToolInfo{Name: "fn", Description: "a function", Parameters: map[string]any{"x": map[string]any{"type": "string"}}, Required: []string{"x"}}},
		stubTool{ToolInfo{Name: "free", Kind: ToolKindCustom, Grammar: &ToolGrammar{Syntax: "LARK", Definition: "start: /.+/"}}},
		stubTool{ToolInfo{Name: "text", Kind: ToolKindCustom}},
	})
	require.NoError(t, err)
	require.Len(t, params, 3)

	require.NotNil(t, params[0].OfFunction)
	assert.Equal(t, "fn", params[0].OfFunction.Name)
	assert.True(t, params[0].OfFunction.Strict.Value)
	assert.Equal(t, "a function", params[0].OfFunction.Description.Value)

	require.NotNil(t, params[1].OfCustom)
	require.NotNil(t, params[1].OfCustom.Format.OfGrammar)
	assert.Equal(t, "lark", params[1].OfCustom.Format.OfGrammar.Syntax)
	assert.Equal(t, "start: /.+/", params[1].OfCustom.Format.OfGrammar.Definition)

	require.NotNil(t, params[2].OfCustom)
	assert.Nil(t, params[2].OfCustom.Format.OfGrammar)
}

func TestOpenAIToolParamsErrors(t *testing.T) {
	for _, info := range []ToolInfo{
		{},
		{Name: "x", Kind: "mystery"},
		{Name: "x", Kind: ToolKindCustom, Grammar: &ToolGrammar{Syntax: ToolGrammarSyntaxLark, Definition: "  "}},
		{Name: "x", Kind: ToolKindCustom, Grammar: &ToolGrammar{Syntax: "peg", Definition: "a"}},
	} {
		_, err := OpenAIToolParams([]Tool{stubTool{info}})
		assert.Error(t, err, "%+v", info)
	}
}

func TestNewErrorToolResult(t *testing.T) {
	res := NewErrorToolResult("boom", ToolCall{CallID: "c1", Name: "n", Type: "function_call"})
	assert.Equal(t, ToolResult{CallID: "c1", Name: "n", Type: "function_call", Result: "boom", IsError: true}, res)
}

func streamEvent(t *testing.T, raw string) responses.ResponseStreamEventUnion {
	t.Helper()
	var evt responses.ResponseStreamEventUnion
	require.NoError(t, json.Unmarshal([]byte(raw), &evt))
	return evt
}

func TestToolInputAccumulatorFunctionCall(t *testing.T) {
	acc := NewToolInputAccumulator()

	up, ok := acc.Observe(streamEvent(t, `{"type":"response.output_item.added","output_index":0,"sequence_number":1,
		"item":{"type":"function_call","id":"fc_1","call_id":"call_1","name":"replace_in_file","arguments":"","status":"in_progress"}}`))
	require.True(t, ok)
	assert.Equal(t, ToolCall{ProviderID: "fc_1", CallID: "call_1", Name: "replace_in_file", Type: "function_call"}, up.Call)
	assert.False(t, up.Done)

	up, ok = acc.Observe(streamEvent(t, `{"type":"response.function_call_arguments.delta","item_id":"fc_1","output_index":0,"sequence_number":2,"delta":"{\"path\":"}`))
	require.True(t, ok)
	assert.Equal(t, `{"path":`, up.Call.Input)

	up, ok = acc.Observe(streamEvent(t, `{"type":"response.function_call_arguments.delta","item_id":"fc_1","output_index":0,"sequence_number":3,"delta":"\"a.go\"}"}`))
	require.True(t, ok)
	assert.Equal(t, `{"path":"a.go"}`, up.Call.Input)
	assert.Len(t, acc.Pending(), 1)

	up, ok = acc.Observe(streamEvent(t, `{"type":"response.output_item.done","output_index":0,"sequence_number":4,
		"item":{"type":"function_call","id":"fc_1","call_id":"call_1","name":"replace_in_file","arguments":"{\"path\":\"a.go\"}","status":"completed"}}`))
	require.True(t, ok)
	assert.True(t, up.Done)
	assert.Equal(t, `{"path":"a.go"}`, up.Call.Input)
	assert.Empty(t, acc.Pending())
}

func TestToolInputAccumulatorIgnoresOtherEvents(t *testing.T) {
	acc := NewToolInputAccumulator()

	_, ok := acc.Observe(streamEvent(t, `{"type":"response.output_text.delta","item_id":"msg_1","output_index":0,"content_index":0,"sequence_number":1,"delta":"hi","logprobs":[]}`))
	assert.False(t, ok)

	_, ok = acc.Observe(streamEvent(t, `{"type":"response.function_call_arguments.delta","item_id":"unknown","output_index":0,"sequence_number":2,"delta":"{}"}`))
	assert.False(t, ok)

	_, ok = acc.Observe(streamEvent(t, `{"type":"response.output_item.added","output_index":0,"sequence_number":3,
		"item":{"type":"message","id":"msg_1","role":"assistant","status":"in_progress","content":[]}}`))
	assert.False(t, ok)
}

func TestToolInputAccumulatorCustomCall(t *testing.T) {
	acc := NewToolInputAccumulator()
	acc.start(ToolCall{ProviderID: "ct_1", CallID: "call_2", Name: "replace_in_file", Type: "custom_tool_call"})

	up := acc.finish(ToolCall{ProviderID: "ct_1", CallID: "call_2", Name: "replace_in_file", Type: "custom_tool_call", Input: "a.go\n"})
	assert.True(t, up.Done)
	assert.Equal(t, "a.go\n", up.Call.Input)

	acc.start(ToolCall{ProviderID: "fc_2", Type: "function_call"})
	_, ok := acc.appendInput("fc_2", `{"x":1}`)
	require.True(t, ok)
	up = acc.finish(ToolCall{ProviderID: "fc_2", Type: "function_call"})
	assert.Equal(t, `{"x":1}`, up.Call.Input)
}

func TestPartialStringFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
		open  string
	}{
		{"empty", ``, map[string]string{}, ""},
		{"open brace", `{`, map[string]string{}, ""},
		{"complete", `{"path":"a.go","diff":"x\ny"}`, map[string]string{"path": "a.go", "diff": "x\ny"}, ""},
		{"cut in key", `{"path":"a.go","di`, map[string]string{"path": "a.go"}, ""},
		{"cut after colon", `{"path": `, map[string]string{}, ""},
		{"cut in value", `{"path":"a.go","diff":"------- SEARCH\nfo`, map[string]string{"path": "a.go", "diff": "------- SEARCH\nfo"}, "diff"},
		{"cut in first value", `{"path":"a.g`, map[string]string{"path": "a.g"}, "path"},
		{"cut in escape", `{"diff":"a\`, map[string]string{"diff": "a"}, "diff"},
		{"cut in unicode escape", `{"diff":"a\u00`, map[string]string{"diff": "a"}, "diff"},
		{"escaped backslash at end", `{"diff":"a\\`, map[string]string{"diff": `a\`}, "diff"},
		{"unicode escape", `{"diff":"\u00e9"}`, map[string]string{"diff": "é"}, ""},
		{"skips other values", `{"n":12,"obj":{"a":"}"},"arr":[1,"]"],"b":true,"path":"p"}`, map[string]string{"path": "p"}, ""},
		{"cut in other value", `{"path":"p","n":{"a":`, map[string]string{"path": "p"}, ""},
		{"not an object", `["a"]`, map[string]string{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, open := PartialStringFields(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.open, open)
		})
	}
}
