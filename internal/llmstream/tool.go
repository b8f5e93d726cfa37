// Package llmstream describes tools exposed to an LLM and the calls the LLM makes to them. It converts tool definitions into OpenAI Responses tool
// parameters, and folds Responses stream events into tool-call input snapshots so a tool can preview a call while its input is still streaming.
package llmstream

import "context"

type ToolKind string

const (
	ToolKindFunction ToolKind = "function"
	ToolKindCustom   ToolKind = "custom"
)

type ToolGrammarSyntax string

const (
	ToolGrammarSyntaxLark  ToolGrammarSyntax = "lark"
	ToolGrammarSyntaxRegex ToolGrammarSyntax = "regex"
)

// ToolGrammar is a grammar-constrained input format for custom tools.
type ToolGrammar struct {
	Syntax     ToolGrammarSyntax
	Definition string
}

// ToolInfo describes a tool exposed to the LLM.
//
// Function tools take one JSON object. Parameters holds the definitions of that object's named properties, not a full schema:
//
//	{"path": {"type": "string", "description": "..."}, "diff": {"type": "string", "description": "..."}}
//
// Optional properties do not need a "null" type; OpenAIToolParams adds it when building the strict schema. Custom tools take free-form text, optionally
// constrained by Grammar.
type ToolInfo struct {
	Name        string
	Description string
	Parameters  map[string]any
	Required    []string // keys of Parameters that must be present
	Kind        ToolKind // defaults to ToolKindFunction
	Grammar     *ToolGrammar
}

type Tool interface {
	Info() ToolInfo
	Name() string

	// Run runs the tool. Failures are reported in the result with IsError set and a message for the LLM in Result; SourceErr may carry the underlying
	// error for the caller.
	Run(ctx context.Context, call ToolCall) ToolResult
}

// ToolCall is a call of a tool by the LLM.
type ToolCall struct {
	ProviderID string `json:"provider_id"` // item ID assigned by the provider
	CallID     string `json:"call_id"`
	Name       string `json:"name"`
	Type       string `json:"type"`  // "function_call" or "custom_tool_call"
	Input      string `json:"input"` // JSON object for function calls, raw text for custom tool calls
}

// ToolResult is the result of a ToolCall. CallID, Name, and Type match the call.
type ToolResult struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Result string `json:"result"`

	IsError bool `json:"is_error"`

	// SourceErr is the Go error behind an error result, if there is one. It is never shown to the LLM.
	SourceErr error `json:"-"`
}

func NewErrorToolResult(errMsg string, toolCall ToolCall) ToolResult {
	return ToolResult{
		CallID:  toolCall.CallID,
		Name:    toolCall.Name,
		Type:    toolCall.Type,
		Result:  errMsg,
		IsError: true,
	}
}
