package llmstream

import (
	"strings"

	"github.com/openai/openai-go/v3/responses"
)

// ToolInputUpdate is the state of one tool call after an event. Call.Input holds all input received so far.
type ToolInputUpdate struct {
	Call ToolCall
	Done bool
}

// ToolInputAccumulator folds OpenAI Responses stream events into per-call input snapshots. Function call arguments grow with each
// response.function_call_arguments.delta; custom tool calls are reported when added and when done. It is not safe for concurrent use.
type ToolInputAccumulator struct {
	calls map[string]*pendingToolCall // by provider item ID
}

type pendingToolCall struct {
	call  ToolCall
	input strings.Builder
}

func NewToolInputAccumulator() *ToolInputAccumulator {
	return &ToolInputAccumulator{calls: map[string]*pendingToolCall{}}
}

// Observe folds evt into the accumulator. ok is false for events that carry no tool call input.
func (a *ToolInputAccumulator) Observe(evt responses.ResponseStreamEventUnion) (update ToolInputUpdate, ok bool) {
	switch evt.Type {
	case "response.output_item.added":
		if tc, isTool := toolCallFromItem(evt.AsResponseOutputItemAdded().Item); isTool {
			return a.start(tc), true
		}
	case "response.function_call_arguments.delta":
		d := evt.AsResponseFunctionCallArgumentsDelta()
		return a.appendInput(d.ItemID, d.Delta)
	case "response.output_item.done":
		if tc, isTool := toolCallFromItem(evt.AsResponseOutputItemDone().Item); isTool {
			return a.finish(tc), true
		}
	}
	return ToolInputUpdate{}, false
}

// Pending returns the calls whose items are not done yet.
func (a *ToolInputAccumulator) Pending() []ToolCall {
	out := make([]ToolCall, 0, len(a.calls))
	for _, p := range a.calls {
		out = append(out, p.snapshot())
	}
	return out
}

func toolCallFromItem(item responses.ResponseOutputItemUnion) (ToolCall, bool) {
	switch item.Type {
	case "function_call":
		fn := item.AsFunctionCall()
		return ToolCall{ProviderID: item.ID, CallID: fn.CallID, Name: fn.Name, Type: item.Type, Input: fn.Arguments}, true
	case "custom_tool_call":
		custom := item.AsCustomToolCall()
		return ToolCall{ProviderID: item.ID, CallID: custom.CallID, Name: custom.Name, Type: item.Type, Input: custom.Input}, true
	}
	return ToolCall{}, false
}

func (a *ToolInputAccumulator) start(tc ToolCall) ToolInputUpdate {
	p := &pendingToolCall{call: tc}
	p.input.WriteString(tc.Input)
	a.calls[tc.ProviderID] = p
	return ToolInputUpdate{Call: p.snapshot()}
}

func (a *ToolInputAccumulator) appendInput(itemID, delta string) (ToolInputUpdate, bool) {
	p, ok := a.calls[itemID]
	if !ok {
		return ToolInputUpdate{}, false
	}
	p.input.WriteString(delta)
	return ToolInputUpdate{Call: p.snapshot()}, true
}

// finish reports the completed call. The done item's input is authoritative over the accumulated deltas.
func (a *ToolInputAccumulator) finish(tc ToolCall) ToolInputUpdate {
	if p, ok := a.calls[tc.ProviderID]; ok {
		if tc.Input == "" {
			tc.Input = p.input.String()
		}
		delete(a.calls, tc.ProviderID)
	}
	return ToolInputUpdate{Call: tc, Done: true}
}

func (p *pendingToolCall) snapshot() ToolCall {
	tc := p.call
	tc.Input = p.input.String()
	return tc
}
