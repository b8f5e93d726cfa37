package coretools

import (
	"github.com/nyo16/nous-sub006/internal/llmstream"
)

func NewToolErrorResult(call llmstream.ToolCall, msg string, srcErr error) llmstream.ToolResult {
	res := llmstream.NewErrorToolResult(msg, call)
	res.SourceErr = srcErr
	return res
}
