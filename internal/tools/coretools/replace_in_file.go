package coretools

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/nyo16/nous-sub006/internal/diff"
	"github.com/nyo16/nous-sub006/internal/fileedit"
	"github.com/nyo16/nous-sub006/internal/llmstream"
	"go.uber.org/zap"
)

//go:embed replace_in_file_freeform.md
var descriptionReplaceInFileFreeform string

//go:embed replace_in_file_function.md
var descriptionReplaceInFileFunction string

const ToolNameReplaceInFile = "replace_in_file"

// ReplaceInFileGrammar is the Lark grammar of freeform replace_in_file input: the file path on the first line, then SEARCH/REPLACE blocks with the
// canonical markers of package searchreplace.
const ReplaceInFileGrammar = `start: path LF block+
path: /(.+)/

block: search_start LF content_line* divider LF content_line* replace_end LF?
search_start: "------- SEARCH"
divider: "======="
replace_end: "+++++++ REPLACE"
content_line: /(.+)/? LF
%import common.LF`

// DefaultMaxResultTokens bounds the rendered diff in a tool result.
const DefaultMaxResultTokens = 4000

type ReplaceInFileOptions struct {
	// Freeform exposes the tool as a custom tool whose input is the path on the first line followed by the blocks. Otherwise it is a function tool
	// taking {"path", "diff"}.
	Freeform bool

	// MaxResultTokens bounds the rendered diff in results. 0 uses DefaultMaxResultTokens; negative disables the limit.
	MaxResultTokens int

	// Render is used by Preview. Results returned to the LLM are always rendered without color.
	Render diff.Options

	Logger *zap.Logger
}

// NewReplaceInFileTool returns the replace_in_file tool, which applies SEARCH/REPLACE blocks to files under editor's root.
func NewReplaceInFileTool(editor *fileedit.Editor, opts ReplaceInFileOptions) *ToolReplaceInFile {
	if opts.MaxResultTokens == 0 {
		opts.MaxResultTokens = DefaultMaxResultTokens
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &ToolReplaceInFile{editor: editor, opts: opts}
}

type ToolReplaceInFile struct {
	editor *fileedit.Editor
	opts   ReplaceInFileOptions
}

var _ llmstream.Tool = (*ToolReplaceInFile)(nil)

func (t *ToolReplaceInFile) Name() string {
	return ToolNameReplaceInFile
}

func (t *ToolReplaceInFile) Info() llmstream.ToolInfo {
	if t.opts.Freeform {
		return llmstream.ToolInfo{
			Name:        ToolNameReplaceInFile,
			Description: strings.TrimSpace(descriptionReplaceInFileFreeform),
			Kind:        llmstream.ToolKindCustom,
			Grammar: &llmstream.ToolGrammar{
				Syntax:     llmstream.ToolGrammarSyntaxLark,
				Definition: ReplaceInFileGrammar,
			},
		}
	}
	return llmstream.ToolInfo{
		Name:        ToolNameReplaceInFile,
		Description: strings.TrimSpace(descriptionReplaceInFileFunction),
		Parameters: map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path of the file to edit, relative to the working directory",
			},
			"diff": map[string]any{
				"type":        "string",
				"description": "One or more SEARCH/REPLACE blocks",
			},
		},
		Required: []string{"path", "diff"},
		Kind:     llmstream.ToolKindFunction,
	}
}

func (t *ToolReplaceInFile) Run(ctx context.Context, call llmstream.ToolCall) llmstream.ToolResult {
	params, err := t.extractParams(call.Input)
	if err != nil {
		return NewToolErrorResult(call, resultPayload(false, "", err.Error()), err)
	}

	out, err := t.editor.Apply(ctx, params.Path, params.Diff)
	if err != nil {
		t.opts.Logger.Debug("replace_in_file failed", zap.String("call_id", call.CallID), zap.String("path", params.Path), zap.Error(err))
		return NewToolErrorResult(call, resultPayload(false, params.Path, err.Error()), err)
	}

	body := out.Render(diff.Options{})
	if !out.Changed() {
		body = "The edit left the file unchanged."
	}
	return llmstream.ToolResult{
		CallID: call.CallID,
		Name:   call.Name,
		Type:   call.Type,
		Result: resultPayload(true, out.Path, truncateToTokens(body, t.opts.MaxResultTokens)),
	}
}

// Preview renders the edit described by a tool call input that may still be streaming. It returns "" until the path is known. Errors from blocks that
// are still being generated are ignored; errors from completed blocks are returned.
func (t *ToolReplaceInFile) Preview(ctx context.Context, partialInput string) (string, error) {
	params, ok := t.extractPartialParams(partialInput)
	if !ok {
		return "", nil
	}
	out, err := t.editor.Preview(ctx, params.Path, params.Diff, false)
	if err != nil {
		return "", err
	}
	return out.Render(t.opts.Render), nil
}

type replaceInFileParams struct {
	Path string `json:"path"`
	Diff string `json:"diff"`
}

func (t *ToolReplaceInFile) extractParams(input string) (replaceInFileParams, error) {
	var params replaceInFileParams
	if t.opts.Freeform {
		params = splitFreeformInput(input)
	} else if err := json.Unmarshal([]byte(input), &params); err != nil {
		return params, fmt.Errorf("error parsing parameters: %s", err)
	}

	if strings.TrimSpace(params.Path) == "" {
		return params, fmt.Errorf("path is required")
	}
	if strings.TrimSpace(params.Diff) == "" {
		return params, fmt.Errorf("diff is required")
	}
	return params, nil
}

// extractPartialParams reports ok once the path is complete.
func (t *ToolReplaceInFile) extractPartialParams(input string) (replaceInFileParams, bool) {
	if t.opts.Freeform {
		if !strings.Contains(input, "\n") {
			return replaceInFileParams{}, false
		}
		params := splitFreeformInput(input)
		return params, params.Path != ""
	}

	fields, open := llmstream.PartialStringFields(input)
	params := replaceInFileParams{Path: fields["path"], Diff: fields["diff"]}
	return params, params.Path != "" && open != "path"
}

// splitFreeformInput takes the first non-blank line as the path and the rest as the diff.
func splitFreeformInput(input string) replaceInFileParams {
	rest := strings.TrimLeft(input, " \t\r\n")
	path, diffText, _ := strings.Cut(rest, "\n")
	return replaceInFileParams{Path: strings.TrimSpace(path), Diff: diffText}
}

func resultPayload(ok bool, path, body string) string {
	attrs := fmt.Sprintf("ok=%q", fmt.Sprint(ok))
	if path != "" {
		attrs += fmt.Sprintf(" path=\"%s\"", html.EscapeString(path))
	}
	return fmt.Sprintf("<replace-in-file %s>\n%s\n</replace-in-file>", attrs, strings.TrimRight(body, "\n"))
}
