package coretools

import (
	"fmt"
	"strings"

	"github.com/tiktoken-go/tokenizer"
)

// countTokens counts text with the o200k_base encoding. If the text cannot be encoded it falls back to an estimate of four bytes per token.
func countTokens(text string) int {
	enc, err := tokenizer.Get(tokenizer.O200kBase)
	if err != nil {
		panic(fmt.Errorf("invalid encoder: %v", tokenizer.O200kBase))
	}
	n, err := enc.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return n
}

// truncateToTokens keeps whole leading lines of text so that it fits in maxTokens, and notes how many lines were dropped. maxTokens <= 0 means no limit.
func truncateToTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	total := countTokens(text)
	if total <= maxTokens {
		return text
	}

	lines := strings.Split(text, "\n")
	keep := len(lines) * maxTokens / total
	for keep > 0 {
		if countTokens(truncatedText(lines, keep)) <= maxTokens {
			break
		}
		keep--
	}
	return truncatedText(lines, keep)
}

func truncatedText(lines []string, keep int) string {
	dropped := len(lines) - keep
	note := fmt.Sprintf("... (%d more lines truncated)", dropped)
	if keep == 0 {
		return note
	}
	return strings.Join(lines[:keep], "\n") + "\n" + note
}
