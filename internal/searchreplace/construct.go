package searchreplace

import (
	"errors"
	"strings"
)

// BlockMatch records how one block was resolved against the original.
type BlockMatch struct {
	Index        int // 1-based
	Block        Block
	Match        Match
	ResumeOffset int // offset the next block's search resumes from
}

// Result is the detailed outcome of Construct.
type Result struct {
	Content  string       // new file content (partial when not final)
	Matches  []BlockMatch // one per completed block
	InFlight *BlockMatch  // streaming only: the block whose REPLACE section is still being generated, if its search resolved
	Parse    ParseResult
}

// ConstructNewContent applies diffText to original and returns the new content. See Construct.
func ConstructNewContent(diffText, original string, isFinal bool) (string, error) {
	res, err := Construct(diffText, original, isFinal)
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

// Construct parses diffText, locates every completed block in original (each resuming from the end of the last non-pending match), rejects overlapping spans,
// and splices the replacements.
//
// When isFinal is false, the result is a best-effort preview: an in-flight block whose SEARCH section is complete and resolvable has its REPLACE section, as generated
// so far, spliced in. Failures to locate the in-flight block are not reported. Failures of completed blocks are.
func Construct(diffText, original string, isFinal bool) (Result, error) {
	parsed, err := Parse(diffText, isFinal)
	if err != nil {
		return Result{}, err
	}

	res := Result{Parse: parsed}
	replacements := make([]Replacement, 0, len(parsed.Blocks)+1)
	lastProcessed := 0

	for i, blk := range parsed.Blocks {
		m, err := Locate(blk.Search, original, lastProcessed)
		if err != nil {
			return Result{}, withBlock(err, i+1)
		}
		if !m.Pending {
			lastProcessed = m.Span.End
		}
		res.Matches = append(res.Matches, BlockMatch{Index: i + 1, Block: blk, Match: m, ResumeOffset: lastProcessed})
		replacements = append(replacements, Replacement{Span: m.Span, Content: blk.Replace, Block: i + 1})
	}

	if err := CheckOverlaps(replacements); err != nil {
		return Result{}, withSearch(err, parsed.Blocks)
	}

	if !isFinal && parsed.State.Mode == InReplace {
		blk := Block{Search: parsed.State.Search, Replace: parsed.State.Replace}
		if m, err := Locate(blk.Search, original, lastProcessed); err == nil {
			r := Replacement{Span: m.Span, Content: blk.Replace, Block: len(parsed.Blocks) + 1}
			if CheckOverlaps(append(replacements[:len(replacements):len(replacements)], r)) == nil {
				replacements = append(replacements, r)
				resume := lastProcessed
				if !m.Pending {
					resume = m.Span.End
				}
				res.InFlight = &BlockMatch{Index: r.Block, Block: blk, Match: m, ResumeOffset: resume}
			}
		}
	}

	res.Content = Apply(original, replacements)
	return res, nil
}

func withBlock(err error, idx int) error {
	var e *Error
	if errors.As(err, &e) && e.Block == 0 {
		e.Block = idx
	}
	return err
}

func withSearch(err error, blocks []Block) error {
	var e *Error
	if errors.As(err, &e) && e.Search == "" && e.Block > 0 && e.Block <= len(blocks) {
		e.Search = strings.TrimSpace(blocks[e.Block-1].Search)
	}
	return err
}
