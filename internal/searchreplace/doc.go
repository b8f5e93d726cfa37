// Package searchreplace applies SEARCH/REPLACE edit blocks, as produced by an LLM, to the content of a single file.
//
// # Format
//
// A diff is a sequence of blocks. Each block names a fragment of the original content and the text that replaces it:
//
//	------- SEARCH
//	func old() {}
//	=======
//	func renamed() {}
//	+++++++ REPLACE
//
// The legacy markers "<<<<<<< SEARCH" and ">>>>>>> REPLACE" are accepted as well. Markers need at least three repeated characters followed by the exact token; an
// optional trailing '>' is allowed. Text outside of a block is ignored. Blocks are concatenated directly.
//
// # Pipeline
//
// ConstructNewContent runs three stages:
//   - Parse folds the diff text line by line into blocks. Each line inside a section is accumulated with a trailing "\n", so fragments always end in a newline.
//   - Locate resolves each search fragment to a byte span of the original. It tries an exact match from the resume offset, a whitespace-trimmed line match, a
//     block-anchor match (first and last lines only, for fragments of three or more lines), and finally an exact match anywhere in the file.
//   - Apply splices the replacements into the original in span order.
//
// Blocks are expected in file order. A block that only matches before the resume offset is "pending": it is applied, but does not move the resume offset.
// Resolved blocks whose spans overlap are rejected.
//
// # Streaming
//
// When isFinal is false, the diff text is assumed to be a growing prefix of the final text. A trailing partial line that looks like the start of a marker is
// dropped, an unterminated block is not an error, and an in-flight REPLACE section is spliced in as far as it has been generated. Each call is independent.
package searchreplace
