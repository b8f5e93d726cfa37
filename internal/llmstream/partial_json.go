package llmstream

import (
	"encoding/json"
	"strings"
)

// PartialStringFields returns the string-valued top-level fields of a JSON object that may be cut off anywhere. A string value cut off mid-way is
// returned as far as it was received, and open names its key; open is "" when every returned value is complete. Non-string values are skipped.
func PartialStringFields(input string) (fields map[string]string, open string) {
	fields = map[string]string{}
	s := &jsonScanner{src: input}
	s.skipSpace()
	if !s.consume('{') {
		return fields, ""
	}
	for {
		s.skipSpace()
		if s.done() || s.consume('}') {
			return fields, ""
		}
		if s.consume(',') {
			continue
		}
		if s.peek() != '"' {
			return fields, ""
		}
		key, closed := s.readString()
		if !closed {
			return fields, ""
		}
		s.skipSpace()
		if !s.consume(':') {
			return fields, ""
		}
		s.skipSpace()
		if s.done() {
			return fields, ""
		}
		if s.peek() != '"' {
			if !s.skipValue() {
				return fields, ""
			}
			continue
		}
		value, closed := s.readString()
		fields[key] = value
		if !closed {
			return fields, key
		}
	}
}

type jsonScanner struct {
	src string
	pos int
}

func (s *jsonScanner) done() bool { return s.pos >= len(s.src) }

func (s *jsonScanner) peek() byte { return s.src[s.pos] }

func (s *jsonScanner) consume(c byte) bool {
	if !s.done() && s.src[s.pos] == c {
		s.pos++
		return true
	}
	return false
}

func (s *jsonScanner) skipSpace() {
	for !s.done() {
		switch s.src[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

// readString reads the string starting at the current '"'. An unterminated string is decoded up to the last complete escape.
func (s *jsonScanner) readString() (string, bool) {
	start := s.pos
	s.pos++
	for !s.done() {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
		case '"':
			s.pos++
			return decodeJSONString(s.src[start:s.pos]), true
		default:
			s.pos++
		}
	}
	s.pos = len(s.src)
	raw := trimPartialEscape(s.src[start+1:])
	return decodeJSONString(`"` + raw + `"`), false
}

// skipValue skips a non-string value, including nested objects and arrays. It reports false if the input ends first.
func (s *jsonScanner) skipValue() bool {
	depth := 0
	for !s.done() {
		switch c := s.src[s.pos]; c {
		case '"':
			if _, closed := s.readString(); !closed {
				return false
			}
			continue
		case '{', '[':
			depth++
		case '}', ']':
			if depth == 0 {
				return true
			}
			depth--
		case ',':
			if depth == 0 {
				return true
			}
		}
		s.pos++
	}
	return false
}

// trimPartialEscape drops an escape sequence cut off at the end of raw.
func trimPartialEscape(raw string) string {
	i := strings.LastIndexByte(raw, '\\')
	if i < 0 {
		return raw
	}
	// Count the backslashes ending at i; an even run means raw[i] is itself escaped.
	n := 0
	for j := i; j >= 0 && raw[j] == '\\'; j-- {
		n++
	}
	if n%2 == 0 {
		return raw
	}
	tail := raw[i:]
	if len(tail) == 1 || (tail[1] == 'u' && len(tail) < 6) {
		return raw[:i]
	}
	return raw
}

func decodeJSONString(quoted string) string {
	var out string
	if err := json.Unmarshal([]byte(quoted), &out); err != nil {
		return strings.Trim(quoted, `"`)
	}
	return out
}
