package jsonrepair

import (
	"regexp"
	"strings"
)

var reasoningBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripReasoning removes <think>...</think> blocks some models emit before the payload.
func StripReasoning(s string) (string, bool) {
	if !strings.Contains(s, "<think>") {
		return s, false
	}
	out := reasoningBlock.ReplaceAllString(s, "")
	return strings.TrimSpace(out), out != s
}

// StripCodeFence returns the body of the first Markdown code fence. The closing
// delimiter is the last fence in the text so fences nested inside the payload
// survive. A missing closing fence keeps everything after the opening one.
func StripCodeFence(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return s, false
	}
	body := s[start+3:]

	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	} else {
		for _, tag := range []string{"json", "JSON"} {
			if strings.HasPrefix(body, tag) {
				body = body[len(tag):]
				break
			}
		}
	}

	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body), true
}

// FirstBalanced returns the first span that starts with open and ends where the
// bracket depth returns to zero. Strings and comments are skipped while scanning.
func FirstBalanced(s string, open byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}

	depth := 0
	for i := start; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\'':
			i = skipString(s, i) - 1
		case '/':
			if next := skipComment(s, i); next > i {
				i = next - 1
			}
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// skipString returns the index just past the string literal starting at s[i].
// Unterminated literals run to the end of s.
func skipString(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return len(s)
}

// skipComment returns the index just past a // or /* */ comment starting at
// s[i], or i when there is none. Line comments stop before the newline.
func skipComment(s string, i int) int {
	if i+1 >= len(s) || s[i] != '/' {
		return i
	}
	switch s[i+1] {
	case '/':
		if nl := strings.IndexByte(s[i:], '\n'); nl >= 0 {
			return i + nl
		}
		return len(s)
	case '*':
		if end := strings.Index(s[i+2:], "*/"); end >= 0 {
			return i + 2 + end + 2
		}
		return len(s)
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c == '-' || c == '.' || (c >= '0' && c <= '9')
}
