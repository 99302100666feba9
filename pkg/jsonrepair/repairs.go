package jsonrepair

import "strings"

// RemoveComments drops // line comments and /* */ block comments found outside
// string literals.
func RemoveComments(s string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s))
	changed := false

	for i := 0; i < len(s); {
		c := s[i]
		if c == '"' || c == '\'' {
			end := skipString(s, i)
			b.WriteString(s[i:end])
			i = end
			continue
		}
		if c == '/' {
			if end := skipComment(s, i); end > i {
				changed = true
				i = end
				continue
			}
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), changed
}

// RemoveTrailingCommas drops commas that are followed only by whitespace before
// a closing brace or bracket.
func RemoveTrailingCommas(s string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s))
	changed := false

	for i := 0; i < len(s); {
		c := s[i]
		if c == '"' || c == '\'' {
			end := skipString(s, i)
			b.WriteString(s[i:end])
			i = end
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				changed = true
				i++
				continue
			}
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), changed
}

// SingleToDoubleQuotes rewrites single-quoted keys and values as JSON strings.
// A single quote is only treated as a delimiter where a key or value may start,
// so apostrophes elsewhere are left alone.
func SingleToDoubleQuotes(s string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s))
	changed := false
	var prev byte

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"':
			end := skipString(s, i)
			b.WriteString(s[i:end])
			i = end
			prev = '"'
			continue
		case c == '\'' && startsValue(prev):
			end := skipString(s, i)
			b.WriteByte('"')
			writeDoubleQuoted(&b, s[i+1:closingIndex(s, i, end)])
			b.WriteByte('"')
			changed = true
			i = end
			prev = '"'
			continue
		}
		if !isSpace(c) {
			prev = c
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), changed
}

// QuoteBareKeys wraps unquoted identifier keys (`{title: "x"}`) in double quotes.
func QuoteBareKeys(s string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s))
	changed := false
	var prev byte

	for i := 0; i < len(s); {
		c := s[i]
		if c == '"' || c == '\'' {
			end := skipString(s, i)
			b.WriteString(s[i:end])
			i = end
			prev = c
			continue
		}
		if isIdentStart(c) && (prev == '{' || prev == ',') {
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			k := j
			for k < len(s) && isSpace(s[k]) {
				k++
			}
			if k < len(s) && s[k] == ':' {
				b.WriteByte('"')
				b.WriteString(s[i:j])
				b.WriteByte('"')
				changed = true
			} else {
				b.WriteString(s[i:j])
			}
			prev = s[j-1]
			i = j
			continue
		}
		if !isSpace(c) {
			prev = c
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), changed
}

// CloseBrackets appends the closers for brackets still open at the end of s,
// terminating an unfinished string first. Trailing commas are dropped.
func CloseBrackets(s string) (string, bool) {
	var stack []byte
	inString := false

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\'':
			end := skipString(s, i)
			if end == len(s) && (end-i < 2 || s[end-1] != c || s[end-2] == '\\') {
				inString = true
			}
			i = end - 1
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if len(stack) == 0 && !inString {
		return s, false
	}

	out := s
	if inString {
		out += `"`
	}
	out = strings.TrimRightFunc(out, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\t' || r == '\r' })
	for i := len(stack) - 1; i >= 0; i-- {
		out += string(stack[i])
	}
	return out, true
}

func startsValue(prev byte) bool {
	switch prev {
	case 0, '{', '[', ',', ':':
		return true
	}
	return false
}

// closingIndex returns the position of the closing quote for the literal
// opened at start, tolerating unterminated literals.
func closingIndex(s string, start, end int) int {
	if end-1 <= start || (end == len(s) && s[end-1] != '\'') {
		return end
	}
	return end - 1
}

func writeDoubleQuoted(b *strings.Builder, body string) {
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body) && body[i+1] == '\'':
			b.WriteByte('\'')
			i++
		case c == '\\' && i+1 < len(body):
			b.WriteByte(c)
			b.WriteByte(body[i+1])
			i++
		case c == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
}
