// Package jsonrepair recovers JSON values from untrusted text such as LLM
// completions. Every transformation that changed the input is reported as a
// warning so callers can tell a clean parse from a degraded one.
package jsonrepair

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

var (
	// ErrEmptyInput is returned for empty or whitespace-only input.
	ErrEmptyInput = errors.New("empty input")
	// ErrUnrecoverable is returned when no JSON value survives the repair chain.
	ErrUnrecoverable = errors.New("no JSON value could be recovered")

	errTrailingData = errors.New("unexpected data after JSON value")
)

const (
	WarnReasoning      = "removed reasoning block"
	WarnCodeFence      = "removed code fence"
	WarnExtracted      = "extracted first balanced JSON span"
	WarnComments       = "removed comments"
	WarnTrailingComma  = "removed trailing comma"
	WarnSingleQuotes   = "converted single quotes to double quotes"
	WarnBareKeys       = "quoted bare object keys"
	WarnClosedBrackets = "closed unterminated brackets"
)

type repair struct {
	apply   func(string) (string, bool)
	warning string
}

// repairs run in this order against the best candidate span.
var repairs = []repair{
	{RemoveComments, WarnComments},
	{RemoveTrailingCommas, WarnTrailingComma},
	{SingleToDoubleQuotes, WarnSingleQuotes},
	{QuoteBareKeys, WarnBareKeys},
}

// Decode strictly parses s as a single JSON value. Numbers are kept as
// json.Number so they re-encode exactly as they arrived.
func Decode(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return v, nil
}

// Repair runs the fallback chain and stops at the first strategy that yields a
// valid value: strict parse, reasoning and code fence removal, first balanced
// span starting at open ('{' or '['), textual repairs, and finally closing
// unterminated brackets.
func Repair(text string, open byte) (any, []string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, ErrEmptyInput
	}
	if v, err := Decode(text); err == nil {
		return v, nil, nil
	}

	var warnings []string
	candidate := text

	if s, ok := StripReasoning(candidate); ok {
		candidate = s
		warnings = append(warnings, WarnReasoning)
		if v, err := Decode(candidate); err == nil {
			return v, warnings, nil
		}
	}

	if s, ok := StripCodeFence(candidate); ok {
		candidate = s
		warnings = append(warnings, WarnCodeFence)
		if v, err := Decode(candidate); err == nil {
			return v, warnings, nil
		}
	}

	if span, ok := FirstBalanced(candidate, open); ok {
		if span != strings.TrimSpace(candidate) {
			warnings = append(warnings, WarnExtracted)
		}
		candidate = span
		if v, err := Decode(candidate); err == nil {
			return v, warnings, nil
		}
	} else if i := strings.IndexByte(candidate, open); i >= 0 {
		candidate = candidate[i:]
	} else {
		return nil, warnings, ErrUnrecoverable
	}

	for _, r := range repairs {
		if s, changed := r.apply(candidate); changed {
			candidate = s
			warnings = append(warnings, r.warning)
		}
	}
	if v, err := Decode(candidate); err == nil {
		return v, warnings, nil
	}

	if s, changed := CloseBrackets(candidate); changed {
		if v, err := Decode(s); err == nil {
			return v, append(warnings, WarnClosedBrackets), nil
		}
	}
	return nil, warnings, ErrUnrecoverable
}
