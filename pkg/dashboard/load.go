package dashboard

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/jsonrepair"
)

const WarnSkeleton = "generated minimal structure"

var (
	// ErrEmptyInput means there was nothing to parse.
	ErrEmptyInput = jsonrepair.ErrEmptyInput
	// ErrUnsupportedSource is returned by Load for sources that are neither
	// text, bytes nor a decoded JSON object.
	ErrUnsupportedSource = errors.New("unsupported dashboard source")
)

var titleField = regexp.MustCompile(`"title"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// Parse recovers a JSON object from text. Repairs are listed in the returned
// warnings; when nothing can be recovered a minimal skeleton is returned with
// WarnSkeleton. Only empty input is an error.
func Parse(text string) (map[string]any, []string, error) {
	v, warnings, err := jsonrepair.Repair(text, '{')
	if errors.Is(err, jsonrepair.ErrEmptyInput) {
		return nil, nil, ErrEmptyInput
	}
	if err == nil {
		if m, ok := v.(map[string]any); ok {
			return m, warnings, nil
		}
		if m, inner, ok := firstObject(text); ok {
			return m, append(append(warnings, jsonrepair.WarnExtracted), inner...), nil
		}
	}
	return skeleton(text), append(warnings, WarnSkeleton), nil
}

// firstObject recovers the first balanced object span of text, used when the
// text holds a valid JSON value that is not an object, such as an array
// wrapping the dashboard.
func firstObject(text string) (map[string]any, []string, bool) {
	span, ok := jsonrepair.FirstBalanced(text, '{')
	if !ok {
		return nil, nil, false
	}
	v, warnings, err := jsonrepair.Repair(span, '{')
	if err != nil {
		return nil, nil, false
	}
	m, ok := v.(map[string]any)
	return m, warnings, ok
}

// skeleton is the smallest document that lifts cleanly, keeping a title if one
// can still be found in the text.
func skeleton(text string) map[string]any {
	title := ""
	if m := titleField.FindStringSubmatch(text); m != nil {
		title = m[1]
		if unquoted, err := strconv.Unquote(`"` + m[1] + `"`); err == nil {
			title = unquoted
		}
	}
	return map[string]any{
		"title":  title,
		"panels": []any{},
		"time":   map[string]any{"from": DefaultTimeFrom, "to": DefaultTimeTo},
	}
}

// Load turns a file path, raw text (string or []byte) or an already decoded
// JSON object into a normalized Dashboard. Parse warnings come first in the
// report, followed by the fixes applied by ValidateAndFix.
func Load(source any) (*Dashboard, Report, error) {
	switch s := source.(type) {
	case map[string]any:
		return loadMap(s, nil)
	case []byte:
		return LoadText(string(s))
	case string:
		if isPath(s) {
			return LoadFile(s)
		}
		return LoadText(s)
	}
	return nil, Report{}, fmt.Errorf("%w: %T", ErrUnsupportedSource, source)
}

// LoadFile reads and loads a dashboard JSON file.
func LoadFile(path string) (*Dashboard, Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Report{}, fmt.Errorf("failed to read dashboard file: %w", err)
	}
	return LoadText(string(data))
}

// LoadText parses untrusted text and normalizes the result.
func LoadText(text string) (*Dashboard, Report, error) {
	m, warnings, err := Parse(text)
	if err != nil {
		return nil, Report{}, err
	}
	return loadMap(m, warnings)
}

func loadMap(m map[string]any, parseWarnings []string) (*Dashboard, Report, error) {
	d := FromMap(m)
	r := ValidateAndFix(d)
	r.Warnings = append(parseWarnings, r.Warnings...)
	return d, r, nil
}

// isPath treats single-line strings that name an existing file as paths.
func isPath(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" || strings.ContainsAny(t, "\n{[") {
		return false
	}
	info, err := os.Stat(t)
	return err == nil && !info.IsDir()
}
