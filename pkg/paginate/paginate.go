package paginate

import (
	"encoding/json"
	"strconv"
)

const (
	DefaultLimit  = 50
	DefaultOffset = 0
)

// Metadata contains paged info for any listed responses
// helps LLMs to understand status of pagination
type Metadata struct {
	Total      int  `json:"total"`
	Offset     int  `json:"offset"`
	Limit      int  `json:"limit"`
	HasMore    bool `json:"hasMore"`
	NextOffset int  `json:"nextOffset"`
}

// Response wraps a list data with paged metadata
type Response[T any] struct {
	Data       []T      `json:"data"`
	Pagination Metadata `json:"pagination"`
}

// ParseParams extracts limit and offset from request arguments. Values may
// arrive as strings or JSON numbers depending on the client.
func ParseParams(args any) (int, int) {
	limit := DefaultLimit
	offset := DefaultOffset

	m, ok := args.(map[string]any)
	if !ok {
		return limit, offset
	}

	if v, ok := toInt(m["limit"]); ok && v > 0 {
		limit = v
	}
	if v, ok := toInt(m["offset"]); ok && v >= 0 {
		offset = v
	}
	return limit, offset
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// Array returns the paged subset for list data.
func Array[T any](arr []T, offset, limit int) []T {
	if limit <= 0 || offset >= len(arr) {
		return []T{}
	}

	end := offset + limit
	if end > len(arr) {
		end = len(arr)
	}
	return arr[offset:end]
}

// Wrap wraps paginated data and metadata into json.
func Wrap[T any](data []T, total, offset, limit int) ([]byte, error) {
	nextOffset := offset + limit
	if nextOffset >= total {
		nextOffset = -1
	}

	hasMore := nextOffset != -1

	return json.Marshal(Response[T]{
		Data: data,
		Pagination: Metadata{
			Total:      total,
			Offset:     offset,
			Limit:      limit,
			HasMore:    hasMore,
			NextOffset: nextOffset,
		},
	})
}
