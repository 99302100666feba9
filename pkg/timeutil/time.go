package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// relativeExpr matches Grafana relative times: now, now-6h, now+1d, now/d, now-1w/w.
var relativeExpr = regexp.MustCompile(`^now([+-]\d+[smhdwMy])?(/[smhdwMy])?$`)

var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var unitDurations = map[byte]time.Duration{
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
	'M': 30 * 24 * time.Hour,
	'y': 365 * 24 * time.Hour,
}

// ParseTimeRange parses time range strings like "2h", "30m", "7d", "2w" or "1y".
func ParseTimeRange(timeRange string) (time.Duration, error) {
	duration, err := time.ParseDuration(timeRange)
	if err == nil {
		return duration, nil
	}

	if len(timeRange) > 1 {
		unit, ok := unitDurations[timeRange[len(timeRange)-1]]
		if n, err := strconv.Atoi(timeRange[:len(timeRange)-1]); ok && err == nil {
			return time.Duration(n) * unit, nil
		}
	}

	return 0, fmt.Errorf("invalid time range format: use formats like '2h', '30m', '2d', '7d'")
}

// ParseRefresh parses a dashboard auto-refresh interval such as "5s" or "1d".
func ParseRefresh(refresh string) (time.Duration, error) {
	d, err := ParseTimeRange(refresh)
	if err != nil {
		return 0, fmt.Errorf("invalid refresh interval %q: %w", refresh, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid refresh interval %q: must be positive", refresh)
	}
	return d, nil
}

// IsRelative reports whether expr is a relative Grafana time expression.
func IsRelative(expr string) bool {
	return relativeExpr.MatchString(strings.TrimSpace(expr))
}

// IsGrafanaTime reports whether expr is something Grafana accepts as a time
// range bound: a relative expression, an absolute date or epoch milliseconds.
func IsGrafanaTime(expr string) bool {
	expr = strings.TrimSpace(expr)
	if IsRelative(expr) {
		return true
	}
	if _, err := strconv.ParseInt(expr, 10, 64); err == nil {
		return true
	}
	for _, layout := range absoluteLayouts {
		if _, err := time.Parse(layout, expr); err == nil {
			return true
		}
	}
	return false
}
