package analytics

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	segment "github.com/segmentio/analytics-go/v3"
	"go.uber.org/zap"
)

const EventToolCalled = "Tool Called"

// Tracker sends usage events to Segment. A Tracker built without a write key
// drops every event.
type Tracker struct {
	client      segment.Client
	logger      *zap.Logger
	anonymousID string
}

type Options struct {
	// Endpoint overrides the Segment API host.
	Endpoint string
	Interval time.Duration
}

func New(log *zap.Logger, writeKey string, opts Options) (*Tracker, error) {
	t := &Tracker{logger: log, anonymousID: uuid.NewString()}
	if writeKey == "" {
		log.Debug("Analytics disabled, no segment key configured")
		return t, nil
	}

	client, err := segment.NewWithConfig(writeKey, segment.Config{
		Endpoint: opts.Endpoint,
		Interval: opts.Interval,
		Logger:   zapLogger{log.Sugar()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create segment client: %w", err)
	}
	t.client = client
	return t, nil
}

// Enabled reports whether events are delivered anywhere.
func (t *Tracker) Enabled() bool {
	return t != nil && t.client != nil
}

// ToolCalled records one MCP tool invocation.
func (t *Tracker) ToolCalled(tool string, failed bool, elapsed time.Duration) {
	if !t.Enabled() {
		return
	}
	err := t.client.Enqueue(segment.Track{
		AnonymousId: t.anonymousID,
		Event:       EventToolCalled,
		Properties: segment.NewProperties().
			Set("tool", tool).
			Set("failed", failed).
			Set("duration_ms", elapsed.Milliseconds()),
	})
	if err != nil {
		t.logger.Warn("Failed to enqueue analytics event", zap.String("tool", tool), zap.Error(err))
	}
}

// Close flushes pending events.
func (t *Tracker) Close() error {
	if !t.Enabled() {
		return nil
	}
	return t.client.Close()
}

type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Logf(format string, args ...any) {
	l.s.Debugf(format, args...)
}

func (l zapLogger) Errorf(format string, args ...any) {
	l.s.Warnf(format, args...)
}
