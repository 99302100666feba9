package search

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Karan96Kaushik/gen-grafana-ai/internal/store"
)

func rec(id int64, title, slug string, tags []string, panels ...map[string]any) *store.Record {
	ps := make([]any, 0, len(panels))
	for _, p := range panels {
		ps = append(ps, p)
	}
	data, _ := json.Marshal(map[string]any{"title": title, "panels": ps})
	return &store.Record{ID: id, Title: title, Slug: slug, Tags: tags, Data: data}
}

func fixtures() []*store.Record {
	return []*store.Record{
		rec(1, "Checkout Latency", "checkout-latency", []string{"prod"},
			map[string]any{"id": 1, "title": "p95", "targets": []any{map[string]any{"refId": "A", "rawSql": "SELECT percentile FROM payments"}}}),
		rec(2, "Node Exporter", "node-exporter", []string{"infra"},
			map[string]any{"id": 1, "title": "CPU usage", "targets": []any{map[string]any{"refId": "A", "expr": "node_cpu_seconds_total"}}}),
		{ID: 3, Title: "Broken", Slug: "broken", Data: json.RawMessage(`[1,2]`)},
	}
}

func TestReindexAndSearch(t *testing.T) {
	idx, err := New(zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	require.NoError(t, idx.Reindex(context.Background(), fixtures()))

	tests := []struct {
		query string
		want  []int64
	}{
		{query: "latency", want: []int64{1}},
		{query: "payments", want: []int64{1}},
		{query: "cpu", want: []int64{2}},
		{query: "tags:infra", want: []int64{2}},
		{query: "broken", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			hits, total, err := idx.Search(tt.query, 10)
			require.NoError(t, err)
			var ids []int64
			for _, h := range hits {
				ids = append(ids, h.ID)
			}
			assert.Equal(t, tt.want, ids)
			assert.Equal(t, uint64(len(tt.want)), total)
		})
	}

	hits, _, err := idx.Search("checkout", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Checkout Latency", hits[0].Title)
	assert.Equal(t, "checkout-latency", hits[0].Slug)
}

func TestAddAfterReindex(t *testing.T) {
	idx, err := New(zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	require.NoError(t, idx.Reindex(context.Background(), fixtures()[:1]))
	require.NoError(t, idx.Add(rec(9, "Kafka Lag", "kafka-lag", []string{"streaming"})))

	hits, _, err := idx.Search("kafka", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(9), hits[0].ID)

	require.Error(t, idx.Add(fixtures()[2]))
}

func TestSearch_EmptyQuery(t *testing.T) {
	idx, err := New(zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	_, _, err = idx.Search("  ", 5)
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestReindex_Cancelled(t *testing.T) {
	idx, err := New(zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, idx.Reindex(ctx, fixtures()), context.Canceled)
}
