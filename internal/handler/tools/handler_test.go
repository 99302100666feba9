package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/Karan96Kaushik/gen-grafana-ai/internal/client"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/contextutil"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/manager"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/search"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/store"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/telemetry"
)

type fakeLLM struct {
	mu      sync.Mutex
	replies []string
	calls   int
}

func (f *fakeLLM) Complete(_ context.Context, _ client.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.replies) == 0 {
		return "", nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func newTestHandler(t *testing.T, llm manager.Completer, opts Options) *Handler {
	t.Helper()
	log := zap.NewNop()
	st, err := store.Open(log, filepath.Join(t.TempDir(), "dashboards.db"), 8)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	idx, err := search.New(log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	mgr := manager.New(log, st, nil, manager.Options{Columns: 2, Index: idx})
	opts.Index = idx
	opts.LLM = llm
	h, err := NewHandler(log, mgr, st, opts)
	require.NoError(t, err)
	return h
}

func callTool(t *testing.T, ctx context.Context, fn server.ToolHandlerFunc, args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := fn(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "unexpected content type %T", res.Content[0])
	return text.Text, res.IsError
}

func decode(t *testing.T, text string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &out), text)
	return out
}

const overlapping = `{
	"title": "Overlap",
	"panels": [
		{"id": 1, "title": "a", "type": "stat", "gridPos": {"x": 0, "y": 0, "w": 12, "h": 8}, "targets": [{"refId": "A", "expr": "up"}]},
		{"id": 2, "title": "b", "type": "stat", "gridPos": {"x": 6, "y": 4, "w": 12, "h": 8}, "targets": [{"refId": "A", "expr": "up"}]}
	]
}`

func TestParseDashboard(t *testing.T) {
	h := newTestHandler(t, nil, Options{})
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError string
		wantTitle string
	}{
		{
			name:      "fenced with trailing commas",
			args:      map[string]any{"text": "Sure!\n```json\n{\"title\": \"Fenced\", \"panels\": [{\"title\": \"p\"},],}\n```"},
			wantTitle: "Fenced",
		},
		{
			name:      "no json at all",
			args:      map[string]any{"text": `I could not build "title": "Recovered" today`},
			wantTitle: "Recovered",
		},
		{
			name:      "missing text",
			args:      map[string]any{},
			wantError: "Parameter validation failed",
		},
		{
			name:      "whitespace only",
			args:      map[string]any{"text": "   "},
			wantError: "Failed to parse dashboard",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := callTool(t, ctx, h.handleParseDashboard, tt.args)
			if tt.wantError != "" {
				assert.True(t, isErr)
				assert.Contains(t, text, tt.wantError)
				return
			}
			require.False(t, isErr, text)
			out := decode(t, text)
			assert.Equal(t, tt.wantTitle, out["dashboard"].(map[string]any)["title"])
			report := out["report"].(map[string]any)
			assert.Equal(t, true, report["ok"])
			assert.NotEmpty(t, report["warnings"])
		})
	}
}

func TestValidateDashboard(t *testing.T) {
	h := newTestHandler(t, nil, Options{})
	ctx := context.Background()

	text, isErr := callTool(t, ctx, h.handleValidateDashboard, map[string]any{"dashboard": overlapping})
	require.False(t, isErr, text)
	report := decode(t, text)
	assert.Equal(t, false, report["ok"])
	assert.Contains(t, report["errors"], "panels 1 and 2 overlap")
	assert.Nil(t, report["dashboard"])

	dup := map[string]any{
		"title": "Dup",
		"panels": []any{
			map[string]any{"id": float64(1), "title": "a", "gridPos": map[string]any{"x": float64(0), "y": float64(0), "w": float64(12), "h": float64(8)}},
			map[string]any{"id": float64(1), "title": "b", "gridPos": map[string]any{"x": float64(12), "y": float64(0), "w": float64(12), "h": float64(8)}},
		},
	}
	text, isErr = callTool(t, ctx, h.handleValidateDashboard, map[string]any{"dashboard": dup, "fix": "true"})
	require.False(t, isErr, text)
	out := decode(t, text)
	assert.Equal(t, true, out["report"].(map[string]any)["ok"])
	panels := out["dashboard"].(map[string]any)["panels"].([]any)
	require.Len(t, panels, 2)
	assert.Equal(t, float64(1), panels[0].(map[string]any)["id"])
	assert.Equal(t, float64(2), panels[1].(map[string]any)["id"])

	text, isErr = callTool(t, ctx, h.handleValidateDashboard, map[string]any{"dashboard": dup, "fix": "maybe"})
	assert.True(t, isErr)
	assert.Contains(t, text, `"fix" must be true or false`)

	text, isErr = callTool(t, ctx, h.handleValidateDashboard, map[string]any{"dashboard": float64(3)})
	assert.True(t, isErr)
	assert.Contains(t, text, "must be a JSON object")
}

func TestAutoLayout(t *testing.T) {
	h := newTestHandler(t, nil, Options{Columns: 2})
	ctx := context.Background()

	text, isErr := callTool(t, ctx, h.handleAutoLayout, map[string]any{"dashboard": overlapping})
	require.False(t, isErr, text)
	out := decode(t, text)
	assert.Equal(t, true, out["report"].(map[string]any)["ok"])
	panels := out["dashboard"].(map[string]any)["panels"].([]any)
	second := panels[1].(map[string]any)["gridPos"].(map[string]any)
	assert.Equal(t, float64(12), second["x"])
	assert.Equal(t, float64(12), second["w"])

	text, isErr = callTool(t, ctx, h.handleAutoLayout, map[string]any{"dashboard": overlapping, "columns": float64(3)})
	require.False(t, isErr, text)
	panels = decode(t, text)["dashboard"].(map[string]any)["panels"].([]any)
	assert.Equal(t, float64(8), panels[1].(map[string]any)["gridPos"].(map[string]any)["x"])

	for _, columns := range []any{"0", float64(25), "three"} {
		_, isErr = callTool(t, ctx, h.handleAutoLayout, map[string]any{"dashboard": overlapping, "columns": columns})
		assert.True(t, isErr, "columns=%v", columns)
	}
}

func TestMergeDashboards(t *testing.T) {
	h := newTestHandler(t, nil, Options{})
	ctx := context.Background()
	base := `{"title": "Base", "panels": [{"id": 1, "title": "CPU", "type": "stat", "gridPos": {"x": 0, "y": 0, "w": 12, "h": 8}}]}`
	other := `{"title": "Other", "panels": [{"id": 1, "title": "Disk", "type": "gauge", "gridPos": {"x": 0, "y": 0, "w": 12, "h": 8}}]}`

	text, isErr := callTool(t, ctx, h.handleMergeDashboards, map[string]any{"base": base, "other": other})
	require.False(t, isErr, text)
	out := decode(t, text)
	merged := out["dashboard"].(map[string]any)
	assert.Equal(t, "Base", merged["title"])
	assert.Len(t, merged["panels"], 2)
	assert.Equal(t, true, out["report"].(map[string]any)["ok"])

	text, isErr = callTool(t, ctx, h.handleMergeDashboards, map[string]any{"base": base, "other": other, "strategy": "replace"})
	require.False(t, isErr, text)
	panels := decode(t, text)["dashboard"].(map[string]any)["panels"].([]any)
	require.Len(t, panels, 1)
	assert.Equal(t, "Disk", panels[0].(map[string]any)["title"])

	text, isErr = callTool(t, ctx, h.handleMergeDashboards, map[string]any{"base": base, "other": other, "strategy": "zip"})
	assert.True(t, isErr)
	assert.Contains(t, text, "unknown merge strategy")

	_, isErr = callTool(t, ctx, h.handleMergeDashboards, map[string]any{"base": base})
	assert.True(t, isErr)
}

func TestSaveListGetSearch(t *testing.T) {
	h := newTestHandler(t, nil, Options{})
	ctx := context.Background()

	text, isErr := callTool(t, ctx, h.handleSaveDashboard, map[string]any{"dashboard": map[string]any{
		"title": "Checkout Latency",
		"tags":  []any{"prod"},
		"panels": []any{
			map[string]any{"title": "p99 latency", "type": "timeseries", "targets": []any{map[string]any{"expr": "histogram_quantile(0.99, checkout_seconds)"}}},
		},
	}})
	require.False(t, isErr, text)
	saved := decode(t, text)
	assert.Equal(t, "checkout-latency", saved["slug"])
	assert.Equal(t, float64(1), saved["version"])

	text, isErr = callTool(t, ctx, h.handleSaveDashboard, map[string]any{"dashboard": overlapping})
	assert.True(t, isErr)
	assert.Contains(t, text, "panels 1 and 2 overlap")

	tests := []struct {
		name      string
		args      map[string]any
		wantTotal float64
	}{
		{name: "all", args: map[string]any{}, wantTotal: 1},
		{name: "tag", args: map[string]any{"tag": "PROD"}, wantTotal: 1},
		{name: "other tag", args: map[string]any{"tag": "dev"}, wantTotal: 0},
		{name: "pattern", args: map[string]any{"namePattern": "^Checkout"}, wantTotal: 1},
		{name: "no match", args: map[string]any{"namePattern": "orders"}, wantTotal: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := callTool(t, ctx, h.handleListDashboards, tt.args)
			require.False(t, isErr, text)
			out := decode(t, text)
			assert.Equal(t, tt.wantTotal, out["pagination"].(map[string]any)["total"])
		})
	}

	text, isErr = callTool(t, ctx, h.handleListDashboards, map[string]any{"namePattern": "("})
	assert.True(t, isErr)
	assert.Contains(t, text, "Invalid regex pattern")

	text, isErr = callTool(t, ctx, h.handleGetDashboard, map[string]any{"ref": "checkout-latency"})
	require.False(t, isErr, text)
	got := decode(t, text)
	assert.Equal(t, "Checkout Latency", got["dashboard"].(map[string]any)["title"])
	assert.Equal(t, saved["id"], got["id"])

	text, isErr = callTool(t, ctx, h.handleGetDashboard, map[string]any{"ref": "missing"})
	assert.True(t, isErr)
	assert.Contains(t, text, `Dashboard "missing" not found`)

	text, isErr = callTool(t, ctx, h.handleSearchDashboards, map[string]any{"query": "checkout"})
	require.False(t, isErr, text)
	found := decode(t, text)
	assert.Equal(t, float64(1), found["total"])

	_, isErr = callTool(t, ctx, h.handleSearchDashboards, map[string]any{"query": " "})
	assert.True(t, isErr)
}

func TestWorkflow_RequiresLLM(t *testing.T) {
	h := newTestHandler(t, nil, Options{})
	ctx := context.Background()

	for name, fn := range map[string]server.ToolHandlerFunc{
		"analyze":  h.handleAnalyzeDashboard,
		"modify":   h.handleModifyDashboard,
		"generate": h.handleGenerateDashboard,
	} {
		t.Run(name, func(t *testing.T) {
			text, isErr := callTool(t, ctx, fn, map[string]any{
				"ref": "x", "dashboard": `{"title": "x"}`, "request": "r", "title": "t", "description": "d",
			})
			assert.True(t, isErr)
			assert.Contains(t, text, "no LLM API key configured")
		})
	}
}

func TestAnalyzeDashboard(t *testing.T) {
	llm := &fakeLLM{replies: []string{"Looks healthy."}}
	h := newTestHandler(t, llm, Options{})
	ctx := context.Background()

	text, isErr := callTool(t, ctx, h.handleAnalyzeDashboard, map[string]any{"dashboard": `{"title": "Inline", "panels": []}`})
	require.False(t, isErr, text)
	assert.Equal(t, "Looks healthy.", text)

	text, isErr = callTool(t, ctx, h.handleAnalyzeDashboard, map[string]any{})
	assert.True(t, isErr)
	assert.Contains(t, text, `provide "ref" or "dashboard"`)
	assert.Equal(t, 1, llm.calls)
}

func TestGenerateAndModify(t *testing.T) {
	llm := &fakeLLM{}
	h := newTestHandler(t, llm, Options{})
	ctx := context.Background()

	llm.replies = []string{"```json\n" + `{"panels": [
		{"id": 1, "title": "Orders", "type": "stat", "targets": [{"refId": "A", "rawSql": "SELECT count(*) FROM orders"}]},
		{"id": 2, "title": "Legacy", "type": "graph", "targets": [{"refId": "A", "rawSql": "SELECT 1"}]}
	]}` + "\n```"}
	text, isErr := callTool(t, ctx, h.handleGenerateDashboard, map[string]any{
		"title":       "Shop",
		"description": "orders overview",
		"tables":      []any{"orders"},
		"save":        "true",
	})
	require.False(t, isErr, text)
	generated := decode(t, text)
	assert.Equal(t, "shop", generated["slug"])

	llm.replies = []string{
		"orders",
		`[{"action": "remove", "panelId": 2, "reason": "legacy graph"}]`,
	}
	text, isErr = callTool(t, ctx, h.handleModifyDashboard, map[string]any{"ref": "shop", "request": "drop the legacy panel"})
	require.False(t, isErr, text)
	modified := decode(t, text)
	assert.Equal(t, "shop-modified", modified["slug"])
	assert.Len(t, modified["dashboard"].(map[string]any)["panels"], 1)
	assert.Contains(t, modified["messages"], `removed panel "Legacy" (id 2): legacy graph`)

	llm.replies = []string{"orders", "[]"}
	text, isErr = callTool(t, ctx, h.handleModifyDashboard, map[string]any{"ref": "shop", "request": "nothing"})
	assert.True(t, isErr)
	assert.Contains(t, text, "did not suggest any applicable panel operations")

	_, isErr = callTool(t, ctx, h.handleModifyDashboard, map[string]any{"ref": "shop"})
	assert.True(t, isErr)
	_, isErr = callTool(t, ctx, h.handleGenerateDashboard, map[string]any{"title": "x"})
	assert.True(t, isErr)
}

func TestGetClient_CachesPerAPIKey(t *testing.T) {
	def := &fakeLLM{}
	var built []string
	h := newTestHandler(t, def, Options{
		NewLLM: func(apiKey string) manager.Completer {
			built = append(built, apiKey)
			return &fakeLLM{}
		},
	})

	ctx := context.Background()
	assert.Same(t, def, h.GetClient(ctx))

	k1 := h.GetClient(contextutil.SetAPIKey(ctx, "k1"))
	assert.NotSame(t, def, k1)
	assert.Same(t, k1, h.GetClient(contextutil.SetAPIKey(ctx, "k1")))
	assert.NotSame(t, k1, h.GetClient(contextutil.SetAPIKey(ctx, "k2")))
	assert.Equal(t, []string{"k1", "k2"}, built)

	assert.Same(t, def, h.GetClient(contextutil.SetAPIKey(ctx, "")))
}

func TestListPrompts(t *testing.T) {
	h := newTestHandler(t, nil, Options{})
	ctx := context.Background()

	text, isErr := callTool(t, ctx, h.handleListPrompts, map[string]any{"category": "grafana_workflow"})
	require.False(t, isErr, text)
	out := decode(t, text)
	data := out["data"].([]any)
	require.NotEmpty(t, data)
	for _, d := range data {
		assert.Equal(t, "grafana_workflow", d.(map[string]any)["category"])
		assert.NotContains(t, d.(map[string]any), "text")
	}

	text, isErr = callTool(t, ctx, h.handleListPrompts, map[string]any{"category": "grafana_workflow", "type": "generate"})
	require.False(t, isErr, text)
	assert.Contains(t, decode(t, text)["text"], "{title}")

	text, isErr = callTool(t, ctx, h.handleListPrompts, map[string]any{"category": "grafana_workflow", "type": "nope"})
	assert.True(t, isErr)
	assert.Contains(t, text, "unknown prompt")

	_, isErr = callTool(t, ctx, h.handleListPrompts, map[string]any{"type": "generate"})
	assert.True(t, isErr)
}

func TestInstrument_RecordsToolCalls(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()
	metrics, err := telemetry.NewMetrics(mp.Meter(telemetry.ScopeName))
	require.NoError(t, err)

	h := newTestHandler(t, nil, Options{Metrics: metrics})
	ctx := context.Background()
	fn := h.instrument("grafana_parse_dashboard", h.handleParseDashboard)
	callTool(t, ctx, fn, map[string]any{"text": `{"title": "ok", "panels": []}`})
	callTool(t, ctx, fn, map[string]any{})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if data, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[md.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), sums["grafana_ai.tool.calls"])
	assert.Equal(t, int64(1), sums["grafana_ai.tool.errors"])
}
