package dashboard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/jsonrepair"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const cleanDashboard = `{
  "title": "Orders",
  "uid": "orders-1",
  "tags": ["shop"],
  "time": {"from": "now-6h", "to": "now"},
  "refresh": "30s",
  "schemaVersion": 39,
  "panels": [
    {"id": 1, "title": "Orders per minute", "type": "timeseries",
     "gridPos": {"x": 0, "y": 0, "w": 12, "h": 8},
     "targets": [{"refId": "A", "datasource": {"type": "postgres", "uid": "${POSTGRES}"}, "rawSql": "SELECT 1", "format": "time_series"}],
     "fieldConfig": {"defaults": {"unit": "short"}, "overrides": []}}
  ],
  "templating": {"list": []},
  "annotations": {"list": []}
}`

func buildSample(t *testing.T) *Dashboard {
	t.Helper()
	prom := &DataSource{Type: "prometheus", UID: "prom-main"}
	d, err := NewBuilder("Service Overview").
		WithDescription("Latency and traffic for the checkout service").
		WithTags("checkout", "prod").
		WithTimeRange("now-24h", "now").
		WithRefresh("1m").
		WithUID("svc-overview").
		WithDefaultAnnotation().
		AddTimeseriesPanel("Requests", `sum(rate(http_requests_total{job="checkout"}[5m]))`, prom).
		AddStatPanel("Error rate", `sum(rate(http_errors_total[5m]))`, prom).
		AddTablePanel("Slow orders", "SELECT id, duration FROM orders ORDER BY duration DESC LIMIT 10", &DataSource{Type: "postgres", UID: "${POSTGRES}"}).
		AddQueryVariable("instance", `label_values(up, instance)`, prom).
		AddCustomVariable("env", "prod", "staging").
		Build()
	require.NoError(t, err)
	return d
}

func TestRoundTrip(t *testing.T) {
	d := buildSample(t)
	d.Panels[0].Extra = map[string]any{
		"fieldConfig": map[string]any{"defaults": map[string]any{"unit": "reqps"}},
		"options":     map[string]any{"legend": map[string]any{"displayMode": "table"}},
	}

	data, err := d.JSON(true)
	require.NoError(t, err)

	got, report, err := LoadText(string(data))
	require.NoError(t, err)
	assert.True(t, report.OK)
	assert.Empty(t, report.Warnings)

	if diff := cmp.Diff(d, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	again, err := got.JSON(true)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestParse_CodeFenceMatchesUnwrapped(t *testing.T) {
	plain, warnings, err := Parse(cleanDashboard)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	fenced, warnings, err := Parse("```json\n" + cleanDashboard + "\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{jsonrepair.WarnCodeFence}, warnings)
	assert.Equal(t, plain, fenced)
}

func TestParse_TrailingComma(t *testing.T) {
	withComma := `{"title": "X", "panels": [{"id": 1, "title": "A"},],}`
	without := `{"title": "X", "panels": [{"id": 1, "title": "A"}]}`

	want, _, err := Parse(without)
	require.NoError(t, err)
	got, warnings, err := Parse(withComma)
	require.NoError(t, err)
	assert.Contains(t, warnings, jsonrepair.WarnTrailingComma)
	assert.Equal(t, want, got)
}

func TestParse_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   \n\t"} {
		m, warnings, err := Parse(in)
		assert.ErrorIs(t, err, ErrEmptyInput)
		assert.Nil(t, m)
		assert.Nil(t, warnings)
	}
}

func TestParse_Skeleton(t *testing.T) {
	m, warnings, err := Parse("I could not produce a dashboard, sorry.")
	require.NoError(t, err)
	assert.Equal(t, []string{WarnSkeleton}, warnings)
	assert.Equal(t, "", m["title"])
	assert.Equal(t, []any{}, m["panels"])
	assert.Equal(t, map[string]any{"from": DefaultTimeFrom, "to": DefaultTimeTo}, m["time"])

	d := FromMap(m)
	assert.Empty(t, d.Title)
	assert.Empty(t, d.Panels)
}

func TestParse_ObjectInsideArray(t *testing.T) {
	for _, in := range []string{
		`[{"title": "X", "panels": [{"id": 1, "type": "stat"}]}]`,
		"```json\n[{\"title\": \"X\", \"panels\": [{\"id\": 1, \"type\": \"stat\"}]}]\n```",
	} {
		m, warnings, err := Parse(in)
		require.NoError(t, err)
		assert.Contains(t, warnings, jsonrepair.WarnExtracted)
		assert.NotContains(t, warnings, WarnSkeleton)
		assert.Equal(t, "X", m["title"])
		assert.Len(t, m["panels"], 1)
	}
}

func TestParse_SkeletonKeepsTitle(t *testing.T) {
	m, warnings, err := Parse(`{"title": "Disk \"IO\"", "panels": [ {"id": 1, "title": }`)
	require.NoError(t, err)
	assert.Contains(t, warnings, WarnSkeleton)
	assert.Equal(t, `Disk "IO"`, m["title"])
}

func TestLoad_Sources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dash.json")
	require.NoError(t, os.WriteFile(path, []byte(cleanDashboard), 0o600))

	fromText, _, err := Load(cleanDashboard)
	require.NoError(t, err)

	fromFile, report, err := Load(path)
	require.NoError(t, err)
	assert.True(t, report.OK)
	assert.Equal(t, fromText, fromFile)

	fromBytes, _, err := Load([]byte(cleanDashboard))
	require.NoError(t, err)
	assert.Equal(t, fromText, fromBytes)

	m, _, err := Parse(cleanDashboard)
	require.NoError(t, err)
	fromMap, _, err := Load(m)
	require.NoError(t, err)
	assert.Equal(t, fromText, fromMap)

	_, _, err = Load(42)
	assert.ErrorIs(t, err, ErrUnsupportedSource)

	_, _, err = Load("")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestLoad_ReportsParseWarningsFirst(t *testing.T) {
	d, report, err := LoadText("Here you go:\n```json\n{\"title\": \"CPU\", \"panels\": [{\"title\": \"Load\"}]}\n```")
	require.NoError(t, err)
	require.NotEmpty(t, report.Warnings)
	assert.Equal(t, jsonrepair.WarnCodeFence, report.Warnings[0])
	assert.True(t, report.OK)
	assert.Equal(t, 1, d.Panels[0].ID)
	assert.Equal(t, PanelTimeseries, d.Panels[0].Type)
	assert.NotEmpty(t, d.UID)
}

func TestFromMap_Tolerance(t *testing.T) {
	m, _, err := Parse(`{
		"title": "Legacy",
		"panels": [{"id": "7", "type": "singlestat", "datasource": "MySQL", "gridPos": "bad",
			"targets": [{"refId": "A", "expr": "up", "hide": false}], "options": {"colorMode": "value"}}],
		"templating": {"list": [{"name": "host", "query": {"query": "hosts", "refId": "V"}, "regex": "/.*/"}]},
		"version": 12
	}`)
	require.NoError(t, err)

	d := FromMap(m)
	p := d.Panels[0]
	assert.Equal(t, 7, p.ID)
	assert.Equal(t, PanelType("singlestat"), p.Type)
	assert.False(t, p.Type.Known())
	assert.Equal(t, &DataSource{UID: "MySQL"}, p.Datasource)
	assert.Equal(t, GridPos{W: DefaultPanelWidth, H: DefaultPanelHeight}, p.GridPos)
	assert.Equal(t, false, p.Targets[0].Extra["hide"])
	assert.Contains(t, p.Extra, "options")

	v := d.Templating[0]
	assert.Equal(t, VariableQuery, v.Type)
	assert.Empty(t, v.Query)
	assert.Equal(t, map[string]any{"query": "hosts", "refId": "V"}, v.Extra["query"])
	assert.Equal(t, "/.*/", v.Extra["regex"])

	out := d.ToMap()
	assert.Equal(t, map[string]any{"query": "hosts", "refId": "V"}, out["templating"].(map[string]any)["list"].([]any)[0].(map[string]any)["query"])
	assert.Contains(t, out, "version")
}
