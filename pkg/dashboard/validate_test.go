package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, text string) *Dashboard {
	t.Helper()
	m, _, err := Parse(text)
	require.NoError(t, err)
	return FromMap(m)
}

func TestValidate_MissingTitle(t *testing.T) {
	d := load(t, `{"panels": []}`)

	r := Validate(d)
	assert.False(t, r.OK)
	assert.Equal(t, []string{ErrTitleRequired}, r.Errors)

	// read-only: nothing was filled in
	assert.Zero(t, d.SchemaVersion)
	assert.Empty(t, d.UID)
}

func TestValidateAndFix_DuplicatePanelIDs(t *testing.T) {
	d := load(t, `{
		"title": "X", "uid": "x", "refresh": "5s", "schemaVersion": 39,
		"time": {"from": "now-1h", "to": "now"},
		"panels": [
			{"id": 1, "title": "A", "type": "stat", "gridPos": {"x": 0, "y": 0, "w": 12, "h": 8}, "targets": [{"refId": "A", "expr": "up"}]},
			{"id": 1, "title": "B", "type": "stat", "gridPos": {"x": 12, "y": 0, "w": 12, "h": 8}, "targets": [{"refId": "A", "expr": "up"}]}
		]
	}`)

	r := ValidateAndFix(d)
	assert.True(t, r.OK)
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "duplicate panel id reassigned")
	assert.Equal(t, 1, d.Panels[0].ID)
	assert.Equal(t, 2, d.Panels[1].ID)

	after := Validate(d)
	assert.True(t, after.OK)
	assert.Empty(t, after.Errors)
}

func TestValidateAndFix_Idempotent(t *testing.T) {
	d := load(t, `{
		"title": "Messy",
		"panels": [
			{"title": "no id", "gridPos": {"x": -2, "y": 0, "w": 30, "h": 0}},
			{"id": 3, "title": "three", "gridPos": {"x": 0, "y": 8, "w": 6, "h": 4}, "targets": [{"expr": "a"}, {"refId": "A", "expr": "b"}, {"refId": "A", "expr": "c"}]},
			{"id": 3, "title": "dup", "gridPos": {"x": 20, "y": 8, "w": 8, "h": 4}},
			{"id": 0, "title": "zero", "type": "row", "gridPos": {"x": 0, "y": 12, "w": 24, "h": 1},
			 "panels": [{"id": 3, "title": "nested", "gridPos": {"x": 0, "y": 13, "w": 24, "h": 8}}]}
		]
	}`)

	first := ValidateAndFix(d)
	assert.True(t, first.OK, first.Errors)
	assert.NotEmpty(t, first.Warnings)

	second := ValidateAndFix(d)
	assert.True(t, second.OK)
	assert.Empty(t, second.Warnings)

	ids := map[int]bool{}
	d.walkPanels(func(p *Panel) bool {
		assert.False(t, ids[p.ID], "id %d used twice", p.ID)
		ids[p.ID] = true
		return true
	})
	assert.Equal(t, []int{1, 3, 2, 4}, []int{d.Panels[0].ID, d.Panels[1].ID, d.Panels[2].ID, d.Panels[3].ID})
	assert.Equal(t, 5, d.Panels[3].Panels[0].ID)

	assert.Equal(t, GridPos{X: 0, Y: 0, W: 24, H: DefaultPanelHeight}, d.Panels[0].GridPos)
	assert.Equal(t, 16, d.Panels[2].GridPos.X)

	refs := []string{}
	for _, tg := range d.Panels[1].Targets {
		refs = append(refs, tg.RefID)
	}
	assert.Equal(t, []string{"B", "A", "C"}, refs)
}

func TestValidate_HardErrors(t *testing.T) {
	d := load(t, `{
		"title": "Errors", "uid": "e", "refresh": "5s", "schemaVersion": 39,
		"time": {"from": "now-1h", "to": "now"},
		"panels": [
			{"id": 1, "title": "A", "gridPos": {"x": 0, "y": 0, "w": 12, "h": 8}},
			{"id": 2, "title": "B", "gridPos": {"x": 6, "y": 4, "w": 12, "h": 8}}
		],
		"templating": {"list": [
			{"name": "env", "type": "custom"},
			{"name": "env", "type": "custom"},
			{"name": "weird", "type": "magic"},
			{"type": "query"}
		]}
	}`)

	r := ValidateAndFix(d)
	assert.False(t, r.OK)
	assert.ElementsMatch(t, []string{
		"panels 1 and 2 overlap",
		`duplicate variable name "env"`,
		`variable "weird" has invalid type "magic"`,
		"variable at position 4 has no name",
	}, r.Errors)
	// overlap is never resolved implicitly
	assert.Equal(t, 6, d.Panels[1].GridPos.X)
	assert.Equal(t, "env", d.Templating[1].Name)
}

func TestValidate_Advisories(t *testing.T) {
	d := load(t, `{
		"title": "Adv", "uid": "a", "refresh": "whenever", "schemaVersion": 39,
		"time": {"from": "last tuesday", "to": "now"},
		"panels": [{"id": 1, "title": "Empty", "type": "timeseries", "gridPos": {"x": 0, "y": 0, "w": 12, "h": 8}},
		           {"id": 2, "title": "Notes", "type": "text", "gridPos": {"x": 12, "y": 0, "w": 12, "h": 8}},
		           {"id": 3, "title": "Future", "type": "xychart2", "gridPos": {"x": 0, "y": 8, "w": 12, "h": 8}, "targets": [{"refId": "A"}]}]
	}`)

	r := Validate(d)
	assert.True(t, r.OK)
	assert.Contains(t, r.Warnings, `panel 1 ("Empty") has no targets or datasource`)
	assert.Contains(t, r.Warnings, `panel 3 has unrecognized type "xychart2", kept as is`)
	assert.Contains(t, r.Warnings, `unusual time range from value "last tuesday"`)
	assert.Contains(t, r.Warnings, `unusual refresh interval "whenever"`)
	for _, w := range r.Warnings {
		assert.NotContains(t, w, "Notes")
	}
}

func TestValidate_AdvisoriesUseAssignedIDs(t *testing.T) {
	d := load(t, `{
		"title": "Ids", "uid": "i", "refresh": "5s", "schemaVersion": 39,
		"time": {"from": "now-1h", "to": "now"},
		"panels": [{"id": 1, "title": "First", "type": "stat", "gridPos": {"x": 0, "y": 0, "w": 12, "h": 8}, "targets": [{"refId": "A"}]},
		           {"title": "Second", "type": "stat", "gridPos": {"x": 12, "y": 0, "w": 12, "h": 8}}]
	}`)

	r := Validate(d)
	assert.True(t, r.OK)
	assert.Contains(t, r.Warnings, `panel 2 ("Second") has no targets or datasource`)
	for _, w := range r.Warnings {
		assert.NotContains(t, w, "panel 0")
	}
	assert.Zero(t, d.Panels[1].ID)
}

func TestRefIDName(t *testing.T) {
	tests := map[int]string{0: "A", 1: "B", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA"}
	for in, want := range tests {
		assert.Equal(t, want, refIDName(in))
	}
}
