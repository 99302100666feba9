package dashboard

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/timeutil"
)

const ErrTitleRequired = "title is required"

// Report is the outcome of a validation run. Errors are problems that need a
// caller decision; Warnings describe repairs that were applied (or, for
// Validate, would be applied) and advisory findings.
type Report struct {
	OK       bool     `json:"ok"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ValidationError carries the hard errors of a document that could not be
// repaired automatically.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "dashboard is invalid: " + strings.Join(e.Errors, "; ")
}

// Validate checks d without modifying it. Findings that ValidateAndFix would
// repair are reported as warnings.
func Validate(d *Dashboard) Report {
	fixed := d.Clone()
	r := ValidateAndFix(fixed)
	r.Warnings = append(r.Warnings, advisories(fixed)...)
	return r
}

// ValidateAndFix normalizes d in place and reports what it changed. Running it
// again on its own output produces no warnings.
func ValidateAndFix(d *Dashboard) Report {
	c := &checker{d: d}
	c.requiredFields()
	c.panelIDs()
	c.gridBounds()
	c.overlaps()
	c.variables()
	c.refIDs()

	return Report{
		OK:       len(c.errors) == 0,
		Errors:   c.errors,
		Warnings: c.warnings,
	}
}

type checker struct {
	d        *Dashboard
	errors   []string
	warnings []string
}

func (c *checker) errorf(format string, args ...any) {
	c.errors = append(c.errors, fmt.Sprintf(format, args...))
}

func (c *checker) warnf(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

func (c *checker) requiredFields() {
	d := c.d
	if strings.TrimSpace(d.Title) == "" {
		c.errors = append(c.errors, ErrTitleRequired)
	}
	if d.SchemaVersion <= 0 {
		d.SchemaVersion = DefaultSchemaVersion
		c.warnf("schemaVersion was missing, set to %d", DefaultSchemaVersion)
	}
	if d.Time.From == "" {
		d.Time.From = DefaultTimeFrom
		c.warnf("time.from was missing, set to %q", DefaultTimeFrom)
	}
	if d.Time.To == "" {
		d.Time.To = DefaultTimeTo
		c.warnf("time.to was missing, set to %q", DefaultTimeTo)
	}
	if d.Refresh == "" {
		d.Refresh = DefaultRefresh
		c.warnf("refresh was missing, set to %q", DefaultRefresh)
	}
	if d.UID == "" {
		d.UID = uuid.New().String()
		c.warnf("uid was missing, generated a new one")
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	d.walkPanels(func(p *Panel) bool {
		if p.Type == "" {
			p.Type = PanelTimeseries
			c.warnf("panel %q had no type, set to %q", p.Title, PanelTimeseries)
		}
		return true
	})
}

func (c *checker) panelIDs() {
	c.warnings = append(c.warnings, fixPanelIDs(c.d)...)
}

// fixPanelIDs gives every panel without an id, or with an id already used by an
// earlier panel, the smallest positive id not used anywhere in the dashboard.
// Order is preserved and the first holder of an id keeps it.
func fixPanelIDs(d *Dashboard) []string {
	claimed := map[int]bool{}
	d.walkPanels(func(p *Panel) bool {
		if p.ID > 0 {
			claimed[p.ID] = true
		}
		return true
	})

	var warnings []string
	seen := map[int]bool{}
	next := 1
	d.walkPanels(func(p *Panel) bool {
		if p.ID > 0 && !seen[p.ID] {
			seen[p.ID] = true
			return true
		}
		for claimed[next] {
			next++
		}
		old := p.ID
		p.ID = next
		claimed[next] = true
		seen[next] = true
		if old > 0 {
			warnings = append(warnings, fmt.Sprintf("duplicate panel id reassigned: %d -> %d (panel %q)", old, p.ID, p.Title))
		} else {
			warnings = append(warnings, fmt.Sprintf("panel %q had no id, assigned %d", p.Title, p.ID))
		}
		return true
	})
	return warnings
}

func (c *checker) gridBounds() {
	c.d.walkPanels(func(p *Panel) bool {
		g := &p.GridPos
		if g.W <= 0 {
			g.W = DefaultPanelWidth
			c.warnf("panel %d: gridPos.w was not positive, set to %d", p.ID, DefaultPanelWidth)
		}
		if g.W > GridColumns {
			g.W = GridColumns
			c.warnf("panel %d: gridPos.w exceeded %d, clamped", p.ID, GridColumns)
		}
		if g.H <= 0 {
			g.H = DefaultPanelHeight
			c.warnf("panel %d: gridPos.h was not positive, set to %d", p.ID, DefaultPanelHeight)
		}
		if g.X < 0 {
			g.X = 0
			c.warnf("panel %d: gridPos.x was negative, set to 0", p.ID)
		}
		if g.Y < 0 {
			g.Y = 0
			c.warnf("panel %d: gridPos.y was negative, set to 0", p.ID)
		}
		if g.X+g.W > GridColumns {
			g.X = GridColumns - g.W
			c.warnf("panel %d: extended past column %d, moved to x=%d", p.ID, GridColumns, g.X)
		}
		return true
	})
}

// overlaps only compares top-level panels; children of collapsed rows are not
// placed on the grid until the row is expanded.
func (c *checker) overlaps() {
	for _, pair := range overlappingPairs(c.d.Panels) {
		c.errorf("panels %d and %d overlap", pair[0].ID, pair[1].ID)
	}
}

func overlappingPairs(panels []*Panel) [][2]*Panel {
	var pairs [][2]*Panel
	for i := 0; i < len(panels); i++ {
		for j := i + 1; j < len(panels); j++ {
			if panels[i].GridPos.Overlaps(panels[j].GridPos) {
				pairs = append(pairs, [2]*Panel{panels[i], panels[j]})
			}
		}
	}
	return pairs
}

// variables never renames or retypes: a variable name is referenced from
// queries as $name.
func (c *checker) variables() {
	seen := map[string]bool{}
	for i, v := range c.d.Templating {
		if strings.TrimSpace(v.Name) == "" {
			c.errorf("variable at position %d has no name", i+1)
			continue
		}
		if seen[v.Name] {
			c.errorf("duplicate variable name %q", v.Name)
		}
		seen[v.Name] = true
		if !v.Type.Valid() {
			c.errorf("variable %q has invalid type %q", v.Name, v.Type)
		}
	}
}

func (c *checker) refIDs() {
	c.d.walkPanels(func(p *Panel) bool {
		claimed := map[string]bool{}
		for _, t := range p.Targets {
			if t.RefID != "" {
				claimed[t.RefID] = true
			}
		}
		seen := map[string]bool{}
		next := 0
		for i := range p.Targets {
			t := &p.Targets[i]
			if t.RefID != "" && !seen[t.RefID] {
				seen[t.RefID] = true
				continue
			}
			for claimed[refIDName(next)] {
				next++
			}
			old := t.RefID
			t.RefID = refIDName(next)
			claimed[t.RefID] = true
			seen[t.RefID] = true
			if old == "" {
				c.warnf("panel %d: target without refId assigned %q", p.ID, t.RefID)
			} else {
				c.warnf("panel %d: duplicate refId %q reassigned to %q", p.ID, old, t.RefID)
			}
		}
		return true
	})
}

// refIDName maps 0..25 to A..Z, then 26 to AA and so on.
func refIDName(i int) string {
	name := ""
	for i >= 0 {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
	}
	return name
}

// advisories are findings Validate reports but nothing repairs.
func advisories(d *Dashboard) []string {
	var out []string
	if len(d.Panels) == 0 {
		out = append(out, "dashboard has no panels")
	}
	d.walkPanels(func(p *Panel) bool {
		if p.Type != "" && !p.Type.Known() {
			out = append(out, fmt.Sprintf("panel %d has unrecognized type %q, kept as is", p.ID, p.Type))
		}
		if p.Type.queriesData() && len(p.Targets) == 0 && p.Datasource == nil {
			out = append(out, fmt.Sprintf("panel %d (%q) has no targets or datasource", p.ID, p.Title))
		}
		return true
	})
	if d.Time.From != "" && !timeutil.IsGrafanaTime(d.Time.From) {
		out = append(out, fmt.Sprintf("unusual time range from value %q", d.Time.From))
	}
	if d.Time.To != "" && !timeutil.IsGrafanaTime(d.Time.To) {
		out = append(out, fmt.Sprintf("unusual time range to value %q", d.Time.To))
	}
	if d.Refresh != "" {
		if _, err := timeutil.ParseRefresh(d.Refresh); err != nil {
			out = append(out, fmt.Sprintf("unusual refresh interval %q", d.Refresh))
		}
	}
	return out
}
