// Package dashboard models Grafana dashboard documents: lenient loading of
// untrusted JSON, structural validation and repair, a fluent builder, merging
// and grid layout. Only a subset of Grafana's schema is typed; every other key
// is carried in Extra maps and written back untouched.
package dashboard

import "fmt"

// DataSource references a Grafana datasource. UID may be a template reference
// such as ${POSTGRES}.
type DataSource struct {
	Type string
	UID  string
}

// GridPos is a panel rectangle on the 24 column grid.
type GridPos struct {
	X int
	Y int
	W int
	H int
}

// Overlaps reports whether the two rectangles share any cell.
func (g GridPos) Overlaps(o GridPos) bool {
	return !(g.X+g.W <= o.X || o.X+o.W <= g.X || g.Y+g.H <= o.Y || o.Y+o.H <= g.Y)
}

// Bottom is the first row below the rectangle.
func (g GridPos) Bottom() int {
	return g.Y + g.H
}

type TimeRange struct {
	From string
	To   string
}

// Target is a single query feeding a panel. Expr is used by metric datasources,
// RawSQL and Format by SQL datasources.
type Target struct {
	RefID      string
	Datasource *DataSource
	Expr       string
	RawSQL     string
	Format     string
	Extra      map[string]any
}

// Text returns whichever query payload the target carries.
func (t Target) Text() string {
	if t.Expr != "" {
		return t.Expr
	}
	return t.RawSQL
}

type Panel struct {
	ID          int
	Title       string
	Type        PanelType
	GridPos     GridPos
	Targets     []Target
	Datasource  *DataSource
	Description string
	// Panels holds the children of a collapsed row.
	Panels []*Panel
	Extra  map[string]any
}

// NewPanel returns a panel with the default grid size and no id.
func NewPanel(title string, typ PanelType) *Panel {
	return &Panel{
		Title:   title,
		Type:    typ,
		GridPos: GridPos{W: DefaultPanelWidth, H: DefaultPanelHeight},
	}
}

type VariableOption struct {
	Text     string
	Value    string
	Selected bool
}

type Variable struct {
	Name       string
	Type       VariableType
	Label      string
	Query      string
	Datasource *DataSource
	Options    []VariableOption
	Current    map[string]any
	Multi      bool
	IncludeAll bool
	Extra      map[string]any
}

func (v *Variable) String() string {
	s := fmt.Sprintf("Variable: $%s\n  Type: %s\n", v.Name, v.Type)
	if v.Label != "" {
		s += fmt.Sprintf("  Label: %s\n", v.Label)
	}
	if v.Query != "" {
		s += fmt.Sprintf("  Query: %s\n", v.Query)
	}
	if v.Datasource != nil {
		s += fmt.Sprintf("  Datasource: %s (%s)\n", v.Datasource.UID, v.Datasource.Type)
	}
	if len(v.Options) > 0 {
		s += "  Options:"
		for _, o := range v.Options {
			s += " " + o.Value
		}
		s += "\n"
	}
	if cur, ok := v.Current["text"]; ok {
		s += fmt.Sprintf("  Current Value: %v\n", cur)
	}
	s += fmt.Sprintf("  Flags: multi=%t includeAll=%t\n", v.Multi, v.IncludeAll)
	return s
}

type Annotation struct {
	Name       string
	Datasource *DataSource
	Enable     bool
	Hide       bool
	IconColor  string
	Type       string
	BuiltIn    int
	Extra      map[string]any
}

// NewBuiltinAnnotation returns Grafana's default "Annotations & Alerts" entry.
func NewBuiltinAnnotation() *Annotation {
	return &Annotation{
		Name:       "Annotations & Alerts",
		Datasource: &DataSource{Type: "grafana", UID: "-- Grafana --"},
		Enable:     true,
		Hide:       true,
		IconColor:  "rgba(0, 211, 255, 1)",
		Type:       "dashboard",
		BuiltIn:    1,
	}
}

// Dashboard is the root document. It owns its panels, variables and
// annotations; use Clone before handing a copy to code that may mutate it.
type Dashboard struct {
	UID           string
	Title         string
	Description   string
	Tags          []string
	Time          TimeRange
	Refresh       string
	SchemaVersion int
	Panels        []*Panel
	Templating    []*Variable
	Annotations   []*Annotation
	Extra         map[string]any
}

// New returns a dashboard with default time range, refresh and schema version.
func New(title string) *Dashboard {
	return &Dashboard{
		Title:         title,
		Tags:          []string{},
		Time:          TimeRange{From: DefaultTimeFrom, To: DefaultTimeTo},
		Refresh:       DefaultRefresh,
		SchemaVersion: DefaultSchemaVersion,
	}
}

// AddPanel appends p. A panel without an id gets max(id)+1, and a panel left at
// the origin is stacked below the existing ones.
func (d *Dashboard) AddPanel(p *Panel) *Panel {
	if p.ID <= 0 {
		p.ID = d.maxPanelID() + 1
	}
	if p.GridPos.W <= 0 {
		p.GridPos.W = DefaultPanelWidth
	}
	if p.GridPos.H <= 0 {
		p.GridPos.H = DefaultPanelHeight
	}
	if p.GridPos.X == 0 && p.GridPos.Y == 0 && len(d.Panels) > 0 {
		p.GridPos.Y = d.bottom()
	}
	d.Panels = append(d.Panels, p)
	return p
}

// RemovePanel deletes the panel with the given id, including panels nested in
// rows. Removing an absent id is a no-op.
func (d *Dashboard) RemovePanel(id int) bool {
	return removePanel(&d.Panels, id)
}

func removePanel(panels *[]*Panel, id int) bool {
	for i, p := range *panels {
		if p.ID == id {
			*panels = append((*panels)[:i], (*panels)[i+1:]...)
			return true
		}
		if removePanel(&p.Panels, id) {
			return true
		}
	}
	return false
}

// GetPanelByID returns the panel with the given id, or nil.
func (d *Dashboard) GetPanelByID(id int) *Panel {
	var found *Panel
	d.walkPanels(func(p *Panel) bool {
		if p.ID == id {
			found = p
			return false
		}
		return true
	})
	return found
}

// GetPanelsByType returns every panel of type t in document order.
func (d *Dashboard) GetPanelsByType(t PanelType) []*Panel {
	var out []*Panel
	d.walkPanels(func(p *Panel) bool {
		if p.Type == t {
			out = append(out, p)
		}
		return true
	})
	return out
}

// AddVariable appends v, replacing an existing variable with the same name.
func (d *Dashboard) AddVariable(v *Variable) {
	for i, existing := range d.Templating {
		if existing.Name == v.Name {
			d.Templating[i] = v
			return
		}
	}
	d.Templating = append(d.Templating, v)
}

// RemoveVariable deletes the named variable. Removing an absent name is a no-op.
func (d *Dashboard) RemoveVariable(name string) bool {
	for i, v := range d.Templating {
		if v.Name == name {
			d.Templating = append(d.Templating[:i], d.Templating[i+1:]...)
			return true
		}
	}
	return false
}

// GetVariable returns the named variable, or nil.
func (d *Dashboard) GetVariable(name string) *Variable {
	for _, v := range d.Templating {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// walkPanels visits panels depth first in document order until fn returns false.
func (d *Dashboard) walkPanels(fn func(*Panel) bool) {
	var walk func([]*Panel) bool
	walk = func(panels []*Panel) bool {
		for _, p := range panels {
			if !fn(p) || !walk(p.Panels) {
				return false
			}
		}
		return true
	}
	walk(d.Panels)
}

func (d *Dashboard) maxPanelID() int {
	highest := 0
	d.walkPanels(func(p *Panel) bool {
		if p.ID > highest {
			highest = p.ID
		}
		return true
	})
	return highest
}

// bottom is the first free row below every top-level panel.
func (d *Dashboard) bottom() int {
	y := 0
	for _, p := range d.Panels {
		if b := p.GridPos.Bottom(); b > y {
			y = b
		}
	}
	return y
}
