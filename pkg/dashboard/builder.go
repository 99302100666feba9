package dashboard

// Builder assembles a Dashboard through chained calls. Build returns an
// independent copy, so a builder can be reused as a template.
type Builder struct {
	d       *Dashboard
	columns int
}

// NewBuilder starts a dashboard with the given title and package defaults.
func NewBuilder(title string) *Builder {
	return &Builder{d: New(title)}
}

func (b *Builder) WithDescription(description string) *Builder {
	b.d.Description = description
	return b
}

func (b *Builder) WithTags(tags ...string) *Builder {
	b.d.Tags = append(b.d.Tags, tags...)
	return b
}

func (b *Builder) WithTimeRange(from, to string) *Builder {
	b.d.Time = TimeRange{From: from, To: to}
	return b
}

func (b *Builder) WithRefresh(refresh string) *Builder {
	b.d.Refresh = refresh
	return b
}

func (b *Builder) WithUID(uid string) *Builder {
	b.d.UID = uid
	return b
}

// WithDefaultAnnotation adds Grafana's built-in annotations entry.
func (b *Builder) WithDefaultAnnotation() *Builder {
	b.d.Annotations = append(b.d.Annotations, NewBuiltinAnnotation())
	return b
}

// WithAutoLayout re-tiles every panel into columns when Build runs.
func (b *Builder) WithAutoLayout(columns int) *Builder {
	b.columns = columns
	return b
}

// AddPanel adds p as Dashboard.AddPanel does.
func (b *Builder) AddPanel(p *Panel) *Builder {
	b.d.AddPanel(p)
	return b
}

// AddTimeseriesPanel adds a timeseries panel with a single metric query.
func (b *Builder) AddTimeseriesPanel(title, expr string, ds *DataSource) *Builder {
	p := NewPanel(title, PanelTimeseries)
	p.Datasource = ds
	p.Targets = []Target{{RefID: "A", Datasource: ds, Expr: expr, Format: DefaultTargetFormat}}
	return b.AddPanel(p)
}

// AddTablePanel adds a table panel backed by a raw SQL query.
func (b *Builder) AddTablePanel(title, rawSQL string, ds *DataSource) *Builder {
	p := NewPanel(title, PanelTable)
	p.Datasource = ds
	p.Targets = []Target{{RefID: "A", Datasource: ds, RawSQL: rawSQL, Format: "table"}}
	return b.AddPanel(p)
}

// AddStatPanel adds a small stat panel with a single metric query.
func (b *Builder) AddStatPanel(title, expr string, ds *DataSource) *Builder {
	p := NewPanel(title, PanelStat)
	p.GridPos = GridPos{W: 6, H: 4}
	p.Datasource = ds
	p.Targets = []Target{{RefID: "A", Datasource: ds, Expr: expr, Format: DefaultTargetFormat}}
	return b.AddPanel(p)
}

// AddQueryVariable adds a variable populated by a datasource query.
func (b *Builder) AddQueryVariable(name, query string, ds *DataSource) *Builder {
	b.d.AddVariable(&Variable{Name: name, Type: VariableQuery, Query: query, Datasource: ds})
	return b
}

// AddCustomVariable adds a fixed list variable; the first value is selected.
func (b *Builder) AddCustomVariable(name string, values ...string) *Builder {
	v := &Variable{Name: name, Type: VariableCustom}
	for i, value := range values {
		v.Options = append(v.Options, VariableOption{Text: value, Value: value, Selected: i == 0})
	}
	if len(values) > 0 {
		v.Current = map[string]any{"text": values[0], "value": values[0], "selected": true}
	}
	b.d.AddVariable(v)
	return b
}

// Build returns the dashboard after the same normalization ValidateAndFix
// applies. A document that still has errors is rejected with *ValidationError.
func (b *Builder) Build() (*Dashboard, error) {
	d := b.d.Clone()
	if b.columns > 0 {
		d.AutoLayout(b.columns)
	}
	if r := ValidateAndFix(d); !r.OK {
		return nil, &ValidationError{Errors: r.Errors}
	}
	return d, nil
}

// PanelSpec describes one panel for NewSimple.
type PanelSpec struct {
	Title      string
	Type       PanelType
	Query      string
	Datasource *DataSource
}

// NewSimple builds a dashboard from a flat panel list laid out two per row.
// Table panels take the query as rawSql, every other type as expr.
func NewSimple(title string, specs []PanelSpec) (*Dashboard, error) {
	b := NewBuilder(title).WithAutoLayout(DefaultColumns)
	for _, s := range specs {
		switch s.Type {
		case PanelTable:
			b.AddTablePanel(s.Title, s.Query, s.Datasource)
		case PanelStat:
			b.AddStatPanel(s.Title, s.Query, s.Datasource)
		case "", PanelTimeseries:
			b.AddTimeseriesPanel(s.Title, s.Query, s.Datasource)
		default:
			p := NewPanel(s.Title, s.Type)
			p.Datasource = s.Datasource
			if s.Query != "" {
				p.Targets = []Target{{RefID: "A", Datasource: s.Datasource, Expr: s.Query}}
			}
			b.AddPanel(p)
		}
	}
	return b.Build()
}
