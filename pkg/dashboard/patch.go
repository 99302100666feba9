package dashboard

// PanelFromMap lifts a single decoded panel object, as found in model
// suggested operations.
func PanelFromMap(m map[string]any) *Panel {
	return panelFromMap(m)
}

// ToMap returns the JSON object form of the panel.
func (p *Panel) ToMap() map[string]any {
	return p.toMap()
}

// Apply overwrites the panel's fields with the keys of fields. gridPos,
// targets and datasource are replaced whole; unknown keys land in Extra. The
// panel id never changes.
func (p *Panel) Apply(fields map[string]any) {
	m := p.toMap()
	for k, v := range fields {
		if k == "id" {
			continue
		}
		m[k] = deepCopy(v)
	}
	id := p.ID
	*p = *panelFromMap(m)
	p.ID = id
}
