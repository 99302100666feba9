package dashboard

// Clone returns a deep copy that shares no mutable state with d.
func (d *Dashboard) Clone() *Dashboard {
	if d == nil {
		return nil
	}
	c := *d
	c.Tags = copySlice(d.Tags)
	c.Extra = copyMap(d.Extra)
	c.Panels = clonePanels(d.Panels)

	c.Templating = copySlice(d.Templating)
	for i, v := range c.Templating {
		c.Templating[i] = v.Clone()
	}
	c.Annotations = copySlice(d.Annotations)
	for i, a := range c.Annotations {
		ac := *a
		ac.Datasource = a.Datasource.clone()
		ac.Extra = copyMap(a.Extra)
		c.Annotations[i] = &ac
	}
	return &c
}

// Clone returns a deep copy of the panel and its nested panels.
func (p *Panel) Clone() *Panel {
	c := *p
	c.Datasource = p.Datasource.clone()
	c.Extra = copyMap(p.Extra)
	c.Panels = clonePanels(p.Panels)
	c.Targets = copySlice(p.Targets)
	for i, t := range c.Targets {
		c.Targets[i].Datasource = t.Datasource.clone()
		c.Targets[i].Extra = copyMap(t.Extra)
	}
	return &c
}

func (v *Variable) Clone() *Variable {
	c := *v
	c.Datasource = v.Datasource.clone()
	c.Options = copySlice(v.Options)
	c.Current = copyMap(v.Current)
	c.Extra = copyMap(v.Extra)
	return &c
}

func (ds *DataSource) clone() *DataSource {
	if ds == nil {
		return nil
	}
	c := *ds
	return &c
}

func clonePanels(panels []*Panel) []*Panel {
	out := copySlice(panels)
	for i, p := range out {
		out[i] = p.Clone()
	}
	return out
}

// copySlice keeps the nil/empty distinction of s.
func copySlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out
}

// deepCopy copies JSON-shaped values. Scalars are immutable and returned as is.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}
