package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/jsonrepair"
)

var (
	dashboardKeys  = keySet("uid", "title", "description", "tags", "time", "refresh", "schemaVersion", "panels", "templating", "annotations")
	panelKeys      = keySet("id", "title", "type", "gridPos", "targets", "datasource", "description", "panels")
	targetKeys     = keySet("refId", "datasource", "expr", "rawSql", "format")
	variableKeys   = keySet("name", "type", "label", "query", "datasource", "options", "current", "multi", "includeAll")
	annotationKeys = keySet("name", "datasource", "enable", "hide", "iconColor", "type", "builtIn")
)

// FromMap lifts a parsed JSON object into a Dashboard. Missing or mistyped
// optional keys become zero values and unknown keys go to Extra; it never fails.
// Numeric strings in integer fields are coerced.
func FromMap(m map[string]any) *Dashboard {
	d := &Dashboard{
		UID:           asString(m["uid"]),
		Title:         asString(m["title"]),
		Description:   asString(m["description"]),
		Refresh:       asString(m["refresh"]),
		SchemaVersion: asInt(m["schemaVersion"]),
		Tags:          []string{},
		Extra:         extras(m, dashboardKeys),
	}
	for _, tag := range asSlice(m["tags"]) {
		d.Tags = append(d.Tags, asString(tag))
	}
	if tr, ok := m["time"].(map[string]any); ok {
		d.Time = TimeRange{From: asString(tr["from"]), To: asString(tr["to"])}
	}
	for _, raw := range asSlice(m["panels"]) {
		if pm, ok := raw.(map[string]any); ok {
			d.Panels = append(d.Panels, panelFromMap(pm))
		}
	}
	if tm, ok := m["templating"].(map[string]any); ok {
		for _, raw := range asSlice(tm["list"]) {
			if vm, ok := raw.(map[string]any); ok {
				d.Templating = append(d.Templating, variableFromMap(vm))
			}
		}
	}
	if am, ok := m["annotations"].(map[string]any); ok {
		for _, raw := range asSlice(am["list"]) {
			if a, ok := raw.(map[string]any); ok {
				d.Annotations = append(d.Annotations, annotationFromMap(a))
			}
		}
	}
	return d
}

func panelFromMap(m map[string]any) *Panel {
	p := &Panel{
		ID:          asInt(m["id"]),
		Title:       asString(m["title"]),
		Type:        PanelType(asString(m["type"])),
		Datasource:  dataSourceFrom(m["datasource"]),
		Description: asString(m["description"]),
		GridPos:     GridPos{W: DefaultPanelWidth, H: DefaultPanelHeight},
		Extra:       extras(m, panelKeys),
	}
	if g, ok := m["gridPos"].(map[string]any); ok {
		p.GridPos = GridPos{X: asInt(g["x"]), Y: asInt(g["y"]), W: asInt(g["w"]), H: asInt(g["h"])}
	}
	for _, raw := range asSlice(m["targets"]) {
		if tm, ok := raw.(map[string]any); ok {
			p.Targets = append(p.Targets, Target{
				RefID:      asString(tm["refId"]),
				Datasource: dataSourceFrom(tm["datasource"]),
				Expr:       asString(tm["expr"]),
				RawSQL:     asString(tm["rawSql"]),
				Format:     asString(tm["format"]),
				Extra:      extras(tm, targetKeys),
			})
		}
	}
	for _, raw := range asSlice(m["panels"]) {
		if pm, ok := raw.(map[string]any); ok {
			p.Panels = append(p.Panels, panelFromMap(pm))
		}
	}
	return p
}

func variableFromMap(m map[string]any) *Variable {
	v := &Variable{
		Name:       asString(m["name"]),
		Type:       VariableQuery,
		Label:      asString(m["label"]),
		Datasource: dataSourceFrom(m["datasource"]),
		Multi:      asBool(m["multi"]),
		IncludeAll: asBool(m["includeAll"]),
		Extra:      extras(m, variableKeys),
	}
	if t, ok := m["type"]; ok {
		v.Type = VariableType(asString(t))
	}
	// Object-shaped queries (newer datasources) stay in Extra verbatim.
	switch q := m["query"].(type) {
	case string:
		v.Query = q
	case nil:
	default:
		if v.Extra == nil {
			v.Extra = map[string]any{}
		}
		v.Extra["query"] = q
	}
	if cur, ok := m["current"].(map[string]any); ok {
		v.Current = cur
	}
	for _, raw := range asSlice(m["options"]) {
		if om, ok := raw.(map[string]any); ok {
			v.Options = append(v.Options, VariableOption{
				Text:     asString(om["text"]),
				Value:    asString(om["value"]),
				Selected: asBool(om["selected"]),
			})
		}
	}
	return v
}

func annotationFromMap(m map[string]any) *Annotation {
	return &Annotation{
		Name:       asString(m["name"]),
		Datasource: dataSourceFrom(m["datasource"]),
		Enable:     asBool(m["enable"]),
		Hide:       asBool(m["hide"]),
		IconColor:  asString(m["iconColor"]),
		Type:       asString(m["type"]),
		BuiltIn:    asInt(m["builtIn"]),
		Extra:      extras(m, annotationKeys),
	}
}

// dataSourceFrom accepts both the object form and the legacy string form,
// which is treated as a uid.
func dataSourceFrom(v any) *DataSource {
	switch ds := v.(type) {
	case map[string]any:
		return &DataSource{Type: asString(ds["type"]), UID: asString(ds["uid"])}
	case string:
		if ds == "" {
			return nil
		}
		return &DataSource{UID: ds}
	}
	return nil
}

// ToMap renders the canonical Grafana JSON shape. Extra keys are written last
// and win over typed fields of the same name.
func (d *Dashboard) ToMap() map[string]any {
	m := map[string]any{
		"title":         d.Title,
		"tags":          stringsToAny(d.Tags),
		"time":          map[string]any{"from": d.Time.From, "to": d.Time.To},
		"refresh":       d.Refresh,
		"schemaVersion": d.SchemaVersion,
	}
	if d.UID != "" {
		m["uid"] = d.UID
	}
	if d.Description != "" {
		m["description"] = d.Description
	}

	panels := make([]any, 0, len(d.Panels))
	for _, p := range d.Panels {
		panels = append(panels, p.toMap())
	}
	m["panels"] = panels

	vars := make([]any, 0, len(d.Templating))
	for _, v := range d.Templating {
		vars = append(vars, v.toMap())
	}
	m["templating"] = map[string]any{"list": vars}

	annotations := make([]any, 0, len(d.Annotations))
	for _, a := range d.Annotations {
		annotations = append(annotations, a.toMap())
	}
	m["annotations"] = map[string]any{"list": annotations}

	return mergeExtra(m, d.Extra)
}

func (p *Panel) toMap() map[string]any {
	m := map[string]any{
		"id":      p.ID,
		"title":   p.Title,
		"type":    string(p.Type),
		"gridPos": map[string]any{"x": p.GridPos.X, "y": p.GridPos.Y, "w": p.GridPos.W, "h": p.GridPos.H},
	}
	targets := make([]any, 0, len(p.Targets))
	for _, t := range p.Targets {
		targets = append(targets, t.toMap())
	}
	m["targets"] = targets
	if p.Datasource != nil {
		m["datasource"] = p.Datasource.toMap()
	}
	if p.Description != "" {
		m["description"] = p.Description
	}
	if len(p.Panels) > 0 {
		children := make([]any, 0, len(p.Panels))
		for _, c := range p.Panels {
			children = append(children, c.toMap())
		}
		m["panels"] = children
	}
	return mergeExtra(m, p.Extra)
}

func (t Target) toMap() map[string]any {
	m := map[string]any{"refId": t.RefID}
	if t.Datasource != nil {
		m["datasource"] = t.Datasource.toMap()
	}
	if t.Expr != "" {
		m["expr"] = t.Expr
	}
	if t.RawSQL != "" {
		m["rawSql"] = t.RawSQL
	}
	if t.Format != "" {
		m["format"] = t.Format
	}
	return mergeExtra(m, t.Extra)
}

func (v *Variable) toMap() map[string]any {
	m := map[string]any{
		"name":       v.Name,
		"type":       string(v.Type),
		"multi":      v.Multi,
		"includeAll": v.IncludeAll,
	}
	if v.Label != "" {
		m["label"] = v.Label
	}
	if v.Query != "" {
		m["query"] = v.Query
	}
	if v.Datasource != nil {
		m["datasource"] = v.Datasource.toMap()
	}
	if v.Current != nil {
		m["current"] = deepCopy(v.Current)
	}
	if len(v.Options) > 0 {
		opts := make([]any, 0, len(v.Options))
		for _, o := range v.Options {
			opts = append(opts, map[string]any{"text": o.Text, "value": o.Value, "selected": o.Selected})
		}
		m["options"] = opts
	}
	return mergeExtra(m, v.Extra)
}

func (a *Annotation) toMap() map[string]any {
	m := map[string]any{
		"name":      a.Name,
		"enable":    a.Enable,
		"hide":      a.Hide,
		"iconColor": a.IconColor,
		"type":      a.Type,
		"builtIn":   a.BuiltIn,
	}
	if a.Datasource != nil {
		m["datasource"] = a.Datasource.toMap()
	}
	return mergeExtra(m, a.Extra)
}

func (ds *DataSource) toMap() map[string]any {
	m := map[string]any{"uid": ds.UID}
	if ds.Type != "" {
		m["type"] = ds.Type
	}
	return m
}

// JSON encodes the dashboard without HTML escaping so text round-trips exactly.
func (d *Dashboard) JSON(indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(d.ToMap()); err != nil {
		return nil, fmt.Errorf("failed to encode dashboard: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (d *Dashboard) MarshalJSON() ([]byte, error) {
	return d.JSON(false)
}

// UnmarshalJSON strictly decodes b; use Load for untrusted text.
func (d *Dashboard) UnmarshalJSON(b []byte) error {
	v, err := jsonrepair.Decode(string(b))
	if err != nil {
		return err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("dashboard must be a JSON object, got %T", v)
	}
	*d = *FromMap(m)
	return nil
}

func keySet(keys ...string) map[string]bool {
	s := make(map[string]bool, len(keys))
	for _, k := range keys {
		s[k] = true
	}
	return s
}

func extras(m map[string]any, known map[string]bool) map[string]any {
	var out map[string]any
	for k, v := range m {
		if known[k] {
			continue
		}
		if out == nil {
			out = map[string]any{}
		}
		out[k] = deepCopy(v)
	}
	return out
}

func mergeExtra(m, extra map[string]any) map[string]any {
	for k, v := range extra {
		m[k] = deepCopy(v)
	}
	return m
}

func stringsToAny(s []string) []any {
	out := make([]any, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	return out
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return int(f)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return 0
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, _ := strconv.ParseBool(b)
		return parsed
	case json.Number:
		return b.String() != "0"
	}
	return false
}
