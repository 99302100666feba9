package dashboard

import (
	"fmt"
	"strings"
)

// Summary renders a compact plain-text description of the dashboard for use
// as LLM prompt context.
func (d *Dashboard) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dashboard: %s\n", d.Title)
	if d.UID != "" {
		fmt.Fprintf(&b, "UID: %s\n", d.UID)
	}
	if d.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", d.Description)
	}
	if len(d.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(d.Tags, ", "))
	}
	fmt.Fprintf(&b, "Time range: %s to %s (refresh %s)\n", d.Time.From, d.Time.To, d.Refresh)

	fmt.Fprintf(&b, "\nPanels (%d):\n", len(d.Panels))
	var writePanels func(panels []*Panel, indent string)
	writePanels = func(panels []*Panel, indent string) {
		for _, p := range panels {
			g := p.GridPos
			fmt.Fprintf(&b, "%s- [%d] %s (%s) at x=%d y=%d w=%d h=%d\n", indent, p.ID, p.Title, p.Type, g.X, g.Y, g.W, g.H)
			if p.Datasource != nil {
				fmt.Fprintf(&b, "%s    datasource: %s %s\n", indent, p.Datasource.Type, p.Datasource.UID)
			}
			for _, t := range p.Targets {
				fmt.Fprintf(&b, "%s    %s: %s\n", indent, t.RefID, t.Text())
			}
			writePanels(p.Panels, indent+"  ")
		}
	}
	writePanels(d.Panels, "")

	if len(d.Templating) > 0 {
		fmt.Fprintf(&b, "\nVariables (%d):\n%s", len(d.Templating), d.VariablesSummary("summary"))
	}
	return b.String()
}

// VariablesSummary formats the templating variables as "list" ($a, $b),
// "detailed" (one block per variable) or, by default, "summary" (one line each).
func (d *Dashboard) VariablesSummary(format string) string {
	if len(d.Templating) == 0 {
		return "No template variables defined."
	}

	var b strings.Builder
	switch format {
	case "list":
		names := make([]string, 0, len(d.Templating))
		for _, v := range d.Templating {
			names = append(names, "$"+v.Name)
		}
		b.WriteString(strings.Join(names, ", "))
	case "detailed":
		for i, v := range d.Templating {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(v.String())
		}
	default:
		for _, v := range d.Templating {
			fmt.Fprintf(&b, "- $%s (%s)", v.Name, v.Type)
			if v.Query != "" {
				fmt.Fprintf(&b, ": %s", v.Query)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
