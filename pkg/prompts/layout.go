package prompts

// LayoutGuide is handed to the model when it writes panels, and exposed as an
// MCP resource.
const LayoutGuide = `
Grafana dashboard layout rules:

Basics:
- Title: a descriptive name for the dashboard.
- Tags: short descriptors for domain, environment or ownership so dashboards can be filtered.
- Description: what the dashboard answers and when to rely on it.

Grid [Critical]:
- Panels sit on a 24 column grid. gridPos.x and gridPos.y give the position, gridPos.w and gridPos.h the size in grid units.
- x is 0-23 and x + w must not exceed 24.
- y starts at 0 and grows downward; one unit is about 30 pixels.
- h is at least 1; charts usually need 8.
- No two panels may occupy the same cells. A new row starts at or below the previous row's y + h.
- Two panels side by side: w=12 each at x=0 and x=12.
- Three columns: w=8 at x=0, 8, 16. Four columns: w=6 at x=0, 6, 12, 18.
- Full width tables and timeseries: x=0, w=24.

Recommended heights:
- stat and gauge: h=4
- timeseries with legend: h=8
- bar charts and pie charts: h=8
- tables: h=8 to h=12 depending on expected row count
- row panels: h=1, w=24

Panels:
- Every panel has a unique integer id, a title, a type and a gridPos.
- Known types: timeseries, table, stat, gauge, bargauge, heatmap, piechart, text, logs, alertlist, row.
- Each target has a refId (A, B, C, ...) unique within the panel.
- SQL datasources use rawSql with format "table" or "time_series"; Prometheus uses expr.

Variables:
- Templating variables live in templating.list with a unique name and a type of query, custom, constant, datasource, interval, textbox or adhoc.
- Reference them in queries as $name; use IN ($name) for multi-value SQL filters.
- Use custom variables for short fixed lists and query variables for values read from a table.

Checklist:
1. Panel ids are unique, nested row panels included
2. No overlapping gridPos rectangles
3. Every x + w is at most 24
4. time.from and time.to are set, e.g. now-6h and now
5. refresh is a duration such as 30s or 1m
`
