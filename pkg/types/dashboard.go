package types

// SaveDashboardInput is the payload accepted by the save tool. Dashboard holds
// either a JSON object or model output text that still needs repairing.
type SaveDashboardInput struct {
	Dashboard any    `json:"dashboard" jsonschema:"required" jsonschema_extras:"description=Grafana dashboard JSON object or raw text containing one."`
	Slug      string `json:"slug,omitempty" jsonschema_extras:"description=Storage key. Derived from the title when empty."`
	Message   string `json:"message,omitempty" jsonschema_extras:"description=Free text note stored with this version."`
}

type MergeDashboardsInput struct {
	Base     any    `json:"base" jsonschema:"required" jsonschema_extras:"description=Dashboard whose metadata is kept."`
	Other    any    `json:"other" jsonschema:"required" jsonschema_extras:"description=Dashboard merged into base."`
	Strategy string `json:"strategy,omitempty" jsonschema_extras:"description=append replace or merge. Defaults to append."`
}

type GenerateDashboardInput struct {
	Title       string   `json:"title" jsonschema:"required" jsonschema_extras:"description=Title of the dashboard to generate."`
	Description string   `json:"description" jsonschema:"required" jsonschema_extras:"description=What the dashboard should show."`
	Tables      []string `json:"tables,omitempty" jsonschema_extras:"description=Tables the panels may query. All known tables are offered when empty."`
	Save        bool     `json:"save,omitempty" jsonschema_extras:"description=Store the generated dashboard."`
}

// DashboardSummary is the list-view shape of a stored dashboard.
type DashboardSummary struct {
	ID        int64    `json:"id"`
	Slug      string   `json:"slug"`
	UID       string   `json:"uid"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags"`
	Version   int      `json:"version"`
	UpdatedAt string   `json:"updatedAt"`
}
