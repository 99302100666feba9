package prompts

// Categories and types used by the dashboard workflow.
const (
	CategoryGrafanaAnalysis = "grafana_analysis"
	CategoryGrafanaPanels   = "grafana_panels"
	CategoryDashboard       = "dashboard_analysis"
	CategoryWorkflow        = "grafana_workflow"
	CategoryData            = "data_analysis"
	CategorySchema          = "schema_analysis"
	CategoryQuery           = "query_analysis"

	TypeSummary         = "summary"
	TypeModification    = "modification"
	TypeBestPractices   = "best_practices"
	TypeTroubleshooting = "troubleshooting"
	TypeOperations      = "operations"
	TypeTableList       = "table_list"
	TypeGenerate        = "generate"
)

var builtin = []Template{
	{
		Category:    CategoryGrafanaAnalysis,
		Type:        TypeSummary,
		Description: "Summary of a Grafana dashboard configuration",
		UseCase:     "Dashboard review",
		Text: `Analyze the following Grafana dashboard configuration and summarize it:

{dashboard_data}

Cover:
1. **Overview**: purpose and main functionality
2. **Panels**: visualization types and what each one is for
3. **Data sources**: which metrics or tables are monitored
4. **Layout**: how the dashboard is organized
5. **Insights**: what technical or business questions it answers
6. **Recommendations**: improvements worth making

Use short sections with bullet points.`,
	},
	{
		Category:    CategoryGrafanaAnalysis,
		Type:        TypeModification,
		Description: "Rewrite a dashboard JSON to satisfy a request",
		UseCase:     "Whole-document dashboard edits",
		Text: `Modify the following Grafana dashboard according to the user's request.

Current dashboard:
{dashboard_summary}

Dashboard JSON:
{dashboard_json}

Request:
{modification_request}

Make sure that:
1. The result is valid Grafana dashboard JSON
2. Existing panels keep working unless the request changes them
3. Panel IDs stay unique
4. Grid positions do not overlap on the 24 column grid

Respond with ONLY the modified JSON document.`,
	},
	{
		Category:    CategoryGrafanaAnalysis,
		Type:        TypeBestPractices,
		Description: "Best practice review of a dashboard",
		UseCase:     "Dashboard governance",
		Text: `Review the following Grafana dashboard against common best practices:

{dashboard_data}

Evaluate:
1. **Performance**: query cost and panel count
2. **Usability**: layout and navigation
3. **Monitoring strategy**: metric selection and alerting
4. **Maintenance**: template variables and reuse
5. **Security**: data exposure

Give specific recommendations for each area.`,
	},
	{
		Category:    CategoryGrafanaAnalysis,
		Type:        TypeTroubleshooting,
		Description: "Diagnose a reported dashboard issue",
		UseCase:     "Dashboard debugging",
		Text: `Help troubleshoot this Grafana dashboard.

Dashboard:
{dashboard_data}

Reported issue:
{issue_description}

Provide the likely causes, diagnostic steps, a step by step fix and how to verify it.`,
	},
	{
		Category:    CategoryGrafanaPanels,
		Type:        "optimization",
		Description: "Improve a single panel",
		UseCase:     "Panel tuning",
		Text: `Analyze this Grafana panel configuration and suggest improvements:

{panel_data}

Cover query efficiency, visualization choice, readability and alert thresholds. Include concrete configuration changes.`,
	},
	{
		Category:    CategoryGrafanaPanels,
		Type:        "comparison",
		Description: "Compare two panels",
		UseCase:     "Panel design decisions",
		Text: `Compare these two Grafana panels.

Panel 1:
{panel1_data}

Panel 2:
{panel2_data}

Explain what each monitors, how they differ, which approach is better and whether they should be merged.`,
	},
	{
		Category:    CategoryDashboard,
		Type:        "schema_recommendations",
		Description: "Panel ideas derived from table schemas",
		UseCase:     "Planning dashboard changes from a database schema",
		Text: `Based on these database table schemas, recommend Grafana dashboard changes:

{schema_info}

Request:
{modification_request}

List the relevant tables, the columns to use for metrics, filters and grouping, SQL patterns that fit the column types and the panel types to use.`,
	},
	{
		Category:    CategoryWorkflow,
		Type:        TypeOperations,
		Description: "Panel operations (add, remove, modify) for a request",
		UseCase:     "AI-assisted dashboard modification",
		Text: `Analyze the user's request and propose panel operations for this dashboard.

Dashboard: {dashboard_title}
Current panels:
{panels_summary}

Available database tables:
{table_information}

Request: {modification_request}

Use the table schemas to write accurate SQL queries. For each operation:

1. **add**: give the complete panel JSON with a new unique id (start from {next_panel_id}), a gridPos on the 24 column grid that does not overlap existing panels, datasource references and targets.
2. **remove**: give the panel id and a reason.
3. **modify**: give the panel id and only the fields that change.

Respond with a JSON array in this format:
[
  {{"action": "add", "panel": {{"id": {next_panel_id}, "title": "New Panel", "type": "timeseries", "gridPos": {{"h": 8, "w": 12, "x": 0, "y": 16}}, "targets": []}}, "reason": "why"}},
  {{"action": "remove", "panel_id": 2, "reason": "why"}},
  {{"action": "modify", "panel_id": 1, "panel": {{"title": "Updated Title"}}, "reason": "why"}}
]

Respond with ONLY the JSON array.`,
	},
	{
		Category:    CategoryWorkflow,
		Type:        TypeTableList,
		Description: "Tables relevant to a modification request",
		UseCase:     "Selecting schema context before proposing operations",
		Text: `Decide which database tables are relevant to this Grafana dashboard modification request.

Dashboard title: {dashboard_title}

Request:
{modification_request}

Existing panel queries:
{panel_queries}

Known tables:
{available_tables}

Consider tables already queried, tables the request needs and common naming patterns.
Return only a comma-separated list of table names:`,
	},
	{
		Category:    CategoryWorkflow,
		Type:        TypeGenerate,
		Description: "Complete dashboard JSON from a description",
		UseCase:     "Creating a new dashboard",
		Text: `Create a Grafana dashboard titled "{title}".

What it should show:
{description}

Available database tables:
{table_information}

{layout_guide}

Respond with ONLY the dashboard JSON document.`,
	},
	{
		Category:    CategoryData,
		Type:        "general",
		Description: "General overview of database data",
		UseCase:     "Data exploration",
		Text: `Analyze the following database data and summarize it:

{data_text}

Describe the data structure, key patterns, data quality observations and notable trends.`,
	},
	{
		Category:    CategorySchema,
		Type:        "structure",
		Description: "Database schema structure review",
		UseCase:     "Schema design review",
		Text: `Analyze the following database schema:

{schema_text}

Assess the design, table relationships, normalization and performance considerations.`,
	},
	{
		Category:    CategoryQuery,
		Type:        "results",
		Description: "Analysis of SQL query results",
		UseCase:     "Ad-hoc query analysis",
		Text: `Analyze the results of this SQL query.

Query: {query_text}

Results:
{data_text}

Describe the insights, patterns and useful follow-up queries.`,
	},
}
