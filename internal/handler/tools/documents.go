package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/Karan96Kaushik/gen-grafana-ai/internal/manager"
	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/dashboard"
)

// RegisterDocumentHandlers registers the tools that work on a dashboard passed
// in the request. None of them touch the store.
func (h *Handler) RegisterDocumentHandlers(s *server.MCPServer) {
	h.logger.Debug("Registering document handlers")

	parseTool := mcp.NewTool("grafana_parse_dashboard",
		mcp.WithDescription("Recover a Grafana dashboard from untrusted text (LLM output, markdown code fences, comments, trailing commas, single quotes, truncated JSON) and normalize it. Returns the dashboard and a report listing every repair and fix. Text without any JSON yields a minimal skeleton dashboard."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Raw text containing a dashboard JSON object.")),
	)
	s.AddTool(parseTool, h.instrument("grafana_parse_dashboard", h.handleParseDashboard))

	validateTool := mcp.NewTool("grafana_validate_dashboard",
		mcp.WithDescription("Validate a dashboard. Returns {ok, errors, warnings}. Errors are problems that cannot be fixed automatically (missing title, overlapping panels, bad variables). Warnings list what fixing would change and advisory findings. With fix=true the fixed dashboard is returned as well."),
		mcp.WithObject("dashboard", mcp.Required(), mcp.Description(dashboardParamDesc)),
		mcp.WithString("fix", mcp.Description("When 'true', apply the automatic fixes and return the fixed dashboard. Default: false.")),
	)
	s.AddTool(validateTool, h.instrument("grafana_validate_dashboard", h.handleValidateDashboard))

	layoutTool := mcp.NewTool("grafana_auto_layout",
		mcp.WithDescription("Rearrange all top-level panels into a grid of equal tiles on Grafana's 24 column grid, in their current order. Resolves overlapping panels."),
		mcp.WithObject("dashboard", mcp.Required(), mcp.Description(dashboardParamDesc)),
		mcp.WithString("columns", mcp.Description("Panels per row, 1 to 24. Defaults to the server's configured layout columns.")),
	)
	s.AddTool(layoutTool, h.instrument("grafana_auto_layout", h.handleAutoLayout))

	mergeTool := mcp.NewTool("grafana_merge_dashboards",
		mcp.WithDescription("Merge two dashboards into a new one. Title, uid and other dashboard fields come from 'base'. Variables are unioned by name with 'other' winning. Strategies: 'append' adds other's panels below base's, 'replace' keeps only other's panels, 'merge' replaces base panels that have the same title as an other panel and appends the rest. Panel ids are made unique."),
		mcp.WithObject("base", mcp.Required(), mcp.Description(dashboardParamDesc)),
		mcp.WithObject("other", mcp.Required(), mcp.Description(dashboardParamDesc)),
		mcp.WithString("strategy", mcp.Description("append, replace or merge. Default: append.")),
	)
	s.AddTool(mergeTool, h.instrument("grafana_merge_dashboards", h.handleMergeDashboards))
}

func (h *Handler) handleParseDashboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.logger.Debug("Tool called: grafana_parse_dashboard")
	args := arguments(req)
	if _, ok := args["text"].(string); !ok {
		return mcp.NewToolResultError(`Parameter validation failed: "text" must be a string. Example: {"text": "{\"title\": \"My dashboard\", \"panels\": []}"}`), nil
	}

	d, report, err := h.loadDashboardArg(ctx, args, "text")
	if err != nil {
		h.logger.Warn("Failed to parse dashboard text", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse dashboard: %s", err.Error())), nil
	}
	return h.jsonResult(manager.Result{Dashboard: d, Report: report})
}

func (h *Handler) handleValidateDashboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.logger.Debug("Tool called: grafana_validate_dashboard")
	args := arguments(req)
	fix, err := boolArg(args, "fix")
	if err != nil {
		return paramError(err), nil
	}

	m, warnings, err := rawDashboardArg(args, "dashboard")
	if err != nil {
		h.logger.Warn("Invalid dashboard parameter", zap.Error(err))
		return paramError(err), nil
	}
	h.metrics.RecordParseDegraded(ctx, len(warnings))
	d := dashboard.FromMap(m)

	if !fix {
		report := dashboard.Validate(d)
		report.Warnings = append(warnings, report.Warnings...)
		return h.jsonResult(report)
	}
	report := dashboard.ValidateAndFix(d)
	report.Warnings = append(warnings, report.Warnings...)
	return h.jsonResult(manager.Result{Dashboard: d, Report: report})
}

func (h *Handler) handleAutoLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(req)
	columns, err := intArg(args, "columns", h.columns)
	if err != nil {
		return paramError(err), nil
	}
	if columns < 1 || columns > dashboard.GridColumns {
		return mcp.NewToolResultError(fmt.Sprintf(`Parameter validation failed: "columns" must be between 1 and %d, got %d`, dashboard.GridColumns, columns)), nil
	}

	h.logger.Debug("Tool called: grafana_auto_layout", zap.Int("columns", columns))
	d, report, err := h.loadDashboardArg(ctx, args, "dashboard")
	if err != nil {
		h.logger.Warn("Invalid dashboard parameter", zap.Error(err))
		return paramError(err), nil
	}
	d.AutoLayout(columns)
	after := dashboard.ValidateAndFix(d)
	after.Warnings = append(report.Warnings, after.Warnings...)
	return h.jsonResult(manager.Result{
		Dashboard: d,
		Report:    after,
		Messages:  []string{fmt.Sprintf("applied %d column auto-layout to %d panels", columns, len(d.Panels))},
	})
}

func (h *Handler) handleMergeDashboards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(req)
	name := stringArg(args, "strategy")
	if name == "" {
		name = string(dashboard.MergeAppend)
	}
	strategy, err := dashboard.ParseMergeStrategy(name)
	if err != nil {
		return paramError(err), nil
	}

	h.logger.Debug("Tool called: grafana_merge_dashboards", zap.String("strategy", name))
	base, baseReport, err := h.loadDashboardArg(ctx, args, "base")
	if err != nil {
		return paramError(err), nil
	}
	other, otherReport, err := h.loadDashboardArg(ctx, args, "other")
	if err != nil {
		return paramError(err), nil
	}

	merged, messages, err := dashboard.Merge(base, other, strategy)
	if err != nil {
		h.logger.Error("Failed to merge dashboards", zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
	report := dashboard.ValidateAndFix(merged)
	report.Warnings = append(append(baseReport.Warnings, otherReport.Warnings...), report.Warnings...)
	return h.jsonResult(manager.Result{Dashboard: merged, Report: report, Messages: messages})
}
