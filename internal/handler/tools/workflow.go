package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/Karan96Kaushik/gen-grafana-ai/internal/manager"
	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/dashboard"
	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/types"
)

// RegisterWorkflowHandlers registers the LLM backed tools.
func (h *Handler) RegisterWorkflowHandlers(s *server.MCPServer) {
	h.logger.Debug("Registering workflow handlers")

	analyzeTool := mcp.NewTool("grafana_analyze_dashboard",
		mcp.WithDescription("Ask the LLM for a review of a dashboard: what it monitors, panel and query quality, and suggested improvements. Pass either 'ref' for a stored dashboard or 'dashboard' for an inline one."),
		mcp.WithString("ref", mcp.Description(refParamDesc)),
		mcp.WithObject("dashboard", mcp.Description(dashboardParamDesc)),
	)
	s.AddTool(analyzeTool, h.instrument("grafana_analyze_dashboard", h.handleAnalyzeDashboard))

	modifyTool := mcp.NewTool("grafana_modify_dashboard",
		mcp.WithDescription("Modify a stored dashboard from a natural language request. The LLM picks the relevant database tables, proposes add/remove/modify panel operations, and the result is validated, laid out if panels overlap, and stored as a NEW dashboard (the original is left untouched). Returns the new dashboard, its id and slug, and a message per applied operation."),
		mcp.WithString("ref", mcp.Required(), mcp.Description(refParamDesc)),
		mcp.WithString("request", mcp.Required(), mcp.Description("What to change. Example: 'add a panel with daily order revenue and remove the legacy graph'")),
		mcp.WithString("newTitle", mcp.Description("Title of the new dashboard. Default: '<original title> (modified)'.")),
	)
	s.AddTool(modifyTool, h.instrument("grafana_modify_dashboard", h.handleModifyDashboard))

	generateTool := mcp.NewTool("grafana_generate_dashboard",
		mcp.WithDescription("Generate a complete dashboard with the LLM from a description and the schema of the given tables. The output is repaired, normalized and laid out. Set save=true to store it."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Dashboard title.")),
		mcp.WithString("description", mcp.Required(), mcp.Description("What the dashboard should show. Example: 'order volume and revenue per region, with a table of the slowest orders'")),
		mcp.WithArray("tables", mcp.Description("Tables the panels may query. All known tables are offered when empty."), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("save", mcp.Description("When 'true', store the generated dashboard. Default: false.")),
	)
	s.AddTool(generateTool, h.instrument("grafana_generate_dashboard", h.handleGenerateDashboard))
}

func (h *Handler) handleAnalyzeDashboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(req)
	ref := stringArg(args, "ref")
	h.logger.Debug("Tool called: grafana_analyze_dashboard", zap.String("ref", ref))

	mgr, err := h.managerFor(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var d *dashboard.Dashboard
	switch {
	case ref != "":
		if _, d, _, err = h.manager.Get(ctx, ref); err != nil {
			h.logger.Error("Failed to get dashboard", zap.String("ref", ref), zap.Error(err))
			return workflowError(ref, err), nil
		}
	case args["dashboard"] != nil:
		if d, _, err = h.loadDashboardArg(ctx, args, "dashboard"); err != nil {
			return paramError(err), nil
		}
	default:
		return mcp.NewToolResultError(`Parameter validation failed: provide "ref" or "dashboard". Example: {"ref": "service-overview"}`), nil
	}

	analysis, err := mgr.Analyze(ctx, d)
	if err != nil {
		h.logger.Error("Failed to analyze dashboard", zap.String("title", d.Title), zap.Error(err))
		return workflowError(ref, err), nil
	}
	return mcp.NewToolResultText(analysis), nil
}

func (h *Handler) handleModifyDashboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(req)
	ref := stringArg(args, "ref")
	if ref == "" {
		return mcp.NewToolResultError(`Parameter validation failed: "ref" must be a dashboard id or slug. Example: {"ref": "orders", "request": "add a revenue panel"}`), nil
	}
	request := stringArg(args, "request")
	if request == "" {
		return mcp.NewToolResultError(`Parameter validation failed: "request" cannot be empty. Describe the change, e.g. "add a revenue panel"`), nil
	}

	h.logger.Debug("Tool called: grafana_modify_dashboard", zap.String("ref", ref))
	mgr, err := h.managerFor(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := mgr.Modify(ctx, ref, request, stringArg(args, "newTitle"))
	if err != nil {
		h.logger.Error("Failed to modify dashboard", zap.String("ref", ref), zap.Error(err))
		if errors.Is(err, manager.ErrNoOperations) {
			return mcp.NewToolResultError("The LLM did not suggest any applicable panel operations. Try a more specific request."), nil
		}
		return workflowError(ref, err), nil
	}
	return h.jsonResult(res)
}

func (h *Handler) handleGenerateDashboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(req)
	in := types.GenerateDashboardInput{
		Title:       stringArg(args, "title"),
		Description: stringArg(args, "description"),
		Tables:      stringsArg(args, "tables"),
	}
	if in.Title == "" {
		return mcp.NewToolResultError(`Parameter validation failed: "title" cannot be empty. Example: {"title": "Orders", "description": "daily order volume"}`), nil
	}
	if in.Description == "" {
		return mcp.NewToolResultError(`Parameter validation failed: "description" cannot be empty. Describe what the dashboard should show.`), nil
	}
	save, err := boolArg(args, "save")
	if err != nil {
		return paramError(err), nil
	}
	in.Save = save

	h.logger.Debug("Tool called: grafana_generate_dashboard", zap.String("title", in.Title), zap.Bool("save", in.Save))
	mgr, err := h.managerFor(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := mgr.Generate(ctx, in)
	if err != nil {
		h.logger.Error("Failed to generate dashboard", zap.String("title", in.Title), zap.Error(err))
		return workflowError(in.Title, err), nil
	}
	return h.jsonResult(res)
}
