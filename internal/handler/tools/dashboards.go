package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/paginate"
	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/types"
)

func (h *Handler) RegisterDashboardHandlers(s *server.MCPServer) {
	h.logger.Debug("Registering dashboard handlers")

	listTool := mcp.NewTool("grafana_list_dashboards",
		mcp.WithDescription("List stored dashboards (id, slug, uid, title, tags, version, last update), most recently updated first. IMPORTANT: This tool supports pagination using 'limit' and 'offset' parameters. The response includes 'pagination' metadata with 'total', 'hasMore', and 'nextOffset' fields. When looking for a specific dashboard, keep paginating while 'pagination.hasMore' is true. Default: limit=50, offset=0."),
		mcp.WithString("namePattern", mcp.Description("Optional regex matched against title and slug. Example: 'orders|checkout'. Case-sensitive.")),
		mcp.WithString("tag", mcp.Description("Optional tag the dashboard must carry (case-insensitive).")),
		mcp.WithString("limit", mcp.Description("Maximum number of dashboards to return per page. Default: 50. Must be greater than 0.")),
		mcp.WithString("offset", mcp.Description("Number of results to skip before returning results. Check 'pagination.nextOffset' in the response for the next page. Default: 0.")),
	)
	s.AddTool(listTool, h.instrument("grafana_list_dashboards", h.handleListDashboards))

	getTool := mcp.NewTool("grafana_get_dashboard",
		mcp.WithDescription("Get a stored dashboard by id or slug. Returns the normalized dashboard JSON, its validation report, id, slug and version."),
		mcp.WithString("ref", mcp.Required(), mcp.Description(refParamDesc)),
	)
	s.AddTool(getTool, h.instrument("grafana_get_dashboard", h.handleGetDashboard))

	searchTool := mcp.NewTool("grafana_search_dashboards",
		mcp.WithDescription("Full-text search over stored dashboards: title, slug, tags, description, panel titles and query text. Supports query string syntax such as 'latency', 'tags:prod', '+orders -legacy'."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query. Example: 'checkout latency'")),
		mcp.WithString("limit", mcp.Description("Maximum number of hits. Default: 10.")),
	)
	s.AddTool(searchTool, h.instrument("grafana_search_dashboards", h.handleSearchDashboards))

	saveTool := mcp.NewTool("grafana_save_dashboard",
		mcp.WithDescription("Normalize a dashboard (missing fields, duplicate panel ids, grid bounds, refIds) and store it. Saving under an existing slug replaces that dashboard and bumps its version. Dashboards that still have errors after fixing (for example overlapping panels) are rejected; run grafana_auto_layout first."),
		mcp.WithObject("dashboard", mcp.Required(), mcp.Description(dashboardParamDesc)),
		mcp.WithString("slug", mcp.Description("Storage key. Derived from the title when empty.")),
	)
	s.AddTool(saveTool, h.instrument("grafana_save_dashboard", h.handleSaveDashboard))
}

func (h *Handler) handleListDashboards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.logger.Debug("Tool called: grafana_list_dashboards")
	args := arguments(req)
	limit, offset := paginate.ParseParams(req.Params.Arguments)

	var re *regexp.Regexp
	if pattern := stringArg(args, "namePattern"); pattern != "" {
		var err error
		if re, err = regexp.Compile(pattern); err != nil {
			h.logger.Warn("Invalid regex pattern", zap.String("pattern", pattern), zap.Error(err))
			return mcp.NewToolResultError(fmt.Sprintf("Invalid regex pattern: %s", err.Error())), nil
		}
	}
	tag := stringArg(args, "tag")

	records, err := h.store.List(ctx)
	if err != nil {
		h.logger.Error("Failed to list dashboards", zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}

	summaries := make([]types.DashboardSummary, 0, len(records))
	for _, r := range records {
		if re != nil && !re.MatchString(r.Title) && !re.MatchString(r.Slug) {
			continue
		}
		if tag != "" && !hasTag(r.Tags, tag) {
			continue
		}
		summaries = append(summaries, types.DashboardSummary{
			ID:        r.ID,
			Slug:      r.Slug,
			UID:       r.UID,
			Title:     r.Title,
			Tags:      r.Tags,
			Version:   r.Version,
			UpdatedAt: r.Updated.UTC().Format(time.RFC3339),
		})
	}

	total := len(summaries)
	resultJSON, err := paginate.Wrap(paginate.Array(summaries, offset, limit), total, offset, limit)
	if err != nil {
		h.logger.Error("Failed to wrap dashboards with pagination", zap.Error(err))
		return mcp.NewToolResultError("failed to marshal response: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func (h *Handler) handleGetDashboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := stringArg(arguments(req), "ref")
	if ref == "" {
		h.logger.Warn("Empty ref parameter")
		return mcp.NewToolResultError(`Parameter validation failed: "ref" must be a dashboard id or slug. Example: {"ref": "service-overview"}`), nil
	}

	h.logger.Debug("Tool called: grafana_get_dashboard", zap.String("ref", ref))
	rec, d, report, err := h.manager.Get(ctx, ref)
	if err != nil {
		h.logger.Error("Failed to get dashboard", zap.String("ref", ref), zap.Error(err))
		return workflowError(ref, err), nil
	}
	return h.jsonResult(map[string]any{
		"id":        rec.ID,
		"slug":      rec.Slug,
		"version":   rec.Version,
		"dashboard": d,
		"report":    report,
	})
}

func (h *Handler) handleSearchDashboards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(req)
	query := stringArg(args, "query")
	if query == "" {
		h.logger.Warn("Empty query parameter")
		return mcp.NewToolResultError(`Parameter validation failed: "query" cannot be empty. Example: {"query": "latency"}`), nil
	}
	limit, err := intArg(args, "limit", 10)
	if err != nil {
		return paramError(err), nil
	}
	if h.index == nil {
		return mcp.NewToolResultError("search index is not available"), nil
	}

	h.logger.Debug("Tool called: grafana_search_dashboards", zap.String("query", query))
	hits, total, err := h.index.Search(query, limit)
	if err != nil {
		h.logger.Error("Failed to search dashboards", zap.String("query", query), zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.jsonResult(map[string]any{
		"total": total,
		"hits":  hits,
	})
}

func (h *Handler) handleSaveDashboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.logger.Debug("Tool called: grafana_save_dashboard")
	args := arguments(req)

	d, report, err := h.loadDashboardArg(ctx, args, "dashboard")
	if err != nil {
		h.logger.Warn("Invalid dashboard parameter", zap.Error(err))
		return paramError(err), nil
	}
	res, err := h.manager.Save(ctx, d, stringArg(args, "slug"))
	if err != nil {
		h.logger.Error("Failed to save dashboard", zap.String("title", d.Title), zap.Error(err))
		return workflowError(d.Title, err), nil
	}
	res.Report.Warnings = append(report.Warnings, res.Report.Warnings...)
	return h.jsonResult(res)
}
