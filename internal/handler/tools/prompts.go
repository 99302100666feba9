package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/paginate"
	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/prompts"
)

const LayoutResourceURI = "grafana://instructions/layout"

func (h *Handler) RegisterPromptHandlers(s *server.MCPServer) {
	h.logger.Debug("Registering prompt handlers")

	listTool := mcp.NewTool("grafana_list_prompts",
		mcp.WithDescription("List the prompt templates used by the dashboard workflow (category, type, description, use case). Pass both 'category' and 'type' to get one template including its text. Supports 'limit' and 'offset' pagination."),
		mcp.WithString("category", mcp.Description("Only list templates of this category. Example: 'grafana_workflow'")),
		mcp.WithString("type", mcp.Description("With 'category', return the single template of this type including its text.")),
		mcp.WithString("limit", mcp.Description("Maximum number of templates to return per page. Default: 50.")),
		mcp.WithString("offset", mcp.Description("Number of templates to skip. Default: 0.")),
	)
	s.AddTool(listTool, h.instrument("grafana_list_prompts", h.handleListPrompts))

	layoutGuide := mcp.NewResource(LayoutResourceURI, "Grafana layout guide",
		mcp.WithResourceDescription("Rules for placing panels on Grafana's 24 column grid. Read this before writing gridPos values by hand."),
		mcp.WithMIMEType("text/markdown"),
	)
	s.AddResource(layoutGuide, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		h.logger.Debug("Resource read", zap.String("uri", req.Params.URI))
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      LayoutResourceURI,
				MIMEType: "text/markdown",
				Text:     prompts.LayoutGuide,
			},
		}, nil
	})
}

type promptEntry struct {
	prompts.Template
	Text string `json:"text"`
}

func (h *Handler) handleListPrompts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(req)
	category := stringArg(args, "category")
	typ := stringArg(args, "type")
	h.logger.Debug("Tool called: grafana_list_prompts", zap.String("category", category), zap.String("type", typ))

	if typ != "" {
		if category == "" {
			return mcp.NewToolResultError(`Parameter validation failed: "type" needs "category". Example: {"category": "grafana_workflow", "type": "generate"}`), nil
		}
		t, err := h.catalog.Info(category, typ)
		if errors.Is(err, prompts.ErrUnknownPrompt) {
			return mcp.NewToolResultError(fmt.Sprintf("%s. Use grafana_list_prompts without 'type' to see the available templates.", err.Error())), nil
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return h.jsonResult(promptEntry{Template: t, Text: t.Text})
	}

	limit, offset := paginate.ParseParams(req.Params.Arguments)
	all := h.catalog.List()
	templates := make([]prompts.Template, 0, len(all))
	for _, t := range all {
		if category == "" || t.Category == category {
			templates = append(templates, t)
		}
	}

	total := len(templates)
	resultJSON, err := paginate.Wrap(paginate.Array(templates, offset, limit), total, offset, limit)
	if err != nil {
		h.logger.Error("Failed to wrap prompts with pagination", zap.Error(err))
		return mcp.NewToolResultError("failed to marshal response: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(resultJSON)), nil
}
