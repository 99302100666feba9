package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Karan96Kaushik/gen-grafana-ai/internal/client"
	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/dashboard"
	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/jsonrepair"
	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/prompts"
	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/types"
)

// Analyze asks the model for a written review of d.
func (m *Manager) Analyze(ctx context.Context, d *dashboard.Dashboard) (string, error) {
	ctx, span := m.tracer.Start(ctx, "manager.Analyze", trace.WithAttributes(attribute.String("dashboard.title", d.Title)))
	defer span.End()

	prompt, err := m.prompts.Get(prompts.CategoryGrafanaAnalysis, prompts.TypeSummary, map[string]string{
		"dashboard_data": d.Summary(),
	})
	if err != nil {
		return "", err
	}
	text, err := m.complete(ctx, "analyze", client.CompletionRequest{
		System:      prompts.SystemPrompt(prompts.SystemGrafana),
		Prompt:      prompt,
		Temperature: temperature(0.3),
		MaxTokens:   2048,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return text, nil
}

// SuggestTables asks the model which tables a modification request needs.
// When the database has tables, names it does not know are dropped.
func (m *Manager) SuggestTables(ctx context.Context, d *dashboard.Dashboard, request string) ([]string, error) {
	ctx, span := m.tracer.Start(ctx, "manager.SuggestTables")
	defer span.End()

	known, err := m.store.Tables(ctx)
	if err != nil {
		return nil, err
	}

	var queries []string
	for _, p := range d.Panels {
		for _, t := range p.Targets {
			if q := t.Text(); q != "" {
				queries = append(queries, q)
			}
		}
	}
	queryText := "No existing queries found"
	if len(queries) > 0 {
		queryText = strings.Join(queries, "\n")
	}
	available := "unknown"
	if len(known) > 0 {
		available = strings.Join(known, ", ")
	}

	prompt, err := m.prompts.Get(prompts.CategoryWorkflow, prompts.TypeTableList, map[string]string{
		"dashboard_title":      d.Title,
		"modification_request": request,
		"panel_queries":        queryText,
		"available_tables":     available,
	})
	if err != nil {
		return nil, err
	}
	text, err := m.complete(ctx, "suggest_tables", client.CompletionRequest{
		System:      "You are a database expert who maps dashboard requirements to tables. Return only a comma-separated list of table names.",
		Prompt:      prompt,
		Temperature: temperature(0.1),
		MaxTokens:   500,
	})
	if err != nil {
		return nil, err
	}

	tables := parseTableList(text, known)
	m.logger.Info("LLM suggested tables", zap.Strings("tables", tables))
	span.SetAttributes(attribute.Int("tables", len(tables)))
	return tables, nil
}

func parseTableList(text string, known []string) []string {
	knownSet := make(map[string]bool, len(known))
	for _, k := range known {
		knownSet[strings.ToLower(k)] = true
	}
	seen := map[string]bool{}
	var out []string
	for _, part := range strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '\n' }) {
		name := strings.Trim(strings.TrimSpace(part), "`\"'.")
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		if len(knownSet) > 0 && !knownSet[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}

// SuggestOperations asks the model for panel operations that satisfy request.
// Entries that cannot be used are returned as warnings.
func (m *Manager) SuggestOperations(ctx context.Context, d *dashboard.Dashboard, request, tableInfo string) ([]types.PanelOperation, []string, error) {
	ctx, span := m.tracer.Start(ctx, "manager.SuggestOperations")
	defer span.End()

	summary := make([]map[string]any, 0, len(d.Panels))
	for _, p := range d.Panels {
		item := map[string]any{
			"id":      p.ID,
			"title":   p.Title,
			"type":    p.Type,
			"gridPos": map[string]int{"x": p.GridPos.X, "y": p.GridPos.Y, "w": p.GridPos.W, "h": p.GridPos.H},
		}
		var queries []string
		for _, t := range p.Targets {
			queries = append(queries, t.Text())
		}
		if len(queries) > 0 {
			item["queries"] = queries
		}
		summary = append(summary, item)
	}
	panelsJSON, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(tableInfo) == "" {
		tableInfo = "No table information available"
	}

	next := 1
	for _, p := range d.Panels {
		if p.ID >= next {
			next = p.ID + 1
		}
	}

	prompt, err := m.prompts.Get(prompts.CategoryWorkflow, prompts.TypeOperations, map[string]string{
		"dashboard_title":      d.Title,
		"panels_summary":       string(panelsJSON),
		"table_information":    tableInfo,
		"modification_request": request,
		"next_panel_id":        strconv.Itoa(next),
	})
	if err != nil {
		return nil, nil, err
	}
	text, err := m.complete(ctx, "suggest_operations", client.CompletionRequest{
		System:      prompts.SystemPrompt(prompts.SystemOperations),
		Prompt:      prompt,
		Temperature: temperature(0.1),
		MaxTokens:   4096,
	})
	if err != nil {
		return nil, nil, err
	}

	v, warnings, err := jsonrepair.Repair(text, '[')
	if err != nil {
		m.logger.Warn("Could not parse suggested operations", zap.Error(err))
		return nil, nil, fmt.Errorf("parse suggested operations: %w", err)
	}
	ops, opWarnings := types.OperationsFromValue(v)
	warnings = append(warnings, opWarnings...)
	span.SetAttributes(attribute.Int("operations", len(ops)))
	return ops, warnings, nil
}

// ApplyOperations applies ops to d in order, then validates and fixes it.
// When the result still has overlapping panels the dashboard is re-laid out
// on the configured column count.
func (m *Manager) ApplyOperations(d *dashboard.Dashboard, ops []types.PanelOperation) (dashboard.Report, []string) {
	var messages []string
	for _, op := range ops {
		reason := op.Reason
		if reason == "" {
			reason = "no reason provided"
		}
		switch op.Action {
		case types.ActionAdd:
			p := dashboard.PanelFromMap(op.Panel)
			if p.ID > 0 && d.GetPanelByID(p.ID) != nil {
				p.ID = 0
			}
			d.AddPanel(p)
			messages = append(messages, fmt.Sprintf("added panel %q (id %d): %s", p.Title, p.ID, reason))
		case types.ActionRemove:
			p := d.GetPanelByID(op.PanelID)
			if p == nil {
				messages = append(messages, fmt.Sprintf("panel %d not found, nothing removed", op.PanelID))
				continue
			}
			d.RemovePanel(op.PanelID)
			messages = append(messages, fmt.Sprintf("removed panel %q (id %d): %s", p.Title, op.PanelID, reason))
		case types.ActionModify:
			p := d.GetPanelByID(op.PanelID)
			if p == nil {
				messages = append(messages, fmt.Sprintf("panel %d not found for modification", op.PanelID))
				continue
			}
			p.Apply(op.Panel)
			messages = append(messages, fmt.Sprintf("modified panel %q (id %d): %s", p.Title, op.PanelID, reason))
		default:
			messages = append(messages, fmt.Sprintf("unknown operation action %q", op.Action))
		}
	}

	report := dashboard.ValidateAndFix(d)
	if !report.OK && d.HasOverlaps() {
		messages = append(messages, "validation issues: "+strings.Join(report.Errors, "; "))
		d.AutoLayout(m.columns)
		messages = append(messages, fmt.Sprintf("applied %d column auto-layout to fix positioning", m.columns))
		report = revalidate(d, report)
	}
	return report, messages
}

// revalidate runs ValidateAndFix again after a repair, keeping the warnings
// of the earlier run.
func revalidate(d *dashboard.Dashboard, prev dashboard.Report) dashboard.Report {
	r := dashboard.ValidateAndFix(d)
	r.Warnings = append(append([]string(nil), prev.Warnings...), r.Warnings...)
	return r
}

// Modify loads the dashboard ref, applies model suggested operations for
// request and stores the result as a new dashboard titled newTitle.
func (m *Manager) Modify(ctx context.Context, ref, request, newTitle string) (*Result, error) {
	ctx, span := m.tracer.Start(ctx, "manager.Modify", trace.WithAttributes(attribute.String("dashboard.ref", ref)))
	defer span.End()

	rec, d, _, err := m.Get(ctx, ref)
	if err != nil {
		return nil, err
	}

	tables, err := m.SuggestTables(ctx, d, request)
	if err != nil {
		return nil, err
	}
	tableInfo, err := m.store.DescribeTables(ctx, tables)
	if err != nil {
		return nil, err
	}

	ops, warnings, err := m.SuggestOperations(ctx, d, request, tableInfo)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		span.SetStatus(codes.Error, ErrNoOperations.Error())
		return nil, ErrNoOperations
	}

	modified := d.Clone()
	applied, messages := m.ApplyOperations(modified, ops)
	messages = append(warnings, messages...)

	if newTitle == "" {
		newTitle = rec.Title + " (modified)"
	}
	modified.Title = newTitle
	modified.UID = uuid.NewString()

	res, err := m.Save(ctx, modified, dashboard.Slugify(newTitle))
	if res != nil {
		res.Messages = messages
		keepWarnings(res, applied)
	}
	return res, err
}

// keepWarnings puts the warnings of earlier repairs in front of the report of
// the final save, which only sees the already fixed document.
func keepWarnings(res *Result, prev dashboard.Report) {
	res.Report.Warnings = append(append([]string(nil), prev.Warnings...), res.Report.Warnings...)
}

// Generate asks the model for a complete dashboard and normalizes it. The
// result is stored when save is set.
func (m *Manager) Generate(ctx context.Context, in types.GenerateDashboardInput) (*Result, error) {
	ctx, span := m.tracer.Start(ctx, "manager.Generate", trace.WithAttributes(attribute.String("dashboard.title", in.Title)))
	defer span.End()

	tables := in.Tables
	if len(tables) == 0 {
		var err error
		if tables, err = m.store.Tables(ctx); err != nil {
			return nil, err
		}
	}
	tableInfo, err := m.store.DescribeTables(ctx, tables)
	if err != nil {
		return nil, err
	}
	if tableInfo == "" {
		tableInfo = "No table information available"
	}

	prompt, err := m.prompts.Get(prompts.CategoryWorkflow, prompts.TypeGenerate, map[string]string{
		"title":             in.Title,
		"description":       in.Description,
		"table_information": tableInfo,
		"layout_guide":      prompts.LayoutGuide,
	})
	if err != nil {
		return nil, err
	}
	text, err := m.complete(ctx, "generate", client.CompletionRequest{
		System:      prompts.SystemPrompt(prompts.SystemGeneration),
		Prompt:      prompt,
		Temperature: temperature(0.2),
		MaxTokens:   4096,
	})
	if err != nil {
		return nil, err
	}

	d, report, err := dashboard.LoadText(text)
	if err != nil {
		return nil, err
	}
	m.metrics.RecordParseDegraded(ctx, len(report.Warnings))
	if d.Title == "" {
		d.Title = in.Title
		report = revalidate(d, report)
	}
	var messages []string
	if !report.OK && d.HasOverlaps() {
		d.AutoLayout(m.columns)
		messages = append(messages, fmt.Sprintf("applied %d column auto-layout to fix positioning", m.columns))
		report = revalidate(d, report)
	}

	if !in.Save {
		res := &Result{Dashboard: d, Report: report, Messages: messages}
		if !report.OK {
			return res, &dashboard.ValidationError{Errors: report.Errors}
		}
		return res, nil
	}
	res, err := m.Save(ctx, d, "")
	if res != nil {
		res.Messages = append(messages, res.Messages...)
		keepWarnings(res, report)
	}
	return res, err
}
