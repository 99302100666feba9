package manager

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Karan96Kaushik/gen-grafana-ai/internal/client"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/store"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/telemetry"
	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/dashboard"
	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/prompts"
)

var (
	ErrNoCompleter   = errors.New("no LLM client configured")
	ErrNoOperations  = errors.New("no applicable panel operations suggested")
	ErrEmptyResponse = errors.New("LLM returned an empty response")
)

// Completer is the LLM collaborator: one prompt in, one completion out.
type Completer interface {
	Complete(ctx context.Context, req client.CompletionRequest) (string, error)
}

// Store is the storage collaborator.
type Store interface {
	GetByID(ctx context.Context, id int64) (*store.Record, error)
	GetBySlug(ctx context.Context, slug string) (*store.Record, error)
	Insert(ctx context.Context, r *store.Record) (int64, error)
	Tables(ctx context.Context) ([]string, error)
	DescribeTables(ctx context.Context, tables []string) (string, error)
}

// Indexer receives every saved dashboard.
type Indexer interface {
	Add(r *store.Record) error
}

type Options struct {
	// Columns is the auto-layout column count used when suggested
	// operations leave overlapping panels.
	Columns int
	Index   Indexer
	Metrics *telemetry.Metrics
}

// Manager runs the AI-assisted dashboard workflow on top of the dashboard
// library, the store and an LLM.
type Manager struct {
	llm     Completer
	store   Store
	index   Indexer
	prompts *prompts.Catalog
	columns int
	metrics *telemetry.Metrics
	tracer  trace.Tracer
	logger  *zap.Logger
}

func New(log *zap.Logger, st Store, catalog *prompts.Catalog, opts Options) *Manager {
	if opts.Columns <= 0 {
		opts.Columns = dashboard.DefaultColumns
	}
	if catalog == nil {
		catalog = prompts.NewCatalog()
	}
	return &Manager{
		store:   st,
		index:   opts.Index,
		prompts: catalog,
		columns: opts.Columns,
		metrics: opts.Metrics,
		tracer:  otel.Tracer(telemetry.ScopeName),
		logger:  log,
	}
}

// WithCompleter returns a copy of m that sends prompts to llm.
func (m *Manager) WithCompleter(llm Completer) *Manager {
	c := *m
	c.llm = llm
	return &c
}

// Result is the outcome of a workflow step that produces a dashboard.
type Result struct {
	Dashboard *dashboard.Dashboard `json:"dashboard"`
	Report    dashboard.Report     `json:"report"`
	Messages  []string             `json:"messages,omitempty"`
	ID        int64                `json:"id,omitempty"`
	Slug      string               `json:"slug,omitempty"`
	Version   int                  `json:"version,omitempty"`
}

// Get resolves ref as a numeric id or a slug and loads the stored dashboard.
func (m *Manager) Get(ctx context.Context, ref string) (*store.Record, *dashboard.Dashboard, dashboard.Report, error) {
	ref = strings.TrimSpace(ref)
	var (
		rec *store.Record
		err error
	)
	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		rec, err = m.store.GetByID(ctx, id)
	} else {
		rec, err = m.store.GetBySlug(ctx, ref)
	}
	if err != nil {
		return nil, nil, dashboard.Report{}, err
	}
	d, report, err := dashboard.Load([]byte(rec.Data))
	if err != nil {
		return nil, nil, dashboard.Report{}, fmt.Errorf("stored dashboard %d: %w", rec.ID, err)
	}
	m.metrics.RecordParseDegraded(ctx, len(report.Warnings))
	return rec, d, report, nil
}

// Save fixes d, rejects it if hard errors remain, and stores it under slug
// (derived from the title when empty).
func (m *Manager) Save(ctx context.Context, d *dashboard.Dashboard, slug string) (*Result, error) {
	ctx, span := m.tracer.Start(ctx, "manager.Save")
	defer span.End()

	report := dashboard.ValidateAndFix(d)
	if !report.OK {
		err := &dashboard.ValidationError{Errors: report.Errors}
		span.SetStatus(codes.Error, err.Error())
		return &Result{Dashboard: d, Report: report}, err
	}
	if slug == "" {
		slug = dashboard.Slugify(d.Title)
	}
	if slug == "" {
		slug = d.UID
	}
	data, err := d.JSON(false)
	if err != nil {
		return nil, err
	}

	id, err := m.store.Insert(ctx, &store.Record{
		Title: d.Title,
		Slug:  slug,
		UID:   d.UID,
		Tags:  d.Tags,
		Data:  data,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	rec, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.index != nil {
		if err := m.index.Add(rec); err != nil {
			m.logger.Warn("Failed to index dashboard", zap.Int64("id", id), zap.Error(err))
		}
	}
	span.SetAttributes(attribute.Int64("dashboard.id", id), attribute.Int("dashboard.version", rec.Version))
	m.logger.Info("Saved dashboard", zap.Int64("id", id), zap.String("slug", slug), zap.Int("version", rec.Version))
	return &Result{Dashboard: d, Report: report, ID: id, Slug: rec.Slug, Version: rec.Version}, nil
}

func (m *Manager) complete(ctx context.Context, op string, req client.CompletionRequest) (string, error) {
	if m.llm == nil {
		return "", ErrNoCompleter
	}
	m.logger.Debug("Sending prompt", zap.String("operation", op), zap.Int("prompt_chars", len(req.Prompt)))
	text, err := m.llm.Complete(ctx, req)
	if err != nil {
		m.logger.Error("LLM call failed", zap.String("operation", op), zap.Error(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}
	m.logger.Debug("Received response", zap.String("operation", op), zap.Int("response_chars", len(text)))
	return text, nil
}

func temperature(v float64) *float64 {
	return &v
}
