package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/Karan96Kaushik/gen-grafana-ai/internal/analytics"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/contextutil"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/manager"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/search"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/store"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/telemetry"
	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/dashboard"
	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/prompts"
)

const (
	dashboardParamDesc = "Grafana dashboard as a JSON object, or text containing one (LLM output with code fences, comments or trailing commas is repaired)."
	refParamDesc       = "Stored dashboard reference: numeric id or slug. Use grafana_list_dashboards or grafana_search_dashboards to find one."

	defaultClientCacheSize = 64
)

var errNoLLM = errors.New("no LLM API key configured: set GRAFANA_AI_LLM_API_KEY (or GROQ_API_KEY), or send the " + contextutil.APIKeyHeader + " header")

// Options carries the optional collaborators of a Handler.
type Options struct {
	Index   *search.Index
	Catalog *prompts.Catalog
	Metrics *telemetry.Metrics
	Tracker *analytics.Tracker
	// LLM answers requests that carry no API key of their own. May be nil.
	LLM manager.Completer
	// NewLLM builds a client for an API key found in the request context.
	NewLLM          func(apiKey string) manager.Completer
	Columns         int
	ClientCacheSize int
}

type Handler struct {
	logger  *zap.Logger
	manager *manager.Manager
	store   *store.Store
	index   *search.Index
	catalog *prompts.Catalog
	metrics *telemetry.Metrics
	tracker *analytics.Tracker
	columns int

	llm        manager.Completer
	newLLM     func(apiKey string) manager.Completer
	clients    *lru.Cache[string, manager.Completer]
	clientsMtx sync.Mutex
}

func NewHandler(log *zap.Logger, mgr *manager.Manager, st *store.Store, opts Options) (*Handler, error) {
	if opts.ClientCacheSize <= 0 {
		opts.ClientCacheSize = defaultClientCacheSize
	}
	if opts.Columns <= 0 {
		opts.Columns = dashboard.DefaultColumns
	}
	if opts.Catalog == nil {
		opts.Catalog = prompts.NewCatalog()
	}
	clients, err := lru.New[string, manager.Completer](opts.ClientCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create client cache: %w", err)
	}
	return &Handler{
		logger:  log,
		manager: mgr,
		store:   st,
		index:   opts.Index,
		catalog: opts.Catalog,
		metrics: opts.Metrics,
		tracker: opts.Tracker,
		columns: opts.Columns,
		llm:     opts.LLM,
		newLLM:  opts.NewLLM,
		clients: clients,
	}, nil
}

// GetClient returns the LLM client for the request. A request carrying its
// own API key gets a cached client built for that key; otherwise the default
// client is returned, which may be nil.
func (h *Handler) GetClient(ctx context.Context) manager.Completer {
	apiKey, ok := contextutil.GetAPIKey(ctx)
	if !ok || h.newLLM == nil {
		return h.llm
	}
	if c, ok := h.clients.Get(apiKey); ok {
		return c
	}

	h.clientsMtx.Lock()
	defer h.clientsMtx.Unlock()

	// another request may have built it while we waited
	if c, ok := h.clients.Get(apiKey); ok {
		return c
	}
	h.logger.Debug("Creating LLM client with API key from context")
	c := h.newLLM(apiKey)
	h.clients.Add(apiKey, c)
	return c
}

func (h *Handler) managerFor(ctx context.Context) (*manager.Manager, error) {
	llm := h.GetClient(ctx)
	if llm == nil {
		return nil, errNoLLM
	}
	return h.manager.WithCompleter(llm), nil
}

// instrument records metrics and usage analytics around a tool handler.
func (h *Handler) instrument(name string, fn server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		res, err := fn(ctx, req)
		failed := err != nil || (res != nil && res.IsError)
		h.metrics.RecordToolCall(ctx, name, failed)
		h.tracker.ToolCalled(name, failed, time.Since(start))
		return res, err
	}
}

// RegisterAll registers every tool and resource on s.
func (h *Handler) RegisterAll(s *server.MCPServer) {
	h.RegisterDashboardHandlers(s)
	h.RegisterDocumentHandlers(s)
	h.RegisterWorkflowHandlers(s)
	h.RegisterPromptHandlers(s)
}

func arguments(req mcp.CallToolRequest) map[string]any {
	args, _ := req.Params.Arguments.(map[string]any)
	return args
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}

func intArg(args map[string]any, name string, def int) (int, error) {
	switch v := args[name].(type) {
	case nil:
		return def, nil
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return def, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf(`"%s" must be a whole number, got %q`, name, v)
		}
		return n, nil
	}
	return 0, fmt.Errorf(`"%s" must be a whole number`, name)
}

func boolArg(args map[string]any, name string) (bool, error) {
	switch v := args[name].(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf(`"%s" must be true or false, got %q`, name, v)
		}
		return b, nil
	}
	return false, fmt.Errorf(`"%s" must be true or false`, name)
}

// stringsArg accepts a JSON array of strings or a comma separated string.
func stringsArg(args map[string]any, name string) []string {
	var out []string
	switch v := args[name].(type) {
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

// rawDashboardArg returns the decoded object behind a dashboard argument
// without normalizing it. Text arguments go through the lenient parser.
func rawDashboardArg(args map[string]any, name string) (map[string]any, []string, error) {
	switch v := args[name].(type) {
	case map[string]any:
		return v, nil, nil
	case string:
		return dashboard.Parse(v)
	case nil:
		return nil, nil, fmt.Errorf(`"%s" is required`, name)
	}
	return nil, nil, fmt.Errorf(`"%s" must be a JSON object or text containing one`, name)
}

// loadDashboardArg parses and normalizes a dashboard argument. File paths are
// never read here.
func (h *Handler) loadDashboardArg(ctx context.Context, args map[string]any, name string) (*dashboard.Dashboard, dashboard.Report, error) {
	m, warnings, err := rawDashboardArg(args, name)
	if err != nil {
		return nil, dashboard.Report{}, err
	}
	h.metrics.RecordParseDegraded(ctx, len(warnings))
	d := dashboard.FromMap(m)
	r := dashboard.ValidateAndFix(d)
	r.Warnings = append(warnings, r.Warnings...)
	return d, r, nil
}

func (h *Handler) jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("Failed to marshal response", zap.Error(err))
		return mcp.NewToolResultError("failed to marshal response: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func paramError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError("Parameter validation failed: " + err.Error())
}

// workflowError turns collaborator failures into tool errors with a hint the
// caller can act on.
func workflowError(ref string, err error) *mcp.CallToolResult {
	var verr *dashboard.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("Dashboard %q not found. Use grafana_list_dashboards to see stored dashboards.", ref))
	case errors.Is(err, manager.ErrNoCompleter):
		return mcp.NewToolResultError(errNoLLM.Error())
	case errors.As(err, &verr):
		return mcp.NewToolResultError("Dashboard still has errors after automatic fixes: " + strings.Join(verr.Errors, "; "))
	}
	return mcp.NewToolResultError(err.Error())
}
