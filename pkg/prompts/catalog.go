package prompts

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrUnknownPrompt   = errors.New("unknown prompt")
	ErrMissingVariable = errors.New("missing template variable")
)

// Template is one catalog entry. Text uses {name} placeholders; {{ and }}
// render as literal braces.
type Template struct {
	Category    string `json:"category"`
	Type        string `json:"type"`
	Text        string `json:"-"`
	Description string `json:"description"`
	UseCase     string `json:"useCase"`
}

// Catalog maps (category, type) to a prompt template. Safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	templates map[string]map[string]Template
}

// NewCatalog returns a catalog preloaded with the built-in templates.
func NewCatalog() *Catalog {
	c := &Catalog{templates: make(map[string]map[string]Template)}
	for _, t := range builtin {
		c.put(t)
	}
	return c
}

func (c *Catalog) put(t Template) {
	if c.templates[t.Category] == nil {
		c.templates[t.Category] = make(map[string]Template)
	}
	c.templates[t.Category][t.Type] = t
}

// Add registers or replaces a template.
func (c *Catalog) Add(t Template) error {
	if t.Category == "" || t.Type == "" {
		return fmt.Errorf("template category and type are required")
	}
	if strings.TrimSpace(t.Text) == "" {
		return fmt.Errorf("template %s/%s has no text", t.Category, t.Type)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(t)
	return nil
}

// Info returns the template registered under (category, typ).
func (c *Catalog) Info(category, typ string) (Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.templates[category][typ]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s/%s", ErrUnknownPrompt, category, typ)
	}
	return t, nil
}

// Get renders the template with vars substituted for its placeholders.
func (c *Catalog) Get(category, typ string, vars map[string]string) (string, error) {
	t, err := c.Info(category, typ)
	if err != nil {
		return "", err
	}
	out, err := Render(t.Text, vars)
	if err != nil {
		return "", fmt.Errorf("prompt %s/%s: %w", category, typ, err)
	}
	return out, nil
}

// Categories returns the category names in sorted order.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.templates))
	for k := range c.templates {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Types returns the template types of a category in sorted order.
func (c *Catalog) Types(category string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.templates[category]))
	for k := range c.templates[category] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// List returns every template ordered by category then type.
func (c *Catalog) List() []Template {
	var out []Template
	for _, cat := range c.Categories() {
		for _, typ := range c.Types(cat) {
			t, _ := c.Info(cat, typ)
			out = append(out, t)
		}
	}
	return out
}

// Render substitutes {name} placeholders. A placeholder without a value is an
// error; a brace that does not open an identifier is copied through.
func Render(text string, vars map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case ch == '{' && i+1 < len(text) && text[i+1] == '{':
			b.WriteByte('{')
			i++
		case ch == '}' && i+1 < len(text) && text[i+1] == '}':
			b.WriteByte('}')
			i++
		case ch == '{':
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 || !isName(text[i+1:i+1+end]) {
				b.WriteByte(ch)
				continue
			}
			name := text[i+1 : i+1+end]
			v, ok := vars[name]
			if !ok {
				return "", fmt.Errorf("%w: %s", ErrMissingVariable, name)
			}
			b.WriteString(v)
			i += end + 1
		default:
			b.WriteByte(ch)
		}
	}
	return b.String(), nil
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (i == 0 || c < '0' || c > '9') {
			return false
		}
	}
	return true
}

const (
	SystemGeneral        = "general"
	SystemGrafana        = "grafana"
	SystemModification   = "grafana_modification"
	SystemOperations     = "grafana_operations"
	SystemTroubleshoot   = "grafana_troubleshooting"
	SystemOptimization   = "grafana_optimization"
	SystemSchemaAdvisor  = "schema_recommendations"
	SystemGeneration     = "grafana_generation"
)

var systemPrompts = map[string]string{
	SystemGeneral:        "You are a data analyst who writes clear, accurate summaries of database information.",
	SystemGrafana:        "You are a Grafana dashboard expert who explains dashboard configurations. Focus on the monitoring strategy, the visualization choices and how well the dashboard serves its readers.",
	SystemModification:   "You are a Grafana dashboard expert. You modify dashboard JSON configurations based on user requests. Respond with valid JSON only.",
	SystemOperations:     "You are a Grafana dashboard expert. You turn user requests into panel operations (add, remove, modify) with complete JSON configurations. Respond with valid JSON only.",
	SystemTroubleshoot:   "You are a Grafana troubleshooting expert who diagnoses dashboard issues and gives practical step by step fixes.",
	SystemOptimization:   "You are a Grafana optimization expert who improves dashboard performance and readability.",
	SystemSchemaAdvisor:  "You are a database and dashboard expert who reads table schemas and proposes concrete Grafana panels for them.",
	SystemGeneration    : "You are a Grafana dashboard author. You produce complete dashboard JSON documents that import cleanly. Respond with the JSON document only.",
}

// SystemPrompt returns the system message for kind, falling back to the
// general analyst prompt.
func SystemPrompt(kind string) string {
	if p, ok := systemPrompts[kind]; ok {
		return p
	}
	return systemPrompts[SystemGeneral]
}
