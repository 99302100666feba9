package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Karan96Kaushik/gen-grafana-ai/internal/store"
	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/dashboard"
)

const reindexWorkers = 4

var ErrEmptyQuery = errors.New("search query is empty")

// document is the indexed view of a stored dashboard.
type document struct {
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Panels      []string `json:"panels"`
	Queries     []string `json:"queries"`
}

type Hit struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Slug  string  `json:"slug"`
	Score float64 `json:"score"`
}

// Index is an in-memory full-text index over stored dashboards.
type Index struct {
	mu     sync.RWMutex
	idx    bleve.Index
	logger *zap.Logger
}

func New(log *zap.Logger) (*Index, error) {
	idx, err := newMemIndex()
	if err != nil {
		return nil, err
	}
	return &Index{idx: idx, logger: log}, nil
}

func newMemIndex() (bleve.Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}
	return idx, nil
}

func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.idx.Close()
}

// Add indexes or re-indexes one record.
func (i *Index) Add(r *store.Record) error {
	doc, err := toDocument(r)
	if err != nil {
		return err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.idx.Index(strconv.FormatInt(r.ID, 10), doc)
}

// Reindex replaces the index content with records. Documents are built
// concurrently; a record whose data cannot be decoded is skipped and logged.
func (i *Index) Reindex(ctx context.Context, records []*store.Record) error {
	docs := make([]*document, len(records))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(reindexWorkers)
	for n, r := range records {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := toDocument(r)
			if err != nil {
				i.logger.Warn("Skipping dashboard in search index", zap.Int64("id", r.ID), zap.Error(err))
				return nil
			}
			docs[n] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fresh, err := newMemIndex()
	if err != nil {
		return err
	}
	batch := fresh.NewBatch()
	for n, doc := range docs {
		if doc == nil {
			continue
		}
		if err := batch.Index(strconv.FormatInt(records[n].ID, 10), doc); err != nil {
			_ = fresh.Close()
			return fmt.Errorf("failed to index dashboard %d: %w", records[n].ID, err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		_ = fresh.Close()
		return fmt.Errorf("failed to apply index batch: %w", err)
	}

	i.mu.Lock()
	old := i.idx
	i.idx = fresh
	i.mu.Unlock()
	if err := old.Close(); err != nil {
		i.logger.Warn("Failed to close previous search index", zap.Error(err))
	}
	i.logger.Debug("Search index rebuilt", zap.Uint64("documents", docCount(fresh)))
	return nil
}

// Search runs a query-string query (bleve syntax, e.g. "latency tags:prod")
// and returns up to limit hits ordered by score.
func (i *Index) Search(query string, limit int) ([]Hit, uint64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 10
	}

	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(query), limit, 0, false)
	req.Fields = []string{"title", "slug"}

	i.mu.RLock()
	res, err := i.idx.Search(req)
	i.mu.RUnlock()
	if err != nil {
		return nil, 0, fmt.Errorf("search %q: %w", query, err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		hit := Hit{ID: id, Score: h.Score}
		hit.Title, _ = h.Fields["title"].(string)
		hit.Slug, _ = h.Fields["slug"].(string)
		hits = append(hits, hit)
	}
	return hits, res.Total, nil
}

func docCount(idx bleve.Index) uint64 {
	n, err := idx.DocCount()
	if err != nil {
		return 0
	}
	return n
}

func toDocument(r *store.Record) (*document, error) {
	var d dashboard.Dashboard
	if err := json.Unmarshal(r.Data, &d); err != nil {
		return nil, fmt.Errorf("decode dashboard %d: %w", r.ID, err)
	}
	doc := &document{
		Title:       r.Title,
		Slug:        r.Slug,
		Description: d.Description,
		Tags:        r.Tags,
	}
	if doc.Title == "" {
		doc.Title = d.Title
	}
	var walk func(panels []*dashboard.Panel)
	walk = func(panels []*dashboard.Panel) {
		for _, p := range panels {
			doc.Panels = append(doc.Panels, p.Title)
			for _, t := range p.Targets {
				if q := t.Text(); q != "" {
					doc.Queries = append(doc.Queries, q)
				}
			}
			walk(p.Panels)
		}
	}
	walk(d.Panels)
	return doc, nil
}
