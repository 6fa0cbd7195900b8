package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	cmserrors "github.com/Aman-CERP/cmsindex/internal/errors"
	"github.com/Aman-CERP/cmsindex/internal/schema"
	"github.com/Aman-CERP/cmsindex/internal/transform"
)

const (
	// indexDirSuffix marks index directories under the root.
	indexDirSuffix = ".bleve"

	// definitionKey stores the index definition inside the index.
	definitionKey = "cmsindex:definition"
)

// ErrIndexNotFound is returned when a named index does not exist.
var ErrIndexNotFound = errors.New("index not found")

type openIndex struct {
	index  bleve.Index
	def    Definition
	fields map[string]bool
}

// BleveGateway keeps one bleve index per index name under a root directory.
// An empty root keeps every index in memory.
type BleveGateway struct {
	mu      sync.RWMutex
	root    string
	indexes map[string]*openIndex
	logger  *slog.Logger
	closed  bool
}

// Verify interface implementation at compile time
var (
	_ Gateway = (*BleveGateway)(nil)
	_ Admin   = (*BleveGateway)(nil)
)

// Option configures a BleveGateway.
type Option func(*BleveGateway)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *BleveGateway) {
		g.logger = logger
	}
}

// NewBleveGateway creates a gateway rooted at root.
func NewBleveGateway(root string, opts ...Option) (*BleveGateway, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0755); err != nil {
			return nil, fmt.Errorf("failed to create index root %s: %w", root, err)
		}
	}
	g := &BleveGateway{
		root:    root,
		indexes: make(map[string]*openIndex),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// SubmitBatch upserts docs into the named index. Documents without a key or
// carrying fields the index does not define are rejected individually.
func (g *BleveGateway) SubmitBatch(ctx context.Context, indexName string, docs []transform.Document) (*BatchResult, error) {
	oi, err := g.open(indexName)
	if err != nil {
		return nil, err
	}

	keyField := oi.def.KeyField()
	batch := oi.index.NewBatch()
	var failed []string

	for i, doc := range docs {
		key, _ := doc[keyField].(string)
		if key == "" {
			failed = append(failed, fmt.Sprintf("#%d", i))
			continue
		}
		if unknown := oi.unknownField(doc); unknown != "" {
			g.logger.Warn("document_rejected",
				slog.String("index", indexName),
				slog.String("key", key),
				slog.String("field", unknown))
			failed = append(failed, key)
			continue
		}
		if err := batch.Index(key, map[string]any(doc)); err != nil {
			failed = append(failed, key)
		}
	}

	if batch.Size() > 0 {
		if err := oi.index.Batch(batch); err != nil {
			return nil, cmserrors.New(cmserrors.ErrCodeSubmissionFailed,
				fmt.Sprintf("batch submission to %s failed", indexName), err)
		}
	}

	g.logger.Debug("batch_submitted",
		slog.String("index", indexName),
		slog.Int("documents", len(docs)),
		slog.Int("failed", len(failed)))

	if len(failed) > 0 {
		return &BatchResult{Success: false, Message: failureMessage(failed), FailedKeys: failed}, nil
	}
	return &BatchResult{Success: true}, nil
}

// DeleteByID removes one document by key.
func (g *BleveGateway) DeleteByID(ctx context.Context, indexName, id string) error {
	oi, err := g.open(indexName)
	if err != nil {
		return err
	}
	if err := oi.index.Delete(id); err != nil {
		return fmt.Errorf("failed to delete %s from %s: %w", id, indexName, err)
	}
	return nil
}

// DocCount returns the number of documents in the named index.
func (g *BleveGateway) DocCount(ctx context.Context, indexName string) (uint64, error) {
	oi, err := g.open(indexName)
	if err != nil {
		return 0, err
	}
	return oi.index.DocCount()
}

// Definition returns the stored definition of the named index.
func (g *BleveGateway) Definition(ctx context.Context, indexName string) (Definition, error) {
	oi, err := g.open(indexName)
	if err != nil {
		return Definition{}, err
	}
	return oi.def, nil
}

// ListIndexes returns the index names, sorted.
func (g *BleveGateway) ListIndexes(ctx context.Context) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return nil, fmt.Errorf("gateway is closed")
	}

	names := make(map[string]bool, len(g.indexes))
	for name := range g.indexes {
		names[name] = true
	}

	if g.root != "" {
		entries, err := os.ReadDir(g.root)
		if err != nil {
			return nil, fmt.Errorf("failed to list indexes: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() && strings.HasSuffix(e.Name(), indexDirSuffix) {
				names[strings.TrimSuffix(e.Name(), indexDirSuffix)] = true
			}
		}
	}

	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// DeleteIndex closes and removes the named index.
func (g *BleveGateway) DeleteIndex(ctx context.Context, name string) error {
	if err := ValidateIndexName(name); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if oi, ok := g.indexes[name]; ok {
		_ = oi.index.Close()
		delete(g.indexes, name)
	} else if g.root == "" || !dirExists(g.path(name)) {
		return fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}

	if g.root != "" {
		if err := os.RemoveAll(g.path(name)); err != nil {
			return fmt.Errorf("failed to remove index %s: %w", name, err)
		}
	}

	g.logger.Info("index_deleted", slog.String("index", name))
	return nil
}

// CreateIndex builds a new index from def. It fails if the index exists.
func (g *BleveGateway) CreateIndex(ctx context.Context, def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	im, err := buildMapping(def)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return fmt.Errorf("gateway is closed")
	}
	if _, ok := g.indexes[def.Name]; ok || (g.root != "" && dirExists(g.path(def.Name))) {
		return fmt.Errorf("index %s already exists", def.Name)
	}

	var idx bleve.Index
	if g.root == "" {
		idx, err = bleve.NewMemOnly(im)
	} else {
		idx, err = bleve.New(g.path(def.Name), im)
	}
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", def.Name, err)
	}

	data, err := json.Marshal(def)
	if err != nil {
		_ = idx.Close()
		return fmt.Errorf("failed to encode definition: %w", err)
	}
	if err := idx.SetInternal([]byte(definitionKey), data); err != nil {
		_ = idx.Close()
		return fmt.Errorf("failed to store definition: %w", err)
	}

	g.indexes[def.Name] = newOpenIndex(idx, def)
	g.logger.Info("index_created",
		slog.String("index", def.Name),
		slog.Int("fields", len(def.Fields)))
	return nil
}

// Close closes every open index.
func (g *BleveGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true

	var firstErr error
	for name, oi := range g.indexes {
		if err := oi.index.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(g.indexes, name)
	}
	return firstErr
}

// open returns the named index, opening it from disk on first use.
func (g *BleveGateway) open(name string) (*openIndex, error) {
	g.mu.RLock()
	oi, ok := g.indexes[name]
	closed := g.closed
	g.mu.RUnlock()

	if closed {
		return nil, fmt.Errorf("gateway is closed")
	}
	if ok {
		return oi, nil
	}
	if err := ValidateIndexName(name); err != nil {
		return nil, err
	}
	if g.root == "" || !dirExists(g.path(name)) {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if oi, ok := g.indexes[name]; ok {
		return oi, nil
	}

	idx, err := bleve.Open(g.path(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", name, err)
	}
	data, err := idx.GetInternal([]byte(definitionKey))
	if err != nil || len(data) == 0 {
		_ = idx.Close()
		return nil, fmt.Errorf("index %s has no stored definition", name)
	}
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("index %s definition is corrupt: %w", name, err)
	}

	oi = newOpenIndex(idx, def)
	g.indexes[name] = oi
	return oi, nil
}

func (g *BleveGateway) path(name string) string {
	return filepath.Join(g.root, name+indexDirSuffix)
}

func newOpenIndex(idx bleve.Index, def Definition) *openIndex {
	fields := make(map[string]bool, len(def.Fields))
	for _, f := range def.Fields {
		fields[f.Name] = true
	}
	return &openIndex{index: idx, def: def, fields: fields}
}

// unknownField returns the first document field the index does not define.
func (oi *openIndex) unknownField(doc transform.Document) string {
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !oi.fields[name] {
			return name
		}
	}
	return ""
}

// buildMapping translates a definition into a static bleve mapping: only
// defined fields are indexed.
func buildMapping(def Definition) (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	for _, a := range def.Analyzers {
		cfg := map[string]any{
			"type":      custom.Name,
			"tokenizer": a.Tokenizer,
		}
		if len(a.TokenFilters) > 0 {
			cfg["token_filters"] = a.TokenFilters
		}
		if len(a.CharFilters) > 0 {
			cfg["char_filters"] = a.CharFilters
		}
		if err := im.AddCustomAnalyzer(a.Name, cfg); err != nil {
			return nil, fmt.Errorf("failed to add analyzer %s: %w", a.Name, err)
		}
	}

	dm := bleve.NewDocumentStaticMapping()
	for _, f := range def.Fields {
		dm.AddFieldMappingsAt(f.Name, fieldMapping(f))
	}
	im.DefaultMapping = dm
	im.DefaultAnalyzer = standard.Name

	if err := im.Validate(); err != nil {
		return nil, fmt.Errorf("invalid index mapping: %w", err)
	}
	return im, nil
}

func fieldMapping(f schema.FieldDescriptor) *mapping.FieldMapping {
	var fm *mapping.FieldMapping
	switch f.Type {
	case schema.Boolean:
		fm = bleve.NewBooleanFieldMapping()
	case schema.Int32:
		fm = bleve.NewNumericFieldMapping()
	case schema.DateTimeOffset:
		fm = bleve.NewDateTimeFieldMapping()
	default:
		fm = bleve.NewTextFieldMapping()
		switch {
		case f.Analyzer != "":
			fm.Analyzer = f.Analyzer
		case f.Searchable:
			fm.Analyzer = standard.Name
		default:
			fm.Analyzer = keyword.Name
		}
		fm.IncludeTermVectors = f.Searchable
	}

	fm.Store = f.Retrievable || f.Key
	fm.Index = f.Key || f.Searchable || f.Filterable || f.Sortable || f.Facetable
	fm.IncludeInAll = f.Searchable
	fm.DocValues = f.Sortable || f.Facetable
	return fm
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
