// Package reindex drives paged reindex sessions and single-entity index
// maintenance.
package reindex

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aman-CERP/cmsindex/internal/cms"
	"github.com/Aman-CERP/cmsindex/internal/config"
	cmserrors "github.com/Aman-CERP/cmsindex/internal/errors"
	"github.com/Aman-CERP/cmsindex/internal/gateway"
	"github.com/Aman-CERP/cmsindex/internal/schema"
	"github.com/Aman-CERP/cmsindex/internal/session"
	"github.com/Aman-CERP/cmsindex/internal/transform"
)

// instrumentationName is the tracer name used when none is injected.
const instrumentationName = "github.com/Aman-CERP/cmsindex/internal/reindex"

// MessageIndexCreated is returned by DropCreateIndex on success.
const MessageIndexCreated = "Index created"

// Source loads ids and entities from the CMS.
type Source interface {
	IDsByKind(ctx context.Context, kind cms.Kind) ([]int, error)
	EntitiesByIDs(ctx context.Context, kind cms.Kind, ids []int) ([]*cms.Entity, error)
}

// SchemaSource builds the index field list.
type SchemaSource interface {
	BuildSchema(ctx context.Context) ([]schema.FieldDescriptor, error)
	Live(ctx context.Context) ([]schema.FieldDescriptor, error)
}

// Transformer turns an entity into a document. A nil document means the
// entity was excluded.
type Transformer interface {
	Transform(ctx context.Context, e *cms.Entity, fields []config.SearchField) (transform.Document, error)
}

// CreatingIndexFunc may adjust a definition before the index is created.
// Returning an error aborts the creation.
type CreatingIndexFunc func(def *gateway.Definition) error

// RunnerDependencies contains the injected dependencies for Runner.
type RunnerDependencies struct {
	// Source reads ids and entities from the CMS (required).
	Source Source

	// Schema builds the index definition fields (required).
	Schema SchemaSource

	// Transformer builds documents (required).
	Transformer Transformer

	// Gateway receives documents (required).
	Gateway gateway.Gateway

	// Admin manages index definitions. Required for DropCreateIndex and Indexes.
	Admin gateway.Admin

	// Sessions persists id snapshots (required).
	Sessions *session.Store

	// Config is the loaded configuration (required).
	Config *config.Config

	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Runner executes reindex pages and index maintenance.
// Callers must not drive the same session and kind concurrently.
type Runner struct {
	source      Source
	schema      SchemaSource
	transformer Transformer
	gateway     gateway.Gateway
	admin       gateway.Admin
	sessions    *session.Store
	config      *config.Config
	tracer      trace.Tracer
	logger      *slog.Logger
	batchSize   int

	mu       sync.RWMutex
	creating []CreatingIndexFunc
}

// NewRunner creates a Runner with injected dependencies.
func NewRunner(deps RunnerDependencies) (*Runner, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("cms source is required")
	}
	if deps.Schema == nil {
		return nil, fmt.Errorf("schema source is required")
	}
	if deps.Transformer == nil {
		return nil, fmt.Errorf("transformer is required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}

	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := deps.Config.Reindex.BatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}

	return &Runner{
		source:      deps.Source,
		schema:      deps.Schema,
		transformer: deps.Transformer,
		gateway:     deps.Gateway,
		admin:       deps.Admin,
		sessions:    deps.Sessions,
		config:      deps.Config,
		tracer:      tracer,
		logger:      logger,
		batchSize:   batchSize,
	}, nil
}

// BatchSize returns the number of ids per page.
func (r *Runner) BatchSize() int {
	return r.batchSize
}

// OnCreatingIndex registers a hook run by DropCreateIndex before creation.
func (r *Runner) OnCreatingIndex(fn CreatingIndexFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creating = append(r.creating, fn)
}

// Page processes one page of a session. Page 0 is a status probe that never
// touches the stored snapshot except to create it when the session is new.
// The snapshot is deleted when the last page has been submitted.
func (r *Runner) Page(ctx context.Context, sessionID string, kind cms.Kind, page int) (*Status, error) {
	if err := session.ValidateSessionID(sessionID); err != nil {
		return nil, cmserrors.ValidationError("invalid session id", err)
	}
	if page < 0 {
		return nil, cmserrors.ValidationError(fmt.Sprintf("page must be >= 0, got %d", page), nil)
	}

	ctx, span := r.tracer.Start(ctx, "reindex.page", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("reindex.kind", kind.String()),
		attribute.Int("reindex.page", page),
	))
	defer span.End()

	status, err := r.page(ctx, sessionID, kind, page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("reindex.total_pages", status.TotalPages),
		attribute.Int("reindex.processed", status.Processed),
		attribute.Bool("reindex.finished", status.Finished),
	)
	return status, nil
}

func (r *Runner) page(ctx context.Context, sessionID string, kind cms.Kind, page int) (*Status, error) {
	ids, err := r.sessionIDs(ctx, sessionID, kind)
	if err != nil {
		return nil, err
	}

	total := len(ids)
	status := &Status{
		SessionID:  sessionID,
		Kind:       kind.String(),
		Page:       page,
		TotalPages: pageCount(total, r.batchSize),
	}
	status.setQueued(kind, queuedCount(total, r.batchSize, page))

	if page == 0 {
		return status, nil
	}

	start, end := pageBounds(total, r.batchSize, page)
	slice := ids[start:end]
	if len(slice) == 0 {
		// Nothing left: the run already finished, possibly on an earlier call.
		if err := r.sessions.Delete(sessionID, kind.FileName()); err != nil {
			r.logger.Warn("session_delete_failed",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()))
		}
		status.Finished = true
		status.Message = MessageDone
		return status, nil
	}
	status.Processed = len(slice)

	docs, err := r.buildDocuments(ctx, kind, slice)
	if err != nil {
		return nil, err
	}
	status.Submitted = len(docs)

	result, err := r.submit(ctx, docs)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		status.Error = true
		status.FailedKeys = result.FailedKeys
		r.logger.Warn("reindex_page_partial",
			slog.String("session_id", sessionID),
			slog.String("kind", kind.String()),
			slog.Int("page", page),
			slog.Int("failed", len(result.FailedKeys)),
			slog.String("message", result.Message))
	}

	if page >= status.TotalPages {
		if err := r.sessions.Delete(sessionID, kind.FileName()); err != nil {
			return nil, err
		}
		status.Finished = true
		status.Message = MessageDone
		r.logger.Info("reindex_session_done",
			slog.String("session_id", sessionID),
			slog.String("kind", kind.String()),
			slog.Int("total", total))
		return status, nil
	}

	status.Message = strings.TrimSpace(fmt.Sprintf("Sent %s page %d of %d for indexing. %s",
		kind.String(), page, status.TotalPages, result.Message))
	r.logger.Info("reindex_page_submitted",
		slog.String("session_id", sessionID),
		slog.String("kind", kind.String()),
		slog.Int("page", page),
		slog.Int("total_pages", status.TotalPages),
		slog.Int("documents", len(docs)))
	return status, nil
}

// sessionIDs returns the stored snapshot, taking a fresh one when the
// session is new or its file is unreadable.
func (r *Runner) sessionIDs(ctx context.Context, sessionID string, kind cms.Kind) ([]int, error) {
	name := kind.FileName()
	if r.sessions.Exists(sessionID, name) {
		ids, err := r.sessions.ReadIDs(sessionID, name)
		if err == nil {
			return ids, nil
		}
		if !errors.Is(err, cmserrors.ErrSessionState) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		r.logger.Warn("session_ids_recomputed",
			slog.String("session_id", sessionID),
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()))
	}

	ids, err := r.snapshot(ctx, kind)
	if err != nil {
		return nil, err
	}
	if err := r.sessions.WriteIDs(sessionID, name, ids); err != nil {
		return nil, err
	}
	r.logger.Info("session_snapshot_taken",
		slog.String("session_id", sessionID),
		slog.String("kind", kind.String()),
		slog.Int("ids", len(ids)))
	return ids, nil
}

// snapshot returns the distinct positive ids of kind in ascending order.
func (r *Runner) snapshot(ctx context.Context, kind cms.Kind) ([]int, error) {
	raw, err := r.source.IDsByKind(ctx, kind)
	if err != nil {
		return nil, cmserrors.New(cmserrors.ErrCodeCMSUnavailable,
			fmt.Sprintf("failed to list %s ids", kind), err)
	}

	bm := roaring.New()
	for _, id := range raw {
		if id <= 0 || int64(id) > math.MaxUint32 {
			continue
		}
		bm.Add(uint32(id))
	}

	out := make([]int, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out, nil
}

// buildDocuments loads and transforms a page. Missing entities are skipped;
// the first transform failure aborts the page.
func (r *Runner) buildDocuments(ctx context.Context, kind cms.Kind, ids []int) ([]transform.Document, error) {
	entities, err := r.source.EntitiesByIDs(ctx, kind, ids)
	if err != nil {
		return nil, cmserrors.New(cmserrors.ErrCodeCMSUnavailable,
			fmt.Sprintf("failed to load %s entities", kind), err)
	}

	docs := make([]transform.Document, 0, len(entities))
	for _, e := range entities {
		if e == nil {
			continue
		}
		doc, err := r.transformer.Transform(ctx, e, r.config.SearchFields)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *Runner) submit(ctx context.Context, docs []transform.Document) (*gateway.BatchResult, error) {
	ctx, span := r.tracer.Start(ctx, "reindex.submit", trace.WithAttributes(
		attribute.String("index.name", r.config.Index.Name),
		attribute.Int("batch.size", len(docs)),
	))
	defer span.End()

	result, err := r.gateway.SubmitBatch(ctx, r.config.Index.Name, docs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !result.Success {
		span.SetStatus(codes.Error, result.Message)
		span.SetAttributes(attribute.Int("batch.failed", len(result.FailedKeys)))
	}
	return result, nil
}

// ReindexEntity submits a single entity, as done when it is saved in the CMS.
// An entity excluded by a hook is not submitted and yields a nil result.
func (r *Runner) ReindexEntity(ctx context.Context, e *cms.Entity) (*gateway.BatchResult, error) {
	if e == nil {
		return nil, cmserrors.ValidationError("entity is required", nil)
	}
	doc, err := r.transformer.Transform(ctx, e, r.config.SearchFields)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	result, err := r.submit(ctx, []transform.Document{doc})
	if err != nil {
		return nil, err
	}
	if !result.Success {
		r.logger.Warn("reindex_entity_rejected",
			slog.Int("entity_id", e.ID),
			slog.String("message", result.Message))
	}
	return result, nil
}

// ReindexByID loads the entity of kind with id and reindexes it.
func (r *Runner) ReindexByID(ctx context.Context, kind cms.Kind, id int) (*gateway.BatchResult, error) {
	entities, err := r.source.EntitiesByIDs(ctx, kind, []int{id})
	if err != nil {
		return nil, cmserrors.New(cmserrors.ErrCodeCMSUnavailable,
			fmt.Sprintf("failed to load %s %d", kind, id), err)
	}
	if len(entities) == 0 || entities[0] == nil {
		return nil, cmserrors.ValidationError(fmt.Sprintf("%s %d not found", kind, id), nil)
	}
	return r.ReindexEntity(ctx, entities[0])
}

// Delete removes the document with the entity id from the index.
func (r *Runner) Delete(ctx context.Context, id int) error {
	if err := r.gateway.DeleteByID(ctx, r.config.Index.Name, strconv.Itoa(id)); err != nil {
		return err
	}
	r.logger.Info("document_deleted",
		slog.String("index", r.config.Index.Name),
		slog.Int("entity_id", id))
	return nil
}

// Indexes lists the search engine's index names.
func (r *Runner) Indexes(ctx context.Context) ([]string, error) {
	if r.admin == nil {
		return nil, cmserrors.InternalError("index administration is not configured", nil)
	}
	return r.admin.ListIndexes(ctx)
}

// Definition returns the definition DropCreateIndex would create, built
// from the live schema.
func (r *Runner) Definition(ctx context.Context) (gateway.Definition, error) {
	fields, err := r.schema.Live(ctx)
	if err != nil {
		return gateway.Definition{}, err
	}
	return gateway.Definition{
		Name:            r.config.Index.Name,
		Fields:          fields,
		ScoringProfiles: r.config.ScoringProfiles,
		Analyzers:       r.config.Analyzers,
	}, nil
}

// DropCreateIndex deletes the configured index when present and creates it
// from the current schema. Failures are reported as the returned text.
func (r *Runner) DropCreateIndex(ctx context.Context) string {
	if r.admin == nil {
		return "index administration is not configured"
	}
	name := r.config.Index.Name

	names, err := r.admin.ListIndexes(ctx)
	if err != nil {
		return err.Error()
	}
	for _, n := range names {
		if n != name {
			continue
		}
		if err := r.admin.DeleteIndex(ctx, name); err != nil {
			return err.Error()
		}
		r.logger.Info("index_dropped", slog.String("index", name))
		break
	}

	def, err := r.Definition(ctx)
	if err != nil {
		return err.Error()
	}

	r.mu.RLock()
	hooks := append([]CreatingIndexFunc(nil), r.creating...)
	r.mu.RUnlock()
	for _, fn := range hooks {
		if err := fn(&def); err != nil {
			return err.Error()
		}
	}

	if err := r.admin.CreateIndex(ctx, def); err != nil {
		r.logger.Error("index_create_failed",
			slog.String("index", name),
			slog.String("error", err.Error()))
		return err.Error()
	}
	r.logger.Info("index_created",
		slog.String("index", name),
		slog.Int("fields", len(def.Fields)))
	return MessageIndexCreated
}
