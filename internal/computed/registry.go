package computed

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Aman-CERP/cmsindex/internal/cms"
	"github.com/Aman-CERP/cmsindex/internal/config"
	cmserrors "github.com/Aman-CERP/cmsindex/internal/errors"
)

// Registry holds one parser instance per distinct parser type.
// It is populated at startup and safe for concurrent reads afterwards.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	parsers   map[string]Parser
	logger    *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithFactory adds or replaces a factory.
func WithFactory(parserType string, f Factory) RegistryOption {
	return func(r *Registry) {
		r.factories[parserType] = f
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a registry over the built-in factories plus any added
// through options.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		factories: Factories(),
		parsers:   make(map[string]Parser),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register instantiates the parser for parserType. Registering the same type
// twice is a no-op. Unknown types and instances that are not parsers fail
// with a configuration error.
func (r *Registry) Register(parserType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.parsers[parserType]; ok {
		return nil
	}

	factory, ok := r.factories[parserType]
	if !ok || factory == nil {
		return cmserrors.ParserError(parserType, fmt.Errorf("no factory registered"))
	}

	instance := factory()
	parser, ok := instance.(Parser)
	if !ok || parser == nil {
		return cmserrors.ParserError(parserType,
			fmt.Errorf("type %T does not implement GetValue(*cms.Entity) any", instance))
	}

	r.parsers[parserType] = parser
	r.logger.Debug("computed_parser_registered", slog.String("parser_type", parserType))
	return nil
}

// RegisterAll registers every distinct parser type used by computed fields.
// It stops at the first failure.
func (r *Registry) RegisterAll(fields []config.SearchField) error {
	for _, f := range fields {
		if !f.IsComputedField() {
			continue
		}
		if err := r.Register(f.ParserType); err != nil {
			return fmt.Errorf("search field %s: %w", f.Name, err)
		}
	}
	return nil
}

// GetValue evaluates the computed field against the entity. A missing parser
// means startup registration was skipped and is reported as an internal error.
func (r *Registry) GetValue(field config.SearchField, entity *cms.Entity) (any, error) {
	r.mu.RLock()
	parser, ok := r.parsers[field.ParserType]
	r.mu.RUnlock()

	if !ok {
		return nil, cmserrors.InternalError(
			fmt.Sprintf("no parser registered for field %s (parser type %q)", field.Name, field.ParserType), nil)
	}
	return parser.GetValue(entity), nil
}

// Registered returns the registered parser types, sorted.
func (r *Registry) Registered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
