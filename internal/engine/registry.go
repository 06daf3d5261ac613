package engine

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/watzon/autoimport/internal/models"
)

// Handler executes actions of one kind. A handler instance is reused for
// sequential calls but never called concurrently.
type Handler interface {
	Execute(ctx context.Context, action *models.Action) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, action *models.Action) error

// Execute calls f.
func (f HandlerFunc) Execute(ctx context.Context, action *models.Action) error {
	return f(ctx, action)
}

// Factory builds a new handler instance.
type Factory func() Handler

// Registry maps action kinds to handler factories.
// Registration happens at startup before concurrent access, so no mutex is needed.
type Registry struct {
	factories map[models.ActionKind]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[models.ActionKind]Factory),
	}
}

// Register adds or replaces the factory for kind.
func (r *Registry) Register(kind models.ActionKind, factory Factory) {
	r.factories[kind] = factory
	log.Debug().Str("kind", string(kind)).Msg("Action handler registered")
}

// HandlerFor returns a new handler for kind, or an UnknownActionKindError.
func (r *Registry) HandlerFor(kind models.ActionKind) (Handler, error) {
	if r == nil {
		return nil, &UnknownActionKindError{Kind: kind}
	}
	factory, ok := r.factories[kind]
	if !ok || factory == nil {
		return nil, &UnknownActionKindError{Kind: kind}
	}
	return factory(), nil
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []models.ActionKind {
	kinds := make([]models.ActionKind, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
