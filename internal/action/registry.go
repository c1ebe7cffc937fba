package action

import (
	"context"

	"github.com/rs/zerolog"

	"mixmatch/internal/exchange"
)

// Registry owns the configured actions, in configuration order, and routes
// an exchange document to the single action whose id matches the document's
// promotion id.
type Registry struct {
	actions []Action
	logger  zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger: logger.With().Str("component", "registry").Logger(),
	}
}

// Register appends an action. With duplicate ids the first registered wins;
// that is a configuration defect, not something Dispatch arbitrates.
func (r *Registry) Register(a Action) {
	r.actions = append(r.actions, a)
	r.logger.Debug().Str("action", a.Name()).Int("id", a.ID()).Msg("action registered")
}

// Dispatch invokes the first action matching the document's promotion id.
// Many scans carry promotion ids this engine does not handle, so no match
// is a designed no-op that leaves the document untouched.
func (r *Registry) Dispatch(ctx context.Context, doc *exchange.Document) error {
	promotionID := doc.PromotionID()
	for _, a := range r.actions {
		if a.ID() == promotionID {
			r.logger.Info().Str("action", a.Name()).Int("id", promotionID).Msg("applying action")
			return a.Apply(ctx, doc)
		}
	}

	r.logger.Debug().Int("id", promotionID).Msg("no action configured for promotion id")
	return nil
}
