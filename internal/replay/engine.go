package replay

import (
	"context"

	"weighted-oracle/internal/domain"
)

// ReplayEngine processes events in deterministic order.
type ReplayEngine interface {
	// OnEvent is called for each event in order.
	// Events of one oracle are guaranteed to arrive by ascending sequence without gaps.
	OnEvent(ctx context.Context, event *domain.Event) error
}

// EngineFunc adapts a plain function to ReplayEngine.
type EngineFunc func(ctx context.Context, event *domain.Event) error

// OnEvent implements ReplayEngine.
func (f EngineFunc) OnEvent(ctx context.Context, event *domain.Event) error {
	return f(ctx, event)
}
