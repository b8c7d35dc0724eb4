package ops

import (
	"context"
	"encoding/json"
	"log/slog"

	"intake/internal/logging"
	"intake/internal/retrypolicy"
	"intake/internal/services/export"
	"intake/internal/store"
)

// Exporter renders a card payload into shareable files.
type Exporter interface {
	Render(ctx context.Context, card json.RawMessage, itemID string, formats []string) (*export.Result, error)
}

// Service is the operations facade consumed by the HTTP and CLI layers. All
// entry points are replay-safe: a duplicated request returns the original
// result flagged with IdempotentReplay instead of repeating side effects.
type Service struct {
	store    *store.Store
	exporter Exporter
	policy   retrypolicy.Policy
	logger   *slog.Logger
}

// NewService wires the operations facade. A zero-limit policy falls back to
// the default retry budget.
func NewService(st *store.Store, exporter Exporter, policy retrypolicy.Policy, logger *slog.Logger) *Service {
	if policy.Limit() <= 0 {
		policy = retrypolicy.Default()
	}
	return &Service{
		store:    st,
		exporter: exporter,
		policy:   policy,
		logger:   logging.NewComponentLogger(logger, "ops"),
	}
}

// Health reports aggregate item and queue state.
func (s *Service) Health(ctx context.Context) (store.HealthSummary, error) {
	return s.store.Health(ctx)
}
