// AngelaMos | 2026
// service.go

package tier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/carterperez-dev/tierform/internal/core"
)

const tracerName = "github.com/carterperez-dev/tierform/internal/tier"

// Service is the session controller. Every interaction loads the session,
// applies one mutation to a copy, recomputes derived pricing, saves and
// renders. Interactions are serialised.
type Service struct {
	repo      Repository
	catalog   Catalog
	seedCount int
	now       func() time.Time
	tracer    trace.Tracer

	mu sync.Mutex
}

func NewService(repo Repository, catalog Catalog, seedCount int) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalog,
		seedCount: seedCount,
		now:       time.Now,
		tracer:    otel.Tracer(tracerName),
	}
}

func (s *Service) Create(ctx context.Context) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "tier.Create")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	state := NewState(uuid.New().String(), s.catalog, s.seedCount, s.now())
	if err := s.repo.Save(ctx, state); err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("session.id", state.ID))
	slog.InfoContext(ctx, "session created",
		"session_id", state.ID,
		"tiers", len(state.Tiers),
	)

	return ToView(state), nil
}

func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "tier.Get",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	state, err := s.repo.Get(ctx, id)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	return ToView(state), nil
}

func (s *Service) End(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "tier.End",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		core.SetSpanError(ctx, err)
		return err
	}

	slog.InfoContext(ctx, "session ended", "session_id", id)
	return nil
}

func (s *Service) AddTier(ctx context.Context, id string) (*View, error) {
	return s.interact(ctx, id, "AddTier", func(_ context.Context, st *State) error {
		st.AddTier(s.catalog)
		return nil
	})
}

func (s *Service) RemoveTier(ctx context.Context, id string) (*View, error) {
	return s.interact(ctx, id, "RemoveTier", func(_ context.Context, st *State) error {
		return st.RemoveTier()
	})
}

func (s *Service) UpdateTier(
	ctx context.Context,
	id string,
	index int,
	req UpdateTierRequest,
) (*View, error) {
	return s.interact(ctx, id, "UpdateTier", func(_ context.Context, st *State) error {
		if req.Label != nil {
			if err := st.SetField(index, FieldLabel, *req.Label); err != nil {
				return err
			}
		}
		if req.MinValue != nil {
			if err := st.SetField(index, FieldMinValue, int(*req.MinValue)); err != nil {
				return err
			}
		}
		if req.Default != nil {
			if err := st.SetField(index, FieldDefault, *req.Default); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) SetOverride(
	ctx context.Context,
	id string,
	index int,
	which Which,
	req SetOverrideRequest,
) (*View, error) {
	return s.interact(ctx, id, "SetOverride", func(_ context.Context, st *State) error {
		return st.SetOverride(
			index,
			which,
			decimal.NewFromFloat(*req.Finance),
			decimal.NewFromFloat(*req.Lease),
		)
	})
}

func (s *Service) ToggleOverride(
	ctx context.Context,
	id string,
	index int,
	which Which,
	enabled bool,
) (*View, error) {
	return s.interact(ctx, id, "ToggleOverride", func(_ context.Context, st *State) error {
		return st.ToggleOverride(index, which, enabled)
	})
}

func (s *Service) SetMarkup(
	ctx context.Context,
	id string,
	req SetMarkupRequest,
) (*View, error) {
	return s.interact(ctx, id, "SetMarkup", func(_ context.Context, st *State) error {
		finance, lease := st.FinanceMarkup, st.LeaseMarkup
		if req.Finance != nil {
			finance = decimal.NewFromFloat(*req.Finance)
		}
		if req.Lease != nil {
			lease = decimal.NewFromFloat(*req.Lease)
		}
		st.SetMarkup(finance, lease)
		return nil
	})
}

func (s *Service) Submit(ctx context.Context, id string) (*View, error) {
	return s.interact(ctx, id, "Submit", func(ctx context.Context, st *State) error {
		result, err := st.Submit(s.now())
		if err != nil {
			return err
		}

		core.AddSpanEvent(ctx, "tiers exported",
			attribute.Int("tier.count", result.TierCount))
		slog.InfoContext(ctx, "tiers exported",
			"session_id", id,
			"tiers", result.TierCount,
		)
		return nil
	})
}

func (s *Service) LatestExport(
	ctx context.Context,
	id string,
) (*ExportResult, error) {
	state, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Export == nil {
		return nil, fmt.Errorf("latest export: %w", ErrNoExport)
	}
	return state.Export, nil
}

func (s *Service) SessionCount(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *Service) interact(
	ctx context.Context,
	id, op string,
	mutate func(context.Context, *State) error,
) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "tier."+op,
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	next := current.Clone()
	if err := mutate(ctx, next); err != nil {
		core.SetSpanError(ctx, err)
		slog.DebugContext(ctx, "interaction rejected",
			"session_id", id,
			"op", op,
			"error", err,
		)
		return nil, err
	}

	next.Recompute()
	next.UpdatedAt = s.now()

	if err := s.repo.Save(ctx, next); err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	return ToView(next), nil
}
