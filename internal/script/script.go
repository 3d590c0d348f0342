// AngelaMos | 2026
// script.go

package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/carterperez-dev/tierform/internal/core"
	"github.com/carterperez-dev/tierform/internal/tier"
)

const (
	OpAdd            = "add"
	OpRemove         = "remove"
	OpSetField       = "set_field"
	OpSetOverride    = "set_override"
	OpToggleOverride = "toggle_override"
	OpSetMarkup      = "set_markup"
	OpSubmit         = "submit"
)

// Action is one recorded form interaction. Tier indexes are 0-based.
type Action struct {
	Op       string   `yaml:"op"`
	Tier     int      `yaml:"tier"`
	Label    *string  `yaml:"label"`
	MinValue *int     `yaml:"min_value"`
	Default  *bool    `yaml:"default"`
	Which    string   `yaml:"which"`
	Enabled  *bool    `yaml:"enabled"`
	Finance  *float64 `yaml:"finance"`
	Lease    *float64 `yaml:"lease"`
}

type Script struct {
	Actions []Action `yaml:"actions"`
}

// StepError is a rejected interaction. Replay continues past it.
type StepError struct {
	Step int
	Op   string
	Err  error
}

func (e StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Step, e.Op, e.Err)
}

func (e StepError) Unwrap() error {
	return e.Err
}

func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Script, error) {
	var sc Script
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}

	for i, a := range sc.Actions {
		if err := a.validate(); err != nil {
			return nil, fmt.Errorf("parse script: step %d: %w", i, err)
		}
	}

	return &sc, nil
}

func (a Action) validate() error {
	switch a.Op {
	case OpAdd, OpRemove, OpSubmit:
		return nil
	case OpSetField:
		if a.Label == nil && a.MinValue == nil && a.Default == nil {
			return fmt.Errorf("%s needs label, min_value or default: %w",
				a.Op, core.ErrInvalidInput)
		}
	case OpSetOverride:
		if a.Finance == nil || a.Lease == nil {
			return fmt.Errorf("%s needs finance and lease: %w",
				a.Op, core.ErrInvalidInput)
		}
		if _, err := tier.ParseWhich(a.Which); err != nil {
			return err
		}
	case OpToggleOverride:
		if a.Enabled == nil {
			return fmt.Errorf("%s needs enabled: %w", a.Op, core.ErrInvalidInput)
		}
		if _, err := tier.ParseWhich(a.Which); err != nil {
			return err
		}
	case OpSetMarkup:
		if a.Finance == nil && a.Lease == nil {
			return fmt.Errorf("%s needs finance or lease: %w",
				a.Op, core.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("unknown op %q: %w", a.Op, core.ErrInvalidInput)
	}
	return nil
}

// Run replays sc against a fresh session. Rejected steps are collected and
// logged; only session store failures abort the replay.
func Run(
	ctx context.Context,
	svc *tier.Service,
	sc *Script,
) (*tier.View, []StepError, error) {
	view, err := svc.Create(ctx)
	if err != nil {
		return nil, nil, err
	}
	id := view.SessionID

	var rejected []StepError
	for i, a := range sc.Actions {
		next, err := apply(ctx, svc, id, a)
		if err != nil {
			if !recoverable(err) {
				return view, rejected, fmt.Errorf("step %d (%s): %w", i, a.Op, err)
			}
			stepErr := StepError{Step: i, Op: a.Op, Err: err}
			slog.WarnContext(ctx, "step rejected",
				"step", i,
				"op", a.Op,
				"error", err,
			)
			rejected = append(rejected, stepErr)
			continue
		}
		view = next
	}

	return view, rejected, nil
}

func apply(
	ctx context.Context,
	svc *tier.Service,
	id string,
	a Action,
) (*tier.View, error) {
	switch a.Op {
	case OpAdd:
		return svc.AddTier(ctx, id)
	case OpRemove:
		return svc.RemoveTier(ctx, id)
	case OpSetField:
		req := tier.UpdateTierRequest{
			Label:   a.Label,
			Default: a.Default,
		}
		if a.MinValue != nil {
			score := tier.Score(tier.ClampScore(*a.MinValue))
			req.MinValue = &score
		}
		return svc.UpdateTier(ctx, id, a.Tier, req)
	case OpSetOverride:
		which, err := tier.ParseWhich(a.Which)
		if err != nil {
			return nil, err
		}
		return svc.SetOverride(ctx, id, a.Tier, which, tier.SetOverrideRequest{
			Finance: a.Finance,
			Lease:   a.Lease,
		})
	case OpToggleOverride:
		which, err := tier.ParseWhich(a.Which)
		if err != nil {
			return nil, err
		}
		return svc.ToggleOverride(ctx, id, a.Tier, which, *a.Enabled)
	case OpSetMarkup:
		return svc.SetMarkup(ctx, id, tier.SetMarkupRequest{
			Finance: a.Finance,
			Lease:   a.Lease,
		})
	case OpSubmit:
		return svc.Submit(ctx, id)
	}
	return nil, fmt.Errorf("unknown op %q: %w", a.Op, core.ErrInvalidInput)
}

func recoverable(err error) bool {
	return errors.Is(err, tier.ErrFloorViolation) ||
		errors.Is(err, tier.ErrDefaultLocked) ||
		errors.Is(err, tier.ErrDefaultCount) ||
		errors.Is(err, core.ErrInvalidInput)
}
