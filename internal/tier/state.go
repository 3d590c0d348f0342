// AngelaMos | 2026
// state.go

package tier

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/tierform/internal/core"
)

// State is one form session: the ordered tier collection, the shared
// markups and the latest successful export.
type State struct {
	ID            string          `json:"id"`
	Tiers         []Tier          `json:"tiers"`
	FinanceMarkup decimal.Decimal `json:"financeMarkup"`
	LeaseMarkup   decimal.Decimal `json:"leaseMarkup"`
	Export        *ExportResult   `json:"export,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func NewState(id string, catalog Catalog, seedCount int, now time.Time) *State {
	s := &State{
		ID:            id,
		Tiers:         catalog.Seed(seedCount),
		FinanceMarkup: decimal.Zero,
		LeaseMarkup:   decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.Recompute()
	return s
}

func (s *State) Clone() *State {
	c := *s
	c.Tiers = make([]Tier, len(s.Tiers))
	copy(c.Tiers, s.Tiers)
	if s.Export != nil {
		exp := *s.Export
		c.Export = &exp
	}
	return &c
}

func (s *State) AddTier(catalog Catalog) Tier {
	t := catalog.At(len(s.Tiers))
	s.Tiers = append(s.Tiers, t)
	return t
}

func (s *State) RemoveTier() error {
	if len(s.Tiers) <= 1 {
		return fmt.Errorf("remove tier: %w", ErrFloorViolation)
	}
	s.Tiers = s.Tiers[:len(s.Tiers)-1]
	return nil
}

// SetField overwrites one scalar field. value must be a string for label,
// an int for minValue and a bool for default.
func (s *State) SetField(index int, field Field, value any) error {
	switch field {
	case FieldLabel:
		v, ok := value.(string)
		if !ok {
			return fieldTypeError(field, value)
		}
		return s.SetLabel(index, v)
	case FieldMinValue:
		v, ok := value.(int)
		if !ok {
			return fieldTypeError(field, value)
		}
		return s.SetMinValue(index, v)
	case FieldDefault:
		v, ok := value.(bool)
		if !ok {
			return fieldTypeError(field, value)
		}
		return s.SetDefault(index, v)
	}
	return fmt.Errorf("set field %q: %w", field, core.ErrInvalidInput)
}

func (s *State) SetLabel(index int, label string) error {
	t, err := s.tier(index)
	if err != nil {
		return err
	}
	t.Label = label
	return nil
}

func (s *State) SetMinValue(index int, v int) error {
	t, err := s.tier(index)
	if err != nil {
		return err
	}
	t.MinValue = ClampScore(v)
	return nil
}

func (s *State) SetDefault(index int, v bool) error {
	t, err := s.tier(index)
	if err != nil {
		return err
	}
	if v && s.DefaultLocked(index) {
		return fmt.Errorf("set default on tier %d: %w", index, ErrDefaultLocked)
	}
	t.Default = v
	return nil
}

// SetOverride records custom values for the new or used block and turns the
// matching toggle on.
func (s *State) SetOverride(
	index int,
	which Which,
	finance, lease decimal.Decimal,
) error {
	o, err := s.override(index, which)
	if err != nil {
		return err
	}
	o.Enabled = true
	o.Finance = finance
	o.Lease = lease
	return nil
}

func (s *State) ToggleOverride(index int, which Which, enabled bool) error {
	o, err := s.override(index, which)
	if err != nil {
		return err
	}
	o.Enabled = enabled
	return nil
}

func (s *State) SetMarkup(finance, lease decimal.Decimal) {
	s.FinanceMarkup = finance
	s.LeaseMarkup = lease
}

// DefaultLocked reports whether any tier other than index is the default.
func (s *State) DefaultLocked(index int) bool {
	for i, t := range s.Tiers {
		if i != index && t.Default {
			return true
		}
	}
	return false
}

func (s *State) DefaultCount() int {
	n := 0
	for _, t := range s.Tiers {
		if t.Default {
			n++
		}
	}
	return n
}

func (s *State) Recompute() {
	for i := range s.Tiers {
		s.Tiers[i].New, s.Tiers[i].Used = Derive(
			s.Tiers[i],
			s.FinanceMarkup,
			s.LeaseMarkup,
		)
	}
}

// Submit validates the single default rule and stores a fresh export. On
// failure the previous export is left in place.
func (s *State) Submit(now time.Time) (*ExportResult, error) {
	if n := s.DefaultCount(); n != 1 {
		return nil, fmt.Errorf("submit: %d default tiers: %w", n, ErrDefaultCount)
	}

	s.Recompute()

	doc, err := ExportJSON(s.Tiers)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}

	s.Export = &ExportResult{
		Document:   string(doc),
		TierCount:  len(s.Tiers),
		ExportedAt: now,
	}
	return s.Export, nil
}

func (s *State) tier(index int) (*Tier, error) {
	if index < 0 || index >= len(s.Tiers) {
		return nil, fmt.Errorf("tier %d of %d: %w", index, len(s.Tiers), ErrTierIndex)
	}
	return &s.Tiers[index], nil
}

func (s *State) override(index int, which Which) (*Override, error) {
	t, err := s.tier(index)
	if err != nil {
		return nil, err
	}
	switch which {
	case WhichNew:
		return &t.CustomMarkup, nil
	case WhichUsed:
		return &t.CustomUsed, nil
	}
	return nil, fmt.Errorf("override %q: %w", which, core.ErrInvalidInput)
}

func fieldTypeError(field Field, value any) error {
	return fmt.Errorf(
		"set field %q: unexpected %T: %w",
		field,
		value,
		core.ErrInvalidInput,
	)
}
