// AngelaMos | 2026
// dto.go

package tier

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/carterperez-dev/tierform/internal/core"
)

const (
	StatusIdle     = "idle"
	StatusExported = "exported"
)

type SetMarkupRequest struct {
	Finance *float64 `json:"finance" validate:"required_without=Lease"`
	Lease   *float64 `json:"lease"   validate:"required_without=Finance"`
}

type UpdateTierRequest struct {
	Label    *string `json:"label,omitempty"    validate:"omitempty,max=100"`
	MinValue *Score  `json:"minValue,omitempty"`
	Default  *bool   `json:"default,omitempty"`
}

func (r UpdateTierRequest) IsEmpty() bool {
	return r.Label == nil && r.MinValue == nil && r.Default == nil
}

// Score is a credit score read from a request body. Integers of any size
// are accepted and clamped into the score range.
type Score int

func (s *Score) UnmarshalJSON(b []byte) error {
	n, err := strconv.ParseInt(string(b), 10, 64)
	switch {
	case errors.Is(err, strconv.ErrRange):
		n = MaxScore
		if bytes.HasPrefix(b, []byte("-")) {
			n = MinScore
		}
	case err != nil:
		return fmt.Errorf("score %s: %w", b, core.ErrInvalidInput)
	}

	n = min(max(n, MinScore), MaxScore)
	*s = Score(n)
	return nil
}

type SetOverrideRequest struct {
	Finance *float64 `json:"finance" validate:"required"`
	Lease   *float64 `json:"lease"   validate:"required"`
}

type ToggleOverrideRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type OverrideView struct {
	Enabled bool    `json:"enabled"`
	Finance float64 `json:"finance"`
	Lease   float64 `json:"lease"`
}

type TierView struct {
	Index         int          `json:"index"`
	Label         string       `json:"label"`
	MinValue      int          `json:"minValue"`
	Default       bool         `json:"default"`
	DefaultLocked bool         `json:"defaultLocked"`
	CustomMarkup  OverrideView `json:"customMarkup"`
	CustomUsed    OverrideView `json:"customUsed"`
	New           Pricing      `json:"new"`
	Used          Pricing      `json:"used"`
}

type ExportView struct {
	Document   string    `json:"document"`
	TierCount  int       `json:"tierCount"`
	ExportedAt time.Time `json:"exportedAt"`
}

// View is the rendered session returned after every interaction.
type View struct {
	SessionID     string      `json:"sessionId"`
	Status        string      `json:"status"`
	FinanceMarkup float64     `json:"financeMarkup"`
	LeaseMarkup   float64     `json:"leaseMarkup"`
	Tiers         []TierView  `json:"tiers"`
	Export        *ExportView `json:"export,omitempty"`
}

func ToView(s *State) *View {
	v := &View{
		SessionID:     s.ID,
		Status:        StatusIdle,
		FinanceMarkup: s.FinanceMarkup.InexactFloat64(),
		LeaseMarkup:   s.LeaseMarkup.InexactFloat64(),
		Tiers:         make([]TierView, 0, len(s.Tiers)),
	}

	for i, t := range s.Tiers {
		v.Tiers = append(v.Tiers, TierView{
			Index:         i,
			Label:         t.Label,
			MinValue:      t.MinValue,
			Default:       t.Default,
			DefaultLocked: s.DefaultLocked(i),
			CustomMarkup:  toOverrideView(t.CustomMarkup),
			CustomUsed:    toOverrideView(t.CustomUsed),
			New:           t.New,
			Used:          t.Used,
		})
	}

	if s.Export != nil {
		v.Status = StatusExported
		v.Export = &ExportView{
			Document:   s.Export.Document,
			TierCount:  s.Export.TierCount,
			ExportedAt: s.Export.ExportedAt,
		}
	}

	return v
}

func toOverrideView(o Override) OverrideView {
	return OverrideView{
		Enabled: o.Enabled,
		Finance: o.Finance.InexactFloat64(),
		Lease:   o.Lease.InexactFloat64(),
	}
}
