// AngelaMos | 2026
// entity.go

package tier

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/tierform/internal/core"
)

const (
	MinScore = 300
	MaxScore = 850
)

// Which selects the new or used pricing block of a tier.
type Which string

const (
	WhichNew  Which = "new"
	WhichUsed Which = "used"
)

func ParseWhich(s string) (Which, error) {
	switch Which(strings.ToLower(s)) {
	case WhichNew:
		return WhichNew, nil
	case WhichUsed:
		return WhichUsed, nil
	}
	return "", fmt.Errorf("parse which %q: %w", s, core.ErrInvalidInput)
}

// Field names a scalar tier field editable through SetField.
type Field string

const (
	FieldLabel    Field = "label"
	FieldMinValue Field = "minValue"
	FieldDefault  Field = "default"
)

type Channel struct {
	Captive    float64 `json:"captive"`
	NonCaptive float64 `json:"nonCaptive"`
}

type Pricing struct {
	Finance Channel `json:"finance"`
	Lease   Channel `json:"lease"`
}

// Override holds the per-tier custom finance/lease inputs behind a toggle.
// Values are kept while the toggle is off.
type Override struct {
	Enabled bool            `json:"enabled"`
	Finance decimal.Decimal `json:"finance"`
	Lease   decimal.Decimal `json:"lease"`
}

type Tier struct {
	Label        string   `json:"label"`
	MinValue     int      `json:"minValue"`
	Default      bool     `json:"default"`
	CustomMarkup Override `json:"customMarkup"`
	CustomUsed   Override `json:"customUsed"`
	New          Pricing  `json:"new"`
	Used         Pricing  `json:"used"`
}

type ExportResult struct {
	Document   string    `json:"document"`
	TierCount  int       `json:"tierCount"`
	ExportedAt time.Time `json:"exportedAt"`
}

type CatalogEntry struct {
	Label    string
	MinValue int
}

// Catalog is the fixed, ordered list tiers are seeded and appended from.
type Catalog []CatalogEntry

// At returns the tier for collection position pos, falling back to a blank
// tier once the catalog is exhausted.
func (c Catalog) At(pos int) Tier {
	if pos >= 0 && pos < len(c) {
		return Tier{
			Label:    c[pos].Label,
			MinValue: ClampScore(c[pos].MinValue),
		}
	}
	return Tier{Label: "", MinValue: MinScore}
}

func (c Catalog) Seed(n int) []Tier {
	if n < 1 {
		n = 1
	}
	tiers := make([]Tier, 0, n)
	for i := 0; i < n; i++ {
		tiers = append(tiers, c.At(i))
	}
	return tiers
}

func ClampScore(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
