// AngelaMos | 2026
// pricing.go

package tier

import (
	"github.com/shopspring/decimal"
)

const (
	FinancePlaces int32 = 1
	LeasePlaces   int32 = 5
)

// TruncateFinance drops finance digits past one decimal place without rounding.
func TruncateFinance(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(FinancePlaces)
}

// TruncateLease drops lease digits past five decimal places without rounding.
func TruncateLease(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(LeasePlaces)
}

// Derive computes the new and used pricing blocks of t from the shared markups.
func Derive(t Tier, financeMarkup, leaseMarkup decimal.Decimal) (Pricing, Pricing) {
	finance, lease := financeMarkup, leaseMarkup
	if t.CustomMarkup.Enabled {
		finance, lease = t.CustomMarkup.Finance, t.CustomMarkup.Lease
	}

	usedFinance, usedLease := finance, lease
	if t.CustomUsed.Enabled {
		usedFinance, usedLease = t.CustomUsed.Finance, t.CustomUsed.Lease
	}

	return pricingOf(finance, lease), pricingOf(usedFinance, usedLease)
}

func pricingOf(finance, lease decimal.Decimal) Pricing {
	f := TruncateFinance(finance).InexactFloat64()
	l := TruncateLease(lease).InexactFloat64()

	return Pricing{
		Finance: Channel{Captive: f, NonCaptive: f},
		Lease:   Channel{Captive: l, NonCaptive: l},
	}
}
