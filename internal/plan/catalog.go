package plan

import (
	"time"

	errors "github.com/frahmantamala/subscription-billing/internal"
)

type DurationUnit string

const (
	UnitMonth   DurationUnit = "month"
	UnitQuarter DurationUnit = "quarter"
	UnitYear    DurationUnit = "year"
)

type Plan struct {
	ID              string       `json:"id"`
	Tier            string       `json:"tier"`
	DurationUnit    DurationUnit `json:"duration_unit"`
	DurationCount   int          `json:"duration_count"`
	PriceMinorUnits int64        `json:"price_minor_units"`
	Currency        string       `json:"currency"`
}

// catalog is fixed at compile time: three tiers, three durations each.
// Prices are in kurus.
var catalog = map[string]Plan{
	"basic_monthly":     {ID: "basic_monthly", Tier: "basic", DurationUnit: UnitMonth, DurationCount: 1, PriceMinorUnits: 4990, Currency: "TRY"},
	"basic_quarterly":   {ID: "basic_quarterly", Tier: "basic", DurationUnit: UnitQuarter, DurationCount: 1, PriceMinorUnits: 12990, Currency: "TRY"},
	"basic_yearly":      {ID: "basic_yearly", Tier: "basic", DurationUnit: UnitYear, DurationCount: 1, PriceMinorUnits: 44990, Currency: "TRY"},
	"premium_monthly":   {ID: "premium_monthly", Tier: "premium", DurationUnit: UnitMonth, DurationCount: 1, PriceMinorUnits: 9990, Currency: "TRY"},
	"premium_quarterly": {ID: "premium_quarterly", Tier: "premium", DurationUnit: UnitQuarter, DurationCount: 1, PriceMinorUnits: 26990, Currency: "TRY"},
	"premium_yearly":    {ID: "premium_yearly", Tier: "premium", DurationUnit: UnitYear, DurationCount: 1, PriceMinorUnits: 89990, Currency: "TRY"},
	"vip_monthly":       {ID: "vip_monthly", Tier: "vip", DurationUnit: UnitMonth, DurationCount: 1, PriceMinorUnits: 19990, Currency: "TRY"},
	"vip_quarterly":     {ID: "vip_quarterly", Tier: "vip", DurationUnit: UnitQuarter, DurationCount: 1, PriceMinorUnits: 53990, Currency: "TRY"},
	"vip_yearly":        {ID: "vip_yearly", Tier: "vip", DurationUnit: UnitYear, DurationCount: 1, PriceMinorUnits: 179990, Currency: "TRY"},
}

func Lookup(planID string) (Plan, error) {
	p, ok := catalog[planID]
	if !ok {
		return Plan{}, errors.ErrUnknownPlan
	}
	return p, nil
}

// All returns the catalog in a stable, caller-owned slice.
func All() []Plan {
	ids := []string{
		"basic_monthly", "basic_quarterly", "basic_yearly",
		"premium_monthly", "premium_quarterly", "premium_yearly",
		"vip_monthly", "vip_quarterly", "vip_yearly",
	}
	plans := make([]Plan, 0, len(ids))
	for _, id := range ids {
		plans = append(plans, catalog[id])
	}
	return plans
}

func (p Plan) months() int {
	switch p.DurationUnit {
	case UnitMonth:
		return p.DurationCount
	case UnitQuarter:
		return p.DurationCount * 3
	case UnitYear:
		return p.DurationCount * 12
	}
	return 0
}

// ExpiryFrom computes the expiry for a purchase made at the given time.
// Month arithmetic clamps to the last day of the target month instead of
// rolling over: Jan 31 + 1 month is Feb 29 in a leap year, not Mar 2,
// which is what time.AddDate would produce.
func (p Plan) ExpiryFrom(purchase time.Time) time.Time {
	return AddMonthsClamped(purchase, p.months())
}

func AddMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()

	totalMonth := int(month) - 1 + months
	targetYear := year + totalMonth/12
	targetMonth := time.Month(totalMonth%12 + 1)
	if totalMonth < 0 {
		// Go's integer division truncates toward zero; normalize so
		// negative offsets land in the right year.
		targetYear = year + (totalMonth-11)/12
		targetMonth = time.Month((totalMonth%12+12)%12 + 1)
	}

	if last := daysIn(targetYear, targetMonth); day > last {
		day = last
	}

	hour, min, sec := t.Clock()
	return time.Date(targetYear, targetMonth, day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
