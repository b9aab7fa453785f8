package parking

import (
	"math"
	"runtime"
	"time"
	_ "time/tzdata" // tariff zones must resolve on hosts without a zoneinfo database
)

// Config holds configuration for the calculator.
type Config struct {
	// Location is the zone all calendar arithmetic happens in (default: Europe/Oslo).
	Location *time.Location

	// Concurrency bounds how many spots Rank costs in parallel (default: GOMAXPROCS).
	Concurrency int
}

// Calculator costs and ranks parking sessions. It holds no mutable state
// and is safe for concurrent use.
type Calculator struct {
	loc         *time.Location
	concurrency int
}

// NewCalculator creates a calculator.
func NewCalculator(cfg Config) *Calculator {
	loc := cfg.Location
	if loc == nil {
		loc = mustLoadLocation(DefaultTimezone)
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	return &Calculator{loc: loc, concurrency: concurrency}
}

// Location returns the reference zone of the calculator.
func (c *Calculator) Location() *time.Location {
	return c.loc
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("parking: load location " + name + ": " + err.Error())
	}
	return loc
}

// SpotCost computes the cost of parking at spot for durationMinutes from
// start. Rules are filtered by vehicle class; every window occurrence
// overlapping the session contributes a line item, and occurrences of
// different rules covering the same instant are summed. Free minutes from
// the spot's promotions named in promotionKeys are applied once, then the
// spot's rolling caps. A zero duration yields an empty zero-cost breakdown.
func (c *Calculator) SpotCost(spot Spot, start time.Time, durationMinutes int, vehicle Vehicle, promotionKeys []string) (CostBreakdown, error) {
	if durationMinutes < 0 {
		return CostBreakdown{}, &QueryError{Field: "durationMinutes", Message: "must not be negative"}
	}
	if err := validateQueryVehicle(vehicle); err != nil {
		return CostBreakdown{}, err
	}
	if err := spot.Validate(); err != nil {
		return CostBreakdown{}, err
	}
	return c.spotCost(spot, start, durationMinutes, vehicle, promotionKeys), nil
}

// spotCost assumes a validated spot and query.
func (c *Calculator) spotCost(spot Spot, start time.Time, durationMinutes int, vehicle Vehicle, promotionKeys []string) CostBreakdown {
	start = start.In(c.loc)
	if durationMinutes == 0 {
		return CostBreakdown{Currency: Currency, Items: []CostLineItem{}}
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	budget, eligible := promotionBudget(spot.Promotions, promotionKeys)
	res, used := c.costPeriod(spot, start, end, vehicle, budget, true)
	res.AppliedPromotions = attributePromotions(eligible, used)
	return res
}

// costPeriod prices [start, end]. The free-minute budget is applied to the
// period once. When applyCaps is false rolling caps are skipped; the cap
// enforcer uses this to price its blocks.
func (c *Calculator) costPeriod(spot Spot, start, end time.Time, vehicle Vehicle, budget int, applyCaps bool) (CostBreakdown, int) {
	items := []CostLineItem{}
	for ri, rule := range spot.Rules {
		if !rule.Matches(vehicle) {
			continue
		}
		for _, occ := range c.Instantiate(rule, start, end) {
			minutes := overlapMinutes(occ.Start, occ.End, start, end)
			if minutes <= 0 {
				continue
			}
			item := CostLineItem{
				RuleIndex:   ri,
				WindowIndex: occ.WindowIndex,
				Start:       later(start, occ.Start),
				End:         earlier(end, occ.End),
				Minutes:     minutes,
			}
			item.setPrice(Price(rule.Pricing, minutes))
			items = append(items, item)
		}
	}

	used := 0
	if budget > 0 {
		items, used = ApplyFreeMinutes(items, spot.Rules, budget)
	}

	total := 0.0
	for _, it := range items {
		total += it.Subtotal
	}

	res := CostBreakdown{Total: total, Currency: Currency, Items: items}
	if applyCaps && len(spot.Caps) > 0 {
		capped := c.enforceCaps(spot, start, end, vehicle, budget, total)
		res.Total = capped
		res.CapReduction = total - capped
	}
	return res, used
}

// enforceCaps partitions [start, end] into consecutive blocks of each cap's
// window anchored at start, clamps every block to the cap price and returns
// the smallest of the uncapped total and each cap's clamped sum. Only the
// first block receives the free-minute budget.
func (c *Calculator) enforceCaps(spot Spot, start, end time.Time, vehicle Vehicle, budget int, total float64) float64 {
	best := total
	for _, cp := range spot.Caps {
		window := time.Duration(cp.WindowMinutes) * time.Minute
		free := budget
		sum := 0.0
		for blockStart := start; blockStart.Before(end); {
			blockEnd := earlier(blockStart.Add(window), end)
			block, _ := c.costPeriod(spot, blockStart, blockEnd, vehicle, free, false)
			free = 0
			sum += math.Min(block.Total, cp.Price)
			blockStart = blockEnd
		}
		best = math.Min(best, sum)
	}
	return best
}
