package parking

import (
	"fmt"
	"slices"
)

// PriceResult is the outcome of pricing a span of minutes under one rule.
type PriceResult struct {
	Subtotal         float64
	ChargedIntervals int
	RoundedMinutes   int
	// CapApplied is set when the per-window maximum reduced the price.
	CapApplied *float64
}

// Price prices minutes under p.
func Price(p Pricing, minutes int) PriceResult {
	switch p := p.(type) {
	case IntervalPricing:
		return PriceInterval(minutes, p)
	case TieredPricing:
		return PriceTiered(minutes, p)
	default:
		panic(fmt.Sprintf("parking: unknown pricing %T", p))
	}
}

// PriceInterval charges every commenced interval, clamped to the per-window
// maximum when one is set.
func PriceInterval(minutes int, p IntervalPricing) PriceResult {
	intervals := ceilDiv(minutes, p.IntervalMinutes)
	res := PriceResult{
		Subtotal:         float64(intervals) * p.PricePerInterval,
		ChargedIntervals: intervals,
	}
	if p.MaxPricePerWindow != nil && *p.MaxPricePerWindow < res.Subtotal {
		limit := *p.MaxPricePerWindow
		res.Subtotal = limit
		res.CapApplied = &limit
	}
	return res
}

// PriceTiered rounds minutes up to the rounding unit and charges the first
// tier covering the rounded duration. Stays beyond the last threshold are
// charged the last tier's price.
func PriceTiered(minutes int, p TieredPricing) PriceResult {
	rounded := ceilDiv(minutes, p.RoundingMinutes) * p.RoundingMinutes
	res := PriceResult{RoundedMinutes: rounded}
	if len(p.Tiers) == 0 {
		return res
	}

	tiers := slices.Clone(p.Tiers)
	slices.SortStableFunc(tiers, func(a, b Tier) int { return a.ThresholdMinutes - b.ThresholdMinutes })

	res.Subtotal = tiers[len(tiers)-1].Price
	for _, t := range tiers {
		if rounded <= t.ThresholdMinutes {
			res.Subtotal = t.Price
			break
		}
	}
	return res
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func (it *CostLineItem) setPrice(res PriceResult) {
	it.Subtotal = res.Subtotal
	it.ChargedIntervals = res.ChargedIntervals
	it.RoundedMinutes = res.RoundedMinutes
	it.CapApplied = res.CapApplied
}
