package parking

import (
	"slices"
)

// ApplyFreeMinutes spends a free-minutes budget on items in chronological
// order. Items that become entirely free cost nothing; partially freed items
// are re-priced from scratch on their remaining minutes, so a freed prefix can
// change the number of charged intervals. Items after the budget runs out are
// unchanged. It returns a new slice sorted by start and the minutes spent.
func ApplyFreeMinutes(items []CostLineItem, rules []PricingRule, budget int) ([]CostLineItem, int) {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b CostLineItem) int { return a.Start.Compare(b.Start) })
	if budget <= 0 {
		return out, 0
	}

	remaining := budget
	for i := range out {
		if remaining <= 0 {
			break
		}
		it := out[i]
		free := min(remaining, it.Minutes)
		remaining -= free

		it.FreeMinutes = free
		it.setPrice(PriceResult{})
		if billable := it.Minutes - free; billable > 0 {
			it.setPrice(Price(rules[it.RuleIndex].Pricing, billable))
		}
		out[i] = it
	}
	return out, budget - remaining
}

// promotionBudget sums the free minutes of the spot's promotions whose keys
// the caller authorised. Each promotion counts once however often its key is
// listed.
func promotionBudget(promos []Promotion, keys []string) (int, []Promotion) {
	var eligible []Promotion
	total := 0
	for _, p := range promos {
		if slices.Contains(keys, p.Key) {
			eligible = append(eligible, p)
			total += p.FreeMinutes
		}
	}
	return total, eligible
}

// attributePromotions splits the minutes actually used across eligible
// promotions in declaration order.
func attributePromotions(eligible []Promotion, used int) []AppliedPromotion {
	var out []AppliedPromotion
	for _, p := range eligible {
		if used <= 0 {
			break
		}
		n := min(used, p.FreeMinutes)
		used -= n
		out = append(out, AppliedPromotion{Key: p.Key, MinutesUsed: n})
	}
	return out
}
