package parking

import (
	"cmp"
	"slices"

	"golang.org/x/sync/errgroup"
)

type candidate struct {
	index     int
	spot      Spot
	breakdown CostBreakdown
	distance  *float64
	walking   *float64
	err       error
}

// Rank costs every spot for the query and orders them by score, best first.
//
// Costs are computed concurrently; normalisation waits for the whole batch.
// Cost and walking minutes are min-max normalised across the spots that
// could be costed, then combined with the option weights. Equal scores keep
// input order. Spots that fail validation are left out and returned as
// defects; the input slice is not modified.
func (c *Calculator) Rank(spots []Spot, opts RankOptions) ([]RankedResult, []SpotDefect, error) {
	if err := opts.validate(); err != nil {
		return nil, nil, err
	}
	weights := DefaultWeights
	if opts.Weights != nil {
		weights = *opts.Weights
	}
	speed := opts.WalkingSpeedKmh
	if speed == 0 {
		speed = DefaultWalkingSpeedKmh
	}

	candidates := make([]candidate, len(spots))
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i := range spots {
		g.Go(func() error {
			candidates[i] = c.evaluate(i, spots[i], opts, speed)
			return nil
		})
	}
	_ = g.Wait()

	var defects []SpotDefect
	valid := make([]candidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.err != nil {
			defects = append(defects, SpotDefect{Index: cand.index, SpotID: cand.spot.ID, Err: cand.err})
			continue
		}
		valid = append(valid, cand)
	}

	costs := make([]float64, len(valid))
	walks := make([]float64, len(valid))
	for i, cand := range valid {
		costs[i] = cand.breakdown.Total
		if cand.walking != nil {
			walks[i] = *cand.walking
		}
	}
	normCost := minMaxNormalize(costs)
	normWalk := minMaxNormalize(walks)

	results := make([]RankedResult, len(valid))
	order := make([]int, len(valid))
	for i, cand := range valid {
		score := weights.Price * normCost[i]
		if cand.walking != nil {
			score += weights.Walking * normWalk[i]
		}
		results[i] = RankedResult{
			Spot:           cand.spot,
			Cost:           cand.breakdown.Total,
			Currency:       cand.breakdown.Currency,
			DistanceMeters: cand.distance,
			WalkingMinutes: cand.walking,
			Score:          score,
			Breakdown:      cand.breakdown,
		}
		order[i] = cand.index
	}

	idx := make([]int, len(results))
	for i := range idx {
		idx[i] = i
	}
	slices.SortFunc(idx, func(a, b int) int {
		return cmp.Or(
			cmp.Compare(results[a].Score, results[b].Score),
			cmp.Compare(order[a], order[b]),
			cmp.Compare(results[a].Spot.ID, results[b].Spot.ID),
		)
	})

	sorted := make([]RankedResult, len(results))
	for i, j := range idx {
		sorted[i] = results[j]
	}
	return sorted, defects, nil
}

func (c *Calculator) evaluate(index int, spot Spot, opts RankOptions, speed float64) candidate {
	cand := candidate{index: index, spot: spot}
	if err := spot.Validate(); err != nil {
		cand.err = err
		return cand
	}
	cand.breakdown = c.spotCost(spot, opts.Start, opts.DurationMinutes, opts.Vehicle, opts.PromotionKeys)
	if opts.Destination != nil {
		d := HaversineMeters(spot.Location, *opts.Destination)
		w := WalkingMinutes(d, speed)
		cand.distance = &d
		cand.walking = &w
	}
	return cand
}

// minMaxNormalize maps values onto [0, 1] by the batch minimum and maximum.
// All values map to 0 when they are equal.
func minMaxNormalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := slices.Min(values), slices.Max(values)
	if hi <= lo {
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
