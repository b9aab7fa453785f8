package parking

import (
	"fmt"
	"math"
	"time"
)

// ChargedWindow is the earliest priced span of a session.
type ChargedWindow struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Minutes int       `json:"minutes"`
}

// Summary is a presentation-friendly view of a ranked result.
type Summary struct {
	Price                 int            `json:"price"`
	DistanceMeters        *int           `json:"distanceMeters"`
	WalkingMinutes        *int           `json:"walkingMinutes"`
	SessionMinutes        int            `json:"sessionMinutes"`
	PricedMinutes         int            `json:"pricedMinutes"`
	PricedCoveragePercent int            `json:"pricedCoveragePercent"`
	FirstChargedWindow    *ChargedWindow `json:"firstChargedWindow,omitempty"`
}

// Summarize rounds a result for display and reports how much of the session
// fell inside priced windows.
func Summarize(r RankedResult, sessionMinutes int) Summary {
	s := Summary{
		Price:          int(math.Round(r.Cost)),
		DistanceMeters: roundPtr(r.DistanceMeters),
		WalkingMinutes: roundPtr(r.WalkingMinutes),
		SessionMinutes: sessionMinutes,
	}

	var first *CostLineItem
	for i := range r.Breakdown.Items {
		it := &r.Breakdown.Items[i]
		s.PricedMinutes += it.Minutes
		if first == nil || it.Start.Before(first.Start) {
			first = it
		}
	}
	if sessionMinutes > 0 {
		s.PricedCoveragePercent = int(math.Round(float64(s.PricedMinutes) / float64(sessionMinutes) * 100))
	}
	if first != nil {
		s.FirstChargedWindow = &ChargedWindow{Start: first.Start, End: first.End, Minutes: first.Minutes}
	}
	return s
}

// FormatMinutes renders a duration the way Norwegian signage does, e.g.
// "45 min", "2 t" or "1 t 30 min".
func FormatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%d t", h)
	}
	return fmt.Sprintf("%d t %d min", h, m)
}

func roundPtr(v *float64) *int {
	if v == nil {
		return nil
	}
	n := int(math.Round(*v))
	return &n
}
