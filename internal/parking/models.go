// Package parking computes the cost of a parking session under recurring
// tariff rules and ranks candidate spots by a blend of cost and walking time.
package parking

import (
	"fmt"
	"strconv"
	"time"
)

// Currency is the only currency amounts are expressed in.
const Currency = "NOK"

// DefaultTimezone is the zone tariff schedules are defined in.
const DefaultTimezone = "Europe/Oslo"

// MinutesPerDay is the largest minute-of-day a window may end at.
const MinutesPerDay = 24 * 60

// Vehicle is the tariff-relevant vehicle class.
type Vehicle string

const (
	// VehicleStandard is a combustion or otherwise non-electric vehicle.
	VehicleStandard Vehicle = "standard"
	// VehicleEV is an electric vehicle.
	VehicleEV Vehicle = "ev"
	// VehicleAny marks a rule that applies regardless of vehicle class.
	VehicleAny Vehicle = "any"
)

// Valid reports whether v is a known vehicle class.
func (v Vehicle) Valid() bool {
	switch v {
	case VehicleStandard, VehicleEV, VehicleAny:
		return true
	}
	return false
}

// Weekday is an ISO weekday, Monday=1 through Sunday=7.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// AllWeek lists every weekday.
var AllWeek = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ISOWeekday returns the ISO weekday of t in its own location.
func ISOWeekday(t time.Time) Weekday {
	wd := t.Weekday()
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

// TimeWindow is a recurring daily window in minutes since local midnight.
// A window whose start is after its end runs overnight into the next day.
type TimeWindow struct {
	StartMinute int
	EndMinute   int
}

// NewTimeWindow returns the window [start, end) in minutes-of-day.
func NewTimeWindow(start, end int) TimeWindow {
	return TimeWindow{StartMinute: start, EndMinute: end}
}

// ParseTimeWindow parses a window from two "HH:MM" clock strings.
// "24:00" is accepted as the end of the day.
func ParseTimeWindow(start, end string) (TimeWindow, error) {
	s, err := parseClock(start)
	if err != nil {
		return TimeWindow{}, err
	}
	e, err := parseClock(end)
	if err != nil {
		return TimeWindow{}, err
	}
	return TimeWindow{StartMinute: s, EndMinute: e}, nil
}

// Overnight reports whether the window spans midnight.
func (w TimeWindow) Overnight() bool {
	return w.StartMinute > w.EndMinute
}

func (w TimeWindow) String() string {
	return formatClock(w.StartMinute) + "-" + formatClock(w.EndMinute)
}

func parseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' || !isDigits(s[:2]) || !isDigits(s[3:]) {
		return 0, &ConfigError{Field: "window", Message: fmt.Sprintf("malformed clock time %q", s)}
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	if m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, &ConfigError{Field: "window", Message: fmt.Sprintf("clock time %q out of range", s)}
	}
	return h*60 + m, nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func formatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// PricingKind identifies a pricing variant on the wire.
type PricingKind string

const (
	KindInterval PricingKind = "interval"
	KindTiered   PricingKind = "tiered"
)

// Pricing is the kind-specific part of a rule. It is implemented only by
// IntervalPricing and TieredPricing.
type Pricing interface {
	Kind() PricingKind
	isPricing()
}

// IntervalPricing charges per commenced interval, optionally capped per
// window occurrence.
type IntervalPricing struct {
	IntervalMinutes   int
	PricePerInterval  float64
	MaxPricePerWindow *float64
}

func (IntervalPricing) Kind() PricingKind { return KindInterval }
func (IntervalPricing) isPricing()        {}

// Tier is a cumulative price point: stays up to ThresholdMinutes cost Price.
type Tier struct {
	ThresholdMinutes int     `json:"thresholdMinutes"`
	Price            float64 `json:"price"`
}

// TieredPricing rounds the stay up to RoundingMinutes and charges the first
// tier whose threshold covers it.
type TieredPricing struct {
	RoundingMinutes int
	Tiers           []Tier
}

func (TieredPricing) Kind() PricingKind { return KindTiered }
func (TieredPricing) isPricing()        {}

// PricingRule is one tariff applying to a vehicle class on a set of weekdays
// during a set of daily windows.
type PricingRule struct {
	Vehicle Vehicle
	Days    []Weekday
	Windows []TimeWindow
	Pricing Pricing
	Notes   string
}

// Matches reports whether the rule applies to the vehicle class.
func (r PricingRule) Matches(v Vehicle) bool {
	return r.Vehicle == VehicleAny || r.Vehicle == v
}

func (r PricingRule) appliesOn(wd Weekday) bool {
	for _, d := range r.Days {
		if d == wd {
			return true
		}
	}
	return false
}

// Promotion is a named free-minutes allowance.
type Promotion struct {
	Key         string `json:"key"`
	FreeMinutes int    `json:"freeMinutes"`
	Notes       string `json:"notes,omitempty"`
}

// Cap bounds the cost of every WindowMinutes-long block of a session,
// anchored at the session start.
type Cap struct {
	WindowMinutes int     `json:"windowMinutes"`
	Price         float64 `json:"price"`
}

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Spot is a parking location as the engine sees it.
type Spot struct {
	ID         int64         `json:"id"`
	Location   Coordinate    `json:"location"`
	Rules      []PricingRule `json:"rules"`
	Promotions []Promotion   `json:"promotions,omitempty"`
	Caps       []Cap         `json:"caps,omitempty"`
}

// CostLineItem is the contribution of one window occurrence of one rule.
type CostLineItem struct {
	RuleIndex        int       `json:"ruleIndex"`
	WindowIndex      int       `json:"windowIndex"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	Minutes          int       `json:"minutes"`
	FreeMinutes      int       `json:"freeMinutes,omitempty"`
	ChargedIntervals int       `json:"chargedIntervals,omitempty"`
	RoundedMinutes   int       `json:"roundedMinutes,omitempty"`
	Subtotal         float64   `json:"subtotal"`
	CapApplied       *float64  `json:"capApplied,omitempty"`
}

// AppliedPromotion reports how many minutes a promotion contributed.
type AppliedPromotion struct {
	Key         string `json:"key"`
	MinutesUsed int    `json:"minutesUsed"`
}

// CostBreakdown is the itemised cost of one session at one spot.
//
// CapReduction is the net drop from the uncapped total to Total. It is not
// the sum of every cap block's clamp removal: when several caps apply only
// the winning cap's saving is reported, and blocks that are re-priced on
// their own boundaries can make the two figures differ.
type CostBreakdown struct {
	Total             float64            `json:"total"`
	Currency          string             `json:"currency"`
	Items             []CostLineItem     `json:"items"`
	CapReduction      float64            `json:"capReduction,omitempty"`
	AppliedPromotions []AppliedPromotion `json:"appliedPromotions,omitempty"`
}

// Weights are the relative importance of price and walking time.
type Weights struct {
	Price   float64 `json:"price"`
	Walking float64 `json:"walking"`
}

// DefaultWeights favours price over walking.
var DefaultWeights = Weights{Price: 0.75, Walking: 0.25}

// DefaultWalkingSpeedKmh is an average adult walking pace.
const DefaultWalkingSpeedKmh = 4.8

// RankOptions describes a ranking query.
type RankOptions struct {
	Start           time.Time
	DurationMinutes int
	Vehicle         Vehicle
	Destination     *Coordinate
	// WalkingSpeedKmh defaults to DefaultWalkingSpeedKmh when zero.
	WalkingSpeedKmh float64
	// Weights defaults to DefaultWeights when nil.
	Weights       *Weights
	PromotionKeys []string
}

// RankedResult pairs a spot with its cost and score. Lower scores are better.
type RankedResult struct {
	Spot           Spot          `json:"spot"`
	Cost           float64       `json:"cost"`
	Currency       string        `json:"currency"`
	DistanceMeters *float64      `json:"distanceMeters,omitempty"`
	WalkingMinutes *float64      `json:"walkingMinutes,omitempty"`
	Score          float64       `json:"score"`
	Breakdown      CostBreakdown `json:"breakdown"`
}

// SpotDefect records a spot excluded from a ranking batch.
type SpotDefect struct {
	Index  int
	SpotID int64
	Err    error
}

func (d SpotDefect) Error() string {
	return fmt.Sprintf("spot %d: %v", d.SpotID, d.Err)
}

func (d SpotDefect) Unwrap() error { return d.Err }
