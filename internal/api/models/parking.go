package models

import "github.com/parkwise/parkwise/internal/parking"

// RankRequest is the body of POST /v1/parking:rank.
type RankRequest struct {
	// Start defaults to now.
	Start *Timestamp `json:"start,omitempty"`
	// DurationMinutes defaults to 60.
	DurationMinutes *int   `json:"durationMinutes,omitempty"`
	Vehicle         string `json:"vehicle,omitempty"`
	// Destination takes precedence over Address.
	Destination        *Point          `json:"destination,omitempty"`
	Address            string          `json:"address,omitempty"`
	Limit              *int            `json:"limit,omitempty"`
	Weights            *RankingWeights `json:"weights,omitempty"`
	WalkingSpeedKmh    *float64        `json:"walkingSpeedKmh,omitempty"`
	EligiblePromotions []string        `json:"eligiblePromotions,omitempty"`
	IncludeBreakdown   bool            `json:"includeBreakdown,omitempty"`
}

// RankingWeights are relative weights for price and walking time.
type RankingWeights struct {
	Price   float64 `json:"price"`
	Walking float64 `json:"walking"`
}

// RankResponse is the body returned by POST /v1/parking:rank.
type RankResponse struct {
	Currency string       `json:"currency"`
	Items    []RankedSpot `json:"items"`
	Meta     RankMeta     `json:"meta"`
}

// RankedSpot is one entry of a ranking.
type RankedSpot struct {
	Rank           int             `json:"rank"`
	Spot           SpotSummary     `json:"spot"`
	Cost           float64         `json:"cost"`
	Score          float64         `json:"score"`
	DistanceMeters *float64        `json:"distanceMeters,omitempty"`
	WalkingMinutes *float64        `json:"walkingMinutes,omitempty"`
	Summary        parking.Summary `json:"summary"`
	Breakdown      *CostBreakdown  `json:"breakdown,omitempty"`
}

// RankMeta echoes the effective ranking query.
type RankMeta struct {
	Start           Timestamp `json:"start"`
	DurationMinutes int       `json:"durationMinutes"`
	Vehicle         string    `json:"vehicle"`
	Destination     *Point    `json:"destination,omitempty"`
	ResolvedAddress string    `json:"resolvedAddress,omitempty"`
	UsedPromotions  []string  `json:"usedPromotions"`
	Candidates      int       `json:"candidates"`
	Excluded        int       `json:"excluded"`
	Warnings        []string  `json:"warnings,omitempty"`
}

// CostRequest is the body of POST /v1/parking/spots/{spotId}/cost.
type CostRequest struct {
	Start              *Timestamp `json:"start,omitempty"`
	DurationMinutes    *int       `json:"durationMinutes,omitempty"`
	Vehicle            string     `json:"vehicle,omitempty"`
	EligiblePromotions []string   `json:"eligiblePromotions,omitempty"`
}

// CostResponse is the itemised cost of one spot.
type CostResponse struct {
	Spot      SpotSummary   `json:"spot"`
	Start     Timestamp     `json:"start"`
	End       Timestamp     `json:"end"`
	Vehicle   string        `json:"vehicle"`
	Breakdown CostBreakdown `json:"breakdown"`
}

// CostBreakdown mirrors the engine breakdown with API timestamps.
type CostBreakdown struct {
	Total             float64            `json:"total"`
	Currency          string             `json:"currency"`
	Items             []CostLineItem     `json:"items"`
	CapReduction      float64            `json:"capReduction,omitempty"`
	AppliedPromotions []AppliedPromotion `json:"appliedPromotions,omitempty"`
}

// CostLineItem is the charge from one rule window occurrence.
type CostLineItem struct {
	RuleIndex        int       `json:"ruleIndex"`
	WindowIndex      int       `json:"windowIndex"`
	Start            Timestamp `json:"start"`
	End              Timestamp `json:"end"`
	Minutes          int       `json:"minutes"`
	FreeMinutes      int       `json:"freeMinutes,omitempty"`
	ChargedIntervals int       `json:"chargedIntervals,omitempty"`
	RoundedMinutes   int       `json:"roundedMinutes,omitempty"`
	Subtotal         float64   `json:"subtotal"`
	CapApplied       *float64  `json:"capApplied,omitempty"`
}

// AppliedPromotion reports how many free minutes a promotion consumed.
type AppliedPromotion struct {
	Key         string `json:"key"`
	MinutesUsed int    `json:"minutesUsed"`
}

// SpotSummary is the descriptive part of a spot shown in rankings and costs.
type SpotSummary struct {
	ID       int64  `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Address  string `json:"address,omitempty"`
	City     string `json:"city,omitempty"`
	ZoneCode string `json:"zoneCode,omitempty"`
	Location Point  `json:"location"`
}

// SpotResponse is the full catalogue record of a spot.
type SpotResponse struct {
	SpotSummary
	PostalCode  string                `json:"postalCode,omitempty"`
	ActivatedAt *Timestamp            `json:"activatedAt,omitempty"`
	Version     int                   `json:"version"`
	Disabled    bool                  `json:"disabled"`
	Rules       []parking.PricingRule `json:"rules"`
	Promotions  []parking.Promotion   `json:"promotions,omitempty"`
	Caps        []parking.Cap         `json:"caps,omitempty"`
	CreatedAt   Timestamp             `json:"createdAt"`
	UpdatedAt   Timestamp             `json:"updatedAt"`
}

// PagedSpots is a page of the spot catalogue.
type PagedSpots struct {
	Items []SpotResponse    `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

// SpotUpsertRequest is the body of PUT /v1/admin/spots/{spotId}.
type SpotUpsertRequest struct {
	Provider    string                `json:"provider"`
	Name        string                `json:"name"`
	Address     string                `json:"address,omitempty"`
	PostalCode  string                `json:"postalCode,omitempty"`
	City        string                `json:"city,omitempty"`
	ZoneCode    string                `json:"zoneCode,omitempty"`
	Location    Point                 `json:"location"`
	ActivatedAt *Timestamp            `json:"activatedAt,omitempty"`
	Version     int                   `json:"version"`
	Disabled    bool                  `json:"disabled"`
	Rules       []parking.PricingRule `json:"rules"`
	Promotions  []parking.Promotion   `json:"promotions,omitempty"`
	Caps        []parking.Cap         `json:"caps,omitempty"`
}
