package parking

import (
	"encoding/json"
	"fmt"
)

type timeWindowJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// MarshalJSON encodes the window as {"start":"HH:MM","end":"HH:MM"}.
func (w TimeWindow) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeWindowJSON{Start: formatClock(w.StartMinute), End: formatClock(w.EndMinute)})
}

// UnmarshalJSON decodes a window from clock strings.
func (w *TimeWindow) UnmarshalJSON(data []byte) error {
	var raw timeWindowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTimeWindow(raw.Start, raw.End)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// ruleJSON is the flat wire shape of a rule, discriminated by Kind.
type ruleJSON struct {
	Kind              PricingKind  `json:"kind"`
	Vehicle           Vehicle      `json:"vehicle"`
	Days              []Weekday    `json:"days"`
	Windows           []TimeWindow `json:"windows"`
	IntervalMinutes   *int         `json:"intervalMinutes,omitempty"`
	PricePerInterval  *float64     `json:"pricePerInterval,omitempty"`
	MaxPricePerWindow *float64     `json:"maxPricePerWindow,omitempty"`
	RoundingMinutes   *int         `json:"roundingMinutes,omitempty"`
	Tiers             []Tier       `json:"tiers,omitempty"`
	Notes             string       `json:"notes,omitempty"`
}

// MarshalJSON encodes the rule with a "kind" discriminator.
func (r PricingRule) MarshalJSON() ([]byte, error) {
	raw := ruleJSON{
		Vehicle: r.Vehicle,
		Days:    r.Days,
		Windows: r.Windows,
		Notes:   r.Notes,
	}
	switch p := r.Pricing.(type) {
	case IntervalPricing:
		raw.Kind = KindInterval
		raw.IntervalMinutes = &p.IntervalMinutes
		raw.PricePerInterval = &p.PricePerInterval
		raw.MaxPricePerWindow = p.MaxPricePerWindow
	case TieredPricing:
		raw.Kind = KindTiered
		raw.RoundingMinutes = &p.RoundingMinutes
		raw.Tiers = p.Tiers
	default:
		return nil, fmt.Errorf("parking: cannot encode pricing %T", r.Pricing)
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes a rule, rejecting unknown kinds and rules missing
// the fields their kind requires.
func (r *PricingRule) UnmarshalJSON(data []byte) error {
	var raw ruleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	rule := PricingRule{
		Vehicle: raw.Vehicle,
		Days:    raw.Days,
		Windows: raw.Windows,
		Notes:   raw.Notes,
	}

	switch raw.Kind {
	case KindInterval:
		if raw.IntervalMinutes == nil {
			return &ConfigError{Field: "intervalMinutes", Message: "is required for interval pricing"}
		}
		if raw.PricePerInterval == nil {
			return &ConfigError{Field: "pricePerInterval", Message: "is required for interval pricing"}
		}
		rule.Pricing = IntervalPricing{
			IntervalMinutes:   *raw.IntervalMinutes,
			PricePerInterval:  *raw.PricePerInterval,
			MaxPricePerWindow: raw.MaxPricePerWindow,
		}
	case KindTiered:
		if raw.RoundingMinutes == nil {
			return &ConfigError{Field: "roundingMinutes", Message: "is required for tiered pricing"}
		}
		if len(raw.Tiers) == 0 {
			return &ConfigError{Field: "tiers", Message: "is required for tiered pricing"}
		}
		rule.Pricing = TieredPricing{
			RoundingMinutes: *raw.RoundingMinutes,
			Tiers:           raw.Tiers,
		}
	case "":
		return &ConfigError{Field: "kind", Message: "is required"}
	default:
		return &ConfigError{Field: "kind", Message: fmt.Sprintf("unknown pricing kind %q", raw.Kind)}
	}

	*r = rule
	return nil
}
