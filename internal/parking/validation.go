package parking

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Validate checks every field of the spot and returns ConfigErrors listing
// all problems found, or nil.
func (s Spot) Validate() error {
	var errs ConfigErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if s.ID <= 0 {
		add("id", "must be positive")
	}
	if err := ValidateCoordinate(s.Location); err != nil {
		add("location", "%s", err.Error())
	}

	for i, rule := range s.Rules {
		for _, ce := range rule.problems() {
			ce.Field = fmt.Sprintf("rules[%d].%s", i, ce.Field)
			errs = append(errs, ce)
		}
	}

	keys := make(map[string]bool, len(s.Promotions))
	for i, p := range s.Promotions {
		field := fmt.Sprintf("promotions[%d]", i)
		if p.Key == "" {
			add(field+".key", "is required")
		} else if keys[p.Key] {
			add(field+".key", "duplicate promotion key %q", p.Key)
		}
		keys[p.Key] = true
		if p.FreeMinutes <= 0 {
			add(field+".freeMinutes", "must be positive")
		}
	}

	for i, c := range s.Caps {
		field := fmt.Sprintf("caps[%d]", i)
		if c.WindowMinutes <= 0 {
			add(field+".windowMinutes", "must be positive")
		}
		if !validAmount(c.Price) {
			add(field+".price", "must be a non-negative amount")
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate checks a single rule.
func (r PricingRule) Validate() error {
	if errs := r.problems(); len(errs) > 0 {
		return ConfigErrors(errs)
	}
	return nil
}

func (r PricingRule) problems() []*ConfigError {
	var errs []*ConfigError
	add := func(field, format string, args ...any) {
		errs = append(errs, &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !r.Vehicle.Valid() {
		add("vehicle", "unknown vehicle class %q", r.Vehicle)
	}

	if len(r.Days) == 0 {
		add("days", "at least one weekday is required")
	}
	for i, d := range r.Days {
		if d < Monday || d > Sunday {
			add(fmt.Sprintf("days[%d]", i), "weekday %d outside 1..7", d)
		}
	}

	if len(r.Windows) == 0 {
		add("windows", "at least one window is required")
	}
	for i, w := range r.Windows {
		field := fmt.Sprintf("windows[%d]", i)
		switch {
		case w.StartMinute < 0 || w.StartMinute >= MinutesPerDay:
			add(field, "start minute %d outside 0..1439", w.StartMinute)
		case w.EndMinute < 0 || w.EndMinute > MinutesPerDay:
			add(field, "end minute %d outside 0..1440", w.EndMinute)
		case w.StartMinute == w.EndMinute:
			add(field, "window %s is empty", w)
		}
	}

	switch p := r.Pricing.(type) {
	case IntervalPricing:
		if p.IntervalMinutes <= 0 {
			add("intervalMinutes", "must be positive")
		}
		if !validAmount(p.PricePerInterval) {
			add("pricePerInterval", "must be a non-negative amount")
		}
		if p.MaxPricePerWindow != nil && !validAmount(*p.MaxPricePerWindow) {
			add("maxPricePerWindow", "must be a non-negative amount")
		}
	case TieredPricing:
		if p.RoundingMinutes <= 0 {
			add("roundingMinutes", "must be positive")
		}
		if len(p.Tiers) == 0 {
			add("tiers", "at least one tier is required")
		}
		for i, t := range p.Tiers {
			field := fmt.Sprintf("tiers[%d]", i)
			if t.ThresholdMinutes <= 0 {
				add(field+".thresholdMinutes", "must be positive")
			}
			if !validAmount(t.Price) {
				add(field+".price", "must be a non-negative amount")
			}
			if i == 0 {
				continue
			}
			prev := p.Tiers[i-1]
			if t.ThresholdMinutes <= prev.ThresholdMinutes {
				add(field+".thresholdMinutes", "thresholds must be strictly ascending")
			}
			if t.Price < prev.Price {
				add(field+".price", "a longer tier may not be cheaper than a shorter one")
			}
		}
	case nil:
		add("kind", "pricing is required")
	default:
		add("kind", "unsupported pricing %T", p)
	}

	return errs
}

// ValidateCoordinate checks that c is a finite WGS84 coordinate.
func ValidateCoordinate(c Coordinate) error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return errors.New("coordinate is not a number")
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %g outside -90..90", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude %g outside -180..180", c.Lon)
	}
	return nil
}

func validateQueryVehicle(v Vehicle) error {
	if v != VehicleStandard && v != VehicleEV {
		return &QueryError{Field: "vehicle", Message: fmt.Sprintf("vehicle class must be %q or %q, got %q", VehicleStandard, VehicleEV, v)}
	}
	return nil
}

func (o RankOptions) validate() error {
	if o.DurationMinutes < 0 {
		return &QueryError{Field: "durationMinutes", Message: "must not be negative"}
	}
	if err := validateQueryVehicle(o.Vehicle); err != nil {
		return err
	}
	if o.Destination != nil {
		if err := ValidateCoordinate(*o.Destination); err != nil {
			return &QueryError{Field: "destination", Message: err.Error()}
		}
	}
	if o.WalkingSpeedKmh < 0 || math.IsNaN(o.WalkingSpeedKmh) || math.IsInf(o.WalkingSpeedKmh, 0) {
		return &QueryError{Field: "walkingSpeedKmh", Message: "must be a positive speed"}
	}
	if o.Weights != nil {
		w := *o.Weights
		if !validAmount(w.Price) || !validAmount(w.Walking) {
			return &QueryError{Field: "weights", Message: "must be non-negative numbers"}
		}
		if w.Price == 0 && w.Walking == 0 {
			return &QueryError{Field: "weights", Message: "at least one weight must be positive"}
		}
	}
	if slices.Contains(o.PromotionKeys, "") {
		return &QueryError{Field: "promotionKeys", Message: "must not contain empty keys"}
	}
	return nil
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
