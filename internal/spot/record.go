package spot

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/parkwise/parkwise/internal/parking"
)

// Record is the JSON interchange form of a spot, used by catalogue imports
// and catalogue files.
type Record struct {
	ID          int64                 `json:"id"`
	Provider    string                `json:"provider"`
	Name        string                `json:"name"`
	Address     string                `json:"address,omitempty"`
	PostalCode  string                `json:"postalCode,omitempty"`
	City        string                `json:"city,omitempty"`
	ZoneCode    string                `json:"zoneCode,omitempty"`
	Location    parking.Coordinate    `json:"location"`
	ActivatedAt *time.Time            `json:"activatedAt,omitempty"`
	Version     int                   `json:"version"`
	Disabled    bool                  `json:"disabled,omitempty"`
	Rules       []parking.PricingRule `json:"rules"`
	Promotions  []parking.Promotion   `json:"promotions,omitempty"`
	Caps        []parking.Cap         `json:"caps,omitempty"`
}

// Spot converts the record into a catalogue spot.
func (r Record) Spot() *Spot {
	return &Spot{
		Spot: parking.Spot{
			ID:         r.ID,
			Location:   r.Location,
			Rules:      r.Rules,
			Promotions: r.Promotions,
			Caps:       r.Caps,
		},
		Provider:    r.Provider,
		Name:        r.Name,
		Address:     r.Address,
		PostalCode:  r.PostalCode,
		City:        r.City,
		ZoneCode:    r.ZoneCode,
		ActivatedAt: r.ActivatedAt,
		Version:     r.Version,
		Disabled:    r.Disabled,
	}
}

// RecordOf converts a catalogue spot into its interchange form.
func RecordOf(s *Spot) Record {
	return Record{
		ID:          s.ID,
		Provider:    s.Provider,
		Name:        s.Name,
		Address:     s.Address,
		PostalCode:  s.PostalCode,
		City:        s.City,
		ZoneCode:    s.ZoneCode,
		Location:    s.Location,
		ActivatedAt: s.ActivatedAt,
		Version:     s.Version,
		Disabled:    s.Disabled,
		Rules:       s.Rules,
		Promotions:  s.Promotions,
		Caps:        s.Caps,
	}
}

// RecordError reports a catalogue record that could not be decoded.
type RecordError struct {
	Index  int
	SpotID int64
	Err    error
}

func (e *RecordError) Error() string {
	if e.SpotID != 0 {
		return fmt.Sprintf("record %d (spot %d): %v", e.Index, e.SpotID, e.Err)
	}
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// ReadCatalogue decodes a JSON array of records into spots. Each record is
// decoded on its own: a malformed record is returned in rejected and does
// not stop the rest. Spots are returned unvalidated. err is set only when
// the input is not a JSON array.
func ReadCatalogue(r io.Reader) (spots []*Spot, rejected []*RecordError, err error) {
	var raws []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, nil, fmt.Errorf("decode catalogue: %w", err)
	}

	spots = make([]*Spot, 0, len(raws))
	for i, raw := range raws {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			rejected = append(rejected, &RecordError{Index: i, SpotID: recordID(raw), Err: err})
			continue
		}
		spots = append(spots, rec.Spot())
	}
	return spots, rejected, nil
}

// recordID recovers the id of a record whose body failed to decode.
func recordID(raw json.RawMessage) int64 {
	var head struct {
		ID int64 `json:"id"`
	}
	_ = json.Unmarshal(raw, &head)
	return head.ID
}
