package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// GainMap holds one gain value in decibels per Band.
// It is a fixed-size array so a loaded map never misses a band.
type GainMap [bandCount]float64

// Get returns the gain of band b.
func (g GainMap) Get(b Band) float64 {
	return g[b]
}

// With returns a copy of g with band b set to value.
func (g GainMap) With(b Band, value float64) GainMap {
	g[b] = value
	return g
}

// Equal reports whether every band holds the same value.
func (g GainMap) Equal(other GainMap) bool {
	return g == other
}

// ToMap converts g into a band-name keyed map, the shape used on the wire.
func (g GainMap) ToMap() map[string]float64 {
	out := make(map[string]float64, BandCount)
	for _, b := range Bands() {
		out[b.String()] = g[b]
	}
	return out
}

// GainsFromMap builds a GainMap from a band-name keyed map.
// Every band must be present, values must be finite and unknown keys are rejected.
func GainsFromMap(m map[string]float64) (GainMap, error) {
	var g GainMap
	seen := 0
	for name, value := range m {
		b, err := ParseBand(name)
		if err != nil {
			return GainMap{}, err
		}
		if err := ValidateGain(value); err != nil {
			return GainMap{}, fmt.Errorf("band %s: %w", b, err)
		}
		g[b] = value
		seen++
	}
	if seen != BandCount {
		return GainMap{}, fmt.Errorf("%w: expected %d bands, got %d", ErrMalformedPreset, BandCount, seen)
	}
	return g, nil
}

// ValidateGain rejects NaN and infinite gains.
func ValidateGain(gain float64) error {
	if math.IsNaN(gain) || math.IsInf(gain, 0) {
		return fmt.Errorf("%w: gain %v is not finite", ErrMalformedPreset, gain)
	}
	return nil
}

// MarshalJSON encodes the map as {"bass": 0, "mid": 0, "treble": 0}.
func (g GainMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.ToMap())
}

// UnmarshalJSON decodes a band-name keyed object and requires every band.
func (g *GainMap) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPreset, err)
	}
	parsed, err := GainsFromMap(m)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// FormatGain renders a gain for display, e.g. "+1.5dB", "-2.0dB", "0.0dB".
func FormatGain(gain float64) string {
	sign := ""
	if gain > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.1fdB", sign, gain)
}
