package domain

import (
	"fmt"
	"strings"
)

// Sentinel ids of the presets every collection carries.
const (
	// FlatPresetID is the built-in preset with every band at 0 dB.
	// It is the fallback selection after a delete.
	FlatPresetID = "flat"
	// ManualPresetID is the synthesized preset that captures ad hoc edits.
	ManualPresetID = "manual"
)

// Preset is a named, identified bundle of gain values across all bands.
type Preset struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Gains     GainMap `json:"gains"`
	IsDefault bool    `json:"isDefault"`
}

// IsManual reports whether p is the synthesized manual preset.
func (p Preset) IsManual() bool {
	return p.ID == ManualPresetID
}

// Validate checks the fields a preset must carry once loaded.
func (p Preset) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrMalformedPreset)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: preset %q has an empty name", ErrMalformedPreset, p.ID)
	}
	return nil
}

// PresetCollection is the ordered list of presets; insertion order is display order.
type PresetCollection []Preset

// Clone returns a copy that does not share its backing array with c.
func (c PresetCollection) Clone() PresetCollection {
	if c == nil {
		return nil
	}
	out := make(PresetCollection, len(c))
	copy(out, c)
	return out
}

// Index returns the position of the preset with the given id, or -1.
func (c PresetCollection) Index(id string) int {
	for i, p := range c {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the preset with the given id.
func (c PresetCollection) Find(id string) (Preset, bool) {
	if i := c.Index(id); i >= 0 {
		return c[i], true
	}
	return Preset{}, false
}

// FindByName performs a case-insensitive lookup among non-default presets.
func (c PresetCollection) FindByName(name string) (Preset, bool) {
	name = strings.TrimSpace(name)
	for _, p := range c {
		if !p.IsDefault && strings.EqualFold(strings.TrimSpace(p.Name), name) {
			return p, true
		}
	}
	return Preset{}, false
}

// Without returns a copy of c with the preset id removed.
func (c PresetCollection) Without(id string) PresetCollection {
	out := make(PresetCollection, 0, len(c))
	for _, p := range c {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks id uniqueness and the presence of the flat and manual presets.
func (c PresetCollection) Validate() error {
	seen := make(map[string]struct{}, len(c))
	for _, p := range c {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrMalformedPreset, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	for _, id := range []string{FlatPresetID, ManualPresetID} {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("%w: missing %q preset", ErrMalformedPreset, id)
		}
	}
	return nil
}

var defaultPresets = PresetCollection{
	{ID: FlatPresetID, Name: "Flat", IsDefault: true},
	{ID: ManualPresetID, Name: "Manual", IsDefault: true},
	{ID: "bass_boost", Name: "Bass Boost", IsDefault: true, Gains: GainMap{BandBass: 6, BandMid: 0, BandTreble: -1}},
	{ID: "treble_boost", Name: "Treble Boost", IsDefault: true, Gains: GainMap{BandBass: -1, BandMid: 0, BandTreble: 6}},
	{ID: "vocal_boost", Name: "Vocal Boost", IsDefault: true, Gains: GainMap{BandBass: -2, BandMid: 4, BandTreble: 1}},
}

// DefaultPresets returns a copy of the built-in presets so callers can
// modify entries without affecting the bundled values.
func DefaultPresets() PresetCollection {
	return defaultPresets.Clone()
}
