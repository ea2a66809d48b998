package file

import (
	"fmt"

	"github.com/aretw0/basiceq/pkg/domain"
)

// document is the on-disk shape of the preset file.
type document struct {
	Selected string      `yaml:"selected"`
	Presets  []presetDTO `yaml:"presets"`
}

type presetDTO struct {
	ID      string             `yaml:"id"`
	Name    string             `yaml:"name"`
	Default bool               `yaml:"default,omitempty"`
	Gains   map[string]float64 `yaml:"gains"`
}

func newDocument(presets domain.PresetCollection, selected string) document {
	doc := document{Selected: selected, Presets: make([]presetDTO, 0, len(presets))}
	for _, p := range presets {
		doc.Presets = append(doc.Presets, presetDTO{
			ID:      p.ID,
			Name:    p.Name,
			Default: p.IsDefault,
			Gains:   p.Gains.ToMap(),
		})
	}
	return doc
}

func (d document) collection() (domain.PresetCollection, error) {
	out := make(domain.PresetCollection, 0, len(d.Presets))
	for _, dto := range d.Presets {
		gains, err := domain.GainsFromMap(dto.Gains)
		if err != nil {
			return nil, fmt.Errorf("preset %q: %w", dto.ID, err)
		}
		p := domain.Preset{ID: dto.ID, Name: dto.Name, Gains: gains, IsDefault: dto.Default}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func (d document) selectedID() string {
	if d.Selected == "" {
		return domain.FlatPresetID
	}
	return d.Selected
}
