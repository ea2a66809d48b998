package loam

// PresetMetadata is the front matter of a preset library document.
//
//	---
//	id: rock
//	name: Rock
//	gains:
//	  bass: 4
//	  mid: -1
//	  treble: 3
//	---
//	Punchy lows and crisp highs.
//
// Gains stay loosely typed: depending on the serializer numbers arrive as
// int64, float64, json.Number or even strings.
type PresetMetadata struct {
	ID    string         `json:"id" mapstructure:"id"`
	Name  string         `json:"name" mapstructure:"name"`
	Gains map[string]any `json:"gains" mapstructure:"gains"`
	Tags  []string       `json:"tags,omitempty" mapstructure:"tags"`
}
