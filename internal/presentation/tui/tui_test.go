package tui

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGainBar(t *testing.T) {
	tests := []struct {
		name string
		gain float64
		want string
	}{
		{"Zero", 0, "    │    "},
		{"Boost", 6, "    │██  "},
		{"Cut", -12, "████│    "},
		{"Clamped", 40, "    │████"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GainBar(tt.gain, 4))
		})
	}
	assert.Equal(t, 3, utf8.RuneCountInString(GainBar(1, 0)))
}

func TestRenderGains(t *testing.T) {
	gains := domain.GainMap{domain.BandBass: 6, domain.BandTreble: -1.5}

	out := RenderGains(gains, true, 60)
	assert.Contains(t, out, "bass")
	assert.Contains(t, out, "+6.0dB")
	assert.Contains(t, out, "-1.5dB")
	assert.NotContains(t, out, "transitioning")

	assert.Contains(t, RenderGains(gains, false, 60), "transitioning")
}

func TestPresetsMarkdown(t *testing.T) {
	presets := append(domain.DefaultPresets(), domain.Preset{ID: "u1", Name: "Rock|Pop", Gains: domain.GainMap{2, 1, 3}})
	md := PresetsMarkdown(presets, "u1")

	lines := strings.Split(strings.TrimSpace(md), "\n")
	assert.Len(t, lines, 2+len(presets))
	assert.Contains(t, lines[0], "Bass")
	assert.Contains(t, md, "| ▶ | `u1` | Rock\\|Pop | +2.0dB | +1.0dB | +3.0dB | user |")
	assert.Contains(t, md, "|  | `flat` | Flat | 0.0dB | 0.0dB | 0.0dB | built-in |")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3\n")
	assert.Contains(t, buf.String(), "v1.2.3")
}
