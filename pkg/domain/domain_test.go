package domain_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBand(t *testing.T) {
	b, err := domain.ParseBand(" Treble ")
	require.NoError(t, err)
	assert.Equal(t, domain.BandTreble, b)

	_, err = domain.ParseBand("sub")
	assert.ErrorIs(t, err, domain.ErrUnknownBand)
}

func TestBands_ClosedOrder(t *testing.T) {
	assert.Equal(t, []domain.Band{domain.BandBass, domain.BandMid, domain.BandTreble}, domain.Bands())
	assert.False(t, domain.Band(domain.BandCount).Valid())
	assert.Equal(t, "band(7)", domain.Band(7).String())
}

func TestGainMap_JSON(t *testing.T) {
	g := domain.GainMap{domain.BandBass: 2, domain.BandMid: -1, domain.BandTreble: 0.5}

	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, `{"bass":2,"mid":-1,"treble":0.5}`, string(data))

	var decoded domain.GainMap
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, g.Equal(decoded))
}

func TestGainMap_RejectsMissingAndUnknownBands(t *testing.T) {
	var g domain.GainMap
	err := json.Unmarshal([]byte(`{"bass":1,"mid":2}`), &g)
	assert.ErrorIs(t, err, domain.ErrMalformedPreset)

	err = json.Unmarshal([]byte(`{"bass":1,"mid":2,"treble":3,"sub":4}`), &g)
	assert.ErrorIs(t, err, domain.ErrUnknownBand)
}

func TestGainMap_With(t *testing.T) {
	var g domain.GainMap
	edited := g.With(domain.BandMid, 3)
	assert.Equal(t, 0.0, g.Get(domain.BandMid), "With must not mutate the receiver")
	assert.Equal(t, 3.0, edited.Get(domain.BandMid))
}

func TestFormatGain(t *testing.T) {
	assert.Equal(t, "+1.5dB", domain.FormatGain(1.5))
	assert.Equal(t, "-2.0dB", domain.FormatGain(-2))
	assert.Equal(t, "0.0dB", domain.FormatGain(0))
}

func TestDiffGains(t *testing.T) {
	from := domain.GainMap{domain.BandBass: 1, domain.BandMid: 2, domain.BandTreble: 3}
	to := domain.GainMap{domain.BandBass: 1, domain.BandMid: 0, domain.BandTreble: -3}

	deltas := domain.DiffGains(from, to)
	require.Len(t, deltas, 2)
	assert.Equal(t, domain.GainDelta{Band: domain.BandMid, From: 2, To: 0}, deltas[0])
	assert.Equal(t, domain.GainDelta{Band: domain.BandTreble, From: 3, To: -3}, deltas[1])

	assert.Empty(t, domain.DiffGains(to, to))
}

func TestDefaultPresets(t *testing.T) {
	presets := domain.DefaultPresets()
	require.NoError(t, presets.Validate())

	for _, p := range presets {
		assert.True(t, p.IsDefault, "preset %s should be default", p.ID)
	}

	presets[0].Name = "changed"
	assert.Equal(t, "Flat", domain.DefaultPresets()[0].Name, "DefaultPresets must return a copy")
}

func TestPresetCollection_Validate(t *testing.T) {
	presets := domain.DefaultPresets().Without(domain.ManualPresetID)
	assert.ErrorIs(t, presets.Validate(), domain.ErrMalformedPreset)

	dup := append(domain.DefaultPresets(), domain.Preset{ID: domain.FlatPresetID, Name: "Again"})
	assert.ErrorIs(t, dup.Validate(), domain.ErrMalformedPreset)
}

func TestPresetCollection_FindByName(t *testing.T) {
	presets := append(domain.DefaultPresets(), domain.Preset{ID: "u1", Name: "My Mix"})

	p, ok := presets.FindByName("  my mix ")
	require.True(t, ok)
	assert.Equal(t, "u1", p.ID)

	_, ok = presets.FindByName("Flat")
	assert.False(t, ok, "default presets are not matched by name")
}

func TestBackendError(t *testing.T) {
	cause := errors.New("connection refused")
	err := domain.BackendError("getPresets", cause)

	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, domain.BackendError("noop", nil))
	assert.Equal(t, err, domain.BackendError("again", err))
	assert.Contains(t, fmt.Sprint(err), "getPresets")
}

func TestValidateGain(t *testing.T) {
	assert.NoError(t, domain.ValidateGain(-12))
	assert.ErrorIs(t, domain.ValidateGain(math.NaN()), domain.ErrMalformedPreset)
	assert.ErrorIs(t, domain.ValidateGain(math.Inf(1)), domain.ErrMalformedPreset)
}
