package loam

import (
	"context"
	"testing"

	"github.com/aretw0/basiceq/internal/testutils"
	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/aretw0/loam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLibrary(t *testing.T, files map[string]string) *Library {
	t.Helper()
	dir, repo := testutils.SetupTestRepo(t, loam.WithStrict(true))
	testutils.WriteFiles(t, dir, files)
	return New(loam.NewTypedRepository[PresetMetadata](repo))
}

func TestLibrary_List(t *testing.T) {
	lib := newLibrary(t, map[string]string{
		"rock.md": `---
name: Rock
gains:
  bass: 4
  mid: -1
  treble: 3.5
---
Punchy lows and crisp highs.`,
		"jazz.json": `{
  "id": "jazz.json",
  "name": "Jazz",
  "gains": {"bass": 2, "mid": 1, "treble": "1.5"}
}`,
	})

	presets, err := lib.List(context.Background())
	require.NoError(t, err)
	require.Len(t, presets, 2)

	assert.Equal(t, "jazz", presets[0].ID)
	assert.Equal(t, domain.GainMap{domain.BandBass: 2, domain.BandMid: 1, domain.BandTreble: 1.5}, presets[0].Gains)
	assert.Equal(t, "rock", presets[1].ID)
	assert.Equal(t, "Rock", presets[1].Name)
	assert.Equal(t, domain.GainMap{domain.BandBass: 4, domain.BandMid: -1, domain.BandTreble: 3.5}, presets[1].Gains)
	assert.True(t, presets[1].IsDefault)
}

func TestLibrary_Get(t *testing.T) {
	lib := newLibrary(t, map[string]string{
		"lofi.md": `---
gains: {bass: 3, mid: 0, treble: -4}
---`,
	})

	p, err := lib.Get(context.Background(), "lofi")
	require.NoError(t, err)
	assert.Equal(t, "lofi", p.Name, "name falls back to the id")
	assert.Equal(t, -4.0, p.Gains.Get(domain.BandTreble))

	_, err = lib.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrUnknownPreset)
}

func TestLibrary_RejectsIncompleteGains(t *testing.T) {
	lib := newLibrary(t, map[string]string{
		"broken.md": `---
gains: {bass: 3}
---`,
	})

	_, err := lib.List(context.Background())
	assert.ErrorIs(t, err, domain.ErrMalformedPreset)
}

func TestLibrary_DetectsCollisions(t *testing.T) {
	lib := newLibrary(t, map[string]string{
		"rock.md":   "---\ngains: {bass: 1, mid: 1, treble: 1}\n---",
		"rock.json": `{"gains": {"bass": 2, "mid": 2, "treble": 2}}`,
	})

	_, err := lib.List(context.Background())
	assert.ErrorContains(t, err, "collision detected")
}

func TestLibrary_Seed(t *testing.T) {
	lib := newLibrary(t, map[string]string{
		"bass_boost.md": "---\nname: Big Bass\ngains: {bass: 9, mid: 0, treble: 0}\n---",
		"flat.md":       "---\nname: Not Flat\ngains: {bass: 1, mid: 1, treble: 1}\n---",
		"rock.md":       "---\ngains: {bass: 4, mid: -1, treble: 3}\n---",
	})

	seed, err := lib.Seed(context.Background())
	require.NoError(t, err)
	require.NoError(t, seed.Validate())
	assert.Len(t, seed, len(domain.DefaultPresets())+1)

	flat, _ := seed.Find(domain.FlatPresetID)
	assert.Equal(t, domain.GainMap{}, flat.Gains)
	bass, _ := seed.Find("bass_boost")
	assert.Equal(t, "Big Bass", bass.Name)
	assert.Equal(t, "rock", seed[len(seed)-1].ID)
}
