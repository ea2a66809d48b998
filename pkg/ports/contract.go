package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBackendContract runs a suite of tests to verify that a Backend implementation
// adheres to the defined interface contract. The backend must start with the
// default presets and "flat" selected.
func RunBackendContract(t *testing.T, backend Backend) {
	ctx := context.Background()
	suffix := time.Now().Format("20060102150405.000000000")

	t.Run("Initial State", func(t *testing.T) {
		presets, err := backend.GetPresets(ctx)
		require.NoError(t, err)
		require.NoError(t, presets.Validate())

		selected, err := backend.GetSelectedPreset(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, selected.ID)
	})

	t.Run("Create Appends In Order", func(t *testing.T) {
		before, err := backend.GetPresets(ctx)
		require.NoError(t, err)

		draft := PresetDraft{
			ID:    "contract-" + suffix,
			Name:  "Contract " + suffix,
			Gains: domain.GainMap{domain.BandBass: 2, domain.BandMid: -1, domain.BandTreble: 0.5},
		}
		require.NoError(t, backend.CreatePreset(ctx, draft, false))

		after, err := backend.GetPresets(ctx)
		require.NoError(t, err)
		require.Len(t, after, len(before)+1)

		last := after[len(after)-1]
		assert.Equal(t, draft.ID, last.ID)
		assert.Equal(t, draft.Name, last.Name)
		assert.Equal(t, draft.Gains, last.Gains)
		assert.False(t, last.IsDefault)
	})

	t.Run("Create And Select", func(t *testing.T) {
		draft := PresetDraft{ID: "contract-selected-" + suffix, Name: "Selected " + suffix}
		require.NoError(t, backend.CreatePreset(ctx, draft, true))

		selected, err := backend.GetSelectedPreset(ctx)
		require.NoError(t, err)
		assert.Equal(t, draft.ID, selected.ID)
	})

	t.Run("Select", func(t *testing.T) {
		presets, err := backend.GetPresets(ctx)
		require.NoError(t, err)
		flat, ok := presets.Find(domain.FlatPresetID)
		require.True(t, ok)

		require.NoError(t, backend.SelectPreset(ctx, flat))
		selected, err := backend.GetSelectedPreset(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.FlatPresetID, selected.ID)
	})

	t.Run("Select Unknown", func(t *testing.T) {
		err := backend.SelectPreset(ctx, domain.Preset{ID: "missing-" + suffix, Name: "Missing"})
		assert.ErrorIs(t, err, domain.ErrUnknownPreset)
	})

	t.Run("Update Manual And Select", func(t *testing.T) {
		presets, err := backend.GetPresets(ctx)
		require.NoError(t, err)
		manual, ok := presets.Find(domain.ManualPresetID)
		require.True(t, ok)

		manual.Gains = manual.Gains.With(domain.BandTreble, 4.5)
		require.NoError(t, backend.UpdatePreset(ctx, manual, UpdateOptions{Select: true, Transition: true}))

		presets, err = backend.GetPresets(ctx)
		require.NoError(t, err)
		stored, _ := presets.Find(domain.ManualPresetID)
		assert.Equal(t, 4.5, stored.Gains.Get(domain.BandTreble))
		assert.True(t, stored.IsDefault, "update must not change default status")

		selected, err := backend.GetSelectedPreset(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ManualPresetID, selected.ID)
	})

	t.Run("Update Unknown", func(t *testing.T) {
		err := backend.UpdatePreset(ctx, domain.Preset{ID: "missing-" + suffix, Name: "Missing"}, UpdateOptions{})
		assert.ErrorIs(t, err, domain.ErrUnknownPreset)
	})

	t.Run("Delete", func(t *testing.T) {
		draft := PresetDraft{ID: "contract-delete-" + suffix, Name: "Delete " + suffix}
		require.NoError(t, backend.CreatePreset(ctx, draft, false))

		require.NoError(t, backend.DeletePreset(ctx, domain.Preset{ID: draft.ID, Name: draft.Name}))

		presets, err := backend.GetPresets(ctx)
		require.NoError(t, err)
		_, found := presets.Find(draft.ID)
		assert.False(t, found, "preset should be gone after delete")
	})

	t.Run("Delete Default", func(t *testing.T) {
		presets, err := backend.GetPresets(ctx)
		require.NoError(t, err)
		flat, _ := presets.Find(domain.FlatPresetID)

		err = backend.DeletePreset(ctx, flat)
		assert.ErrorIs(t, err, domain.ErrCannotDeleteDefault)
	})
}

// RunNotifierContract verifies that a mutation on backend reaches subscribers of notifier.
func RunNotifierContract(t *testing.T, backend Backend, notifier Notifier) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := notifier.Subscribe(ctx)
	require.NoError(t, err)

	presets, err := backend.GetPresets(ctx)
	require.NoError(t, err)
	flat, ok := presets.Find(domain.FlatPresetID)
	require.True(t, ok)

	// Give asynchronous subscriptions a moment to register.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, backend.SelectPreset(ctx, flat))

	timeout := time.After(2 * time.Second)
	for {
		select {
		case n, ok := <-events:
			require.True(t, ok, "notification channel closed early")
			if n.Type == domain.NotifySelectedChanged {
				require.NotNil(t, n.Selected)
				assert.Equal(t, domain.FlatPresetID, n.Selected.ID)
				cancel()
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for selection notification")
		}
	}
}
