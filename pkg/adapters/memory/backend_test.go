package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/basiceq/pkg/adapters/memory"
	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/aretw0/basiceq/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_Contract(t *testing.T) {
	ports.RunBackendContract(t, memory.NewBackend())
}

func TestMemoryBackend_Notifier(t *testing.T) {
	backend := memory.NewBackend()
	ports.RunNotifierContract(t, backend, backend)
}

func TestMemoryBackend_DeleteSelectedFallsBackToFlat(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewBackend()

	require.NoError(t, backend.CreatePreset(ctx, ports.PresetDraft{ID: "rock", Name: "Rock"}, true))
	require.NoError(t, backend.DeletePreset(ctx, domain.Preset{ID: "rock"}))

	selected, err := backend.GetSelectedPreset(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.FlatPresetID, selected.ID)
}

func TestMemoryBackend_GeneratesIDs(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewBackend(memory.WithPresets(domain.DefaultPresets()[:2]))

	require.NoError(t, backend.CreatePreset(ctx, ports.PresetDraft{Name: "No ID"}, false))

	presets, err := backend.GetPresets(ctx)
	require.NoError(t, err)
	require.Len(t, presets, 3)
	assert.NotEmpty(t, presets[2].ID)
}

func TestMemoryBackend_CopiesOnRead(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewBackend()

	presets, err := backend.GetPresets(ctx)
	require.NoError(t, err)
	presets[0].Name = "mutated"

	again, err := backend.GetPresets(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Flat", again[0].Name)
}
