package ports

import (
	"context"

	"github.com/aretw0/basiceq/pkg/domain"
)

// PresetDraft is the partial preset sent to CreatePreset.
// ID is generated by the caller; backends keep it so later fetches agree.
type PresetDraft struct {
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name"`
	Gains domain.GainMap `json:"gains"`
}

// UpdateOptions accompanies UpdatePreset.
type UpdateOptions struct {
	// Select marks the updated preset as the selected one.
	Select bool `json:"select"`
	// Transition tells the backend a visual transition already accompanies the update,
	// so it should not animate again.
	Transition bool `json:"transition"`
}

// Backend is the source of truth for presets and the current selection.
// Every call may block on I/O and must honor ctx.
type Backend interface {
	// GetPresets returns the full collection in display order.
	GetPresets(ctx context.Context) (domain.PresetCollection, error)

	// GetSelectedPreset returns the preset currently selected.
	GetSelectedPreset(ctx context.Context) (domain.Preset, error)

	// SelectPreset persists the selection.
	// Returns domain.ErrUnknownPreset if the preset does not exist.
	SelectPreset(ctx context.Context, preset domain.Preset) error

	// CreatePreset stores a new user preset, optionally selecting it.
	CreatePreset(ctx context.Context, draft PresetDraft, selectAfterCreate bool) error

	// UpdatePreset replaces the gains of an existing preset.
	// Returns domain.ErrUnknownPreset if the preset does not exist.
	UpdatePreset(ctx context.Context, preset domain.Preset, opts UpdateOptions) error

	// DeletePreset removes a user preset.
	// Returns domain.ErrCannotDeleteDefault for built-in presets.
	DeletePreset(ctx context.Context, preset domain.Preset) error
}

// Notifier is implemented by backends that push changes.
type Notifier interface {
	// Subscribe returns a channel of notifications that is closed when ctx is done.
	Subscribe(ctx context.Context) (<-chan domain.Notification, error)
}
