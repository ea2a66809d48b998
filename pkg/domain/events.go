package domain

import (
	"context"
	"time"
)

// NotificationType tells which part of the backend state changed.
type NotificationType string

const (
	NotifyPresetsChanged  NotificationType = "presets_changed"
	NotifySelectedChanged NotificationType = "selected_changed"
)

// Notification is a change pushed by the backend.
// Presets is set for NotifyPresetsChanged, Selected for NotifySelectedChanged.
type Notification struct {
	Type     NotificationType `json:"type"`
	Presets  PresetCollection `json:"presets,omitempty"`
	Selected *Preset          `json:"selected,omitempty"`
}

// PresetsChanged builds a presets notification carrying a copy of presets.
func PresetsChanged(presets PresetCollection) Notification {
	return Notification{Type: NotifyPresetsChanged, Presets: presets.Clone()}
}

// SelectedChanged builds a selection notification.
func SelectedChanged(p Preset) Notification {
	return Notification{Type: NotifySelectedChanged, Selected: &p}
}

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
}

// PresetEvent is emitted when a preset becomes selected, saved or deleted.
type PresetEvent struct {
	EventBase
	PresetID string `json:"preset_id"`
	Name     string `json:"name"`
}

// GainEvent is emitted when a single band is edited.
type GainEvent struct {
	EventBase
	Band       Band    `json:"band"`
	Gain       float64 `json:"gain"`
	Transition bool    `json:"transition"`
}

// TransitionEvent is emitted when a reconciliation starts animating bands
// and again when every band has settled.
type TransitionEvent struct {
	EventBase
	Bands []Band `json:"bands,omitempty"`
}

// BackendErrorEvent is emitted when a backend call fails.
type BackendErrorEvent struct {
	EventBase
	Op  string `json:"op"`
	Err error  `json:"-"`
}

// LifecycleHooks defines callbacks for session observability.
// Any field may be nil.
type LifecycleHooks struct {
	OnPresetSelected  func(context.Context, *PresetEvent)
	OnPresetSaved     func(context.Context, *PresetEvent)
	OnPresetDeleted   func(context.Context, *PresetEvent)
	OnGainEdited      func(context.Context, *GainEvent)
	OnTransitionStart func(context.Context, *TransitionEvent)
	OnSettled         func(context.Context, *TransitionEvent)
	OnBackendError    func(context.Context, *BackendErrorEvent)
}
