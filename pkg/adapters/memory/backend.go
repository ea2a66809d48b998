package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/aretw0/basiceq/pkg/ports"
)

// subscriberBuffer is the per-subscriber notification backlog; a subscriber
// that falls further behind misses notifications.
const subscriberBuffer = 16

// Backend implements ports.Backend and ports.Notifier in memory.
// Safe for concurrent use.
type Backend struct {
	mu       sync.RWMutex
	presets  domain.PresetCollection
	selected string
	seq      int
	subs     map[chan domain.Notification]struct{}
}

// Option configures the Backend.
type Option func(*Backend)

// WithPresets seeds the backend with the given collection instead of the defaults.
func WithPresets(presets domain.PresetCollection) Option {
	return func(b *Backend) {
		b.presets = presets.Clone()
	}
}

// WithSelected sets the initially selected preset id.
func WithSelected(id string) Option {
	return func(b *Backend) {
		b.selected = id
	}
}

// NewBackend creates a backend holding the default presets with "flat" selected.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		presets:  domain.DefaultPresets(),
		selected: domain.FlatPresetID,
		subs:     make(map[chan domain.Notification]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// GetPresets returns a copy of the stored collection.
func (b *Backend) GetPresets(ctx context.Context) (domain.PresetCollection, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.presets.Clone(), nil
}

// GetSelectedPreset returns the selected preset.
func (b *Backend) GetSelectedPreset(ctx context.Context) (domain.Preset, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.presets.Find(b.selected)
	if !ok {
		return domain.Preset{}, fmt.Errorf("%w: selected %q", domain.ErrUnknownPreset, b.selected)
	}
	return p, nil
}

// SelectPreset persists the selection.
func (b *Backend) SelectPreset(ctx context.Context, preset domain.Preset) error {
	b.mu.Lock()
	stored, ok := b.presets.Find(preset.ID)
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %q", domain.ErrUnknownPreset, preset.ID)
	}
	b.selected = preset.ID
	b.mu.Unlock()

	b.publish(domain.SelectedChanged(stored))
	return nil
}

// CreatePreset appends a user preset.
func (b *Backend) CreatePreset(ctx context.Context, draft ports.PresetDraft, selectAfterCreate bool) error {
	b.mu.Lock()
	b.seq++
	id := draft.ID
	if id == "" {
		id = fmt.Sprintf("preset-%d", b.seq)
	}
	if b.presets.Index(id) >= 0 {
		b.mu.Unlock()
		return fmt.Errorf("%w: duplicate id %q", domain.ErrMalformedPreset, id)
	}
	preset := domain.Preset{ID: id, Name: draft.Name, Gains: draft.Gains}
	b.presets = append(b.presets, preset)
	if selectAfterCreate {
		b.selected = id
	}
	presets := b.presets.Clone()
	b.mu.Unlock()

	b.publish(domain.PresetsChanged(presets))
	if selectAfterCreate {
		b.publish(domain.SelectedChanged(preset))
	}
	return nil
}

// UpdatePreset replaces the gains of an existing preset.
func (b *Backend) UpdatePreset(ctx context.Context, preset domain.Preset, opts ports.UpdateOptions) error {
	b.mu.Lock()
	i := b.presets.Index(preset.ID)
	if i < 0 {
		b.mu.Unlock()
		return fmt.Errorf("%w: %q", domain.ErrUnknownPreset, preset.ID)
	}
	b.presets[i].Gains = preset.Gains
	if !b.presets[i].IsDefault && preset.Name != "" {
		b.presets[i].Name = preset.Name
	}
	stored := b.presets[i]
	if opts.Select {
		b.selected = preset.ID
	}
	presets := b.presets.Clone()
	b.mu.Unlock()

	b.publish(domain.PresetsChanged(presets))
	if opts.Select {
		b.publish(domain.SelectedChanged(stored))
	}
	return nil
}

// DeletePreset removes a user preset. Deleting the selected preset moves the
// selection to flat.
func (b *Backend) DeletePreset(ctx context.Context, preset domain.Preset) error {
	b.mu.Lock()
	stored, ok := b.presets.Find(preset.ID)
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %q", domain.ErrUnknownPreset, preset.ID)
	}
	if stored.IsDefault {
		b.mu.Unlock()
		return fmt.Errorf("%w: %q", domain.ErrCannotDeleteDefault, preset.ID)
	}
	b.presets = b.presets.Without(preset.ID)
	if b.selected == preset.ID {
		b.selected = domain.FlatPresetID
	}
	presets := b.presets.Clone()
	b.mu.Unlock()

	b.publish(domain.PresetsChanged(presets))
	return nil
}

// Subscribe registers a notification channel that is closed when ctx is done.
func (b *Backend) Subscribe(ctx context.Context) (<-chan domain.Notification, error) {
	ch := make(chan domain.Notification, subscriberBuffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, ch)
		close(ch)
	}()
	return ch, nil
}

// Push delivers a notification to subscribers without changing stored state.
// Tests use it to simulate pushes from another writer.
func (b *Backend) Push(n domain.Notification) {
	b.publish(n)
}

func (b *Backend) publish(n domain.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- n:
		default:
			// Drop if the subscriber is not keeping up.
		}
	}
}

var (
	_ ports.Backend  = (*Backend)(nil)
	_ ports.Notifier = (*Backend)(nil)
)
