package presets

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/basiceq/internal/logging"
	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/aretw0/basiceq/pkg/ports"
	"github.com/google/uuid"
)

// Store caches the preset collection and the selected preset.
// Safe for concurrent use.
type Store struct {
	backend ports.Backend

	mu       sync.RWMutex
	presets  domain.PresetCollection
	selected string

	allowDuplicates bool
	newID           func() string
	logger          *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger configures a logger for the Store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithAllowDuplicateNames lets user presets share a name.
func WithAllowDuplicateNames(allow bool) Option {
	return func(s *Store) {
		s.allowDuplicates = allow
	}
}

// WithIDGenerator replaces the uuid-based id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewStore creates a Store over the given backend. Call Load before use.
func NewStore(backend ports.Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		newID:   func() string { return uuid.NewString() },
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches the collection and the selected preset id from the backend.
// On failure the previous cache stays in place.
func (s *Store) Load(ctx context.Context) error {
	presets, err := s.backend.GetPresets(ctx)
	if err != nil {
		return domain.BackendError("getPresets", err)
	}
	selected, err := s.backend.GetSelectedPreset(ctx)
	if err != nil {
		return domain.BackendError("getSelectedPreset", err)
	}

	presets = ensureManual(presets, s.logger)
	if err := presets.Validate(); err != nil {
		return domain.BackendError("getPresets", err)
	}
	selectedID := selected.ID
	if presets.Index(selectedID) < 0 {
		s.logger.Warn("Backend selection is not in the collection; falling back to flat", "preset_id", selectedID)
		selectedID = domain.FlatPresetID
	}

	s.mu.Lock()
	s.presets = presets.Clone()
	s.selected = selectedID
	s.mu.Unlock()

	s.logger.Debug("Presets loaded", "count", len(presets), "selected", selectedID)
	return nil
}

// ensureManual appends a flat manual preset if the backend omitted it.
func ensureManual(presets domain.PresetCollection, logger *slog.Logger) domain.PresetCollection {
	if presets.Index(domain.ManualPresetID) >= 0 {
		return presets
	}
	logger.Warn("Backend returned no manual preset; synthesizing one")
	return append(presets.Clone(), domain.Preset{
		ID:        domain.ManualPresetID,
		Name:      "Manual",
		IsDefault: true,
	})
}

// Loaded reports whether Load has completed at least once.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected != ""
}

// Presets returns a copy of the cached collection.
func (s *Store) Presets() domain.PresetCollection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presets.Clone()
}

// Preset returns the cached preset with the given id.
func (s *Store) Preset(id string) (domain.Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presets.Find(id)
	if !ok {
		return domain.Preset{}, fmt.Errorf("%w: %q", domain.ErrUnknownPreset, id)
	}
	return p, nil
}

// Selected returns the selected preset.
func (s *Store) Selected() (domain.Preset, error) {
	s.mu.RLock()
	id := s.selected
	s.mu.RUnlock()
	return s.Preset(id)
}

// Select sets the selected preset locally.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.presets.Index(id) < 0 {
		return fmt.Errorf("%w: %q", domain.ErrUnknownPreset, id)
	}
	s.selected = id
	return nil
}

// PersistSelection tells the backend which preset is selected.
func (s *Store) PersistSelection(ctx context.Context, preset domain.Preset) error {
	if err := s.backend.SelectPreset(ctx, preset); err != nil {
		return domain.BackendError("selectPreset", err)
	}
	return nil
}

// Create persists a new user preset and appends it to the cache.
// The cache only changes once the backend accepted the preset.
func (s *Store) Create(ctx context.Context, name string, gains domain.GainMap, selectAfterCreate bool) (domain.Preset, error) {
	name, err := domain.SanitizeName(name)
	if err != nil {
		return domain.Preset{}, err
	}

	s.mu.RLock()
	_, taken := s.presets.FindByName(name)
	s.mu.RUnlock()
	if taken && !s.allowDuplicates {
		return domain.Preset{}, fmt.Errorf("%w: %q", domain.ErrDuplicateName, name)
	}

	preset := domain.Preset{
		ID:    s.newID(),
		Name:  name,
		Gains: gains,
	}
	draft := ports.PresetDraft{ID: preset.ID, Name: preset.Name, Gains: preset.Gains}
	if err := s.backend.CreatePreset(ctx, draft, selectAfterCreate); err != nil {
		return domain.Preset{}, domain.BackendError("createPreset", err)
	}

	s.mu.Lock()
	s.presets = append(s.presets, preset)
	if selectAfterCreate {
		s.selected = preset.ID
	}
	s.mu.Unlock()

	s.logger.Info("Preset created", "preset_id", preset.ID, "name", preset.Name)
	return preset, nil
}

// Update replaces the gains of a cached preset and persists the change.
// The cache keeps the new gains even when the backend call fails.
func (s *Store) Update(ctx context.Context, id string, gains domain.GainMap, opts ports.UpdateOptions) error {
	preset, err := s.Stage(id, gains, opts.Select)
	if err != nil {
		return err
	}
	return s.Persist(ctx, preset, opts)
}

// Stage replaces the gains of a cached preset without contacting the backend,
// optionally selecting it. Persist completes the update.
func (s *Store) Stage(id string, gains domain.GainMap, selectIt bool) (domain.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.presets.Index(id)
	if i < 0 {
		return domain.Preset{}, fmt.Errorf("%w: %q", domain.ErrUnknownPreset, id)
	}
	s.presets[i].Gains = gains
	if selectIt {
		s.selected = id
	}
	return s.presets[i], nil
}

// Persist sends a staged preset to the backend.
func (s *Store) Persist(ctx context.Context, preset domain.Preset, opts ports.UpdateOptions) error {
	if err := s.backend.UpdatePreset(ctx, preset, opts); err != nil {
		return domain.BackendError("updatePreset", err)
	}
	return nil
}

// Delete removes a user preset from the backend and the cache.
// It does not choose a new selection; callers select a fallback afterwards.
func (s *Store) Delete(ctx context.Context, id string) error {
	preset, err := s.Preset(id)
	if err != nil {
		return err
	}
	if preset.IsDefault {
		return fmt.Errorf("%w: %q", domain.ErrCannotDeleteDefault, id)
	}

	if err := s.backend.DeletePreset(ctx, preset); err != nil {
		return domain.BackendError("deletePreset", err)
	}

	s.mu.Lock()
	s.presets = s.presets.Without(id)
	s.mu.Unlock()

	s.logger.Info("Preset deleted", "preset_id", id)
	return nil
}

// Replace swaps the cached collection for one pushed by the backend.
// If the selected preset disappeared, the selection falls back to flat.
func (s *Store) Replace(presets domain.PresetCollection) error {
	presets = ensureManual(presets, s.logger)
	if err := presets.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets = presets.Clone()
	if s.presets.Index(s.selected) < 0 {
		s.selected = domain.FlatPresetID
	}
	return nil
}

// Apply merges a single pushed preset into the cache, adding it if missing.
func (s *Store) Apply(preset domain.Preset) error {
	if err := preset.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.presets.Index(preset.ID); i >= 0 {
		s.presets[i] = preset
		return nil
	}
	s.presets = append(s.presets, preset)
	return nil
}
