package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/basiceq/internal/logging"
	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/aretw0/basiceq/pkg/ports"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when New receives an empty path.
var DefaultPath = filepath.Join(".basiceq", "presets.yaml")

// DefaultDebounce collapses bursts of file events into one reload.
const DefaultDebounce = 50 * time.Millisecond

// Backend implements ports.Backend on a single YAML file and ports.Notifier
// by watching that file. A missing file reads as the seed collection.
type Backend struct {
	path     string
	seed     domain.PresetCollection
	debounce time.Duration
	logger   *slog.Logger

	mu sync.Mutex
}

// Option configures the Backend.
type Option func(*Backend)

// WithSeed replaces the presets a missing file reads as.
func WithSeed(presets domain.PresetCollection) Option {
	return func(b *Backend) {
		b.seed = presets.Clone()
	}
}

// WithDebounce sets how long the watcher waits for events to settle.
func WithDebounce(d time.Duration) Option {
	return func(b *Backend) {
		if d > 0 {
			b.debounce = d
		}
	}
}

// WithLogger configures a logger for the Backend.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// New creates a Backend storing presets at path.
func New(path string, opts ...Option) *Backend {
	if path == "" {
		path = DefaultPath
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	b := &Backend{
		path:     path,
		seed:     domain.DefaultPresets(),
		debounce: DefaultDebounce,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Path returns the absolute location of the preset file.
func (b *Backend) Path() string {
	return b.path
}

func (b *Backend) read() (document, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return newDocument(b.seed, domain.FlatPresetID), nil
	}
	if err != nil {
		return document{}, fmt.Errorf("failed to read preset file: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("%w: %w", domain.ErrMalformedPreset, err)
	}
	return doc, nil
}

func (b *Backend) load() (domain.PresetCollection, string, error) {
	doc, err := b.read()
	if err != nil {
		return nil, "", err
	}
	presets, err := doc.collection()
	if err != nil {
		return nil, "", err
	}
	return presets, doc.selectedID(), nil
}

// write persists the document atomically: temp file in the same directory,
// fsync, then rename over the destination.
func (b *Backend) write(presets domain.PresetCollection, selected string) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure preset directory: %w", err)
	}

	data, err := yaml.Marshal(newDocument(presets, selected))
	if err != nil {
		return fmt.Errorf("failed to marshal presets: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "tmp-presets-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, b.path); err != nil {
		return fmt.Errorf("failed to replace preset file: %w", err)
	}
	return nil
}

// mutate runs a read-modify-write cycle under the backend lock.
func (b *Backend) mutate(fn func(presets domain.PresetCollection, selected string) (domain.PresetCollection, string, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	presets, selected, err := b.load()
	if err != nil {
		return err
	}
	presets, selected, err = fn(presets, selected)
	if err != nil {
		return err
	}
	return b.write(presets, selected)
}

// GetPresets returns the collection in file order.
func (b *Backend) GetPresets(ctx context.Context) (domain.PresetCollection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	presets, _, err := b.load()
	return presets, err
}

// GetSelectedPreset returns the selected preset.
func (b *Backend) GetSelectedPreset(ctx context.Context) (domain.Preset, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	presets, selected, err := b.load()
	if err != nil {
		return domain.Preset{}, err
	}
	p, ok := presets.Find(selected)
	if !ok {
		return domain.Preset{}, fmt.Errorf("%w: selected %q", domain.ErrUnknownPreset, selected)
	}
	return p, nil
}

// SelectPreset persists the selection.
func (b *Backend) SelectPreset(ctx context.Context, preset domain.Preset) error {
	return b.mutate(func(presets domain.PresetCollection, _ string) (domain.PresetCollection, string, error) {
		if presets.Index(preset.ID) < 0 {
			return nil, "", fmt.Errorf("%w: %q", domain.ErrUnknownPreset, preset.ID)
		}
		return presets, preset.ID, nil
	})
}

// CreatePreset appends a user preset.
func (b *Backend) CreatePreset(ctx context.Context, draft ports.PresetDraft, selectAfterCreate bool) error {
	return b.mutate(func(presets domain.PresetCollection, selected string) (domain.PresetCollection, string, error) {
		id := draft.ID
		if id == "" {
			id = uuid.NewString()
		}
		if presets.Index(id) >= 0 {
			return nil, "", fmt.Errorf("%w: duplicate id %q", domain.ErrMalformedPreset, id)
		}
		presets = append(presets, domain.Preset{ID: id, Name: draft.Name, Gains: draft.Gains})
		if selectAfterCreate {
			selected = id
		}
		return presets, selected, nil
	})
}

// UpdatePreset replaces the gains of an existing preset.
func (b *Backend) UpdatePreset(ctx context.Context, preset domain.Preset, opts ports.UpdateOptions) error {
	return b.mutate(func(presets domain.PresetCollection, selected string) (domain.PresetCollection, string, error) {
		i := presets.Index(preset.ID)
		if i < 0 {
			return nil, "", fmt.Errorf("%w: %q", domain.ErrUnknownPreset, preset.ID)
		}
		presets[i].Gains = preset.Gains
		if !presets[i].IsDefault && preset.Name != "" {
			presets[i].Name = preset.Name
		}
		if opts.Select {
			selected = preset.ID
		}
		return presets, selected, nil
	})
}

// DeletePreset removes a user preset. Deleting the selected preset moves the
// selection to flat.
func (b *Backend) DeletePreset(ctx context.Context, preset domain.Preset) error {
	return b.mutate(func(presets domain.PresetCollection, selected string) (domain.PresetCollection, string, error) {
		stored, ok := presets.Find(preset.ID)
		if !ok {
			return nil, "", fmt.Errorf("%w: %q", domain.ErrUnknownPreset, preset.ID)
		}
		if stored.IsDefault {
			return nil, "", fmt.Errorf("%w: %q", domain.ErrCannotDeleteDefault, preset.ID)
		}
		if selected == preset.ID {
			selected = domain.FlatPresetID
		}
		return presets.Without(preset.ID), selected, nil
	})
}

// Subscribe watches the preset file and emits a presets notification followed
// by a selection notification each time it changes, whoever wrote it.
// Changes that leave the file malformed are logged and skipped.
func (b *Backend) Subscribe(ctx context.Context) (<-chan domain.Notification, error) {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure preset directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory: the atomic rename replaces the file's inode.
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch preset directory: %w", err)
	}

	out := make(chan domain.Notification, 16)
	go b.watch(ctx, watcher, out)
	return out, nil
}

func (b *Backend) watch(ctx context.Context, watcher *fsnotify.Watcher, out chan<- domain.Notification) {
	defer close(out)
	defer watcher.Close()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != b.path || event.Op == fsnotify.Chmod {
				continue
			}
			pending = time.After(b.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			b.logger.Warn("Preset file watcher error", "err", err)
		case <-pending:
			pending = nil
			b.mu.Lock()
			presets, selected, err := b.load()
			b.mu.Unlock()
			if err != nil {
				b.logger.Warn("Ignoring unreadable preset file change", "path", b.path, "err", err)
				continue
			}
			notes := []domain.Notification{domain.PresetsChanged(presets)}
			if p, ok := presets.Find(selected); ok {
				notes = append(notes, domain.SelectedChanged(p))
			}
			for _, n := range notes {
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

var (
	_ ports.Backend  = (*Backend)(nil)
	_ ports.Notifier = (*Backend)(nil)
)
