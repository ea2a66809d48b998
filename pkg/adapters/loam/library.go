package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/aretw0/loam"
	"github.com/mitchellh/mapstructure"
)

// Library reads factory presets from a Loam repository of markdown, json or
// yaml documents. Every preset it yields is marked default.
type Library struct {
	Repo *loam.TypedRepository[PresetMetadata]
}

// New wraps an existing typed repository.
func New(repo *loam.TypedRepository[PresetMetadata]) *Library {
	return &Library{
		Repo: repo,
	}
}

// Open initializes a read-only Loam repository at path.
func Open(path string) (*Library, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	// Strict mode keeps numbers as json.Number instead of float64.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[PresetMetadata](repo)), nil
}

// Get returns the preset stored under id, with or without file extension.
func (l *Library) Get(ctx context.Context, id string) (domain.Preset, error) {
	doc, err := l.Repo.Get(ctx, id)
	if err != nil {
		return domain.Preset{}, fmt.Errorf("%w: loam get failed for %s: %w", domain.ErrUnknownPreset, id, err)
	}
	return toPreset(doc.ID, doc.Data)
}

// List returns every preset in the library ordered by id.
// Two documents resolving to the same id are an error.
func (l *Library) List(ctx context.Context) (domain.PresetCollection, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string, len(docs))
	out := make(domain.PresetCollection, 0, len(docs))
	for _, doc := range docs {
		p, err := toPreset(doc.ID, doc.Data)
		if err != nil {
			return nil, err
		}
		if existingPath, ok := seen[p.ID]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", p.ID, existingPath, doc.ID)
		}
		seen[p.ID] = doc.ID
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Seed returns the built-in presets followed by the library presets.
// Library entries replace factory presets with the same id; flat and manual
// cannot be overridden.
func (l *Library) Seed(ctx context.Context) (domain.PresetCollection, error) {
	library, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	seed := domain.DefaultPresets()
	for _, p := range library {
		switch i := seed.Index(p.ID); {
		case p.ID == domain.FlatPresetID || p.ID == domain.ManualPresetID:
			continue
		case i >= 0:
			seed[i] = p
		default:
			seed = append(seed, p)
		}
	}
	return seed, nil
}

// Watch emits the id of every library document that changes.
func (l *Library) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

func toPreset(docID string, meta PresetMetadata) (domain.Preset, error) {
	rawID := meta.ID
	if rawID == "" {
		rawID = docID
	}
	id := trimExtension(rawID)

	name := strings.TrimSpace(meta.Name)
	if name == "" {
		name = id
	}

	var values map[string]float64
	if err := mapstructure.WeakDecode(meta.Gains, &values); err != nil {
		return domain.Preset{}, fmt.Errorf("%w: library preset %q: %w", domain.ErrMalformedPreset, id, err)
	}
	gains, err := domain.GainsFromMap(values)
	if err != nil {
		return domain.Preset{}, fmt.Errorf("library preset %q: %w", id, err)
	}

	return domain.Preset{ID: id, Name: name, Gains: gains, IsDefault: true}, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
