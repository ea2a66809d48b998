package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/basiceq/internal/logging"
	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/aretw0/basiceq/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the backend writes.
const DefaultPrefix = "basiceq:"

// Backend implements ports.Backend and ports.Notifier on Redis.
//
// Layout under the prefix:
//
//	presets   HASH   id -> preset JSON
//	order     ZSET   id scored by insertion sequence
//	seq       STRING insertion counter
//	selected  STRING selected preset id
//	seeded    STRING set once the defaults were written
//	events    pub/sub channel carrying notification JSON
type Backend struct {
	client *backend.Client
	prefix string
	seed   domain.PresetCollection
	logger *slog.Logger
}

// Option configures the Backend.
type Option func(*Backend)

// WithPrefix sets a custom key prefix.
func WithPrefix(prefix string) Option {
	return func(b *Backend) {
		b.prefix = prefix
	}
}

// WithSeed replaces the presets written into an empty database.
func WithSeed(presets domain.PresetCollection) Option {
	return func(b *Backend) {
		b.seed = presets.Clone()
	}
}

// WithLogger configures a logger for the Backend.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// New connects to the Redis server at addr.
func New(addr string, opts ...Option) *Backend {
	client := backend.NewClient(&backend.Options{Addr: addr})
	return NewFromClient(client, opts...)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Backend {
	b := &Backend{
		client: client,
		prefix: DefaultPrefix,
		seed:   domain.DefaultPresets(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (b *Backend) Client() *backend.Client {
	return b.client
}

// Ping checks connectivity.
func (b *Backend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (b *Backend) Close() error {
	return b.client.Close()
}

func (b *Backend) key(name string) string {
	return b.prefix + name
}

// ensureSeeded writes the seed collection the first time any replica touches
// an empty database.
func (b *Backend) ensureSeeded(ctx context.Context) error {
	won, err := b.client.SetNX(ctx, b.key("seeded"), "1", 0).Result()
	if err != nil {
		return fmt.Errorf("redis error seeding presets: %w", err)
	}
	if !won {
		return nil
	}

	_, err = b.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		for i, p := range b.seed {
			data, err := json.Marshal(p)
			if err != nil {
				return err
			}
			pipe.HSetNX(ctx, b.key("presets"), p.ID, data)
			pipe.ZAddNX(ctx, b.key("order"), backend.Z{Score: float64(i + 1), Member: p.ID})
		}
		// User presets are scored after the seed.
		pipe.IncrBy(ctx, b.key("seq"), int64(len(b.seed)))
		pipe.SetNX(ctx, b.key("selected"), domain.FlatPresetID, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis error seeding presets: %w", err)
	}
	b.logger.Info("Seeded preset collection", "count", len(b.seed), "prefix", b.prefix)
	return nil
}

// GetPresets returns the collection in insertion order.
func (b *Backend) GetPresets(ctx context.Context) (domain.PresetCollection, error) {
	if err := b.ensureSeeded(ctx); err != nil {
		return nil, err
	}
	return b.loadPresets(ctx)
}

func (b *Backend) loadPresets(ctx context.Context) (domain.PresetCollection, error) {
	ids, err := b.client.ZRange(ctx, b.key("order"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error listing presets: %w", err)
	}
	if len(ids) == 0 {
		return domain.PresetCollection{}, nil
	}

	values, err := b.client.HMGet(ctx, b.key("presets"), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error loading presets: %w", err)
	}

	out := make(domain.PresetCollection, 0, len(ids))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a body: a delete raced with this read.
			b.logger.Debug("Skipping dangling preset index entry", "preset_id", ids[i])
			continue
		}
		var p domain.Preset
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("%w: preset %q: %w", domain.ErrMalformedPreset, ids[i], err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (b *Backend) loadPreset(ctx context.Context, id string) (domain.Preset, error) {
	raw, err := b.client.HGet(ctx, b.key("presets"), id).Result()
	if errors.Is(err, backend.Nil) {
		return domain.Preset{}, fmt.Errorf("%w: %q", domain.ErrUnknownPreset, id)
	}
	if err != nil {
		return domain.Preset{}, fmt.Errorf("redis error loading preset: %w", err)
	}
	var p domain.Preset
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domain.Preset{}, fmt.Errorf("%w: preset %q: %w", domain.ErrMalformedPreset, id, err)
	}
	return p, nil
}

// GetSelectedPreset returns the selected preset.
func (b *Backend) GetSelectedPreset(ctx context.Context) (domain.Preset, error) {
	if err := b.ensureSeeded(ctx); err != nil {
		return domain.Preset{}, err
	}
	id, err := b.client.Get(ctx, b.key("selected")).Result()
	if errors.Is(err, backend.Nil) {
		id = domain.FlatPresetID
	} else if err != nil {
		return domain.Preset{}, fmt.Errorf("redis error loading selection: %w", err)
	}
	return b.loadPreset(ctx, id)
}

// SelectPreset persists the selection.
func (b *Backend) SelectPreset(ctx context.Context, preset domain.Preset) error {
	stored, err := b.loadPreset(ctx, preset.ID)
	if err != nil {
		return err
	}
	if err := b.client.Set(ctx, b.key("selected"), stored.ID, 0).Err(); err != nil {
		return fmt.Errorf("redis error saving selection: %w", err)
	}
	b.publish(ctx, domain.SelectedChanged(stored))
	return nil
}

// CreatePreset appends a user preset.
func (b *Backend) CreatePreset(ctx context.Context, draft ports.PresetDraft, selectAfterCreate bool) error {
	if err := b.ensureSeeded(ctx); err != nil {
		return err
	}
	id := draft.ID
	if id == "" {
		id = uuid.NewString()
	}
	preset := domain.Preset{ID: id, Name: draft.Name, Gains: draft.Gains}
	data, err := json.Marshal(preset)
	if err != nil {
		return fmt.Errorf("failed to marshal preset: %w", err)
	}

	added, err := b.client.HSetNX(ctx, b.key("presets"), id, data).Result()
	if err != nil {
		return fmt.Errorf("redis error creating preset: %w", err)
	}
	if !added {
		return fmt.Errorf("%w: duplicate id %q", domain.ErrMalformedPreset, id)
	}

	seq, err := b.client.Incr(ctx, b.key("seq")).Result()
	if err != nil {
		return fmt.Errorf("redis error creating preset: %w", err)
	}
	_, err = b.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.ZAdd(ctx, b.key("order"), backend.Z{Score: float64(seq), Member: id})
		if selectAfterCreate {
			pipe.Set(ctx, b.key("selected"), id, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis error creating preset: %w", err)
	}

	b.publishCollection(ctx)
	if selectAfterCreate {
		b.publish(ctx, domain.SelectedChanged(preset))
	}
	return nil
}

// UpdatePreset replaces the gains of an existing preset.
func (b *Backend) UpdatePreset(ctx context.Context, preset domain.Preset, opts ports.UpdateOptions) error {
	stored, err := b.loadPreset(ctx, preset.ID)
	if err != nil {
		return err
	}
	stored.Gains = preset.Gains
	if !stored.IsDefault && preset.Name != "" {
		stored.Name = preset.Name
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal preset: %w", err)
	}

	_, err = b.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.HSet(ctx, b.key("presets"), stored.ID, data)
		if opts.Select {
			pipe.Set(ctx, b.key("selected"), stored.ID, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis error updating preset: %w", err)
	}

	b.publishCollection(ctx)
	if opts.Select {
		b.publish(ctx, domain.SelectedChanged(stored))
	}
	return nil
}

// DeletePreset removes a user preset. Deleting the selected preset moves the
// selection to flat.
func (b *Backend) DeletePreset(ctx context.Context, preset domain.Preset) error {
	stored, err := b.loadPreset(ctx, preset.ID)
	if err != nil {
		return err
	}
	if stored.IsDefault {
		return fmt.Errorf("%w: %q", domain.ErrCannotDeleteDefault, preset.ID)
	}

	selected, err := b.client.Get(ctx, b.key("selected")).Result()
	if err != nil && !errors.Is(err, backend.Nil) {
		return fmt.Errorf("redis error loading selection: %w", err)
	}

	_, err = b.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.HDel(ctx, b.key("presets"), stored.ID)
		pipe.ZRem(ctx, b.key("order"), stored.ID)
		if selected == stored.ID {
			pipe.Set(ctx, b.key("selected"), domain.FlatPresetID, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis error deleting preset: %w", err)
	}

	b.publishCollection(ctx)
	return nil
}

func (b *Backend) publishCollection(ctx context.Context) {
	presets, err := b.loadPresets(ctx)
	if err != nil {
		b.logger.Warn("Failed to load presets for notification", "err", err)
		return
	}
	b.publish(ctx, domain.PresetsChanged(presets))
}

// publish is best effort: the write already succeeded.
func (b *Backend) publish(ctx context.Context, n domain.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		b.logger.Error("Failed to encode notification", "type", n.Type, "err", err)
		return
	}
	if err := b.client.Publish(ctx, b.key("events"), data).Err(); err != nil {
		b.logger.Warn("Failed to publish notification", "type", n.Type, "err", err)
	}
}

// Subscribe listens on the events channel until ctx is done.
// Undecodable messages are logged and skipped.
func (b *Backend) Subscribe(ctx context.Context) (<-chan domain.Notification, error) {
	pubsub := b.client.Subscribe(ctx, b.key("events"))
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis error subscribing: %w", err)
	}

	out := make(chan domain.Notification, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var n domain.Notification
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					b.logger.Warn("Dropping undecodable notification", "err", err)
					continue
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

var (
	_ ports.Backend  = (*Backend)(nil)
	_ ports.Notifier = (*Backend)(nil)
)
