package basiceq

import (
	"log/slog"
	"time"

	"github.com/aretw0/basiceq/internal/logging"
	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/aretw0/basiceq/pkg/ports"
	"github.com/aretw0/basiceq/pkg/presets"
	"github.com/aretw0/basiceq/pkg/session"
	"github.com/aretw0/basiceq/pkg/transition"
)

// Equalizer is the high-level entry point for the library: an Equalizer
// Session wired to its Preset Store and Transition Engine.
type Equalizer = session.Session

type config struct {
	logger         *slog.Logger
	hooks          domain.LifecycleHooks
	allowDuplicate bool
	idGenerator    func() string
	transitionOpts []transition.Option
	sessionOpts    []session.Option
}

// Option defines a functional option for configuring the Equalizer.
type Option func(*config)

// WithLogger sets a custom structured logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *config) {
		c.hooks = hooks
	}
}

// WithDuration sets the transition length. Zero disables animation.
func WithDuration(d time.Duration) Option {
	return func(c *config) {
		c.transitionOpts = append(c.transitionOpts, transition.WithDuration(d))
	}
}

// WithFrameInterval sets the animation tick period.
func WithFrameInterval(d time.Duration) Option {
	return func(c *config) {
		c.transitionOpts = append(c.transitionOpts, transition.WithFrameInterval(d))
	}
}

// WithEasing sets the animation curve.
func WithEasing(easing transition.Easing) Option {
	return func(c *config) {
		c.transitionOpts = append(c.transitionOpts, transition.WithEasing(easing))
	}
}

// WithAllowDuplicateNames lets user presets share a name.
func WithAllowDuplicateNames(allow bool) Option {
	return func(c *config) {
		c.allowDuplicate = allow
	}
}

// WithIDGenerator replaces the preset id generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *config) {
		c.idGenerator = fn
	}
}

// WithLocker serializes mutations across replicas sharing the backend.
func WithLocker(locker ports.DistributedLocker, key string, ttl time.Duration) Option {
	return func(c *config) {
		c.sessionOpts = append(c.sessionOpts, session.WithLocker(locker))
		if key != "" {
			c.sessionOpts = append(c.sessionOpts, session.WithLockKey(key))
		}
		if ttl > 0 {
			c.sessionOpts = append(c.sessionOpts, session.WithLockTTL(ttl))
		}
	}
}

// New wires a Preset Store over backend, a Transition Engine and the
// Equalizer Session driving both. Call Sync to load the backend state and
// drive the engine with Engine().Run.
func New(backend ports.Backend, opts ...Option) *Equalizer {
	c := &config{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}

	storeOpts := []presets.Option{
		presets.WithLogger(c.logger),
		presets.WithAllowDuplicateNames(c.allowDuplicate),
	}
	if c.idGenerator != nil {
		storeOpts = append(storeOpts, presets.WithIDGenerator(c.idGenerator))
	}
	store := presets.NewStore(backend, storeOpts...)
	engine := transition.New[domain.Band](c.transitionOpts...)

	sessionOpts := append([]session.Option{
		session.WithLogger(c.logger),
		session.WithLifecycleHooks(c.hooks),
	}, c.sessionOpts...)
	return session.New(store, engine, sessionOpts...)
}
