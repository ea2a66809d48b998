package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/basiceq"
	"github.com/aretw0/basiceq/internal/config"
	"github.com/aretw0/basiceq/pkg/adapters/file"
	loamAdapter "github.com/aretw0/basiceq/pkg/adapters/loam"
	"github.com/aretw0/basiceq/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/basiceq/pkg/adapters/redis"
	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/aretw0/basiceq/pkg/observability"
	"github.com/aretw0/basiceq/pkg/ports"
	"github.com/aretw0/basiceq/pkg/transition"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// App bundles a configured Equalizer Session with the backend it talks to.
type App struct {
	Config   config.Config
	Session  *basiceq.Equalizer
	Backend  ports.Backend
	Notifier ports.Notifier
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Logger   *slog.Logger

	closers []func() error
	wg      sync.WaitGroup
}

// NewApp builds the backend named by cfg and wires the session over it.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	seed, err := loadSeed(ctx, cfg.Presets.Library)
	if err != nil {
		return nil, err
	}

	opts := []basiceq.Option{
		basiceq.WithLogger(logger),
		basiceq.WithDuration(cfg.Transition.Duration),
		basiceq.WithFrameInterval(cfg.Transition.FrameInterval),
		basiceq.WithAllowDuplicateNames(cfg.Presets.AllowDuplicateNames),
	}
	easing, err := transition.EasingByName(cfg.Transition.Easing)
	if err != nil {
		return nil, err
	}
	opts = append(opts, basiceq.WithEasing(easing))

	switch cfg.Backend.Kind {
	case config.BackendMemory, "":
		b := memory.NewBackend(memory.WithPresets(seed))
		app.Backend, app.Notifier = b, b
	case config.BackendFile:
		b := file.New(cfg.Backend.File.Path, file.WithSeed(seed), file.WithLogger(logger))
		app.Backend, app.Notifier = b, b
	case config.BackendRedis:
		rc := cfg.Backend.Redis
		client := redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
		b := redisAdapter.NewFromClient(client,
			redisAdapter.WithPrefix(rc.Prefix),
			redisAdapter.WithSeed(seed),
			redisAdapter.WithLogger(logger),
		)
		app.Backend, app.Notifier = b, b
		app.closers = append(app.closers, b.Close)
		if rc.Lock {
			opts = append(opts, basiceq.WithLocker(redisAdapter.NewLocker(client, rc.Prefix), "", rc.LockTTL))
		}
	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.Backend.Kind)
	}

	hooks := []domain.LifecycleHooks{observability.LogHooks(logger)}
	if cfg.Metrics.Enabled {
		app.Metrics = observability.NewMetrics(cfg.Metrics.Namespace)
		app.Registry = prometheus.NewRegistry()
		if err := app.Metrics.Register(app.Registry); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		hooks = append(hooks, app.Metrics.Hooks())
	}
	opts = append(opts, basiceq.WithLifecycleHooks(observability.ComposeHooks(hooks...)))

	app.Session = basiceq.New(app.Backend, opts...)
	logger.Debug("App initialized", "backend", cfg.Backend.Kind, "presets", len(seed))
	return app, nil
}

// loadSeed returns the built-in presets, extended by the library at dir when set.
func loadSeed(ctx context.Context, dir string) (domain.PresetCollection, error) {
	if dir == "" {
		return domain.DefaultPresets(), nil
	}
	lib, err := loamAdapter.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open preset library: %w", err)
	}
	seed, err := lib.Seed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset library: %w", err)
	}
	return seed, nil
}

// Start syncs the session, then drives the Transition Engine and applies
// backend pushes in the background until ctx is done.
func (a *App) Start(ctx context.Context) error {
	if err := a.Session.Sync(ctx); err != nil {
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.Session.Engine().Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.Logger.Error("Transition engine stopped", "err", err)
		}
	}()

	if a.Notifier != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.Session.Listen(ctx, a.Notifier); err != nil {
				a.Logger.Warn("Backend notifications stopped", "err", err)
			}
		}()
	}
	return nil
}

// Close waits for background loops (their ctx must be done) and releases the backend.
func (a *App) Close() error {
	a.wg.Wait()
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
