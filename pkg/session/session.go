package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/basiceq/internal/logging"
	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/aretw0/basiceq/pkg/ports"
	"github.com/aretw0/basiceq/pkg/presets"
	"github.com/aretw0/basiceq/pkg/transition"
)

// DefaultLockKey is the distributed lock key guarding mutations.
const DefaultLockKey = "basiceq:session"

// DefaultLockTTL bounds how long a crashed replica can hold the lock.
const DefaultLockTTL = 30 * time.Second

// animation identifies the in-flight transition for one band.
type animation struct {
	id uint64
	to float64
}

// Session is the equalizer state machine: it tracks the displayed band values
// and drives them towards the gains of the selected preset.
type Session struct {
	store  *presets.Store
	engine *transition.Engine[domain.Band]
	logger *slog.Logger
	hooks  domain.LifecycleHooks

	locker  ports.DistributedLocker
	lockKey string
	lockTTL time.Duration

	// opsMu serializes user operations.
	opsMu sync.Mutex
	// reconcileMu serializes planning and issuing animations.
	// Engine callbacks only ever take mu.
	reconcileMu sync.Mutex

	mu         sync.Mutex
	displayed  domain.GainMap
	animating  map[domain.Band]animation
	nextTicket uint64
	settled    bool

	observers *observers
}

// Option configures the Session.
type Option func(*Session)

// WithLogger configures a logger for the Session.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Session) {
		s.hooks = hooks
	}
}

// WithLocker enables distributed locking of mutations across replicas
// sharing one backend.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *Session) {
		s.locker = locker
	}
}

// WithLockKey overrides DefaultLockKey.
func WithLockKey(key string) Option {
	return func(s *Session) {
		if key != "" {
			s.lockKey = key
		}
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Session) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// New creates a Session. Displayed values start at zero and the session
// reports itself settled until the first Sync.
func New(store *presets.Store, engine *transition.Engine[domain.Band], opts ...Option) *Session {
	s := &Session{
		store:     store,
		engine:    engine,
		logger:    logging.NewNop(),
		lockKey:   DefaultLockKey,
		lockTTL:   DefaultLockTTL,
		animating: make(map[domain.Band]animation),
		settled:   true,
		observers: newObservers(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the preset store backing the session.
func (s *Session) Store() *presets.Store {
	return s.store
}

// Engine returns the transition engine animating the display.
func (s *Session) Engine() *transition.Engine[domain.Band] {
	return s.engine
}

// Sync fetches the collection and the selection from the backend and
// reconciles the display against the selected preset.
func (s *Session) Sync(ctx context.Context) error {
	return s.withLock(ctx, func(ctx context.Context) error {
		return s.sync(ctx)
	})
}

func (s *Session) sync(ctx context.Context) error {
	if err := s.store.Load(ctx); err != nil {
		s.backendError(ctx, "sync", err)
		return err
	}
	s.reconcile(ctx)
	s.notify()
	return nil
}

// SelectPreset makes the preset with the given id current, animates the display
// towards its gains and persists the selection. A failed persist is returned
// but the local selection stays.
func (s *Session) SelectPreset(ctx context.Context, id string) error {
	return s.withLock(ctx, func(ctx context.Context) error {
		return s.selectPreset(ctx, id)
	})
}

// SelectFlatPreset selects the flat preset.
func (s *Session) SelectFlatPreset(ctx context.Context) error {
	return s.SelectPreset(ctx, domain.FlatPresetID)
}

func (s *Session) selectPreset(ctx context.Context, id string) error {
	if !s.store.Loaded() {
		if err := s.sync(ctx); err != nil {
			return err
		}
	}
	preset, err := s.store.Preset(id)
	if err != nil {
		return err
	}
	if err := s.store.Select(id); err != nil {
		return err
	}
	s.reconcile(ctx)
	s.notify()

	if s.hooks.OnPresetSelected != nil {
		s.hooks.OnPresetSelected(ctx, &domain.PresetEvent{
			EventBase: domain.EventBase{Timestamp: time.Now()},
			PresetID:  preset.ID,
			Name:      preset.Name,
		})
	}

	if err := s.store.PersistSelection(ctx, preset); err != nil {
		s.backendError(ctx, "selectPreset", err)
		return err
	}
	return nil
}

// SetGain edits one band. The selected preset's gains are copied into the
// manual preset, which becomes selected. With transition set, the display jumps
// straight to the new value, as a slider being dragged does; otherwise it animates.
func (s *Session) SetGain(ctx context.Context, band domain.Band, gain float64, transition bool) error {
	if !band.Valid() {
		return fmt.Errorf("%w: %s", domain.ErrUnknownBand, band)
	}
	if err := domain.ValidateGain(gain); err != nil {
		return err
	}
	return s.withLock(ctx, func(ctx context.Context) error {
		return s.setGain(ctx, band, gain, transition)
	})
}

func (s *Session) setGain(ctx context.Context, band domain.Band, gain float64, transition bool) error {
	if !s.store.Loaded() {
		if err := s.sync(ctx); err != nil {
			return err
		}
	}
	selected, err := s.store.Selected()
	if err != nil {
		return err
	}
	manual, err := s.store.Preset(domain.ManualPresetID)
	if err != nil {
		return err
	}

	gains := manual.Gains
	if selected.ID != manual.ID {
		gains = selected.Gains
	}
	manual, err = s.store.Stage(domain.ManualPresetID, gains.With(band, gain), true)
	if err != nil {
		return err
	}

	if transition {
		s.jump(band, gain)
	} else {
		s.reconcile(ctx)
	}
	s.notify()

	if s.hooks.OnGainEdited != nil {
		s.hooks.OnGainEdited(ctx, &domain.GainEvent{
			EventBase:  domain.EventBase{Timestamp: time.Now()},
			Band:       band,
			Gain:       gain,
			Transition: transition,
		})
	}

	opts := ports.UpdateOptions{Select: true, Transition: transition}
	if err := s.store.Persist(ctx, manual, opts); err != nil {
		s.backendError(ctx, "updatePreset", err)
		return err
	}
	return nil
}

// SavePreset stores the selected preset's gains under a new name, selects the
// new preset and re-fetches the collection.
func (s *Session) SavePreset(ctx context.Context, name string) (domain.Preset, error) {
	var created domain.Preset
	err := s.withLock(ctx, func(ctx context.Context) error {
		if !s.store.Loaded() {
			if err := s.sync(ctx); err != nil {
				return err
			}
		}
		selected, err := s.store.Selected()
		if err != nil {
			return err
		}
		created, err = s.store.Create(ctx, name, selected.Gains, true)
		if err != nil {
			if errors.Is(err, domain.ErrBackendUnavailable) {
				s.backendError(ctx, "createPreset", err)
			}
			return err
		}

		if s.hooks.OnPresetSaved != nil {
			s.hooks.OnPresetSaved(ctx, &domain.PresetEvent{
				EventBase: domain.EventBase{Timestamp: time.Now()},
				PresetID:  created.ID,
				Name:      created.Name,
			})
		}
		return s.sync(ctx)
	})
	return created, err
}

// DeletePreset removes the selected preset and falls back to flat.
// It is a no-op when the selected preset is a default one.
func (s *Session) DeletePreset(ctx context.Context) error {
	return s.withLock(ctx, func(ctx context.Context) error {
		if !s.store.Loaded() {
			if err := s.sync(ctx); err != nil {
				return err
			}
		}
		selected, err := s.store.Selected()
		if err != nil {
			return err
		}
		if selected.IsDefault {
			s.logger.Debug("Ignoring delete of default preset", "preset_id", selected.ID)
			return nil
		}

		if err := s.store.Delete(ctx, selected.ID); err != nil {
			s.backendError(ctx, "deletePreset", err)
			return err
		}
		if s.hooks.OnPresetDeleted != nil {
			s.hooks.OnPresetDeleted(ctx, &domain.PresetEvent{
				EventBase: domain.EventBase{Timestamp: time.Now()},
				PresetID:  selected.ID,
				Name:      selected.Name,
			})
		}

		// The deleted id must never stay selected, even if the re-fetch fails.
		if err := s.store.Select(domain.FlatPresetID); err != nil {
			return err
		}
		syncErr := s.sync(ctx)
		return errors.Join(syncErr, s.selectPreset(ctx, domain.FlatPresetID))
	})
}

// Displayed returns the band values currently shown.
func (s *Session) Displayed() domain.GainMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayed
}

// Settled reports whether every band has reached its target.
func (s *Session) Settled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled
}

// Selected returns the selected preset.
func (s *Session) Selected() (domain.Preset, error) {
	return s.store.Selected()
}

// Presets returns the cached preset collection.
func (s *Session) Presets() domain.PresetCollection {
	return s.store.Presets()
}

// Snapshot returns the current observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{Displayed: s.displayed, Settled: s.settled}
	s.mu.Unlock()

	snap.Presets = s.store.Presets()
	if selected, err := s.store.Selected(); err == nil {
		snap.Selected = selected
	}
	return snap
}

// Subscribe returns a channel receiving a Snapshot after every state change,
// and a function that ends the subscription.
func (s *Session) Subscribe(buffer int) (<-chan Snapshot, func()) {
	return s.observers.subscribe(buffer)
}

// WaitSettled blocks until every band reached its target or ctx is done.
// Something must drive the engine meanwhile.
func (s *Session) WaitSettled(ctx context.Context) error {
	ch, cancel := s.Subscribe(1)
	defer cancel()
	for {
		if s.Settled() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

func (s *Session) notify() {
	if s.observers.empty() {
		return
	}
	if dropped := s.observers.broadcast(s.Snapshot()); dropped > 0 {
		s.logger.Debug("Observer buffer full, dropped snapshot", "count", dropped)
	}
}

// reconcile animates every band whose displayed value differs from the
// selected preset. Bands already heading to the right value keep going;
// bands already showing it have any stale animation canceled.
func (s *Session) reconcile(ctx context.Context) {
	s.reconcileMu.Lock()
	defer s.reconcileMu.Unlock()

	selected, err := s.store.Selected()
	if err != nil {
		return
	}
	target := selected.Gains

	type job struct {
		domain.GainDelta
		id uint64
	}
	var (
		jobs  []job
		stale []domain.Band
	)

	s.mu.Lock()
	wasSettled := s.settled
	deltas := domain.DiffGains(s.displayed, target)
	differs := make(map[domain.Band]bool, len(deltas))
	for _, d := range deltas {
		differs[d.Band] = true
		if inFlight, busy := s.animating[d.Band]; busy && inFlight.to == d.To {
			continue
		}
		s.nextTicket++
		s.animating[d.Band] = animation{id: s.nextTicket, to: d.To}
		jobs = append(jobs, job{GainDelta: d, id: s.nextTicket})
	}
	for band := range s.animating {
		if !differs[band] {
			delete(s.animating, band)
			stale = append(stale, band)
		}
	}
	s.settled = len(s.animating) == 0
	settledNow := s.settled && !wasSettled
	s.mu.Unlock()

	for _, band := range stale {
		v := target.Get(band)
		s.engine.Animate(band, v, v, nil, nil)
	}
	if settledNow {
		s.fireSettled(ctx)
	}
	if len(jobs) == 0 {
		return
	}

	bands := make([]domain.Band, 0, len(jobs))
	for _, j := range jobs {
		bands = append(bands, j.Band)
	}
	s.logger.Debug("Reconciling display", "preset_id", selected.ID, "bands", len(bands))
	if s.hooks.OnTransitionStart != nil {
		s.hooks.OnTransitionStart(ctx, &domain.TransitionEvent{
			EventBase: domain.EventBase{Timestamp: time.Now()},
			Bands:     bands,
		})
	}

	for _, j := range jobs {
		s.engine.Animate(j.Band, j.From, j.To, s.onStep(j.Band, j.id), s.onComplete(ctx, j.Band, j.id))
	}
}

// jump shows value on band at once, canceling any animation of that band.
func (s *Session) jump(band domain.Band, value float64) {
	s.reconcileMu.Lock()
	defer s.reconcileMu.Unlock()

	s.mu.Lock()
	wasSettled := s.settled
	delete(s.animating, band)
	s.displayed[band] = value
	s.settled = len(s.animating) == 0
	settledNow := s.settled && !wasSettled
	s.mu.Unlock()

	s.engine.Animate(band, value, value, nil, nil)
	if settledNow {
		s.fireSettled(context.Background())
	}
}

func (s *Session) onStep(band domain.Band, id uint64) func(float64) {
	return func(v float64) {
		s.mu.Lock()
		if s.animating[band].id != id {
			s.mu.Unlock()
			return
		}
		s.displayed[band] = v
		s.mu.Unlock()
		s.notify()
	}
}

func (s *Session) onComplete(ctx context.Context, band domain.Band, id uint64) func() {
	return func() {
		s.mu.Lock()
		if s.animating[band].id != id {
			s.mu.Unlock()
			return
		}
		delete(s.animating, band)
		settledNow := len(s.animating) == 0 && !s.settled
		if len(s.animating) == 0 {
			s.settled = true
		}
		s.mu.Unlock()

		if settledNow {
			s.fireSettled(ctx)
		}
		s.notify()
	}
}

func (s *Session) fireSettled(ctx context.Context) {
	s.logger.Debug("Display settled")
	if s.hooks.OnSettled != nil {
		s.hooks.OnSettled(context.WithoutCancel(ctx), &domain.TransitionEvent{
			EventBase: domain.EventBase{Timestamp: time.Now()},
		})
	}
}

func (s *Session) backendError(ctx context.Context, op string, err error) {
	s.logger.Warn("Backend call failed", "op", op, "err", err)
	if s.hooks.OnBackendError != nil {
		s.hooks.OnBackendError(ctx, &domain.BackendErrorEvent{
			EventBase: domain.EventBase{Timestamp: time.Now()},
			Op:        op,
			Err:       err,
		})
	}
}

// withLock runs fn while holding the session's operation lock and, when
// configured, the distributed lock.
func (s *Session) withLock(ctx context.Context, fn func(context.Context) error) error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, s.lockKey, s.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", s.lockKey,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
