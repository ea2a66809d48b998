package transition

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultDuration is how long a full transition takes.
	DefaultDuration = 300 * time.Millisecond
	// DefaultFrameInterval is the tick period used by Run (about 60 frames per second).
	DefaultFrameInterval = time.Second / 60
)

// Option configures an Engine.
type Option func(*settings)

type settings struct {
	duration time.Duration
	frame    time.Duration
	easing   Easing
}

// WithDuration sets the length of every transition.
// A duration <= 0 makes transitions jump to the target in a single step.
func WithDuration(d time.Duration) Option {
	return func(s *settings) {
		s.duration = d
	}
}

// WithFrameInterval sets the tick period used by Run.
func WithFrameInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.frame = d
		}
	}
}

// WithEasing sets the interpolation curve.
func WithEasing(easing Easing) Option {
	return func(s *settings) {
		if easing != nil {
			s.easing = easing
		}
	}
}

// ticket is one in-flight animation.
type ticket[K comparable] struct {
	key        K
	from, to   float64
	elapsed    time.Duration
	onStep     func(float64)
	onComplete func()
	canceled   bool
}

// Engine schedules independent animations, at most one per key.
// Safe for concurrent use. Callbacks run without internal locks held,
// so they may call Animate again.
type Engine[K comparable] struct {
	settings

	advanceMu  sync.Mutex
	mu         sync.Mutex
	tickets    []*ticket[K]
	delivering []*ticket[K]
	wake       chan struct{}
}

// New creates an Engine keyed by K.
func New[K comparable](opts ...Option) *Engine[K] {
	e := &Engine[K]{
		settings: settings{
			duration: DefaultDuration,
			frame:    DefaultFrameInterval,
			easing:   Smoothstep,
		},
		wake: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(&e.settings)
	}
	return e
}

// Duration returns the configured transition length.
func (e *Engine[K]) Duration() time.Duration {
	return e.duration
}

// Animate starts moving key from `from` to `to`, superseding any animation in flight
// for the same key. onStep receives intermediate values converging monotonically on
// `to`; the last step delivers `to` exactly, then onComplete fires once.
// If from == to, onComplete fires immediately with no steps.
func (e *Engine[K]) Animate(key K, from, to float64, onStep func(float64), onComplete func()) {
	e.mu.Lock()
	e.supersede(key)
	if from == to || e.duration <= 0 {
		e.mu.Unlock()
		if from != to && onStep != nil {
			onStep(to)
		}
		if onComplete != nil {
			onComplete()
		}
		return
	}
	e.tickets = append(e.tickets, &ticket[K]{
		key:        key,
		from:       from,
		to:         to,
		onStep:     onStep,
		onComplete: onComplete,
	})
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// supersede cancels the ticket for key, including a finished ticket whose
// callbacks have not been delivered yet. Caller must hold e.mu.
func (e *Engine[K]) supersede(key K) {
	for _, t := range e.delivering {
		if t.key == key {
			t.canceled = true
		}
	}
	for i, t := range e.tickets {
		if t.key == key {
			t.canceled = true
			e.tickets = append(e.tickets[:i], e.tickets[i+1:]...)
			return
		}
	}
}

// Active returns the number of animations in flight.
func (e *Engine[K]) Active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tickets)
}

// Animating reports whether key has an animation in flight.
func (e *Engine[K]) Animating(key K) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.tickets {
		if t.key == key {
			return true
		}
	}
	return false
}

type delivery[K comparable] struct {
	ticket *ticket[K]
	value  float64
	done   bool
}

// Advance moves every animation forward by dt and delivers the resulting steps.
func (e *Engine[K]) Advance(dt time.Duration) {
	if dt < 0 {
		dt = 0
	}

	e.advanceMu.Lock()
	defer e.advanceMu.Unlock()

	e.mu.Lock()
	deliveries := make([]delivery[K], 0, len(e.tickets))
	remaining := make([]*ticket[K], 0, len(e.tickets))
	for _, t := range e.tickets {
		t.elapsed += dt
		progress := float64(t.elapsed) / float64(e.duration)
		d := delivery[K]{ticket: t}
		if progress >= 1 {
			d.value = t.to
			d.done = true
			e.delivering = append(e.delivering, t)
		} else {
			d.value = t.from + (t.to-t.from)*e.easing(progress)
			remaining = append(remaining, t)
		}
		deliveries = append(deliveries, d)
	}
	e.tickets = remaining
	e.mu.Unlock()

	for _, d := range deliveries {
		// A newer Animate call may have superseded the ticket since the lock was released.
		if e.canceled(d.ticket) {
			continue
		}
		if d.ticket.onStep != nil {
			d.ticket.onStep(d.value)
		}
		if d.done && d.ticket.onComplete != nil && !e.canceled(d.ticket) {
			d.ticket.onComplete()
		}
	}

	e.mu.Lock()
	e.delivering = nil
	e.mu.Unlock()
}

func (e *Engine[K]) canceled(t *ticket[K]) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return t.canceled
}

// Run drives the engine from a ticker until ctx is done.
// It sleeps while no animation is in flight.
func (e *Engine[K]) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.frame)
	defer ticker.Stop()

	last := time.Now()
	for {
		if e.Active() == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-e.wake:
				ticker.Reset(e.frame)
				last = time.Now()
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.wake:
			// New work while already running; keep ticking.
		case now := <-ticker.C:
			e.Advance(now.Sub(last))
			last = now
		}
	}
}
