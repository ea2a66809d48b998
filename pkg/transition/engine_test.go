package transition_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/basiceq/pkg/transition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu        sync.Mutex
	steps     []float64
	completed int
}

func (r *recorder) step(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, v)
}

func (r *recorder) complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func (r *recorder) snapshot() ([]float64, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.steps...), r.completed
}

func TestEngine_SameValueCompletesImmediately(t *testing.T) {
	for _, x := range []float64{0, -12, 3.25, 24} {
		e := transition.New[string]()
		rec := &recorder{}

		e.Animate("bass", x, x, rec.step, rec.complete)

		steps, completed := rec.snapshot()
		assert.Empty(t, steps, "no intermediate steps for x=%v", x)
		assert.Equal(t, 1, completed)
		assert.Equal(t, 0, e.Active())
	}
}

func TestEngine_ConvergesMonotonicallyAndExactly(t *testing.T) {
	for name, easing := range map[string]transition.Easing{"linear": transition.Linear, "smoothstep": transition.Smoothstep} {
		t.Run(name, func(t *testing.T) {
			e := transition.New[string](transition.WithDuration(100*time.Millisecond), transition.WithEasing(easing))
			rec := &recorder{}

			e.Animate("mid", -6, 4.5, rec.step, rec.complete)
			require.Equal(t, 1, e.Active())

			for i := 0; i < 20 && e.Active() > 0; i++ {
				e.Advance(7 * time.Millisecond)
			}

			steps, completed := rec.snapshot()
			require.NotEmpty(t, steps)
			assert.Equal(t, 1, completed)
			assert.Equal(t, 4.5, steps[len(steps)-1], "final step must deliver the target exactly")
			for i := 1; i < len(steps); i++ {
				assert.GreaterOrEqual(t, steps[i], steps[i-1], "steps must be monotonic")
				assert.LessOrEqual(t, steps[i], 4.5, "no overshoot")
			}
		})
	}
}

func TestEngine_DecreasingTarget(t *testing.T) {
	e := transition.New[string](transition.WithDuration(50 * time.Millisecond))
	rec := &recorder{}

	e.Animate("treble", 3, -3, rec.step, rec.complete)
	for e.Active() > 0 {
		e.Advance(10 * time.Millisecond)
	}

	steps, completed := rec.snapshot()
	assert.Equal(t, 1, completed)
	assert.Equal(t, -3.0, steps[len(steps)-1])
	for i := 1; i < len(steps); i++ {
		assert.LessOrEqual(t, steps[i], steps[i-1])
	}
}

func TestEngine_SupersedeDropsOldTicket(t *testing.T) {
	e := transition.New[string](transition.WithDuration(100 * time.Millisecond))
	first := &recorder{}
	second := &recorder{}

	e.Animate("bass", 0, 6, first.step, first.complete)
	e.Animate("bass", 0, -6, second.step, second.complete)
	assert.Equal(t, 1, e.Active(), "at most one ticket per key")

	for e.Active() > 0 {
		e.Advance(10 * time.Millisecond)
	}

	firstSteps, firstCompleted := first.snapshot()
	assert.Empty(t, firstSteps)
	assert.Equal(t, 0, firstCompleted, "superseded onComplete must never fire")

	steps, completed := second.snapshot()
	assert.Equal(t, 1, completed)
	assert.Equal(t, -6.0, steps[len(steps)-1])
}

func TestEngine_SupersedeMidFlight(t *testing.T) {
	e := transition.New[string](transition.WithDuration(100 * time.Millisecond))
	first := &recorder{}
	second := &recorder{}

	e.Animate("bass", 0, 10, first.step, first.complete)
	e.Advance(50 * time.Millisecond)
	steps, _ := first.snapshot()
	require.Len(t, steps, 1)

	e.Animate("bass", steps[0], 2, second.step, second.complete)
	for e.Active() > 0 {
		e.Advance(25 * time.Millisecond)
	}

	_, firstCompleted := first.snapshot()
	assert.Equal(t, 0, firstCompleted)

	secondSteps, secondCompleted := second.snapshot()
	assert.Equal(t, 1, secondCompleted)
	assert.Equal(t, 2.0, secondSteps[len(secondSteps)-1])
}

func TestEngine_IndependentKeys(t *testing.T) {
	e := transition.New[string](transition.WithDuration(40 * time.Millisecond))
	bass := &recorder{}
	treble := &recorder{}

	e.Animate("bass", 0, 1, bass.step, bass.complete)
	e.Animate("treble", 0, -1, treble.step, treble.complete)
	assert.Equal(t, 2, e.Active())
	assert.True(t, e.Animating("bass"))

	for e.Active() > 0 {
		e.Advance(10 * time.Millisecond)
	}

	_, bassDone := bass.snapshot()
	_, trebleDone := treble.snapshot()
	assert.Equal(t, 1, bassDone)
	assert.Equal(t, 1, trebleDone)
	assert.False(t, e.Animating("bass"))
}

func TestEngine_ZeroDurationJumps(t *testing.T) {
	e := transition.New[string](transition.WithDuration(0))
	rec := &recorder{}

	e.Animate("mid", 1, 2, rec.step, rec.complete)

	steps, completed := rec.snapshot()
	assert.Equal(t, []float64{2}, steps)
	assert.Equal(t, 1, completed)
}

func TestEngine_CallbackMayAnimateAgain(t *testing.T) {
	e := transition.New[string](transition.WithDuration(20 * time.Millisecond))
	rec := &recorder{}

	e.Animate("bass", 0, 1, nil, func() {
		e.Animate("bass", 1, 2, rec.step, rec.complete)
	})
	for i := 0; i < 10 && (e.Active() > 0 || i == 0); i++ {
		e.Advance(10 * time.Millisecond)
	}

	steps, completed := rec.snapshot()
	assert.Equal(t, 1, completed)
	assert.Equal(t, 2.0, steps[len(steps)-1])
}

func TestEngine_Run(t *testing.T) {
	e := transition.New[string](
		transition.WithDuration(30*time.Millisecond),
		transition.WithFrameInterval(5*time.Millisecond),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()

	done := make(chan float64, 1)
	var last float64
	e.Animate("bass", 0, 3, func(v float64) { last = v }, func() { done <- last })

	select {
	case v := <-done:
		assert.Equal(t, 3.0, v)
	case <-time.After(2 * time.Second):
		t.Fatal("animation did not complete while running")
	}

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestEasingByName(t *testing.T) {
	easing, err := transition.EasingByName("LINEAR")
	require.NoError(t, err)
	assert.Equal(t, 0.25, easing(0.25))

	easing, err = transition.EasingByName("")
	require.NoError(t, err)
	assert.Equal(t, 0.5, easing(0.5))
	assert.Equal(t, 1.0, easing(2))

	_, err = transition.EasingByName("bounce")
	assert.Error(t, err)
}
