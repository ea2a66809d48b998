package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/basiceq/pkg/adapters/memory"
	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/aretw0/basiceq/pkg/observability"
	"github.com/aretw0/basiceq/pkg/presets"
	"github.com/aretw0/basiceq/pkg/session"
	"github.com/aretw0/basiceq/pkg/transition"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordSessionActivity(t *testing.T) {
	metrics := observability.NewMetrics("basiceq")
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))
	require.NoError(t, metrics.Register(reg), "registering twice is tolerated")

	engine := transition.New[domain.Band](transition.WithDuration(50 * time.Millisecond))
	s := session.New(presets.NewStore(memory.NewBackend()), engine,
		session.WithLifecycleHooks(metrics.Hooks()))
	ctx := context.Background()
	require.NoError(t, s.Sync(ctx))

	require.NoError(t, s.SelectPreset(ctx, "bass_boost"))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Settled))
	engine.Advance(time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Settled))

	require.NoError(t, s.SetGain(ctx, domain.BandMid, 2, true))
	_, err := s.SavePreset(ctx, "Mine")
	require.NoError(t, err)
	require.NoError(t, s.DeletePreset(ctx))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Selections.WithLabelValues("bass_boost")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Selections.WithLabelValues("flat")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GainEdits.WithLabelValues("mid", "direct")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Saves))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Deletes))
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.Transitions), 1.0)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.TransitionDuration))
}

func TestMetrics_BackendErrors(t *testing.T) {
	metrics := observability.NewMetrics("basiceq")
	hooks := metrics.Hooks()

	hooks.OnBackendError(context.Background(), &domain.BackendErrorEvent{Op: "selectPreset", Err: errors.New("boom")})
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BackendErrors.WithLabelValues("selectPreset")))
}

func TestComposeHooks(t *testing.T) {
	var order []string
	a := domain.LifecycleHooks{
		OnPresetSaved: func(context.Context, *domain.PresetEvent) { order = append(order, "a") },
	}
	b := domain.LifecycleHooks{
		OnPresetSaved: func(context.Context, *domain.PresetEvent) { order = append(order, "b") },
		OnSettled:     func(context.Context, *domain.TransitionEvent) { order = append(order, "settled") },
	}

	hooks := observability.ComposeHooks(a, domain.LifecycleHooks{}, b)
	hooks.OnPresetSaved(context.Background(), &domain.PresetEvent{})
	hooks.OnSettled(context.Background(), &domain.TransitionEvent{})

	assert.Equal(t, []string{"a", "b", "settled"}, order)
	assert.Nil(t, hooks.OnBackendError)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	hooks := observability.LogHooks(logger)
	hooks.OnGainEdited(context.Background(), &domain.GainEvent{Band: domain.BandTreble, Gain: 1.5})

	assert.Contains(t, buf.String(), `"msg":"gain_edited"`)
	assert.Contains(t, buf.String(), `"band":"treble"`)
	assert.Contains(t, buf.String(), `"gain":"+1.5dB"`)
}
