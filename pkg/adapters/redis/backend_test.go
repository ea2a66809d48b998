package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/basiceq/pkg/adapters/redis"
	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/aretw0/basiceq/pkg/ports"
	"github.com/aretw0/basiceq/pkg/presets"
	"github.com/aretw0/basiceq/pkg/session"
	"github.com/aretw0/basiceq/pkg/transition"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisBackend_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunBackendContract(t, redis.NewFromClient(client))
}

func TestRedisBackend_NotifierContract(t *testing.T) {
	_, client := newClient(t)
	b := redis.NewFromClient(client)
	ports.RunNotifierContract(t, b, b)
}

func TestRedisBackend_Prefix(t *testing.T) {
	mr, client := newClient(t)
	b := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	presets, err := b.GetPresets(ctx)
	require.NoError(t, err)
	assert.Len(t, presets, len(domain.DefaultPresets()))

	assert.True(t, mr.Exists("custom:app:presets"), "Expected hash with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:order"), "Expected order index with custom prefix to exist")
	selected, err := mr.Get("custom:app:selected")
	require.NoError(t, err)
	assert.Equal(t, domain.FlatPresetID, selected)
}

func TestRedisBackend_SeedOnlyOnce(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()

	first := redis.NewFromClient(client)
	require.NoError(t, first.CreatePreset(ctx, ports.PresetDraft{ID: "mine", Name: "Mine"}, true))

	// A second replica must not reseed or reset the selection.
	second := redis.NewFromClient(client, redis.WithSeed(domain.PresetCollection{
		{ID: domain.FlatPresetID, Name: "Other Flat", IsDefault: true},
	}))
	presets, err := second.GetPresets(ctx)
	require.NoError(t, err)
	assert.Len(t, presets, len(domain.DefaultPresets())+1)
	assert.Equal(t, "mine", presets[len(presets)-1].ID)

	selected, err := second.GetSelectedPreset(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mine", selected.ID)
}

func TestRedisBackend_DeleteSelectedFallsBackToFlat(t *testing.T) {
	_, client := newClient(t)
	b := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, b.CreatePreset(ctx, ports.PresetDraft{ID: "tmp", Name: "Tmp"}, true))
	require.NoError(t, b.DeletePreset(ctx, domain.Preset{ID: "tmp"}))

	selected, err := b.GetSelectedPreset(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.FlatPresetID, selected.ID)
}

func TestRedisBackend_GeneratesIDs(t *testing.T) {
	_, client := newClient(t)
	b := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, b.CreatePreset(ctx, ports.PresetDraft{Name: "No ID"}, false))
	presets, err := b.GetPresets(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, presets[len(presets)-1].ID)
}

func TestRedisBackend_Unavailable(t *testing.T) {
	mr, client := newClient(t)
	store := presets.NewStore(redis.NewFromClient(client))
	mr.Close()

	err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestRedisBackend_SessionsShareState(t *testing.T) {
	_, client := newClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	newSession := func() *session.Session {
		b := redis.NewFromClient(client)
		engine := transition.New[domain.Band](transition.WithDuration(0))
		return session.New(presets.NewStore(b), engine,
			session.WithLocker(redis.NewLocker(client, redis.DefaultPrefix)))
	}
	a, b := newSession(), newSession()
	require.NoError(t, a.Sync(ctx))
	require.NoError(t, b.Sync(ctx))

	go func() { _ = b.Listen(ctx, redis.NewFromClient(client)) }()
	// Give the subscription time to register.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, a.SetGain(ctx, domain.BandBass, 5, false))

	assert.Eventually(t, func() bool {
		selected, err := b.Selected()
		return err == nil && selected.ID == domain.ManualPresetID && selected.Gains.Get(domain.BandBass) == 5
	}, 2*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool {
		return b.Displayed().Get(domain.BandBass) == 5
	}, 2*time.Second, 20*time.Millisecond)
}
