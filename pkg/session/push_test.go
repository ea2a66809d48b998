package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_PushedSelectionAnimates(t *testing.T) {
	s, _ := newSession(t, nil)
	ctx := context.Background()
	require.NoError(t, s.Sync(ctx))

	pushed := domain.Preset{ID: "remote-1", Name: "Remote", Gains: domain.GainMap{2, -1, 0.5}}
	s.HandleSelectedPresetChanged(ctx, pushed)

	selected, err := s.Selected()
	require.NoError(t, err)
	assert.Equal(t, "remote-1", selected.ID)
	assert.False(t, s.Settled())

	s.Engine().Advance(testDuration)
	assert.Equal(t, pushed.Gains, s.Displayed())
	assert.True(t, s.Settled())

	_, found := s.Presets().Find("remote-1")
	assert.True(t, found)
}

func TestSession_PushedSelectionSupersedesAnimation(t *testing.T) {
	s, _ := newSession(t, nil)
	ctx := context.Background()
	require.NoError(t, s.Sync(ctx))

	require.NoError(t, s.SelectPreset(ctx, "bass_boost"))
	s.Engine().Advance(testDuration / 2)

	treble, ok := domain.DefaultPresets().Find("treble_boost")
	require.True(t, ok)
	s.HandleSelectedPresetChanged(ctx, treble)

	s.Engine().Advance(testDuration)
	assert.Equal(t, treble.Gains, s.Displayed())
	assert.True(t, s.Settled())
}

func TestSession_LateEchoWinsUntilNextEcho(t *testing.T) {
	s, _ := newSession(t, nil)
	ctx := context.Background()
	require.NoError(t, s.Sync(ctx))

	require.NoError(t, s.SetGain(ctx, domain.BandBass, 1, true))
	older, err := s.Selected()
	require.NoError(t, err)
	require.NoError(t, s.SetGain(ctx, domain.BandBass, 4, true))
	newer, err := s.Selected()
	require.NoError(t, err)

	s.HandleSelectedPresetChanged(ctx, older)
	s.Engine().Advance(testDuration)
	assert.Equal(t, 1.0, s.Displayed().Get(domain.BandBass))

	s.HandleSelectedPresetChanged(ctx, newer)
	s.Engine().Advance(testDuration)
	assert.Equal(t, 4.0, s.Displayed().Get(domain.BandBass))
}

func TestSession_PushedCollectionWithoutSelectionFallsBackToFlat(t *testing.T) {
	s, _ := newSession(t, nil)
	ctx := context.Background()
	require.NoError(t, s.Sync(ctx))

	p, err := s.SavePreset(ctx, "Gone Soon")
	require.NoError(t, err)

	s.HandlePresetsChanged(ctx, domain.DefaultPresets())

	selected, err := s.Selected()
	require.NoError(t, err)
	assert.Equal(t, domain.FlatPresetID, selected.ID)
	_, found := s.Presets().Find(p.ID)
	assert.False(t, found)
}

func TestSession_MalformedPushesAreDropped(t *testing.T) {
	s, _ := newSession(t, nil)
	ctx := context.Background()
	require.NoError(t, s.Sync(ctx))
	before := s.Snapshot()

	assert.NotPanics(t, func() {
		s.HandleSelectedPresetChanged(ctx, domain.Preset{Name: "No Id"})
		s.HandlePresetsChanged(ctx, domain.PresetCollection{{ID: "x"}})
		s.Handle(ctx, domain.Notification{Type: domain.NotifySelectedChanged})
		s.Handle(ctx, domain.Notification{Type: "volume_changed"})
	})

	assert.Equal(t, before, s.Snapshot())
}

func TestSession_Listen(t *testing.T) {
	s, backend := newSession(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Sync(ctx))

	done := make(chan error, 1)
	go func() { done <- s.Listen(ctx, backend) }()

	vocal, ok := domain.DefaultPresets().Find("vocal_boost")
	require.True(t, ok)

	// The subscription starts asynchronously; keep pushing until it lands.
	require.Eventually(t, func() bool {
		backend.Push(domain.SelectedChanged(vocal))
		selected, err := s.Selected()
		return err == nil && selected.ID == "vocal_boost"
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}
