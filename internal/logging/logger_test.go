package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestReplaceAttr_RenamesError(t *testing.T) {
	a := replaceAttr(nil, slog.String("error", "boom"))
	assert.Equal(t, "err", a.Key)

	b := replaceAttr(nil, slog.String("preset_id", "flat"))
	assert.Equal(t, "preset_id", b.Key)
}
