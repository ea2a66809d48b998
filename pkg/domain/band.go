package domain

import (
	"fmt"
	"strings"
)

// Band identifies one adjustable frequency segment of the equalizer.
// The set is closed and agreed with the audio engine.
type Band int

const (
	BandBass Band = iota
	BandMid
	BandTreble

	bandCount
)

// BandCount is the number of bands in the closed set.
const BandCount = int(bandCount)

var bandNames = [bandCount]string{
	BandBass:   "bass",
	BandMid:    "mid",
	BandTreble: "treble",
}

// Bands returns every band in display order, low to high frequency.
func Bands() []Band {
	out := make([]Band, BandCount)
	for i := range out {
		out[i] = Band(i)
	}
	return out
}

// Valid reports whether b belongs to the closed band set.
func (b Band) Valid() bool {
	return b >= 0 && b < bandCount
}

func (b Band) String() string {
	if !b.Valid() {
		return fmt.Sprintf("band(%d)", int(b))
	}
	return bandNames[b]
}

// ParseBand resolves a band by name (case-insensitive).
func ParseBand(name string) (Band, error) {
	name = strings.TrimSpace(name)
	for i, n := range bandNames {
		if strings.EqualFold(n, name) {
			return Band(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBand, name)
}

// MarshalText implements encoding.TextMarshaler.
func (b Band) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBand, int(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Band) UnmarshalText(text []byte) error {
	parsed, err := ParseBand(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
