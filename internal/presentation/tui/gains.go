package tui

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// GainRange is the dB span drawn on each side of the 0 dB centre line.
const GainRange = 12.0

// TerminalWidth returns the width of stdout, or fallback when it is not a terminal.
func TerminalWidth(fallback int) int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return fallback
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

// GainBar draws one band as a bar growing left (cut) or right (boost) from the centre.
// half is the number of cells on each side.
func GainBar(gain float64, half int) string {
	if half < 1 {
		half = 1
	}
	ratio := math.Max(-1, math.Min(1, gain/GainRange))
	cells := int(math.Round(math.Abs(ratio) * float64(half)))

	left := strings.Repeat(" ", half)
	right := strings.Repeat(" ", half)
	if ratio < 0 {
		left = strings.Repeat(" ", half-cells) + strings.Repeat("█", cells)
	} else if ratio > 0 {
		right = strings.Repeat("█", cells) + strings.Repeat(" ", half-cells)
	}
	return left + "│" + right
}

// RenderGains draws every band with its value. settled=false marks the
// display as mid-transition.
func RenderGains(gains domain.GainMap, settled bool, width int) string {
	p := termenv.ColorProfile()
	// label (8) + value (9) + separators
	half := (width - 20) / 2
	if half > 24 {
		half = 24
	}

	var b strings.Builder
	for _, band := range domain.Bands() {
		g := gains.Get(band)
		color := "#a78bfa"
		switch {
		case g > 0:
			color = "#34d399"
		case g < 0:
			color = "#fb7185"
		}
		bar := termenv.String(GainBar(g, half)).Foreground(p.Color(color))
		fmt.Fprintf(&b, "%-7s %s %8s\n", band, bar, domain.FormatGain(g))
	}
	if !settled {
		b.WriteString(termenv.String("~ transitioning").Faint().String())
		b.WriteString("\n")
	}
	return b.String()
}
