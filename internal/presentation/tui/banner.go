package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the basiceq banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{" _               _", "#818cf8"},
		{"| |__   __ _ ___(_) ___  ___  __ _", "#a78bfa"},
		{"| '_ \\ / _` / __| |/ __|/ _ \\/ _` |", "#c084fc"},
		{"| |_) | (_| \\__ \\ | (__|  __/ (_| |", "#e879f9"},
		{"|_.__/ \\__,_|___/_|\\___|\\___|\\__, |", "#f472b6"},
		{"                                |_|", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, termenv.String("v"+v).Faint())
	}
	fmt.Fprintln(w)
}
