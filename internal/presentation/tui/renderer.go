package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// A width <= 0 lets glamour pick its default word wrap.
func NewRenderer(width int) func(string) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// PresetsMarkdown lays the presets out as a markdown table, marking the selected one.
func PresetsMarkdown(presets domain.PresetCollection, selectedID string) string {
	var b strings.Builder
	b.WriteString("| | Id | Name |")
	for _, band := range domain.Bands() {
		fmt.Fprintf(&b, " %s |", title(band.String()))
	}
	b.WriteString(" Kind |\n|---|---|---|")
	for range domain.Bands() {
		b.WriteString("---:|")
	}
	b.WriteString("---|\n")

	for _, p := range presets {
		mark := ""
		if p.ID == selectedID {
			mark = "▶"
		}
		fmt.Fprintf(&b, "| %s | `%s` | %s |", mark, p.ID, escapeCell(p.Name))
		for _, band := range domain.Bands() {
			fmt.Fprintf(&b, " %s |", domain.FormatGain(p.Gains.Get(band)))
		}
		kind := "user"
		if p.IsDefault {
			kind = "built-in"
		}
		fmt.Fprintf(&b, " %s |\n", kind)
	}
	return b.String()
}

// RenderPresets renders the preset table for the terminal.
func RenderPresets(presets domain.PresetCollection, selectedID string, width int) (string, error) {
	return NewRenderer(width)(PresetsMarkdown(presets, selectedID))
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
