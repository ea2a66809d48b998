package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/basiceq/internal/presentation/tui"
	"github.com/aretw0/basiceq/pkg/session"
)

// Monitor is the session view RunMonitor observes.
type Monitor interface {
	Snapshot() session.Snapshot
	Subscribe(buffer int) (<-chan session.Snapshot, func())
}

// RunMonitor redraws the displayed gains on w every time the session changes,
// until ctx is done. Intermediate frames may be skipped when w is slow.
func RunMonitor(ctx context.Context, m Monitor, w io.Writer, width int) error {
	ch, cancel := m.Subscribe(1)
	defer cancel()

	lastSelected := ""
	draw := func(snap session.Snapshot) {
		if snap.Selected.ID != lastSelected {
			PrintSystemMessage(w, "Preset '%s' (%s) selected.", snap.Selected.Name, snap.Selected.ID)
			lastSelected = snap.Selected.ID
		}
		fmt.Fprint(w, tui.RenderGains(snap.Displayed, snap.Settled, width))
	}

	draw(m.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-ch:
			if !ok {
				return nil
			}
			draw(snap)
		}
	}
}
