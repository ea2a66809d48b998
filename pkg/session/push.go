package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/aretw0/basiceq/pkg/ports"
)

// HandlePresetsChanged applies a collection pushed by the backend.
// Malformed collections are logged and dropped; the handler never panics.
func (s *Session) HandlePresetsChanged(ctx context.Context, presets domain.PresetCollection) {
	defer s.recoverPush(domain.NotifyPresetsChanged)

	if err := s.store.Replace(presets); err != nil {
		s.logger.Warn("Dropping pushed preset collection", "err", err)
		return
	}
	s.reconcile(ctx)
	s.notify()
}

// HandleSelectedPresetChanged applies a selection pushed by the backend.
// Malformed presets are logged and dropped; the handler never panics.
// The last applied write wins: a late echo of an older update replaces a newer
// local edit until the backend echoes that edit too.
func (s *Session) HandleSelectedPresetChanged(ctx context.Context, preset domain.Preset) {
	defer s.recoverPush(domain.NotifySelectedChanged)

	if current, err := s.store.Selected(); err == nil && current.ID == preset.ID && current.Gains == preset.Gains {
		return
	}
	if err := s.store.Apply(preset); err != nil {
		s.logger.Warn("Dropping pushed selection", "err", err)
		return
	}
	if err := s.store.Select(preset.ID); err != nil {
		s.logger.Warn("Dropping pushed selection", "err", err)
		return
	}
	s.reconcile(ctx)
	s.notify()
}

// Handle dispatches a notification to the matching handler.
func (s *Session) Handle(ctx context.Context, n domain.Notification) {
	switch n.Type {
	case domain.NotifyPresetsChanged:
		s.HandlePresetsChanged(ctx, n.Presets)
	case domain.NotifySelectedChanged:
		if n.Selected == nil {
			s.logger.Warn("Dropping selection notification without a preset")
			return
		}
		s.HandleSelectedPresetChanged(ctx, *n.Selected)
	default:
		s.logger.Warn("Dropping unknown notification", "type", n.Type)
	}
}

// Listen subscribes to the notifier and applies every notification until ctx
// is done or the notifier closes its channel.
func (s *Session) Listen(ctx context.Context, notifier ports.Notifier) error {
	events, err := notifier.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to backend notifications: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case n, ok := <-events:
			if !ok {
				return nil
			}
			s.Handle(ctx, n)
		}
	}
}

func (s *Session) recoverPush(kind domain.NotificationType) {
	if r := recover(); r != nil {
		s.logger.Error("Recovered from panic in notification handler", "type", kind, "panic", r)
	}
}
