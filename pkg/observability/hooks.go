package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/basiceq/pkg/domain"
)

// LogHooks returns lifecycle hooks writing one structured line per event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPresetSelected: func(ctx context.Context, e *domain.PresetEvent) {
			logger.InfoContext(ctx, "preset_selected", "preset_id", e.PresetID, "name", e.Name)
		},
		OnPresetSaved: func(ctx context.Context, e *domain.PresetEvent) {
			logger.InfoContext(ctx, "preset_saved", "preset_id", e.PresetID, "name", e.Name)
		},
		OnPresetDeleted: func(ctx context.Context, e *domain.PresetEvent) {
			logger.InfoContext(ctx, "preset_deleted", "preset_id", e.PresetID, "name", e.Name)
		},
		OnGainEdited: func(ctx context.Context, e *domain.GainEvent) {
			logger.InfoContext(ctx, "gain_edited",
				"band", e.Band.String(),
				"gain", domain.FormatGain(e.Gain),
				"transition", e.Transition,
			)
		},
		OnTransitionStart: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.DebugContext(ctx, "transition_start", "bands", len(e.Bands))
		},
		OnSettled: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.DebugContext(ctx, "settled")
		},
		OnBackendError: func(ctx context.Context, e *domain.BackendErrorEvent) {
			logger.ErrorContext(ctx, "backend_error", "op", e.Op, "err", e.Err)
		},
	}
}

// ComposeHooks fans every event out to each of the given hook sets in order.
func ComposeHooks(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnPresetSelected = chain(out.OnPresetSelected, h.OnPresetSelected)
		out.OnPresetSaved = chain(out.OnPresetSaved, h.OnPresetSaved)
		out.OnPresetDeleted = chain(out.OnPresetDeleted, h.OnPresetDeleted)
		out.OnGainEdited = chain(out.OnGainEdited, h.OnGainEdited)
		out.OnTransitionStart = chain(out.OnTransitionStart, h.OnTransitionStart)
		out.OnSettled = chain(out.OnSettled, h.OnSettled)
		out.OnBackendError = chain(out.OnBackendError, h.OnBackendError)
	}
	return out
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
