package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// MetricsHooks records lifecycle events into m.
func MetricsHooks(m *Metrics) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnAskFinish: func(ctx context.Context, e *domain.AskEvent) {
			m.Asks.WithLabelValues(outcome(e.Err)).Inc()
			m.AskDuration.Observe(e.Duration.Seconds())
		},
		OnClear: func(ctx context.Context, e *domain.ClearEvent) {
			m.Clears.WithLabelValues(outcome(e.Err)).Inc()
		},
		OnLayout: func(ctx context.Context, e *domain.LayoutEvent) {
			m.LayoutNodes.Set(float64(e.Nodes))
			m.LayoutDuration.Observe(e.Duration.Seconds())
		},
	}
}

// LoggingHooks logs lifecycle events.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnAskStart: func(ctx context.Context, e *domain.AskEvent) {
			logger.Debug("ask_start", "parent_id", e.ParentID)
		},
		OnAskFinish: func(ctx context.Context, e *domain.AskEvent) {
			if e.Err != nil {
				logger.Warn("ask_finish", "parent_id", e.ParentID, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.Info("ask_finish", "parent_id", e.ParentID, "node_id", e.NodeID, "duration", e.Duration)
		},
		OnClear: func(ctx context.Context, e *domain.ClearEvent) {
			logger.Info("clear", "err", e.Err)
		},
		OnLayout: func(ctx context.Context, e *domain.LayoutEvent) {
			logger.Debug("layout", "nodes", e.Nodes, "duration", e.Duration)
		},
	}
}

// Combine fans each event out to every non-nil hook, in order.
func Combine(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range all {
		out.OnAskStart = chain(out.OnAskStart, h.OnAskStart)
		out.OnAskFinish = chain(out.OnAskFinish, h.OnAskFinish)
		out.OnClear = chain(out.OnClear, h.OnClear)
		out.OnLayout = chain(out.OnLayout, h.OnLayout)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
