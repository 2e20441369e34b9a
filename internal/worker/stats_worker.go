package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/order-dashboard/internal/events"
	"github.com/spec-kit/order-dashboard/internal/service"
)

// StartStatsWorker subscribes the stats aggregator to lifecycle events so
// the cached dashboard stats are refreshed whenever the order set changes.
func StartStatsWorker(dispatcher events.Dispatcher, stats *service.StatsService, logger *zap.Logger) {
	if dispatcher == nil || stats == nil {
		return
	}

	refresh := func(ctx context.Context, event events.Event) error {
		if _, err := stats.Refresh(ctx); err != nil {
			logger.Warn("refresh stats cache",
				zap.String("event", string(event.Type)), zap.Error(err))
		}
		return nil
	}

	for _, eventType := range []events.EventType{
		events.EventOrderCreated,
		events.EventOrderAssigned,
		events.EventOrderTaskToggled,
		events.EventOrderCompleted,
		events.EventOrderDeleted,
	} {
		dispatcher.Subscribe(eventType, refresh)
	}
}
