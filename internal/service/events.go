package service

import (
	"context"
	"time"

	"github.com/iliyamo/wod-leaderboard/internal/logging"
	"github.com/iliyamo/wod-leaderboard/internal/queue"
)

// EventPublisher receives activity events after successful writes.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ActivityEvent) error
}

const publishTimeout = 3 * time.Second

// emit publishes ev without letting a broker problem fail the request.
// The request context may already be done once the response is written,
// so a detached one is used.
func emit(p EventPublisher, log *logging.Logger, ev queue.ActivityEvent) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, ev); err != nil {
		log.Warn("event not published", "event", ev.Type, "workout_id", ev.WorkoutID, "err", err)
	}
}
