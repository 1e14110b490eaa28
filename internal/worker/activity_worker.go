package worker

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadstack/lead-service/internal/domain"
	"github.com/leadstack/lead-service/internal/events"
	"github.com/leadstack/lead-service/internal/repository"
)

// StartActivityRecorder subscribes the activity trail to lead mutation
// events. Recording failures are logged and never fail the mutation that
// produced the event.
func StartActivityRecorder(dispatcher events.Dispatcher, activities repository.LeadActivityRepository, logger *zap.Logger) {
	if dispatcher == nil || activities == nil {
		return
	}

	actions := map[events.EventType]domain.LeadActivityAction{
		events.EventLeadCreated: domain.LeadActivityCreated,
		events.EventLeadUpdated: domain.LeadActivityUpdated,
		events.EventLeadDeleted: domain.LeadActivityDeleted,
	}

	for eventType, action := range actions {
		action := action
		dispatcher.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
			activity := &domain.LeadActivity{
				ID:         uuid.NewString(),
				LeadID:     event.LeadID,
				OwnerID:    event.OwnerID,
				Action:     action,
				Detail:     event.Detail,
				OccurredAt: event.Timestamp,
			}
			if err := activities.Create(ctx, activity); err != nil {
				logger.Warn("failed to record lead activity",
					zap.String("lead_id", event.LeadID),
					zap.String("action", string(action)),
					zap.Error(err))
			}
			return nil
		})
	}
}
