package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/travel-auth/internal/events"
	"github.com/spec-kit/travel-auth/internal/observability"
)

// AuditService records auth events for operational visibility.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleEvent)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleEvent)
	a.dispatcher.Subscribe(events.EventTokenRefreshed, a.handleEvent)
	a.dispatcher.Subscribe(events.EventLoggedOut, a.handleEvent)
}

func (a *AuditService) handleEvent(ctx context.Context, event events.Event) error {
	a.metrics.RecordAuthEvent(string(event.Type))
	a.logger.Info("auth event",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("kind", string(event.Actor.Kind)),
		zap.String("subject_id", event.Actor.SubjectID),
	)
	return nil
}
