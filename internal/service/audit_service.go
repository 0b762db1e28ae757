package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/token-service/internal/events"
	"github.com/spec-kit/token-service/internal/repository"
)

// AuditService records authentication events. Without a repository events
// are only logged.
type AuditService struct {
	dispatcher events.Dispatcher
	repo       repository.AuthEventRepository
	logger     *zap.Logger
}

// NewAuditService creates the service. repo may be nil.
func NewAuditService(dispatcher events.Dispatcher, repo repository.AuthEventRepository, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		repo:       repo,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTokenIssued, a.handleTokenIssued)
	a.dispatcher.Subscribe(events.EventTokenRejected, a.handleTokenRejected)
	a.dispatcher.Subscribe(events.EventLoginRejected, a.handleLoginRejected)
}

func (a *AuditService) handleTokenIssued(ctx context.Context, event events.Event) error {
	a.logger.Debug("TokenIssued", zap.String("subject_id", event.SubjectID), zap.String("event_id", event.ID))
	return a.persist(ctx, event)
}

func (a *AuditService) handleTokenRejected(ctx context.Context, event events.Event) error {
	kind := ""
	if payload, ok := event.Payload.(events.TokenRejectedPayload); ok {
		kind = payload.Kind
	}
	a.logger.Info("SECURITY: token rejected",
		zap.String("kind", kind),
		zap.String("client_ip", event.ClientIP),
		zap.String("event_id", event.ID))
	return a.persist(ctx, event)
}

func (a *AuditService) handleLoginRejected(ctx context.Context, event events.Event) error {
	var missing []string
	if payload, ok := event.Payload.(events.LoginRejectedPayload); ok {
		missing = payload.Missing
	}
	a.logger.Info("SECURITY: login rejected",
		zap.Strings("missing", missing),
		zap.String("client_ip", event.ClientIP),
		zap.String("event_id", event.ID))
	return a.persist(ctx, event)
}

func (a *AuditService) persist(ctx context.Context, event events.Event) error {
	if a.repo == nil {
		return nil
	}
	record, err := repository.NewAuthEventRecord(event)
	if err != nil {
		return err
	}
	if err := a.repo.Record(ctx, record); err != nil {
		return fmt.Errorf("record %s event: %w", event.Type, err)
	}
	return nil
}
