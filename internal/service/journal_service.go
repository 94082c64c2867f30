package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/astro-gateway/internal/domain"
	"github.com/spec-kit/astro-gateway/internal/events"
	"github.com/spec-kit/astro-gateway/internal/repository"
)

// JournalService records auth transitions for later inspection.
type JournalService struct {
	repo       repository.SessionEventRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewJournalService creates the service. A nil repo disables recording.
func NewJournalService(repo repository.SessionEventRepository, dispatcher events.Dispatcher, logger *zap.Logger) *JournalService {
	return &JournalService{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Enabled reports whether a repository is attached.
func (j *JournalService) Enabled() bool {
	return j != nil && j.repo != nil
}

// RegisterHandlers subscribes to events.
func (j *JournalService) RegisterHandlers() {
	if j.dispatcher == nil || j.repo == nil {
		return
	}
	j.dispatcher.Subscribe(events.EventAuthChanged, j.handleAuthChanged)
}

// History returns the most recent transitions of a session.
func (j *JournalService) History(ctx context.Context, sessionKey string, limit int) ([]domain.SessionEvent, error) {
	if !j.Enabled() {
		return []domain.SessionEvent{}, nil
	}
	return j.repo.ListBySession(ctx, sessionKey, limit)
}

func (j *JournalService) handleAuthChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AuthChangedPayload)
	if !ok {
		return nil
	}

	record := &domain.SessionEvent{
		SessionKey: event.SessionKey,
		Type:       payload.Reason,
		Role:       payload.State.Role,
		LoggedIn:   payload.State.LoggedIn,
		OccurredAt: event.Timestamp,
	}
	if payload.State.Profile != nil {
		id := payload.State.Profile.ID
		record.ProfileID = &id
	}

	if err := j.repo.Record(context.WithoutCancel(ctx), record); err != nil {
		j.logger.Warn("journal write failed", zap.String("reason", payload.Reason), zap.Error(err))
		return err
	}
	return nil
}
