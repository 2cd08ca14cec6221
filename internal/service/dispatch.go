package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/disaster_response_system/internal/models"
	"github.com/shenikar/disaster_response_system/internal/webhook"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=dispatch.go -destination=mocks/dispatch_mock.go -package=mocks

// DispatchService определяет контракт связывания волонтеров с инцидентами
type DispatchService interface {
	// Claim - самостоятельный захват доступного инцидента волонтером
	Claim(ctx context.Context, incidentID string, actor *models.User) (*models.Incident, error)
	// Assign - назначение инцидента выбранному волонтеру администратором
	Assign(ctx context.Context, incidentID string, volunteerID uuid.UUID, actor *models.User) (*models.Incident, error)
	// Release - возврат инцидента в пул доступных назначенным волонтером
	Release(ctx context.Context, incidentID string, actor *models.User) (*models.Incident, error)
	// Complete - завершение инцидента назначенным волонтером
	Complete(ctx context.Context, incidentID string, actor *models.User) (*models.Incident, error)
}

type dispatchService struct {
	incidents IncidentRepository
	users     UserRepository
	logger    *logrus.Logger
	publisher webhook.WebhookPublisher
}

func NewDispatchService(incidents IncidentRepository, users UserRepository, logger *logrus.Logger, publisher webhook.WebhookPublisher) DispatchService {
	return &dispatchService{
		incidents: incidents,
		users:     users,
		logger:    logger,
		publisher: publisher,
	}
}

// Claim выполняет захват инцидента самим волонтером. Переход
// available -> pending делается условным обновлением в одной транзакции,
// так что из двух одновременных захватов выигрывает ровно один.
func (s *dispatchService) Claim(ctx context.Context, incidentID string, actor *models.User) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":      "dispatch",
		"method":       "Claim",
		"incident_id":  incidentID,
		"volunteer_id": actor.ID,
	})
	log.Info("Volunteer attempting to claim incident")

	if actor.Role != models.RoleVolunteer {
		return nil, fmt.Errorf("service: only volunteers can claim incidents: %w", ErrForbidden)
	}
	if actor.Status != models.UserActive {
		return nil, fmt.Errorf("service: volunteer account is not active: %w", ErrForbidden)
	}

	return s.claim(ctx, log, incidentID, actor.ID)
}

// Assign назначает инцидент выбранному волонтеру от имени администратора.
// В отличие от Claim, назначенным становится волонтер, а не сам админ.
func (s *dispatchService) Assign(ctx context.Context, incidentID string, volunteerID uuid.UUID, actor *models.User) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":      "dispatch",
		"method":       "Assign",
		"incident_id":  incidentID,
		"volunteer_id": volunteerID,
		"actor_id":     actor.ID,
	})
	log.Info("Admin attempting to assign incident")

	if actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("service: only admin can assign incidents: %w", ErrForbidden)
	}

	volunteer, err := s.users.GetByID(ctx, volunteerID)
	if err != nil {
		log.WithError(err).Warn("Target volunteer not found")
		return nil, fmt.Errorf("service: volunteer not found: %w", err)
	}
	if volunteer.Role != models.RoleVolunteer {
		return nil, fmt.Errorf("%w: user is not a volunteer", ErrValidation)
	}
	if volunteer.Status != models.UserActive {
		return nil, fmt.Errorf("%w: volunteer account is not active", ErrValidation)
	}

	return s.claim(ctx, log, incidentID, volunteerID)
}

func (s *dispatchService) claim(ctx context.Context, log *logrus.Entry, incidentID string, volunteerID uuid.UUID) (*models.Incident, error) {
	if err := s.incidents.Claim(ctx, incidentID, volunteerID); err != nil {
		log.WithError(err).Warn("Failed to claim incident")
		return nil, fmt.Errorf("service: could not claim incident: %w", err)
	}
	if err := s.incidents.InvalidateIncidentCache(ctx, incidentID); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	incident, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("service: could not reload claimed incident: %w", err)
	}

	s.publish(ctx, webhook.EventIncidentAssigned, incident, volunteerID)
	log.Info("Incident claimed successfully")
	return incident, nil
}

// Release снимает назначение. Разрешен только текущему назначенному волонтеру
// и только пока инцидент в работе (pending или in-progress).
func (s *dispatchService) Release(ctx context.Context, incidentID string, actor *models.User) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":      "dispatch",
		"method":       "Release",
		"incident_id":  incidentID,
		"volunteer_id": actor.ID,
	})
	log.Info("Volunteer attempting to release incident")

	incident, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		log.WithError(err).Warn("Incident not found for release")
		return nil, fmt.Errorf("service: could not get incident for release: %w", err)
	}
	if incident.AssignedTo == nil || *incident.AssignedTo != actor.ID {
		log.Warn("Actor is not the current assignee")
		return nil, fmt.Errorf("service: this task is not assigned to you: %w", ErrForbidden)
	}
	if !incident.Status.Assigned() {
		return nil, fmt.Errorf("service: incident is not in progress: %w", ErrConflict)
	}

	if err := s.incidents.Release(ctx, incidentID, actor.ID); err != nil {
		log.WithError(err).Warn("Failed to release incident")
		return nil, fmt.Errorf("service: could not release incident: %w", err)
	}
	if err := s.incidents.InvalidateIncidentCache(ctx, incidentID); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	released, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("service: could not reload released incident: %w", err)
	}

	s.publish(ctx, webhook.EventIncidentReleased, released, actor.ID)
	log.Info("Incident released successfully")
	return released, nil
}

// Complete завершает инцидент. Разрешено только текущему назначенному волонтеру.
func (s *dispatchService) Complete(ctx context.Context, incidentID string, actor *models.User) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":      "dispatch",
		"method":       "Complete",
		"incident_id":  incidentID,
		"volunteer_id": actor.ID,
	})
	log.Info("Volunteer attempting to complete incident")

	incident, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		log.WithError(err).Warn("Incident not found for completion")
		return nil, fmt.Errorf("service: could not get incident for completion: %w", err)
	}
	if incident.AssignedTo == nil || *incident.AssignedTo != actor.ID {
		log.Warn("Actor is not the current assignee")
		return nil, fmt.Errorf("service: this task is not assigned to you: %w", ErrForbidden)
	}
	if !incident.Status.Assigned() {
		return nil, fmt.Errorf("service: incident is not in progress: %w", ErrConflict)
	}

	if err := s.incidents.Complete(ctx, incidentID, actor.ID); err != nil {
		log.WithError(err).Warn("Failed to complete incident")
		return nil, fmt.Errorf("service: could not complete incident: %w", err)
	}
	if err := s.incidents.InvalidateIncidentCache(ctx, incidentID); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	completed, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("service: could not reload completed incident: %w", err)
	}

	s.publish(ctx, webhook.EventIncidentCompleted, completed, actor.ID)
	log.Info("Incident completed successfully")
	return completed, nil
}

func (s *dispatchService) publish(ctx context.Context, eventType string, incident *models.Incident, actorID uuid.UUID) {
	if s.publisher == nil {
		return
	}
	event := webhook.WebhookEvent{
		Type:       eventType,
		IncidentID: incident.ID,
		ActorID:    actorID,
		Timestamp:  time.Now(),
		Incident:   incident,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event", eventType).Warn("Failed to publish webhook event")
	}
}
