package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/disaster_response_system/internal/models"
	"github.com/shenikar/disaster_response_system/internal/webhook"
	"github.com/shenikar/disaster_response_system/pkg/ident"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=incident.go -destination=mocks/incident_mock.go -package=mocks

// maxIDAttempts - предел попыток подбора уникального идентификатора инцидента
const maxIDAttempts = 100

// IncidentRepository определяет контракт для работы с бд инцидентов
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id string) (*models.Incident, error)
	Update(ctx context.Context, incident *models.Incident) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.IncidentFilter, page, pageSize int) ([]*models.Incident, error)
	ListByAssignee(ctx context.Context, volunteerID uuid.UUID) ([]*models.Incident, error)
	FindAvailableNearby(ctx context.Context, lat, lng float64, radiusMeters int) ([]*models.Incident, error)

	// Claim атомарно переводит инцидент из available в pending и записывает
	// назначение в историю. Возвращает ErrConflict, если инцидент уже занят.
	Claim(ctx context.Context, incidentID string, volunteerID uuid.UUID) error
	// Release атомарно снимает назначение и возвращает инцидент в available
	Release(ctx context.Context, incidentID string, volunteerID uuid.UUID) error
	// Complete атомарно переводит инцидент из pending/in-progress в completed
	Complete(ctx context.Context, incidentID string, volunteerID uuid.UUID) error

	AddNote(ctx context.Context, note *models.IncidentNote) error
	ListNotes(ctx context.Context, incidentID string) ([]*models.IncidentNote, error)
	UpdateLocation(ctx context.Context, incidentID string, lat, lng float64) error
	Stats(ctx context.Context) (*models.IncidentStats, error)

	GetIncidentFromCache(ctx context.Context, id string) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id string) error
}

// IncidentService определяет контракт для бизнес-логики жизненного цикла инцидентов
type IncidentService interface {
	CreateIncident(ctx context.Context, incident *models.Incident, actor *models.User) error
	GetIncident(ctx context.Context, id string) (*models.Incident, error)
	ListIncidents(ctx context.Context, filter models.IncidentFilter, page, pageSize int) ([]*models.Incident, error)
	ListByAssignee(ctx context.Context, volunteerID uuid.UUID) ([]*models.Incident, error)
	FindNearby(ctx context.Context, lat, lng float64, radiusMeters int) ([]*models.Incident, error)
	UpdateIncident(ctx context.Context, id string, upd models.IncidentUpdate, actor *models.User) (*models.Incident, error)
	DeleteIncident(ctx context.Context, id string, actor *models.User) error
	VerifyIncident(ctx context.Context, id string, actor *models.User) (*models.Incident, error)
	RejectIncident(ctx context.Context, id string, actor *models.User) error
	AddNote(ctx context.Context, id, text string, actor *models.User) (*models.IncidentNote, error)
	ListNotes(ctx context.Context, id string) ([]*models.IncidentNote, error)
	CorrectLocation(ctx context.Context, id string, lat, lng float64, actor *models.User) (*models.Incident, error)
	Stats(ctx context.Context) (*models.IncidentStats, error)
}

type incidentService struct {
	repo      IncidentRepository
	logger    *logrus.Logger
	publisher webhook.WebhookPublisher
}

func NewIncidentService(repo IncidentRepository, logger *logrus.Logger, publisher webhook.WebhookPublisher) IncidentService {
	return &incidentService{
		repo:      repo,
		logger:    logger,
		publisher: publisher,
	}
}

// canMutate - общее правило авторизации: админ, репортер или текущий назначенный волонтер
func canMutate(incident *models.Incident, actor *models.User) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	if incident.ReporterID == actor.ID {
		return true
	}
	return incident.AssignedTo != nil && *incident.AssignedTo == actor.ID
}

// validateNewIncident собирает все ошибки полей в одно сообщение
func validateNewIncident(incident *models.Incident) error {
	var problems []string
	if !incident.Type.Valid() {
		problems = append(problems, "invalid incident type")
	}
	if incident.Severity < 1 || incident.Severity > 5 {
		problems = append(problems, "severity must be between 1 and 5")
	}
	if strings.TrimSpace(incident.Description) == "" {
		problems = append(problems, "description is required")
	}
	if incident.Latitude < -90 || incident.Latitude > 90 {
		problems = append(problems, "valid latitude is required")
	}
	if incident.Longitude < -180 || incident.Longitude > 180 {
		problems = append(problems, "valid longitude is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, ", "))
	}
	return nil
}

// CreateIncident создает непроверенный инцидент от имени актора.
// Идентификатор подбирается повторной генерацией до первой свободной комбинации.
func (s *incidentService) CreateIncident(ctx context.Context, incident *models.Incident, actor *models.User) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "incident",
		"method":   "CreateIncident",
		"actor_id": actor.ID,
	})
	log.Info("Attempting to create a new incident")

	if err := validateNewIncident(incident); err != nil {
		log.WithError(err).Warn("Incident validation failed")
		return err
	}

	incident.Status = models.StatusUnverified
	incident.Verified = false
	incident.Reporter = actor.Name
	incident.ReporterID = actor.ID

	var err error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		incident.ID = ident.GenerateIncidentID()
		err = s.repo.Create(ctx, incident)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateID) {
			log.WithField("incident_id", incident.ID).Debug("Incident id collision, regenerating")
			continue
		}
		log.WithError(err).Error("Failed to create incident in repository")
		return fmt.Errorf("service: could not create incident: %w", err)
	}
	if errors.Is(err, ErrDuplicateID) {
		log.Error("Could not obtain a unique incident id")
		return fmt.Errorf("service: %w", ErrIDExhausted)
	}

	s.publish(ctx, webhook.EventIncidentCreated, incident, actor.ID)
	log.WithField("incident_id", incident.ID).Info("Incident created successfully")
	return nil
}

// GetIncident получает инцидент по ID (сначала кеш, потом бд)
func (s *incidentService) GetIncident(ctx context.Context, id string) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})

	cached, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read incident cache")
	}
	if cached != nil {
		return cached, nil
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	return incident, nil
}

// ListIncidents возвращает список инцидентов с фильтрами и пагинацией
func (s *incidentService) ListIncidents(ctx context.Context, filter models.IncidentFilter, page, pageSize int) ([]*models.Incident, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "ListIncidents",
		"page":      page,
		"page_size": pageSize,
	})

	incidents, err := s.repo.List(ctx, filter, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}

// ListByAssignee возвращает текущие задачи волонтера
func (s *incidentService) ListByAssignee(ctx context.Context, volunteerID uuid.UUID) ([]*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":      "incident",
		"method":       "ListByAssignee",
		"volunteer_id": volunteerID,
	})

	incidents, err := s.repo.ListByAssignee(ctx, volunteerID)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents by assignee")
		return nil, fmt.Errorf("service: could not list assigned incidents: %w", err)
	}
	return incidents, nil
}

// FindNearby находит доступные проверенные инциденты в радиусе от точки
func (s *incidentService) FindNearby(ctx context.Context, lat, lng float64, radiusMeters int) ([]*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "FindNearby",
	})

	if radiusMeters <= 0 {
		radiusMeters = 5000
	}

	incidents, err := s.repo.FindAvailableNearby(ctx, lat, lng, radiusMeters)
	if err != nil {
		log.WithError(err).Error("Failed to find nearby incidents")
		return nil, fmt.Errorf("service: could not find nearby incidents: %w", err)
	}
	return incidents, nil
}

// UpdateIncident применяет частичное обновление с учетом прав актора.
// Поле verified может менять только админ; location здесь не обновляется вовсе -
// для исправления координат есть отдельная админская операция CorrectLocation.
// Назначение волонтера через это обновление запрещено: оно обходит условный
// захват и историю назначений, поэтому доступно только операциям диспетчеризации.
func (s *incidentService) UpdateIncident(ctx context.Context, id string, upd models.IncidentUpdate, actor *models.User) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "UpdateIncident",
		"incident_id": id,
		"actor_id":    actor.ID,
	})
	log.Info("Attempting to update incident")

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to update a non-existent incident")
		return nil, fmt.Errorf("service: could not get incident for update: %w", err)
	}

	if !canMutate(incident, actor) {
		log.Warn("Actor is not authorized to update this incident")
		return nil, fmt.Errorf("service: not authorized to update this incident: %w", ErrForbidden)
	}

	if upd.AssignedTo != nil {
		log.Warn("Attempted to change assignment through generic update")
		return nil, fmt.Errorf("%w: assignment is managed by dispatch operations", ErrValidation)
	}

	// Верификация применяется до статуса, чтобы админ мог одним запросом
	// верифицировать инцидент и сразу перевести его в нужный статус
	now := time.Now()
	if upd.Verified != nil {
		if actor.Role != models.RoleAdmin {
			log.Warn("Non-admin actor attempted to change verification")
			return nil, fmt.Errorf("service: only admin can change verification: %w", ErrForbidden)
		}
		incident.Verified = *upd.Verified
		if *upd.Verified {
			incident.VerifiedBy = &actor.ID
			incident.VerifiedAt = &now
			if incident.Status == models.StatusUnverified {
				incident.Status = models.StatusAvailable
			}
		} else {
			// Снятие верификации возвращает инцидент в начало жизненного
			// цикла; текущее назначение сбрасывается, история остается
			incident.VerifiedBy = nil
			incident.VerifiedAt = nil
			incident.Status = models.StatusUnverified
			incident.AssignedTo = nil
			incident.AssignedAt = nil
		}
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, fmt.Errorf("%w: invalid status", ErrValidation)
		}
		// Неверифицированный инцидент живет только в статусе unverified,
		// и обратно из верифицированного в unverified статусом не возвращаются
		if *upd.Status != models.StatusUnverified && !incident.Verified {
			return nil, fmt.Errorf("%w: incident is not verified", ErrConflict)
		}
		if *upd.Status == models.StatusUnverified && incident.Verified {
			return nil, fmt.Errorf("%w: verified incident cannot return to unverified", ErrConflict)
		}
		incident.Status = *upd.Status
		if *upd.Status == models.StatusCompleted {
			incident.ResolvedAt = &now
		}
	}
	if upd.Description != nil {
		if strings.TrimSpace(*upd.Description) == "" {
			return nil, fmt.Errorf("%w: description is required", ErrValidation)
		}
		incident.Description = *upd.Description
	}
	if upd.Severity != nil {
		if *upd.Severity < 1 || *upd.Severity > 5 {
			return nil, fmt.Errorf("%w: severity must be between 1 and 5", ErrValidation)
		}
		incident.Severity = *upd.Severity
	}

	if err := s.repo.Update(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to update incident in repository")
		return nil, fmt.Errorf("service: could not update incident: %w", err)
	}
	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	log.Info("Incident updated successfully")
	return incident, nil
}

// DeleteIncident безвозвратно удаляет инцидент (админ или репортер)
func (s *incidentService) DeleteIncident(ctx context.Context, id string, actor *models.User) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "DeleteIncident",
		"incident_id": id,
		"actor_id":    actor.ID,
	})
	log.Info("Attempting to delete incident")

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to delete a non-existent incident")
		return fmt.Errorf("service: could not get incident for delete: %w", err)
	}

	if actor.Role != models.RoleAdmin && incident.ReporterID != actor.ID {
		log.Warn("Actor is not authorized to delete this incident")
		return fmt.Errorf("service: not authorized to delete this incident: %w", ErrForbidden)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		log.WithError(err).Error("Failed to delete incident in repository")
		return fmt.Errorf("service: could not delete incident: %w", err)
	}
	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	log.Info("Incident deleted successfully")
	return nil
}

// VerifyIncident подтверждает инцидент и выводит его в пул доступных задач
func (s *incidentService) VerifyIncident(ctx context.Context, id string, actor *models.User) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "VerifyIncident",
		"incident_id": id,
		"actor_id":    actor.ID,
	})
	log.Info("Attempting to verify incident")

	if actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("service: only admin can verify incidents: %w", ErrForbidden)
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to verify a non-existent incident")
		return nil, fmt.Errorf("service: could not get incident for verification: %w", err)
	}

	now := time.Now()
	incident.Verified = true
	incident.VerifiedBy = &actor.ID
	incident.VerifiedAt = &now
	if incident.Status == models.StatusUnverified {
		incident.Status = models.StatusAvailable
	}

	if err := s.repo.Update(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to verify incident in repository")
		return nil, fmt.Errorf("service: could not verify incident: %w", err)
	}
	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	s.publish(ctx, webhook.EventIncidentVerified, incident, actor.ID)
	log.Info("Incident verified successfully")
	return incident, nil
}

// RejectIncident отклоняет (удаляет) непроверенный инцидент
func (s *incidentService) RejectIncident(ctx context.Context, id string, actor *models.User) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "RejectIncident",
		"incident_id": id,
		"actor_id":    actor.ID,
	})
	log.Info("Attempting to reject incident")

	if actor.Role != models.RoleAdmin {
		return fmt.Errorf("service: only admin can reject incidents: %w", ErrForbidden)
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to reject a non-existent incident")
		return fmt.Errorf("service: could not get incident for rejection: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		log.WithError(err).Error("Failed to reject incident in repository")
		return fmt.Errorf("service: could not reject incident: %w", err)
	}
	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	s.publish(ctx, webhook.EventIncidentRejected, incident, actor.ID)
	log.Info("Incident rejected and deleted")
	return nil
}

// AddNote добавляет запись в журнал инцидента
func (s *incidentService) AddNote(ctx context.Context, id, text string, actor *models.User) (*models.IncidentNote, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "AddNote",
		"incident_id": id,
		"actor_id":    actor.ID,
	})

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: note text is required", ErrValidation)
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: could not get incident for note: %w", err)
	}
	if !canMutate(incident, actor) {
		return nil, fmt.Errorf("service: not authorized to annotate this incident: %w", ErrForbidden)
	}

	note := &models.IncidentNote{
		IncidentID: id,
		AuthorID:   actor.ID,
		Note:       text,
	}
	if err := s.repo.AddNote(ctx, note); err != nil {
		log.WithError(err).Error("Failed to add incident note")
		return nil, fmt.Errorf("service: could not add note: %w", err)
	}

	log.Info("Incident note added")
	return note, nil
}

// ListNotes возвращает журнал инцидента в порядке добавления
func (s *incidentService) ListNotes(ctx context.Context, id string) ([]*models.IncidentNote, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("service: could not get incident for notes: %w", err)
	}
	notes, err := s.repo.ListNotes(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: could not list notes: %w", err)
	}
	return notes, nil
}

// CorrectLocation - явная админская правка координат инцидента.
// Обычный update координаты не трогает, правка фиксируется заметкой в журнале.
func (s *incidentService) CorrectLocation(ctx context.Context, id string, lat, lng float64, actor *models.User) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "CorrectLocation",
		"incident_id": id,
		"actor_id":    actor.ID,
	})
	log.Info("Attempting to correct incident location")

	if actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("service: only admin can correct incident location: %w", ErrForbidden)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("%w: valid latitude and longitude are required", ErrValidation)
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: could not get incident for location correction: %w", err)
	}

	if err := s.repo.UpdateLocation(ctx, id, lat, lng); err != nil {
		log.WithError(err).Error("Failed to update incident location")
		return nil, fmt.Errorf("service: could not correct location: %w", err)
	}

	audit := &models.IncidentNote{
		IncidentID: id,
		AuthorID:   actor.ID,
		Note: fmt.Sprintf("location corrected from (%f, %f) to (%f, %f)",
			incident.Latitude, incident.Longitude, lat, lng),
	}
	if err := s.repo.AddNote(ctx, audit); err != nil {
		log.WithError(err).Warn("Failed to record location correction note")
	}
	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	incident.Latitude = lat
	incident.Longitude = lng
	log.Info("Incident location corrected")
	return incident, nil
}

// Stats возвращает агрегированную статистику для админской панели
func (s *incidentService) Stats(ctx context.Context) (*models.IncidentStats, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "Stats",
	})

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to get stats from repository")
		return nil, fmt.Errorf("service: could not get stats: %w", err)
	}
	return stats, nil
}

// publish отправляет событие жизненного цикла в очередь вебхуков
func (s *incidentService) publish(ctx context.Context, eventType string, incident *models.Incident, actorID uuid.UUID) {
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
