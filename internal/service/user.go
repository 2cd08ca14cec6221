package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shenikar/disaster_response_system/internal/models"
	"github.com/shenikar/disaster_response_system/pkg/ident"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=user.go -destination=mocks/user_mock.go -package=mocks

// UserRepository определяет контракт для работы с бд пользователей
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByToken(ctx context.Context, token string) (*models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]*models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.UserStatus) error
	UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error
	EnsureAdmin(ctx context.Context, name, token string) error
}

// UserService определяет контракт для управления учетными записями
type UserService interface {
	CreateUser(ctx context.Context, name string, role models.Role, actor *models.User) (*models.User, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
	ListVolunteers(ctx context.Context) ([]*models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role, actor *models.User) (*models.User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.UserStatus, actor *models.User) (*models.User, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64, actor *models.User) (*models.User, error)
	EnsureAdmin(ctx context.Context, name, token string) error
}

type userService struct {
	repo   UserRepository
	logger *logrus.Logger
}

func NewUserService(repo UserRepository, logger *logrus.Logger) UserService {
	return &userService{
		repo:   repo,
		logger: logger,
	}
}

// CreateUser создает учетную запись с выпуском API-токена (только админ)
func (s *userService) CreateUser(ctx context.Context, name string, role models.Role, actor *models.User) (*models.User, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "user",
		"method":   "CreateUser",
		"actor_id": actor.ID,
		"role":     role,
	})
	log.Info("Attempting to create a new user")

	if actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("service: only admin can create users: %w", ErrForbidden)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: invalid role", ErrValidation)
	}

	user := &models.User{
		ID:       uuid.New(),
		Name:     name,
		Role:     role,
		Status:   models.UserActive,
		APIToken: ident.GenerateToken(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		log.WithError(err).Error("Failed to create user in repository")
		return nil, fmt.Errorf("service: could not create user: %w", err)
	}

	log.WithField("user_id", user.ID).Info("User created successfully")
	return user, nil
}

// Authenticate находит пользователя по API-токену
func (s *userService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	user, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("service: could not authenticate: %w", err)
	}
	if user.Status != models.UserActive {
		return nil, fmt.Errorf("service: account is not active: %w", ErrForbidden)
	}
	return user, nil
}

// ListVolunteers возвращает всех волонтеров
func (s *userService) ListVolunteers(ctx context.Context) ([]*models.User, error) {
	volunteers, err := s.repo.ListByRole(ctx, models.RoleVolunteer)
	if err != nil {
		return nil, fmt.Errorf("service: could not list volunteers: %w", err)
	}
	return volunteers, nil
}

// UpdateRole меняет роль пользователя (только админ)
func (s *userService) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role, actor *models.User) (*models.User, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "user",
		"method":   "UpdateRole",
		"user_id":  id,
		"actor_id": actor.ID,
	})

	if actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("service: only admin can change roles: %w", ErrForbidden)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: invalid role", ErrValidation)
	}

	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		log.WithError(err).Warn("Failed to update user role")
		return nil, fmt.Errorf("service: could not update role: %w", err)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: could not reload user: %w", err)
	}
	log.Info("User role updated")
	return user, nil
}

// UpdateStatus меняет статус учетной записи (только админ)
func (s *userService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.UserStatus, actor *models.User) (*models.User, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "user",
		"method":   "UpdateStatus",
		"user_id":  id,
		"actor_id": actor.ID,
	})

	if actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("service: only admin can change account status: %w", ErrForbidden)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status", ErrValidation)
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		log.WithError(err).Warn("Failed to update user status")
		return nil, fmt.Errorf("service: could not update status: %w", err)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: could not reload user: %w", err)
	}
	log.Info("User status updated")
	return user, nil
}

// UpdateLocation обновляет местоположение волонтера.
// Волонтер меняет свое местоположение сам, админ - любому волонтеру.
func (s *userService) UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64, actor *models.User) (*models.User, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "user",
		"method":   "UpdateLocation",
		"user_id":  id,
		"actor_id": actor.ID,
	})

	if actor.Role != models.RoleAdmin && actor.ID != id {
		return nil, fmt.Errorf("service: cannot update another user's location: %w", ErrForbidden)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("%w: valid latitude and longitude are required", ErrValidation)
	}

	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: could not get user for location update: %w", err)
	}
	if target.Role != models.RoleVolunteer {
		return nil, fmt.Errorf("%w: user is not a volunteer", ErrValidation)
	}

	if err := s.repo.UpdateLocation(ctx, id, lat, lng); err != nil {
		log.WithError(err).Warn("Failed to update volunteer location")
		return nil, fmt.Errorf("service: could not update location: %w", err)
	}

	target.Latitude = &lat
	target.Longitude = &lng
	log.Info("Volunteer location updated")
	return target, nil
}

// EnsureAdmin создает стартового администратора, если его еще нет
func (s *userService) EnsureAdmin(ctx context.Context, name, token string) error {
	if token == "" {
		s.logger.Warn("ADMIN_TOKEN is not set, skipping admin bootstrap")
		return nil
	}
	if err := s.repo.EnsureAdmin(ctx, name, token); err != nil {
		return fmt.Errorf("service: could not bootstrap admin: %w", err)
	}
	s.logger.Info("Admin account ensured")
	return nil
}
