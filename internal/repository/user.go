package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/disaster_response_system/internal/models"
	"github.com/shenikar/disaster_response_system/internal/service"
)

const userColumns = `
	id,
	name,
	role,
	status,
	api_token,
	ST_Y(current_location::geometry) as latitude,
	ST_X(current_location::geometry) as longitude,
	created_at,
	updated_at`

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) service.UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Role,
		&user.Status,
		&user.APIToken,
		&user.Latitude,
		&user.Longitude,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create создает новую учетную запись
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, role, status, api_token)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Role,
		user.Status,
		user.APIToken,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID возвращает пользователя по его UUID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1;`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s: %w", id, service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

// GetByToken возвращает пользователя по его API-токену
func (r *UserRepository) GetByToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE api_token = $1;`

	user, err := scanUser(r.db.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user with given token: %w", service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by token: %w", err)
	}
	return user, nil
}

// ListByRole возвращает всех пользователей с заданной ролью
func (r *UserRepository) ListByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY created_at;`

	rows, err := r.db.Query(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error users iteration: %w", err)
	}
	return users, nil
}

// UpdateRole меняет роль пользователя
func (r *UserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2;`, role, id)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("user with id %s: %w", id, service.ErrNotFound)
	}
	return nil
}

// UpdateStatus меняет статус учетной записи
func (r *UserRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.UserStatus) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2;`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("user with id %s: %w", id, service.ErrNotFound)
	}
	return nil
}

// UpdateLocation сохраняет текущее местоположение волонтера
func (r *UserRepository) UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE users SET
			current_location = ST_SetSRID(ST_MakePoint($1, $2), 4326),
			updated_at = NOW()
		WHERE id = $3;
	`, lng, lat, id)
	if err != nil {
		return fmt.Errorf("failed to update user location: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("user with id %s: %w", id, service.ErrNotFound)
	}
	return nil
}

// EnsureAdmin создает стартового администратора с заданным токеном, если его нет
func (r *UserRepository) EnsureAdmin(ctx context.Context, name, token string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, name, role, status, api_token)
		VALUES ($1, $2, 'admin', 'active', $3)
		ON CONFLICT (api_token) DO UPDATE SET role = 'admin', status = 'active';
	`, uuid.New(), name, token)
	if err != nil {
		return fmt.Errorf("failed to ensure admin user: %w", err)
	}
	return nil
}
