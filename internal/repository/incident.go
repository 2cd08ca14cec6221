package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/disaster_response_system/internal/models"
	"github.com/shenikar/disaster_response_system/internal/service"
)

// incidentColumns - общий набор колонок для выборок инцидентов
const incidentColumns = `
	id,
	type,
	severity,
	status,
	ST_Y(location::geometry) as latitude,
	ST_X(location::geometry) as longitude,
	description,
	reporter,
	reporter_id,
	verified,
	verified_by,
	verified_at,
	assigned_to,
	assigned_at,
	resolved_at,
	created_at,
	updated_at`

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (*models.Incident, error) {
	incident := &models.Incident{}
	err := row.Scan(
		&incident.ID,
		&incident.Type,
		&incident.Severity,
		&incident.Status,
		&incident.Latitude,
		&incident.Longitude,
		&incident.Description,
		&incident.Reporter,
		&incident.ReporterID,
		&incident.Verified,
		&incident.VerifiedBy,
		&incident.VerifiedAt,
		&incident.AssignedTo,
		&incident.AssignedAt,
		&incident.ResolvedAt,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return incident, nil
}

// Create создает новую запись об инциденте в бд.
// Коллизия человекочитаемого идентификатора отдается как service.ErrDuplicateID.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (id, type, severity, status, location, description, reporter, reporter_id, verified)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326), $7, $8, $9, $10)
		RETURNING created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		incident.ID,
		incident.Type,
		incident.Severity,
		incident.Status,
		incident.Longitude,
		incident.Latitude,
		incident.Description,
		incident.Reporter,
		incident.ReporterID,
		incident.Verified,
	).Scan(&incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("incident id %s already exists: %w", incident.ID, service.ErrDuplicateID)
		}
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

// GetByID возвращает инцидент по его идентификатору вместе с историей назначений
func (r *IncidentRepository) GetByID(ctx context.Context, id string) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1;`

	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident with id %s: %w", id, service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}

	history, err := r.assignmentHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	incident.AssignedVolunteers = history
	return incident, nil
}

// assignmentHistory возвращает всех когда-либо назначавшихся волонтеров
func (r *IncidentRepository) assignmentHistory(ctx context.Context, incidentID string) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM incident_volunteers WHERE incident_id = $1 ORDER BY assigned_at;`, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment history: %w", err)
	}
	defer rows.Close()

	history := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan assignment history row: %w", err)
		}
		history = append(history, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error history iteration: %w", err)
	}
	return history, nil
}

// Update сохраняет изменяемые поля инцидента (кроме местоположения)
func (r *IncidentRepository) Update(ctx context.Context, incident *models.Incident) error {
	query := `
		UPDATE incidents SET
			type = $1,
			severity = $2,
			status = $3,
			description = $4,
			verified = $5,
			verified_by = $6,
			verified_at = $7,
			assigned_to = $8,
			assigned_at = $9,
			resolved_at = $10,
			updated_at = NOW()
		WHERE id = $11;
	`
	cmdTag, err := r.db.Exec(ctx, query,
		incident.Type,
		incident.Severity,
		incident.Status,
		incident.Description,
		incident.Verified,
		incident.VerifiedBy,
		incident.VerifiedAt,
		incident.AssignedTo,
		incident.AssignedAt,
		incident.ResolvedAt,
		incident.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update incident: %w", err)
	}

	// Если RowsAffected() == 0, значит инцидента с таким id не существует
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident with id %s: %w", incident.ID, service.ErrNotFound)
	}
	return nil
}

// UpdateLocation - точечная правка координат (используется только админской коррекцией)
func (r *IncidentRepository) UpdateLocation(ctx context.Context, incidentID string, lat, lng float64) error {
	query := `
		UPDATE incidents SET
			location = ST_SetSRID(ST_MakePoint($1, $2), 4326),
			updated_at = NOW()
		WHERE id = $3;
	`
	cmdTag, err := r.db.Exec(ctx, query, lng, lat, incidentID)
	if err != nil {
		return fmt.Errorf("failed to update incident location: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident with id %s: %w", incidentID, service.ErrNotFound)
	}
	return nil
}

// Delete безвозвратно удаляет инцидент вместе с историей и заметками
func (r *IncidentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM incidents WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete incident: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident with id %s: %w", id, service.ErrNotFound)
	}
	return nil
}

// List возвращает список инцидентов с фильтрами и пагинацией
func (r *IncidentRepository) List(ctx context.Context, filter models.IncidentFilter, page, pageSize int) ([]*models.Incident, error) {
	offset := (page - 1) * pageSize

	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE 1=1`
	args := make([]any, 0, 6)
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.Verified != nil {
		args = append(args, *filter.Verified)
		query += ` AND verified = $` + strconv.Itoa(len(args))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		query += ` AND type = $` + strconv.Itoa(len(args))
	}
	if filter.Severity != nil {
		args = append(args, *filter.Severity)
		query += ` AND severity = $` + strconv.Itoa(len(args))
	}
	orderBy := ` ORDER BY created_at DESC`
	if filter.OrderBySeverity {
		orderBy = ` ORDER BY severity DESC, created_at DESC`
	}
	args = append(args, pageSize)
	query += orderBy + ` LIMIT $` + strconv.Itoa(len(args))
	args = append(args, offset)
	query += ` OFFSET $` + strconv.Itoa(len(args)) + `;`

	return r.queryIncidents(ctx, query, args...)
}

// ListByAssignee возвращает текущие задачи волонтера
func (r *IncidentRepository) ListByAssignee(ctx context.Context, volunteerID uuid.UUID) ([]*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE assigned_to = $1 ORDER BY created_at DESC;`
	return r.queryIncidents(ctx, query, volunteerID)
}

// FindAvailableNearby находит проверенные доступные инциденты, в радиус которых попадает точка
func (r *IncidentRepository) FindAvailableNearby(ctx context.Context, lat, lng float64, radiusMeters int) ([]*models.Incident, error) {
	query := `SELECT ` + incidentColumns + `
		FROM incidents
		WHERE
			status = 'available'
			AND verified = TRUE
			AND ST_DWithin(
				location,
				ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography,
				$3
			)
		ORDER BY severity DESC, created_at DESC;
	`
	return r.queryIncidents(ctx, query, lng, lat, radiusMeters)
}

func (r *IncidentRepository) queryIncidents(ctx context.Context, query string, args ...any) ([]*models.Incident, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

// Claim атомарно переводит инцидент available -> pending и дописывает
// волонтера в историю назначений в одной транзакции. Условное обновление
// по статусу гарантирует, что из двух одновременных захватов выигрывает один.
func (r *IncidentRepository) Claim(ctx context.Context, incidentID string, volunteerID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	cmdTag, err := tx.Exec(ctx, `
		UPDATE incidents SET
			status = 'pending',
			assigned_to = $1,
			assigned_at = NOW(),
			updated_at = NOW()
		WHERE id = $2 AND status = 'available' AND verified = TRUE;
	`, volunteerID, incidentID)
	if err != nil {
		return fmt.Errorf("failed to claim incident: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		// Различаем несуществующий инцидент и инцидент не в том статусе
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM incidents WHERE id = $1);`, incidentID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check incident existence: %w", err)
		}
		if !exists {
			return fmt.Errorf("incident with id %s: %w", incidentID, service.ErrNotFound)
		}
		return fmt.Errorf("incident %s is not available for assignment: %w", incidentID, service.ErrConflict)
	}

	// История назначений только пополняется; повторный захват тем же волонтером идемпотентен
	if _, err := tx.Exec(ctx, `
		INSERT INTO incident_volunteers (incident_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (incident_id, user_id) DO NOTHING;
	`, incidentID, volunteerID); err != nil {
		return fmt.Errorf("failed to record assignment history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit claim transaction: %w", err)
	}
	return nil
}

// Release атомарно возвращает инцидент в пул доступных.
// Условие по assigned_to защищает от гонки с параллельным перезахватом.
func (r *IncidentRepository) Release(ctx context.Context, incidentID string, volunteerID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE incidents SET
			status = 'available',
			assigned_to = NULL,
			assigned_at = NULL,
			updated_at = NOW()
		WHERE id = $1 AND assigned_to = $2 AND status IN ('pending', 'in-progress');
	`, incidentID, volunteerID)
	if err != nil {
		return fmt.Errorf("failed to release incident: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident %s is not assigned to volunteer %s: %w", incidentID, volunteerID, service.ErrConflict)
	}
	return nil
}

// Complete атомарно завершает инцидент назначенным волонтером
func (r *IncidentRepository) Complete(ctx context.Context, incidentID string, volunteerID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE incidents SET
			status = 'completed',
			resolved_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND assigned_to = $2 AND status IN ('pending', 'in-progress');
	`, incidentID, volunteerID)
	if err != nil {
		return fmt.Errorf("failed to complete incident: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident %s is not assigned to volunteer %s: %w", incidentID, volunteerID, service.ErrConflict)
	}
	return nil
}

// AddNote добавляет запись в журнал инцидента
func (r *IncidentRepository) AddNote(ctx context.Context, note *models.IncidentNote) error {
	query := `
		INSERT INTO incident_notes (incident_id, author_id, note)
		VALUES ($1, $2, $3) RETURNING id, added_at;
	`
	err := r.db.QueryRow(ctx, query,
		note.IncidentID,
		note.AuthorID,
		note.Note,
	).Scan(&note.ID, &note.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to add incident note: %w", err)
	}
	return nil
}

// ListNotes возвращает журнал инцидента в порядке добавления
func (r *IncidentRepository) ListNotes(ctx context.Context, incidentID string) ([]*models.IncidentNote, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, incident_id, author_id, note, added_at
		FROM incident_notes
		WHERE incident_id = $1
		ORDER BY added_at;
	`, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list incident notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*models.IncidentNote, 0)
	for rows.Next() {
		note := &models.IncidentNote{}
		if err := rows.Scan(&note.ID, &note.IncidentID, &note.AuthorID, &note.Note, &note.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan incident note row: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error notes iteration: %w", err)
	}
	return notes, nil
}

// Stats возвращает агрегированную статистику по инцидентам и пользователям
func (r *IncidentRepository) Stats(ctx context.Context) (*models.IncidentStats, error) {
	stats := &models.IncidentStats{
		ByStatus:   make(map[models.IncidentStatus]int),
		ByType:     make(map[models.IncidentType]int),
		BySeverity: make(map[int]int),
	}

	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE verified),
			COUNT(*) FILTER (WHERE NOT verified),
			COUNT(*) FILTER (WHERE status = 'completed')
		FROM incidents;
	`).Scan(&stats.TotalIncidents, &stats.VerifiedIncidents, &stats.UnverifiedIncidents, &stats.CompletedIncidents)
	if err != nil {
		return nil, fmt.Errorf("failed to get incident totals: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE role = 'volunteer' AND status = 'active'),
			COUNT(*)
		FROM users;
	`).Scan(&stats.ActiveVolunteers, &stats.TotalUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to get user totals: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM incidents GROUP BY status;`)
	if err != nil {
		return nil, fmt.Errorf("failed to get incidents by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status models.IncidentStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status group row: %w", err)
		}
		stats.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error status group iteration: %w", err)
	}

	typeRows, err := r.db.Query(ctx, `SELECT type, COUNT(*) FROM incidents GROUP BY type;`)
	if err != nil {
		return nil, fmt.Errorf("failed to get incidents by type: %w", err)
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var incidentType models.IncidentType
		var count int
		if err := typeRows.Scan(&incidentType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan type group row: %w", err)
		}
		stats.ByType[incidentType] = count
	}
	if err := typeRows.Err(); err != nil {
		return nil, fmt.Errorf("error type group iteration: %w", err)
	}

	severityRows, err := r.db.Query(ctx, `SELECT severity, COUNT(*) FROM incidents GROUP BY severity;`)
	if err != nil {
		return nil, fmt.Errorf("failed to get incidents by severity: %w", err)
	}
	defer severityRows.Close()
	for severityRows.Next() {
		var severity, count int
		if err := severityRows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("failed to scan severity group row: %w", err)
		}
		stats.BySeverity[severity] = count
	}
	if err := severityRows.Err(); err != nil {
		return nil, fmt.Errorf("error severity group iteration: %w", err)
	}

	return stats, nil
}

// GetIncidentFromCache пытается получить инцидент из Redis
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id string) (*models.Incident, error) {
	key := fmt.Sprintf("incident:%s", id)
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache сохраняет инцидент в Redis
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	key := fmt.Sprintf("incident:%s", incident.ID)
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	// Устанавливаем срок жизни кэша, например, 5 минут
	if err := r.redisClient.Set(ctx, key, val, 5*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache удаляет инцидент из Redis кэша
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id string) error {
	key := fmt.Sprintf("incident:%s", id)
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}
