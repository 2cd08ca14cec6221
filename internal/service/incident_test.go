package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/disaster_response_system/internal/models"
	"github.com/shenikar/disaster_response_system/internal/service/mocks"
	webhook_mocks "github.com/shenikar/disaster_response_system/internal/webhook/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestIncidentService — вспомогательная функция для создания инстанса сервиса с моками.
func newTestIncidentService(t *testing.T) (*incidentService, *mocks.MockIncidentRepository, *webhook_mocks.MockWebhookPublisher) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockIncidentRepository(ctrl)
	webhookMock := webhook_mocks.NewMockWebhookPublisher(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	service := NewIncidentService(repoMock, logger, webhookMock)
	return service.(*incidentService), repoMock, webhookMock
}

func testReporter() *models.User {
	return &models.User{
		ID:     uuid.New(),
		Name:   "Иван Петров",
		Role:   models.RoleUser,
		Status: models.UserActive,
	}
}

func testAdmin() *models.User {
	return &models.User{
		ID:     uuid.New(),
		Name:   "Администратор",
		Role:   models.RoleAdmin,
		Status: models.UserActive,
	}
}

func validIncident() *models.Incident {
	return &models.Incident{
		Type:        models.TypeFire,
		Severity:    4,
		Description: "Пожар в жилом доме",
		Latitude:    55.75,
		Longitude:   37.61,
	}
}

func TestGetIncident_Success_FromCache(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	expectedIncident := &models.Incident{
		ID:          "INC-2026-0001",
		Description: "Тестовый инцидент из кеша",
	}

	// Ожидания
	repoMock.EXPECT().
		GetIncidentFromCache(ctx, expectedIncident.ID).
		Return(expectedIncident, nil).
		Times(1)

	// Действие
	incident, err := service.GetIncident(ctx, expectedIncident.ID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expectedIncident, incident)
}

func TestGetIncident_Success_FromDB(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	expectedIncident := &models.Incident{
		ID:          "INC-2026-0002",
		Description: "Тестовый инцидент из БД",
	}

	// Ожидания
	// 1. Промах кеша
	repoMock.EXPECT().
		GetIncidentFromCache(ctx, expectedIncident.ID).
		Return(nil, nil).
		Times(1)

	// 2. Попадание в БД
	repoMock.EXPECT().
		GetByID(ctx, expectedIncident.ID).
		Return(expectedIncident, nil).
		Times(1)

	// 3. Запись в кеш
	repoMock.EXPECT().
		SetIncidentCache(ctx, expectedIncident).
		Return(nil).
		Times(1)

	// Действие
	incident, err := service.GetIncident(ctx, expectedIncident.ID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expectedIncident, incident)
}

func TestGetIncident_NotFound(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := "INC-2026-9999"

	// Ожидания
	repoMock.EXPECT().
		GetIncidentFromCache(ctx, incidentID).
		Return(nil, nil).
		Times(1)
	repoMock.EXPECT().
		GetByID(ctx, incidentID).
		Return(nil, fmt.Errorf("repository: %w", ErrNotFound)).
		Times(1)

	// Действие
	incident, err := service.GetIncident(ctx, incidentID)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateIncident_Success(t *testing.T) {
	// Подготовка
	service, repoMock, webhookMock := newTestIncidentService(t)
	ctx := context.Background()
	reporter := testReporter()
	incident := validIncident()

	// Ожидания
	repoMock.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) error {
			assert.True(t, strings.HasPrefix(inc.ID, "INC-"))
			return nil
		}).Times(1)
	webhookMock.EXPECT().
		Publish(ctx, gomock.Any()).
		Return(nil).
		Times(1)

	// Действие
	err := service.CreateIncident(ctx, incident, reporter)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnverified, incident.Status)
	assert.False(t, incident.Verified)
	assert.Equal(t, reporter.ID, incident.ReporterID)
	assert.Equal(t, reporter.Name, incident.Reporter)
	assert.NotEmpty(t, incident.ID)
}

func TestCreateIncident_ValidationError(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	incident := validIncident()
	incident.Type = "tsunami" // не входит в закрытый набор типов
	incident.Severity = 9

	// Сервис не должен обращаться к репозиторию
	repoMock.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	err := service.CreateIncident(ctx, incident, testReporter())

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorContains(t, err, "invalid incident type")
	assert.ErrorContains(t, err, "severity must be between 1 and 5")
}

func TestCreateIncident_IDCollisionRetry(t *testing.T) {
	// Подготовка
	service, repoMock, webhookMock := newTestIncidentService(t)
	ctx := context.Background()
	incident := validIncident()

	// Первая попытка натыкается на коллизию идентификатора, вторая проходит
	var firstID, secondID string
	gomock.InOrder(
		repoMock.EXPECT().
			Create(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, inc *models.Incident) error {
				firstID = inc.ID
				return fmt.Errorf("repository: %w", ErrDuplicateID)
			}),
		repoMock.EXPECT().
			Create(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, inc *models.Incident) error {
				secondID = inc.ID
				return nil
			}),
	)
	webhookMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(1)

	// Действие
	err := service.CreateIncident(ctx, incident, testReporter())

	// Проверки
	require.NoError(t, err)
	assert.NotEmpty(t, firstID)
	assert.Equal(t, secondID, incident.ID)
}

func TestCreateIncident_IDExhausted(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	incident := validIncident()

	// Каждая попытка завершается коллизией
	repoMock.EXPECT().
		Create(ctx, gomock.Any()).
		Return(fmt.Errorf("repository: %w", ErrDuplicateID)).
		Times(maxIDAttempts)

	// Действие
	err := service.CreateIncident(ctx, incident, testReporter())

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIDExhausted)
}

func TestUpdateIncident_ForbiddenForStranger(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := "INC-2026-0100"
	existing := &models.Incident{
		ID:         incidentID,
		ReporterID: uuid.New(), // чужой инцидент
		Status:     models.StatusAvailable,
	}
	stranger := testReporter()

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(existing, nil).Times(1)

	newDescription := "попытка чужой правки"
	upd := models.IncidentUpdate{Description: &newDescription}

	// Действие
	updated, err := service.UpdateIncident(ctx, incidentID, upd, stranger)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, updated)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateIncident_VerifiedOnlyAdmin(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	reporter := testReporter()
	incidentID := "INC-2026-0101"
	existing := &models.Incident{
		ID:         incidentID,
		ReporterID: reporter.ID,
		Status:     models.StatusUnverified,
	}

	// Ожидания: репортер может редактировать, но не может верифицировать
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(existing, nil).Times(1)

	verified := true
	upd := models.IncidentUpdate{Verified: &verified}

	// Действие
	updated, err := service.UpdateIncident(ctx, incidentID, upd, reporter)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, updated)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateIncident_CompletedStampsResolvedAt(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	admin := testAdmin()
	incidentID := "INC-2026-0102"
	existing := &models.Incident{
		ID:         incidentID,
		ReporterID: uuid.New(),
		Status:     models.StatusInProgress,
		Verified:   true,
	}

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(existing, nil).Times(1)
	repoMock.EXPECT().Update(ctx, gomock.Any()).Return(nil).Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)

	completed := models.StatusCompleted
	upd := models.IncidentUpdate{Status: &completed}

	// Действие
	updated, err := service.UpdateIncident(ctx, incidentID, upd, admin)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	require.NotNil(t, updated.ResolvedAt)
}

func TestUpdateIncident_AssignmentNotPatchable(t *testing.T) {
	// Подготовка: назначение волонтера через общее обновление запрещено,
	// оно обошло бы условный захват и историю назначений
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	admin := testAdmin()
	incidentID := "INC-2026-0110"
	existing := &models.Incident{
		ID:         incidentID,
		ReporterID: uuid.New(),
		Status:     models.StatusAvailable,
		Verified:   true,
	}

	// Ожидания: до записи в репозиторий дело не доходит
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(existing, nil).Times(1)
	repoMock.EXPECT().Update(ctx, gomock.Any()).Times(0)

	volunteerID := uuid.New()
	upd := models.IncidentUpdate{AssignedTo: &volunteerID}

	// Действие
	updated, err := service.UpdateIncident(ctx, incidentID, upd, admin)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, updated)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "dispatch")
}

func TestUpdateIncident_StatusRequiresVerification(t *testing.T) {
	// Подготовка: непроверенный инцидент живет только в статусе unverified
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	reporter := testReporter()
	incidentID := "INC-2026-0111"
	existing := &models.Incident{
		ID:         incidentID,
		ReporterID: reporter.ID,
		Status:     models.StatusUnverified,
		Verified:   false,
	}

	// Ожидания: репортер может редактировать свой инцидент, но статус
	// не меняется до верификации и запись не происходит
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(existing, nil).Times(1)
	repoMock.EXPECT().Update(ctx, gomock.Any()).Times(0)

	available := models.StatusAvailable
	upd := models.IncidentUpdate{Status: &available}

	// Действие
	updated, err := service.UpdateIncident(ctx, incidentID, upd, reporter)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, updated)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUpdateIncident_StatusCannotReturnToUnverified(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	admin := testAdmin()
	incidentID := "INC-2026-0112"
	existing := &models.Incident{
		ID:         incidentID,
		ReporterID: uuid.New(),
		Status:     models.StatusAvailable,
		Verified:   true,
	}

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(existing, nil).Times(1)
	repoMock.EXPECT().Update(ctx, gomock.Any()).Times(0)

	unverified := models.StatusUnverified
	upd := models.IncidentUpdate{Status: &unverified}

	// Действие
	updated, err := service.UpdateIncident(ctx, incidentID, upd, admin)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, updated)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUpdateIncident_UnverifyResetsLifecycle(t *testing.T) {
	// Подготовка: снятие верификации возвращает инцидент в unverified
	// и сбрасывает текущее назначение
	service, repoMock, webhookMock := newTestIncidentService(t)
	ctx := context.Background()
	admin := testAdmin()
	incidentID := "INC-2026-0113"
	volunteerID := uuid.New()
	verifiedAt := time.Now()
	existing := &models.Incident{
		ID:         incidentID,
		ReporterID: uuid.New(),
		Status:     models.StatusPending,
		Verified:   true,
		VerifiedBy: &admin.ID,
		VerifiedAt: &verifiedAt,
		AssignedTo: &volunteerID,
	}

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(existing, nil).Times(1)
	repoMock.EXPECT().Update(ctx, gomock.Any()).Return(nil).Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)
	webhookMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).AnyTimes()

	unverified := false
	upd := models.IncidentUpdate{Verified: &unverified}

	// Действие
	updated, err := service.UpdateIncident(ctx, incidentID, upd, admin)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnverified, updated.Status)
	assert.False(t, updated.Verified)
	assert.Nil(t, updated.VerifiedBy)
	assert.Nil(t, updated.VerifiedAt)
	assert.Nil(t, updated.AssignedTo)
	assert.Nil(t, updated.AssignedAt)
}

func TestVerifyIncident_MovesToAvailable(t *testing.T) {
	// Подготовка
	service, repoMock, webhookMock := newTestIncidentService(t)
	ctx := context.Background()
	admin := testAdmin()
	incidentID := "INC-2026-0103"
	existing := &models.Incident{
		ID:         incidentID,
		ReporterID: uuid.New(),
		Status:     models.StatusUnverified,
	}

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(existing, nil).Times(1)
	repoMock.EXPECT().Update(ctx, gomock.Any()).Return(nil).Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)
	webhookMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(1)

	// Действие
	verified, err := service.VerifyIncident(ctx, incidentID, admin)

	// Проверки
	require.NoError(t, err)
	assert.True(t, verified.Verified)
	assert.Equal(t, models.StatusAvailable, verified.Status)
	require.NotNil(t, verified.VerifiedBy)
	assert.Equal(t, admin.ID, *verified.VerifiedBy)
	assert.NotNil(t, verified.VerifiedAt)
}

func TestVerifyIncident_NonAdminForbidden(t *testing.T) {
	// Подготовка
	service, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	// Действие
	verified, err := service.VerifyIncident(ctx, "INC-2026-0104", testReporter())

	// Проверки
	require.Error(t, err)
	assert.Nil(t, verified)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRejectIncident_DeletesAndPublishes(t *testing.T) {
	// Подготовка
	service, repoMock, webhookMock := newTestIncidentService(t)
	ctx := context.Background()
	admin := testAdmin()
	incidentID := "INC-2026-0105"
	existing := &models.Incident{
		ID:         incidentID,
		ReporterID: uuid.New(),
		Status:     models.StatusUnverified,
	}

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(existing, nil).Times(1)
	repoMock.EXPECT().Delete(ctx, incidentID).Return(nil).Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)
	webhookMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(1)

	// Действие
	err := service.RejectIncident(ctx, incidentID, admin)

	// Проверки
	require.NoError(t, err)
}

func TestDeleteIncident_ReporterAllowed(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	reporter := testReporter()
	incidentID := "INC-2026-0106"
	existing := &models.Incident{
		ID:         incidentID,
		ReporterID: reporter.ID,
	}

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(existing, nil).Times(1)
	repoMock.EXPECT().Delete(ctx, incidentID).Return(nil).Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)

	// Действие
	err := service.DeleteIncident(ctx, incidentID, reporter)

	// Проверки
	require.NoError(t, err)
}

func TestCorrectLocation_AdminWritesAuditNote(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	admin := testAdmin()
	incidentID := "INC-2026-0107"
	existing := &models.Incident{
		ID:        incidentID,
		Latitude:  55.75,
		Longitude: 37.61,
	}

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(existing, nil).Times(1)
	repoMock.EXPECT().UpdateLocation(ctx, incidentID, 59.93, 30.33).Return(nil).Times(1)
	repoMock.EXPECT().
		AddNote(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, note *models.IncidentNote) error {
			assert.Equal(t, admin.ID, note.AuthorID)
			assert.Contains(t, note.Note, "location corrected")
			return nil
		}).Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)

	// Действие
	corrected, err := service.CorrectLocation(ctx, incidentID, 59.93, 30.33, admin)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, 59.93, corrected.Latitude)
	assert.Equal(t, 30.33, corrected.Longitude)
}

func TestCorrectLocation_NonAdminForbidden(t *testing.T) {
	// Подготовка
	service, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	// Действие
	corrected, err := service.CorrectLocation(ctx, "INC-2026-0108", 59.93, 30.33, testReporter())

	// Проверки
	require.Error(t, err)
	assert.Nil(t, corrected)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAddNote_EmptyTextRejected(t *testing.T) {
	// Подготовка
	service, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	// Действие
	note, err := service.AddNote(ctx, "INC-2026-0109", "   ", testReporter())

	// Проверки
	require.Error(t, err)
	assert.Nil(t, note)
	assert.ErrorIs(t, err, ErrValidation)
}
