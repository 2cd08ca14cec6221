package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shenikar/disaster_response_system/internal/models"
	"github.com/shenikar/disaster_response_system/internal/service/mocks"
	webhook_mocks "github.com/shenikar/disaster_response_system/internal/webhook/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestDispatchService — вспомогательная функция для создания инстанса сервиса с моками.
func newTestDispatchService(t *testing.T) (*dispatchService, *mocks.MockIncidentRepository, *mocks.MockUserRepository, *webhook_mocks.MockWebhookPublisher) {
	ctrl := gomock.NewController(t)
	incidentsMock := mocks.NewMockIncidentRepository(ctrl)
	usersMock := mocks.NewMockUserRepository(ctrl)
	webhookMock := webhook_mocks.NewMockWebhookPublisher(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	service := NewDispatchService(incidentsMock, usersMock, logger, webhookMock)
	return service.(*dispatchService), incidentsMock, usersMock, webhookMock
}

func testVolunteer() *models.User {
	return &models.User{
		ID:     uuid.New(),
		Name:   "Волонтер",
		Role:   models.RoleVolunteer,
		Status: models.UserActive,
	}
}

func TestClaim_Success(t *testing.T) {
	// Подготовка
	service, incidentsMock, _, webhookMock := newTestDispatchService(t)
	ctx := context.Background()
	volunteer := testVolunteer()
	incidentID := "INC-2026-0200"
	claimed := &models.Incident{
		ID:         incidentID,
		Status:     models.StatusPending,
		AssignedTo: &volunteer.ID,
	}

	// Ожидания
	incidentsMock.EXPECT().Claim(ctx, incidentID, volunteer.ID).Return(nil).Times(1)
	incidentsMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)
	incidentsMock.EXPECT().GetByID(ctx, incidentID).Return(claimed, nil).Times(1)
	webhookMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(1)

	// Действие
	incident, err := service.Claim(ctx, incidentID, volunteer)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, incident.Status)
	require.NotNil(t, incident.AssignedTo)
	assert.Equal(t, volunteer.ID, *incident.AssignedTo)
}

func TestClaim_Conflict_AlreadyTaken(t *testing.T) {
	// Подготовка
	service, incidentsMock, _, _ := newTestDispatchService(t)
	ctx := context.Background()
	volunteer := testVolunteer()
	incidentID := "INC-2026-0201"

	// Инцидент уже ушел другому волонтеру: условное обновление не сработало
	incidentsMock.EXPECT().
		Claim(ctx, incidentID, volunteer.ID).
		Return(fmt.Errorf("repository: %w", ErrConflict)).
		Times(1)

	// Действие
	incident, err := service.Claim(ctx, incidentID, volunteer)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestClaim_NonVolunteerForbidden(t *testing.T) {
	// Подготовка
	service, _, _, _ := newTestDispatchService(t)
	ctx := context.Background()

	// Действие
	incident, err := service.Claim(ctx, "INC-2026-0202", testReporter())

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestClaim_SuspendedVolunteerForbidden(t *testing.T) {
	// Подготовка
	service, _, _, _ := newTestDispatchService(t)
	ctx := context.Background()
	volunteer := testVolunteer()
	volunteer.Status = models.UserSuspended

	// Действие
	incident, err := service.Claim(ctx, "INC-2026-0203", volunteer)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAssign_Success(t *testing.T) {
	// Подготовка
	service, incidentsMock, usersMock, webhookMock := newTestDispatchService(t)
	ctx := context.Background()
	admin := testAdmin()
	volunteer := testVolunteer()
	incidentID := "INC-2026-0204"
	assigned := &models.Incident{
		ID:         incidentID,
		Status:     models.StatusPending,
		AssignedTo: &volunteer.ID,
	}

	// Ожидания: назначенным становится волонтер, а не админ
	usersMock.EXPECT().GetByID(ctx, volunteer.ID).Return(volunteer, nil).Times(1)
	incidentsMock.EXPECT().Claim(ctx, incidentID, volunteer.ID).Return(nil).Times(1)
	incidentsMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)
	incidentsMock.EXPECT().GetByID(ctx, incidentID).Return(assigned, nil).Times(1)
	webhookMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(1)

	// Действие
	incident, err := service.Assign(ctx, incidentID, volunteer.ID, admin)

	// Проверки
	require.NoError(t, err)
	require.NotNil(t, incident.AssignedTo)
	assert.Equal(t, volunteer.ID, *incident.AssignedTo)
}

func TestAssign_NonAdminForbidden(t *testing.T) {
	// Подготовка
	service, _, _, _ := newTestDispatchService(t)
	ctx := context.Background()

	// Действие
	incident, err := service.Assign(ctx, "INC-2026-0205", uuid.New(), testVolunteer())

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAssign_TargetNotVolunteer(t *testing.T) {
	// Подготовка
	service, _, usersMock, _ := newTestDispatchService(t)
	ctx := context.Background()
	admin := testAdmin()
	target := testReporter() // обычный пользователь, не волонтер

	// Ожидания
	usersMock.EXPECT().GetByID(ctx, target.ID).Return(target, nil).Times(1)

	// Действие
	incident, err := service.Assign(ctx, "INC-2026-0206", target.ID, admin)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRelease_Success(t *testing.T) {
	// Подготовка
	service, incidentsMock, _, webhookMock := newTestDispatchService(t)
	ctx := context.Background()
	volunteer := testVolunteer()
	incidentID := "INC-2026-0207"
	assigned := &models.Incident{
		ID:         incidentID,
		Status:     models.StatusPending,
		AssignedTo: &volunteer.ID,
	}
	released := &models.Incident{
		ID:     incidentID,
		Status: models.StatusAvailable,
	}

	// Ожидания
	gomock.InOrder(
		incidentsMock.EXPECT().GetByID(ctx, incidentID).Return(assigned, nil),
		incidentsMock.EXPECT().Release(ctx, incidentID, volunteer.ID).Return(nil),
		incidentsMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil),
		incidentsMock.EXPECT().GetByID(ctx, incidentID).Return(released, nil),
	)
	webhookMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(1)

	// Действие
	incident, err := service.Release(ctx, incidentID, volunteer)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, incident.Status)
	assert.Nil(t, incident.AssignedTo)
}

func TestRelease_NotAssigneeForbidden(t *testing.T) {
	// Подготовка
	service, incidentsMock, _, _ := newTestDispatchService(t)
	ctx := context.Background()
	volunteer := testVolunteer()
	otherID := uuid.New()
	incidentID := "INC-2026-0208"
	assigned := &models.Incident{
		ID:         incidentID,
		Status:     models.StatusPending,
		AssignedTo: &otherID, // задача у другого волонтера
	}

	// Ожидания
	incidentsMock.EXPECT().GetByID(ctx, incidentID).Return(assigned, nil).Times(1)

	// Действие
	incident, err := service.Release(ctx, incidentID, volunteer)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestComplete_Success(t *testing.T) {
	// Подготовка
	service, incidentsMock, _, webhookMock := newTestDispatchService(t)
	ctx := context.Background()
	volunteer := testVolunteer()
	incidentID := "INC-2026-0209"
	assigned := &models.Incident{
		ID:         incidentID,
		Status:     models.StatusInProgress,
		AssignedTo: &volunteer.ID,
	}
	completed := &models.Incident{
		ID:         incidentID,
		Status:     models.StatusCompleted,
		AssignedTo: &volunteer.ID,
	}

	// Ожидания
	gomock.InOrder(
		incidentsMock.EXPECT().GetByID(ctx, incidentID).Return(assigned, nil),
		incidentsMock.EXPECT().Complete(ctx, incidentID, volunteer.ID).Return(nil),
		incidentsMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil),
		incidentsMock.EXPECT().GetByID(ctx, incidentID).Return(completed, nil),
	)
	webhookMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(1)

	// Действие
	incident, err := service.Complete(ctx, incidentID, volunteer)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, incident.Status)
}

func TestComplete_WrongStatusConflict(t *testing.T) {
	// Подготовка
	service, incidentsMock, _, _ := newTestDispatchService(t)
	ctx := context.Background()
	volunteer := testVolunteer()
	incidentID := "INC-2026-0210"
	alreadyDone := &models.Incident{
		ID:         incidentID,
		Status:     models.StatusCompleted,
		AssignedTo: &volunteer.ID,
	}

	// Ожидания
	incidentsMock.EXPECT().GetByID(ctx, incidentID).Return(alreadyDone, nil).Times(1)

	// Действие
	incident, err := service.Complete(ctx, incidentID, volunteer)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, ErrConflict)
}
