package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/disaster_response_system/internal/config"
	"github.com/shenikar/disaster_response_system/internal/models"
	"github.com/shenikar/disaster_response_system/internal/routing"
	routing_mocks "github.com/shenikar/disaster_response_system/internal/routing/mocks"
	"github.com/shenikar/disaster_response_system/internal/service"
	"github.com/shenikar/disaster_response_system/internal/service/mocks"
	"github.com/shenikar/disaster_response_system/pkg/geo"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// testMocks - набор моков, с которыми собирается тестовый Handler
type testMocks struct {
	incidents *mocks.MockIncidentService
	dispatch  *mocks.MockDispatchService
	users     *mocks.MockUserService
	routes    *routing_mocks.MockRouteAdvisor
}

// newTestHandler создает новый экземпляр Handler с мокированными сервисами
func newTestHandler(t *testing.T) (testMocks, *gin.Engine) {
	ctrl := gomock.NewController(t)
	m := testMocks{
		incidents: mocks.NewMockIncidentService(ctrl),
		dispatch:  mocks.NewMockDispatchService(ctrl),
		users:     mocks.NewMockUserService(ctrl),
		routes:    routing_mocks.NewMockRouteAdvisor(ctrl),
	}

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		RateLimitRPS: 100,
	}

	handler := NewHandler(m.incidents, m.dispatch, m.users, m.routes, logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return m, router
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// authAs настраивает мок аутентификации на заданного пользователя
func authAs(m testMocks, token string, user *models.User) {
	m.users.EXPECT().
		Authenticate(gomock.Any(), token).
		Return(user, nil).
		Times(1)
}

func reporterUser() *models.User {
	return &models.User{ID: uuid.New(), Name: "Репортер", Role: models.RoleUser, Status: models.UserActive}
}

func volunteerUser() *models.User {
	return &models.User{ID: uuid.New(), Name: "Волонтер", Role: models.RoleVolunteer, Status: models.UserActive}
}

func adminUser() *models.User {
	return &models.User{ID: uuid.New(), Name: "Админ", Role: models.RoleAdmin, Status: models.UserActive}
}

func TestHealthCheck_NoAuthRequired(t *testing.T) {
	_, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestAuth_MissingToken(t *testing.T) {
	_, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/incidents", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "API token required")
}

func TestAuth_InvalidToken(t *testing.T) {
	m, router := newTestHandler(t)

	m.users.EXPECT().
		Authenticate(gomock.Any(), "bad-token").
		Return(nil, fmt.Errorf("service: %w", service.ErrNotFound)).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents", nil, map[string]string{"X-API-Key": "bad-token"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid API token")
}

func TestCreateIncident_Success(t *testing.T) {
	m, router := newTestHandler(t)
	reporter := reporterUser()
	authAs(m, "reporter-token", reporter)

	lat, lng := 55.75, 37.61
	reqBody := CreateIncidentRequest{
		Type:        "fire",
		Severity:    4,
		Description: "Пожар в жилом доме",
		Location:    LocationDTO{Lat: &lat, Lng: &lng},
	}

	m.incidents.EXPECT().
		CreateIncident(gomock.Any(), gomock.Any(), reporter).
		DoAndReturn(func(_ any, inc *models.Incident, actor *models.User) error {
			inc.ID = "INC-2026-0042"
			inc.Status = models.StatusUnverified
			inc.Reporter = actor.Name
			inc.ReporterID = actor.ID
			return nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "reporter-token"})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool             `json:"success"`
		Data    IncidentResponse `json:"data"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "INC-2026-0042", resp.Data.ID)
	assert.Equal(t, "unverified", resp.Data.Status)
}

func TestCreateIncident_InvalidJSON(t *testing.T) {
	m, router := newTestHandler(t)
	authAs(m, "reporter-token", reporterUser())

	m.incidents.EXPECT().CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBufferString(`{"type": "fire"`), map[string]string{"X-API-Key": "reporter-token"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestCreateIncident_ValidationError(t *testing.T) {
	m, router := newTestHandler(t)
	authAs(m, "reporter-token", reporterUser())

	m.incidents.EXPECT().CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	// Отсутствуют координаты
	reqBody := CreateIncidentRequest{
		Type:        "fire",
		Severity:    4,
		Description: "Без координат",
	}
	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "reporter-token"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetIncident_NotFound(t *testing.T) {
	m, router := newTestHandler(t)
	authAs(m, "reporter-token", reporterUser())

	m.incidents.EXPECT().
		GetIncident(gomock.Any(), "INC-2026-9999").
		Return(nil, fmt.Errorf("service: %w", service.ErrNotFound)).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/INC-2026-9999", nil, map[string]string{"X-API-Key": "reporter-token"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateIncident_Forbidden(t *testing.T) {
	m, router := newTestHandler(t)
	authAs(m, "reporter-token", reporterUser())

	m.incidents.EXPECT().
		UpdateIncident(gomock.Any(), "INC-2026-0100", gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("service: %w", service.ErrForbidden)).
		Times(1)

	description := "чужая правка"
	reqBody := UpdateIncidentRequest{Description: &description}
	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "PUT", "/api/v1/incidents/INC-2026-0100", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "reporter-token"})

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminStats_RequiresAdminRole(t *testing.T) {
	m, router := newTestHandler(t)
	authAs(m, "volunteer-token", volunteerUser())

	m.incidents.EXPECT().Stats(gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/admin/stats", nil, map[string]string{"X-API-Key": "volunteer-token"})

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAvailableTasks_OrdersBySeverity(t *testing.T) {
	m, router := newTestHandler(t)
	authAs(m, "volunteer-token", volunteerUser())

	// Лента задач отсортирована по важности, а не просто по свежести
	m.incidents.EXPECT().
		ListIncidents(gomock.Any(), gomock.Any(), 1, 100).
		DoAndReturn(func(_ context.Context, filter models.IncidentFilter, _, _ int) ([]*models.Incident, error) {
			assert.True(t, filter.OrderBySeverity)
			require.NotNil(t, filter.Status)
			assert.Equal(t, models.StatusAvailable, *filter.Status)
			require.NotNil(t, filter.Verified)
			assert.True(t, *filter.Verified)
			return []*models.Incident{}, nil
		}).Times(1)

	w := makeRequest(router, "GET", "/api/v1/volunteers/available-tasks", nil, map[string]string{"X-API-Key": "volunteer-token"})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVerifyIncident_Success(t *testing.T) {
	m, router := newTestHandler(t)
	admin := adminUser()
	authAs(m, "admin-token", admin)

	verified := &models.Incident{
		ID:       "INC-2026-0042",
		Status:   models.StatusAvailable,
		Verified: true,
	}
	m.incidents.EXPECT().
		VerifyIncident(gomock.Any(), "INC-2026-0042", admin).
		Return(verified, nil).
		Times(1)

	w := makeRequest(router, "POST", "/api/v1/admin/verify-incident/INC-2026-0042", nil, map[string]string{"X-API-Key": "admin-token"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"available"`)
}

func TestAssignTask_Success(t *testing.T) {
	m, router := newTestHandler(t)
	volunteer := volunteerUser()
	authAs(m, "volunteer-token", volunteer)

	claimed := &models.Incident{
		ID:         "INC-2026-0042",
		Status:     models.StatusPending,
		AssignedTo: &volunteer.ID,
	}
	m.dispatch.EXPECT().
		Claim(gomock.Any(), "INC-2026-0042", volunteer).
		Return(claimed, nil).
		Times(1)

	w := makeRequest(router, "POST", "/api/v1/volunteers/assign-task/INC-2026-0042", nil, map[string]string{"X-API-Key": "volunteer-token"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)
}

func TestAssignTask_Conflict(t *testing.T) {
	m, router := newTestHandler(t)
	volunteer := volunteerUser()
	authAs(m, "volunteer-token", volunteer)

	// Задача уже ушла другому волонтеру
	m.dispatch.EXPECT().
		Claim(gomock.Any(), "INC-2026-0042", volunteer).
		Return(nil, fmt.Errorf("service: %w", service.ErrConflict)).
		Times(1)

	w := makeRequest(router, "POST", "/api/v1/volunteers/assign-task/INC-2026-0042", nil, map[string]string{"X-API-Key": "volunteer-token"})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAssignTask_RequiresVolunteerRole(t *testing.T) {
	m, router := newTestHandler(t)
	authAs(m, "reporter-token", reporterUser())

	m.dispatch.EXPECT().Claim(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "POST", "/api/v1/volunteers/assign-task/INC-2026-0042", nil, map[string]string{"X-API-Key": "reporter-token"})

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateUser_ReturnsTokenOnce(t *testing.T) {
	m, router := newTestHandler(t)
	admin := adminUser()
	authAs(m, "admin-token", admin)

	created := &models.User{
		ID:       uuid.New(),
		Name:     "Новый волонтер",
		Role:     models.RoleVolunteer,
		Status:   models.UserActive,
		APIToken: "USER-abcdefgh",
	}
	m.users.EXPECT().
		CreateUser(gomock.Any(), "Новый волонтер", models.RoleVolunteer, admin).
		Return(created, nil).
		Times(1)

	reqBody := CreateUserRequest{Name: "Новый волонтер", Role: "volunteer"}
	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/admin/users", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "admin-token"})

	assert.Equal(t, http.StatusCreated, w.Code)
	// Токен отдается единственный раз - в ответе на создание
	assert.Contains(t, w.Body.String(), "USER-abcdefgh")
}

func TestGetRoute_Success(t *testing.T) {
	m, router := newTestHandler(t)
	volunteer := volunteerUser()
	authAs(m, "volunteer-token", volunteer)

	route := &routing.Route{
		Points:     []geo.Point{{Lat: 55.75, Lng: 37.61}, {Lat: 55.76, Lng: 37.62}},
		DistanceKm: 1.3,
	}
	m.routes.EXPECT().
		GetRoute(gomock.Any(), geo.Point{Lat: 55.75, Lng: 37.61}, geo.Point{Lat: 55.76, Lng: 37.62}).
		Return(route, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/volunteers/route?from_lat=55.75&from_lng=37.61&to_lat=55.76&to_lng=37.62", nil, map[string]string{"X-API-Key": "volunteer-token"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"distance_km":1.3`)
}

func TestGetRoute_BadCoordinates(t *testing.T) {
	m, router := newTestHandler(t)
	authAs(m, "volunteer-token", volunteerUser())

	m.routes.EXPECT().GetRoute(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/volunteers/route?from_lat=abc", nil, map[string]string{"X-API-Key": "volunteer-token"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
