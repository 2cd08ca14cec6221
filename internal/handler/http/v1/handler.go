package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shenikar/disaster_response_system/internal/config"
	"github.com/shenikar/disaster_response_system/internal/models"
	"github.com/shenikar/disaster_response_system/internal/routing"
	"github.com/shenikar/disaster_response_system/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	incidentService service.IncidentService
	dispatchService service.DispatchService
	userService     service.UserService
	routeAdvisor    routing.RouteAdvisor
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config
}

func NewHandler(
	incidentService service.IncidentService,
	dispatchService service.DispatchService,
	userService service.UserService,
	routeAdvisor routing.RouteAdvisor,
	logger *logrus.Logger,
	cfg *config.Config,
) *Handler {
	return &Handler{
		incidentService: incidentService,
		dispatchService: dispatchService,
		userService:     userService,
		routeAdvisor:    routeAdvisor,
		logger:          logger,
		validate:        validator.New(),
		cfg:             cfg,
	}
}

// respondError транслирует ошибку бизнес-логики в HTTP-статус и конверт ответа
func respondError(c *gin.Context, log *logrus.Entry, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		log.WithError(err).Warn("Resource not found")
		c.JSON(http.StatusNotFound, Response{Success: false, Message: err.Error()})
	case errors.Is(err, service.ErrForbidden):
		log.WithError(err).Warn("Operation forbidden")
		c.JSON(http.StatusForbidden, Response{Success: false, Message: err.Error()})
	case errors.Is(err, service.ErrConflict):
		log.WithError(err).Warn("Status conflict")
		c.JSON(http.StatusConflict, Response{Success: false, Message: err.Error()})
	default:
		log.WithError(err).Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, Response{Success: false, Message: "internal server error"})
	}
}

// @Summary Create a new incident
// @Description Report a new incident. It starts unverified until an admin verifies it.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param incident body CreateIncidentRequest true "Incident creation request"
// @Success 201 {object} Response{data=IncidentResponse}
// @Failure 400 {object} Response "Invalid request body or validation error"
// @Failure 401 {object} Response "Unauthorized"
// @Failure 500 {object} Response "Internal server error"
// @Router /incidents [post]
func (h *Handler) createIncident(c *gin.Context) {
	log := h.logger.WithField("method", "createIncident")
	actor := currentUser(c)

	var input CreateIncidentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: err.Error()})
		return
	}

	model := CreateRequestToIncidentModel(input)
	if err := h.incidentService.CreateIncident(c.Request.Context(), model, actor); err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: ModelToIncidentResponse(model)})
}

// @Summary Get a list of incidents
// @Description Get a paginated list of incidents with optional filters.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Param status query string false "Filter by status"
// @Param verified query bool false "Filter by verification flag"
// @Param type query string false "Filter by incident type"
// @Param severity query int false "Filter by severity"
// @Success 200 {object} Response{data=[]IncidentResponse}
// @Failure 401 {object} Response "Unauthorized"
// @Failure 500 {object} Response "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	var filter models.IncidentFilter
	if raw := c.Query("status"); raw != "" {
		status := models.IncidentStatus(raw)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, Response{Success: false, Message: "invalid status filter"})
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("verified"); raw != "" {
		verified := raw == "true"
		filter.Verified = &verified
	}
	if raw := c.Query("type"); raw != "" {
		incidentType := models.IncidentType(raw)
		if !incidentType.Valid() {
			c.JSON(http.StatusBadRequest, Response{Success: false, Message: "invalid type filter"})
			return
		}
		filter.Type = &incidentType
	}
	if raw := c.Query("severity"); raw != "" {
		severity, err := strconv.Atoi(raw)
		if err != nil || severity < 1 || severity > 5 {
			c.JSON(http.StatusBadRequest, Response{Success: false, Message: "invalid severity filter"})
			return
		}
		filter.Severity = &severity
	}

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		respondError(c, log, err)
		return
	}

	count := len(incidents)
	c.JSON(http.StatusOK, Response{Success: true, Count: &count, Data: ModelsToIncidentResponses(incidents)})
}

// @Summary Find nearby incidents
// @Description Find available verified incidents within a radius of a point.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Param radius query int false "Radius in meters" default(5000)
// @Success 200 {object} Response{data=[]IncidentResponse}
// @Failure 400 {object} Response "Invalid coordinates"
// @Failure 401 {object} Response "Unauthorized"
// @Failure 500 {object} Response "Internal server error"
// @Router /incidents/nearby [get]
func (h *Handler) nearbyIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "nearbyIncidents")

	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: "valid lat and lng are required"})
		return
	}
	radius, _ := strconv.Atoi(c.DefaultQuery("radius", "5000"))

	incidents, err := h.incidentService.FindNearby(c.Request.Context(), lat, lng, radius)
	if err != nil {
		respondError(c, log, err)
		return
	}

	count := len(incidents)
	c.JSON(http.StatusOK, Response{Success: true, Count: &count, Data: ModelsToIncidentResponses(incidents)})
}

// @Summary Get incident by ID
// @Description Get a single incident by its human-readable ID.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} Response{data=IncidentResponse}
// @Failure 401 {object} Response "Unauthorized"
// @Failure 404 {object} Response "Incident not found"
// @Failure 500 {object} Response "Internal server error"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.incidentService.GetIncident(c.Request.Context(), id)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ModelToIncidentResponse(incident)})
}

// @Summary Update an existing incident
// @Description Partially update an incident. Allowed for admin, reporter or current assignee.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param incident body UpdateIncidentRequest true "Incident update request"
// @Success 200 {object} Response{data=IncidentResponse}
// @Failure 400 {object} Response "Invalid request body"
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Not authorized to update"
// @Failure 404 {object} Response "Incident not found"
// @Failure 500 {object} Response "Internal server error"
// @Router /incidents/{id} [put]
func (h *Handler) updateIncident(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "updateIncident").WithField("id", id)
	actor := currentUser(c)

	var input UpdateIncidentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: err.Error()})
		return
	}

	upd := models.IncidentUpdate{
		Description: input.Description,
		Severity:    input.Severity,
		AssignedTo:  input.AssignedTo,
		Verified:    input.Verified,
	}
	if input.Status != nil {
		status := models.IncidentStatus(*input.Status)
		upd.Status = &status
	}

	incident, err := h.incidentService.UpdateIncident(c.Request.Context(), id, upd, actor)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ModelToIncidentResponse(incident)})
}

// @Summary Delete an incident
// @Description Permanently delete an incident. Allowed for admin or reporter.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} Response
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Not authorized to delete"
// @Failure 404 {object} Response "Incident not found"
// @Failure 500 {object} Response "Internal server error"
// @Router /incidents/{id} [delete]
func (h *Handler) deleteIncident(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "deleteIncident").WithField("id", id)
	actor := currentUser(c)

	if err := h.incidentService.DeleteIncident(c.Request.Context(), id, actor); err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Message: "Incident deleted successfully"})
}

// @Summary Add a note to an incident
// @Description Append a note to the incident log. Allowed for admin, reporter or current assignee.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param note body AddNoteRequest true "Note request"
// @Success 201 {object} Response{data=NoteResponse}
// @Failure 400 {object} Response "Invalid request body"
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Not authorized"
// @Failure 404 {object} Response "Incident not found"
// @Failure 500 {object} Response "Internal server error"
// @Router /incidents/{id}/notes [post]
func (h *Handler) addIncidentNote(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "addIncidentNote").WithField("id", id)
	actor := currentUser(c)

	var input AddNoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: err.Error()})
		return
	}

	note, err := h.incidentService.AddNote(c.Request.Context(), id, input.Note, actor)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: ModelToNoteResponse(note)})
}

// @Summary List incident notes
// @Description Get the incident note log in insertion order.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} Response{data=[]NoteResponse}
// @Failure 401 {object} Response "Unauthorized"
// @Failure 404 {object} Response "Incident not found"
// @Failure 500 {object} Response "Internal server error"
// @Router /incidents/{id}/notes [get]
func (h *Handler) listIncidentNotes(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "listIncidentNotes").WithField("id", id)

	notes, err := h.incidentService.ListNotes(c.Request.Context(), id)
	if err != nil {
		respondError(c, log, err)
		return
	}
	count := len(notes)
	c.JSON(http.StatusOK, Response{Success: true, Count: &count, Data: ModelsToNoteResponses(notes)})
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
